package hashcash

/*
	Key Concepts of the delegated hashcash search:

	Fixed-width window:
	The record is serialized once. The nonce lives in a window of a constant number of
	hexadecimal characters inside that serialized form, so every candidate has the same
	length and the bytes before (prefix) and after (suffix) the window never move.
	A candidate is produced by overwriting the window in place, not by encoding the
	record again.

	Difficulty:
	Difficulty is the number of leading zero BITS of the SHA-256 digest of the whole
	buffer. Only the leading contiguous run counts: the first non-zero byte ends the scan.

	Search space:
	Candidates are the lowercase, zero-padded hexadecimal renderings of 0, 1, 2, ...
	A window of N characters holds 16^N values. A 16 character window therefore caps the
	search at 2^64-1, after which the search fails instead of wrapping around.
*/

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/spacemeshos/sha256-simd"
)

const (
	// DigestSize is the size of the digest the difficulty is measured on.
	DigestSize = sha256.Size
	// MaxDifficulty is the largest difficulty a digest can carry.
	MaxDifficulty = DigestSize * 8
	// MaxWidth is the widest nonce window the search supports (64 bits of counter).
	MaxWidth = 16
)

var (
	ErrWidthRange      = errors.New("nonce width out of acceptable range")
	ErrSearchExhausted = errors.New("nonce search space exhausted")
)

// Result is the outcome of a successful search.
type Result struct {
	// Nonce is the winning candidate, exactly as wide as the window.
	Nonce string
	// Counter is the numeric value of Nonce.
	Counter uint64
	// Difficulty is the number of leading zero bits the winning digest achieved.
	Difficulty uint32
}

// Searcher enumerates nonce candidates over a window of fixed width.
type Searcher struct {
	width int
}

// NewSearcher initializes a Searcher for windows of the given width.
func NewSearcher(width int) (*Searcher, error) {
	if width < 1 || width > MaxWidth {
		return nil, fmt.Errorf("%w: width must be between 1 and %d", ErrWidthRange, MaxWidth)
	}
	return &Searcher{width: width}, nil
}

// Search looks for the first candidate c such that digest(prefix + c + suffix) has at
// least target leading zero bits. It runs until it succeeds or the window's value space
// is exhausted; it is CPU bound and cannot be interrupted.
func (s *Searcher) Search(prefix, suffix []byte, target uint32) (Result, error) {
	if target > MaxDifficulty {
		return Result{}, fmt.Errorf("%w: difficulty %d exceeds digest size of %d bits", ErrSearchExhausted, target, MaxDifficulty)
	}

	buf := make([]byte, len(prefix)+s.width+len(suffix))
	copy(buf, prefix)
	window := buf[len(prefix) : len(prefix)+s.width]
	for i := range window {
		window[i] = '0'
	}
	copy(buf[len(prefix)+s.width:], suffix)

	var counter uint64
	for {
		hash := Digest(buf)
		if pow := LeadingZeroBits(hash[:]); pow >= target {
			return Result{
				Nonce:      string(window),
				Counter:    counter,
				Difficulty: pow,
			}, nil
		}

		if !increment(window) {
			return Result{}, fmt.Errorf("%w: all %d-digit nonces tried for difficulty %d", ErrSearchExhausted, s.width, target)
		}
		counter++
	}
}

// Search is a shortcut for NewSearcher(width) followed by Search.
func Search(prefix, suffix []byte, width int, target uint32) (Result, error) {
	s, err := NewSearcher(width)
	if err != nil {
		return Result{}, err
	}
	return s.Search(prefix, suffix, target)
}

// Digest computes the SHA-256 digest the difficulty is measured on.
func Digest(data []byte) [DigestSize]byte {
	return sha256.Sum256(data)
}

// LeadingZeroBits counts the leading contiguous zero bits of digest.
func LeadingZeroBits(digest []byte) uint32 {
	var count uint32
	for _, b := range digest {
		zeros := uint32(bits.LeadingZeros8(b))
		count += zeros
		if zeros < 8 {
			break
		}
	}
	return count
}

// increment advances the hexadecimal window by one, in place. It reports false when the
// window already held its maximum value, leaving it untouched.
func increment(window []byte) bool {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] != 'f' {
			break
		}
		if i == 0 {
			return false
		}
	}
	for i := len(window) - 1; i >= 0; i-- {
		switch c := window[i]; {
		case c == '9':
			window[i] = 'a'
			return true
		case c == 'f':
			window[i] = '0'
		default:
			window[i] = c + 1
			return true
		}
	}
	return true
}
