package hashcash

import (
	"crypto/rand"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNewSearcher(t *testing.T) {
	s, err := NewSearcher(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.width != 16 {
		t.Fatalf("expected width 16, got %d", s.width)
	}

	// Invalid width tests
	_, err = NewSearcher(0)
	if err == nil || !strings.Contains(err.Error(), ErrWidthRange.Error()) {
		t.Fatalf("expected ErrWidthRange for width 0, got %v", err)
	}

	_, err = NewSearcher(17)
	if !errors.Is(err, ErrWidthRange) {
		t.Fatalf("expected ErrWidthRange for width 17, got %v", err)
	}
}

func TestLeadingZeroBits(t *testing.T) {
	cases := []struct {
		name   string
		digest []byte
		want   uint32
	}{
		{"all zero", make([]byte, DigestSize), MaxDifficulty},
		{"high bit set", append([]byte{0x80}, make([]byte, DigestSize-1)...), 0},
		{"one zero byte then 0x01", []byte{0x00, 0x01, 0xff}, 15},
		{"nibble", []byte{0x0f, 0x00}, 4},
		{"zeros after first non-zero byte are ignored", []byte{0x00, 0x40, 0x00, 0x00}, 9},
		{"empty", nil, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LeadingZeroBits(tc.digest); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestLeadingZeroBitsRange(t *testing.T) {
	digest := make([]byte, DigestSize)
	for i := 0; i < 1000; i++ {
		if _, err := rand.Read(digest); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// Sparsify so that long zero runs show up as well.
		for j := 0; j < i%DigestSize; j++ {
			digest[j] = 0
		}
		if got := LeadingZeroBits(digest); got > 8*uint32(len(digest)) {
			t.Fatalf("count %d out of range for %x", got, digest)
		}
	}
}

func TestFormatNonce(t *testing.T) {
	cases := []struct {
		counter uint64
		width   int
		want    string
		ok      bool
	}{
		{0, 16, "0000000000000000", true},
		{255, 2, "ff", true},
		{256, 2, "", false},
		{0xabc, 4, "0abc", true},
		{math.MaxUint64, 16, "ffffffffffffffff", true},
		{1, 0, "", false},
	}

	for _, tc := range cases {
		got, ok := formatNonce(tc.counter, tc.width)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("formatNonce(%d, %d) = %q, %v; expected %q, %v", tc.counter, tc.width, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIncrement(t *testing.T) {
	cases := map[string]string{
		"00": "01",
		"09": "0a",
		"0f": "10",
		"9f": "a0",
		"ef": "f0",
	}
	for in, want := range cases {
		window := []byte(in)
		if !increment(window) {
			t.Fatalf("increment(%q) reported overflow", in)
		}
		if string(window) != want {
			t.Fatalf("increment(%q) = %q, expected %q", in, window, want)
		}
	}

	window := []byte("ff")
	if increment(window) {
		t.Fatalf("expected overflow for ff")
	}
	if string(window) != "ff" {
		t.Fatalf("window changed on overflow: %q", window)
	}
}

func TestSearchZeroDifficulty(t *testing.T) {
	prefix, suffix := []byte(`{"nonce":"`), []byte(`"}`)

	res, err := Search(prefix, suffix, 16, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Counter != 0 || res.Nonce != "0000000000000000" {
		t.Fatalf("expected the first candidate, got %d (%s)", res.Counter, res.Nonce)
	}

	hash := Digest([]byte(`{"nonce":"0000000000000000"}`))
	if res.Difficulty != LeadingZeroBits(hash[:]) {
		t.Fatalf("expected difficulty %d, got %d", LeadingZeroBits(hash[:]), res.Difficulty)
	}
}

func TestSearchFindsFirstSolution(t *testing.T) {
	prefix, suffix := []byte("challenge:"), []byte(":end")
	const target = 8

	res, err := Search(prefix, suffix, 16, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Difficulty < target {
		t.Fatalf("expected difficulty >= %d, got %d", target, res.Difficulty)
	}

	nonce, ok := formatNonce(res.Counter, 16)
	if !ok || nonce != res.Nonce {
		t.Fatalf("counter %d does not match nonce %s", res.Counter, res.Nonce)
	}

	hash := Digest([]byte(string(prefix) + res.Nonce + string(suffix)))
	if LeadingZeroBits(hash[:]) != res.Difficulty {
		t.Fatalf("reported difficulty %d does not match digest", res.Difficulty)
	}

	// No earlier candidate may satisfy the target.
	for c := uint64(0); c < res.Counter; c++ {
		candidate, _ := formatNonce(c, 16)
		hash := Digest([]byte(string(prefix) + candidate + string(suffix)))
		if LeadingZeroBits(hash[:]) >= target {
			t.Fatalf("candidate %s already met the target", candidate)
		}
	}
}

func TestSearchExhausted(t *testing.T) {
	// A single hex digit gives 16 candidates, far too few for 64 bits.
	_, err := Search([]byte("prefix"), []byte("suffix"), 1, 64)
	if !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted, got %v", err)
	}
	if !strings.Contains(err.Error(), "all 1-digit nonces") {
		t.Fatalf("expected the window width in the error, got %q", err)
	}
}

func TestSearchUnreachableDifficulty(t *testing.T) {
	_, err := Search(nil, nil, 16, MaxDifficulty+1)
	if !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted, got %v", err)
	}
}

// formatNonce renders counter as a zero padded lowercase hexadecimal string of width
// characters. It reports false when counter does not fit.
func formatNonce(counter uint64, width int) (string, bool) {
	if width < 1 || width > MaxWidth {
		return "", false
	}
	if width < MaxWidth && counter>>(4*uint(width)) != 0 {
		return "", false
	}
	out := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = "0123456789abcdef"[counter&0xf]
		counter >>= 4
	}
	return string(out), true
}
