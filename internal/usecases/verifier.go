package usecases

import (
	"errors"
	"fmt"

	"powplant/internal/domain"
	"powplant/pkg/pow/hashcash"
)

var (
	ErrNonceTagMissing = errors.New("nonce tag missing")
	ErrNonceMalformed  = errors.New("nonce value malformed")
	ErrPowMismatch     = errors.New("reported pow does not match event digest")
	ErrPowBelowMinimum = errors.New("reported pow below required minimum")
)

// VerifierUsecase checks mined events on the requesting side.
type VerifierUsecase interface {
	Verify(resp *domain.PowResponse, minPow uint32) error
}

type verifierUsecaseImpl struct{}

func NewVerifierUsecase() VerifierUsecase {
	return &verifierUsecaseImpl{}
}

// Verify recomputes the digest of the returned event and checks that the last tag is a
// well formed nonce tag, that the reported difficulty is the one the digest carries and
// that it reaches minPow. The server caps targets at its own maximum, so minPow is what
// the caller is willing to accept rather than what it asked for.
func (v *verifierUsecaseImpl) Verify(resp *domain.PowResponse, minPow uint32) error {
	tags := resp.Event.Tags
	if len(tags) == 0 {
		return ErrNonceTagMissing
	}
	last := tags[len(tags)-1]
	if len(last) != 2 || last[0] != NonceTag {
		return ErrNonceTagMissing
	}
	if !isLowerHex(last[1], NonceWidth) {
		return fmt.Errorf("%w: %q", ErrNonceMalformed, last[1])
	}

	serialized, err := Serialize(&resp.Event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	hash := hashcash.Digest(serialized)
	if got := hashcash.LeadingZeroBits(hash[:]); got != resp.Pow {
		return fmt.Errorf("%w: digest has %d leading zero bits, reported %d", ErrPowMismatch, got, resp.Pow)
	}
	if resp.Pow < minPow {
		return fmt.Errorf("%w: got %d, need %d", ErrPowBelowMinimum, resp.Pow, minPow)
	}
	return nil
}

func isLowerHex(s string, width int) bool {
	if len(s) != width {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
