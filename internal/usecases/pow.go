package usecases

import (
	"fmt"

	"powplant/internal/domain"
	"powplant/pkg/pow/hashcash"
)

// PowUsecase defines the interface for the delegated Proof of Work usecase.
type PowUsecase interface {
	Perform(req domain.PowRequest) (*domain.PowResponse, error)
}

type powUsecaseImpl struct {
	searcher *hashcash.Searcher
}

// NewPowUsecase initializes the powUsecaseImpl with a nonce window of NonceWidth characters.
func NewPowUsecase() (PowUsecase, error) {
	searcher, err := hashcash.NewSearcher(NonceWidth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hashcash: %w", err)
	}
	return &powUsecaseImpl{
		searcher: searcher,
	}, nil
}

// Perform appends a nonce tag to the event and mines it until its digest has at least
// req.TargetPow leading zero bits. The difficulty is taken as is; clamping belongs to
// the caller.
func (p *powUsecaseImpl) Perform(req domain.PowRequest) (*domain.PowResponse, error) {
	canonical, err := Canonicalize(req.Event)
	if err != nil {
		return nil, err
	}

	res, err := p.searcher.Search(canonical.Prefix(), canonical.Suffix(), req.TargetPow)
	if err != nil {
		return nil, fmt.Errorf("failed to mine event: %w", err)
	}

	canonical.Apply(res.Nonce)
	return &domain.PowResponse{
		Event: canonical.Event,
		Pow:   res.Difficulty,
	}, nil
}

// EffectiveDifficulty substitutes def for an unspecified (zero) request and caps the
// result at max.
func EffectiveDifficulty(requested, def, max uint32) uint32 {
	if requested == 0 {
		requested = def
	}
	return min(requested, max)
}
