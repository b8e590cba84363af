package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"parking/internal/repository"
)

// Reference formats.
const (
	BookingReferencePrefix = "BK"
	BookingReferenceDigits = 8
	PaymentReferencePrefix = "PAY"
	PaymentReferenceDigits = 10

	// DefaultReferenceAttempts bounds how many candidates are tried per insert.
	DefaultReferenceAttempts = 5
)

// ReferenceGenerator produces human-readable unique references.
type ReferenceGenerator struct {
	maxAttempts int
	random      func(digits int) (string, error)
}

// NewReferenceGenerator creates a generator that tries at most maxAttempts
// candidates per insert.
func NewReferenceGenerator(maxAttempts int) *ReferenceGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultReferenceAttempts
	}
	return &ReferenceGenerator{
		maxAttempts: maxAttempts,
		random:      randomDigits,
	}
}

// Generate returns prefix followed by digits zero-padded random digits.
func (g *ReferenceGenerator) Generate(prefix string, digits int) (string, error) {
	suffix, err := g.random(digits)
	if err != nil {
		return "", err
	}
	return prefix + suffix, nil
}

// Insert calls insert with fresh candidates until one is accepted.
// insert must return repository.ErrDuplicateReference on a collision;
// any other error stops the loop.
func (g *ReferenceGenerator) Insert(ctx context.Context, prefix string, digits int, insert func(ref string) error) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		ref, err := g.Generate(prefix, digits)
		if err != nil {
			return "", err
		}

		err = insert(ref)
		if err == nil {
			return ref, nil
		}
		if !errors.Is(err, repository.ErrDuplicateReference) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: prefix %s after %d attempts", ErrReferenceExhausted, prefix, g.maxAttempts)
}

func randomDigits(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
