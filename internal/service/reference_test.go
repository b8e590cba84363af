package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking/internal/repository"
)

func sequence(values ...int) func(int) (string, error) {
	i := 0
	return func(digits int) (string, error) {
		v := values[i%len(values)]
		i++
		return fmt.Sprintf("%0*d", digits, v), nil
	}
}

func TestReference_Generate_Format(t *testing.T) {
	t.Parallel()

	g := NewReferenceGenerator(0)

	bk, err := g.Generate(BookingReferencePrefix, BookingReferenceDigits)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^BK\d{8}$`), bk)

	pay, err := g.Generate(PaymentReferencePrefix, PaymentReferenceDigits)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^PAY\d{10}$`), pay)
}

func TestReference_Insert_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	g := NewReferenceGenerator(3)
	g.random = sequence(7, 7, 42)

	taken := map[string]bool{"BK00000007": true}
	var tried []string
	ref, err := g.Insert(context.Background(), "BK", 8, func(ref string) error {
		tried = append(tried, ref)
		if taken[ref] {
			return repository.ErrDuplicateReference
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "BK00000042", ref)
	assert.Equal(t, []string{"BK00000007", "BK00000007", "BK00000042"}, tried)
}

func TestReference_Insert_Exhausted(t *testing.T) {
	t.Parallel()

	g := NewReferenceGenerator(4)
	g.random = sequence(1)

	calls := 0
	_, err := g.Insert(context.Background(), "PAY", 10, func(string) error {
		calls++
		return repository.ErrDuplicateReference
	})

	assert.ErrorIs(t, err, ErrReferenceExhausted)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 4, calls)
}

func TestReference_Insert_OtherErrorStops(t *testing.T) {
	t.Parallel()

	g := NewReferenceGenerator(5)
	boom := errors.New("connection reset")

	calls := 0
	_, err := g.Insert(context.Background(), "BK", 8, func(string) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestReference_Insert_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReferenceGenerator(5).Insert(ctx, "BK", 8, func(string) error {
		t.Fatal("insert must not be called")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
