package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricing_ComputeAmount(t *testing.T) {
	t.Parallel()

	p := NewPricingCalculator()
	start := testNow

	tests := []struct {
		name     string
		duration time.Duration
		base     string
		premium  string
		want     string
	}{
		{name: "two and a half hours at base rate", duration: 150 * time.Minute, base: "3.00", premium: "0", want: "7.5"},
		{name: "premium adds to base", duration: 2 * time.Hour, base: "3.00", premium: "2.00", want: "10"},
		{name: "half cent rounds up", duration: 30 * time.Minute, base: "0.01", premium: "0", want: "0.01"},
		{name: "below half cent rounds down", duration: 20 * time.Minute, base: "0.01", premium: "0", want: "0"},
		{name: "free slot", duration: 3 * time.Hour, base: "0", premium: "0", want: "0"},
		{name: "sub-hour interval is not rounded up", duration: 15 * time.Minute, base: "4.00", premium: "0", want: "1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.ComputeAmount(start, start.Add(tc.duration), dec(tc.base), dec(tc.premium))
			require.NoError(t, err)
			assert.True(t, got.Equal(dec(tc.want)), "got %s, want %s", got, tc.want)
		})
	}
}

func TestPricing_ComputeAmount_InvalidInterval(t *testing.T) {
	t.Parallel()

	p := NewPricingCalculator()

	_, err := p.ComputeAmount(testNow, testNow, dec("3"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = p.ComputeAmount(testNow, testNow.Add(-time.Hour), dec("3"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPricing_NegativeRate_Rejected(t *testing.T) {
	t.Parallel()

	p := NewPricingCalculator()

	_, err := p.ComputeAmount(testNow, testNow.Add(time.Hour), dec("-1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = p.EstimateAmount(testNow, testNow.Add(time.Hour), dec("3"), dec("-0.5"))
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestPricing_MonotonicInDuration(t *testing.T) {
	t.Parallel()

	p := NewPricingCalculator()
	prev := decimal.Zero
	for minutes := 1; minutes <= 600; minutes += 7 {
		got, err := p.ComputeAmount(testNow, testNow.Add(time.Duration(minutes)*time.Minute), dec("3.33"), dec("0.47"))
		require.NoError(t, err)
		assert.False(t, got.LessThan(prev), "amount decreased at %d minutes: %s < %s", minutes, got, prev)
		prev = got
	}
}

func TestPricing_EstimateChargesAtLeastOneHour(t *testing.T) {
	t.Parallel()

	p := NewPricingCalculator()

	short, err := p.EstimateAmount(testNow, testNow.Add(15*time.Minute), dec("4.00"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, short.Equal(dec("4")), "got %s", short)

	long, err := p.EstimateAmount(testNow, testNow.Add(150*time.Minute), dec("3.00"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, long.Equal(dec("7.5")), "got %s", long)
}

func TestPricing_Hours(t *testing.T) {
	t.Parallel()

	assert.True(t, Hours(testNow, testNow.Add(90*time.Minute)).Equal(dec("1.5")))
	assert.True(t, Hours(testNow, testNow.Add(36*time.Second)).Equal(dec("0.01")))
	assert.True(t, Hours(testNow, testNow.Add(36*time.Millisecond)).Equal(dec("0.00001")))
}

func TestPricing_ComputeAmount_KeepsSubSecondDuration(t *testing.T) {
	t.Parallel()

	p := NewPricingCalculator()
	amount, err := p.ComputeAmount(testNow, testNow.Add(500*time.Millisecond), dec("7200"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("1.00")), "got %s", amount)
}
