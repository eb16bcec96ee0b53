package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	// 8h + 6.5h at 31.70/h -> 14.5h, 459.65
	sum, err := Compute([]int64{800, 650}, 3170)
	require.NoError(t, err)
	assert.Equal(t, int64(1450), sum.TotalHundredths)
	assert.Equal(t, int64(45965), sum.TotalPayCents)
}

func TestComputeEmpty(t *testing.T) {
	sum, err := Compute(nil, 3170)
	require.NoError(t, err)
	assert.Zero(t, sum.TotalHundredths)
	assert.Zero(t, sum.TotalPayCents)
}

func TestComputeRoundsHalfUp(t *testing.T) {
	// 0.01h at 0.99/h = 0.0099 -> rounds to 1 cent
	sum, err := Compute([]int64{1}, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.TotalPayCents)

	// 0.01h at 0.49/h = 0.0049 -> rounds to 0
	sum, err = Compute([]int64{1}, 49)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum.TotalPayCents)
}

func TestComputeRejectsNegativeRate(t *testing.T) {
	_, err := Compute([]int64{100}, -1)
	assert.ErrorIs(t, err, ErrInvalidRate)
}

func TestComputeRejectsNegativeHours(t *testing.T) {
	_, err := Compute([]int64{-50}, 3170)
	assert.ErrorIs(t, err, ErrInvalidHours)
}

func TestParseHours(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"7", 700},
		{"6.5", 650},
		{"6,5", 650},
		{"6.25", 625},
		{"0", 0},
		{"12.345", 1235}, // half-up on third decimal
		{"12.344", 1234},
		{"24", 2400},
	}
	for _, c := range cases {
		got, err := ParseHours(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseHoursRejects(t *testing.T) {
	for _, in := range []string{"", "-1", "+5", "abc", "1.2.3", "24.01", "7h", "7.", "0.", "."} {
		_, err := ParseHours(in)
		assert.ErrorIs(t, err, ErrInvalidHours, in)
	}
}

func TestParseRate(t *testing.T) {
	got, err := ParseRate("31.70")
	require.NoError(t, err)
	assert.Equal(t, int64(3170), got)

	got, err = ParseRate("31,7")
	require.NoError(t, err)
	assert.Equal(t, int64(3170), got)

	for _, in := range []string{"0", "-5", ""} {
		_, err := ParseRate(in)
		assert.ErrorIs(t, err, ErrInvalidRate, in)
	}
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "7", FormatHours(700))
	assert.Equal(t, "6.5", FormatHours(650))
	assert.Equal(t, "6.25", FormatHours(625))
	assert.Equal(t, "14.5", FormatHours(1450))
	assert.Equal(t, "0", FormatHours(0))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "459.65", FormatCents(45965))
	assert.Equal(t, "221.90", FormatCents(22190))
	assert.Equal(t, "0.05", FormatCents(5))
}
