package normalizer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Web3Tester2023/swap3/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint8
		expected string
		wantErr  bool
	}{
		{
			name:     "one token, 18 decimals",
			input:    "1",
			decimals: 18,
			expected: "1000000000000000000",
		},
		{
			name:     "one token, 0 decimals",
			input:    "1",
			decimals: 0,
			expected: "1",
		},
		{
			name:     "one token, 8 decimals",
			input:    "1",
			decimals: 8,
			expected: "100000000",
		},
		{
			name:     "smallest unit, 6 decimals",
			input:    "0.000001",
			decimals: 6,
			expected: "1",
		},
		{
			name:     "hundred tokens, 6 decimals",
			input:    "100",
			decimals: 6,
			expected: "100000000",
		},
		{
			name:     "fractional 18 decimals stays exact",
			input:    "0.123456789012345678",
			decimals: 18,
			expected: "123456789012345678",
		},
		{
			name:     "large amount 18 decimals stays exact",
			input:    "123456789.987654321",
			decimals: 18,
			expected: "123456789987654321000000000",
		},
		{
			name:     "sub-base-unit rounds half up",
			input:    "0.0000015",
			decimals: 6,
			expected: "2",
		},
		{
			name:     "zero is valid for plain normalize",
			input:    "0",
			decimals: 18,
			expected: "0",
		},
		{
			name:     "leading whitespace tolerated",
			input:    " 2 ",
			decimals: 6,
			expected: "2000000",
		},
		{
			name:     "empty input",
			input:    "",
			decimals: 18,
			wantErr:  true,
		},
		{
			name:     "non-numeric input",
			input:    "12abc",
			decimals: 18,
			wantErr:  true,
		},
		{
			name:     "negative input",
			input:    "-3",
			decimals: 18,
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input, tc.decimals)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			expected, ok := new(big.Int).SetString(tc.expected, 10)
			require.True(t, ok)
			assert.Zero(t, got.Cmp(expected), "got %s, want %s", got, expected)
		})
	}
}

// Exactness across every precision the ledger can express: "1" must scale
// to exactly 10^p with no float drift.
func TestNormalizeExactPowers(t *testing.T) {
	for p := uint8(0); p <= 18; p++ {
		got, err := Normalize("1", p)
		require.NoError(t, err)

		expected := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(p)), nil)
		assert.Zero(t, got.Cmp(expected), "precision %d: got %s, want %s", p, got, expected)
	}
}

func TestNormalizePositive(t *testing.T) {
	_, err := NormalizePositive("0", 18)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = NormalizePositive("0.0", 6)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	got, err := NormalizePositive("0.5", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(500000), got.Int64())
}

func TestNormalizeOption(t *testing.T) {
	got, err := NormalizeOption("3")
	require.NoError(t, err)
	assert.Equal(t, int64(300000000), got.Int64())

	_, err = NormalizeOption("")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
