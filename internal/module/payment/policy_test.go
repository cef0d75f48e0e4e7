package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		wantErr bool
	}{
		{"eighty", 80, false},
		{"full", 100, false},
		{"zero", 0, true},
		{"negative", -10, true},
		{"over hundred", 120, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.percent)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestComputeRefundSplit(t *testing.T) {
	policy, err := NewPolicy(80)
	require.NoError(t, err)

	tests := []struct {
		name       string
		total      int64
		wantRefund int64
		wantFee    int64
	}{
		{"hundred euro", 10000, 8000, 2000},
		{"one cent", 1, 1, 0},
		{"three cents", 3, 2, 1},
		{"seven cents", 7, 6, 1},
		{"odd total", 9999, 7999, 2000},
		{"typical callout", 4550, 3640, 910},
		{"large total", 1250075, 1000060, 250015},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := policy.ComputeRefundSplit(tt.total, "eur")
			require.NoError(t, err)
			assert.Equal(t, tt.wantRefund, split.RefundAmount)
			assert.Equal(t, tt.wantFee, split.FeeAmount)
			assert.Equal(t, "eur", split.Currency)
		})
	}
}

func TestComputeRefundSplit_SumsToTotal(t *testing.T) {
	policy, err := NewPolicy(80)
	require.NoError(t, err)

	// The split must reassemble into the original amount for every total:
	// independent rounding may not drift even a cent.
	for total := int64(1); total <= 100000; total++ {
		split, err := policy.ComputeRefundSplit(total, "eur")
		require.NoError(t, err)
		require.Equal(t, total, split.RefundAmount+split.FeeAmount, "total %d", total)
	}
}

func TestComputeRefundSplit_InvalidAmounts(t *testing.T) {
	policy, err := NewPolicy(80)
	require.NoError(t, err)

	for _, total := range []int64{0, -1, -10000} {
		_, err := policy.ComputeRefundSplit(total, "eur")
		assert.ErrorIs(t, err, ErrInvalidAmount, "total %d", total)
	}
}

func TestComputeRefundSplit_Deterministic(t *testing.T) {
	policy, err := NewPolicy(80)
	require.NoError(t, err)

	first, err := policy.ComputeRefundSplit(33333, "eur")
	require.NoError(t, err)
	second, err := policy.ComputeRefundSplit(33333, "eur")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
