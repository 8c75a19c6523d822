package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTxStateMonotonic(t *testing.T) {
	op := &PendingOperation{State: StateCreated}

	op.Advance(StateSubmitted)
	op.Advance(StateHashReceived)
	assert.Equal(t, StateHashReceived, op.State)

	// backward transition is ignored
	op.Advance(StateSubmitted)
	assert.Equal(t, StateHashReceived, op.State)

	op.Advance(StateConfirmed)
	assert.Equal(t, StateConfirmed, op.State)

	// terminal states never move
	op.Advance(StateFailed)
	assert.Equal(t, StateConfirmed, op.State)
}

func TestWithdrawalWindowOpen(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name   string
		expiry int64
		open   bool
	}{
		{name: "expiry in the past opens the window", expiry: now.Unix() - 60, open: true},
		{name: "expiry in the future keeps it closed", expiry: now.Unix() + 60, open: false},
		{name: "unset expiry keeps it closed", expiry: -1, open: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vs := &VaultState{WithdrawalWindowExpiry: tc.expiry}
			assert.Equal(t, tc.open, vs.WithdrawalWindowOpen(now))
		})
	}
}

func TestShareRatio(t *testing.T) {
	vs := &VaultState{
		TotalSupply:      big.NewInt(200),
		VaultBalance:     big.NewInt(60),
		CollateralAmount: big.NewInt(40),
	}
	assert.Equal(t, "2/1", vs.ShareRatio().String())

	empty := &VaultState{
		TotalSupply:      big.NewInt(0),
		VaultBalance:     big.NewInt(0),
		CollateralAmount: big.NewInt(0),
	}
	assert.Zero(t, empty.ShareRatio().Sign())
}

func TestRequiresConversionErrorMessage(t *testing.T) {
	err := &RequiresConversionError{
		Shortfall: big.NewInt(1500000),
		Symbol:    "WETH",
		Decimals:  6,
	}
	assert.Equal(t, "you need to convert 1.5 ETH to WETH", err.Error())
}

func TestAssetDisplayAmount(t *testing.T) {
	a := &Asset{Symbol: "WETH", Decimals: 18}
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", a.DisplayAmount(v))
	assert.Equal(t, "0", a.DisplayAmount(nil))
}
