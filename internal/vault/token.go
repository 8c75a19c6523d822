// Package vault is the contract binding layer: it packs calldata for the
// vault token and its underlying asset and submits it through a ledger
// client.
package vault

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Web3Tester2023/swap3/internal/clients"
	"github.com/Web3Tester2023/swap3/internal/domain"
)

// vaultABI is the subset of the vault token contract the client drives.
const vaultABI = `[
	{"type":"function","name":"deposit","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdraw","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"initialize","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"writeCalls","inputs":[{"name":"amount","type":"uint256"},{"name":"oToken","type":"address"},{"name":"marginPool","type":"address"}],"outputs":[]},
	{"type":"function","name":"sellCalls","inputs":[{"name":"amount","type":"uint256"},{"name":"premiumAmount","type":"uint256"},{"name":"otherParty","type":"address"}],"outputs":[]},
	{"type":"function","name":"settleVault","inputs":[],"outputs":[]},
	{"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"collateralAmount","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"windowExpiration","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"manager","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}
]`

// assetABI is the ERC20 subset used for the underlying asset token.
const assetABI = `[
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
	{"type":"function","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"}
]`

// MaxApproval is the 2^256-1 allowance used for infinite approvals.
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Token binds one vault token contract and its underlying asset.
type Token struct {
	ledger    clients.Ledger
	vaultAddr common.Address
	assetAddr common.Address
	vaultABI  abi.ABI
	assetABI  abi.ABI
	l         *zap.Logger
}

// NewToken creates a binding for the vault at vaultAddr whose underlying
// asset lives at assetAddr.
func NewToken(ledger clients.Ledger, vaultAddr, assetAddr common.Address, l *zap.Logger) (*Token, error) {
	vABI, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse vault abi")
	}
	aABI, err := abi.JSON(strings.NewReader(assetABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse asset abi")
	}

	return &Token{
		ledger:    ledger,
		vaultAddr: vaultAddr,
		assetAddr: assetAddr,
		vaultABI:  vABI,
		assetABI:  aABI,
		l:         l,
	}, nil
}

// ApproveAsset grants the vault an allowance over the underlying asset.
// Pass MaxApproval for an infinite approval.
func (t *Token) ApproveAsset(ctx context.Context, amount *big.Int) (clients.Submission, error) {
	data, err := t.assetABI.Pack("approve", t.vaultAddr, amount)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack approve")
	}
	return t.ledger.SubmitCall(ctx, t.assetAddr, nil, data)
}

// Deposit exchanges asset tokens for vault shares.
func (t *Token) Deposit(ctx context.Context, amount *big.Int) (clients.Submission, error) {
	return t.submitVault(ctx, "deposit", amount)
}

// Withdraw burns vault shares to redeem the underlying asset.
func (t *Token) Withdraw(ctx context.Context, amount *big.Int) (clients.Submission, error) {
	return t.submitVault(ctx, "withdraw", amount)
}

// Initialize seeds an empty vault with its first deposit.
func (t *Token) Initialize(ctx context.Context, amount *big.Int) (clients.Submission, error) {
	return t.submitVault(ctx, "initialize", amount)
}

// WriteCalls locks vault collateral to mint option tokens.
func (t *Token) WriteCalls(ctx context.Context, amount *big.Int, oToken, marginPool common.Address) (clients.Submission, error) {
	data, err := t.vaultABI.Pack("writeCalls", amount, oToken, marginPool)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack writeCalls")
	}
	return t.ledger.SubmitCall(ctx, t.vaultAddr, nil, data)
}

// SellCalls sells minted option tokens to a counterparty for a premium.
func (t *Token) SellCalls(ctx context.Context, amount, premium *big.Int, otherParty common.Address) (clients.Submission, error) {
	data, err := t.vaultABI.Pack("sellCalls", amount, premium, otherParty)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack sellCalls")
	}
	return t.ledger.SubmitCall(ctx, t.vaultAddr, nil, data)
}

// SettleVault settles the expired option round and reopens the withdrawal
// window.
func (t *Token) SettleVault(ctx context.Context) (clients.Submission, error) {
	data, err := t.vaultABI.Pack("settleVault")
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack settleVault")
	}
	return t.ledger.SubmitCall(ctx, t.vaultAddr, nil, data)
}

// WrapNative sends native currency to the wrapped-token contract, minting
// the wrapped form one-to-one.
func (t *Token) WrapNative(ctx context.Context, amount *big.Int) (clients.Submission, error) {
	return t.ledger.SubmitCall(ctx, t.assetAddr, amount, nil)
}

// AssetBalance returns the caller's underlying asset balance in base units.
func (t *Token) AssetBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.readUint(ctx, t.assetAddr, t.assetABI, "balanceOf", account)
}

// State reads a full vault snapshot for account.
func (t *Token) State(ctx context.Context, account common.Address) (*domain.VaultState, error) {
	totalSupply, err := t.readUint(ctx, t.vaultAddr, t.vaultABI, "totalSupply")
	if err != nil {
		return nil, err
	}
	vaultBalance, err := t.readUint(ctx, t.assetAddr, t.assetABI, "balanceOf", t.vaultAddr)
	if err != nil {
		return nil, err
	}
	collateral, err := t.readUint(ctx, t.vaultAddr, t.vaultABI, "collateralAmount")
	if err != nil {
		return nil, err
	}
	expiry, err := t.readUint(ctx, t.vaultAddr, t.vaultABI, "windowExpiration")
	if err != nil {
		return nil, err
	}

	decimals, symbol, err := t.assetMeta(ctx)
	if err != nil {
		return nil, err
	}

	manager, err := t.readAddress(ctx, t.vaultAddr, t.vaultABI, "manager")
	if err != nil {
		return nil, err
	}

	windowExpiry := int64(-1)
	if expiry.Sign() > 0 {
		windowExpiry = expiry.Int64()
	}

	return &domain.VaultState{
		TotalSupply:            totalSupply,
		VaultBalance:           vaultBalance,
		CollateralAmount:       collateral,
		AssetDecimals:          decimals,
		AssetSymbol:            symbol,
		WithdrawalWindowExpiry: windowExpiry,
		IsManager:              manager == account,
	}, nil
}

func (t *Token) assetMeta(ctx context.Context) (uint8, string, error) {
	data, err := t.assetABI.Pack("decimals")
	if err != nil {
		return 0, "", errors.Wrap(err, "failed to pack decimals")
	}
	raw, err := t.ledger.CallContract(ctx, t.assetAddr, data)
	if err != nil {
		return 0, "", err
	}
	var decimals uint8
	if err := t.assetABI.UnpackIntoInterface(&decimals, "decimals", raw); err != nil {
		return 0, "", errors.Wrap(err, "failed to unpack decimals")
	}

	data, err = t.assetABI.Pack("symbol")
	if err != nil {
		return 0, "", errors.Wrap(err, "failed to pack symbol")
	}
	raw, err = t.ledger.CallContract(ctx, t.assetAddr, data)
	if err != nil {
		return 0, "", err
	}
	var symbol string
	if err := t.assetABI.UnpackIntoInterface(&symbol, "symbol", raw); err != nil {
		return 0, "", errors.Wrap(err, "failed to unpack symbol")
	}

	return decimals, symbol, nil
}

func (t *Token) submitVault(ctx context.Context, method string, amount *big.Int) (clients.Submission, error) {
	data, err := t.vaultABI.Pack(method, amount)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", method)
	}

	t.l.Debug("submitting vault call",
		zap.String("method", method),
		zap.String("amount", amount.String()))

	return t.ledger.SubmitCall(ctx, t.vaultAddr, nil, data)
}

func (t *Token) readUint(ctx context.Context, addr common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", method)
	}
	raw, err := t.ledger.CallContract(ctx, addr, data)
	if err != nil {
		return nil, err
	}
	out := new(big.Int)
	if err := contractABI.UnpackIntoInterface(&out, method, raw); err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s", method)
	}
	return out, nil
}

func (t *Token) readAddress(ctx context.Context, addr common.Address, contractABI abi.ABI, method string) (common.Address, error) {
	data, err := contractABI.Pack(method)
	if err != nil {
		return common.Address{}, errors.Wrapf(err, "failed to pack %s", method)
	}
	raw, err := t.ledger.CallContract(ctx, addr, data)
	if err != nil {
		return common.Address{}, err
	}
	var out common.Address
	if err := contractABI.UnpackIntoInterface(&out, method, raw); err != nil {
		return common.Address{}, errors.Wrapf(err, "failed to unpack %s", method)
	}
	return out, nil
}
