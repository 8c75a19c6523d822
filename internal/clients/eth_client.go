package clients

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultPollInterval = 3 * time.Second
	// eventBuffer keeps slow observers from blocking the receipt poller.
	eventBuffer = 16
)

// EthLedger implements Ledger over an Ethereum JSON-RPC endpoint.
type EthLedger struct {
	client       *ethclient.Client
	chainID      *big.Int
	key          *ecdsa.PrivateKey
	from         common.Address
	pollInterval time.Duration
	l            *zap.Logger
}

// DialEthLedger connects to the RPC endpoint and prepares a signing ledger
// client for the account derived from privKeyHex.
func DialEthLedger(ctx context.Context, rpcURL, privKeyHex string, l *zap.Logger) (*EthLedger, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial ledger rpc %s", rpcURL)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain id")
	}

	key, err := crypto.HexToECDSA(privKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}

	return &EthLedger{
		client:       client,
		chainID:      chainID,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		pollInterval: defaultPollInterval,
		l:            l,
	}, nil
}

// From returns the signing account address.
func (e *EthLedger) From() common.Address {
	return e.from
}

// GetBalance returns the native-currency balance of account in wei.
func (e *EthLedger) GetBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := e.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get balance for %s", account.Hex())
	}
	return bal, nil
}

// CallContract executes a read-only call against the contract at to.
func (e *EthLedger) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := e.client.CallContract(ctx, ethereum.CallMsg{From: e.from, To: &to, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "contract call to %s failed", to.Hex())
	}
	return out, nil
}

// SubmitCall signs and broadcasts a transaction to the contract at to and
// starts watching it. Nonce and gas are resolved at submission time, so a
// call deferred behind an approval picks up the post-approval account state.
func (e *EthLedger) SubmitCall(ctx context.Context, to common.Address, value *big.Int, data []byte) (Submission, error) {
	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pending nonce")
	}

	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}

	gas, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  e.from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gas estimation failed")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return nil, errors.Wrap(err, "failed to broadcast transaction")
	}

	e.l.Info("transaction broadcast",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce))

	sub := &ethSubmission{events: make(chan Event, eventBuffer)}
	go e.watch(ctx, signed.Hash(), sub)

	return sub, nil
}

type ethSubmission struct {
	events chan Event
}

func (s *ethSubmission) Events() <-chan Event {
	return s.events
}

// watch polls for the transaction receipt and emits the hash followed by a
// non-decreasing stream of confirmation counts until ctx is cancelled.
func (e *EthLedger) watch(ctx context.Context, hash common.Hash, sub *ethSubmission) {
	defer close(sub.events)

	if !e.emit(ctx, sub, Event{Hash: hash}) {
		return
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	var lastReported uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			continue
		}
		if err != nil {
			e.emit(ctx, sub, Event{Hash: hash, Err: errors.Wrap(err, "receipt lookup failed")})
			return
		}

		if receipt.Status == types.ReceiptStatusFailed {
			e.emit(ctx, sub, Event{Hash: hash, Err: errors.New("execution reverted: transaction failed on chain")})
			return
		}

		head, err := e.client.BlockNumber(ctx)
		if err != nil {
			e.emit(ctx, sub, Event{Hash: hash, Err: errors.Wrap(err, "head lookup failed")})
			return
		}

		mined := receipt.BlockNumber.Uint64()
		if head < mined {
			continue
		}

		confs := head - mined + 1
		if confs > lastReported {
			lastReported = confs
			if !e.emit(ctx, sub, Event{Hash: hash, Confirmations: confs}) {
				return
			}
		}
	}
}

func (e *EthLedger) emit(ctx context.Context, sub *ethSubmission, ev Event) bool {
	select {
	case sub.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
