// Command swap3 runs the covered-call vault client. It validates amounts,
// orders approval-dependent transactions and streams operation status to a
// local web UI.
//
// Usage:
//
//	swap3 setup                  (interactive configuration wizard)
//	swap3 --config config.yaml
//	swap3 (uses CLI arguments)
//
// Required environment variables:
//
//	For the eth platform: SWAP3_PRIVATE_KEY (hex-encoded signing key)
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Web3Tester2023/swap3/config"
	"github.com/Web3Tester2023/swap3/internal/clients"
	"github.com/Web3Tester2023/swap3/internal/domain"
	"github.com/Web3Tester2023/swap3/internal/services/dispatcher"
	"github.com/Web3Tester2023/swap3/internal/setup"
	"github.com/Web3Tester2023/swap3/internal/vault"
	"github.com/Web3Tester2023/swap3/internal/web"
)

const simConfirmationDelay = 700 * time.Millisecond

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", "config.gen.yaml"}
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	disp, err := buildDispatcher(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build dispatcher", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.ListenAddr != "" {
		srv := web.NewServer(cfg.ListenAddr)
		disp.OnStatus(srv.Publish)
		g.Go(func() error {
			return srv.Start(ctx)
		})
		logger.Info("status stream started", zap.String("addr", cfg.ListenAddr))
	}

	g.Go(func() error {
		defer stop()
		return actionLoop(ctx, disp)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("client stopped", zap.Error(err))
	}
}

func buildDispatcher(ctx context.Context, cfg config.Config, logger *zap.Logger) (*dispatcher.Dispatcher, error) {
	switch cfg.Platform {
	case "eth":
		keyHex := os.Getenv("SWAP3_PRIVATE_KEY")
		if keyHex == "" {
			return nil, fmt.Errorf("SWAP3_PRIVATE_KEY environment variable must be set")
		}

		ledger, err := clients.DialEthLedger(ctx, cfg.RPCURL, keyHex, logger)
		if err != nil {
			return nil, err
		}

		token, err := vault.NewToken(ledger, cfg.VaultAddress, cfg.AssetAddress, logger)
		if err != nil {
			return nil, err
		}

		account := ledger.From()
		state := func(ctx context.Context) (*domain.VaultState, error) {
			return token.State(ctx, account)
		}
		return dispatcher.New(token, ledger, state, account, cfg.RequiredConfirmations, logger), nil

	case "simulate":
		ledger := clients.NewSimLedger(cfg.RequiredConfirmations, simConfirmationDelay, logger)
		account := common.HexToAddress("0x00000000000000000000000000000000000000aa")
		ledger.Fund(account, new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)))

		token, err := vault.NewToken(ledger, cfg.VaultAddress, cfg.AssetAddress, logger)
		if err != nil {
			return nil, err
		}

		binding := &simBinding{Token: token, ledger: ledger, account: account}
		return dispatcher.New(binding, ledger, simState(account), account, cfg.RequiredConfirmations, logger), nil

	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}

// simBinding reuses the vault calldata encoding but answers balance and state
// reads locally, since the simulated ledger has no contracts to query.
type simBinding struct {
	*vault.Token
	ledger  *clients.SimLedger
	account common.Address
}

func (b *simBinding) AssetBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return b.ledger.GetBalance(ctx, account)
}

func simState(account common.Address) dispatcher.StateProvider {
	return func(context.Context) (*domain.VaultState, error) {
		return &domain.VaultState{
			TotalSupply:            big.NewInt(0),
			VaultBalance:           big.NewInt(0),
			CollateralAmount:       big.NewInt(0),
			AssetDecimals:          18,
			AssetSymbol:            "WETH",
			WithdrawalWindowExpiry: time.Now().Add(-time.Hour).Unix(),
			IsManager:              true,
		}, nil
	}
}

func actionLoop(ctx context.Context, disp *dispatcher.Dispatcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var action string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Vault Action").
					Options(
						huh.NewOption("Deposit", "deposit"),
						huh.NewOption("Withdraw", "withdraw"),
						huh.NewOption("Initialize Vault", "initialize"),
						huh.NewOption("Write Calls (manager)", "writecall"),
						huh.NewOption("Sell Calls (manager)", "sellcall"),
						huh.NewOption("Settle Vault (manager)", "settle"),
						huh.NewOption("Wrap ETH", "wrap"),
						huh.NewOption("Show Status", "status"),
						huh.NewOption("Dismiss Result", "dismiss"),
						huh.NewOption("Quit", "quit"),
					).
					Value(&action),
			),
		).Run()
		if err != nil {
			return err
		}

		switch action {
		case "quit":
			return nil
		case "status":
			printStatus(disp.Status())
			continue
		case "dismiss":
			disp.Dismiss()
			continue
		}

		if err := runAction(ctx, disp, action); err != nil {
			fmt.Printf("✗ %v\n", err)
			continue
		}

		waitForOutcome(ctx, disp)
	}
}

func runAction(ctx context.Context, disp *dispatcher.Dispatcher, action string) error {
	switch action {
	case "deposit":
		amount, err := promptAmount("Deposit amount")
		if err != nil {
			return err
		}
		return disp.Deposit(ctx, amount)

	case "withdraw":
		amount, err := promptAmount("Withdraw amount")
		if err != nil {
			return err
		}
		return disp.Withdraw(ctx, amount)

	case "initialize":
		amount, err := promptAmount("Initial deposit amount")
		if err != nil {
			return err
		}
		return disp.Initialize(ctx, amount)

	case "writecall":
		var amount, oToken, marginPool string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Collateral amount").Value(&amount),
				huh.NewInput().Title("oToken address").Value(&oToken),
				huh.NewInput().Title("Margin pool address").Value(&marginPool),
			),
		).Run()
		if err != nil {
			return err
		}
		return disp.WriteCall(ctx, amount, oToken, marginPool)

	case "sellcall":
		var contracts, premium, counterparty string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Number of contracts").Value(&contracts),
				huh.NewInput().Title("Premium amount").Value(&premium),
				huh.NewInput().Title("Counterparty address").Value(&counterparty),
			),
		).Run()
		if err != nil {
			return err
		}
		return disp.SellCall(ctx, contracts, premium, counterparty)

	case "settle":
		return disp.SettleVault(ctx)

	case "wrap":
		amount, err := promptAmount("Amount of ETH to wrap")
		if err != nil {
			return err
		}
		return disp.WrapNative(ctx, amount)
	}

	return fmt.Errorf("unknown action %q", action)
}

func promptAmount(title string) (string, error) {
	var amount string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title(title).Value(&amount),
		),
	).Run()
	return amount, err
}

// waitForOutcome polls until the in-flight operation reaches a terminal state,
// echoing status transitions to the terminal.
func waitForOutcome(ctx context.Context, disp *dispatcher.Dispatcher) {
	var last domain.Status
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s := disp.Status()
		if s != last {
			printStatus(s)
			last = s
		}
		if !disp.Busy() {
			disp.Dismiss()
			return
		}
	}
}

func printStatus(s domain.Status) {
	if s.Header == "" {
		fmt.Println("no operation in flight")
		return
	}
	mark := "…"
	switch s.Icon {
	case domain.IconConfirmed:
		mark = "✓"
	case domain.IconError:
		mark = "✗"
	}
	line := fmt.Sprintf("%s %s: %s", mark, s.Header, s.Message)
	if s.TxHash != "" {
		line += " (" + s.TxHash + ")"
	}
	fmt.Println(line)
}
