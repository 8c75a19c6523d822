// Package setup provides the terminal configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/Web3Tester2023/swap3/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the result to
// config.gen.yaml.
func RunTUI() error {
	var (
		platform         string
		rpcURL           string
		vaultAddress     string
		assetAddress     string
		marginAddress    string
		confirmationsStr string
		listenAddr       string
		confirm          bool
	)

	// defaults
	rpcURL = "http://127.0.0.1:8545"
	confirmationsStr = "1"
	listenAddr = "127.0.0.1:8877"

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SWAP3 CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point the client at your vault.\n"))

	fmt.Println(stepStyle.Render("STEP 1: LEDGER"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose the ledger backend").
				Options(
					huh.NewOption("Ethereum JSON-RPC", "eth"),
					huh.NewOption("Simulation (no chain)", "simulate"),
				).
				Value(&platform),
		),
	).Run()
	if err != nil {
		return err
	}

	if platform == "eth" {
		fmt.Print("\033[H\033[2J")
		fmt.Println(headerStyle.Render("SWAP3 CONFIG WIZARD"))
		fmt.Println(stepStyle.Render("STEP 2: NETWORK"))
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("RPC Endpoint").
					Description("HTTP or WebSocket JSON-RPC URL").
					Value(&rpcURL).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("rpc url cannot be empty")
						}
						return nil
					}),
				huh.NewInput().
					Title("Vault Token Address").
					Value(&vaultAddress).
					Validate(validateAddress),
				huh.NewInput().
					Title("Asset Token Address").
					Description("The wrapped asset the vault custodies, e.g. WETH").
					Value(&assetAddress).
					Validate(validateAddress),
				huh.NewInput().
					Title("Margin Pool Address").
					Description("Optional, needed only for manager write-call actions").
					Value(&marginAddress).
					Validate(func(s string) error {
						if s == "" {
							return nil
						}
						return validateAddress(s)
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SWAP3 CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: CONFIRMATIONS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Required Confirmations").
				Description("Depth an approval must reach before its dependent action is sent").
				Value(&confirmationsStr).
				Validate(validateConfirmations),
			huh.NewInput().
				Title("Status Stream Address").
				Description("Local SSE endpoint for the UI, empty to disable").
				Value(&listenAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SWAP3 CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Platform: %s\nRPC: %s\nVault: %s\nAsset: %s\nConfirmations: %s\n",
		platform, rpcURL, vaultAddress, assetAddress, confirmationsStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	confirmations, _ := strconv.ParseUint(confirmationsStr, 10, 64)
	cfgTmp := config.ConfigTmp{
		Platform:              platform,
		RPCURL:                rpcURL,
		VaultAddress:          vaultAddress,
		AssetAddress:          assetAddress,
		MarginPoolAddress:     marginAddress,
		RequiredConfirmations: confirmations,
		ListenAddr:            listenAddr,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting client...", filename)))
	time.Sleep(1500 * time.Millisecond)
	return nil
}

func validateAddress(s string) error {
	if !common.IsHexAddress(s) {
		return fmt.Errorf("must be a 0x-prefixed 20-byte hex address")
	}
	return nil
}

func validateConfirmations(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n == 0 {
		return fmt.Errorf("must be at least 1")
	}
	return nil
}
