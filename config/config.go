// Package config loads client configuration from a yaml file or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const defaultConfirmations = 1

// Config resolved client configuration.
type Config struct {
	// Platform ledger backend: "eth" for a JSON-RPC endpoint, "simulate"
	// for the in-memory ledger.
	Platform string
	// RPCURL JSON-RPC endpoint, required for the eth platform.
	RPCURL string
	// VaultAddress vault token contract.
	VaultAddress common.Address
	// AssetAddress underlying wrapped-asset contract.
	AssetAddress common.Address
	// MarginPoolAddress margin pool used by write-call operations.
	MarginPoolAddress common.Address
	// RequiredConfirmations confirmation depth before a dependent action
	// may be submitted and an operation counts as done.
	RequiredConfirmations uint64
	// ListenAddr address of the local status stream server, empty disables it.
	ListenAddr string
}

// ConfigTmp raw yaml shape before address validation.
type ConfigTmp struct {
	Platform              string `yaml:"platform"`
	RPCURL                string `yaml:"rpc_url"`
	VaultAddress          string `yaml:"vault_address"`
	AssetAddress          string `yaml:"asset_address"`
	MarginPoolAddress     string `yaml:"margin_pool_address,omitempty"`
	RequiredConfirmations uint64 `yaml:"required_confirmations,omitempty"`
	ListenAddr            string `yaml:"listen_addr,omitempty"`
}

// Get loads configuration from --config yaml when provided, otherwise from
// CLI flags.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "eth", "ledger platform: eth or simulate")
	rpcURL := flag.String("rpc", "", "ledger JSON-RPC endpoint")
	vaultAddr := flag.String("vault", "", "vault token contract address")
	assetAddr := flag.String("asset", "", "underlying asset contract address")
	marginAddr := flag.String("marginpool", "", "margin pool contract address")
	confirmations := flag.Uint64("confirmations", defaultConfirmations, "required confirmation depth")
	listenAddr := flag.String("listen", "", "status stream listen address, e.g. 127.0.0.1:8877")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	return fromTmp(ConfigTmp{
		Platform:              *platform,
		RPCURL:                *rpcURL,
		VaultAddress:          *vaultAddr,
		AssetAddress:          *assetAddr,
		MarginPoolAddress:     *marginAddr,
		RequiredConfirmations: *confirmations,
		ListenAddr:            *listenAddr,
	})
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, err
	}
	return fromTmp(tmp)
}

func fromTmp(tmp ConfigTmp) (Config, error) {
	cfg := Config{
		Platform:              tmp.Platform,
		RPCURL:                tmp.RPCURL,
		RequiredConfirmations: tmp.RequiredConfirmations,
		ListenAddr:            tmp.ListenAddr,
	}

	if cfg.Platform == "" {
		cfg.Platform = "eth"
	}
	if cfg.Platform != "eth" && cfg.Platform != "simulate" {
		return Config{}, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
	if cfg.RequiredConfirmations == 0 {
		cfg.RequiredConfirmations = defaultConfirmations
	}

	if cfg.Platform == "eth" {
		if cfg.RPCURL == "" {
			return Config{}, fmt.Errorf("rpc url is required for the eth platform")
		}
		var err error
		if cfg.VaultAddress, err = parseAddr("vault_address", tmp.VaultAddress); err != nil {
			return Config{}, err
		}
		if cfg.AssetAddress, err = parseAddr("asset_address", tmp.AssetAddress); err != nil {
			return Config{}, err
		}
		if tmp.MarginPoolAddress != "" {
			if cfg.MarginPoolAddress, err = parseAddr("margin_pool_address", tmp.MarginPoolAddress); err != nil {
				return Config{}, err
			}
		}
	}

	return cfg, nil
}

func parseAddr(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s: %q", field, value)
	}
	return common.HexToAddress(value), nil
}
