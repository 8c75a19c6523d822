package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTmp(t *testing.T) {
	tests := []struct {
		name    string
		tmp     ConfigTmp
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "full eth config",
			tmp: ConfigTmp{
				Platform:              "eth",
				RPCURL:                "http://localhost:8545",
				VaultAddress:          "0x1111111111111111111111111111111111111111",
				AssetAddress:          "0x2222222222222222222222222222222222222222",
				MarginPoolAddress:     "0x3333333333333333333333333333333333333333",
				RequiredConfirmations: 3,
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, uint64(3), cfg.RequiredConfirmations)
				assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), cfg.VaultAddress)
			},
		},
		{
			name: "confirmations default to 1",
			tmp: ConfigTmp{
				Platform:     "eth",
				RPCURL:       "http://localhost:8545",
				VaultAddress: "0x1111111111111111111111111111111111111111",
				AssetAddress: "0x2222222222222222222222222222222222222222",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, uint64(1), cfg.RequiredConfirmations)
			},
		},
		{
			name: "simulate platform needs no addresses",
			tmp:  ConfigTmp{Platform: "simulate"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "simulate", cfg.Platform)
			},
		},
		{
			name:    "eth platform requires rpc url",
			tmp:     ConfigTmp{Platform: "eth", VaultAddress: "0x1111111111111111111111111111111111111111"},
			wantErr: true,
		},
		{
			name: "invalid vault address rejected",
			tmp: ConfigTmp{
				Platform:     "eth",
				RPCURL:       "http://localhost:8545",
				VaultAddress: "not-an-address",
				AssetAddress: "0x2222222222222222222222222222222222222222",
			},
			wantErr: true,
		},
		{
			name:    "unknown platform rejected",
			tmp:     ConfigTmp{Platform: "moon"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := fromTmp(tc.tmp)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, cfg)
		})
	}
}
