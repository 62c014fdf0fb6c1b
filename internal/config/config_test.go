package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "complete config is valid",
			cfg: Config{
				Data:       DataConfig{Dir: "/tmp/data"},
				Binance:    BinanceConfig{BucketName: "data.binance.vision"},
				ClickHouse: ClickHouseConfig{URL: "localhost:9000", User: "default"},
			},
			wantErr: false,
		},
		{
			name: "missing data dir fails schema validation",
			cfg: Config{
				Binance:    BinanceConfig{BucketName: "data.binance.vision"},
				ClickHouse: ClickHouseConfig{URL: "localhost:9000"},
			},
			wantErr: true,
		},
		{
			name: "missing bucket name fails schema validation",
			cfg: Config{
				Data:       DataConfig{Dir: "/tmp/data"},
				ClickHouse: ClickHouseConfig{URL: "localhost:9000"},
			},
			wantErr: true,
		},
		{
			name: "missing clickhouse url fails schema validation",
			cfg: Config{
				Data:    DataConfig{Dir: "/tmp/data"},
				Binance: BinanceConfig{BucketName: "data.binance.vision"},
			},
			wantErr: true,
		},
		{
			name: "empty password is legal, it falls back to CLICKHOUSE_PASSWORD",
			cfg: Config{
				Data:       DataConfig{Dir: "/tmp/data"},
				Binance:    BinanceConfig{BucketName: "data.binance.vision"},
				ClickHouse: ClickHouseConfig{URL: "localhost:9000", Password: ""},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
