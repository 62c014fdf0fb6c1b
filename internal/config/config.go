// Package config loads the process-wide, immutable Config snapshot from
// config.yaml, with an optional .env overlay and environment variable
// fallbacks.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DataConfig describes where downloaded archives are cached on disk.
type DataConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// BinanceConfig names the object store bucket Binance Vision is served from.
type BinanceConfig struct {
	BucketName string `yaml:"bucket_name" json:"bucket_name"`
}

// ClickHouseConfig holds ClickHouse connection parameters. Password falls
// back to the CLICKHOUSE_PASSWORD environment variable when empty.
type ClickHouseConfig struct {
	URL      string `yaml:"url" json:"url"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
}

// Config is the immutable, process-wide configuration snapshot.
type Config struct {
	Data       DataConfig       `yaml:"data" json:"data"`
	Binance    BinanceConfig    `yaml:"binance" json:"binance"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse" json:"clickhouse"`
}

// Load reads and parses path (typically "config.yaml"). It first loads a
// ".env" file from the working directory, if present, into the process
// environment so that the CLICKHOUSE_PASSWORD fallback (and the later $VAR
// expansion of data.dir when file paths are derived) see it; a missing .env
// file is not an error. Load itself does not expand variables.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.ClickHouse.Password == "" {
		cfg.ClickHouse.Password = os.Getenv("CLICKHOUSE_PASSWORD")
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validate %s: %w", path, err)
	}

	return cfg, nil
}

// configSchema requires the three non-optional fields this engine cannot
// start without: the local cache directory, the bucket name, and the
// ClickHouse URL. Password and user are left unconstrained (the password
// falls back to CLICKHOUSE_PASSWORD, so an empty value in the document is
// legal).
const configSchema = `{
	"type": "object",
	"required": ["data", "binance", "clickhouse"],
	"properties": {
		"data": {
			"type": "object",
			"required": ["dir"],
			"properties": {"dir": {"type": "string", "minLength": 1}}
		},
		"binance": {
			"type": "object",
			"required": ["bucket_name"],
			"properties": {"bucket_name": {"type": "string", "minLength": 1}}
		},
		"clickhouse": {
			"type": "object",
			"required": ["url"],
			"properties": {"url": {"type": "string", "minLength": 1}}
		}
	}
}`

var (
	schemaLoader     gojsonschema.JSONLoader
	schemaLoaderOnce sync.Once
)

// getSchemaLoader returns a cached loader for the embedded config schema.
func getSchemaLoader() gojsonschema.JSONLoader {
	schemaLoaderOnce.Do(func() {
		schemaLoader = gojsonschema.NewStringLoader(configSchema)
	})
	return schemaLoader
}

// validate checks c against configSchema, surfacing every missing or
// malformed field in one error rather than failing on the first.
func (c Config) validate() error {
	document, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config for validation: %w", err)
	}

	result, err := gojsonschema.Validate(getSchemaLoader(), gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}

	if !result.Valid() {
		var errMsg string
		for i, desc := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += fmt.Sprintf("%s: %s", desc.Field(), desc.Description())
		}
		return fmt.Errorf("config schema validation failed: %s", errMsg)
	}

	return nil
}
