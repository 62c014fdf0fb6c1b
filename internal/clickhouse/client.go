// Package clickhouse persists parsed Binance trade rows into ClickHouse,
// with a batching inserter and per-file provenance logging.
package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	clickhouseDriver "github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config holds the connection parameters needed to reach a ClickHouse
// server over the native protocol.
type Config struct {
	URL      string
	User     string
	Password string
}

// NewClient connects to database, creating it first if it does not exist.
// database is uppercased to match the convention used throughout this
// package's DDL.
func NewClient(ctx context.Context, cfg Config, database string) (clickhouseDriver.Conn, error) {
	database = strings.ToUpper(database)

	if err := createDatabase(ctx, cfg, database); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.URL},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.User,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection to %s: %w", database, err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse at %s: %w", cfg.URL, err)
	}
	return conn, nil
}

// createDatabase connects without selecting a database and issues
// CREATE DATABASE IF NOT EXISTS; it is the first step of NewClient's
// create-then-connect client construction.
func createDatabase(ctx context.Context, cfg Config, database string) error {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.URL},
		Auth: clickhouse.Auth{
			Username: cfg.User,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return fmt.Errorf("open clickhouse bootstrap connection: %w", err)
	}
	defer conn.Close()

	if err := conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)); err != nil {
		return fmt.Errorf("create database %s: %w", database, err)
	}
	return nil
}
