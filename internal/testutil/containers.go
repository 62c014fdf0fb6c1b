//go:build integration

// Package testutil provides testcontainer helpers for integration tests
// that exercise real MinIO and ClickHouse wire protocols.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/modules/minio"

	bhouse "binanceingest/internal/clickhouse"
)

const (
	// MinioUser and MinioPassword are test-only credentials used to seed the
	// object store. The engine's Bucket connects anonymously by default and
	// uses them only when a test passes them through WithCredentials.
	MinioUser     = "minioadmin"
	MinioPassword = "minioadmin"

	// ClickHouseDatabase is the database the test container is seeded with.
	ClickHouseDatabase = "default"

	// StartupTimeout bounds how long a container is given to report healthy.
	StartupTimeout = 120 * time.Second
)

// MinioContainer wraps a running MinIO testcontainer and the connection
// details needed to construct a binance.Bucket against it.
type MinioContainer struct {
	container *minio.MinioContainer
	Endpoint  string
}

// StartMinioContainer starts a MinIO container seeded with no buckets; the
// caller is responsible for creating whatever bucket layout the test needs.
func StartMinioContainer(ctx context.Context) (*MinioContainer, error) {
	container, err := minio.Run(ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		minio.WithUsername(MinioUser),
		minio.WithPassword(MinioPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("start minio container: %w", err)
	}

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get minio connection string: %w", err)
	}

	return &MinioContainer{container: container, Endpoint: endpoint}, nil
}

// Stop terminates the MinIO container.
func (m *MinioContainer) Stop(ctx context.Context) error {
	if m.container == nil {
		return nil
	}
	return m.container.Terminate(ctx)
}

// ClickHouseContainer wraps a running ClickHouse testcontainer and the
// connection details needed to construct a clickhouse.Config against it.
type ClickHouseContainer struct {
	container *clickhouse.ClickHouseContainer
	Config    bhouse.Config
}

// StartClickHouseContainer starts a ClickHouse container with the default
// database and credentials.
func StartClickHouseContainer(ctx context.Context) (*ClickHouseContainer, error) {
	container, err := clickhouse.Run(ctx, "clickhouse/clickhouse-server:24.1",
		clickhouse.WithDatabase(ClickHouseDatabase),
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
	)
	if err != nil {
		return nil, fmt.Errorf("start clickhouse container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get clickhouse host: %w", err)
	}
	port, err := container.MappedPort(ctx, "9000/tcp")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get clickhouse native port: %w", err)
	}

	return &ClickHouseContainer{
		container: container,
		Config: bhouse.Config{
			URL:      fmt.Sprintf("%s:%s", host, port.Port()),
			User:     "default",
			Password: "",
		},
	}, nil
}

// Stop terminates the ClickHouse container.
func (c *ClickHouseContainer) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	return c.container.Terminate(ctx)
}
