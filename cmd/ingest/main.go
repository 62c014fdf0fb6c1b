package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"binanceingest/internal/binance"
	"binanceingest/internal/clickhouse"
	"binanceingest/internal/config"
	"binanceingest/internal/logger"
)

func main() {
	app := &cli.App{
		Name:    "binanceingest",
		Usage:   "Materialise the Binance Vision spot trade archive into ClickHouse",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to config.yaml",
				Value:   "config.yaml",
				EnvVars: []string{"BINANCEINGEST_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "asset",
				Usage:   "Asset class to ingest",
				Value:   string(binance.AssetSpot),
				EnvVars: []string{"BINANCEINGEST_ASSET"},
			},
			&cli.StringFlag{
				Name:    "cadence",
				Usage:   "Archive cadence to ingest",
				Value:   string(binance.CadenceDaily),
				EnvVars: []string{"BINANCEINGEST_CADENCE"},
			},
			&cli.StringFlag{
				Name:    "data-type",
				Usage:   "Data type to ingest",
				Value:   string(binance.DataTypeTrades),
				EnvVars: []string{"BINANCEINGEST_DATA_TYPE"},
			},
			&cli.StringSliceFlag{
				Name:    "exclude-pair",
				Usage:   "Reject pairs containing this substring (repeatable)",
				EnvVars: []string{"BINANCEINGEST_EXCLUDE_PAIR"},
			},
			&cli.StringSliceFlag{
				Name:    "pair-starts-with",
				Usage:   "Accept pairs with this prefix (repeatable)",
				EnvVars: []string{"BINANCEINGEST_PAIR_STARTS_WITH"},
			},
			&cli.StringSliceFlag{
				Name:    "pair-ends-with",
				Usage:   "Accept pairs with this suffix (repeatable)",
				EnvVars: []string{"BINANCEINGEST_PAIR_ENDS_WITH"},
			},
			&cli.StringFlag{
				Name:    "database",
				Usage:   "Destination ClickHouse database",
				Value:   "binance",
				EnvVars: []string{"BINANCEINGEST_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "table",
				Usage:   "Destination ClickHouse table",
				Value:   "trades",
				EnvVars: []string{"BINANCEINGEST_TABLE"},
			},
		},
		Action: runIngest,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runIngest(c *cli.Context) error {
	log := logger.NewLoggerFromEnv()
	ctx := logger.WithLogger(c.Context, log)
	defer logger.Sync(ctx)

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	coordinate := binance.Coordinate{
		Asset:    binance.Asset(c.String("asset")),
		Cadence:  binance.Cadence(c.String("cadence")),
		DataType: binance.DataType(c.String("data-type")),
	}

	bucket, err := binance.NewBucket(cfg.Binance.BucketName)
	if err != nil {
		return fmt.Errorf("construct bucket client: %w", err)
	}

	downloader, err := binance.NewDownloader(c.String("table"), coordinate, bucket, cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("construct downloader: %w", err)
	}
	downloader = downloader.
		WithExcludedPairs(c.StringSlice("exclude-pair")...).
		WithPairsStartingWith(c.StringSlice("pair-starts-with")...).
		WithPairsEndingWith(c.StringSlice("pair-ends-with")...)

	conn, err := clickhouse.NewClient(ctx, clickhouse.Config{
		URL:      cfg.ClickHouse.URL,
		User:     cfg.ClickHouse.User,
		Password: cfg.ClickHouse.Password,
	}, c.String("database"))
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	table := clickhouse.NewTradesTable(conn, c.String("database"), c.String("table"), downloader)

	if err := table.Index(ctx); err != nil {
		log.Error("ingestion run failed", zap.Error(err))
		return err
	}

	return nil
}

