package clickhouse

import (
	"context"
	"fmt"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// tradesIndexLogTableName is fixed; the log table lives in the same database
// as the TradesTable writing to it, so every TradesTable in one database
// shares one provenance log.
const tradesIndexLogTableName = "TRADES_INDEX_LOG"

// FileIndexLogRow records the outcome of indexing one archive file: the
// row-id and timestamp range it covered, how many rows it contributed, and
// when the indexing run happened.
type FileIndexLogRow struct {
	Filename      string
	StartID       uint32
	EndID         uint32
	StartPeriodDt uint64
	EndPeriodDt   uint64
	Database      string
	Table         string
	NumRows       uint64
	IndexDt       int64
}

// TradesIndexLogTable is the shared provenance audit table. Table creation
// is idempotent but only needs to run once per process per database; a
// sync.Once avoids every concurrent IndexFile call racing to issue the same
// CREATE TABLE IF NOT EXISTS statement.
type TradesIndexLogTable struct {
	conn     driver.Conn
	database string
	name     string

	createOnce sync.Once
	createErr  error
}

// NewTradesIndexLogTable binds a provenance log table to conn and database.
func NewTradesIndexLogTable(conn driver.Conn, database string) *TradesIndexLogTable {
	return &TradesIndexLogTable{conn: conn, database: database, name: tradesIndexLogTableName}
}

// Create issues CREATE TABLE IF NOT EXISTS exactly once per table instance;
// subsequent calls reuse the first call's result.
func (t *TradesIndexLogTable) Create(ctx context.Context) error {
	t.createOnce.Do(func() {
		t.createErr = t.conn.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.%s (
	filename         String COMMENT 'archive file name (basename of its object key)',
	start_id         UInt32 COMMENT 'lowest trade id observed in the file',
	end_id           UInt32 COMMENT 'highest trade id observed in the file',
	start_period_dt  UInt64 COMMENT 'lowest trade timestamp observed, ms',
	end_period_dt    UInt64 COMMENT 'highest trade timestamp observed, ms',
	database         String COMMENT 'destination database name',
	table            String COMMENT 'destination table name',
	num_rows         UInt64 COMMENT 'rows written from this file',
	index_dt         Int64 COMMENT 'when this indexing run completed, ms'
)
ENGINE = ReplacingMergeTree(index_dt)
PRIMARY KEY (filename, start_id, table)
ORDER BY (filename, start_id, table)
`, t.database, t.name))
	})
	return t.createErr
}

// IndexRow ensures the table exists and inserts one provenance row.
func (t *TradesIndexLogTable) IndexRow(ctx context.Context, row FileIndexLogRow) error {
	if err := t.Create(ctx); err != nil {
		return fmt.Errorf("ensure %s exists: %w", t.name, err)
	}

	batch, err := t.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.%s", t.database, t.name))
	if err != nil {
		return fmt.Errorf("prepare batch for %s: %w", t.name, err)
	}

	if err := batch.Append(
		row.Filename,
		row.StartID,
		row.EndID,
		row.StartPeriodDt,
		row.EndPeriodDt,
		row.Database,
		row.Table,
		row.NumRows,
		row.IndexDt,
	); err != nil {
		return fmt.Errorf("append index log row for %s: %w", row.Filename, err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send index log row for %s: %w", row.Filename, err)
	}
	return nil
}
