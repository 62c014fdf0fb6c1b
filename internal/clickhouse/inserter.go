package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// defaultMaxRows is the row count that triggers an automatic flush,
// matching the original inserter's with_max_rows(500_000).
const defaultMaxRows = 500_000

// defaultFlushPeriod is the wall-clock interval that triggers an automatic
// flush even if max rows has not been reached.
const defaultFlushPeriod = 15 * time.Second

// batchInserter buffers rows and flushes them to ClickHouse on whichever
// comes first: maxRows buffered, or period elapsed since the last flush.
// clickhouse-go/v2 has no native equivalent of clickhouse-rs's Inserter;
// this reproduces its write/commit/end contract around PrepareBatch.
type batchInserter struct {
	conn  driver.Conn
	table string

	maxRows int
	period  time.Duration

	batch     driver.Batch
	buffered  int
	lastFlush time.Time
}

// newBatchInserter opens the first batch against table.
func newBatchInserter(ctx context.Context, conn driver.Conn, table string, maxRows int, period time.Duration) (*batchInserter, error) {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	if period <= 0 {
		period = defaultFlushPeriod
	}

	ins := &batchInserter{
		conn:    conn,
		table:   table,
		maxRows: maxRows,
		period:  period,
	}
	if err := ins.openBatch(ctx); err != nil {
		return nil, err
	}
	return ins, nil
}

func (ins *batchInserter) openBatch(ctx context.Context) error {
	batch, err := ins.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", ins.table))
	if err != nil {
		return fmt.Errorf("prepare batch for %s: %w", ins.table, err)
	}
	ins.batch = batch
	ins.lastFlush = time.Now()
	return nil
}

// Write appends one row's values to the open batch, committing first if
// maxRows or period has been exceeded.
func (ins *batchInserter) Write(ctx context.Context, values ...any) error {
	if ins.buffered >= ins.maxRows || time.Since(ins.lastFlush) >= ins.period {
		if err := ins.Commit(ctx); err != nil {
			return err
		}
	}

	if err := ins.batch.Append(values...); err != nil {
		return fmt.Errorf("append row to %s: %w", ins.table, err)
	}
	ins.buffered++
	return nil
}

// Commit sends the currently buffered rows, if any, and opens a fresh
// batch so Write can continue immediately.
func (ins *batchInserter) Commit(ctx context.Context) error {
	if ins.buffered == 0 {
		return nil
	}
	if err := ins.batch.Send(); err != nil {
		return fmt.Errorf("send batch to %s: %w", ins.table, err)
	}
	ins.buffered = 0
	return ins.openBatch(ctx)
}

// End flushes any remaining buffered rows and releases the inserter. No
// further Write calls are valid afterward.
func (ins *batchInserter) End(ctx context.Context) error {
	if ins.buffered == 0 {
		return ins.batch.Abort()
	}
	if err := ins.batch.Send(); err != nil {
		return fmt.Errorf("send batch to %s: %w", ins.table, err)
	}
	ins.buffered = 0
	return nil
}
