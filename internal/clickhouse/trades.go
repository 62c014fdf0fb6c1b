package clickhouse

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"binanceingest/internal/binance"
	"binanceingest/internal/logger"
)

// indexFileConcurrency bounds how many archives are indexed into ClickHouse
// concurrently once downloaded.
const indexFileConcurrency = 10

// commitHeartbeat forces an inserter commit every this-many writes,
// independent of the inserter's own size/period triggers, so a stalled
// archive doesn't hold an unbounded batch open.
const commitHeartbeat = 8192

// TradesRow is one trade in its destination ClickHouse schema. Side is
// derived from the source row's IsBuyerMaker flag (true in the source means
// the resting order was a buy, i.e. the taker sold) and Notional carries the
// source row's QuoteQty.
type TradesRow struct {
	Dt       uint64
	ID       uint32
	Pair     string
	Side     bool
	Price    float32
	Qty      float32
	Notional float32
}

// NewTradesRow maps a parsed archive row into its destination form.
func NewTradesRow(pair string, row binance.Row) TradesRow {
	return TradesRow{
		Dt:       row.Time,
		ID:       row.ID,
		Pair:     pair,
		Side:     !row.IsBuyerMaker,
		Price:    row.Price,
		Qty:      row.Qty,
		Notional: row.QuoteQty,
	}
}

// TradesTable indexes Binance trade archives into one ClickHouse table,
// recording per-file provenance into a shared TradesIndexLogTable.
type TradesTable struct {
	conn       driver.Conn
	database   string
	name       string
	downloader *binance.Downloader
	indexLog   *TradesIndexLogTable

	createOnce sync.Once
	createErr  error
}

// NewTradesTable binds a table named name in database to downloader, the
// source of pairs and files to index.
func NewTradesTable(conn driver.Conn, database, name string, downloader *binance.Downloader) *TradesTable {
	database = strings.ToUpper(database)
	name = strings.ToUpper(name)
	return &TradesTable{
		conn:       conn,
		database:   database,
		name:       name,
		downloader: downloader,
		indexLog:   NewTradesIndexLogTable(conn, database),
	}
}

// Create issues CREATE TABLE IF NOT EXISTS exactly once per table instance.
func (t *TradesTable) Create(ctx context.Context) error {
	t.createOnce.Do(func() {
		t.createErr = t.conn.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s.%s (
	dt       UInt64  COMMENT 'trade timestamp, ms since epoch',
	id       UInt32  COMMENT 'exchange trade id',
	pair     String  COMMENT 'traded symbol, e.g. BTCUSDC',
	side     Bool    COMMENT 'true if the taker was the buyer (long), i.e. NOT is_buyer_maker',
	price    Float32 COMMENT 'execution price',
	qty      Float32 COMMENT 'base asset quantity',
	notional Float32 COMMENT 'quote asset quantity'
)
ENGINE = ReplacingMergeTree
PRIMARY KEY (dt, id, pair)
ORDER BY (dt, id, pair)
`, t.database, t.name))
	})
	return t.createErr
}

// Index runs a full ingestion pass: ensure the table exists, enumerate
// pairs and files via the bound Downloader, download with bounded
// concurrency, and index each downloaded file with bounded concurrency. A
// per-file indexing failure (ParseError, InsertError, ...) is logged and
// does not abort sibling files in flight, matching spec.md §7's
// propagation policy; Index itself reports an error only if a fatal,
// whole-run step failed (table creation, pair/file enumeration) or if
// every downloaded file failed to index. It logs a summary iff at least
// one row was written.
func (t *TradesTable) Index(ctx context.Context) error {
	runID := uuid.NewString()
	ctx = logger.WithFields(ctx, zap.String("run_id", runID), zap.String("table", t.name))
	log := logger.GetLogger(ctx)

	if err := t.Create(ctx); err != nil {
		return fmt.Errorf("ensure table %s exists: %w", t.name, err)
	}

	pairs, err := t.downloader.GetPairs(ctx)
	if err != nil {
		return fmt.Errorf("enumerate pairs: %w", err)
	}

	files, err := t.downloader.GetFiles(ctx, pairs)
	if err != nil {
		return fmt.Errorf("enumerate files: %w", err)
	}

	downloaded := files.DownloadStream(ctx, t.downloader.Bucket(), t.downloader.DataDir(), t.downloader.DownloadConcurrency())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexFileConcurrency)

	var statsMu sync.Mutex
	var totals Quantities
	var succeeded, failed int

	for file := range downloaded {
		file := file
		g.Go(func() error {
			stats, err := t.IndexFile(gctx, file)

			statsMu.Lock()
			defer statsMu.Unlock()
			if err != nil {
				log.Error("could not index file", zap.String("pair", file.Pair), zap.String("path", file.Path), zap.Error(err))
				failed++
				return nil
			}
			totals = totals.Add(stats)
			succeeded++
			return nil
		})
	}

	// g.Wait() never returns an error: IndexFile failures are per-file and
	// logged above rather than propagated, so no sibling's gctx is ever
	// cancelled by another file's failure.
	_ = g.Wait()

	if succeeded == 0 && failed > 0 {
		return fmt.Errorf("index files: all %d downloaded files failed to index", failed)
	}

	if totals.Rows > 0 {
		log.Info("inserter summary",
			zap.Uint64("bytes", totals.Bytes),
			zap.Uint64("rows", totals.Rows),
			zap.Uint64("transactions", totals.Transactions),
			zap.Int("files_succeeded", succeeded),
			zap.Int("files_failed", failed))
	}

	return nil
}

// IndexFile streams one archive's trade rows into the table through a
// batching inserter, tracks the id/time range it covers, and emits a
// provenance row into the index log once the stream is exhausted.
func (t *TradesTable) IndexFile(ctx context.Context, file binance.File) (Quantities, error) {
	records, err := file.Records()
	if err != nil {
		return Quantities{}, fmt.Errorf("open records for %s: %w", file.Path, err)
	}
	defer records.Close()

	inserter, err := newBatchInserter(ctx, t.conn, fmt.Sprintf("%s.%s", t.database, t.name), defaultMaxRows, defaultFlushPeriod)
	if err != nil {
		return Quantities{}, err
	}

	var (
		startID uint32 = ^uint32(0)
		endID   uint32
		startDt uint64 = ^uint64(0)
		endDt   uint64
		numRows uint64
		txCount uint64
	)

	for i := uint64(0); ; i++ {
		row, err := records.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Quantities{}, fmt.Errorf("parse row %d of %s: %w", i, file.Path, err)
		}

		if row.ID < startID {
			startID = row.ID
		}
		if row.ID > endID {
			endID = row.ID
		}
		if row.Time < startDt {
			startDt = row.Time
		}
		if row.Time > endDt {
			endDt = row.Time
		}

		tr := NewTradesRow(file.Pair, row)
		if err := inserter.Write(ctx, tr.Dt, tr.ID, tr.Pair, tr.Side, tr.Price, tr.Qty, tr.Notional); err != nil {
			return Quantities{}, fmt.Errorf("write row %d of %s: %w", i, file.Path, err)
		}
		numRows++

		if numRows%commitHeartbeat == 0 {
			if err := inserter.Commit(ctx); err != nil {
				return Quantities{}, fmt.Errorf("commit heartbeat for %s: %w", file.Path, err)
			}
			txCount++
		}
	}

	if err := inserter.End(ctx); err != nil {
		return Quantities{}, fmt.Errorf("end inserter for %s: %w", file.Path, err)
	}
	txCount++

	if numRows == 0 {
		logger.GetLogger(ctx).Warn("file contributed zero rows", zap.String("path", file.Path), zap.String("pair", file.Pair))
	}

	if err := t.indexLog.IndexRow(ctx, FileIndexLogRow{
		Filename:      path.Base(file.ObjectKey),
		StartID:       startID,
		EndID:         endID,
		StartPeriodDt: startDt,
		EndPeriodDt:   endDt,
		Database:      t.database,
		Table:         t.name,
		NumRows:       numRows,
		IndexDt:       time.Now().UnixMilli(),
	}); err != nil {
		return Quantities{}, fmt.Errorf("record provenance for %s: %w", file.Path, err)
	}

	return Quantities{Bytes: 0, Rows: numRows, Transactions: txCount}, nil
}
