package binance

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Row is one parsed trade record in its source CSV form.
type Row struct {
	ID           uint32
	Price        float32
	Qty          float32
	QuoteQty     float32
	Time         uint64
	IsBuyerMaker bool
	IsBestMatch  bool
}

// File describes one archive object and its companion checksum object, with
// the local filesystem path the archive is cached at once downloaded.
type File struct {
	Pair        string
	ObjectKey   string
	ChecksumKey string
	Path        string
}

// NewFile derives path from objectKey and dataDir, per SPEC_FULL.md §3:
// the leading "data/" segment of objectKey is rewritten to "binance/",
// prefixed by dataDir, then "~" and environment variables are expanded.
// Construction is pure; it performs no I/O.
func NewFile(dataDir, pair, objectKey, checksumKey string) File {
	dataDir = strings.TrimRight(dataDir, "/")
	rewritten := strings.Replace(objectKey, "data/", "binance/", 1)
	raw := filepath.Join(dataDir, rewritten)

	return File{
		Pair:        pair,
		ObjectKey:   objectKey,
		ChecksumKey: checksumKey,
		Path:        expandPath(os.ExpandEnv(raw)),
	}
}

// expandPath expands a leading "~" to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// IsDownloaded reports whether a file already exists at Path. It does not
// verify the checksum; that only happens as part of an actual download
// attempt.
func (f File) IsDownloaded() (bool, error) {
	_, err := os.Stat(f.Path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("check %s exists: %w", f.Path, err)
}

// Download fetches the archive and verifies it against the companion
// checksum object. It is idempotent: a second call after a successful first
// call performs zero bucket requests. On checksum mismatch the partial
// download is removed and ErrChecksumMismatch is returned; siblings are
// unaffected.
func (f File) Download(ctx context.Context, bucket *Bucket) error {
	downloaded, err := f.IsDownloaded()
	if err != nil {
		return err
	}
	if downloaded {
		return nil
	}

	if err := bucket.GetObjectToFile(ctx, f.ObjectKey, f.Path); err != nil {
		return fmt.Errorf("download %s to %s: %w", f.ObjectKey, f.Path, err)
	}

	ok, err := f.checksumMatches(ctx, bucket)
	if err != nil {
		return err
	}
	if !ok {
		if rerr := os.Remove(f.Path); rerr != nil {
			return fmt.Errorf("%w: %s (cleanup also failed: %v)", ErrChecksumMismatch, f.Path, rerr)
		}
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, f.Path)
	}

	return nil
}

func (f File) checksumMatches(ctx context.Context, bucket *Bucket) (bool, error) {
	body, err := bucket.ReadObject(ctx, f.ChecksumKey)
	if err != nil {
		return false, err
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return false, fmt.Errorf("%w: empty checksum object %s", ErrBucket, f.ChecksumKey)
	}
	want := fields[0]

	got, err := f.sha256Digest()
	if err != nil {
		return false, err
	}

	return strings.EqualFold(want, got), nil
}

// sha256Digest streams f.Path through SHA-256 using an 8 KiB buffer.
func (f File) sha256Digest() (string, error) {
	in, err := os.Open(f.Path)
	if err != nil {
		return "", fmt.Errorf("open %s for hashing: %w", f.Path, err)
	}
	defer in.Close()

	h := sha256.New()
	buf := make([]byte, 8192)
	if _, err := io.CopyBuffer(h, in, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", f.Path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Records opens the downloaded archive, which must contain exactly one CSV
// entry, and returns a RowReader that lazily streams parsed trade rows.
// The caller must call Close on the returned reader.
func (f File) Records() (*RowReader, error) {
	zr, err := zip.OpenReader(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", f.Path, err)
	}

	if len(zr.File) != 1 {
		zr.Close()
		return nil, fmt.Errorf("%w: %s contains %d entries, want 1", ErrMalformedArchive, f.Path, len(zr.File))
	}

	entry, err := zr.File[0].Open()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("open archive entry in %s: %w", f.Path, err)
	}

	cr := csv.NewReader(entry)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	return &RowReader{zip: zr, entry: entry, csv: cr}, nil
}

// RowReader lazily streams Rows from an open archive. Close releases the
// underlying zip and entry handles.
type RowReader struct {
	zip   *zip.ReadCloser
	entry io.ReadCloser
	csv   *csv.Reader
}

// Next returns the next Row, or io.EOF once the stream is exhausted.
func (r *RowReader) Next() (Row, error) {
	record, err := r.csv.Read()
	if err != nil {
		return Row{}, err
	}
	return parseRow(record)
}

// Close releases the archive entry and zip handles.
func (r *RowReader) Close() error {
	entryErr := r.entry.Close()
	zipErr := r.zip.Close()
	if entryErr != nil {
		return entryErr
	}
	return zipErr
}

func parseRow(record []string) (Row, error) {
	if len(record) < 7 {
		return Row{}, fmt.Errorf("%w: expected 7 columns, got %d", ErrParse, len(record))
	}

	id, err := strconv.ParseUint(record[0], 10, 32)
	if err != nil {
		return Row{}, fmt.Errorf("%w: id: %w", ErrParse, err)
	}
	price, err := strconv.ParseFloat(record[1], 32)
	if err != nil {
		return Row{}, fmt.Errorf("%w: price: %w", ErrParse, err)
	}
	qty, err := strconv.ParseFloat(record[2], 32)
	if err != nil {
		return Row{}, fmt.Errorf("%w: qty: %w", ErrParse, err)
	}
	quoteQty, err := strconv.ParseFloat(record[3], 32)
	if err != nil {
		return Row{}, fmt.Errorf("%w: quote_qty: %w", ErrParse, err)
	}
	tm, err := strconv.ParseUint(record[4], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("%w: time: %w", ErrParse, err)
	}
	isBuyerMaker, err := parseBool(record[5])
	if err != nil {
		return Row{}, fmt.Errorf("%w: is_buyer_maker: %w", ErrParse, err)
	}
	isBestMatch, err := parseBool(record[6])
	if err != nil {
		return Row{}, fmt.Errorf("%w: is_best_match: %w", ErrParse, err)
	}

	return Row{
		ID:           uint32(id),
		Price:        float32(price),
		Qty:          float32(qty),
		QuoteQty:     float32(quoteQty),
		Time:         tm,
		IsBuyerMaker: isBuyerMaker,
		IsBestMatch:  isBestMatch,
	}, nil
}

// parseBool accepts only the literal strings the archive is documented to
// emit: "true", "True", "false", "False".
func parseBool(s string) (bool, error) {
	switch s {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", s)
	}
}
