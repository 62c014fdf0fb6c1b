package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"binanceingest/internal/logger"
)

// DefaultPairListingConcurrency is the default number of concurrent
// Pair.GetFiles calls driven by Downloader.GetFiles.
const DefaultPairListingConcurrency = 100

// PairFilter narrows the pairs a Downloader will enumerate. All three
// fields are optional; see Accepts for the exact decision table.
type PairFilter struct {
	Excluded   []string
	StartsWith []string
	EndsWith   []string
}

// Accepts implements SPEC_FULL.md §4.5's four-step filter decision table:
//  1. if Excluded is set and any entry is a substring of name, reject.
//  2. if StartsWith is set and any entry is a prefix of name, accept.
//  3. if EndsWith is set and any entry is a suffix of name, accept.
//  4. accept iff no positive filter (StartsWith/EndsWith) was supplied.
func (f PairFilter) Accepts(name string) bool {
	for _, excl := range f.Excluded {
		if strings.Contains(name, excl) {
			return false
		}
	}

	hasPositiveFilter := len(f.StartsWith) > 0 || len(f.EndsWith) > 0

	for _, prefix := range f.StartsWith {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	for _, suffix := range f.EndsWith {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return !hasPositiveFilter
}

// Downloader enumerates the pairs and files for one (asset, cadence,
// data-type) coordinate, subject to an optional PairFilter.
type Downloader struct {
	Name       string
	Coordinate Coordinate
	Filter     PairFilter

	bucket  *Bucket
	dataDir string

	pairListingConcurrency int
	downloadConcurrency    int
}

// NewDownloader constructs a Downloader for name and coordinate, failing
// fast if the coordinate names an asset or data type this engine does not
// implement. dataDir is the local cache root files are downloaded under.
func NewDownloader(name string, coordinate Coordinate, bucket *Bucket, dataDir string) (*Downloader, error) {
	if err := coordinate.validate(); err != nil {
		return nil, err
	}

	return &Downloader{
		Name:                   name,
		Coordinate:             coordinate,
		bucket:                 bucket,
		dataDir:                dataDir,
		pairListingConcurrency: DefaultPairListingConcurrency,
		downloadConcurrency:    DefaultDownloadConcurrency,
	}, nil
}

// WithExcludedPairs returns a copy of d with pair names matching any of
// excluded substrings rejected.
func (d Downloader) WithExcludedPairs(excluded ...string) *Downloader {
	d.Filter.Excluded = excluded
	return &d
}

// WithPairsStartingWith returns a copy of d accepting pair names with any
// of the given prefixes (absent other matching filters).
func (d Downloader) WithPairsStartingWith(prefixes ...string) *Downloader {
	d.Filter.StartsWith = prefixes
	return &d
}

// WithPairsEndingWith returns a copy of d accepting pair names with any of
// the given suffixes (absent other matching filters).
func (d Downloader) WithPairsEndingWith(suffixes ...string) *Downloader {
	d.Filter.EndsWith = suffixes
	return &d
}

// WithPairListingConcurrency overrides the default pair-listing fan-out
// width (100).
func (d Downloader) WithPairListingConcurrency(n int) *Downloader {
	d.pairListingConcurrency = n
	return &d
}

// WithDownloadConcurrency overrides the default per-file download fan-out
// width (50).
func (d Downloader) WithDownloadConcurrency(n int) *Downloader {
	d.downloadConcurrency = n
	return &d
}

// GetPairs lists the common prefixes under the coordinate's bucket path and
// applies the configured PairFilter.
func (d *Downloader) GetPairs(ctx context.Context) ([]Pair, error) {
	path := d.Coordinate.Prefix()
	log := logger.GetLogger(ctx)
	log.Info("fetching pairs", zap.String("downloader", d.Name), zap.String("path", path))

	all, err := d.bucket.ListPairs(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("downloader %s: %w", d.Name, err)
	}

	pairs := all[:0]
	for _, p := range all {
		if d.Filter.Accepts(p.Name) {
			pairs = append(pairs, p)
		}
	}

	log.Info("found pairs to download",
		zap.String("downloader", d.Name), zap.Int("count", len(pairs)))
	return pairs, nil
}

// GetFiles lists files for every pair with a bounded fan-out
// (pairListingConcurrency) and merges the results into a single
// FileCollection. A failed listing for any one pair fails the whole
// operation, since listing is expected to be cheap and complete.
func (d *Downloader) GetFiles(ctx context.Context, pairs []Pair) (FileCollection, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.pairListingConcurrency)

	collections := make([]FileCollection, len(pairs))
	var errsMu sync.Mutex
	var errs error

	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			files, err := pair.GetFiles(gctx, d.bucket)
			if err != nil {
				errsMu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("pair %s: %w", pair.Name, err))
				errsMu.Unlock()
				return err
			}
			collections[i] = files
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return FileCollection{}, fmt.Errorf("downloader %s: %w", d.Name, errs)
	}

	merged := NewFileCollection("", nil)
	for _, c := range collections {
		merged = merged.Append(c)
	}

	logger.GetLogger(ctx).Info("discovered files",
		zap.String("downloader", d.Name),
		zap.Int("files", merged.Len()),
		zap.Int("pairs", len(pairs)))

	return merged, nil
}

// DownloadConcurrency returns the configured per-file download fan-out
// width, used by callers that drive FileCollection.DownloadStream directly.
func (d *Downloader) DownloadConcurrency() int { return d.downloadConcurrency }

// Bucket returns the object store this downloader reads from, used by
// callers that drive FileCollection.DownloadStream directly.
func (d *Downloader) Bucket() *Bucket { return d.bucket }

// DataDir returns the local cache root files are downloaded under.
func (d *Downloader) DataDir() string { return d.dataDir }
