package binance

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"binanceingest/internal/logger"
)

// DefaultDownloadConcurrency is the default number of concurrent
// File.Download operations driven by DownloadStream.
const DefaultDownloadConcurrency = 50

// FileCollection is an ordered sequence of Files. Order is not semantically
// meaningful but is preserved for deterministic tests; duplicates are
// permitted if the caller supplies them.
type FileCollection struct {
	dataDir string
	files   []File
}

// NewFileCollection wraps files as-is, performing no deduplication.
func NewFileCollection(dataDir string, files []File) FileCollection {
	return FileCollection{dataDir: dataDir, files: files}
}

// Len returns the number of files in the collection.
func (c FileCollection) Len() int { return len(c.files) }

// Files returns the underlying slice. Callers must not mutate it.
func (c FileCollection) Files() []File { return c.files }

// Append merges other's files after c's, preserving relative order.
func (c FileCollection) Append(other FileCollection) FileCollection {
	merged := make([]File, 0, len(c.files)+len(other.files))
	merged = append(merged, c.files...)
	merged = append(merged, other.files...)
	return FileCollection{dataDir: c.dataDir, files: merged}
}

// FileCollectionFromObjects groups a flat object listing by key prefix,
// pairing each archive object (any key not ending in checksumSuffix) with
// its companion checksum object (the same key plus checksumSuffix). Every
// group missing either member fails construction.
func FileCollectionFromObjects(pair string, objects []Object, checksumSuffix string) (FileCollection, error) {
	type group struct {
		object, checksum *Object
	}
	grouped := make(map[string]*group)
	order := make([]string, 0, len(objects))

	for i := range objects {
		obj := objects[i]
		isChecksum := strings.HasSuffix(obj.Key, checksumSuffix)
		key := obj.Key
		if isChecksum {
			key = strings.TrimSuffix(obj.Key, checksumSuffix)
		}

		g, ok := grouped[key]
		if !ok {
			g = &group{}
			grouped[key] = g
			order = append(order, key)
		}
		if isChecksum {
			g.checksum = &obj
		} else {
			g.object = &obj
		}
	}

	files := make([]File, 0, len(order))
	for _, key := range order {
		g := grouped[key]
		if g.object == nil {
			return FileCollection{}, fmt.Errorf("missing archive for checksum %s", key+checksumSuffix)
		}
		if g.checksum == nil {
			return FileCollection{}, fmt.Errorf("missing checksum for %s", g.object.Key)
		}
		files = append(files, File{
			Pair:        pair,
			ObjectKey:   g.object.Key,
			ChecksumKey: g.checksum.Key,
		})
	}

	return FileCollection{files: files}, nil
}

// downloadResult pairs a File with the error (if any) its download attempt
// produced, used internally to stream completions without aborting
// siblings on a per-file failure.
type downloadResult struct {
	file File
	err  error
}

// DownloadStream downloads every file in the collection with bounded
// concurrency, resolving each File's Path against dataDir first, and
// returns a channel of files that downloaded successfully, delivered in
// completion order. Files whose download fails are logged and dropped; a
// failure never aborts sibling downloads. The returned channel is closed
// once every download has completed or ctx is done.
func (c FileCollection) DownloadStream(ctx context.Context, bucket *Bucket, dataDir string, concurrency int) <-chan File {
	if concurrency <= 0 {
		concurrency = DefaultDownloadConcurrency
	}

	out := make(chan File)
	results := make(chan downloadResult)

	go func() {
		defer close(results)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, f := range c.files {
			f := NewFile(dataDir, f.Pair, f.ObjectKey, f.ChecksumKey)
			g.Go(func() error {
				err := f.Download(gctx, bucket)
				select {
				case results <- downloadResult{file: f, err: err}:
				case <-ctx.Done():
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	go func() {
		defer close(out)
		log := logger.GetLogger(ctx)
		for r := range results {
			if r.err != nil {
				log.Error("could not download file",
					zap.String("pair", r.file.Pair),
					zap.String("object_key", r.file.ObjectKey),
					zap.Error(r.err))
				continue
			}
			select {
			case out <- r.file:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
