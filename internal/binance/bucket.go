package binance

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// bucketRegion is fixed per SPEC_FULL.md §4.1; Binance Vision is served
// from ap-northeast-1 regardless of the requester's location.
const bucketRegion = "ap-northeast-1"

// Bucket is a thin, anonymous, path-style adapter over the Binance Vision
// object store. It is cheap to construct and safe to share.
type Bucket struct {
	mc     *minio.Client
	bucket string
}

// BucketOption customizes NewBucket's client construction.
type BucketOption func(*minio.Options, *string)

// WithEndpoint points the bucket client at a non-default endpoint, for
// tests that run against a local object store instead of the real Binance
// Vision host.
func WithEndpoint(endpoint string, secure bool) BucketOption {
	return func(opts *minio.Options, ep *string) {
		*ep = endpoint
		opts.Secure = secure
	}
}

// WithCredentials replaces the default anonymous credentials, for tests
// that run against a local object store requiring real auth.
func WithCredentials(accessKey, secretKey string) BucketOption {
	return func(opts *minio.Options, _ *string) {
		opts.Creds = credentials.NewStaticV4(accessKey, secretKey, "")
	}
}

// NewBucket constructs a Bucket bound to bucketName using anonymous
// credentials and path-style addressing, matching the Rust s3 crate's
// `Bucket::new(...).with_path_style()` with `Credentials::anonymous()`.
func NewBucket(bucketName string, opts ...BucketOption) (*Bucket, error) {
	endpoint := "s3." + bucketRegion + ".amazonaws.com"
	options := &minio.Options{
		Creds:        credentials.NewStaticV4("", "", ""),
		Secure:       true,
		Region:       bucketRegion,
		BucketLookup: minio.BucketLookupPath,
	}
	for _, opt := range opts {
		opt(options, &endpoint)
	}

	mc, err := minio.New(endpoint, options)
	if err != nil {
		return nil, fmt.Errorf("%w: create minio client: %w", ErrBucket, err)
	}

	return &Bucket{mc: mc, bucket: bucketName}, nil
}

// Object is a minimal content listing entry: just the bucket key.
type Object struct {
	Key string
}

// ListPairs lists the common prefixes (one path segment deep) under path,
// deriving a Pair per prefix. path need not end in "/"; a trailing slash is
// appended if missing.
func (b *Bucket) ListPairs(ctx context.Context, path string) ([]Pair, error) {
	path = withTrailingSlash(path)

	var pairs []Pair
	for obj := range b.mc.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    path,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list pairs under %s: %w", ErrBucket, path, obj.Err)
		}
		// minio-go surfaces delimited "directory" entries as ObjectInfo
		// values carrying only a Key (no Size/ETag); these are the
		// common-prefix entries equivalent to the Rust client's
		// `common_prefixes`.
		if obj.Key == "" || !isCommonPrefix(obj) {
			continue
		}
		name := strings.TrimSuffix(obj.Key, "/")
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		pairs = append(pairs, Pair{Prefix: obj.Key, Name: name})
	}
	return pairs, nil
}

// isCommonPrefix reports whether obj represents a delimited "directory"
// entry rather than a real object: minio-go emits these with no ETag and
// zero size, and their key ends in "/".
func isCommonPrefix(obj minio.ObjectInfo) bool {
	return obj.ETag == "" && obj.Size == 0 && strings.HasSuffix(obj.Key, "/")
}

// ListObjects lists the content objects (not common prefixes) directly
// under path.
func (b *Bucket) ListObjects(ctx context.Context, path string) ([]Object, error) {
	path = withTrailingSlash(path)

	var objects []Object
	for obj := range b.mc.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    path,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list objects under %s: %w", ErrBucket, path, obj.Err)
		}
		if isCommonPrefix(obj) {
			continue
		}
		objects = append(objects, Object{Key: obj.Key})
	}
	return objects, nil
}

// GetObjectToFile downloads key to filePath using exclusive-create
// semantics: it fails if filePath already exists, preventing concurrent
// downloaders from racing on the same target.
func (b *Bucket) GetObjectToFile(ctx context.Context, key, filePath string) error {
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create parent directory for %s: %w", ErrBucket, filePath, err)
		}
	}

	out, err := os.OpenFile(filePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrBucket, filePath, err)
	}
	defer out.Close()

	obj, err := b.mc.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("%w: get object %s: %w", ErrBucket, key, err)
	}
	defer obj.Close()

	if _, err := io.Copy(out, obj); err != nil {
		return fmt.Errorf("%w: write object %s to %s: %w", ErrBucket, key, filePath, err)
	}
	return nil
}

// ReadObject fetches key's full body as UTF-8 text.
func (b *Bucket) ReadObject(ctx context.Context, key string) (string, error) {
	obj, err := b.mc.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: get object %s: %w", ErrBucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("%w: read object %s: %w", ErrBucket, key, err)
	}
	return string(data), nil
}

func withTrailingSlash(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
