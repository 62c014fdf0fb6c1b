//go:build integration

package clickhouse

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/require"

	"binanceingest/internal/binance"
	"binanceingest/internal/testutil"
)

func seedArchive(t *testing.T, client *minio.Client, ctx context.Context, bucketName string) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("BTCUSDC-trades-2024-01-01.csv")
	require.NoError(t, err)
	_, err = entry.Write([]byte(
		"1,42000.50,0.01,420.005,1700000000000,true,False\n" +
			"2,42001.00,0.02,840.020,1700000001000,False,true\n",
	))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	sum := sha256.Sum256(buf.Bytes())
	checksumBody := hex.EncodeToString(sum[:]) + "  BTCUSDC-trades-2024-01-01.zip\n"

	objectKey := "data/spot/daily/trades/BTCUSDC/BTCUSDC-trades-2024-01-01.zip"
	_, err = client.PutObject(ctx, bucketName, objectKey, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{})
	require.NoError(t, err)
	_, err = client.PutObject(ctx, bucketName, objectKey+".CHECKSUM", bytes.NewReader([]byte(checksumBody)), int64(len(checksumBody)), minio.PutObjectOptions{})
	require.NoError(t, err)
}

func TestIndexEndToEnd(t *testing.T) {
	ctx := context.Background()

	mc, err := testutil.StartMinioContainer(ctx)
	require.NoError(t, err)
	defer mc.Stop(ctx)

	ch, err := testutil.StartClickHouseContainer(ctx)
	require.NoError(t, err)
	defer ch.Stop(ctx)

	client, err := minio.New(mc.Endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(testutil.MinioUser, testutil.MinioPassword, ""),
	})
	require.NoError(t, err)

	const bucketName = "data-binance-vision"
	require.NoError(t, client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}))
	seedArchive(t, client, ctx, bucketName)

	// The fixture talks to a local MinIO container rather than the real
	// Binance Vision endpoint, so the bucket client must be pointed there;
	// credentials also need to be real rather than anonymous.
	bucket, err := binance.NewBucket(bucketName,
		binance.WithEndpoint(mc.Endpoint, false),
		binance.WithCredentials(testutil.MinioUser, testutil.MinioPassword),
	)
	require.NoError(t, err)

	downloader, err := binance.NewDownloader("trades", binance.Coordinate{
		Asset: binance.AssetSpot, Cadence: binance.CadenceDaily, DataType: binance.DataTypeTrades,
	}, bucket, t.TempDir())
	require.NoError(t, err)

	conn, err := NewClient(ctx, ch.Config, "test_ingest")
	require.NoError(t, err)
	defer conn.Close()

	table := NewTradesTable(conn, "test_ingest", "trades", downloader)
	require.NoError(t, table.Index(ctx))
}
