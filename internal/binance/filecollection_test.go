package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCollectionFromObjects(t *testing.T) {
	t.Run("pairs archives with checksums", func(t *testing.T) {
		objects := []Object{
			{Key: "data/spot/daily/trades/BTCUSDC/f1.zip"},
			{Key: "data/spot/daily/trades/BTCUSDC/f1.zip.CHECKSUM"},
			{Key: "data/spot/daily/trades/BTCUSDC/f2.zip.CHECKSUM"},
			{Key: "data/spot/daily/trades/BTCUSDC/f2.zip"},
		}

		fc, err := FileCollectionFromObjects("BTCUSDC", objects, ".CHECKSUM")
		require.NoError(t, err)
		require.Equal(t, 2, fc.Len())
		assert.Equal(t, "data/spot/daily/trades/BTCUSDC/f1.zip", fc.Files()[0].ObjectKey)
		assert.Equal(t, "data/spot/daily/trades/BTCUSDC/f1.zip.CHECKSUM", fc.Files()[0].ChecksumKey)
		assert.Equal(t, "data/spot/daily/trades/BTCUSDC/f2.zip", fc.Files()[1].ObjectKey)
	})

	t.Run("missing checksum fails", func(t *testing.T) {
		objects := []Object{{Key: "data/spot/daily/trades/BTCUSDC/f1.zip"}}
		_, err := FileCollectionFromObjects("BTCUSDC", objects, ".CHECKSUM")
		assert.Error(t, err)
	})

	t.Run("missing archive fails", func(t *testing.T) {
		objects := []Object{{Key: "data/spot/daily/trades/BTCUSDC/f1.zip.CHECKSUM"}}
		_, err := FileCollectionFromObjects("BTCUSDC", objects, ".CHECKSUM")
		assert.Error(t, err)
	})
}

func TestFileCollectionAppend(t *testing.T) {
	a := NewFileCollection("", []File{{ObjectKey: "a"}})
	b := NewFileCollection("", []File{{ObjectKey: "b"}, {ObjectKey: "c"}})

	merged := a.Append(b)
	require.Equal(t, 3, merged.Len())
	assert.Equal(t, []string{"a", "b", "c"}, []string{
		merged.Files()[0].ObjectKey, merged.Files()[1].ObjectKey, merged.Files()[2].ObjectKey,
	})
}

func TestPairFilterAccepts(t *testing.T) {
	tests := []struct {
		name   string
		filter PairFilter
		pair   string
		want   bool
	}{
		{
			name:   "no filters accepts everything",
			filter: PairFilter{},
			pair:   "BTCUSDC",
			want:   true,
		},
		{
			name:   "excluded substring always rejects",
			filter: PairFilter{Excluded: []string{"USDC"}, StartsWith: []string{"BTC"}},
			pair:   "BTCUSDC",
			want:   false,
		},
		{
			name:   "matching prefix accepts",
			filter: PairFilter{StartsWith: []string{"BTC"}},
			pair:   "BTCUSDT",
			want:   true,
		},
		{
			name:   "non-matching prefix with positive filter rejects",
			filter: PairFilter{StartsWith: []string{"BTC"}},
			pair:   "ETHUSDT",
			want:   false,
		},
		{
			name:   "matching suffix accepts",
			filter: PairFilter{EndsWith: []string{"USDT"}},
			pair:   "ETHUSDT",
			want:   true,
		},
		{
			name:   "non-matching suffix with positive filter rejects",
			filter: PairFilter{EndsWith: []string{"USDT"}},
			pair:   "ETHUSDC",
			want:   false,
		},
		{
			name:   "prefix or suffix, suffix matches",
			filter: PairFilter{StartsWith: []string{"BTC"}, EndsWith: []string{"USDT"}},
			pair:   "ETHUSDT",
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Accepts(tt.pair))
		})
	}
}
