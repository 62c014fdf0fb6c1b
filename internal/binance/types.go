// Package binance implements the discovery, download, and parsing pipeline
// for Binance Vision's public spot trade archive.
package binance

import "fmt"

// Asset is the traded asset class. Only Spot is implemented; Futures and
// Option are accepted by the type system so callers can express intent, but
// constructing a Downloader for them fails fast.
type Asset string

const (
	AssetSpot    Asset = "spot"
	AssetFutures Asset = "futures"
	AssetOption  Asset = "option"
)

// Values returns all known Asset variants.
func (Asset) Values() []string {
	return []string{string(AssetSpot), string(AssetFutures), string(AssetOption)}
}

func (a Asset) String() string { return string(a) }

// implemented reports whether this engine has a working implementation for a.
func (a Asset) implemented() bool { return a == AssetSpot }

// Cadence is the archive granularity.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceMonthly Cadence = "monthly"
)

// Values returns all known Cadence variants.
func (Cadence) Values() []string {
	return []string{string(CadenceDaily), string(CadenceMonthly)}
}

func (c Cadence) String() string { return string(c) }

// DataType is the kind of market data archived. Only Trades is implemented.
type DataType string

const (
	DataTypeAggTrades DataType = "aggtrades"
	DataTypeKLines    DataType = "klines"
	DataTypeTrades    DataType = "trades"
)

// Values returns all known DataType variants.
func (DataType) Values() []string {
	return []string{string(DataTypeAggTrades), string(DataTypeKLines), string(DataTypeTrades)}
}

func (d DataType) String() string { return string(d) }

func (d DataType) implemented() bool { return d == DataTypeTrades }

// Coordinate identifies one archive series: an asset class, an archive
// cadence, and a data type, e.g. (spot, daily, trades).
type Coordinate struct {
	Asset    Asset
	Cadence  Cadence
	DataType DataType
}

// validate fails fast for coordinates this engine cannot ingest, matching
// the "UnsupportedVariant is fatal at construction" rule.
func (c Coordinate) validate() error {
	if !c.Asset.implemented() {
		return fmt.Errorf("%w: asset %q not implemented", ErrUnsupportedVariant, c.Asset)
	}
	if !c.DataType.implemented() {
		return fmt.Errorf("%w: data type %q not implemented", ErrUnsupportedVariant, c.DataType)
	}
	return nil
}

// Prefix returns the bucket key prefix for this coordinate, e.g.
// "data/spot/daily/trades/".
func (c Coordinate) Prefix() string {
	return fmt.Sprintf("data/%s/%s/%s/", c.Asset, c.Cadence, c.DataType)
}
