package clickhouse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantitiesAddIsIdentity(t *testing.T) {
	q := Quantities{Bytes: 10, Rows: 20, Transactions: 1}
	assert.Equal(t, q, q.Add(Quantities{}))
	assert.Equal(t, q, Quantities{}.Add(q))
}

func TestQuantitiesAddIsAssociative(t *testing.T) {
	a := Quantities{Bytes: 1, Rows: 2, Transactions: 3}
	b := Quantities{Bytes: 4, Rows: 5, Transactions: 6}
	c := Quantities{Bytes: 7, Rows: 8, Transactions: 9}

	assert.Equal(t, a.Add(b).Add(c), a.Add(b.Add(c)))
}

func TestQuantitiesAddSaturates(t *testing.T) {
	a := Quantities{Bytes: math.MaxUint64 - 1, Rows: math.MaxUint64, Transactions: 1}
	b := Quantities{Bytes: 5, Rows: 5, Transactions: 1}

	got := a.Add(b)
	assert.Equal(t, uint64(math.MaxUint64), got.Bytes)
	assert.Equal(t, uint64(math.MaxUint64), got.Rows)
	assert.Equal(t, uint64(2), got.Transactions)
}
