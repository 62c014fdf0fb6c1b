package clickhouse

import "math"

// Quantities is a monoid accumulator over three independent saturating
// uint64 counters: bytes transferred, rows inserted, transactions
// committed. Its identity is the zero value; Add is associative and
// commutative, so partial sums from concurrent IndexFile calls can be
// combined in any order.
type Quantities struct {
	Bytes        uint64
	Rows         uint64
	Transactions uint64
}

// Add returns the elementwise sum of q and other, clamped to
// math.MaxUint64 on overflow rather than wrapping.
func (q Quantities) Add(other Quantities) Quantities {
	return Quantities{
		Bytes:        saturatingAdd(q.Bytes, other.Bytes),
		Rows:         saturatingAdd(q.Rows, other.Rows),
		Transactions: saturatingAdd(q.Transactions, other.Transactions),
	}
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}
