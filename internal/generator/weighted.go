package generator

import "math/rand"

type Weighted[T any] struct {
	Value  T
	Weight int
}

// Table is a discrete distribution given as (value, weight) pairs.
type Table[T any] []Weighted[T]

// Pick draws one value with probability weight/sum(weights). The table must
// have a positive total weight.
func (t Table[T]) Pick(rng *rand.Rand) T {
	total := 0
	for _, w := range t {
		total += w.Weight
	}
	n := rng.Intn(total)
	for _, w := range t {
		if n < w.Weight {
			return w.Value
		}
		n -= w.Weight
	}
	return t[len(t)-1].Value
}

// Values lists the table values in order.
func (t Table[T]) Values() []T {
	out := make([]T, len(t))
	for i, w := range t {
		out[i] = w.Value
	}
	return out
}

// uniformInt draws from the closed range [lo, hi].
func uniformInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func choose[T any](rng *rand.Rand, values []T) T {
	return values[rng.Intn(len(values))]
}
