// Package stats aggregates simulated outcomes: percentiles, moments and
// histogram bins. Every caller goes through Percentile so there is one rule.
package stats

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Ranks are the percentile ranks reported for every sample set.
var Ranks = []int{0, 50, 85, 100}

// Index returns the position of percentile p in a sorted set of n samples:
// ceil(p/100*n) - 1, clamped to [0, n-1].
func Index(n int, p float64) int {
	if n <= 0 {
		return 0
	}
	i := int(math.Ceil(p/100*float64(n))) - 1
	return min(max(i, 0), n-1)
}

// Percentile returns the p-th percentile of an ascending slice.
// It panics on an empty slice.
func Percentile[T cmp.Ordered](sorted []T, p float64) T {
	return sorted[Index(len(sorted), p)]
}

// Row is one percentile rank and its value.
type Row[T cmp.Ordered] struct {
	Rank  int `json:"rank" yaml:"rank"`
	Value T   `json:"value" yaml:"value"`
}

// Table maps ranks to values, ordered by rank.
type Table[T cmp.Ordered] []Row[T]

// Summarize sorts a copy of samples and evaluates every rank.
// Ranks default to Ranks.
func Summarize[T cmp.Ordered](samples []T, ranks ...int) Table[T] {
	if len(samples) == 0 {
		return nil
	}
	if len(ranks) == 0 {
		ranks = Ranks
	}
	sorted := Sorted(samples)
	t := make(Table[T], len(ranks))
	for i, r := range ranks {
		t[i] = Row[T]{Rank: r, Value: Percentile(sorted, float64(r))}
	}
	return t
}

// Value returns the value recorded for rank.
func (t Table[T]) Value(rank int) (T, bool) {
	for _, r := range t {
		if r.Rank == rank {
			return r.Value, true
		}
	}
	var zero T
	return zero, false
}

// Sorted returns an ascending copy of s.
func Sorted[T cmp.Ordered](s []T) []T {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

// Floats converts integer samples for the gonum routines.
func Floats(samples []int) []float64 {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v)
	}
	return out
}

// Mean is the arithmetic mean; zero for an empty series.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// MeanStdDev returns the mean and sample standard deviation.
// The deviation is zero for fewer than two samples.
func MeanStdDev(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// Bin counts how many samples took one value.
type Bin struct {
	Value      int     `json:"value" yaml:"value"`
	Count      int     `json:"count" yaml:"count"`
	Cumulative float64 `json:"cumulative" yaml:"cumulative"` // fraction of samples <= Value
}

// Histogram groups samples by value, ascending.
func Histogram(samples []int) []Bin {
	if len(samples) == 0 {
		return nil
	}
	sorted := Sorted(samples)
	var bins []Bin
	for i, v := range sorted {
		if len(bins) == 0 || bins[len(bins)-1].Value != v {
			bins = append(bins, Bin{Value: v})
		}
		b := &bins[len(bins)-1]
		b.Count++
		b.Cumulative = float64(i+1) / float64(len(sorted))
	}
	return bins
}
