package engine

import (
	"math/rand/v2"

	"github.com/joshharrison/loomcast/internal/sampler"
)

// scratch is per-goroutine working memory. Nothing in it is shared.
type scratch struct {
	start    []int
	finish   []int
	path     []int
	critical []int // iterations each node spent on the driving chain
}

func newScratch(nodes int) *scratch {
	return &scratch{
		start:    make([]int, nodes),
		finish:   make([]int, nodes),
		critical: make([]int, nodes),
	}
}

// iteration runs simulation step i. It may only write sample slots for i.
type iteration func(i int, rng sampler.Rand, sc *scratch) error

type chunkResult struct {
	sc      *scratch
	errIter int
	err     error
}

// runIterations executes cfg.Iterations steps and returns the scratch areas
// used, for reduction. The error returned is the one of the lowest failing
// iteration, whatever the scheduling.
func runIterations(cfg Config, nodes int, step iteration) ([]*scratch, error) {
	if cfg.Rand != nil {
		sc := newScratch(nodes)
		for i := 0; i < cfg.Iterations; i++ {
			if err := step(i, cfg.Rand, sc); err != nil {
				return nil, err
			}
		}
		return []*scratch{sc}, nil
	}

	if cfg.Workers <= 1 {
		res := runChunk(cfg.Seed, 0, cfg.Iterations, nodes, step)
		return []*scratch{res.sc}, res.err
	}

	chunks := chunkBounds(cfg.Iterations, cfg.Workers)
	done := make(chan chunkResult, len(chunks))
	sem := make(chan struct{}, cfg.Workers)

	for _, c := range chunks {
		go func(lo, hi int) {
			sem <- struct{}{}        // acquire semaphore
			defer func() { <-sem }() // release semaphore
			done <- runChunk(cfg.Seed, lo, hi, nodes, step)
		}(c[0], c[1])
	}

	scratches := make([]*scratch, 0, len(chunks))
	var first *chunkResult
	for range chunks {
		res := <-done
		if res.err != nil {
			if first == nil || res.errIter < first.errIter {
				first = &res
			}
			continue
		}
		scratches = append(scratches, res.sc)
	}
	if first != nil {
		return nil, first.err
	}
	return scratches, nil
}

// runChunk runs iterations [lo, hi), each on stream i of seed.
func runChunk(seed uint64, lo, hi, nodes int, step iteration) chunkResult {
	sc := newScratch(nodes)
	pcg := rand.NewPCG(seed, 0)
	rng := rand.New(pcg)
	for i := lo; i < hi; i++ {
		pcg.Seed(seed, uint64(i))
		if err := step(i, rng, sc); err != nil {
			return chunkResult{sc: sc, errIter: i, err: err}
		}
	}
	return chunkResult{sc: sc}
}

// chunkBounds splits n iterations into roughly four chunks per worker.
func chunkBounds(n, workers int) [][2]int {
	size := max(1, (n+workers*4-1)/(workers*4))
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
