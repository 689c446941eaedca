package block

import (
	"golang.org/x/sync/errgroup"

	"github.com/xtding233/fastbinomial/internal/bitsource"
)

// generateParallel runs blocks concurrently. Substreams are forked up front,
// in block order, so the result does not depend on scheduling.
func (e *Engine) generateParallel(ns []int64, probs Probabilities, src *bitsource.Source, out []int64) error {
	nblocks := (len(ns) + e.size - 1) / e.size
	subs := make([]*bitsource.Source, nblocks)
	for b := range subs {
		subs[b] = src.Fork(nil)
	}

	var g errgroup.Group
	g.SetLimit(e.workers)
	for b := 0; b < nblocks; b++ {
		start := b * e.size
		end := min(start+e.size, len(ns))
		g.Go(func() error {
			newScratch(end-start).run(ns[start:end], probs, start, subs[b], out[start:end])
			return nil
		})
	}
	return g.Wait()
}
