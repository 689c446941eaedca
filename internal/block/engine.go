// Package block applies the binomial samplers across whole buffers of trial
// counts, one fixed-size block at a time.
//
// Each block is handled in two passes. The gather pass resolves every
// element's table and writes the draws that need no randomness (n == 0,
// p == 0, p == 1); the draw pass then runs the sampling loops back to back over
// the remaining elements. Elements are always drawn in index order, so in
// sequential mode the block size changes throughput only: the same seed gives
// the same output for every block size.
package block

import (
	"fmt"

	"github.com/xtding233/fastbinomial/internal/binomial"
	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/errkind"
	"github.com/xtding233/fastbinomial/internal/shape"
)

// Block size presets.
const (
	Small    = 8
	Medium   = 16
	Large    = 128
	XLarge   = 256
	XXLarge  = 512
	XXXLarge = 1024

	DefaultSize = Small
	MaxSize     = 1 << 16
)

var (
	// ErrInvalidBlockSize is returned by New for sizes outside [1, MaxSize].
	ErrInvalidBlockSize = fmt.Errorf("%w: block size must be within [1, %d]", errkind.ErrConfiguration, MaxSize)
	// ErrInvalidWorkers is returned by New for a negative worker count.
	ErrInvalidWorkers = fmt.Errorf("%w: worker count must be non-negative", errkind.ErrConfiguration)
	// ErrNoProbabilities is returned when a non-empty buffer is generated
	// against an empty Probabilities.
	ErrNoProbabilities = fmt.Errorf("%w: no probability tables", errkind.ErrMissingProbability)
)

// Probabilities supplies the table used for each element: either one table
// for every element or a flat, row-major table array that broadcasts over
// the trailing dimensions of n.
type Probabilities struct {
	tables []*binomial.Table
}

// Single uses t for every element.
func Single(t *binomial.Table) Probabilities {
	return Probabilities{tables: []*binomial.Table{t}}
}

// PerElement broadcasts tables over n: element i uses tables[i % len(tables)].
func PerElement(tables []*binomial.Table) Probabilities {
	return Probabilities{tables: tables}
}

// Len returns the number of tables.
func (p Probabilities) Len() int { return len(p.tables) }

func (p Probabilities) at(i int) *binomial.Table {
	return p.tables[shape.BroadcastIndex(i, len(p.tables))]
}

// Engine generates buffers of samples. It holds no sampling state and can be
// shared; the BitSource passed to Generate is what advances.
type Engine struct {
	size    int
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers enables parallel mode with up to k blocks in flight. Each
// block then draws from its own substream forked, in block order, from the
// caller's source. Output stays reproducible for a fixed seed, block size and
// input length, whatever k is, but it is not the sequential output for the
// same seed. k <= 1 keeps sequential mode.
func WithWorkers(k int) Option {
	return func(e *Engine) {
		e.workers = k
	}
}

// New returns an Engine with the given block size.
func New(size int, opts ...Option) (*Engine, error) {
	if size < 1 || size > MaxSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBlockSize, size)
	}
	e := &Engine{size: size}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, e.workers)
	}
	return e, nil
}

// Size returns the block size.
func (e *Engine) Size() int { return e.size }

// Parallel reports whether blocks run on independent substreams.
func (e *Engine) Parallel() bool { return e.workers > 1 }

// Generate fills out[i] with a draw for ns[i] using the table probs assigns
// to i. All counts are checked before any bits are consumed, so on error out
// is left untouched.
func (e *Engine) Generate(ns []int64, probs Probabilities, src *bitsource.Source, out []int64) error {
	if len(out) != len(ns) {
		return &shape.BufferError{What: "output", Shape: shape.Of(len(ns)), Len: len(out)}
	}
	if len(ns) == 0 {
		return nil
	}
	if probs.Len() == 0 {
		return ErrNoProbabilities
	}
	for i, n := range ns {
		if err := binomial.ValidateTrials(n); err != nil {
			return fmt.Errorf("n[%d]: %w", i, err)
		}
	}

	if e.Parallel() && len(ns) > e.size {
		return e.generateParallel(ns, probs, src, out)
	}

	s := newScratch(e.size)
	for start := 0; start < len(ns); start += e.size {
		end := min(start+e.size, len(ns))
		s.run(ns[start:end], probs, start, src, out[start:end])
	}
	return nil
}

// scratch is the per-block working set, reused across blocks.
type scratch struct {
	pending []int
	tables  []*binomial.Table
}

func newScratch(size int) *scratch {
	return &scratch{
		pending: make([]int, 0, size),
		tables:  make([]*binomial.Table, 0, size),
	}
}

// run processes one block; offset is the flat index of ns[0].
func (s *scratch) run(ns []int64, probs Probabilities, offset int, src binomial.BitSource, out []int64) {
	s.pending = s.pending[:0]
	s.tables = s.tables[:0]
	for j, n := range ns {
		t := probs.at(offset + j)
		if k, ok := t.Trivial(n); ok {
			out[j] = k
			continue
		}
		s.pending = append(s.pending, j)
		s.tables = append(s.tables, t)
	}
	for i, j := range s.pending {
		out[j] = s.tables[i].Sample(ns[j], src)
	}
}
