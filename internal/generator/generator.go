// Package generator is the entry point of the sampling engine. A Generator
// owns one bit source and, optionally, the tables for a probability cached at
// construction, and routes every draw through the scalar or block path:
//
//	n scalar, p absent,  no cache        -> ErrMissingProbability
//	n scalar, p absent,  scalar cache    -> cached table
//	n scalar, p absent,  array cache     -> shape mismatch
//	n scalar, p scalar                   -> per-call sampler
//	n scalar, p array                    -> shape mismatch
//	n array,  p absent,  no cache        -> ErrMissingProbability
//	n array,  p absent,  cache           -> verify shapes, block engine on cached tables
//	n array,  p given                    -> verify shapes, block engine on ephemeral tables
//
// Results always take n's shape. A Generator is not safe for concurrent use.
package generator

import (
	"fmt"

	"github.com/xtding233/fastbinomial/internal/binomial"
	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/block"
	"github.com/xtding233/fastbinomial/internal/errkind"
	"github.com/xtding233/fastbinomial/internal/shape"
)

// ErrMissingProbability is returned when a draw gives no p and none is cached.
var ErrMissingProbability = fmt.Errorf("%w: p is required when no probability was cached", errkind.ErrMissingProbability)

// NoTablePrecompute as Config.TableMaxN builds tables without per-n
// coefficients.
const NoTablePrecompute int64 = -1

// Config describes a Generator.
type Config struct {
	// Algorithm selects the bit source.
	Algorithm bitsource.Algorithm
	// Seed makes the generator reproducible. Nil seeds from system entropy.
	Seed *uint64
	// CachedP is the probability whose tables are built up front. Absent by
	// default.
	CachedP Probs
	// BlockSize is the block engine's block size; 0 means block.DefaultSize.
	BlockSize int
	// Workers > 1 enables parallel blocks on forked substreams.
	Workers int
	// TableMaxN bounds per-n precomputation in each table. 0 means
	// binomial.DefaultTableMaxN; NoTablePrecompute keeps only the p-level
	// constants.
	TableMaxN int64
}

// cache is the probability fixed at construction.
type cache struct {
	table *binomial.Table // scalar p
	probs block.Probabilities
	shape shape.Shape // nil for scalar p
}

// Generator draws binomial samples.
type Generator struct {
	src       *bitsource.Source
	engine    *block.Engine
	tableMaxN int64
	cached    *cache
}

// New validates cfg, seeds the bit source and builds the cached tables.
func New(cfg Config) (*Generator, error) {
	src, err := bitsource.New(cfg.Algorithm, cfg.Seed)
	if err != nil {
		return nil, err
	}
	size := cfg.BlockSize
	if size == 0 {
		size = block.DefaultSize
	}
	engine, err := block.New(size, block.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, err
	}
	maxN := cfg.TableMaxN
	switch maxN {
	case 0:
		maxN = binomial.DefaultTableMaxN
	case NoTablePrecompute:
		maxN = 0
	}
	if maxN < 0 || maxN > binomial.MaxTableN {
		return nil, fmt.Errorf("%w: got %d", binomial.ErrTableSize, maxN)
	}

	g := &Generator{src: src, engine: engine, tableMaxN: maxN}
	switch {
	case cfg.CachedP.Absent():
	case cfg.CachedP.IsArray():
		p := cfg.CachedP
		if err := shape.CheckBuffer(p.shape, len(p.data), "cached p"); err != nil {
			return nil, err
		}
		tables, err := buildTables(p.data, maxN)
		if err != nil {
			return nil, err
		}
		g.cached = &cache{probs: block.PerElement(tables), shape: p.shape.Clone()}
	default:
		t, err := binomial.Build(cfg.CachedP.scalar, binomial.WithMaxN(maxN))
		if err != nil {
			return nil, err
		}
		g.cached = &cache{table: t, probs: block.Single(t)}
	}

	log.Debugf("Generator ready: algorithm %v, seeded %v, block size %d, parallel %v, cached p %s",
		src.Algorithm(), src.Seeded(), engine.Size(), engine.Parallel(), g.describeCache())
	return g, nil
}

func (g *Generator) describeCache() string {
	switch {
	case g.cached == nil:
		return "none"
	case g.cached.shape == nil:
		return fmt.Sprintf("%v", g.cached.table.P())
	default:
		return fmt.Sprintf("array %v", g.cached.shape)
	}
}

// buildTables builds one table per distinct probability and returns them in
// the positions of ps.
func buildTables(ps []float64, maxN int64) ([]*binomial.Table, error) {
	distinct := make(map[float64]*binomial.Table)
	tables := make([]*binomial.Table, len(ps))
	for i, p := range ps {
		if t, ok := distinct[p]; ok {
			tables[i] = t
			continue
		}
		t, err := binomial.Build(p, binomial.WithMaxN(maxN))
		if err != nil {
			return nil, fmt.Errorf("p[%d]: %w", i, err)
		}
		distinct[p] = t
		tables[i] = t
	}
	log.Tracef("Built %d tables for %d probabilities", len(distinct), len(ps))
	return tables, nil
}

// Algorithm returns the bit source algorithm.
func (g *Generator) Algorithm() bitsource.Algorithm { return g.src.Algorithm() }

// BlockSize returns the block engine's block size.
func (g *Generator) BlockSize() int { return g.engine.Size() }

// CachedShape returns the shape of the cached p: nil if none or scalar.
func (g *Generator) CachedShape() shape.Shape {
	if g.cached == nil {
		return nil
	}
	return g.cached.shape.Clone()
}

// HasCachedP reports whether a probability was cached at construction.
func (g *Generator) HasCachedP() bool { return g.cached != nil }

// Draw samples for n with probability p (or the cached one when p is
// absent). Arguments are fully validated before any bits are drawn.
func (g *Generator) Draw(n Counts, p Probs) (Result, error) {
	if !n.IsArray() {
		k, err := g.drawScalar(n.scalar, p)
		if err != nil {
			return Result{}, err
		}
		return Result{Scalar: k}, nil
	}
	out, err := g.drawArray(n, p)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: out, Shape: n.shape.Clone(), IsArray: true}, nil
}

func (g *Generator) drawScalar(n int64, p Probs) (int64, error) {
	switch {
	case p.IsArray():
		return 0, &shape.MismatchError{NShape: shape.Shape{}, PShape: p.shape.Clone()}
	case !p.Absent():
		return binomial.Sample(n, p.scalar, g.src)
	case g.cached == nil:
		return 0, ErrMissingProbability
	case g.cached.shape != nil:
		return 0, &shape.MismatchError{NShape: shape.Shape{}, PShape: g.cached.shape.Clone()}
	}
	if err := binomial.ValidateTrials(n); err != nil {
		return 0, err
	}
	return g.cached.table.Sample(n, g.src), nil
}

func (g *Generator) drawArray(n Counts, p Probs) ([]int64, error) {
	if err := shape.CheckBuffer(n.shape, len(n.data), "n"); err != nil {
		return nil, err
	}

	var probs block.Probabilities
	switch {
	case p.Absent():
		if g.cached == nil {
			return nil, ErrMissingProbability
		}
		if g.cached.shape != nil {
			if err := shape.Verify(n.shape, g.cached.shape); err != nil {
				return nil, err
			}
		}
		probs = g.cached.probs
	case p.IsArray():
		if err := shape.CheckBuffer(p.shape, len(p.data), "p"); err != nil {
			return nil, err
		}
		if err := shape.Verify(n.shape, p.shape); err != nil {
			return nil, err
		}
		tables, err := buildTables(p.data, g.ephemeralMaxN(n.data, len(p.data)))
		if err != nil {
			return nil, err
		}
		probs = block.PerElement(tables)
	default:
		t, err := binomial.Build(p.scalar, binomial.WithMaxN(g.ephemeralMaxN(n.data, 1)))
		if err != nil {
			return nil, err
		}
		probs = block.Single(t)
	}

	out := make([]int64, len(n.data))
	if err := g.engine.Generate(n.data, probs, g.src, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ephemeralMaxN sizes the precomputation of tables that live for one call so
// that building them costs no more than the draws they serve.
func (g *Generator) ephemeralMaxN(ns []int64, tables int) int64 {
	var hi int64
	for _, n := range ns {
		hi = max(hi, n)
	}
	budget := int64(len(ns) / max(tables, 1))
	return min(hi, budget, g.tableMaxN)
}

// Sample draws one variate for n with the cached probability.
func (g *Generator) Sample(n int64) (int64, error) {
	r, err := g.Draw(ScalarN(n), NoP())
	return r.Scalar, err
}

// SampleP draws one variate for n with probability p.
func (g *Generator) SampleP(n int64, p float64) (int64, error) {
	r, err := g.Draw(ScalarN(n), ScalarP(p))
	return r.Scalar, err
}

// Fill draws into out for the one-dimensional ns with the cached probability.
func (g *Generator) Fill(ns []int64, out []int64) error {
	if len(out) != len(ns) {
		return &shape.BufferError{What: "output", Shape: shape.Of(len(ns)), Len: len(out)}
	}
	r, err := g.Draw(ArrayN(ns, nil), NoP())
	if err != nil {
		return err
	}
	copy(out, r.Data)
	return nil
}
