package generator

import (
	"github.com/xtding233/fastbinomial/internal/shape"
)

// Counts is the n argument of a draw: a scalar or a flat row-major array with
// its shape.
type Counts struct {
	scalar  int64
	data    []int64
	shape   shape.Shape
	isArray bool
}

// ScalarN is a single trial count.
func ScalarN(n int64) Counts {
	return Counts{scalar: n}
}

// ArrayN is an array of trial counts. A nil shape means one dimension of
// len(data).
func ArrayN(data []int64, s shape.Shape) Counts {
	if s == nil {
		s = shape.Of(len(data))
	}
	return Counts{data: data, shape: s, isArray: true}
}

// IsArray reports whether c is array-valued.
func (c Counts) IsArray() bool { return c.isArray }

// Shape returns the array shape, or the empty shape for a scalar.
func (c Counts) Shape() shape.Shape {
	if !c.isArray {
		return shape.Shape{}
	}
	return c.shape
}

type probKind uint8

const (
	probAbsent probKind = iota
	probScalar
	probArray
)

// Probs is the optional p argument: absent, a scalar, or a flat row-major
// array with its shape. The zero value is absent.
type Probs struct {
	kind   probKind
	scalar float64
	data   []float64
	shape  shape.Shape
}

// NoP is the absent probability: the generator's cached p is used.
func NoP() Probs { return Probs{} }

// ScalarP is a single probability.
func ScalarP(p float64) Probs {
	return Probs{kind: probScalar, scalar: p}
}

// ArrayP is an array of probabilities. A nil shape means one dimension of
// len(data).
func ArrayP(data []float64, s shape.Shape) Probs {
	if s == nil {
		s = shape.Of(len(data))
	}
	return Probs{kind: probArray, data: data, shape: s}
}

// Absent reports whether no probability was given.
func (p Probs) Absent() bool { return p.kind == probAbsent }

// IsArray reports whether p is array-valued.
func (p Probs) IsArray() bool { return p.kind == probArray }

// Shape returns the array shape, or the empty shape for a scalar or absent p.
func (p Probs) Shape() shape.Shape {
	if p.kind != probArray {
		return shape.Shape{}
	}
	return p.shape
}

// Result mirrors the shape of the n it was drawn for: Scalar is set for a
// scalar n, Data and Shape for an array n.
type Result struct {
	Scalar  int64
	Data    []int64
	Shape   shape.Shape
	IsArray bool
}
