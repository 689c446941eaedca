// Package shape validates how n and p arrays line up. Arrays are flat,
// row-major buffers described by a Shape; p broadcasts over n when its shape
// equals the trailing dimensions of n's shape.
package shape

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/xtding233/fastbinomial/internal/errkind"
)

// Shape lists array dimensions, outermost first. The empty Shape is a scalar.
type Shape []int

// Of returns a one-dimensional shape of length n.
func Of(n int) Shape { return Shape{n} }

// Size returns the number of elements, 1 for a scalar. It is only meaningful
// for shapes that pass Validate.
func (s Shape) Size() int {
	size, _ := s.size()
	return size
}

// size multiplies the dimensions, reporting false if the product does not
// fit in an int. Any zero dimension makes the size zero.
func (s Shape) size() (int, bool) {
	if slices.Contains(s, 0) {
		return 0, true
	}
	size := 1
	for _, d := range s {
		if d > 0 && size > math.MaxInt/d {
			return 0, false
		}
		size *= d
	}
	return size, true
}

// Scalar reports whether s has no dimensions.
func (s Shape) Scalar() bool { return len(s) == 0 }

// Equal reports whether s and o are identical.
func (s Shape) Equal(o Shape) bool { return slices.Equal(s, o) }

// Clone returns a copy that does not alias s.
func (s Shape) Clone() Shape {
	if s == nil {
		return nil
	}
	return slices.Clone(s)
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.Itoa(d)
	}
	if len(s) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ErrTooLarge is returned for shapes whose element count overflows an int.
var ErrTooLarge = fmt.Errorf("%w: shape holds more elements than fit in an int", errkind.ErrConfiguration)

// Validate rejects negative dimensions and element counts that overflow.
func (s Shape) Validate() error {
	for i, d := range s {
		if d < 0 {
			return fmt.Errorf("%w: dimension %d of %v is negative", errkind.ErrConfiguration, i, s)
		}
	}
	if _, ok := s.size(); !ok {
		return fmt.Errorf("%w: %v", ErrTooLarge, s)
	}
	return nil
}

// Verify checks that p broadcasts over n: p has no more dimensions than n and
// equals n's trailing dimensions. A scalar p always broadcasts.
func Verify(nShape, pShape Shape) error {
	if len(pShape) <= len(nShape) && nShape[len(nShape)-len(pShape):].Equal(pShape) {
		return nil
	}
	return &MismatchError{NShape: nShape.Clone(), PShape: pShape.Clone()}
}

// CheckBuffer checks that a flat buffer of length n holds exactly the
// elements of s.
func CheckBuffer(s Shape, n int, what string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Size() != n {
		return &BufferError{What: what, Shape: s.Clone(), Len: n}
	}
	return nil
}

// BroadcastIndex maps flat index i of n to the flat index of a p that
// broadcasts over it with pSize elements. Trailing-dimension broadcasting of
// row-major buffers reduces to a modulo.
func BroadcastIndex(i, pSize int) int {
	if pSize == 1 {
		return 0
	}
	return i % pSize
}
