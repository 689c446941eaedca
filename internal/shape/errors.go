package shape

import (
	"fmt"

	"github.com/xtding233/fastbinomial/internal/errkind"
)

// MismatchError reports n and p shapes that do not broadcast.
type MismatchError struct {
	NShape Shape
	PShape Shape
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: p shape %v must match the trailing dimensions of n shape %v", e.PShape, e.NShape)
}

// Is makes errors.Is(err, errkind.ErrShapeMismatch) hold.
func (e *MismatchError) Is(target error) bool { return target == errkind.ErrShapeMismatch }

// BufferError reports a flat buffer whose length disagrees with its shape.
type BufferError struct {
	What  string
	Shape Shape
	Len   int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("shape mismatch: %s buffer has %d elements, shape %v needs %d", e.What, e.Len, e.Shape, e.Shape.Size())
}

// Is makes errors.Is(err, errkind.ErrShapeMismatch) hold.
func (e *BufferError) Is(target error) bool { return target == errkind.ErrShapeMismatch }
