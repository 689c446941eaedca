// Package errkind holds the error kinds every sampling error belongs to.
// Concrete errors in the other packages wrap one of these, so callers can
// branch with errors.Is without knowing which package produced the error.
package errkind

import "errors"

var (
	// ErrConfiguration is fatal for the call: an unknown algorithm, a probability
	// outside [0,1], a negative trial count or an invalid block size.
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingProbability means no p was cached at construction and none was
	// supplied with the call. Retry with p.
	ErrMissingProbability = errors.New("missing probability")

	// ErrShapeMismatch means the n and p shapes violate the trailing-dimension
	// broadcast rule.
	ErrShapeMismatch = errors.New("shape mismatch")
)
