package bitsource

import (
	"fmt"
	"strings"

	"github.com/xtding233/fastbinomial/internal/errkind"
)

// ErrUnknownAlgorithm is returned for an algorithm tag outside the supported set.
var ErrUnknownAlgorithm = fmt.Errorf("%w: unknown bit generator algorithm", errkind.ErrConfiguration)

// Algorithm selects the pseudo-random engine behind a Source. The zero value is
// not a valid algorithm.
type Algorithm uint8

const (
	// FastChaotic is SFC64, the small fast chaotic generator (256 bits of state).
	FastChaotic Algorithm = iota + 1
	// MersenneTwister is the 64-bit Mersenne Twister, MT19937-64.
	MersenneTwister
)

// Valid reports whether a is one of the supported algorithms.
func (a Algorithm) Valid() bool {
	return a == FastChaotic || a == MersenneTwister
}

func (a Algorithm) String() string {
	switch a {
	case FastChaotic:
		return "fast-chaotic"
	case MersenneTwister:
		return "mersenne-twister"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm maps a selector token to an Algorithm. Both the descriptive
// names and the engine names are accepted, case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast-chaotic", "sfc64", "sfc":
		return FastChaotic, nil
	case "mersenne-twister", "mt19937", "mt19937-64", "mt":
		return MersenneTwister, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}
