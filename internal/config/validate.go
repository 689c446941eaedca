package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/xtding233/fastbinomial/internal/binomial"
	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/block"
	"github.com/xtding233/fastbinomial/internal/errkind"
	"github.com/xtding233/fastbinomial/internal/generator"
	"github.com/xtding233/fastbinomial/internal/shape"
)

// ValidateRaw checks semantic constraints of a RawConfig.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	g := cfg.Generator
	if g.Algorithm != nil {
		if _, err := bitsource.ParseAlgorithm(*g.Algorithm); err != nil {
			errs = append(errs, fmt.Sprintf("generator.algorithm %q is not one of: fast-chaotic, mersenne-twister", *g.Algorithm))
		}
	}
	if g.BlockSize != nil && (*g.BlockSize < 1 || *g.BlockSize > block.MaxSize) {
		errs = append(errs, fmt.Sprintf("generator.block_size must be in [1,%d]", block.MaxSize))
	}
	if g.Workers != nil && *g.Workers < 0 {
		errs = append(errs, "generator.workers must be >= 0 (0 or 1 means sequential)")
	}
	if g.TableMaxN != nil && (*g.TableMaxN < generator.NoTablePrecompute || *g.TableMaxN > binomial.MaxTableN) {
		errs = append(errs, fmt.Sprintf("generator.table_max_n must be in [-1,%d] (0 means default, -1 no precomputation)", binomial.MaxTableN))
	}

	// cached_p
	if c := g.CachedP; c != nil {
		switch {
		case c.Value != nil && len(c.Values) > 0:
			errs = append(errs, "generator.cached_p: set either value or values, not both")
		case c.Value != nil:
			if !validP(*c.Value) {
				errs = append(errs, "generator.cached_p.value must be in [0,1]")
			}
			if len(c.Shape) > 0 {
				errs = append(errs, "generator.cached_p.shape requires values")
			}
		case len(c.Values) > 0:
			for i, p := range c.Values {
				if !validP(p) {
					errs = append(errs, fmt.Sprintf("generator.cached_p.values[%d] must be in [0,1]", i))
				}
			}
			if len(c.Shape) > 0 {
				s := shape.Shape(c.Shape)
				if err := s.Validate(); err != nil {
					errs = append(errs, fmt.Sprintf("generator.cached_p.shape: %v", err))
				} else if s.Size() != len(c.Values) {
					errs = append(errs, fmt.Sprintf("generator.cached_p.shape %v holds %d values, got %d", c.Shape, s.Size(), len(c.Values)))
				}
			}
		default:
			errs = append(errs, "generator.cached_p needs value or values")
		}
	}

	// server (optional)
	if cfg.Server != nil {
		if cfg.Server.MaxElements != nil && *cfg.Server.MaxElements < 1 {
			errs = append(errs, "server.max_elements must be >= 1")
		}
		if cfg.Server.MaxTrials != nil && *cfg.Server.MaxTrials < 1 {
			errs = append(errs, "server.max_trials must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed: %s", errkind.ErrConfiguration, strings.Join(errs, "; "))
	}
	return nil
}

func validP(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
