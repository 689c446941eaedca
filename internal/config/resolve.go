// resolve.go
package config

import (
	"github.com/xtding233/fastbinomial/internal/bitsource"
	"github.com/xtding233/fastbinomial/internal/generator"
	"github.com/xtding233/fastbinomial/internal/shape"
)

// DefaultAlgorithm is used when neither the profile nor an override names one.
const DefaultAlgorithm = bitsource.FastChaotic

// Resolved is a profile ready to build a generator from.
type Resolved struct {
	Profile   string
	Raw       RawConfig
	Generator generator.Config
	Limits    Limits
}

// Resolver turns a profile name into generator parameters.
type Resolver interface {
	Resolve(profile string, o Overrides) (Resolved, error)
}

var _ Resolver = (*Loader)(nil)

// Resolve merges default → profile → overrides, validates the result and
// converts it into a generator.Config.
func (l *Loader) Resolve(profile string, o Overrides) (Resolved, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	raw, err := l.LoadMerged(profile)
	if err != nil {
		return Resolved{}, err
	}
	raw = applyOverrides(raw, o)
	if err := ValidateRaw(raw); err != nil {
		return Resolved{}, err
	}

	g := raw.Generator
	cfg := generator.Config{Algorithm: DefaultAlgorithm}
	if g.Algorithm != nil {
		// validated above
		cfg.Algorithm, _ = bitsource.ParseAlgorithm(*g.Algorithm)
	}
	if g.Seed != nil {
		seed := *g.Seed
		cfg.Seed = &seed
	}
	if g.BlockSize != nil {
		cfg.BlockSize = *g.BlockSize
	}
	if g.Workers != nil {
		cfg.Workers = *g.Workers
	}
	if g.TableMaxN != nil {
		cfg.TableMaxN = *g.TableMaxN
	}
	if c := g.CachedP; c != nil {
		if c.Value != nil {
			cfg.CachedP = generator.ScalarP(*c.Value)
		} else {
			var s shape.Shape
			if len(c.Shape) > 0 {
				s = append(shape.Shape(nil), c.Shape...)
			}
			cfg.CachedP = generator.ArrayP(append([]float64(nil), c.Values...), s)
		}
	}

	limits := Limits{MaxElements: DefaultMaxElements, MaxTrials: DefaultMaxTrials}
	if raw.Server != nil {
		if raw.Server.MaxElements != nil {
			limits.MaxElements = *raw.Server.MaxElements
		}
		if raw.Server.MaxTrials != nil {
			limits.MaxTrials = *raw.Server.MaxTrials
		}
	}
	return Resolved{Profile: profile, Raw: raw, Generator: cfg, Limits: limits}, nil
}

func applyOverrides(raw RawConfig, o Overrides) RawConfig {
	if o.Algorithm != nil {
		raw.Generator.Algorithm = o.Algorithm
	}
	if o.Seed != nil {
		raw.Generator.Seed = o.Seed
	}
	if o.BlockSize != nil {
		raw.Generator.BlockSize = o.BlockSize
	}
	if o.Workers != nil {
		raw.Generator.Workers = o.Workers
	}
	return raw
}
