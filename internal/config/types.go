// types.go
package config

// RawConfig is one YAML generator profile as written on disk. Pointer fields
// distinguish "not set" from zero so profiles can be layered over the default.
type RawConfig struct {
	Version   string          `yaml:"version"`
	Generator GeneratorConfig `yaml:"generator"`
	Server    *ServerConfig   `yaml:"server,omitempty"`
	Notes     string          `yaml:"notes,omitempty"`
}

// GeneratorConfig mirrors generator.Config.
type GeneratorConfig struct {
	Algorithm *string        `yaml:"algorithm"`
	Seed      *uint64        `yaml:"seed,omitempty"`
	BlockSize *int           `yaml:"block_size,omitempty"`
	Workers   *int           `yaml:"workers,omitempty"`
	TableMaxN *int64         `yaml:"table_max_n,omitempty"`
	CachedP   *CachedPConfig `yaml:"cached_p,omitempty"`
}

// CachedPConfig is either a single value or a row-major array with its shape.
type CachedPConfig struct {
	Value  *float64  `yaml:"value,omitempty"`
	Values []float64 `yaml:"values,omitempty"`
	Shape  []int     `yaml:"shape,omitempty"` // defaults to [len(values)]
}

// ServerConfig limits what one RPC may ask of a profile.
type ServerConfig struct {
	MaxElements *int `yaml:"max_elements,omitempty"`
	MaxTrials   *int `yaml:"max_trials,omitempty"`
}

// Overrides are applied after merging, e.g. from command line flags.
type Overrides struct {
	Algorithm *string
	Seed      *uint64
	BlockSize *int
	Workers   *int
}

// Limits are the resolved ServerConfig.
type Limits struct {
	MaxElements int
	MaxTrials   int
}

// Default limits when a profile sets none.
const (
	DefaultMaxElements = 1 << 20
	DefaultMaxTrials   = 1 << 20
)
