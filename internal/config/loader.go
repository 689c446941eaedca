package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultProfile names the base layer every profile is merged over.
const DefaultProfile = "default"

// Paths helper for default/profile files.
type Paths struct {
	BaseDir string // base directory, e.g., /etc/binomiald
}

// Dir is the directory holding the profiles.
func (p Paths) Dir() string {
	return filepath.Join(p.BaseDir, "generators")
}

func (p Paths) DefaultPath() string {
	return p.ProfilePath(DefaultProfile)
}

func (p Paths) ProfilePath(profile string) string {
	return filepath.Join(p.Dir(), profile+".yaml")
}

// Loader reads YAML profiles and merges default → profile.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: profile name
}

// NewLoader creates a config loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

// Paths returns the loader's file layout.
func (l *Loader) Paths() Paths { return l.paths }

// LoadMerged loads and merges default → profile. The default file is
// required; a profile file is optional unless it is the only source.
func (l *Loader) LoadMerged(profile string) (RawConfig, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if err := checkProfileName(profile); err != nil {
		return RawConfig{}, err
	}

	l.mu.RLock()
	if cfg, ok := l.cache[profile]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, found, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	merged := defCfg
	if profile != DefaultProfile {
		profCfg, profFound, err := readYAML(l.paths.ProfilePath(profile))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read profile %q: %w", profile, err)
		}
		if !found && !profFound {
			return RawConfig{}, fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
		}
		merged = mergeRaw(defCfg, profCfg)
	} else if !found {
		return RawConfig{}, fmt.Errorf("%w: %s does not exist", ErrUnknownProfile, l.paths.DefaultPath())
	}

	l.mu.Lock()
	l.cache[profile] = merged
	l.mu.Unlock()

	return merged, nil
}

// Profiles lists the profile names on disk, default included, sorted.
func (l *Loader) Profiles() ([]string, error) {
	entries, err := os.ReadDir(l.paths.Dir())
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Invalidate clears loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
	log.Debugf("Config cache invalidated")
}

// ErrUnknownProfile is returned when neither the default nor the named
// profile file exists, or the name is not a plain file name.
var ErrUnknownProfile = errors.New("unknown generator profile")

func checkProfileName(profile string) error {
	if strings.ContainsAny(profile, `/\`) || profile == "." || profile == ".." {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, profile)
	}
	return nil
}

// readYAML loads a YAML file into RawConfig. Missing files return a zero
// config and found == false, no error.
func readYAML(path string) (RawConfig, bool, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, false, nil
		}
		return RawConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, true, nil
}

// mergeRaw performs a deep merge: 'b' overrides 'a' where set.
// For slices (cached_p.values, cached_p.shape), 'b' replaces 'a' if provided.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	// top-level scalars
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// generator
	if b.Generator.Algorithm != nil {
		out.Generator.Algorithm = b.Generator.Algorithm
	}
	if b.Generator.Seed != nil {
		out.Generator.Seed = b.Generator.Seed
	}
	if b.Generator.BlockSize != nil {
		out.Generator.BlockSize = b.Generator.BlockSize
	}
	if b.Generator.Workers != nil {
		out.Generator.Workers = b.Generator.Workers
	}
	if b.Generator.TableMaxN != nil {
		out.Generator.TableMaxN = b.Generator.TableMaxN
	}
	// cached p is replaced as a whole: a scalar and an array do not mix
	if b.Generator.CachedP != nil {
		c := *b.Generator.CachedP
		c.Values = append([]float64(nil), c.Values...)
		c.Shape = append([]int(nil), c.Shape...)
		out.Generator.CachedP = &c
	}

	// server
	switch {
	case out.Server == nil && b.Server != nil:
		c := *b.Server
		out.Server = &c
	case out.Server != nil && b.Server != nil:
		c := *out.Server
		if b.Server.MaxElements != nil {
			c.MaxElements = b.Server.MaxElements
		}
		if b.Server.MaxTrials != nil {
			c.MaxTrials = b.Server.MaxTrials
		}
		out.Server = &c
	}

	return out
}
