// Package config loads the cache-hierarchy configuration document (§6) and
// builds the corresponding cache.Cache. Grounded on the teacher's
// sim/config.go grouped-struct-with-doc-comments style and its strict
// (KnownFields(true)) yaml.v3 decoding discipline, and on CacheFactory.cpp
// for the set of per-variant parameters a document may specify.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LevelConfig describes one level of the cache hierarchy. Not every field
// applies to every Type; unused fields are ignored by the factory for that
// type (e.g. Partitions only matters for "ceaser-s").
type LevelConfig struct {
	// Type names the cache variant: "fully-associative", "set-associative",
	// "ceaser", "ceaser-s", "scatter", "phantom", "newcache", "pl-cache",
	// "way-partition", "dip", or "drrip".
	Type string `yaml:"type"`

	// NLines is the total line capacity. Required for every variant except
	// "way-partition" and the duelling variants, which derive capacity from
	// their nested sub-configurations.
	NLines int `yaml:"nLines,omitempty"`
	NWays  int `yaml:"nWays,omitempty"`

	// Replacement names the per-way replacement policy for associative
	// variants: "lru", "bit-plru", "tree-plru", "random", "lip", "bip",
	// "srrip", "brrip".
	Replacement string `yaml:"replacement,omitempty"`
	InvalidFirst bool   `yaml:"invalidFirst,omitempty"`

	// Partitions is CEASER-S's partition count; a non-divisor of NWays
	// silently falls back to 1 (§7).
	Partitions int `yaml:"partitions,omitempty"`

	// RandomSets is Phantom's per-access candidate-set count R.
	RandomSets int `yaml:"randomSets,omitempty"`

	// LDMSize is NewCache's lnreg-indexed intermediate register size.
	LDMSize int `yaml:"ldmSize,omitempty"`

	// SecureWays/NormalWays are accepted in the document but not read by the
	// factory; a way-partition cache's two domains are sized by their
	// Primary/Secondary sub-configurations.
	SecureWays int `yaml:"secureWays,omitempty"`
	NormalWays int `yaml:"normalWays,omitempty"`
	SecureContext int `yaml:"secureContext,omitempty"`
	NormalContext int `yaml:"normalContext,omitempty"`

	// Primary/Secondary configure a duelling (dip/drrip) cache's two
	// candidate policies, or a way-partition cache's secure (Primary, routed
	// by SecureContext) and normal (Secondary, routed by NormalContext)
	// domains.
	Primary   *LevelConfig `yaml:"primary,omitempty"`
	Secondary *LevelConfig `yaml:"secondary,omitempty"`
}

// CacheConfig is an ordered list of hierarchy levels, L1 first.
type CacheConfig struct {
	Levels []LevelConfig `yaml:"levels"`
}

// VictimConfig selects and sizes the simulated victim (§4.3).
type VictimConfig struct {
	Type      string `yaml:"type"` // "single", "binary", "aes", "squaremult"
	CacheSize uint64 `yaml:"cacheSize"`
	Randomize bool   `yaml:"randomize,omitempty"`
}

// RunConfig holds the process-wide determinism and sweep parameters (§5,
// §6) that aren't better expressed as CLI flags because they describe the
// experiment rather than one invocation of it.
type RunConfig struct {
	Seed int64 `yaml:"seed"`
}

// Document is the full configuration document (§6): a cache hierarchy plus
// the victim and run parameters it's evaluated against.
type Document struct {
	Cache  CacheConfig  `yaml:"cache"`
	Victim VictimConfig `yaml:"victim"`
	Run    RunConfig    `yaml:"run"`
}

// Load reads and strictly decodes a configuration document from path. A
// missing file is fatal per §7 item 2: the caller is expected to exit
// non-zero on error, not fall back to defaults.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cachefx: failed to read config %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("cachefx: failed to parse config %q: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("cachefx: invalid config %q: %w", path, err)
	}
	return &doc, nil
}

// Validate checks the structural invariants a malformed document could
// violate before the factory ever touches it: at least one level, and a
// non-empty cache/victim type string.
func (d *Document) Validate() error {
	if len(d.Cache.Levels) == 0 {
		return fmt.Errorf("cache.levels must name at least one level")
	}
	for i, lvl := range d.Cache.Levels {
		if lvl.Type == "" {
			return fmt.Errorf("cache.levels[%d].type must not be empty", i)
		}
	}
	if d.Victim.Type == "" {
		return fmt.Errorf("victim.type must not be empty")
	}
	if d.Victim.CacheSize == 0 {
		return fmt.Errorf("victim.cacheSize must be nonzero")
	}
	return nil
}
