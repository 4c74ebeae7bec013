package config

import (
	"fmt"
	"math/rand"

	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/rng"
)

// replacementByName maps a document's replacement string to the cache
// package's enum, grounded on CacheFactory.cpp's string-to-policy switch.
func replacementByName(name string) (cache.Replacement, error) {
	switch name {
	case "", "lru":
		return cache.ReplLRU, nil
	case "bit-plru":
		return cache.ReplBitPLRU, nil
	case "tree-plru":
		return cache.ReplTreePLRU, nil
	case "random":
		return cache.ReplRandom, nil
	case "lip":
		return cache.ReplLIP, nil
	case "bip":
		return cache.ReplBIP, nil
	case "srrip":
		return cache.ReplSRRIP, nil
	case "brrip":
		return cache.ReplBRRIP, nil
	default:
		return 0, &cache.ErrUnknownCacheType{Type: "replacement:" + name}
	}
}

// BuildCache constructs the cache hierarchy named by cfg, streaming all
// randomness from g's named subsystem streams so the hierarchy's internal
// tie-breaking is reproducible independent of construction order (§5).
// Grounded on CacheFactory.cpp: an unrecognized Type returns
// ErrUnknownCacheType rather than aborting (§7 item 1).
func BuildCache(cfg CacheConfig, g *rng.Generator) (cache.Cache, error) {
	if len(cfg.Levels) == 0 {
		return nil, fmt.Errorf("cachefx: cache config has no levels")
	}
	if len(cfg.Levels) == 1 {
		return buildLevel(cfg.Levels[0], g, 1)
	}

	levels := make([]cache.Cache, 0, len(cfg.Levels))
	for i, lvl := range cfg.Levels {
		c, err := buildLevel(lvl, g, i+1)
		if err != nil {
			return nil, err
		}
		levels = append(levels, c)
	}
	return cache.NewHierarchy(levels...), nil
}

func buildLevel(lvl LevelConfig, g *rng.Generator, levelNum int) (cache.Cache, error) {
	streamName := fmt.Sprintf("%s-L%d", rng.StreamReplacement, levelNum)
	newRNG := func() *rand.Rand { return g.Stream(streamName) }

	repl, err := replacementByName(lvl.Replacement)
	if err != nil {
		return nil, err
	}

	switch lvl.Type {
	case "fully-associative":
		return cache.NewAssocCache(lvl.NLines, repl, lvl.InvalidFirst, newRNG()), nil

	case "set-associative":
		nsets := lvl.NLines / max1(lvl.NWays)
		return cache.NewSetAssocCache(nsets, lvl.NWays, repl, lvl.InvalidFirst, newRNG), nil

	case "ceaser":
		nsets := lvl.NLines / max1(lvl.NWays)
		return cache.NewCEASERCache(nsets, lvl.NWays, repl, lvl.InvalidFirst, newRNG), nil

	case "ceaser-s":
		nsets := lvl.NLines / max1(lvl.NWays)
		partitions := lvl.Partitions
		if partitions <= 0 {
			partitions = 1
		}
		return cache.NewCEASERSCache(nsets, lvl.NWays, partitions, newRNG()), nil

	case "scatter":
		nsets := lvl.NLines / max1(lvl.NWays)
		return cache.NewScatterCache(nsets, lvl.NWays, newRNG()), nil

	case "phantom":
		nsets := lvl.NLines / max1(lvl.NWays)
		r := lvl.RandomSets
		if r <= 0 {
			r = 1
		}
		return cache.NewPhantomCache(nsets, lvl.NWays, r, repl, newRNG, newRNG()), nil

	case "newcache":
		ldm := lvl.LDMSize
		if ldm <= 0 {
			ldm = lvl.NLines
		}
		return cache.NewNewCacheVariant(lvl.NLines, ldm, newRNG()), nil

	case "pl-cache":
		nsets := lvl.NLines / max1(lvl.NWays)
		return cache.NewPLCache(nsets, lvl.NWays, newRNG), nil

	case "way-partition":
		if lvl.Primary == nil || lvl.Secondary == nil {
			return nil, fmt.Errorf("cachefx: way-partition requires primary and secondary sub-configs")
		}
		d0, err := buildLevel(*lvl.Primary, g, levelNum)
		if err != nil {
			return nil, err
		}
		d1, err := buildLevel(*lvl.Secondary, g, levelNum)
		if err != nil {
			return nil, err
		}
		sa0, ok0 := d0.(*cache.SetAssocCache)
		sa1, ok1 := d1.(*cache.SetAssocCache)
		if !ok0 || !ok1 {
			return nil, fmt.Errorf("cachefx: way-partition domains must be set-associative")
		}
		ctx0 := cache.Context(lvl.SecureContext)
		ctx1 := cache.Context(lvl.NormalContext)
		if ctx0 == 0 && ctx1 == 0 {
			ctx0, ctx1 = cache.ContextAttacker, cache.ContextVictim
		}
		return cache.NewWayPartitionCache(sa0, sa1, ctx0, ctx1), nil

	case "dip", "drrip":
		if lvl.Primary == nil || lvl.Secondary == nil {
			return nil, fmt.Errorf("cachefx: %s requires primary and secondary sub-configs", lvl.Type)
		}
		if err := cache.ValidateDuelCompatible(lvl.Primary.Type); err != nil {
			return nil, err
		}
		if err := cache.ValidateDuelCompatible(lvl.Secondary.Type); err != nil {
			return nil, err
		}
		primary, err := buildLevel(*lvl.Primary, g, levelNum)
		if err != nil {
			return nil, err
		}
		secondary, err := buildLevel(*lvl.Secondary, g, levelNum)
		if err != nil {
			return nil, err
		}
		return cache.NewDuelCache(primary, secondary, lvl.Type == "drrip"), nil

	default:
		return nil, &cache.ErrUnknownCacheType{Type: lvl.Type}
	}
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
