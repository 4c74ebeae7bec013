package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachefx/cachefx/internal/cachefx/cache"
	"github.com/cachefx/cachefx/internal/cachefx/rng"
)

const validDoc = `
cache:
  levels:
    - type: fully-associative
      nLines: 8
      replacement: lru
victim:
  type: single
  cacheSize: 1024
run:
  seed: 7
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidDocument(t *testing.T) {
	path := writeTempConfig(t, validDoc)
	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), doc.Run.Seed)
	assert.Equal(t, uint64(1024), doc.Victim.CacheSize)
	require.Len(t, doc.Cache.Levels, 1)
	assert.Equal(t, "fully-associative", doc.Cache.Levels[0].Type)
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeTempConfig(t, validDoc+"\nbogusField: 1\n")
	_, err := Load(path)
	assert.Error(t, err, "strict decoding must reject unknown top-level keys")
}

func TestLoad_EmptyLevelsRejected(t *testing.T) {
	path := writeTempConfig(t, "cache:\n  levels: []\nvictim:\n  type: single\n  cacheSize: 1024\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestBuildCache_UnknownTypeReturnsTypedError(t *testing.T) {
	cfg := CacheConfig{Levels: []LevelConfig{{Type: "not-a-real-variant", NLines: 8}}}
	_, err := BuildCache(cfg, rng.New(1))
	require.Error(t, err)
	var typed *cache.ErrUnknownCacheType
	assert.ErrorAs(t, err, &typed)
}

func TestBuildCache_SingleLevelFullyAssociative(t *testing.T) {
	cfg := CacheConfig{Levels: []LevelConfig{{Type: "fully-associative", NLines: 4, Replacement: "lru"}}}
	c, err := BuildCache(cfg, rng.New(1))
	require.NoError(t, err)
	assert.Equal(t, 4, c.Geometry().NLines)
}

func TestBuildCache_MultiLevelBuildsHierarchy(t *testing.T) {
	cfg := CacheConfig{Levels: []LevelConfig{
		{Type: "fully-associative", NLines: 2, Replacement: "lru"},
		{Type: "fully-associative", NLines: 8, Replacement: "lru"},
	}}
	c, err := BuildCache(cfg, rng.New(1))
	require.NoError(t, err)
	_, ok := c.(*cache.Hierarchy)
	assert.True(t, ok)
}

func TestBuildCache_WayPartitionRequiresSubConfigs(t *testing.T) {
	cfg := CacheConfig{Levels: []LevelConfig{{Type: "way-partition", NLines: 8}}}
	_, err := BuildCache(cfg, rng.New(1))
	assert.Error(t, err)
}

func TestBuildCache_WayPartitionBuildsTwoDomains(t *testing.T) {
	cfg := CacheConfig{Levels: []LevelConfig{{
		Type: "way-partition",
		Primary: &LevelConfig{Type: "set-associative", NLines: 1, NWays: 1, Replacement: "lru"},
		Secondary: &LevelConfig{Type: "set-associative", NLines: 7, NWays: 7, Replacement: "lru"},
		SecureContext: 1, NormalContext: 0,
	}}}
	c, err := BuildCache(cfg, rng.New(1))
	require.NoError(t, err)
	assert.False(t, c.HasCollision(0, cache.Context(1), 0, cache.Context(0)))
}

func TestReplacementByName_UnknownReturnsTypedError(t *testing.T) {
	_, err := replacementByName("not-a-policy")
	require.Error(t, err)
	var typed *cache.ErrUnknownCacheType
	assert.ErrorAs(t, err, &typed)
}
