// Package buildcache records what was true when a build last succeeded, so
// that an unchanged project can skip parsing, checking and rewriting
// entirely.
//
// The cache is conservative: a build is skipped only when the schema
// version, the cache key (transformer identity plus configuration), the
// content hash of every input and the existence of every output all match.
// Any mismatch runs the whole build.
package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// SchemaVersion is bumped when the cache format changes.
const SchemaVersion = 1

// Cache represents the on-disk build cache.
type Cache struct {
	// V is the schema version. Must match SchemaVersion or cache is invalid.
	V int `json:"v"`

	// Key is the plugin cache key the build ran with.
	Key string `json:"key"`

	// Inputs maps every input path to the SHA-256 hex digest of its
	// contents.
	Inputs map[string]string `json:"inputs"`

	// Outputs lists files that must still exist for the cache to be valid.
	Outputs []string `json:"outputs"`
}

// CachePath returns the cache file path. The cache lives at
// <outDir>/.tsreflect-cache so that deleting the output directory also
// removes it. Without an output directory it sits next to the tsconfig:
// "tsconfig.build.json" → "tsconfig.build.tsreflect-cache".
func CachePath(outDir string, tsconfigPath string) string {
	if outDir != "" {
		return filepath.Join(outDir, ".tsreflect-cache")
	}
	dir := filepath.Dir(tsconfigPath)
	name := strings.TrimSuffix(filepath.Base(tsconfigPath), ".json")
	return filepath.Join(dir, name+".tsreflect-cache")
}

// Load reads a cache file. It returns nil if the file doesn't exist or
// can't be decoded; callers treat nil as a miss.
func Load(path string) *Cache {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	return &c
}

// Save writes the cache atomically (write to temp, rename). A failed save
// only means the next build won't be skipped.
func Save(path string, cache *Cache) error {
	data, err := json.Marshal(cache, json.Deterministic(true), jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

// Delete removes the cache file. Errors are ignored.
func Delete(path string) {
	os.Remove(path)
}

// IsValid reports whether a build with key over inputs can be skipped.
// inputs maps path to content hash, as returned by HashFiles.
func (c *Cache) IsValid(key string, inputs map[string]string) bool {
	if c == nil || c.V != SchemaVersion || c.Key != key {
		return false
	}

	if len(c.Inputs) != len(inputs) {
		return false
	}
	for path, hash := range inputs {
		if hash == "" || c.Inputs[path] != hash {
			return false
		}
	}

	for _, path := range c.Outputs {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// HashFile computes the SHA-256 hex digest of a file's contents. It returns
// "" if the file can't be read.
func HashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashFiles hashes every path. Unreadable files map to "", which never
// validates a cache.
func HashFiles(paths []string) map[string]string {
	hashes := make(map[string]string, len(paths))
	for _, p := range paths {
		hashes[p] = HashFile(p)
	}
	return hashes
}

// New creates a Cache with the current schema version.
func New(key string, inputs map[string]string, outputs []string) *Cache {
	return &Cache{
		V:       SchemaVersion,
		Key:     key,
		Inputs:  inputs,
		Outputs: outputs,
	}
}
