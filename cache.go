package mathpreview

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/doctex/go-mathpreview/internal/fileutil"
)

// DefaultMaxAge is how long rendered artifacts are kept before the startup
// sweep removes them.
const DefaultMaxAge = 7 * 24 * time.Hour

// keyDisplayLength is the truncated hex length of cache keys.
const keyDisplayLength = 20

// CacheEntry is one rendered artifact on disk.
type CacheEntry struct {
	Key          string
	ArtifactPath string // primary artifact (SVG preferred)
	FallbackPath string // raster fallback, "" if none
	CreatedAt    time.Time
}

// CacheStats summarizes the on-disk cache.
type CacheStats struct {
	EntryCount int
	TotalBytes int64
}

// ComputeKey returns the deterministic content-addressed cache key for a
// fragment body under the given settings, equation number, and variant.
//
// Equal inputs always produce equal keys; any difference — including a
// different equation number, since numbering affects rendered output —
// produces a different key.
func ComputeKey(content string, settings DocumentSettings, equationNumber int, variant Variant) string {
	h := sha256.New()
	// Length-prefixed canonical serialization keeps field boundaries
	// unambiguous regardless of field content.
	hashField(h, content)
	hashField(h, strconv.Itoa(len(settings.ExtraPackages)))
	for _, pkg := range settings.ExtraPackages {
		hashField(h, pkg)
	}
	hashField(h, settings.CustomPreamble)
	if equationNumber > 0 {
		hashField(h, strconv.Itoa(equationNumber))
	} else {
		hashField(h, "")
	}
	hashField(h, variant.String())
	return hex.EncodeToString(h.Sum(nil))[:keyDisplayLength]
}

// hashField writes one field as <decimal length>:<bytes> so no field can
// bleed into the next.
func hashField(h hash.Hash, s string) {
	_, _ = io.WriteString(h, strconv.Itoa(len(s)))
	h.Write([]byte{':'})
	_, _ = io.WriteString(h, s)
}

// Cache is a content-addressed disk cache of rendered artifacts.
//
// The cache directory is flat: files are named <key>[-dark].svg or
// <key>[-dark].png with no subdirectory nesting. File presence is the sole
// source of truth — the in-memory index is only a cache of filesystem state
// and is rebuilt by listing the directory.
type Cache struct {
	dir string

	mu      sync.Mutex
	entries map[string]CacheEntry
}

// NewCache opens (creating if needed) the cache directory and rebuilds the
// in-memory index from its contents.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating cache directory: %v", ErrCacheIO, err)
	}
	c := &Cache{dir: dir, entries: make(map[string]CacheEntry)}
	if err := c.rebuild(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// rebuild repopulates the index from a directory listing.
// Caller must not hold c.mu.
func (c *Cache) rebuild() error {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("%w: listing cache directory: %v", ErrCacheIO, err)
	}

	entries := make(map[string]CacheEntry)
	for _, de := range names {
		if de.IsDir() {
			continue
		}
		key, ext, ok := parseArtifactName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entry := entries[key]
		entry.Key = key
		path := filepath.Join(c.dir, de.Name())
		if ext == ".svg" {
			entry.ArtifactPath = path
		} else {
			entry.FallbackPath = path
			if entry.ArtifactPath == "" {
				entry.ArtifactPath = path
			}
		}
		entry.CreatedAt = info.ModTime()
		entries[key] = entry
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// parseArtifactName splits an artifact filename into key and extension.
// Valid names are <key>.svg, <key>-dark.svg, <key>.png, <key>-dark.png.
func parseArtifactName(name string) (key, ext string, ok bool) {
	ext = filepath.Ext(name)
	if ext != ".svg" && ext != ".png" {
		return "", "", false
	}
	key = strings.TrimSuffix(strings.TrimSuffix(name, ext), "-dark")
	if len(key) != keyDisplayLength {
		return "", "", false
	}
	return key, ext, true
}

// Lookup returns the entry for key if it exists and its backing file is
// still present on disk. A deleted file is a miss, not an error.
func (c *Cache) Lookup(key string) (CacheEntry, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return CacheEntry{}, false
	}
	if !fileutil.FileExists(entry.ArtifactPath) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return CacheEntry{}, false
	}
	return entry, true
}

// Store records a rendered artifact under key, overwriting any prior entry.
// The write goes to a temporary name and is renamed into place so a sweep
// running concurrently can never observe a partial file.
func (c *Cache) Store(key string, variant Variant, format string, data []byte) (CacheEntry, error) {
	name := key + variant.fileSuffix() + "." + format
	path := filepath.Join(c.dir, name)
	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return CacheEntry{}, fmt.Errorf("%w: storing %s: %v", ErrCacheIO, name, err)
	}

	entry := CacheEntry{Key: key, ArtifactPath: path, CreatedAt: time.Now()}
	if format == "png" {
		entry.FallbackPath = path
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry, nil
}

// Sweep deletes every artifact whose modification time is at least maxAge
// old, then rebuilds the index. It runs once at startup and on explicit
// cache maintenance, never periodically.
func (c *Cache) Sweep(maxAge time.Duration) error {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("%w: listing cache directory: %v", ErrCacheIO, err)
	}
	now := time.Now()
	for _, de := range names {
		if de.IsDir() {
			continue
		}
		if _, _, ok := parseArtifactName(de.Name()); !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) >= maxAge {
			_ = os.Remove(filepath.Join(c.dir, de.Name()))
		}
	}
	return c.rebuild()
}

// Clear removes all cached artifacts and in-memory records.
func (c *Cache) Clear() error {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("%w: listing cache directory: %v", ErrCacheIO, err)
	}
	for _, de := range names {
		if de.IsDir() {
			continue
		}
		if _, _, ok := parseArtifactName(de.Name()); !ok {
			continue
		}
		_ = os.Remove(filepath.Join(c.dir, de.Name()))
	}

	c.mu.Lock()
	c.entries = make(map[string]CacheEntry)
	c.mu.Unlock()
	return nil
}

// Stats reports the entry count and total size of artifacts on disk.
// It reads the directory rather than trusting the index, since files are
// the sole source of truth.
func (c *Cache) Stats() (CacheStats, error) {
	names, err := os.ReadDir(c.dir)
	if err != nil {
		return CacheStats{}, fmt.Errorf("%w: listing cache directory: %v", ErrCacheIO, err)
	}
	var stats CacheStats
	keys := make(map[string]bool)
	for _, de := range names {
		if de.IsDir() {
			continue
		}
		key, _, ok := parseArtifactName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		keys[key] = true
		stats.TotalBytes += info.Size()
	}
	stats.EntryCount = len(keys)
	return stats, nil
}
