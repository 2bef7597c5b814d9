package mathpreview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestComputeKey_Deterministic(t *testing.T) {
	settings := DocumentSettings{
		ExtraPackages:  []string{"physics"},
		CustomPreamble: "\\newcommand{\\R}{\\mathbb{R}}",
	}

	first := ComputeKey("x+y", settings, 3, Light)
	second := ComputeKey("x+y", settings, 3, Light)
	if first != second {
		t.Errorf("equal inputs produced different keys: %q vs %q", first, second)
	}
	if len(first) != 20 {
		t.Errorf("key length = %d, want 20", len(first))
	}
}

func TestComputeKey_InputSensitivity(t *testing.T) {
	base := DocumentSettings{ExtraPackages: []string{"physics"}}
	key := ComputeKey("x", base, 1, Light)

	tests := []struct {
		name string
		got  string
	}{
		{"content", ComputeKey("y", base, 1, Light)},
		{"equation number", ComputeKey("x", base, 2, Light)},
		{"no number", ComputeKey("x", base, 0, Light)},
		{"variant", ComputeKey("x", base, 1, Dark)},
		{"packages", ComputeKey("x", DocumentSettings{ExtraPackages: []string{"bm"}}, 1, Light)},
		{"preamble", ComputeKey("x", DocumentSettings{ExtraPackages: []string{"physics"}, CustomPreamble: "p"}, 1, Light)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == key {
				t.Errorf("changing %s did not change the key", tt.name)
			}
		})
	}
}

func TestComputeKey_FieldBoundaries(t *testing.T) {
	// Packages ["ab"] and ["a","b"] must not collide.
	one := ComputeKey("x", DocumentSettings{ExtraPackages: []string{"ab"}}, 0, Light)
	two := ComputeKey("x", DocumentSettings{ExtraPackages: []string{"a", "b"}}, 0, Light)
	if one == two {
		t.Error("package list serialization is ambiguous")
	}

	// Content must not bleed into the package list either, even for
	// content containing the serialization's own byte values.
	one = ComputeKey("x\x00p", DocumentSettings{}, 0, Light)
	two = ComputeKey("x", DocumentSettings{ExtraPackages: []string{"p"}}, 0, Light)
	if one == two {
		t.Error("content and package fields are ambiguous")
	}

	one = ComputeKey("x3:abc", DocumentSettings{}, 0, Light)
	two = ComputeKey("x", DocumentSettings{ExtraPackages: []string{"abc"}}, 0, Light)
	if one == two {
		t.Error("length-prefix framing is ambiguous")
	}
}

func TestCache_StoreLookup(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}

	key := ComputeKey("x", DocumentSettings{}, 0, Light)
	entry, err := cache.Store(key, Light, "svg", []byte("<svg/>"))
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if !strings.HasSuffix(entry.ArtifactPath, key+".svg") {
		t.Errorf("ArtifactPath = %q, want suffix %q", entry.ArtifactPath, key+".svg")
	}

	got, ok := cache.Lookup(key)
	if !ok {
		t.Fatal("Lookup() missed a stored entry")
	}
	data, err := os.ReadFile(got.ArtifactPath)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("artifact content = %q, want %q", data, "<svg/>")
	}
}

func TestCache_DarkVariantFilename(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}

	key := ComputeKey("x", DocumentSettings{}, 0, Dark)
	entry, err := cache.Store(key, Dark, "png", []byte("png"))
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if !strings.HasSuffix(entry.ArtifactPath, key+"-dark.png") {
		t.Errorf("ArtifactPath = %q, want suffix %q", entry.ArtifactPath, key+"-dark.png")
	}
	if entry.FallbackPath != entry.ArtifactPath {
		t.Errorf("png artifact should also be the fallback path")
	}
}

func TestCache_LookupMissesDeletedFile(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}

	key := ComputeKey("x", DocumentSettings{}, 0, Light)
	entry, err := cache.Store(key, Light, "svg", []byte("<svg/>"))
	if err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	// A deleted backing file is a miss, not an error.
	if err := os.Remove(entry.ArtifactPath); err != nil {
		t.Fatalf("removing artifact: %v", err)
	}
	if _, ok := cache.Lookup(key); ok {
		t.Error("Lookup() hit after the backing file was deleted")
	}
}

func TestCache_RebuildFromDirectory(t *testing.T) {
	dir := t.TempDir()
	first, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}
	key := ComputeKey("x", DocumentSettings{}, 0, Light)
	if _, err := first.Store(key, Light, "svg", []byte("<svg/>")); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	// A fresh cache over the same directory sees the entry: file presence
	// is the sole source of truth.
	second, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}
	if _, ok := second.Lookup(key); !ok {
		t.Error("rebuilt cache missed an on-disk entry")
	}
}

func TestCache_SweepMaxAgeZero(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}
	for _, content := range []string{"a", "b", "c"} {
		key := ComputeKey(content, DocumentSettings{}, 0, Light)
		if _, err := cache.Store(key, Light, "svg", []byte("<svg/>")); err != nil {
			t.Fatalf("Store() error: %v", err)
		}
	}

	if err := cache.Sweep(0); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.EntryCount != 0 {
		t.Errorf("EntryCount after sweep = %d, want 0", stats.EntryCount)
	}
	if stats.TotalBytes != 0 {
		t.Errorf("TotalBytes after sweep = %d, want 0", stats.TotalBytes)
	}
}

func TestCache_SweepKeepsFreshEntries(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}
	key := ComputeKey("x", DocumentSettings{}, 0, Light)
	if _, err := cache.Store(key, Light, "svg", []byte("<svg/>")); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	if err := cache.Sweep(time.Hour); err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if _, ok := cache.Lookup(key); !ok {
		t.Error("Sweep() removed a fresh entry")
	}
}

func TestCache_Clear(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}
	key := ComputeKey("x", DocumentSettings{}, 0, Light)
	if _, err := cache.Store(key, Light, "svg", []byte("<svg/>")); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok := cache.Lookup(key); ok {
		t.Error("Lookup() hit after Clear()")
	}
	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.EntryCount != 0 {
		t.Errorf("EntryCount after clear = %d, want 0", stats.EntryCount)
	}
}

func TestCache_StatsIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewCache(dir)
	if err != nil {
		t.Fatalf("NewCache() error: %v", err)
	}
	key := ComputeKey("x", DocumentSettings{}, 0, Light)
	if _, err := cache.Store(key, Light, "svg", []byte("<svg/>")); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("writing foreign file: %v", err)
	}

	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.EntryCount != 1 {
		t.Errorf("EntryCount = %d, want 1 (foreign files ignored)", stats.EntryCount)
	}
	if stats.TotalBytes != int64(len("<svg/>")) {
		t.Errorf("TotalBytes = %d, want %d", stats.TotalBytes, len("<svg/>"))
	}
}
