package crystal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoadIndex_MissingFile tests the clean default for a fresh
// workspace.
func TestLoadIndex_MissingFile(t *testing.T) {
	ix, dropped := LoadIndex(filepath.Join(t.TempDir(), "index.json"))
	assert.Equal(t, IndexVersion, ix.Version)
	assert.Equal(t, 0, ix.NextIndex)
	assert.Equal(t, -1, ix.LastEventIndex)
	assert.Empty(t, ix.Crystals)
	assert.Equal(t, 0, dropped)
}

// TestLoadIndex_MalformedJSON tests that corruption degrades to the
// default index instead of failing.
func TestLoadIndex_MalformedJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "index.json", "{not json")
	ix, dropped := LoadIndex(path)
	assert.Equal(t, 0, ix.NextIndex)
	assert.Equal(t, -1, ix.LastEventIndex)
	assert.Equal(t, 0, dropped)
}

// TestLoadIndex_NonObjectDocument tests that a JSON array reads as the
// default.
func TestLoadIndex_NonObjectDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "index.json", `[1,2,3]`)
	ix, _ := LoadIndex(path)
	assert.Equal(t, 0, ix.NextIndex)
	assert.Empty(t, ix.Crystals)
}

// TestLoadIndex_DropsNonObjectEntries tests tolerant entry filtering
// with a dropped count.
func TestLoadIndex_DropsNonObjectEntries(t *testing.T) {
	path := writeFile(t, t.TempDir(), "index.json",
		`{"next_index":3,"last_event_index":9,"crystals":[{"index":0},"junk",42,{"index":2}]}`)

	ix, dropped := LoadIndex(path)
	assert.Equal(t, 3, ix.NextIndex)
	assert.Equal(t, 9, ix.LastEventIndex)
	assert.Len(t, ix.Crystals, 2)
	assert.Equal(t, 2, dropped)
}

// TestLoadIndex_CoercesCounters tests that string and float counters
// still parse.
func TestLoadIndex_CoercesCounters(t *testing.T) {
	path := writeFile(t, t.TempDir(), "index.json",
		`{"next_index":"7","last_event_index":12.0,"crystals":[]}`)

	ix, _ := LoadIndex(path)
	assert.Equal(t, 7, ix.NextIndex)
	assert.Equal(t, 12, ix.LastEventIndex)
}

// TestHasSignature tests signature lookup across entries.
func TestHasSignature(t *testing.T) {
	ix := Index{Crystals: []map[string]any{
		{"index": 0, "signature": "aaa"},
		{"index": 1}, // entry without signature is skipped
		{"index": 2, "signature": "bbb"},
	}}

	assert.True(t, ix.HasSignature("aaa"))
	assert.True(t, ix.HasSignature("bbb"))
	assert.False(t, ix.HasSignature("ccc"))
	assert.False(t, Index{}.HasSignature("aaa"))
}

// TestLatestEntry_MaxIndexWins tests the primary selection rule.
func TestLatestEntry_MaxIndexWins(t *testing.T) {
	entries := []any{
		map[string]any{"index": float64(0), "path": "a"},
		map[string]any{"index": float64(2), "path": "c"},
		map[string]any{"index": float64(1), "path": "b"},
	}
	entry := LatestEntry(entries)
	require.NotNil(t, entry)
	assert.Equal(t, "c", entry["path"])
}

// TestLatestEntry_FallbackToLastObject tests the rule when no entry has
// a parseable index.
func TestLatestEntry_FallbackToLastObject(t *testing.T) {
	entries := []any{
		map[string]any{"path": "a"},
		map[string]any{"index": "junk", "path": "b"},
		"not an object",
	}
	entry := LatestEntry(entries)
	require.NotNil(t, entry)
	assert.Equal(t, "b", entry["path"])
}

// TestLatestEntry_Empty tests the nil result for unusable lists.
func TestLatestEntry_Empty(t *testing.T) {
	assert.Nil(t, LatestEntry(nil))
	assert.Nil(t, LatestEntry([]any{}))
	assert.Nil(t, LatestEntry([]any{"junk", 42}))
}
