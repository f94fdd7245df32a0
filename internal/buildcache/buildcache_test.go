package buildcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_NoPreviousRecord_AllStale(t *testing.T) {
	current := map[string]Key{
		"a": {Fingerprint: "f1", BacklinkHash: "b1"},
		"b": {Fingerprint: "f2", BacklinkHash: "b2"},
	}
	c := Classify(nil, current, []string{"a", "b"}, false)
	require.Equal(t, []string{"a", "b"}, c.Stale)
	require.Empty(t, c.Unchanged)
	require.Empty(t, c.Removed)
}

func TestClassify_MatchingKeys_Unchanged(t *testing.T) {
	prev := NewRecord("prev")
	prev.Entries["a"] = Key{Fingerprint: "f1", BacklinkHash: "b1"}

	c := Classify(prev, map[string]Key{"a": {Fingerprint: "f1", BacklinkHash: "b1"}}, []string{"a"}, false)
	require.Equal(t, []string{"a"}, c.Unchanged)
	require.Empty(t, c.Stale)
}

func TestClassify_ContentChange_Stale(t *testing.T) {
	prev := NewRecord("prev")
	prev.Entries["a"] = Key{Fingerprint: "old", BacklinkHash: "b1"}

	c := Classify(prev, map[string]Key{"a": {Fingerprint: "new", BacklinkHash: "b1"}}, []string{"a"}, false)
	require.Equal(t, []string{"a"}, c.Stale)
}

func TestClassify_BacklinkChangeAlone_Stale(t *testing.T) {
	prev := NewRecord("prev")
	prev.Entries["a"] = Key{Fingerprint: "f1", BacklinkHash: "old"}

	c := Classify(prev, map[string]Key{"a": {Fingerprint: "f1", BacklinkHash: "new"}}, []string{"a"}, false)
	require.Equal(t, []string{"a"}, c.Stale)
	require.Empty(t, c.Unchanged)
}

func TestClassify_Force_OverridesUnchanged(t *testing.T) {
	prev := NewRecord("prev")
	prev.Entries["a"] = Key{Fingerprint: "f1", BacklinkHash: "b1"}

	c := Classify(prev, map[string]Key{"a": {Fingerprint: "f1", BacklinkHash: "b1"}}, []string{"a"}, true)
	require.Equal(t, []string{"a"}, c.Stale)
	require.Empty(t, c.Unchanged)
}

func TestClassify_RemovedPostsReported(t *testing.T) {
	prev := NewRecord("prev")
	prev.Entries["gone"] = Key{Fingerprint: "f", BacklinkHash: "b"}
	prev.Entries["kept"] = Key{Fingerprint: "f", BacklinkHash: "b"}

	c := Classify(prev, map[string]Key{"kept": {Fingerprint: "f", BacklinkHash: "b"}}, []string{"kept"}, false)
	require.Equal(t, []string{"gone"}, c.Removed)
	require.Equal(t, []string{"kept"}, c.Unchanged)
}

func TestClassify_LoadedButUnrenderedPostNotRemoved(t *testing.T) {
	prev := NewRecord("prev")
	prev.Entries["flaky"] = Key{Fingerprint: "f", BacklinkHash: "b"}

	// "flaky" is still in the source set but produced no key this build.
	c := Classify(prev, map[string]Key{}, []string{"flaky"}, false)
	require.Empty(t, c.Removed)
	require.Empty(t, c.Stale)
	require.Empty(t, c.Unchanged)
}

func TestStore_SaveThenLoad_RoundTrips(t *testing.T) {
	s := NewStore(t.TempDir())

	rec := NewRecord("build-1")
	rec.Entries["a"] = Key{Fingerprint: "f1", BacklinkHash: "b1"}
	require.NoError(t, s.Save(rec))

	got := s.Load()
	require.NotNil(t, got)
	require.Equal(t, "build-1", got.BuildID)
	require.Equal(t, rec.Entries, got.Entries)
}

func TestStore_MissingRecord_LoadsNil(t *testing.T) {
	s := NewStore(t.TempDir())
	require.Nil(t, s.Load())
}

func TestStore_CorruptRecord_LoadsNil(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".scribe"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scribe", "build-record.json"), []byte("{not json"), 0o644))

	require.Nil(t, s.Load())
}

func TestStore_IncompatibleVersion_LoadsNil(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".scribe"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scribe", "build-record.json"),
		[]byte(`{"version": 99, "entries": {}}`), 0o644))

	require.Nil(t, s.Load())
}

func TestStore_Lock_SecondClaimFails(t *testing.T) {
	s := NewStore(t.TempDir())

	release, err := s.Lock()
	require.NoError(t, err)

	_, err = s.Lock()
	require.ErrorIs(t, err, ErrLocked)

	release()
	release2, err := s.Lock()
	require.NoError(t, err)
	release2()
}
