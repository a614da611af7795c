package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolve_MostRecentCandidateWins(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.mp4", "aaaa")
	b := writeFile(t, dir, "b.mkv", "bbbbbb")
	fallback := writeFile(t, dir, "Title.mp4", "ff")

	// B was observed after A; both exist, so B must win over A and
	// over the existing fallback.
	res := Resolve([]string{a, b}, b, fallback, dir, "title", "mp4", 0)
	assert.Equal(t, b, res.Path)
	assert.Equal(t, int64(6), res.Size)
	assert.False(t, res.Estimated)
}

func TestResolve_FallsBackThroughChain(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.mp4", "aaaa")
	missing := filepath.Join(dir, "gone.mkv")

	// Most recent candidate is missing: the older existing one wins.
	res := Resolve([]string{a, missing}, missing, filepath.Join(dir, "Title.mp4"), dir, "title", "mp4", 0)
	assert.Equal(t, a, res.Path)

	// No candidate exists: the constructed fallback wins.
	fallback := writeFile(t, dir, "Title.mp4", "ff")
	res = Resolve([]string{missing}, missing, fallback, dir, "zzz-no-such-title", "avi", 0)
	assert.Equal(t, fallback, res.Path)
}

func TestResolve_DirectoryScanScoring(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone.mkv")

	writeFile(t, dir, "unrelated.txt", "x")
	extOnly := writeFile(t, dir, "random-clip.mp4", "1234")
	branded := writeFile(t, dir, "clip-mediaq.mp4", "12345")
	titled := writeFile(t, dir, "My Great Video.mp4", "123456")

	// Title + extension beats branded beats bare extension match.
	res := Resolve(nil, "", missing, dir, "my great video", "mp4", 0)
	assert.Equal(t, titled, res.Path)

	require.NoError(t, os.Remove(titled))
	res = Resolve(nil, "", missing, dir, "my great video", "mp4", 0)
	assert.Equal(t, branded, res.Path)

	require.NoError(t, os.Remove(branded))
	res = Resolve(nil, "", missing, dir, "my great video", "mp4", 0)
	assert.Equal(t, extOnly, res.Path)
}

func TestResolve_ScanPrefersNewestInGroup(t *testing.T) {
	dir := t.TempDir()

	older := writeFile(t, dir, "one.mp4", "aa")
	newer := writeFile(t, dir, "two.mp4", "bb")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	res := Resolve(nil, "", "", dir, "", "mp4", 0)
	assert.Equal(t, newer, res.Path)
}

func TestResolve_SkipsPartialFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clip.mp4.part", "xx")
	writeFile(t, dir, "clip.ytdl", "xx")

	res := Resolve(nil, "", "", dir, "clip", "mp4", 1234)
	assert.True(t, res.Estimated)
	assert.Equal(t, int64(1234), res.Size)
	assert.Empty(t, res.Path)
}

func TestResolve_EstimateWhenNothingFound(t *testing.T) {
	res := Resolve(nil, "", "", t.TempDir(), "title", "mp4", 987654)
	assert.True(t, res.Estimated)
	assert.Equal(t, int64(987654), res.Size)
}
