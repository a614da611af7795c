package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/mediaq/internal/platform"
)

func TestStore_DefaultsWhenMissing(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)

	got := store.Current()
	assert.Equal(t, DefaultMaxParallel, got.MaxParallel)
	assert.Equal(t, DefaultQualityPreset, got.QualityPreset)
	assert.Equal(t, DefaultFilenameTemplate, got.FilenameTemplate)
	assert.NotEmpty(t, got.DownloadDir)
}

func TestDefaultDownloadDirFollowsHome(t *testing.T) {
	home, err := platform.GetHomeDownloadsDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	assert.Equal(t, home, DefaultSettings().DownloadDir)
}

func TestStore_UpdateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	store, err := NewStore(path)
	require.NoError(t, err)

	want := store.Current()
	want.MaxParallel = 4
	want.Proxy = "socks5://127.0.0.1:1080"
	want.WatermarkEnabled = true
	require.NoError(t, store.Update(want))

	reopened, err := NewStore(path)
	require.NoError(t, err)
	assert.Equal(t, want, reopened.Current())
}

func TestStore_ClampsParallelism(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{0, DefaultMaxParallel},
		{-3, DefaultMaxParallel},
		{1, 1},
		{10, 10},
		{50, MaxParallel},
	}

	for _, test := range tests {
		got := normalize(Settings{MaxParallel: test.in})
		assert.Equal(t, test.expected, got.MaxParallel, "MaxParallel=%d", test.in)
	}
}

func TestStore_MalformedFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path)
	assert.Error(t, err)
}

func TestSelectorForPreset(t *testing.T) {
	tests := []struct {
		preset   QualityPreset
		expected string
	}{
		{QualityBest, "bestvideo+bestaudio/best"},
		{QualityAudio, "bestaudio/best"},
		{QualityMedium, "bestvideo[height<=720]+bestaudio/best[height<=720]"},
		{QualityPreset("unknown"), "bestvideo[height<=720]+bestaudio/best[height<=720]"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, SelectorForPreset(test.preset), string(test.preset))
	}
}
