package cli

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/queue"
	"github.com/ytget/mediaq/internal/session"
)

type stubEnumerator struct {
	page *model.PlaylistPage
	err  error
}

func (s stubEnumerator) Enumerate(_ context.Context, _ string) (*model.PlaylistPage, error) {
	return s.page, s.err
}

func TestCollectSubmissionsPlainURLs(t *testing.T) {
	base := model.JobRequest{Kind: model.MediaKindVideo, Origin: model.OriginManual}
	subs, err := collectSubmissions(context.Background(), stubEnumerator{}, base,
		[]string{"https://example.com/watch?v=a", "https://example.com/watch?v=b"})
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "https://example.com/watch?v=a", subs[0].req.URL)
	assert.Equal(t, model.OriginManual, subs[0].req.Origin)
	assert.Nil(t, subs[0].link)
}

func TestCollectSubmissionsExpandsPlaylist(t *testing.T) {
	page := &model.PlaylistPage{
		ID:    "PL1",
		Title: "My Playlist",
		Items: []model.PlaylistItem{
			{VideoID: "v1", Title: "One", URL: "https://www.youtube.com/watch?v=v1"},
			{VideoID: "v2", Title: "Two", URL: "https://www.youtube.com/watch?v=v2"},
			{VideoID: "v3", Title: "Three", URL: "https://www.youtube.com/watch?v=v3"},
		},
	}
	base := model.JobRequest{Kind: model.MediaKindVideo, Origin: model.OriginManual}

	subs, err := collectSubmissions(context.Background(), stubEnumerator{page: page}, base,
		[]string{"https://www.youtube.com/watch?v=v1&list=PL1"})
	require.NoError(t, err)
	require.Len(t, subs, 3)

	for i, sub := range subs {
		assert.Equal(t, page.Items[i].URL, sub.req.URL)
		assert.Equal(t, model.OriginAuto, sub.req.Origin)
		require.NotNil(t, sub.link)
		assert.Equal(t, "My Playlist", sub.link.Title)
		assert.Equal(t, i+1, sub.link.Index)
		assert.Equal(t, 3, sub.link.Count)
	}
	// One expansion shares one group id.
	assert.Equal(t, subs[0].link.GroupID, subs[2].link.GroupID)
	assert.True(t, strings.HasPrefix(subs[0].link.GroupID, "PL1"))
}

func TestCollectSubmissionsPlaylistError(t *testing.T) {
	base := model.JobRequest{Kind: model.MediaKindVideo}
	_, err := collectSubmissions(context.Background(), stubEnumerator{err: errors.New("no such playlist")}, base,
		[]string{"https://www.youtube.com/watch?v=v1&list=PLgone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expand playlist")
}

func TestCollectSubmissionsEmptyPlaylistSkipped(t *testing.T) {
	base := model.JobRequest{Kind: model.MediaKindVideo}
	subs, err := collectSubmissions(context.Background(), stubEnumerator{page: &model.PlaylistPage{ID: "PL1"}}, base,
		[]string{"https://www.youtube.com/playlist?list=PL1", "https://example.com/watch?v=solo"})
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://example.com/watch?v=solo", subs[0].req.URL)
}

func TestPrintStatus(t *testing.T) {
	rec := model.NewJobRecord("job-1", model.JobRequest{URL: "https://example.com/watch?v=a"})
	rec.Title = "Waiting Clip"
	snap := session.Snapshot{
		Version:   1,
		UpdatedAt: time.Now(),
		Items:     []queue.Entry{{ID: "job-1", Record: rec}},
	}
	records := []model.JobRecord{
		{ID: "job-2", Title: "Finished Clip", Status: model.JobStatusCompleted},
		{ID: "job-3", Title: "Broken Clip", Status: model.JobStatusError, LastError: "exit status 1"},
	}

	var sb strings.Builder
	printStatus(&sb, snap, records)
	out := sb.String()

	assert.Contains(t, out, "session: 1 unfinished job(s)")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "Finished Clip")
	assert.Contains(t, out, "exit status 1")
}

func TestPrintStatusEmpty(t *testing.T) {
	var sb strings.Builder
	printStatus(&sb, session.Snapshot{}, nil)
	out := sb.String()

	assert.Contains(t, out, "session: 0 unfinished job(s)")
	assert.Contains(t, out, "history: empty")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly-10", truncate("exactly-10", 10))
	assert.Equal(t, "toolong...", truncate("toolong-string", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
