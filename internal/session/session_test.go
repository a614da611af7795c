package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/queue"
)

func snapshotPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := snapshotPath(t)
	req := model.JobRequest{URL: "https://example.com/watch?v=abc", Kind: model.MediaKindVideo}
	rec := model.NewJobRecord("job-1", req)
	rec.Status = model.JobStatusDownloading
	rec.Percent = 42.5

	in := Snapshot{
		Version:   snapshotVersion,
		UpdatedAt: time.Now(),
		Items:     []queue.Entry{{ID: "job-1", Request: req, Record: rec}},
	}
	require.NoError(t, Save(path, in))

	out := Load(path)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "job-1", out.Items[0].ID)
	assert.Equal(t, req.URL, out.Items[0].Request.URL)
	require.NotNil(t, out.Items[0].Record)
	assert.Equal(t, model.JobStatusDownloading, out.Items[0].Record.Status)
	assert.Equal(t, 42.5, out.Items[0].Record.Percent)
}

func TestLoadMissingFile(t *testing.T) {
	out := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Empty(t, out.Items)
	assert.Equal(t, snapshotVersion, out.Version)
}

func TestLoadCorruptFile(t *testing.T) {
	path := snapshotPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	out := Load(path)
	assert.Empty(t, out.Items)
}

func TestLoadVersionMismatch(t *testing.T) {
	path := snapshotPath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "items": [{"id": "job-1"}]}`), 0o644))

	out := Load(path)
	assert.Empty(t, out.Items)
}

func TestSnapshotterFlushCapturesQueue(t *testing.T) {
	path := snapshotPath(t)
	q := queue.New(1)
	s := NewSnapshotter(path, q)

	first := model.JobRequest{URL: "https://example.com/watch?v=one"}
	second := model.JobRequest{URL: "https://example.com/watch?v=two"}
	require.NoError(t, q.Submit(first, model.NewJobRecord("job-1", first)))
	require.NoError(t, q.Submit(second, model.NewJobRecord("job-2", second)))

	require.NoError(t, s.Flush())

	out := Load(path)
	require.Len(t, out.Items, 2)
	// Running entries come first, then waiting in promotion order.
	assert.Equal(t, "job-1", out.Items[0].ID)
	assert.Equal(t, "job-2", out.Items[1].ID)
}

func TestSnapshotterDebouncesWrites(t *testing.T) {
	path := snapshotPath(t)
	q := queue.New(2)
	s := NewSnapshotter(path, q)

	req := model.JobRequest{URL: "https://example.com/watch?v=burst"}
	require.NoError(t, q.Submit(req, model.NewJobRecord("job-1", req)))
	for i := 0; i < 50; i++ {
		q.UpdateRecord("job-1", func(r *model.JobRecord) { r.Percent = float64(i) })
	}

	// Nothing should hit disk before the debounce window elapses.
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Flush())
	out := Load(path)
	require.Len(t, out.Items, 1)
	assert.Equal(t, float64(49), out.Items[0].Record.Percent)
}

func TestSnapshotterFlushDuringRecordUpdates(t *testing.T) {
	path := snapshotPath(t)
	q := queue.New(1)
	s := NewSnapshotter(path, q)

	req := model.JobRequest{URL: "https://example.com/watch?v=live"}
	require.NoError(t, q.Submit(req, model.NewJobRecord("job-1", req)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			pct := float64(i % 101)
			q.UpdateRecord("job-1", func(r *model.JobRecord) {
				r.Status = model.JobStatusDownloading
				r.Percent = pct
				r.Speed = "1.2MiB/s"
			})
		}
	}()

	// Marshalling must see a consistent copy even while the record is
	// being hammered.
	for i := 0; i < 50; i++ {
		require.NoError(t, s.Flush())
	}
	<-done
	require.NoError(t, s.Flush())

	out := Load(path)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "job-1", out.Items[0].ID)
	assert.Equal(t, model.JobStatusDownloading, out.Items[0].Record.Status)
}

type stubHistory struct {
	records map[string]model.JobRecord
}

func (s stubHistory) GetByID(id string) (*model.JobRecord, bool, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func TestRestoreSkipsTerminalAndInvalid(t *testing.T) {
	snap := Snapshot{
		Version: snapshotVersion,
		Items: []queue.Entry{
			{ID: "job-done", Request: model.JobRequest{URL: "https://example.com/1"}},
			{ID: "job-live", Request: model.JobRequest{URL: "https://example.com/2"}},
			{ID: "", Request: model.JobRequest{URL: "https://example.com/3"}},
			{ID: "job-nourl", Request: model.JobRequest{}},
		},
	}
	history := stubHistory{records: map[string]model.JobRecord{
		"job-done": {ID: "job-done", Status: model.JobStatusCompleted},
	}}

	var submitted []string
	restored := Restore(snap, history, func(id string, req model.JobRequest) (*model.JobRecord, error) {
		submitted = append(submitted, id)
		return model.NewJobRecord(id, req), nil
	})

	assert.Equal(t, []string{"job-live"}, restored)
	assert.Equal(t, []string{"job-live"}, submitted)
}

func TestRestoreContinuesPastSubmitErrors(t *testing.T) {
	snap := Snapshot{
		Version: snapshotVersion,
		Items: []queue.Entry{
			{ID: "job-a", Request: model.JobRequest{URL: "https://example.com/a"}},
			{ID: "job-b", Request: model.JobRequest{URL: "https://example.com/b"}},
		},
	}

	restored := Restore(snap, stubHistory{}, func(id string, req model.JobRequest) (*model.JobRecord, error) {
		if id == "job-a" {
			return nil, queue.ErrDuplicateJob
		}
		return model.NewJobRecord(id, req), nil
	})

	assert.Equal(t, []string{"job-b"}, restored)
}
