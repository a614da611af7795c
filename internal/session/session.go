package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/queue"
)

// snapshotVersion guards against format drift between releases.
const snapshotVersion = 1

// saveInterval coalesces the write storm produced by progress updates
// into at most one disk write per interval.
const saveInterval = 1 * time.Second

// Snapshot is the on-disk shape of the live queue.
type Snapshot struct {
	Version   int           `json:"version"`
	UpdatedAt time.Time     `json:"updated_at"`
	Items     []queue.Entry `json:"items"`
}

// Snapshotter mirrors queue state to a JSON file. Save requests are
// debounced; Flush forces a synchronous write for shutdown paths.
type Snapshotter struct {
	path      string
	q         *queue.Queue
	debounced func(func())
	logger    zerolog.Logger
}

// NewSnapshotter attaches a snapshotter to q, persisting at path. It
// registers for change signals; create it before submitting work.
func NewSnapshotter(path string, q *queue.Queue) *Snapshotter {
	s := &Snapshotter{
		path:      path,
		q:         q,
		debounced: debounce.New(saveInterval),
		logger:    log.With().Str("component", "session").Logger(),
	}
	q.OnChange(func(queue.Entry) { s.Schedule() })
	return s
}

// Schedule requests a save. Consecutive calls within the debounce window
// collapse into one write.
func (s *Snapshotter) Schedule() {
	s.debounced(func() {
		if err := s.save(); err != nil {
			s.logger.Warn().Err(err).Msg("session save failed")
		}
	})
}

// Flush writes the current queue state immediately. Call on shutdown so
// the last debounce window is not lost.
func (s *Snapshotter) Flush() error {
	return s.save()
}

func (s *Snapshotter) save() error {
	snap := Snapshot{
		Version:   snapshotVersion,
		UpdatedAt: time.Now(),
		Items:     s.q.All(),
	}
	return Save(s.path, snap)
}

// Save writes snap to path atomically via a temp file rename.
func Save(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads the snapshot at path. A missing, empty, corrupt, or
// version-mismatched file yields an empty snapshot: restore is
// best-effort and must never block startup.
func Load(path string) Snapshot {
	empty := Snapshot{Version: snapshotVersion}

	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return empty
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("discarding unreadable session snapshot")
		return empty
	}
	if snap.Version != snapshotVersion {
		log.Warn().Int("version", snap.Version).Str("path", path).Msg("discarding incompatible session snapshot")
		return empty
	}
	return snap
}

// TerminalChecker reports whether a job id already reached a terminal
// state in durable history, making a restore redundant.
type TerminalChecker interface {
	GetByID(id string) (*model.JobRecord, bool, error)
}

// SubmitFunc resubmits one snapshot item under its original id.
type SubmitFunc func(id string, req model.JobRequest) (*model.JobRecord, error)

// Restore replays snapshot items through submit, skipping ids that
// history already shows as terminal. Partial progress is intentionally
// discarded: restored jobs start over as pending. Returns the ids that
// were resubmitted.
func Restore(snap Snapshot, history TerminalChecker, submit SubmitFunc) []string {
	var restored []string
	for _, item := range snap.Items {
		if item.ID == "" || item.Request.URL == "" {
			continue
		}
		if rec, ok, err := history.GetByID(item.ID); err == nil && ok && rec.Status.IsTerminal() {
			continue
		}
		if _, err := submit(item.ID, item.Request); err != nil {
			log.Warn().Err(err).Str("job_id", item.ID).Msg("session restore skipped job")
			continue
		}
		restored = append(restored, item.ID)
	}
	return restored
}
