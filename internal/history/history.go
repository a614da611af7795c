package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/model"
)

// Store persists job records to a JSON file. All operations take the
// in-process mutex and an advisory file lock, so multiple processes can
// share one history file.
type Store struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger zerolog.Logger
}

// file is the on-disk shape: records keyed by job id.
type file struct {
	Records map[string]model.JobRecord `json:"records"`
}

// NewStore opens (or prepares to create) the history file at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: log.With().Str("component", "history").Logger(),
	}, nil
}

// Upsert merges rec into the stored record for id. Zero-valued fields in
// rec do not clobber previously stored values, so partial updates from
// different lifecycle stages accumulate instead of erasing each other.
func (s *Store) Upsert(id string, rec model.JobRecord) error {
	return s.withFile(func(f *file) {
		existing, ok := f.Records[id]
		if !ok {
			rec.ID = id
			f.Records[id] = rec
			return
		}
		f.Records[id] = merge(existing, rec)
	})
}

// Remove deletes the record for id. Removing an absent id is a no-op.
func (s *Store) Remove(id string) error {
	return s.withFile(func(f *file) {
		delete(f.Records, id)
	})
}

// RemoveMany deletes several records in one locked write.
func (s *Store) RemoveMany(ids []string) error {
	return s.withFile(func(f *file) {
		for _, id := range ids {
			delete(f.Records, id)
		}
	})
}

// GetByID returns the stored record for id.
func (s *Store) GetByID(id string) (*model.JobRecord, bool, error) {
	var rec model.JobRecord
	var found bool
	err := s.withFileRead(func(f *file) {
		rec, found = f.Records[id]
	})
	if err != nil || !found {
		return nil, false, err
	}
	return &rec, true, nil
}

// List returns all records, newest first by creation time.
func (s *Store) List() ([]model.JobRecord, error) {
	var out []model.JobRecord
	err := s.withFileRead(func(f *file) {
		out = make([]model.JobRecord, 0, len(f.Records))
		for _, rec := range f.Records {
			out = append(out, rec)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) withFile(mutate func(*file)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn().Err(err).Msg("history unlock failed")
		}
	}()

	f, err := s.load()
	if err != nil {
		return err
	}
	mutate(f)
	return s.save(f)
}

func (s *Store) withFileRead(read func(*file)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.RLock(); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn().Err(err).Msg("history unlock failed")
		}
	}()

	f, err := s.load()
	if err != nil {
		return err
	}
	read(f)
	return nil
}

// load reads the current file. Missing and empty files start fresh; a
// corrupt file is an error, not silent data loss.
func (s *Store) load() (*file, error) {
	f := &file{Records: make(map[string]model.JobRecord)}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) || (err == nil && len(data) == 0) {
		return f, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	if f.Records == nil {
		f.Records = make(map[string]model.JobRecord)
	}
	return f, nil
}

func (s *Store) save(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// merge overlays incoming onto existing, keeping existing values where
// the incoming field is zero.
func merge(existing, incoming model.JobRecord) model.JobRecord {
	out := existing

	if incoming.Title != "" {
		out.Title = incoming.Title
	}
	if incoming.Thumbnail != "" {
		out.Thumbnail = incoming.Thumbnail
	}
	if incoming.Duration != "" {
		out.Duration = incoming.Duration
	}
	if incoming.Uploader != "" {
		out.Uploader = incoming.Uploader
	}
	if incoming.Description != "" {
		out.Description = incoming.Description
	}
	if incoming.ViewCount != 0 {
		out.ViewCount = incoming.ViewCount
	}
	if incoming.Status != "" {
		out.Status = incoming.Status
	}
	if incoming.Percent != 0 {
		out.Percent = incoming.Percent
	}
	if incoming.Speed != "" {
		out.Speed = incoming.Speed
	}
	if incoming.ETA != "" {
		out.ETA = incoming.ETA
	}
	if incoming.DownloadedBytes != 0 {
		out.DownloadedBytes = incoming.DownloadedBytes
	}
	if incoming.TotalBytes != 0 {
		out.TotalBytes = incoming.TotalBytes
	}
	if !incoming.CreatedAt.IsZero() {
		out.CreatedAt = incoming.CreatedAt
	}
	if !incoming.StartedAt.IsZero() {
		out.StartedAt = incoming.StartedAt
	}
	if !incoming.FinishedAt.IsZero() {
		out.FinishedAt = incoming.FinishedAt
	}
	if incoming.Rendition != "" {
		out.Rendition = incoming.Rendition
	}
	if incoming.Filename != "" {
		out.Filename = incoming.Filename
	}
	if incoming.FileSize != 0 {
		out.FileSize = incoming.FileSize
	}
	if incoming.LastError != "" {
		out.LastError = incoming.LastError
	}
	if incoming.Invocation != "" {
		out.Invocation = incoming.Invocation
	}
	if incoming.Log != "" {
		out.Log = incoming.Log
	}
	if incoming.Playlist != nil {
		out.Playlist = incoming.Playlist
	}
	return out
}
