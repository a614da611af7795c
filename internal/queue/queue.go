package queue

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ytget/mediaq/internal/model"
)

// ErrJobExists is returned when a job with the same id was already submitted.
var ErrJobExists = errors.New("job already exists")

// ErrDuplicateJob is returned when an equivalent request is already queued
// or active. This is a business rule, not a failure: double-clicks and
// playlist re-expansions hit it routinely.
var ErrDuplicateJob = errors.New("duplicate job")

// Entry pairs a request with its record. The queue owns the pairing for
// the job's lifetime; the engine mutates the record through UpdateRecord
// but never removes entries itself.
type Entry struct {
	ID      string           `json:"id"`
	Request model.JobRequest `json:"request"`
	Record  *model.JobRecord `json:"record"`
}

// clone returns an entry whose record is an independent copy. The queue
// never hands callers or callbacks its live record pointer; all reads
// outside the lock go through clones.
func (e Entry) clone() Entry {
	e.Record = e.Record.Clone()
	return e
}

// Summary is a point-in-time count of entries by state.
type Summary struct {
	Active int
	Queued int
}

// StartFunc is invoked, outside the queue lock, for every entry promoted
// to a running slot.
type StartFunc func(Entry)

// ChangeFunc is invoked, outside the queue lock, after every record
// mutation or membership change. Consumers include the session
// snapshotter and UI observers.
type ChangeFunc func(Entry)

// Queue is the bounded-concurrency scheduler.
type Queue struct {
	mu          sync.Mutex
	entries     map[string]Entry
	waiting     []string // FIFO of queued ids, submission order
	running     map[string]struct{}
	concurrency int

	onStart  []StartFunc
	onChange []ChangeFunc

	logger zerolog.Logger
}

// New creates a queue with the given concurrency limit (values below 1
// are treated as 1).
func New(concurrency int) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue{
		entries:     make(map[string]Entry),
		running:     make(map[string]struct{}),
		concurrency: concurrency,
		logger:      log.With().Str("component", "queue").Logger(),
	}
}

// OnStart registers a callback fired whenever an entry is promoted to a
// running slot. Registration is not synchronized with Submit; register
// all callbacks before submitting work.
func (q *Queue) OnStart(fn StartFunc) {
	q.onStart = append(q.onStart, fn)
}

// OnChange registers a callback fired after record updates and
// membership changes.
func (q *Queue) OnChange(fn ChangeFunc) {
	q.onChange = append(q.onChange, fn)
}

// Submit admits a new job. It is promoted immediately when a slot is
// free, otherwise parked at the tail of the FIFO. Returns ErrJobExists
// for a reused id and ErrDuplicateJob when an equivalent request is
// already queued or active.
func (q *Queue) Submit(req model.JobRequest, rec *model.JobRecord) error {
	q.mu.Lock()

	if _, ok := q.entries[rec.ID]; ok {
		q.mu.Unlock()
		return ErrJobExists
	}
	sig := req.Signature()
	for _, e := range q.entries {
		if e.Request.Signature() == sig {
			q.mu.Unlock()
			return ErrDuplicateJob
		}
	}

	entry := Entry{ID: rec.ID, Request: req, Record: rec}
	q.entries[rec.ID] = entry

	var started []Entry
	if len(q.running) < q.concurrency {
		q.running[rec.ID] = struct{}{}
		started = append(started, entry.clone())
	} else {
		q.waiting = append(q.waiting, rec.ID)
	}
	changed := entry.clone()
	q.mu.Unlock()

	q.logger.Debug().Str("job_id", rec.ID).Bool("promoted", len(started) > 0).Msg("job submitted")
	q.notifyChange(changed)
	q.notifyStart(started)
	return nil
}

// Remove drops the entry regardless of state and reports whether one was
// removed. Callers cancelling an active job must tear down its process
// before or immediately after this call; the queue does not enforce it.
// Freed slots promote waiting entries.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	entry, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return false
	}
	delete(q.entries, id)

	_, wasRunning := q.running[id]
	delete(q.running, id)
	q.dropWaitingLocked(id)

	var started []Entry
	if wasRunning {
		started = q.promoteLocked()
	}
	changed := entry.clone()
	q.mu.Unlock()

	q.logger.Debug().Str("job_id", id).Msg("job removed")
	q.notifyChange(changed)
	q.notifyStart(started)
	return true
}

// Completed releases the slot held by id after the engine has fully
// finished with its process, and promotes the head of the FIFO.
func (q *Queue) Completed(id string) {
	q.mu.Lock()
	entry, known := q.entries[id]
	delete(q.entries, id)
	delete(q.running, id)
	q.dropWaitingLocked(id)
	started := q.promoteLocked()
	if known {
		entry = entry.clone()
	}
	q.mu.Unlock()

	if known {
		q.notifyChange(entry)
	}
	q.notifyStart(started)
}

// SetConcurrency updates the limit. On increase, as many waiting entries
// are promoted as the new slack allows, in FIFO order; callers must
// expect a burst of start signals. On decrease, running jobs keep their
// slots until they finish.
func (q *Queue) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	q.mu.Lock()
	q.concurrency = n
	started := q.promoteLocked()
	q.mu.Unlock()

	q.logger.Debug().Int("concurrency", n).Int("promoted", len(started)).Msg("concurrency updated")
	q.notifyStart(started)
}

// Concurrency returns the current limit.
func (q *Queue) Concurrency() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.concurrency
}

// UpdateRecord applies mutate to the record of id under the queue lock
// and raises a change signal. Membership is unaffected. Returns false
// when the id is unknown. Status changes that violate the job state
// machine are applied but logged; the caller owns the lifecycle and a
// bad edge means a bug upstream, not a reason to drop telemetry.
func (q *Queue) UpdateRecord(id string, mutate func(*model.JobRecord)) bool {
	q.mu.Lock()
	entry, ok := q.entries[id]
	if !ok {
		q.mu.Unlock()
		return false
	}
	before := entry.Record.Status
	mutate(entry.Record)
	after := entry.Record.Status
	changed := entry.clone()
	q.mu.Unlock()

	if !model.IsValidTransition(before, after) {
		q.logger.Warn().
			Str("job_id", id).
			Str("from", before.String()).
			Str("to", after.String()).
			Msg("invalid status transition")
	}
	q.notifyChange(changed)
	return true
}

// Get returns a copy of the entry for id. Mutations to the returned
// record do not reach the queue; use UpdateRecord for that.
func (q *Queue) Get(id string) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Active returns a snapshot of running entries.
func (q *Queue) Active() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, 0, len(q.running))
	for id := range q.running {
		out = append(out, q.entries[id].clone())
	}
	return out
}

// Queued returns a snapshot of waiting entries in promotion order.
func (q *Queue) Queued() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, 0, len(q.waiting))
	for _, id := range q.waiting {
		out = append(out, q.entries[id].clone())
	}
	return out
}

// All returns a snapshot of every tracked entry, running entries first
// then waiting entries in promotion order. Used by the session
// snapshotter, which marshals the result with no lock held.
func (q *Queue) All() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, 0, len(q.entries))
	for id := range q.running {
		out = append(out, q.entries[id].clone())
	}
	for _, id := range q.waiting {
		out = append(out, q.entries[id].clone())
	}
	return out
}

// Summarize returns counts by state.
func (q *Queue) Summarize() Summary {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Summary{Active: len(q.running), Queued: len(q.waiting)}
}

// promoteLocked moves waiting entries into free slots, FIFO. Caller holds
// the lock; returned entries get start signals after it is released.
func (q *Queue) promoteLocked() []Entry {
	var started []Entry
	for len(q.running) < q.concurrency && len(q.waiting) > 0 {
		id := q.waiting[0]
		q.waiting = q.waiting[1:]
		entry, ok := q.entries[id]
		if !ok {
			continue
		}
		q.running[id] = struct{}{}
		started = append(started, entry.clone())
	}
	return started
}

func (q *Queue) dropWaitingLocked(id string) {
	for i, wid := range q.waiting {
		if wid == id {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return
		}
	}
}

func (q *Queue) notifyStart(entries []Entry) {
	for _, e := range entries {
		for _, fn := range q.onStart {
			fn(e)
		}
	}
}

func (q *Queue) notifyChange(entry Entry) {
	for _, fn := range q.onChange {
		fn(entry)
	}
}
