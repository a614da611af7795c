package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"

	"github.com/ytget/mediaq/internal/model"
	"github.com/ytget/mediaq/internal/queue"
)

const (
	// logFlushInterval bounds how often accumulated process output is
	// pushed into the job record.
	logFlushInterval = 500 * time.Millisecond

	// maxLogBytes caps the in-memory log kept per job. Output past the
	// cap is dropped; the head of the log is what diagnostics need.
	maxLogBytes = 256 * 1024
)

// logBuffer accumulates normalized process output and flushes it into
// the job record on a debounce timer, only when content changed. Close
// flushes synchronously so the last lines are never lost.
type logBuffer struct {
	q  *queue.Queue
	id string

	mu         sync.Mutex
	buf        strings.Builder
	flushedLen int

	debounced func(func())
}

func newLogBuffer(q *queue.Queue, id string) *logBuffer {
	return &logBuffer{
		q:         q,
		id:        id,
		debounced: debounce.New(logFlushInterval),
	}
}

// Append adds one output line, normalizing stray carriage returns.
func (b *logBuffer) Append(line string) {
	line = strings.ReplaceAll(line, "\r", "")

	b.mu.Lock()
	if b.buf.Len() < maxLogBytes {
		b.buf.WriteString(line)
		b.buf.WriteByte('\n')
	}
	b.mu.Unlock()

	b.debounced(b.flush)
}

// Close flushes any pending content immediately. A debounce timer that
// fires afterwards sees unchanged content and no-ops.
func (b *logBuffer) Close() {
	b.flush()
}

func (b *logBuffer) flush() {
	b.mu.Lock()
	content := b.buf.String()
	changed := len(content) != b.flushedLen
	b.flushedLen = len(content)
	b.mu.Unlock()

	if !changed {
		return
	}
	b.q.UpdateRecord(b.id, func(r *model.JobRecord) {
		r.Log = content
	})
}
