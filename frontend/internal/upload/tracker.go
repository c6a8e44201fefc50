package upload

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Transport string

const (
	TransportDirect   Transport = "direct"
	TransportFallback Transport = "fallback"
)

type Status string

const (
	StatusUploading Status = "uploading"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
)

// maxFinished bounds how many completed uploads a tracker remembers.
const maxFinished = 100

// Entry is the observable state of one upload.
type Entry struct {
	TrackingID string
	Filename   string
	Size       int64
	Transport  Transport
	Percent    int
	Status     Status
	Err        string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// Tracker records the uploads of one composition session. A nil *Tracker ignores
// every call.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*Entry), now: time.Now}
}

// Begin registers an upload and returns its tracking id.
func (t *Tracker) Begin(filename string, size int64) string {
	id := uuid.NewString()
	if t == nil {
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.entries[id] = &Entry{
		TrackingID: id,
		Filename:   filename,
		Size:       size,
		Status:     StatusUploading,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	t.order = append(t.order, id)
	t.prune()
	return id
}

// SetTransport switches the entry to another transport. Percent restarts at zero.
func (t *Tracker) SetTransport(id string, transport Transport) {
	t.update(id, func(e *Entry) {
		if e.Transport != transport {
			e.Percent = 0
		}
		e.Transport = transport
	})
}

// Progress never lowers the recorded percentage for the current transport.
func (t *Tracker) Progress(id string, percent int) {
	t.update(id, func(e *Entry) {
		if percent > e.Percent {
			e.Percent = min(percent, 100)
		}
	})
}

func (t *Tracker) Finish(id string, err error) {
	t.update(id, func(e *Entry) {
		if err != nil {
			e.Status = StatusFailed
			e.Err = err.Error()
			return
		}
		e.Status = StatusDone
		e.Percent = 100
	})
}

// Snapshot returns copies of all entries in start order.
func (t *Tracker) Snapshot() []Entry {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.entries[id])
	}
	return out
}

// Active reports how many uploads are still running.
func (t *Tracker) Active() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, e := range t.entries {
		if e.Status == StatusUploading {
			n++
		}
	}
	return n
}

func (t *Tracker) update(id string, fn func(*Entry)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok {
		fn(e)
		e.UpdatedAt = t.now()
	}
}

// prune drops the oldest finished entries beyond maxFinished. Caller holds mu.
func (t *Tracker) prune() {
	finished := 0
	for _, id := range t.order {
		if t.entries[id].Status != StatusUploading {
			finished++
		}
	}
	if finished <= maxFinished {
		return
	}

	kept := t.order[:0]
	for _, id := range t.order {
		if finished > maxFinished && t.entries[id].Status != StatusUploading {
			delete(t.entries, id)
			finished--
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}
