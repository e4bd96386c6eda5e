package system

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"automata/internal/core"
	"automata/internal/logging"
	"automata/internal/store"
)

const recorderBuffer = 256

// journalRecorder moves scheduler events to the journal on its own
// goroutine. Events arrive while the exclusive lock is held, so Record
// never touches the database.
type journalRecorder struct {
	journal *store.Journal
	ch      chan store.Entry

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	done    chan struct{}
}

func newJournalRecorder(j *store.Journal) *journalRecorder {
	r := &journalRecorder{
		journal: j,
		ch:      make(chan store.Entry, recorderBuffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record implements core.Recorder.
func (r *journalRecorder) Record(ev core.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.ch <- entryOf(ev):
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			logging.StoreWarn("journal backlog full, dropped %d events", n)
		}
	}
}

func (r *journalRecorder) run() {
	defer close(r.done)
	for e := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.journal.Record(ctx, e); err != nil {
			logging.StoreWarn("journal write failed: %v", err)
		}
		cancel()
	}
}

// Close flushes queued events and stops the writer.
func (r *journalRecorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()
	<-r.done
}

func entryOf(ev core.Event) store.Entry {
	return store.Entry{
		At:         ev.At,
		Type:       string(ev.Type),
		Kind:       ev.Kind,
		InstanceID: ev.InstanceID,
		Source:     ev.Source.String(),
		Reason:     string(ev.Reason),
		Detail:     ev.Detail,
	}
}
