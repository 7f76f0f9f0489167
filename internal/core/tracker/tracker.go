// Package tracker records the entities a backend creates while a build
// operation runs.
package tracker

import (
	"fmt"
	"sync"

	"github.com/zeusync/rigsmith/internal/core/observability/log"
	"github.com/zeusync/rigsmith/internal/core/scene"
	"github.com/zeusync/rigsmith/pkg/sequence"
)

// Tracker subscribes to the backend creation feed between Start and Stop and
// keeps every created handle in creation order.
type Tracker struct {
	mu      sync.Mutex
	backend scene.Backend
	logger  log.Log
	sub     scene.Subscription
	seen    map[scene.Handle]struct{}
	handles []scene.Handle
}

func New(backend scene.Backend, logger log.Log) *Tracker {
	return &Tracker{
		backend: backend,
		logger:  log.OrNop(logger),
		seen:    make(map[scene.Handle]struct{}),
	}
}

// Start begins recording. Starting an active tracker is a no-op.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub != nil {
		return nil
	}
	sub, err := t.backend.SubscribeEntityCreated(t.record)
	if err != nil {
		return fmt.Errorf("tracker: subscribe: %w", err)
	}
	t.sub = sub
	return nil
}

func (t *Tracker) record(h scene.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.seen[h]; dup {
		return
	}
	t.seen[h] = struct{}{}
	t.handles = append(t.handles, h)
}

// Stop ends recording. Stopping an inactive tracker is a no-op.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()
	if sub == nil {
		return nil
	}
	if err := t.backend.Unsubscribe(sub); err != nil {
		return fmt.Errorf("tracker: unsubscribe: %w", err)
	}
	return nil
}

func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sub != nil
}

// Track runs fn with recording enabled. Recording stops on every exit path;
// a panic in fn is re-raised after the tracker is stopped.
func (t *Tracker) Track(fn func() error) (err error) {
	if err = t.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := t.Stop(); stopErr != nil {
			t.logger.Error("tracker failed to stop", log.Error(stopErr))
			if err == nil {
				err = stopErr
			}
		}
	}()
	return fn()
}

// Entities returns the recorded handles that still exist, excluding backend
// bookkeeping entities. Handles that no longer exist are forgotten.
func (t *Tracker) Entities() []scene.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	live := sequence.From(t.handles).Filter(t.backend.EntityExists).Collect()
	if len(live) != len(t.handles) {
		t.prune(live)
	}
	return sequence.From(live).Filter(func(h scene.Handle) bool {
		kind, err := t.backend.EntityKind(h)
		return err == nil && kind != scene.KindInternal
	}).Collect()
}

func (t *Tracker) prune(live []scene.Handle) {
	t.handles = live
	t.seen = sequence.ToSet(sequence.From(live))
}

// Add records handles created outside a tracking scope.
func (t *Tracker) Add(handles ...scene.Handle) {
	for _, h := range handles {
		t.record(h)
	}
}

// Reset forgets every recorded handle. It does not stop recording.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles = nil
	t.seen = make(map[scene.Handle]struct{})
}

func (t *Tracker) Len() int {
	return len(t.Entities())
}
