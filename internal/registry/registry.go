// Package registry remembers the action owed to a trigger that has not yet
// decided, so a deferred timer can run it later.
//
// At most one action is pending per trigger identity; enqueueing again
// replaces the previous entry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dayuer/midimapper-go/internal/action"
	"github.com/dayuer/midimapper-go/internal/midi"
)

// ErrPendingMissing is returned by Fire when nothing is pending for the
// trigger, typically because the condition was superseded before its timer
// ran.
var ErrPendingMissing = errors.New("no pending response")

// Exec runs a to completion or hands it off. lane identifies the execution
// lane (the trigger identity) for runners that serialize per key.
type Exec func(ctx context.Context, lane string, a action.Action, env action.Env) error

// Inline executes the action on the caller's goroutine.
func Inline(ctx context.Context, _ string, a action.Action, env action.Env) error {
	return a.Execute(ctx, env)
}

// Config holds what every fired action receives.
type Config struct {
	Out     action.Output
	Channel int
	Keys    action.Injector
	Exec    Exec // Inline when nil
}

// Registry maps trigger identities to pending actions.
type Registry struct {
	mu      sync.Mutex
	pending map[string]action.Action
	cfg     Config
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	if cfg.Exec == nil {
		cfg.Exec = Inline
	}
	return &Registry{
		pending: make(map[string]action.Action),
		cfg:     cfg,
	}
}

// Enqueue stores a for trigger id, replacing any existing entry.
func (r *Registry) Enqueue(id string, a action.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[id] = a
}

// Dequeue removes and returns the entry for id.
func (r *Registry) Dequeue(id string) (action.Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dequeueLocked(id)
}

func (r *Registry) dequeueLocked(id string) (action.Action, bool) {
	a, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	return a, ok
}

// Fire dequeues the action for id and executes it with msg as the
// originating message. The whole sequence holds the registry lock so a
// concurrent Fire for the same id cannot run the action twice.
func (r *Registry) Fire(ctx context.Context, id string, msg midi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.dequeueLocked(id)
	if !ok {
		return fmt.Errorf("trigger %s: %w", id, ErrPendingMissing)
	}
	env := action.Env{
		Out:     r.cfg.Out,
		Channel: r.cfg.Channel,
		Msg:     msg,
		Keys:    r.cfg.Keys,
	}
	if err := r.cfg.Exec(ctx, id, a, env); err != nil {
		return fmt.Errorf("%s: %w", a, err)
	}
	return nil
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// IDs returns the pending trigger identities in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
