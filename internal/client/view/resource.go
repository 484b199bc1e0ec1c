// Package view holds the controllers behind each screen of the client. A
// controller owns one remote resource: it loads it, tracks whether it is
// loading, ready or failed, and applies the user's actions to it.
package view

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jeepedia/jeepedia/internal/apperror"
)

// State is the load state of a resource.
type State int

const (
	StateLoading State = iota
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Resource is the state shared by every controller. Each load is numbered;
// only the latest load may update the data, and nothing does once the
// resource is closed.
type Resource[T any] struct {
	name  string
	fetch func(ctx context.Context) (T, error)
	clone func(T) T
	log   *zap.Logger

	mu      sync.Mutex
	state   State
	data    T
	errMsg  string
	lastErr error
	seq     uint64
	closed  bool
	busy    map[string]bool
	mounted context.Context
	cancel  context.CancelFunc
}

// NewResource creates an unmounted resource. clone copies T for Snapshot;
// nil means T is returned as is.
func NewResource[T any](name string, fetch func(ctx context.Context) (T, error), clone func(T) T, log *zap.Logger) *Resource[T] {
	if log == nil {
		log = zap.NewNop()
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Resource[T]{
		name:  name,
		fetch: fetch,
		clone: clone,
		log:   log.With(zap.String("view", name)),
		busy:  make(map[string]bool),
	}
}

// Mount performs the initial load. Requests started through the resource are
// cancelled when ctx is done or Close is called.
func (r *Resource[T]) Mount(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return apperror.Cancelled(r.name)
	}
	if r.cancel == nil {
		r.mounted, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	r.mu.Unlock()
	return r.load(ctx)
}

// Refresh refetches the resource.
func (r *Resource[T]) Refresh(ctx context.Context) error {
	return r.load(ctx)
}

// Close unmounts the resource. Responses arriving afterwards are dropped.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
}

// Closed reports whether Close was called.
func (r *Resource[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Snapshot returns the state, a copy of the data and the load error message.
func (r *Resource[T]) Snapshot() (State, T, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.clone(r.data), r.errMsg
}

// State returns the load state.
func (r *Resource[T]) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// LastError returns the error of the most recent failed action, or nil.
func (r *Resource[T]) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Mutate applies fn to the data while holding the lock. It is a no-op unless
// the resource is ready and mounted.
func (r *Resource[T]) Mutate(fn func(*T)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateReady {
		return false
	}
	fn(&r.data)
	return true
}

// MutateTracked is Mutate that also returns the load generation the change
// was applied to, for a later MutateIf.
func (r *Resource[T]) MutateTracked(fn func(*T)) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateReady {
		return 0, false
	}
	fn(&r.data)
	return r.seq, true
}

// MutateIf applies fn only while gen is still the latest load, so a
// reconciliation never overwrites data a newer load replaced.
func (r *Resource[T]) MutateIf(gen uint64, fn func(*T)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateReady || r.seq != gen {
		return false
	}
	fn(&r.data)
	return true
}

// Begin marks action as in flight. A second Begin for the same action before
// End fails with apperror.ErrBusy.
func (r *Resource[T]) Begin(action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return apperror.Cancelled(action)
	}
	if r.busy[action] {
		return apperror.Busy(action)
	}
	r.busy[action] = true
	return nil
}

// End clears the in-flight mark set by Begin.
func (r *Resource[T]) End(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.busy, action)
}

// Busy reports whether action is in flight.
func (r *Resource[T]) Busy(action string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy[action]
}

// Run executes call as action: it rejects duplicates, binds ctx to the
// mount lifetime and records the outcome for LastError.
func (r *Resource[T]) Run(ctx context.Context, action string, call func(ctx context.Context) error) error {
	if err := r.Begin(action); err != nil {
		return err
	}
	defer r.End(action)

	ctx, cancel := r.bind(ctx)
	defer cancel()

	err := call(ctx)
	r.setActionError(err)
	if err != nil {
		r.log.Debug("action failed", zap.String("action", action), zap.Error(err))
	}
	return err
}

// Fail records err as the last action error without issuing a request.
func (r *Resource[T]) Fail(err error) error {
	r.setActionError(err)
	return err
}

func (r *Resource[T]) setActionError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastErr = err
}

func (r *Resource[T]) load(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return apperror.Cancelled(r.name)
	}
	r.seq++
	seq := r.seq
	r.state = StateLoading
	r.errMsg = ""
	r.mu.Unlock()

	ctx, cancel := r.bind(ctx)
	defer cancel()
	data, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return apperror.Cancelled(r.name)
	}
	if seq != r.seq {
		r.log.Debug("discarding stale response", zap.Uint64("seq", seq), zap.Uint64("latest", r.seq))
		return nil
	}
	if err != nil {
		r.state = StateError
		r.errMsg = apperror.Message(err)
		return err
	}
	r.state = StateReady
	r.data = data
	return nil
}

// bind derives a context that is also cancelled when the resource is closed.
func (r *Resource[T]) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	mounted := r.mounted
	r.mu.Unlock()
	if mounted == nil {
		return ctx, cancel
	}
	stop := context.AfterFunc(mounted, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
