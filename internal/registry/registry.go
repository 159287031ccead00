// Package registry is the coordination core: CRUD over tasks, the task
// lifecycle, the dependency graph, task groups, the audit trail and the
// query surface, all persisted to a single JSON document guarded by a
// cross-process file lock.
//
// Every mutating operation follows the same protocol: acquire the lock,
// load the persisted document, validate, mutate in memory, save
// atomically, release the lock, then dispatch events. Rejected mutations
// never write. Read-only queries skip the lock and read the latest
// persisted snapshot.
package registry

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kestreldev/kestrel/internal/store"
	"github.com/kestreldev/kestrel/pkg/models"
)

// Archiver receives tasks removed by retention sweeps. Implementations
// must not call back into the registry.
type Archiver interface {
	ArchiveTask(task *models.Task, entries []models.AuditLogEntry) error
}

// Options configures a Registry.
type Options struct {
	// RootDir is the state directory holding the registry document.
	RootDir string
	// LockTimeout bounds lock acquisition. Zero uses the store default.
	LockTimeout time.Duration
	// LockStale is the staleness threshold for abandoned lock reclamation.
	LockStale time.Duration
	// Actor is recorded on audit log entries, if set.
	Actor string
	// Archiver, if set, receives tasks swept by Cleanup.
	Archiver Archiver
	// Logf is an optional debug logging function. No-op when nil.
	Logf func(format string, args ...interface{})
}

// Registry coordinates tasks for short-lived processes sharing one state
// document. Instances are cheap: all state lives on disk.
type Registry struct {
	rootDir string
	st      *store.Store
	lock    *store.FileLock
	events  *emitter
	actor   string
	archive Archiver
	logf    func(format string, args ...interface{})
	now     func() time.Time
}

// New creates a registry rooted at opts.RootDir.
func New(opts Options) (*Registry, error) {
	if opts.RootDir == "" {
		return nil, fmt.Errorf("%w: root dir is required", ErrValidation)
	}
	path := store.StatePath(opts.RootDir)
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Registry{
		rootDir: opts.RootDir,
		st:      store.New(path),
		lock: store.NewFileLock(path+store.LockSuffix, store.LockOptions{
			Timeout: opts.LockTimeout,
			Stale:   opts.LockStale,
		}),
		events:  newEmitter(),
		actor:   opts.Actor,
		archive: opts.Archiver,
		logf:    logf,
		now:     time.Now,
	}, nil
}

// RootDir returns the state directory this registry is rooted at.
func (r *Registry) RootDir() string {
	return r.rootDir
}

// StatePath returns the path of the persisted document.
func (r *Registry) StatePath() string {
	return r.st.Path()
}

// Subscribe registers a listener for the named event type and returns a
// token for Unsubscribe.
func (r *Registry) Subscribe(t EventType, fn Listener) int {
	return r.events.subscribe(t, fn)
}

// Unsubscribe removes a previously registered listener.
func (r *Registry) Unsubscribe(t EventType, id int) {
	r.events.unsubscribe(t, id)
}

// mutate runs fn under the lock against the freshly loaded document,
// saves atomically on success and dispatches the returned events after
// the save. The lock is released on every exit path; fn errors leave the
// persisted document untouched.
func (r *Registry) mutate(fn func(st *models.RegistryState) ([]Event, error)) error {
	events, err := func() ([]Event, error) {
		if !r.lock.Acquire() {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, r.st.Path()+store.LockSuffix)
		}
		defer r.lock.Release()

		st := r.st.Load()
		events, err := fn(st)
		if err != nil {
			return nil, err
		}
		if err := r.st.Save(st); err != nil {
			return nil, fmt.Errorf("save registry state: %w", err)
		}
		return events, nil
	}()
	if err != nil {
		return err
	}
	r.events.dispatch(events)
	return nil
}

// snapshot loads the latest persisted document without taking the lock.
// Readers rely on atomic renames: they never see a partial document.
func (r *Registry) snapshot() *models.RegistryState {
	return r.st.Load()
}

// newTaskID generates a unique task id.
func newTaskID() string {
	return "task-" + uuid.New().String()[:8]
}

// newGroupID generates a unique group id.
func newGroupID() string {
	return "group-" + uuid.New().String()[:8]
}

// audit appends a transition record to the document's audit log.
func (r *Registry) audit(st *models.RegistryState, taskID string, from, to models.TaskState) {
	st.AuditLog = append(st.AuditLog, models.AuditLogEntry{
		TaskID:    taskID,
		FromState: from,
		ToState:   to,
		At:        r.now(),
		Actor:     r.actor,
	})
}

// DefaultRootDir returns the conventional state directory under projectRoot.
func DefaultRootDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".kestrel")
}
