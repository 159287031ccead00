package store

import (
	"encoding/json"
	"os"
	"time"
)

// Default lock tuning. Lock acquisition at CLI scale is contended for
// milliseconds, so a short poll interval keeps latency low.
const (
	DefaultLockTimeout = 5 * time.Second
	DefaultLockStale   = 30 * time.Second

	lockPollInitial = 10 * time.Millisecond
	lockPollMax     = 200 * time.Millisecond
)

// lockInfo is the sidecar lock file payload.
type lockInfo struct {
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// FileLock is an advisory cross-process lock backed by a sidecar file.
// A holder that crashes leaves the file behind; any waiter reclaims it
// once the file's age exceeds the staleness threshold.
type FileLock struct {
	path    string
	timeout time.Duration
	stale   time.Duration
	held    bool
}

// LockOptions tunes a FileLock. Zero values fall back to the defaults.
type LockOptions struct {
	// Timeout bounds how long Acquire polls before giving up.
	Timeout time.Duration
	// Stale is the age past which an existing lock file is treated as
	// abandoned and removed.
	Stale time.Duration
}

// NewFileLock creates a lock for the given sidecar path.
func NewFileLock(path string, opts LockOptions) *FileLock {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLockTimeout
	}
	if opts.Stale <= 0 {
		opts.Stale = DefaultLockStale
	}
	return &FileLock{path: path, timeout: opts.Timeout, stale: opts.Stale}
}

// Acquire attempts to take the lock, polling with backoff until the
// timeout elapses. It returns false on timeout and never returns an
// error: contention and transient I/O failures both surface as retries.
func (l *FileLock) Acquire() bool {
	deadline := time.Now().Add(l.timeout)
	wait := lockPollInitial

	for {
		if l.tryAcquire() {
			l.held = true
			return true
		}
		l.reclaimStale()

		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(wait)
		wait *= 2
		if wait > lockPollMax {
			wait = lockPollMax
		}
	}
}

// tryAcquire attempts a single exclusive create of the lock file.
func (l *FileLock) tryAcquire() bool {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return false
	}
	info := lockInfo{PID: os.Getpid(), Acquired: time.Now().UTC()}
	data, _ := json.Marshal(info)
	f.Write(data)
	f.Close()
	return true
}

// reclaimStale removes the lock file when its holder appears to have
// crashed: the recorded acquisition time (or, failing that, the file
// mtime) is older than the staleness threshold.
func (l *FileLock) reclaimStale() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}

	var acquired time.Time
	var info lockInfo
	if err := json.Unmarshal(data, &info); err == nil && !info.Acquired.IsZero() {
		acquired = info.Acquired
	} else if st, err := os.Stat(l.path); err == nil {
		acquired = st.ModTime()
	} else {
		return
	}

	if time.Since(acquired) > l.stale {
		os.Remove(l.path)
	}
}

// Release deletes the lock file, but only if this instance holds it.
func (l *FileLock) Release() {
	if !l.held {
		return
	}
	l.held = false
	os.Remove(l.path)
}

// Held reports whether this instance currently holds the lock.
func (l *FileLock) Held() bool {
	return l.held
}
