// Package watch observes the registry document for cross-process changes.
// Commands in other processes mutate the document via atomic renames; the
// watcher surfaces those renames as change notifications.
package watch

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses the create/rename bursts an atomic write produces
// into a single notification.
const debounce = 50 * time.Millisecond

// Watcher delivers a signal on Changes whenever the watched file is
// rewritten by any process.
type Watcher struct {
	path    string
	fw      *fsnotify.Watcher
	changes chan struct{}
	done    chan struct{}
}

// New starts watching the file at path. The parent directory is watched
// rather than the file itself: atomic renames replace the inode, which
// would silently detach a direct file watch.
func New(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		fw:      fw,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Changes returns the notification channel. It carries at most one
// pending signal; slow consumers observe coalesced changes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}
		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case <-w.fw.Errors:
			// Ignore errors, keep watching.
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() {
	close(w.done)
	w.fw.Close()
}
