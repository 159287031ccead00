package registry

import (
	"path/filepath"
	"sync"
)

// Factory caches Registry instances keyed by state directory so that the
// many short-lived commands within one process share an instance (and its
// listeners). There is no hidden package-level registry: callers construct
// a Factory and pass it where needed.
type Factory struct {
	mu        sync.Mutex
	instances map[string]*Registry
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{instances: make(map[string]*Registry)}
}

// Get returns the cached registry for opts.RootDir, constructing one on
// first use. When forceNew is true the cache is bypassed and replaced.
func (f *Factory) Get(opts Options, forceNew bool) (*Registry, error) {
	key, err := filepath.Abs(opts.RootDir)
	if err != nil {
		key = filepath.Clean(opts.RootDir)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !forceNew {
		if r, ok := f.instances[key]; ok {
			return r, nil
		}
	}
	r, err := New(opts)
	if err != nil {
		return nil, err
	}
	f.instances[key] = r
	return r, nil
}

// Reset clears all cached instances. Primarily for test isolation and
// reconfiguration.
func (f *Factory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instances = make(map[string]*Registry)
}
