package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/kestreldev/kestrel/pkg/models"
)

const (
	// StateFileName is the registry document file name under the state dir.
	StateFileName = "registry.json"
	// LockSuffix is appended to the document path to form the lock path.
	LockSuffix = ".lock"
)

// StatePath returns the registry document path under rootDir.
func StatePath(rootDir string) string {
	return filepath.Join(rootDir, StateFileName)
}

// Store loads and saves the registry document.
type Store struct {
	path string
}

// New creates a store for the document at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted document. A missing or unparseable file yields
// a fresh empty document rather than an error: the registry self-heals
// from corruption instead of failing hard.
func (s *Store) Load() *models.RegistryState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.NewRegistryState()
	}

	var state models.RegistryState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.NewRegistryState()
	}
	if state.Tasks == nil {
		state.Tasks = make(map[string]*models.Task)
	}
	if state.TaskGroups == nil {
		state.TaskGroups = make(map[string]*models.TaskGroup)
	}
	if state.SchemaVersion == 0 {
		state.SchemaVersion = models.SchemaVersion
	}
	return &state
}

// Save writes the document atomically.
func (s *Store) Save(state *models.RegistryState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(s.path, data)
}
