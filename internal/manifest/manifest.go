// Package manifest loads task plans from YAML files and applies them to
// the registry in dependency order.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kestreldev/kestrel/internal/graph"
	"github.com/kestreldev/kestrel/internal/registry"
	"github.com/kestreldev/kestrel/pkg/models"
)

// Manifest is a declarative plan of tasks and groups.
type Manifest struct {
	Tasks  []models.TaskSpec  `yaml:"tasks"`
	Groups []models.GroupSpec `yaml:"groups,omitempty"`
}

// Load parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Tasks) == 0 {
		return nil, fmt.Errorf("%w: manifest has no tasks", registry.ErrValidation)
	}
	for i, spec := range m.Tasks {
		if spec.ID == "" {
			return nil, fmt.Errorf("%w: manifest task %d has no id", registry.ErrValidation, i)
		}
	}
	return &m, nil
}

// Validate checks the manifest's dependency graph before anything is
// created: a cyclic manifest is rejected as a whole.
func (m *Manifest) Validate() error {
	tasks := make(map[string]*models.Task, len(m.Tasks))
	for _, spec := range m.Tasks {
		if _, exists := tasks[spec.ID]; exists {
			return fmt.Errorf("%w: manifest task %s", registry.ErrDuplicateID, spec.ID)
		}
		tasks[spec.ID] = &models.Task{ID: spec.ID, BlockedBy: spec.BlockedBy}
	}
	if valid, cycles := graph.ValidateDAG(tasks); !valid {
		return fmt.Errorf("%w: %v", registry.ErrCircularDependency, cycles[0])
	}
	return nil
}

// Apply creates the manifest's tasks in topological order (blockers
// first) followed by its groups. Returns the created task IDs in
// creation order.
func (m *Manifest) Apply(reg *registry.Registry) ([]string, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	specs := make(map[string]models.TaskSpec, len(m.Tasks))
	tasks := make(map[string]*models.Task, len(m.Tasks))
	for _, spec := range m.Tasks {
		specs[spec.ID] = spec
		tasks[spec.ID] = &models.Task{ID: spec.ID, BlockedBy: spec.BlockedBy}
	}
	order, err := graph.TopologicalSort(tasks)
	if err != nil {
		return nil, err
	}

	var created []string
	for _, id := range order {
		if _, err := reg.Create(specs[id]); err != nil {
			return created, fmt.Errorf("create task %s: %w", id, err)
		}
		created = append(created, id)
	}
	for _, g := range m.Groups {
		if _, err := reg.CreateGroup(g); err != nil {
			return created, fmt.Errorf("create group %s: %w", g.ID, err)
		}
	}
	return created, nil
}
