package registry

import (
	"fmt"

	"github.com/kestreldev/kestrel/internal/graph"
	"github.com/kestreldev/kestrel/pkg/models"
)

// AddDependency records that taskID is blocked by dependsOnID, keeping
// the forward list and the reverse index consistent. The DAG is
// revalidated with the proposed edge included; a would-be cycle rejects
// the call and the persisted graph is left completely unchanged.
func (r *Registry) AddDependency(taskID, dependsOnID string) (*models.Task, error) {
	var updated *models.Task
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		task, ok := st.Tasks[taskID]
		if !ok {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		blocker, ok := st.Tasks[dependsOnID]
		if !ok {
			return nil, fmt.Errorf("task %s: %w", dependsOnID, ErrNotFound)
		}
		if task.BlockedByContains(dependsOnID) {
			updated = task.Clone()
			return nil, nil
		}

		// Validate against the graph including the proposed edge. The
		// document is reloaded per mutation, so the speculative edge is
		// discarded with the rejection: nothing partial is ever persisted.
		task.BlockedBy = append(task.BlockedBy, dependsOnID)
		if valid, cycles := graph.ValidateDAG(st.Tasks); !valid {
			return nil, fmt.Errorf("%w: %v", ErrCircularDependency, cycles[0])
		}
		blocker.Blocks = appendUnique(blocker.Blocks, taskID)

		now := r.now()
		task.UpdatedAt = now
		updated = task.Clone()
		return []Event{{Type: EventUpdated, Task: updated, Fields: []string{"blocked_by"}, Timestamp: now}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveDependency removes the taskID -> dependsOnID dependency edge,
// updating both the forward list and the reverse index. Removing an edge
// that is not present is a no-op.
func (r *Registry) RemoveDependency(taskID, dependsOnID string) (*models.Task, error) {
	var updated *models.Task
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		task, ok := st.Tasks[taskID]
		if !ok {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		if !task.BlockedByContains(dependsOnID) {
			updated = task.Clone()
			return nil, nil
		}

		task.BlockedBy = removeString(task.BlockedBy, dependsOnID)
		if blocker, ok := st.Tasks[dependsOnID]; ok {
			blocker.Blocks = removeString(blocker.Blocks, taskID)
		}

		now := r.now()
		task.UpdatedAt = now
		updated = task.Clone()
		return []Event{{Type: EventUpdated, Task: updated, Fields: []string{"blocked_by"}, Timestamp: now}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ReadyTasks returns queued tasks whose every blocker is completed,
// ordered by id.
func (r *Registry) ReadyTasks() []*models.Task {
	st := r.snapshot()
	ready := graph.Ready(st.Tasks)
	out := make([]*models.Task, len(ready))
	for i, t := range ready {
		out[i] = t.Clone()
	}
	return out
}

// DependencyGraph returns the nodes and edges of the dependency graph
// for visualization and inspection. Pure read, no mutation.
func (r *Registry) DependencyGraph() graph.Export {
	st := r.snapshot()
	return graph.ExportGraph(st.Tasks)
}

// ValidateGraph runs full DAG validation over the persisted graph and
// returns the distinct cycles found, if any.
func (r *Registry) ValidateGraph() (bool, []graph.Cycle) {
	st := r.snapshot()
	return graph.ValidateDAG(st.Tasks)
}

// TopologicalOrder returns a task ordering in which every blocker
// precedes its dependents, or ErrCircularDependency for a cyclic graph.
func (r *Registry) TopologicalOrder() ([]string, error) {
	st := r.snapshot()
	return graph.TopologicalSort(st.Tasks)
}
