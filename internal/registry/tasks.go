package registry

import (
	"fmt"
	"sort"

	"github.com/kestreldev/kestrel/internal/graph"
	"github.com/kestreldev/kestrel/internal/lifecycle"
	"github.com/kestreldev/kestrel/pkg/models"
)

// Create validates the spec and adds a new task. The task starts blocked
// when any listed blocker is unmet, queued otherwise. Forward references
// to not-yet-created blockers are allowed; a blocker set that would make
// the graph cyclic rejects the entire create and nothing is persisted.
func (r *Registry) Create(spec models.TaskSpec) (*models.Task, error) {
	if spec.Description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrValidation)
	}
	if spec.SubagentType == "" {
		return nil, fmt.Errorf("%w: subagent_type is required", ErrValidation)
	}
	if spec.JoinStrategy != "" && !spec.JoinStrategy.Valid() {
		return nil, fmt.Errorf("%w: unknown join strategy %q", ErrValidation, spec.JoinStrategy)
	}
	if spec.OnFailure != "" && !spec.OnFailure.Valid() {
		return nil, fmt.Errorf("%w: unknown on_failure policy %q", ErrValidation, spec.OnFailure)
	}

	var created *models.Task
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		id := spec.ID
		if id == "" {
			id = newTaskID()
		}
		if _, exists := st.Tasks[id]; exists {
			return nil, fmt.Errorf("%w: task %s", ErrDuplicateID, id)
		}

		now := r.now()
		task := &models.Task{
			ID:           id,
			Description:  spec.Description,
			SubagentType: spec.SubagentType,
			StoryID:      spec.StoryID,
			Metadata:     spec.Metadata,
			BlockedBy:    dedupe(spec.BlockedBy),
			JoinStrategy: spec.JoinStrategy,
			OnFailure:    spec.OnFailure,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if task.JoinStrategy == "" {
			task.JoinStrategy = models.JoinAll
		}
		if task.OnFailure == "" {
			task.OnFailure = models.FailFast
		}

		// Any cycle introduced by this create must pass through the new
		// task, so one detection walk from it covers the whole check.
		st.Tasks[id] = task
		if found, cycle := graph.DetectCycle(st.Tasks, id); found {
			delete(st.Tasks, id)
			return nil, fmt.Errorf("%w: %v", ErrCircularDependency, cycle)
		}

		if graph.BlockersMet(st.Tasks, task) {
			task.State = models.TaskQueued
		} else {
			task.State = models.TaskBlocked
		}

		// Maintain the reverse index on blockers that already exist.
		for _, dep := range task.BlockedBy {
			if blocker, ok := st.Tasks[dep]; ok {
				blocker.Blocks = appendUnique(blocker.Blocks, id)
			}
		}
		// Earlier tasks may have forward-referenced this id before it
		// existed; pick up their reverse edges now.
		for otherID, other := range st.Tasks {
			if otherID != id && other.BlockedByContains(id) {
				task.Blocks = appendUnique(task.Blocks, otherID)
			}
		}

		r.audit(st, id, "", task.State)
		created = task.Clone()
		return []Event{{Type: EventCreated, Task: created, Timestamp: now}}, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Get returns a snapshot of the task, or ErrNotFound.
func (r *Registry) Get(id string) (*models.Task, error) {
	st := r.snapshot()
	task, ok := st.Tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task.Clone(), nil
}

// List returns snapshots of every task matching the filter, ordered by id.
func (r *Registry) List(filter models.TaskFilter) []*models.Task {
	st := r.snapshot()
	var out []*models.Task
	for _, task := range st.Tasks {
		if filter.Matches(task) {
			out = append(out, task.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Update merges the permitted fields of the patch into the task. A state
// patch is validated through the transition table exactly as the dedicated
// operations would; failed -> queued is reserved for Retry and rejected here.
func (r *Registry) Update(id string, patch models.TaskPatch) (*models.Task, error) {
	var updated *models.Task
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		task, ok := st.Tasks[id]
		if !ok {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}

		var fields []string
		from := task.State
		if patch.State != nil && *patch.State != from {
			if lifecycle.RetryOnly(from, *patch.State) {
				return nil, fmt.Errorf("%w: %s -> %s is only reachable through retry", ErrInvalidTransition, from, *patch.State)
			}
			if err := lifecycle.Check(from, *patch.State); err != nil {
				return nil, err
			}
			task.State = *patch.State
			fields = append(fields, "state")
		}
		if patch.Description != nil && *patch.Description != task.Description {
			if *patch.Description == "" {
				return nil, fmt.Errorf("%w: description cannot be empty", ErrValidation)
			}
			task.Description = *patch.Description
			fields = append(fields, "description")
		}
		if patch.SubagentType != nil && *patch.SubagentType != task.SubagentType {
			task.SubagentType = *patch.SubagentType
			fields = append(fields, "subagent_type")
		}
		if patch.StoryID != nil && *patch.StoryID != task.StoryID {
			task.StoryID = *patch.StoryID
			fields = append(fields, "story_id")
		}
		if patch.Metadata != nil {
			if task.Metadata == nil {
				task.Metadata = make(map[string]string, len(patch.Metadata))
			}
			for k, v := range patch.Metadata {
				task.Metadata[k] = v
			}
			fields = append(fields, "metadata")
		}
		if patch.Result != nil && *patch.Result != task.Result {
			task.Result = *patch.Result
			fields = append(fields, "result")
		}
		if patch.Error != nil && *patch.Error != task.Error {
			task.Error = *patch.Error
			fields = append(fields, "error")
		}

		if len(fields) == 0 {
			updated = task.Clone()
			return nil, nil
		}

		now := r.now()
		task.UpdatedAt = now
		for _, f := range fields {
			if f == "state" {
				r.audit(st, id, from, task.State)
			}
		}
		updated = task.Clone()
		events := []Event{{Type: EventUpdated, Task: updated, Fields: fields, Timestamp: now}}
		// A patch that lands in completed unblocks dependents exactly like
		// the dedicated Complete operation.
		if task.State == models.TaskCompleted && from != models.TaskCompleted {
			events = append(events, r.cascadeUnblock(st, task)...)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the task and purges it from every other task's
// dependency lists. Deleting an unknown id returns ErrNotFound.
func (r *Registry) Delete(id string) error {
	return r.mutate(func(st *models.RegistryState) ([]Event, error) {
		task, ok := st.Tasks[id]
		if !ok {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}

		deleted := task.Clone()
		delete(st.Tasks, id)
		purgeReferences(st, id)

		return []Event{{Type: EventDeleted, Task: deleted, Timestamp: r.now()}}, nil
	})
}

// purgeReferences removes id from every task's BlockedBy and Blocks lists
// and from every group's membership.
func purgeReferences(st *models.RegistryState, id string) {
	for _, other := range st.Tasks {
		other.BlockedBy = removeString(other.BlockedBy, id)
		other.Blocks = removeString(other.Blocks, id)
	}
	for _, g := range st.TaskGroups {
		g.TaskIDs = removeString(g.TaskIDs, id)
	}
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func dedupe(list []string) []string {
	var out []string
	for _, v := range list {
		out = appendUnique(out, v)
	}
	return out
}
