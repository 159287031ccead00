package registry

import (
	"fmt"
	"sort"

	"github.com/kestreldev/kestrel/internal/lifecycle"
	"github.com/kestreldev/kestrel/pkg/models"
)

// Start moves a queued or blocked task to running.
func (r *Registry) Start(id string) (*models.Task, error) {
	return r.transition(id, models.TaskRunning, nil)
}

// Complete moves a running task to completed, stores the result and runs
// the unblock cascade over its dependents.
func (r *Registry) Complete(id string, result string) (*models.Task, error) {
	return r.transition(id, models.TaskCompleted, func(t *models.Task) {
		t.Result = result
	})
}

// Fail moves a running task to failed and stores the error message.
func (r *Registry) Fail(id string, errMsg string) (*models.Task, error) {
	return r.transition(id, models.TaskFailed, func(t *models.Task) {
		t.Error = errMsg
	})
}

// Block moves any non-terminal task to blocked. The reason is recorded in
// the task's metadata.
func (r *Registry) Block(id string, reason string) (*models.Task, error) {
	return r.transition(id, models.TaskBlocked, func(t *models.Task) {
		setMetadata(t, "blocked_reason", reason)
	})
}

// Cancel moves any non-terminal task to cancelled. The reason is recorded
// in the task's metadata.
func (r *Registry) Cancel(id string, reason string) (*models.Task, error) {
	return r.transition(id, models.TaskCancelled, func(t *models.Task) {
		setMetadata(t, "cancelled_reason", reason)
	})
}

// Retry moves a failed task back to queued and clears its error. Retry is
// the only path out of failed; any other state is rejected.
func (r *Registry) Retry(id string) (*models.Task, error) {
	var updated *models.Task
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		task, ok := st.Tasks[id]
		if !ok {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		if task.State != models.TaskFailed {
			return nil, fmt.Errorf("%w: can only retry failed tasks, task %s is %s", ErrInvalidTransition, id, task.State)
		}

		from := task.State
		now := r.now()
		task.State = models.TaskQueued
		task.Error = ""
		task.UpdatedAt = now
		r.audit(st, id, from, task.State)

		updated = task.Clone()
		return []Event{{Type: EventUpdated, Task: updated, Fields: []string{"state"}, Timestamp: now}}, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// transition applies a validated state change plus an optional field
// mutation, appends the audit entry and emits the updated event. A
// completion additionally cascades to blocked dependents.
func (r *Registry) transition(id string, to models.TaskState, apply func(*models.Task)) (*models.Task, error) {
	var updated *models.Task
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		task, ok := st.Tasks[id]
		if !ok {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		from := task.State
		if err := lifecycle.Check(from, to); err != nil {
			return nil, err
		}

		now := r.now()
		task.State = to
		if apply != nil {
			apply(task)
		}
		task.UpdatedAt = now
		if from != to {
			r.audit(st, id, from, to)
		}

		updated = task.Clone()
		events := []Event{{Type: EventUpdated, Task: updated, Fields: []string{"state"}, Timestamp: now}}
		if to == models.TaskCompleted {
			events = append(events, r.cascadeUnblock(st, task)...)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// cascadeUnblock inspects every task listing the completed task as a
// blocker. A dependent currently blocked whose blockers are now all
// completed transitions blocked -> queued and emits exactly one unblocked
// event. Cancelled or failed dependents are never resurrected.
func (r *Registry) cascadeUnblock(st *models.RegistryState, completed *models.Task) []Event {
	dependents := append([]string(nil), completed.Blocks...)
	// Blocks is the maintained reverse index, but a forward reference
	// created before its blocker existed has no Blocks entry. Sweep the
	// table for stragglers.
	for id, t := range st.Tasks {
		if t.BlockedByContains(completed.ID) {
			dependents = appendUnique(dependents, id)
		}
	}
	sort.Strings(dependents)

	var events []Event
	for _, depID := range dependents {
		dep, ok := st.Tasks[depID]
		if !ok || dep.State != models.TaskBlocked {
			continue
		}
		allMet := true
		for _, blockerID := range dep.BlockedBy {
			blocker, ok := st.Tasks[blockerID]
			if !ok || blocker.State != models.TaskCompleted {
				allMet = false
				break
			}
		}
		if !allMet {
			continue
		}

		now := r.now()
		r.logf("[registry] unblocking %s: last blocker %s completed", depID, completed.ID)
		dep.State = models.TaskQueued
		dep.UpdatedAt = now
		r.audit(st, depID, models.TaskBlocked, models.TaskQueued)
		events = append(events, Event{Type: EventUnblocked, Task: dep.Clone(), Timestamp: now})
	}
	return events
}

func setMetadata(t *models.Task, key, value string) {
	if value == "" {
		return
	}
	if t.Metadata == nil {
		t.Metadata = make(map[string]string)
	}
	t.Metadata[key] = value
}
