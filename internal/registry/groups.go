package registry

import (
	"fmt"

	"github.com/kestreldev/kestrel/pkg/models"
)

// CreateGroup validates the spec and adds a new task group. Every member
// task must already exist.
func (r *Registry) CreateGroup(spec models.GroupSpec) (*models.TaskGroup, error) {
	if len(spec.TaskIDs) == 0 {
		return nil, fmt.Errorf("%w: task_ids is required", ErrValidation)
	}
	strategy := spec.JoinStrategy
	if strategy == "" {
		strategy = models.JoinAll
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown join strategy %q", ErrValidation, spec.JoinStrategy)
	}
	if strategy == models.JoinAnyN && spec.Quorum < 1 {
		return nil, fmt.Errorf("%w: any-n requires a quorum of at least 1", ErrValidation)
	}
	onFailure := spec.OnFailure
	if onFailure == "" {
		onFailure = models.FailFast
	}
	if !onFailure.Valid() {
		return nil, fmt.Errorf("%w: unknown on_failure policy %q", ErrValidation, spec.OnFailure)
	}

	var created *models.TaskGroup
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		id := spec.ID
		if id == "" {
			id = newGroupID()
		}
		if _, exists := st.TaskGroups[id]; exists {
			return nil, fmt.Errorf("%w: group %s", ErrDuplicateID, id)
		}
		for _, taskID := range spec.TaskIDs {
			if _, ok := st.Tasks[taskID]; !ok {
				return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
			}
		}

		group := &models.TaskGroup{
			ID:           id,
			TaskIDs:      dedupe(spec.TaskIDs),
			JoinStrategy: strategy,
			Quorum:       spec.Quorum,
			OnFailure:    onFailure,
		}
		st.TaskGroups[id] = group

		g := *group
		g.TaskIDs = append([]string(nil), group.TaskIDs...)
		created = &g
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetGroup returns the group, or ErrNotFound.
func (r *Registry) GetGroup(id string) (*models.TaskGroup, error) {
	st := r.snapshot()
	group, ok := st.TaskGroups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	g := *group
	g.TaskIDs = append([]string(nil), group.TaskIDs...)
	return &g, nil
}

// GroupStatus computes the group's status live from current member task
// states. Nothing is cached: a stale status can never be observed.
func (r *Registry) GroupStatus(id string) (*models.GroupStatus, error) {
	st := r.snapshot()
	group, ok := st.TaskGroups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, ErrNotFound)
	}

	status := &models.GroupStatus{GroupID: id}
	for _, taskID := range group.TaskIDs {
		task, ok := st.Tasks[taskID]
		if !ok {
			// Member deleted out from under the group; it no longer counts.
			continue
		}
		status.Total++
		switch task.State {
		case models.TaskCompleted:
			status.Completed++
		case models.TaskRunning:
			status.Running++
		case models.TaskFailed, models.TaskCancelled:
			status.Failed++
		default:
			status.Pending++
		}
	}

	status.Satisfied = joinSatisfied(group, status)
	status.GroupFailed = groupFailed(group, status)
	return status, nil
}

// joinSatisfied applies the group's join strategy to the current counts.
func joinSatisfied(group *models.TaskGroup, s *models.GroupStatus) bool {
	if s.Total == 0 {
		return false
	}
	switch group.JoinStrategy {
	case models.JoinFirst, models.JoinAny:
		return s.Completed >= 1
	case models.JoinAnyN:
		quorum := group.Quorum
		if quorum < 1 {
			quorum = 1
		}
		return s.Completed >= quorum
	case models.JoinMajority:
		return s.Completed*2 > s.Total
	default: // JoinAll
		return s.Completed == s.Total
	}
}

// groupFailed applies the failure policy: fail-fast fails the group on
// the first member failure, continue only once the join strategy can no
// longer be satisfied.
func groupFailed(group *models.TaskGroup, s *models.GroupStatus) bool {
	if s.Satisfied {
		return false
	}
	if s.Failed == 0 {
		return false
	}
	if group.OnFailure == models.ContinueOnFailure {
		return s.Pending == 0 && s.Running == 0
	}
	return true
}
