package registry

import (
	"sort"
	"time"

	"github.com/kestreldev/kestrel/pkg/models"
)

// Stats returns aggregate task counts by state and by subagent type.
func (r *Registry) Stats() models.Stats {
	st := r.snapshot()
	stats := models.Stats{
		ByState:        make(map[models.TaskState]int),
		BySubagentType: make(map[string]int),
	}
	for _, task := range st.Tasks {
		stats.Total++
		stats.ByState[task.State]++
		if task.SubagentType != "" {
			stats.BySubagentType[task.SubagentType]++
		}
	}
	return stats
}

// TasksForStory returns snapshots of every task linked to the story,
// ordered by id.
func (r *Registry) TasksForStory(storyID string) []*models.Task {
	return r.List(models.TaskFilter{StoryID: storyID})
}

// AuditTrail returns audit log entries in chronological order, optionally
// narrowed to one task.
func (r *Registry) AuditTrail(filter models.AuditFilter) []models.AuditLogEntry {
	st := r.snapshot()
	if filter.TaskID == "" {
		return append([]models.AuditLogEntry(nil), st.AuditLog...)
	}
	var out []models.AuditLogEntry
	for _, e := range st.AuditLog {
		if e.TaskID == filter.TaskID {
			out = append(out, e)
		}
	}
	return out
}

// Cleanup removes tasks in a terminal-or-failed state (completed, failed,
// cancelled) whose UpdatedAt is older than maxAge. Queued, running and
// blocked tasks are never removed regardless of age. Swept tasks are
// handed to the configured archiver, if any, before removal. Returns the
// removed task IDs.
func (r *Registry) Cleanup(maxAge time.Duration) ([]string, error) {
	var removed []string
	err := r.mutate(func(st *models.RegistryState) ([]Event, error) {
		cutoff := r.now().Add(-maxAge)

		var sweep []*models.Task
		for _, task := range st.Tasks {
			switch task.State {
			case models.TaskCompleted, models.TaskFailed, models.TaskCancelled:
				if task.UpdatedAt.Before(cutoff) {
					sweep = append(sweep, task)
				}
			}
		}
		sort.Slice(sweep, func(i, j int) bool { return sweep[i].ID < sweep[j].ID })

		var events []Event
		now := r.now()
		for _, task := range sweep {
			if r.archive != nil {
				entries := entriesForTask(st.AuditLog, task.ID)
				if err := r.archive.ArchiveTask(task, entries); err != nil {
					return nil, err
				}
			}
			snapshot := task.Clone()
			delete(st.Tasks, task.ID)
			purgeReferences(st, task.ID)
			removed = append(removed, task.ID)
			events = append(events, Event{Type: EventDeleted, Task: snapshot, Timestamp: now})
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func entriesForTask(log []models.AuditLogEntry, taskID string) []models.AuditLogEntry {
	var out []models.AuditLogEntry
	for _, e := range log {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}
