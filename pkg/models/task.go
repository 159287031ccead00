package models

import "time"

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	// TaskQueued indicates the task is waiting to be picked up.
	TaskQueued TaskState = "queued"
	// TaskRunning indicates the task is being worked on.
	TaskRunning TaskState = "running"
	// TaskCompleted indicates the task finished successfully.
	TaskCompleted TaskState = "completed"
	// TaskFailed indicates the task failed. Failed tasks can be retried.
	TaskFailed TaskState = "failed"
	// TaskBlocked indicates the task cannot proceed until its blockers complete.
	TaskBlocked TaskState = "blocked"
	// TaskCancelled indicates the task was cancelled and will not run.
	TaskCancelled TaskState = "cancelled"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskQueued, TaskRunning, TaskCompleted, TaskFailed, TaskBlocked, TaskCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the state has no outgoing transitions.
// Failed is deliberately not terminal: failed tasks support retry.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskCancelled
}

// Task represents a unit of assignable work in the registry.
type Task struct {
	// ID is the unique identifier for this task. Immutable after creation.
	ID string `json:"id"`
	// State is the current lifecycle state.
	State TaskState `json:"state"`
	// Description explains what the task is.
	Description string `json:"description"`
	// SubagentType names the kind of worker that should handle the task.
	SubagentType string `json:"subagent_type,omitempty"`
	// StoryID links the task to an external story workflow, if any.
	StoryID string `json:"story_id,omitempty"`
	// Metadata is a free-form key/value bag.
	Metadata map[string]string `json:"metadata,omitempty"`
	// BlockedBy lists IDs of tasks that must complete before this one.
	BlockedBy []string `json:"blocked_by,omitempty"`
	// Blocks is the reverse index of BlockedBy. It is maintained by the
	// registry whenever BlockedBy changes anywhere in the graph and must
	// never be edited directly.
	Blocks []string `json:"blocks,omitempty"`
	// JoinStrategy is consulted by group status computation.
	JoinStrategy JoinStrategy `json:"join_strategy,omitempty"`
	// OnFailure is the failure policy consulted by group status computation.
	OnFailure OnFailure `json:"on_failure,omitempty"`
	// Result holds the opaque completion payload, set when the task completes.
	Result string `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the task was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the task. Listeners and readers receive
// clones so they can never mutate registry-owned state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.BlockedBy = append([]string(nil), t.BlockedBy...)
	c.Blocks = append([]string(nil), t.Blocks...)
	if t.Metadata != nil {
		c.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// BlockedByContains reports whether the task lists id as a blocker.
func (t *Task) BlockedByContains(id string) bool {
	for _, b := range t.BlockedBy {
		if b == id {
			return true
		}
	}
	return false
}

// TaskSpec describes a task to create.
type TaskSpec struct {
	// ID is optional; the registry generates one when empty.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Description is required.
	Description string `json:"description" yaml:"description"`
	// SubagentType is required.
	SubagentType string `json:"subagent_type" yaml:"subagent_type"`
	// StoryID links the task to an external story workflow.
	StoryID string `json:"story_id,omitempty" yaml:"story_id,omitempty"`
	// Metadata is a free-form key/value bag.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	// BlockedBy lists blocker task IDs. Forward references are allowed.
	BlockedBy []string `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
	// JoinStrategy defaults to JoinAll when empty.
	JoinStrategy JoinStrategy `json:"join_strategy,omitempty" yaml:"join_strategy,omitempty"`
	// OnFailure defaults to FailFast when empty.
	OnFailure OnFailure `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`
}

// TaskPatch enumerates the fields that may be mutated through Update.
// Nil pointers leave the corresponding field untouched. State patches are
// validated through the same transition table as the dedicated operations.
type TaskPatch struct {
	Description  *string           `json:"description,omitempty"`
	SubagentType *string           `json:"subagent_type,omitempty"`
	StoryID      *string           `json:"story_id,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	State        *TaskState        `json:"state,omitempty"`
	Result       *string           `json:"result,omitempty"`
	Error        *string           `json:"error,omitempty"`
}

// TaskFilter narrows List results. Zero-valued fields match everything.
type TaskFilter struct {
	State        TaskState
	SubagentType string
	StoryID      string
}

// Matches reports whether the task satisfies every set filter field.
func (f TaskFilter) Matches(t *Task) bool {
	if f.State != "" && t.State != f.State {
		return false
	}
	if f.SubagentType != "" && t.SubagentType != f.SubagentType {
		return false
	}
	if f.StoryID != "" && t.StoryID != f.StoryID {
		return false
	}
	return true
}
