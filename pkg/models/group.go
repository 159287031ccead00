package models

// JoinStrategy is the policy for interpreting a group's completion.
type JoinStrategy string

const (
	// JoinAll requires every member to complete.
	JoinAll JoinStrategy = "all"
	// JoinFirst is satisfied as soon as the first member completes.
	JoinFirst JoinStrategy = "first"
	// JoinAny is satisfied when at least one member completes.
	JoinAny JoinStrategy = "any"
	// JoinAnyN is satisfied when at least Quorum members complete.
	JoinAnyN JoinStrategy = "any-n"
	// JoinMajority is satisfied when more than half the members complete.
	JoinMajority JoinStrategy = "majority"
)

// Valid returns true if the strategy is a known value.
func (j JoinStrategy) Valid() bool {
	switch j {
	case JoinAll, JoinFirst, JoinAny, JoinAnyN, JoinMajority:
		return true
	default:
		return false
	}
}

// OnFailure is the policy applied when a group member fails.
type OnFailure string

const (
	// FailFast marks the group failed on the first member failure.
	FailFast OnFailure = "fail-fast"
	// ContinueOnFailure lets remaining members run; the group only fails
	// once its join strategy can no longer be satisfied.
	ContinueOnFailure OnFailure = "continue"
)

// Valid returns true if the policy is a known value.
func (o OnFailure) Valid() bool {
	return o == FailFast || o == ContinueOnFailure
}

// TaskGroup is a named membership list with a join strategy. A group never
// caches status; status is always computed live from current member states.
type TaskGroup struct {
	// ID is the unique identifier for this group.
	ID string `json:"id"`
	// TaskIDs lists the member tasks.
	TaskIDs []string `json:"task_ids"`
	// JoinStrategy is the completion policy for the group.
	JoinStrategy JoinStrategy `json:"join_strategy"`
	// Quorum is the member count required by the any-n strategy.
	Quorum int `json:"quorum,omitempty"`
	// OnFailure is the failure policy for the group.
	OnFailure OnFailure `json:"on_failure,omitempty"`
}

// GroupSpec describes a group to create.
type GroupSpec struct {
	ID           string       `json:"id,omitempty" yaml:"id,omitempty"`
	TaskIDs      []string     `json:"task_ids" yaml:"task_ids"`
	JoinStrategy JoinStrategy `json:"join_strategy,omitempty" yaml:"join_strategy,omitempty"`
	Quorum       int          `json:"quorum,omitempty" yaml:"quorum,omitempty"`
	OnFailure    OnFailure    `json:"on_failure,omitempty" yaml:"on_failure,omitempty"`
}

// GroupStatus is the live status of a group, recomputed on every call from
// current member task states.
type GroupStatus struct {
	// GroupID identifies the group.
	GroupID string `json:"group_id"`
	// Total is the number of member tasks.
	Total int `json:"total"`
	// Completed counts members in the completed state.
	Completed int `json:"completed"`
	// Running counts members in the running state.
	Running int `json:"running"`
	// Pending counts members in the queued or blocked states.
	Pending int `json:"pending"`
	// Failed counts members in the failed or cancelled states.
	Failed int `json:"failed"`
	// Satisfied reports whether the join strategy is met.
	Satisfied bool `json:"satisfied"`
	// GroupFailed reports whether the failure policy considers the group failed.
	GroupFailed bool `json:"group_failed"`
}
