package models

import "testing"

func TestTaskStateValid(t *testing.T) {
	for _, s := range []TaskState{
		TaskQueued, TaskRunning, TaskCompleted, TaskFailed, TaskBlocked, TaskCancelled,
	} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if TaskState("paused").Valid() {
		t.Error("unknown state should be invalid")
	}
	if TaskState("").Valid() {
		t.Error("empty state should be invalid")
	}
}

func TestTaskStateTerminal(t *testing.T) {
	tests := []struct {
		state TaskState
		want  bool
	}{
		{TaskQueued, false},
		{TaskRunning, false},
		{TaskBlocked, false},
		{TaskFailed, false},
		{TaskCompleted, true},
		{TaskCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.state.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestTaskClone(t *testing.T) {
	orig := &Task{
		ID:        "t1",
		State:     TaskQueued,
		BlockedBy: []string{"t0"},
		Blocks:    []string{"t2"},
		Metadata:  map[string]string{"k": "v"},
	}
	clone := orig.Clone()

	clone.BlockedBy[0] = "changed"
	clone.Blocks = append(clone.Blocks, "t3")
	clone.Metadata["k"] = "changed"

	if orig.BlockedBy[0] != "t0" {
		t.Error("clone shares BlockedBy with the original")
	}
	if len(orig.Blocks) != 1 {
		t.Error("clone shares Blocks with the original")
	}
	if orig.Metadata["k"] != "v" {
		t.Error("clone shares Metadata with the original")
	}
}

func TestTaskCloneNil(t *testing.T) {
	var task *Task
	if task.Clone() != nil {
		t.Error("nil.Clone() should be nil")
	}
}

func TestTaskFilterMatches(t *testing.T) {
	task := &Task{ID: "t1", State: TaskRunning, SubagentType: "coder", StoryID: "s1"}

	tests := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"empty matches all", TaskFilter{}, true},
		{"state match", TaskFilter{State: TaskRunning}, true},
		{"state mismatch", TaskFilter{State: TaskQueued}, false},
		{"subagent match", TaskFilter{SubagentType: "coder"}, true},
		{"subagent mismatch", TaskFilter{SubagentType: "reviewer"}, false},
		{"story match", TaskFilter{StoryID: "s1"}, true},
		{"story mismatch", TaskFilter{StoryID: "s2"}, false},
		{"all fields match", TaskFilter{State: TaskRunning, SubagentType: "coder", StoryID: "s1"}, true},
		{"one field mismatch", TaskFilter{State: TaskRunning, SubagentType: "reviewer"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(task); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJoinStrategyValid(t *testing.T) {
	for _, s := range []JoinStrategy{JoinAll, JoinFirst, JoinAny, JoinAnyN, JoinMajority} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if JoinStrategy("quorum").Valid() {
		t.Error("unknown strategy should be invalid")
	}
}

func TestOnFailureValid(t *testing.T) {
	for _, p := range []OnFailure{FailFast, ContinueOnFailure} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if OnFailure("retry").Valid() {
		t.Error("unknown policy should be invalid")
	}
}

func TestNewRegistryState(t *testing.T) {
	st := NewRegistryState()
	if st.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d, want %d", st.SchemaVersion, SchemaVersion)
	}
	if st.Tasks == nil || st.TaskGroups == nil {
		t.Error("maps should be initialized")
	}
}
