// Package lifecycle defines the task state machine: which lifecycle
// transitions are permitted and which states are terminal.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/kestreldev/kestrel/pkg/models"
)

// ErrInvalidTransition indicates a state change not permitted by the
// transition table. The capitalized message is part of the CLI contract:
// callers drive retry logic off the "Invalid transition" substring.
var ErrInvalidTransition = errors.New("Invalid transition")

// transitions maps each state to the states it may move to. Terminal
// states map to an empty set. A transition to the same state is always
// treated as a valid no-op and is not listed here.
var transitions = map[models.TaskState][]models.TaskState{
	models.TaskQueued:    {models.TaskRunning, models.TaskBlocked, models.TaskCancelled},
	models.TaskRunning:   {models.TaskCompleted, models.TaskFailed, models.TaskBlocked, models.TaskCancelled},
	models.TaskBlocked:   {models.TaskQueued, models.TaskRunning, models.TaskCancelled},
	models.TaskFailed:    {models.TaskQueued},
	models.TaskCompleted: {},
	models.TaskCancelled: {},
}

// CanTransition reports whether from may move to to. Same-state
// transitions are always allowed.
func CanTransition(from, to models.TaskState) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RetryOnly reports whether the from→to pair is reachable only through
// the dedicated retry operation. The generic update path must reject it.
func RetryOnly(from, to models.TaskState) bool {
	return from == models.TaskFailed && to == models.TaskQueued
}

// Next returns the states reachable from s, excluding the same-state no-op.
func Next(s models.TaskState) []models.TaskState {
	return append([]models.TaskState(nil), transitions[s]...)
}

// Check returns ErrInvalidTransition (wrapped with the state pair) when
// the transition is not permitted, nil otherwise.
func Check(from, to models.TaskState) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
