package registry

import (
	"errors"

	"github.com/kestreldev/kestrel/internal/graph"
	"github.com/kestreldev/kestrel/internal/lifecycle"
)

// Domain errors. Expected failures are returned (never panicked) and are
// matchable with errors.Is; messages carry stable substrings so callers
// can drive retry logic without parsing free text.
var (
	// ErrValidation indicates a missing or invalid required field.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateID indicates an id that already exists in the registry.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrNotFound indicates an unknown task or group id.
	ErrNotFound = errors.New("not found")
	// ErrLockTimeout indicates the registry lock was not acquired in time.
	ErrLockTimeout = errors.New("timed out acquiring registry lock")

	// ErrInvalidTransition indicates a state change not permitted by the
	// transition table.
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
	// ErrCircularDependency indicates the dependency graph would become cyclic.
	ErrCircularDependency = graph.ErrCycleDetected
)
