package models

import "time"

// SchemaVersion is the current persisted document schema version.
const SchemaVersion = 1

// AuditLogEntry is an immutable record of a state transition. Insertion
// order in the audit log is the chronological order.
type AuditLogEntry struct {
	// TaskID identifies the task that transitioned.
	TaskID string `json:"task_id"`
	// FromState is the state before the transition. Empty on creation.
	FromState TaskState `json:"from_state,omitempty"`
	// ToState is the state after the transition.
	ToState TaskState `json:"to_state"`
	// At is when the transition happened.
	At time.Time `json:"at"`
	// Actor names who performed the transition, if known.
	Actor string `json:"actor,omitempty"`
}

// AuditFilter narrows AuditTrail results.
type AuditFilter struct {
	TaskID string
}

// RegistryState is the root persisted document.
type RegistryState struct {
	SchemaVersion int                   `json:"schema_version"`
	Tasks         map[string]*Task      `json:"tasks"`
	TaskGroups    map[string]*TaskGroup `json:"task_groups"`
	AuditLog      []AuditLogEntry       `json:"audit_log"`
}

// NewRegistryState returns a fresh, empty document at the current schema
// version. Used both for first writes and to self-heal from corruption.
func NewRegistryState() *RegistryState {
	return &RegistryState{
		SchemaVersion: SchemaVersion,
		Tasks:         make(map[string]*Task),
		TaskGroups:    make(map[string]*TaskGroup),
		AuditLog:      nil,
	}
}

// Stats aggregates task counts by state and by subagent type.
type Stats struct {
	Total          int               `json:"total"`
	ByState        map[TaskState]int `json:"by_state"`
	BySubagentType map[string]int    `json:"by_subagent_type"`
}
