// Package archive provides SQLite-backed long-term storage for tasks
// swept out of the registry by retention cleanup. The live registry
// document stays small while history remains queryable.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kestreldev/kestrel/pkg/models"
)

// FileName is the archive database file name under the state dir.
const FileName = "archive.db"

// Path returns the archive database path under rootDir.
func Path(rootDir string) string {
	return filepath.Join(rootDir, FileName)
}

// DB wraps an SQLite database holding archived tasks and their audit
// entries.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens the archive database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Tasks},
		{2, migrationV2Audit},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Tasks = `
CREATE TABLE IF NOT EXISTS archived_tasks (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	description TEXT NOT NULL,
	subagent_type TEXT,
	story_id TEXT,
	metadata TEXT,
	result TEXT,
	error TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	archived_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archived_tasks_state ON archived_tasks(state);
CREATE INDEX IF NOT EXISTS idx_archived_tasks_story_id ON archived_tasks(story_id);
`

const migrationV2Audit = `
CREATE TABLE IF NOT EXISTS archived_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	from_state TEXT,
	to_state TEXT NOT NULL,
	at DATETIME NOT NULL,
	actor TEXT
);

CREATE INDEX IF NOT EXISTS idx_archived_audit_task_id ON archived_audit(task_id);
`

// ArchiveTask stores a swept task and its audit entries. Archiving the
// same id twice replaces the earlier row.
func (db *DB) ArchiveTask(task *models.Task, entries []models.AuditLogEntry) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var metadata []byte
	if len(task.Metadata) > 0 {
		metadata, _ = json.Marshal(task.Metadata)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO archived_tasks
		(id, state, description, subagent_type, story_id, metadata, result, error, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, string(task.State), task.Description, task.SubagentType,
		task.StoryID, string(metadata), task.Result, task.Error,
		task.CreatedAt, task.UpdatedAt, time.Now().UTC(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("archive task %s: %w", task.ID, err)
	}

	for _, e := range entries {
		_, err = tx.Exec(`
			INSERT INTO archived_audit (task_id, from_state, to_state, at, actor)
			VALUES (?, ?, ?, ?, ?)`,
			e.TaskID, string(e.FromState), string(e.ToState), e.At, e.Actor,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("archive audit entry for %s: %w", task.ID, err)
		}
	}

	return tx.Commit()
}

// ArchivedTask is a task row as stored in the archive.
type ArchivedTask struct {
	ID           string
	State        models.TaskState
	Description  string
	SubagentType string
	StoryID      string
	Result       string
	Error        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ArchivedAt   time.Time
}

// ListTasks returns archived tasks, newest first.
func (db *DB) ListTasks(limit int) ([]ArchivedTask, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT id, state, description, subagent_type, story_id, result, error, created_at, updated_at, archived_at
		FROM archived_tasks ORDER BY archived_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list archived tasks: %w", err)
	}
	defer rows.Close()

	var out []ArchivedTask
	for rows.Next() {
		var t ArchivedTask
		if err := rows.Scan(&t.ID, &t.State, &t.Description, &t.SubagentType,
			&t.StoryID, &t.Result, &t.Error, &t.CreatedAt, &t.UpdatedAt, &t.ArchivedAt); err != nil {
			return nil, fmt.Errorf("scan archived task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AuditTrail returns the archived audit entries for a task in
// chronological order.
func (db *DB) AuditTrail(taskID string) ([]models.AuditLogEntry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT task_id, from_state, to_state, at, actor
		FROM archived_audit WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query archived audit: %w", err)
	}
	defer rows.Close()

	var out []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var from, to string
		if err := rows.Scan(&e.TaskID, &from, &to, &e.At, &e.Actor); err != nil {
			return nil, fmt.Errorf("scan archived audit entry: %w", err)
		}
		e.FromState = models.TaskState(from)
		e.ToState = models.TaskState(to)
		out = append(out, e)
	}
	return out, rows.Err()
}
