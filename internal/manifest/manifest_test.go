package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestreldev/kestrel/internal/registry"
	"github.com/kestreldev/kestrel/pkg/models"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeManifest(t, `
tasks:
  - id: build
    description: build the thing
    subagent_type: coder
  - id: test
    description: test the thing
    subagent_type: coder
    blocked_by: [build]
groups:
  - id: ship
    task_ids: [build, test]
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Tasks) != 2 || len(m.Groups) != 1 {
		t.Fatalf("parsed %d tasks, %d groups", len(m.Tasks), len(m.Groups))
	}
	if m.Tasks[1].BlockedBy[0] != "build" {
		t.Errorf("blocked_by lost: %+v", m.Tasks[1])
	}
}

func TestLoadRejectsEmptyAndAnonymous(t *testing.T) {
	if _, err := Load(writeManifest(t, "tasks: []\n")); !errors.Is(err, registry.ErrValidation) {
		t.Errorf("empty manifest: got %v, want ErrValidation", err)
	}

	path := writeManifest(t, `
tasks:
  - description: no id here
    subagent_type: coder
`)
	if _, err := Load(path); !errors.Is(err, registry.ErrValidation) {
		t.Errorf("missing id: got %v, want ErrValidation", err)
	}
}

func TestValidateRejectsCycle(t *testing.T) {
	m := &Manifest{Tasks: []models.TaskSpec{
		{ID: "a", Description: "a", SubagentType: "coder", BlockedBy: []string{"b"}},
		{ID: "b", Description: "b", SubagentType: "coder", BlockedBy: []string{"a"}},
	}}
	if err := m.Validate(); !errors.Is(err, registry.ErrCircularDependency) {
		t.Errorf("got %v, want ErrCircularDependency", err)
	}
}

func TestValidateRejectsDuplicateIDs(t *testing.T) {
	m := &Manifest{Tasks: []models.TaskSpec{
		{ID: "a", Description: "a", SubagentType: "coder"},
		{ID: "a", Description: "again", SubagentType: "coder"},
	}}
	if err := m.Validate(); !errors.Is(err, registry.ErrDuplicateID) {
		t.Errorf("got %v, want ErrDuplicateID", err)
	}
}

func TestApply(t *testing.T) {
	reg, err := registry.New(registry.Options{RootDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	m := &Manifest{
		Tasks: []models.TaskSpec{
			// Listed dependent-first; Apply must reorder.
			{ID: "test", Description: "test", SubagentType: "coder", BlockedBy: []string{"build"}},
			{ID: "build", Description: "build", SubagentType: "coder"},
		},
		Groups: []models.GroupSpec{
			{ID: "ship", TaskIDs: []string{"build", "test"}},
		},
	}
	created, err := m.Apply(reg)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(created) != 2 || created[0] != "build" || created[1] != "test" {
		t.Errorf("creation order = %v, want [build test]", created)
	}

	// Blockers were created first, so the dependent lands blocked.
	task, err := reg.Get("test")
	if err != nil {
		t.Fatal(err)
	}
	if task.State != models.TaskBlocked {
		t.Errorf("test.State = %s, want blocked", task.State)
	}
	if _, err := reg.GetGroup("ship"); err != nil {
		t.Errorf("group not created: %v", err)
	}
}

func TestApplyCyclicManifestCreatesNothing(t *testing.T) {
	reg, err := registry.New(registry.Options{RootDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	m := &Manifest{Tasks: []models.TaskSpec{
		{ID: "a", Description: "a", SubagentType: "coder", BlockedBy: []string{"b"}},
		{ID: "b", Description: "b", SubagentType: "coder", BlockedBy: []string{"a"}},
	}}
	if _, err := m.Apply(reg); err == nil {
		t.Fatal("expected error for cyclic manifest")
	}
	if tasks := reg.List(models.TaskFilter{}); len(tasks) != 0 {
		t.Errorf("cyclic manifest must create nothing, found %d tasks", len(tasks))
	}
}
