package graph

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/kestreldev/kestrel/pkg/models"
)

// buildTasks converts id -> blockedBy lists into a task map.
func buildTasks(deps map[string][]string) map[string]*models.Task {
	tasks := make(map[string]*models.Task, len(deps))
	for id, blockedBy := range deps {
		tasks[id] = &models.Task{ID: id, State: models.TaskQueued, BlockedBy: blockedBy}
	}
	return tasks
}

func TestDetectCycleNone(t *testing.T) {
	tasks := buildTasks(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"a", "b"},
	})
	for id := range tasks {
		if found, cycle := DetectCycle(tasks, id); found {
			t.Errorf("unexpected cycle from %s: %v", id, cycle)
		}
	}
}

func TestDetectCycleSimple(t *testing.T) {
	tasks := buildTasks(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	found, cycle := DetectCycle(tasks, "a")
	if !found {
		t.Fatal("expected cycle")
	}
	if len(cycle) < 3 {
		t.Fatalf("cycle path too short: %v", cycle)
	}
	if cycle[0] != cycle[len(cycle)-1] {
		t.Errorf("cycle path should close on itself: %v", cycle)
	}
}

func TestDetectCycleSelf(t *testing.T) {
	tasks := buildTasks(map[string][]string{"a": {"a"}})
	if found, _ := DetectCycle(tasks, "a"); !found {
		t.Error("self-dependency should be a cycle")
	}
}

func TestDetectCycleDanglingReference(t *testing.T) {
	// b does not exist; the walk terminates instead of erroring.
	tasks := buildTasks(map[string][]string{"a": {"b"}})
	if found, _ := DetectCycle(tasks, "a"); found {
		t.Error("dangling reference is not a cycle")
	}
}

func TestValidateDAG(t *testing.T) {
	valid, cycles := ValidateDAG(buildTasks(map[string][]string{
		"a": nil, "b": {"a"}, "c": {"b"},
	}))
	if !valid || len(cycles) != 0 {
		t.Errorf("expected valid DAG, got cycles %v", cycles)
	}

	valid, cycles = ValidateDAG(buildTasks(map[string][]string{
		"a": {"c"}, "b": {"a"}, "c": {"b"}, "d": nil,
	}))
	if valid {
		t.Fatal("expected invalid DAG")
	}
	if len(cycles) != 1 {
		t.Errorf("rotations of one cycle should dedupe, got %d: %v", len(cycles), cycles)
	}
}

// TestValidateDAGRandom generates random DAGs (edges only point from
// lower to higher ids, so they cannot cycle), verifies they validate,
// then injects a back-edge and verifies they no longer do.
func TestValidateDAGRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := 3 + rng.Intn(10)
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%02d", i)
		}

		deps := make(map[string][]string, n)
		for i, id := range ids {
			deps[id] = nil
			for j := 0; j < i; j++ {
				if rng.Intn(3) == 0 {
					deps[id] = append(deps[id], ids[j])
				}
			}
		}
		tasks := buildTasks(deps)
		if valid, cycles := ValidateDAG(tasks); !valid {
			t.Fatalf("trial %d: forward-only graph reported cyclic: %v", trial, cycles)
		}

		// Inject a back-edge u <- v where v already depends on u,
		// closing a two-node loop.
		var u, v string
		for id, blockedBy := range deps {
			if len(blockedBy) > 0 {
				v, u = id, blockedBy[0]
				break
			}
		}
		if v == "" {
			continue // No edges this trial.
		}
		tasks[u].BlockedBy = append(tasks[u].BlockedBy, v)
		if valid, _ := ValidateDAG(tasks); valid {
			t.Fatalf("trial %d: back-edge %s<->%s not detected", trial, u, v)
		}
	}
}

func TestTopologicalSort(t *testing.T) {
	tasks := buildTasks(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"a"},
		"d": {"b", "c"},
	})
	order, err := TopologicalSort(tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != len(tasks) {
		t.Fatalf("expected %d tasks in order, got %d", len(tasks), len(order))
	}

	index := make(map[string]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	// For every edge "u blocks v", u must precede v.
	for id, task := range tasks {
		for _, dep := range task.BlockedBy {
			if index[dep] >= index[id] {
				t.Errorf("%s blocks %s but index(%s)=%d >= index(%s)=%d",
					dep, id, dep, index[dep], id, index[id])
			}
		}
	}
}

func TestTopologicalSortCycle(t *testing.T) {
	tasks := buildTasks(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	if _, err := TopologicalSort(tasks); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("expected ErrCycleDetected, got %v", err)
	}
}

func TestReady(t *testing.T) {
	tasks := buildTasks(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"a"},
		"d": nil,
	})
	tasks["a"].State = models.TaskCompleted
	tasks["c"].State = models.TaskBlocked
	tasks["d"].State = models.TaskRunning

	ready := Ready(tasks)
	if len(ready) != 1 || ready[0].ID != "b" {
		ids := make([]string, len(ready))
		for i, r := range ready {
			ids[i] = r.ID
		}
		t.Errorf("expected [b], got %v", ids)
	}
}

func TestReadyUnmetBlocker(t *testing.T) {
	tasks := buildTasks(map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"missing"},
	})
	ready := Ready(tasks)
	if len(ready) != 1 || ready[0].ID != "a" {
		t.Errorf("only a should be ready, got %d tasks", len(ready))
	}
}

func TestExportGraph(t *testing.T) {
	tasks := buildTasks(map[string][]string{
		"a": nil,
		"b": {"a", "missing"},
	})
	export := ExportGraph(tasks)
	if len(export.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %v", export.Nodes)
	}
	if len(export.Edges) != 1 {
		t.Fatalf("expected 1 edge (dangling refs omitted), got %v", export.Edges)
	}
	if export.Edges[0].From != "a" || export.Edges[0].To != "b" {
		t.Errorf("expected edge a -> b, got %+v", export.Edges[0])
	}
}
