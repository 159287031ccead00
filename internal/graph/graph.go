// Package graph provides dependency graph algorithms over the task
// registry: cycle detection, DAG validation, topological ordering and
// ready-task queries. A directed edge u -> v means v is blocked by u.
package graph

import (
	"errors"
	"sort"

	"github.com/kestreldev/kestrel/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// Cycle is a cyclic path through BlockedBy edges. The first and last
// elements are the same task ID.
type Cycle []string

// DetectCycle walks BlockedBy edges from startID using depth-first search
// with an explicit recursion stack. It returns the cyclic path when one is
// reachable from startID. References to tasks missing from the map simply
// terminate the walk: dangling forward references are legal.
func DetectCycle(tasks map[string]*models.Task, startID string) (bool, Cycle) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var stack []string

	var visit func(id string) (bool, Cycle)
	visit = func(id string) (bool, Cycle) {
		task, ok := tasks[id]
		if !ok {
			return false, nil
		}
		visited[id] = true
		onStack[id] = true
		stack = append(stack, id)

		for _, dep := range task.BlockedBy {
			if onStack[dep] {
				// Found a back edge. Slice the stack from the first
				// occurrence of dep to recover the cyclic path.
				for i, s := range stack {
					if s == dep {
						cycle := append(Cycle(nil), stack[i:]...)
						return true, append(cycle, dep)
					}
				}
			}
			if !visited[dep] {
				if found, cycle := visit(dep); found {
					return true, cycle
				}
			}
		}

		onStack[id] = false
		stack = stack[:len(stack)-1]
		return false, nil
	}

	return visit(startID)
}

// ValidateDAG runs cycle detection from every node and reports overall
// validity plus the distinct cycles found.
func ValidateDAG(tasks map[string]*models.Task) (bool, []Cycle) {
	var cycles []Cycle
	seen := make(map[string]bool)

	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		found, cycle := DetectCycle(tasks, id)
		if !found {
			continue
		}
		key := cycleKey(cycle)
		if !seen[key] {
			seen[key] = true
			cycles = append(cycles, cycle)
		}
	}
	return len(cycles) == 0, cycles
}

// cycleKey canonicalizes a cycle so rotations of the same cycle dedupe.
func cycleKey(c Cycle) string {
	if len(c) < 2 {
		return ""
	}
	// Drop the duplicated closing element, rotate so the smallest ID leads.
	body := c[:len(c)-1]
	min := 0
	for i := range body {
		if body[i] < body[min] {
			min = i
		}
	}
	key := ""
	for i := 0; i < len(body); i++ {
		key += body[(min+i)%len(body)] + ">"
	}
	return key
}

// TopologicalSort returns a task ordering in which every blocker precedes
// the tasks it blocks (Kahn's algorithm over BlockedBy in-degrees).
// Returns ErrCycleDetected when the graph has no valid ordering.
func TopologicalSort(tasks map[string]*models.Task) ([]string, error) {
	// In-degree of a task is its count of blockers present in the map.
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for id, task := range tasks {
		if _, ok := indegree[id]; !ok {
			indegree[id] = 0
		}
		for _, dep := range task.BlockedBy {
			if _, ok := tasks[dep]; !ok {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		next := append([]string(nil), dependents[id]...)
		sort.Strings(next)
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(tasks) {
		return nil, ErrCycleDetected
	}
	return order, nil
}

// Ready returns queued tasks whose every blocker is completed (or whose
// blocker list is empty). A blocker missing from the map counts as unmet.
func Ready(tasks map[string]*models.Task) []*models.Task {
	var ready []*models.Task
	for _, task := range tasks {
		if task.State != models.TaskQueued {
			continue
		}
		if BlockersMet(tasks, task) {
			ready = append(ready, task)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
	return ready
}

// BlockersMet reports whether every blocker of the task is completed.
func BlockersMet(tasks map[string]*models.Task, task *models.Task) bool {
	for _, dep := range task.BlockedBy {
		blocker, ok := tasks[dep]
		if !ok || blocker.State != models.TaskCompleted {
			return false
		}
	}
	return true
}

// Edge is a single dependency edge: To is blocked by From.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Export is a read-only view of the graph for visualization and inspection.
type Export struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// ExportGraph returns the nodes and edges of the dependency graph. Edges
// pointing at tasks missing from the map are omitted.
func ExportGraph(tasks map[string]*models.Task) Export {
	var out Export
	for id := range tasks {
		out.Nodes = append(out.Nodes, id)
	}
	sort.Strings(out.Nodes)
	for _, id := range out.Nodes {
		for _, dep := range tasks[id].BlockedBy {
			if _, ok := tasks[dep]; !ok {
				continue
			}
			out.Edges = append(out.Edges, Edge{From: dep, To: id})
		}
	}
	sort.Slice(out.Edges, func(i, j int) bool {
		if out.Edges[i].From != out.Edges[j].From {
			return out.Edges[i].From < out.Edges[j].From
		}
		return out.Edges[i].To < out.Edges[j].To
	})
	return out
}
