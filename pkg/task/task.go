// Package task provides the task DAG that parci taskfile programs build:
// named tasks wired into a dependency graph and run in waves once all of
// their parents have succeeded.
package task

import (
	"context"
	"fmt"
	"sync"
)

// Task is one node in the task DAG. Build tasks through Graph.Add and
// wire dependencies with Then/After.
type Task struct {
	Name string
	Body func(ctx context.Context) error

	parents  map[*Task]struct{}
	children map[*Task]struct{}

	mu        sync.Mutex
	hasRun    bool
	succeeded bool
}

// Graph tracks every task by name and rejects duplicates.
type Graph struct {
	tasks map[string]*Task
}

// NewGraph returns an empty task graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Add registers a named task. Names must be unique within a graph.
func (g *Graph) Add(name string, body func(ctx context.Context) error) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("task name is empty")
	}
	if _, exists := g.tasks[name]; exists {
		return nil, fmt.Errorf("duplicate task: %s", name)
	}
	t := &Task{
		Name:     name,
		Body:     body,
		parents:  make(map[*Task]struct{}),
		children: make(map[*Task]struct{}),
	}
	g.tasks[name] = t
	return t, nil
}

// MustAdd is Add for taskfile top-level wiring, panicking on duplicates.
func (g *Graph) MustAdd(name string, body func(ctx context.Context) error) *Task {
	t, err := g.Add(name, body)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the named task, or nil.
func (g *Graph) Lookup(name string) *Task {
	return g.tasks[name]
}

// Then makes each child depend on t and returns t for chaining.
func (t *Task) Then(children ...*Task) *Task {
	for _, c := range children {
		t.children[c] = struct{}{}
		c.parents[t] = struct{}{}
	}
	return t
}

// After makes t depend on each parent and returns t for chaining.
func (t *Task) After(parents ...*Task) *Task {
	for _, p := range parents {
		p.Then(t)
	}
	return t
}

// Parents returns the task's parents.
func (t *Task) Parents() []*Task {
	out := make([]*Task, 0, len(t.parents))
	for p := range t.parents {
		out = append(out, p)
	}
	return out
}

// Children returns the task's children.
func (t *Task) Children() []*Task {
	out := make([]*Task, 0, len(t.children))
	for c := range t.children {
		out = append(out, c)
	}
	return out
}

// HasRun reports whether the task has finished (successfully or not).
func (t *Task) HasRun() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasRun
}

// Succeeded reports whether the task ran and its body returned nil.
func (t *Task) Succeeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasRun && t.succeeded
}

func (t *Task) run(ctx context.Context) error {
	err := t.Body(ctx)
	t.mu.Lock()
	t.hasRun = true
	t.succeeded = err == nil
	t.mu.Unlock()
	if err != nil {
		return fmt.Errorf("task %s: %w", t.Name, err)
	}
	return nil
}

// Collect walks the DAG from the starting tasks and returns every
// reachable task, following both child and parent edges. Cycles are
// broken by the visited set.
func Collect(start ...*Task) []*Task {
	seen := make(map[*Task]struct{})
	var out []*Task
	var walk func(t *Task)
	walk = func(t *Task) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
		for c := range t.children {
			walk(c)
		}
		for p := range t.parents {
			walk(p)
		}
	}
	for _, t := range start {
		walk(t)
	}
	return out
}

// Ready returns the tasks that have not run and whose parents have all
// run successfully.
func Ready(tasks []*Task) []*Task {
	var ready []*Task
	for _, t := range tasks {
		if t.HasRun() {
			continue
		}
		ok := true
		for p := range t.parents {
			if !p.Succeeded() {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, t)
		}
	}
	return ready
}
