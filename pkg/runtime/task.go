package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskID identifies a logical thread of control.
type TaskID string

type taskKey struct{}

var (
	tasksMu sync.Mutex
	tasks   = make(map[TaskID][]*Registry)
)

// NewTaskID returns a fresh task identity.
func NewTaskID() TaskID {
	return TaskID(uuid.NewString())
}

// WithTask returns a context carrying id.
func WithTask(ctx context.Context, id TaskID) context.Context {
	return context.WithValue(ctx, taskKey{}, id)
}

// TaskFrom returns the task carried by ctx.
func TaskFrom(ctx context.Context) (TaskID, bool) {
	id, ok := ctx.Value(taskKey{}).(TaskID)
	return id, ok
}

// Current returns the registry active for the task carried by ctx, or the
// process-wide defaults when there is none.
func Current(ctx context.Context) *Registry {
	id, ok := TaskFrom(ctx)
	if !ok {
		return defaults
	}
	return active(id)
}

func active(id TaskID) *Registry {
	tasksMu.Lock()
	defer tasksMu.Unlock()
	stack := tasks[id]
	if len(stack) == 0 {
		return defaults
	}
	return stack[len(stack)-1]
}

// Enter makes reg the active registry for the task carried by ctx, creating a
// task if ctx has none. The returned exit function restores whatever was
// active before; calling it more than once has no further effect.
func Enter(ctx context.Context, reg *Registry) (context.Context, func()) {
	id, ok := TaskFrom(ctx)
	if !ok {
		id = NewTaskID()
		ctx = WithTask(ctx, id)
	}

	tasksMu.Lock()
	tasks[id] = append(tasks[id], reg)
	tasksMu.Unlock()

	var once sync.Once
	exit := func() {
		once.Do(func() { pop(id, reg) })
	}
	return ctx, exit
}

// pop removes the topmost occurrence of reg from the stack of id.
func pop(id TaskID, reg *Registry) {
	tasksMu.Lock()
	defer tasksMu.Unlock()
	stack := tasks[id]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == reg {
			stack = append(stack[:i:i], stack[i+1:]...)
			break
		}
	}
	if len(stack) == 0 {
		delete(tasks, id)
		return
	}
	tasks[id] = stack
}

// Scope enters a registry derived from the current one with overrides applied.
func Scope(ctx context.Context, overrides Handlers) (context.Context, func()) {
	return Enter(ctx, Current(ctx).With(overrides))
}

// Fork returns a context for a new task. The new task starts with no active
// registry, whatever the task carried by ctx has entered.
func Fork(ctx context.Context) context.Context {
	return WithTask(ctx, NewTaskID())
}

// Inherit makes the registry currently active for parent the active registry
// of the task carried by ctx.
func Inherit(ctx context.Context, parent TaskID) (context.Context, func()) {
	return Enter(ctx, active(parent))
}

// Child forks ctx into a new task that inherits the caller's active registry.
// It is meant for goroutines started on behalf of the caller; release must be
// called when the goroutine is done.
func Child(ctx context.Context) (context.Context, func()) {
	parent := Current(ctx)
	return Enter(Fork(ctx), parent)
}

// Depth returns the number of registries entered by the task carried by ctx.
func Depth(ctx context.Context) int {
	id, ok := TaskFrom(ctx)
	if !ok {
		return 0
	}
	tasksMu.Lock()
	defer tasksMu.Unlock()
	return len(tasks[id])
}

// Tasks returns the number of tasks with a non-empty stack.
func Tasks() int {
	tasksMu.Lock()
	defer tasksMu.Unlock()
	return len(tasks)
}
