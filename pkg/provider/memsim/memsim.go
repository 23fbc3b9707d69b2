// Package memsim is an in-memory stand-in for a remote task provider, used
// throughout the engine's test suite in place of live Google Tasks /
// Microsoft To Do HTTP calls, with per-call error injection so tests can
// drive the engine's degraded-provider paths deterministically.
package memsim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/taskmesh/tasksync/pkg/types"
)

// Provider is a synchronized in-memory task store that satisfies
// provider.Provider. Tests seed it directly via Put/Delete and can inject
// failures via FailListAll / FailListChanges to exercise the engine's
// degraded-provider paths.
type Provider struct {
	mu    sync.Mutex
	tasks map[string]types.CanonicalTask

	FailListAll     error
	FailListChanges error
	FailUpsert      error
	FailDelete      error
}

// New returns an empty in-memory provider.
func New() *Provider {
	return &Provider{tasks: map[string]types.CanonicalTask{}}
}

// Put directly seeds (or overwrites) a task at id, bypassing UpsertTask's
// id-assignment so tests can set up fixtures with known ids.
func (p *Provider) Put(id string, task types.CanonicalTask) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tasks[id] = task
}

// Delete directly removes a task, bypassing DeleteTask's error injection.
func (p *Provider) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tasks, id)
}

func (p *Provider) ListTasks(_ context.Context, since *time.Time) ([]types.ProviderTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if since != nil && p.FailListChanges != nil {
		return nil, p.FailListChanges
	}
	if since == nil && p.FailListAll != nil {
		return nil, p.FailListAll
	}

	out := make([]types.ProviderTask, 0, len(p.tasks))
	for id, task := range p.tasks {
		if since != nil && task.UpdatedAt.Before(*since) {
			continue
		}
		out = append(out, types.ProviderTask{ID: id, Task: task})
	}
	return out, nil
}

func (p *Provider) UpsertTask(_ context.Context, input types.ProviderTask) (types.ProviderTask, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailUpsert != nil {
		return types.ProviderTask{}, p.FailUpsert
	}

	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}
	p.tasks[id] = input.Task
	return types.ProviderTask{ID: id, Task: input.Task}, nil
}

func (p *Provider) DeleteTask(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailDelete != nil {
		return p.FailDelete
	}
	delete(p.tasks, id)
	return nil
}

// Get returns the current task at id, for test assertions.
func (p *Provider) Get(id string) (types.CanonicalTask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[id]
	return t, ok
}

// Len returns the number of tasks currently held, for test assertions.
func (p *Provider) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *Provider) String() string {
	return fmt.Sprintf("memsim.Provider(%d tasks)", p.Len())
}
