// Package events is a small in-process dispatch table. Handlers are registered
// explicitly at startup and run synchronously in registration order.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"taskhub/internal/models"
)

const TaskCreated = "task.created"

type Event struct {
	Name string
	Task *models.Task
}

type Handler func(ctx context.Context, e Event) error

type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]Handler)}
}

func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

// Dispatch calls every handler for e.Name and joins their errors.
// A nil Dispatcher dispatches nothing.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) error {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	hs := append([]Handler(nil), d.handlers[e.Name]...)
	d.mu.RUnlock()

	var errs []error
	for i, h := range hs {
		if err := h(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("%s handler %d: %w", e.Name, i, err))
		}
	}
	return errors.Join(errs...)
}
