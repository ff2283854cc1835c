package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCommand is returned for a command nobody registered.
var ErrUnknownCommand = errors.New("command handler not registered")

// CommandHandler executes one named command.
type CommandHandler func(ctx context.Context, payload interface{}) (interface{}, error)

// Dispatcher routes named commands to the use case that owns them. The
// buffer processor replays stored operations through it, so it never has to
// import the use case packages.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]CommandHandler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]CommandHandler)}
}

// RegisterCommand binds name to handler. Registering a name twice is a
// wiring bug and panics.
func (d *Dispatcher) RegisterCommand(name string, handler CommandHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.handlers[name]; exists {
		panic(fmt.Sprintf("dispatcher: command %q registered twice", name))
	}
	d.handlers[name] = handler
}

func (d *Dispatcher) ExecuteCommand(ctx context.Context, name string, payload interface{}) (interface{}, error) {
	d.mu.RLock()
	handler, ok := d.handlers[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return handler(ctx, payload)
}

// Commands lists the registered command names in order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
