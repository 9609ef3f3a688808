package service

import (
	"context"
	"sync"

	"controlling_pump/internal/engine"
	"controlling_pump/internal/models"
)

// fakeEngine records calls and returns canned results.
type fakeEngine struct {
	mu        sync.Mutex
	cmds      []models.PumpCommand
	pulses    []int
	speeds    []int
	sources   []models.Source
	res       models.CommandResult
	status    models.Status
	listeners []engine.Listener
	runs      int
	shutdowns int
}

func (f *fakeEngine) Command(_ context.Context, cmd models.PumpCommand) models.CommandResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return f.res
}

func (f *fakeEngine) Pulse(_ context.Context, seconds, speed int, source models.Source) models.CommandResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulses = append(f.pulses, seconds)
	f.speeds = append(f.speeds, speed)
	f.sources = append(f.sources, source)
	return f.res
}

func (f *fakeEngine) Status() models.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeEngine) Subscribe(fn engine.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	return func() {}
}

func (f *fakeEngine) Run(ctx context.Context) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	<-ctx.Done()
}

func (f *fakeEngine) Shutdown(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
}
