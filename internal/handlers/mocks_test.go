package handlers

import (
	"context"
	"sync"
	"time"

	"controlling_pump/internal/engine"
	"controlling_pump/internal/models"
	"controlling_pump/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockPump struct {
	result models.CommandResult

	lastCmd     models.PumpCommand
	lastSeconds int
	lastSpeed   int
	lastSource  models.Source
	cmdCalls    int
	pulseCalls  int
}

func (m *mockPump) Command(_ context.Context, cmd models.PumpCommand) models.CommandResult {
	m.cmdCalls++
	m.lastCmd = cmd
	return m.result
}

func (m *mockPump) Pulse(_ context.Context, seconds, speed int, source models.Source) models.CommandResult {
	m.pulseCalls++
	m.lastSeconds = seconds
	m.lastSpeed = speed
	m.lastSource = source
	return m.result
}

type mockMonitoring struct {
	mu        sync.Mutex
	status    models.Status
	listeners []engine.Listener
}

func (m *mockMonitoring) GetStatus(context.Context) models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockMonitoring) Subscribe(fn engine.Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
	return func() {}
}

// push replaces the status and notifies subscribers the way the engine does.
func (m *mockMonitoring) push(st models.Status) {
	m.mu.Lock()
	m.status = st
	ls := append([]engine.Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, fn := range ls {
		fn(st)
	}
}

func (m *mockMonitoring) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

type mockEventLog struct {
	resp []models.PumpEvent
	err  error

	lastFilter service.LogFilter
	calls      int
}

func (m *mockEventLog) List(_ context.Context, f service.LogFilter) ([]models.PumpEvent, error) {
	m.calls++
	m.lastFilter = f
	return m.resp, m.err
}

func (m *mockEventLog) Prune(context.Context, time.Duration) (int64, error) { return 0, nil }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
