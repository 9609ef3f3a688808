package service

import (
	"context"
	"time"

	"controlling_pump/internal/engine"
	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"
	"controlling_pump/internal/repository"
)

// Pump exposes control operations. Every front end (web, console,
// schedule) goes through it.
type Pump interface {
	Command(ctx context.Context, cmd models.PumpCommand) models.CommandResult
	Pulse(ctx context.Context, seconds, speed int, source models.Source) models.CommandResult
}

// Monitoring exposes read-only engine status.
type Monitoring interface {
	GetStatus(ctx context.Context) models.Status
	Subscribe(fn engine.Listener) func()
}

// EventLog exposes the append-only pump event log.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.PumpEvent, error)
	Prune(ctx context.Context, keep time.Duration) (int64, error)
}

// Controller runs the background poll loop. Stop via context cancellation
// in main(), then call Shutdown to de-energize the relay.
type Controller interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context)
}

// PumpEngine is the part of *engine.Engine the services use.
type PumpEngine interface {
	Command(ctx context.Context, cmd models.PumpCommand) models.CommandResult
	Pulse(ctx context.Context, seconds, speed int, source models.Source) models.CommandResult
	Status() models.Status
	Subscribe(fn engine.Listener) func()
	Run(ctx context.Context)
	Shutdown(ctx context.Context)
}

type Service struct {
	Pump
	Monitoring
	EventLog
	Controller
}

// NewService wires the engine and the repository layer into the services
// shared by every front end.
func NewService(eng PumpEngine, repos *repository.Repository, retention time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	events := NewEventLogService(repos.EventRepo)
	return &Service{
		Pump:       NewPumpService(eng, log),
		Monitoring: NewMonitoringService(eng),
		EventLog:   events,
		Controller: NewControllerService(eng, events, retention, log),
	}
}
