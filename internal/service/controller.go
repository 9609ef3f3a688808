package service

import (
	"context"
	"sync"
	"time"

	"controlling_pump/internal/logger"
)

const pruneEvery = time.Hour

// ControllerService runs the engine poll loop and trims the event log.
type ControllerService struct {
	eng       PumpEngine
	events    EventLog
	retention time.Duration
	log       *logger.Logger
	tick      time.Duration
}

func NewControllerService(eng PumpEngine, events EventLog, retention time.Duration, log *logger.Logger) *ControllerService {
	return &ControllerService{eng: eng, events: events, retention: retention, log: log, tick: pruneEvery}
}

// Run blocks until ctx is canceled.
func (s *ControllerService) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.eng.Run(ctx)
	}()

	if s.retention > 0 {
		s.prune(ctx)
		t := time.NewTicker(s.tick)
		defer t.Stop()
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-t.C:
				s.prune(ctx)
			}
		}
	}
	wg.Wait()
}

// Shutdown de-energizes the relay. Call it after Run has returned.
func (s *ControllerService) Shutdown(ctx context.Context) {
	s.eng.Shutdown(ctx)
}

func (s *ControllerService) prune(ctx context.Context) {
	n, err := s.events.Prune(ctx, s.retention)
	if err != nil {
		s.log.Errorw("prune event log failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Infow("event log pruned", "deleted", n, "retention", s.retention.String())
	}
}
