package service

import (
	"context"
	"time"

	"controlling_pump/internal/engine"
	"controlling_pump/internal/models"
)

type MonitoringService struct {
	eng PumpEngine
}

func NewMonitoringService(eng PumpEngine) *MonitoringService {
	return &MonitoringService{eng: eng}
}

// GetStatus returns the engine snapshot with times in UTC.
func (s *MonitoringService) GetStatus(_ context.Context) models.Status {
	st := s.eng.Status()
	st.ChangedAt = toUTC(st.ChangedAt)
	st.Reading.Timestamp = toUTC(st.Reading.Timestamp)
	return st
}

// Subscribe registers fn for a status push after every command and poll.
func (s *MonitoringService) Subscribe(fn engine.Listener) func() {
	return s.eng.Subscribe(fn)
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
