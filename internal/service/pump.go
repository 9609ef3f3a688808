package service

import (
	"context"

	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"
)

type PumpService struct {
	eng PumpEngine
	log *logger.Logger
}

func NewPumpService(eng PumpEngine, log *logger.Logger) *PumpService {
	return &PumpService{eng: eng, log: log}
}

// Command forwards cmd to the engine. A missing source is treated as web.
func (s *PumpService) Command(ctx context.Context, cmd models.PumpCommand) models.CommandResult {
	if cmd.Source == "" {
		cmd.Source = models.SourceWeb
	}
	res := s.eng.Command(ctx, cmd)
	s.logResult("pump command", res, "action", cmd.Action, "source", cmd.Source, "speed", cmd.Speed)
	return res
}

// Pulse runs the pump for seconds at speed percent, then switches it off.
func (s *PumpService) Pulse(ctx context.Context, seconds, speed int, source models.Source) models.CommandResult {
	if source == "" {
		source = models.SourceWeb
	}
	res := s.eng.Pulse(ctx, seconds, speed, source)
	s.logResult("pump pulse", res, "seconds", seconds, "speed", speed, "source", source)
	return res
}

func (s *PumpService) logResult(msg string, res models.CommandResult, kv ...any) {
	kv = append(kv, "ok", res.OK, "state", res.State, "mode", res.Mode)
	if res.Error != nil {
		kv = append(kv, "error_kind", res.Error.Kind, "error", res.Error.Message)
		s.log.Warnw(msg+" rejected", kv...)
		return
	}
	s.log.Infow(msg, kv...)
}
