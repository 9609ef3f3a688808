package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_pump/internal/models"
	"controlling_pump/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errInvalidLimit     = errors.New("invalid limit: must be >= 0")
	errUnknownEventType = errors.New("unknown event type")
)

var knownEventTypes = map[string]bool{
	models.EventCommand:       true,
	models.EventStateChange:   true,
	models.EventViolation:     true,
	models.EventSensorFault:   true,
	models.EventActuatorFault: true,
	models.EventFault:         true,
	models.EventReset:         true,
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	if eventType != "" && !knownEventTypes[eventType] {
		return time.Time{}, time.Time{}, "", fmt.Errorf("%w: %q", errUnknownEventType, f.Type)
	}
	if f.Limit < 0 {
		return time.Time{}, time.Time{}, "", errInvalidLimit
	}
	return from, to, eventType, nil
}

// IsFilterError reports whether err came from filter validation rather than storage.
func IsFilterError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, errInvalidLimit) || errors.Is(err, errUnknownEventType)
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.PumpEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ, f.Limit)
}

// Prune deletes events older than keep. A non-positive keep is a no-op.
func (s *EventLogService) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	return s.eventRepo.DeleteBefore(ctx, time.Now().Add(-keep))
}
