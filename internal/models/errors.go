package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures.
type ErrorKind string

const (
	// KindSensorFault: one sensor is unavailable; the engine degrades.
	KindSensorFault ErrorKind = "SENSOR_FAULT"
	// KindThresholdViolation: ON rejected or pump forced OFF; recoverable.
	KindThresholdViolation ErrorKind = "THRESHOLD_VIOLATION"
	// KindActuatorFault: relay acknowledgment mismatch; escalates to FAULT.
	KindActuatorFault ErrorKind = "ACTUATOR_FAULT"
	// KindConfigError: invalid startup configuration; fatal.
	KindConfigError ErrorKind = "CONFIG_ERROR"
	// KindInvalidRequest: a command argument is out of range.
	KindInvalidRequest ErrorKind = "INVALID_REQUEST"
)

// Error is the typed failure carried in results and returned by config loading.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Sensor  Sensor    `json:"sensor,omitempty"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Sensor != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Sensor, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds an *Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
