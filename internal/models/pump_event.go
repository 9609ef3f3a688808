package models

import "time"

// Event types written to the pump event log.
const (
	EventCommand       = "COMMAND"
	EventStateChange   = "STATE_CHANGE"
	EventViolation     = "VIOLATION"
	EventSensorFault   = "SENSOR_FAULT"
	EventActuatorFault = "ACTUATOR_FAULT"
	EventFault         = "FAULT"
	EventReset         = "RESET"
)

// PumpEvent is a single log entry.
type PumpEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // COMMAND | STATE_CHANGE | VIOLATION | SENSOR_FAULT | ACTUATOR_FAULT | FAULT | RESET
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
