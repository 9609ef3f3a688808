package models

import "time"

// Status is a read-only snapshot of the engine.
type Status struct {
	State                 PumpState     `json:"state"`
	Mode                  Mode          `json:"mode"`
	Reading               SensorReading `json:"reading"`
	LastError             string        `json:"last_error,omitempty"`
	Violation             *Violation    `json:"violation,omitempty"`
	PulseRemainingSeconds int           `json:"pulse_remaining_seconds,omitempty"`
	RelayOn               bool          `json:"relay_on"`
	SpeedPercent          int           `json:"speed_percent"`
	Simulation            bool          `json:"simulation"`
	ChangedAt             time.Time     `json:"changed_at"`

	// Seq increases with every published snapshot. Consumers that may see
	// snapshots out of order keep the highest.
	Seq uint64 `json:"seq"`
}
