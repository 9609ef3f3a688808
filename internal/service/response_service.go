package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "COMMAND", "STATE_CHANGE", "VIOLATION", "SENSOR_FAULT", "ACTUATOR_FAULT", "FAULT", "RESET"
	Limit int       // most recent N; 0 means all
}
