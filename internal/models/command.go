package models

import "strings"

// Action is what a front end asks the engine to do.
type Action string

const (
	ActionOn    Action = "ON"
	ActionOff   Action = "OFF"
	ActionAuto  Action = "AUTO"
	ActionReset Action = "RESET"
)

// ParseAction normalizes user input ("on", " Off ") into an Action.
func ParseAction(s string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionOn, ActionOff, ActionAuto, ActionReset:
		return a, true
	default:
		return "", false
	}
}

// Source identifies the front end that issued a command.
type Source string

const (
	SourceWeb      Source = "web"
	SourceGUI      Source = "gui"
	SourceSchedule Source = "schedule"
)

// PumpCommand is a transient request to the engine.
type PumpCommand struct {
	Action Action `json:"action"`
	Source Source `json:"source"`
	Speed  int    `json:"speed,omitempty"` // ON only; 0 means the configured default
}

// Speed limits in percent of full motor power.
const (
	MinSpeed = 1
	MaxSpeed = 100
)

// ValidSpeed reports whether pct is 0 (use the default) or within MinSpeed..MaxSpeed.
func ValidSpeed(pct int) bool {
	return pct == 0 || (pct >= MinSpeed && pct <= MaxSpeed)
}

// CommandResult carries success or failure explicitly so callers never need
// to tell a rejected command apart from a broken transport.
type CommandResult struct {
	OK        bool      `json:"ok"`
	State     PumpState `json:"state"`
	Mode      Mode      `json:"mode"`
	Violation Sensor    `json:"violation,omitempty"`
	Error     *Error    `json:"error,omitempty"`
	Status    Status    `json:"status"`
}
