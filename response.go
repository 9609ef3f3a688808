package controlling_pump

import "controlling_pump/internal/models"

// PumpRequest is the body of POST /pump.
type PumpRequest struct {
	// Action to perform. Allowed: on, off, auto, reset (any case)
	Action string `json:"action" binding:"required" example:"on"`
	// Motor speed in percent for ON; omitted means the configured default
	Speed int `json:"speed" binding:"omitempty,min=1,max=100" example:"80"`
}

// PulseRequest is the body of POST /api/v1/pump/pulse.
type PulseRequest struct {
	// Run time in seconds; the pump switches off when it elapses
	Seconds int `json:"seconds" binding:"required" example:"120"`
	// Motor speed in percent; omitted means the configured default
	Speed int `json:"speed" binding:"omitempty,min=1,max=100" example:"60"`
}

// LogsResponse is returned by GET /api/v1/logs.
type LogsResponse struct {
	Count  int                `json:"count"`
	Events []models.PumpEvent `json:"events"`
}

// ErrorResponse is returned when a request is rejected before the engine sees it.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid body: EOF"`
}
