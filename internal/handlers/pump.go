package handlers

import (
	"net/http"

	pump "controlling_pump"
	"controlling_pump/internal/models"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errInvalidBodyPref = "invalid body: "
	errUnknownAction   = "unknown action; use on, off, auto or reset"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, pump.ErrorResponse{Error: userMsg})
}

// respondWithResult writes a CommandResult with the code that matches it.
// A rejected command is still a 200: the engine answered.
func (h *Handler) respondWithResult(c *gin.Context, res models.CommandResult) {
	code := resultHTTPCode(res)
	if h.log != nil && code != http.StatusOK {
		kv := []interface{}{"state", res.State, "path", c.FullPath()}
		if res.Error != nil {
			kv = append(kv, "kind", res.Error.Kind, "err", res.Error.Message)
		}
		h.log.Warnw("pump_request_failed", kv...)
	}
	c.JSON(code, res)
}

func resultHTTPCode(res models.CommandResult) int {
	switch {
	case res.Error != nil && res.Error.Kind == models.KindInvalidRequest:
		return http.StatusBadRequest
	case res.Error != nil && res.Error.Kind == models.KindActuatorFault:
		return http.StatusServiceUnavailable
	case res.State == models.StateFault && !res.OK:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get pump status
// @Description  Current state, mode, latest reading and any active violation. Never touches the hardware.
// @Tags         pump
// @Produce      json
// @Success      200  {object}  models.Status
// @Router       /api/v1/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.GetStatus(c.Request.Context()))
}

// @Summary      Command the pump
// @Description  ON is rejected with a violation when thresholds do not hold. OFF always de-energizes the relay, also in FAULT. RESET clears FAULT.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body      controlling_pump.PumpRequest  true  "Command payload"
// @Success      200   {object}  models.CommandResult
// @Failure      400   {object}  controlling_pump.ErrorResponse
// @Failure      503   {object}  models.CommandResult
// @Router       /api/v1/pump [post]
func (h *Handler) commandPump(c *gin.Context) {
	var req pump.PumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pump.ErrorResponse{Error: errInvalidBodyPref + err.Error()})
		return
	}
	action, ok := models.ParseAction(req.Action)
	if !ok {
		c.JSON(http.StatusBadRequest, pump.ErrorResponse{Error: errUnknownAction})
		return
	}
	res := h.services.Pump.Command(c.Request.Context(), models.PumpCommand{
		Action: action,
		Source: models.SourceWeb,
		Speed:  req.Speed,
	})
	h.respondWithResult(c, res)
}

// @Summary      Run the pump for a fixed time
// @Description  Switches the pump on for the given number of seconds at an optional speed, then off. Subject to the same threshold checks as ON.
// @Tags         pump
// @Accept       json
// @Produce      json
// @Param        body  body      controlling_pump.PulseRequest  true  "Pulse payload"
// @Success      200   {object}  models.CommandResult
// @Failure      400   {object}  controlling_pump.ErrorResponse
// @Failure      503   {object}  models.CommandResult
// @Router       /api/v1/pump/pulse [post]
func (h *Handler) pulsePump(c *gin.Context) {
	var req pump.PulseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, pump.ErrorResponse{Error: errInvalidBodyPref + err.Error()})
		return
	}
	res := h.services.Pump.Pulse(c.Request.Context(), req.Seconds, req.Speed, models.SourceWeb)
	h.respondWithResult(c, res)
}
