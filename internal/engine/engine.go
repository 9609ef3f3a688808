package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"controlling_pump/internal/actuator"
	"controlling_pump/internal/config"
	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"
	"controlling_pump/internal/sensor"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "controlling_pump-engine"

var errShutDown = models.NewError(models.KindActuatorFault, "engine is shut down")

// EventSink receives every event the engine emits, after the state lock is
// released. repository.EventRepo satisfies it.
type EventSink interface {
	Append(ctx context.Context, e models.PumpEvent) error
}

// Listener is called with a fresh Status after every command and poll.
// Listeners must not call back into Command, Pulse or Poll.
type Listener func(models.Status)

type stopper interface {
	Stop() bool
}

// Option customizes an Engine.
type Option func(*Engine)

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithEventSink(sinks ...EventSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine owns the pump state. Command, Pulse and Poll are serialized; Status
// only takes the state lock and never blocks on sensor I/O.
type Engine struct {
	op sync.Mutex // serializes mutators, held across sensor reads
	mu sync.Mutex // guards everything below

	cfg     config.EngineConfig
	enabled config.SensorsConfig
	sensor  sensor.Adapter
	act     actuator.Actuator

	state       models.PumpState
	mode        models.Mode
	reading     models.SensorReading
	violation   *models.Violation
	lastErr     *models.Error
	faultCause  *models.Error
	relayOn     bool
	speed       int
	changedAt   time.Time
	actFailures int
	sensorFails map[models.Sensor]int
	closed      bool

	pulseGen      uint64
	pulseDeadline time.Time
	pulseMode     models.Mode // restored when the pulse expires
	pulseTimer    stopper
	afterFunc     func(time.Duration, func()) stopper

	pending   []models.PumpEvent
	listeners map[int]Listener
	nextID    int
	seq       uint64

	sinks  []EventSink
	log    *logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// New builds an engine in state OFF. The sensor and actuator are owned by
// the caller, which closes them after the engine has been shut down.
func New(cfg config.EngineConfig, enabled config.SensorsConfig, s sensor.Adapter, a actuator.Actuator, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg,
		enabled:     enabled,
		sensor:      s,
		act:         a,
		state:       models.StateOff,
		mode:        cfg.InitialMode,
		sensorFails: make(map[models.Sensor]int),
		listeners:   make(map[int]Listener),
		log:         logger.Nop(),
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	if e.mode == "" {
		e.mode = models.ModeAuto
	}
	for _, opt := range opts {
		opt(e)
	}
	e.changedAt = e.now()
	return e
}

// Command is the single entry point every front end uses to change the pump.
func (e *Engine) Command(ctx context.Context, cmd models.PumpCommand) models.CommandResult {
	ctx, span := e.tracer.Start(ctx, "engine.Command", trace.WithAttributes(
		attribute.String("pump.action", string(cmd.Action)),
		attribute.String("pump.source", string(cmd.Source)),
	))
	defer span.End()

	e.op.Lock()
	var reading *models.SensorReading
	if (cmd.Action == models.ActionOn || cmd.Action == models.ActionAuto) && e.canStart() {
		r := e.sensor.Read(ctx)
		reading = &r
	}

	e.mu.Lock()
	if e.closed {
		res := e.resultLocked(errShutDown)
		e.mu.Unlock()
		e.op.Unlock()
		traceResult(span, res)
		return res
	}
	e.emit(models.EventCommand, fmt.Sprintf("%s from %s", cmd.Action, cmd.Source), cmd)
	res := e.applyLocked(ctx, cmd, reading)
	events, listeners, st := e.drainLocked()
	e.mu.Unlock()
	e.op.Unlock()

	e.dispatch(ctx, events, listeners, st)
	traceResult(span, res)
	return res
}

// Pulse runs the pump for the given number of seconds at speed percent (0
// for the configured default), gated like ON. A later OFF, ON, AUTO or Pulse
// replaces the timer. When the pulse ends the pump stops and the mode from
// before the pulse is restored.
func (e *Engine) Pulse(ctx context.Context, seconds, speed int, source models.Source) models.CommandResult {
	ctx, span := e.tracer.Start(ctx, "engine.Pulse", trace.WithAttributes(
		attribute.Int("pump.pulse_seconds", seconds),
		attribute.Int("pump.speed_percent", speed),
		attribute.String("pump.source", string(source)),
	))
	defer span.End()

	e.op.Lock()
	var reading *models.SensorReading
	if e.validPulse(seconds) && models.ValidSpeed(speed) && e.canStart() {
		r := e.sensor.Read(ctx)
		reading = &r
	}

	e.mu.Lock()
	if e.closed {
		res := e.resultLocked(errShutDown)
		e.mu.Unlock()
		e.op.Unlock()
		traceResult(span, res)
		return res
	}
	e.emit(models.EventCommand, fmt.Sprintf("PULSE %ds from %s", seconds, source), map[string]any{
		"action":  "PULSE",
		"seconds": seconds,
		"speed":   speed,
		"source":  source,
	})
	res := e.pulseLocked(ctx, seconds, speed, reading)
	events, listeners, st := e.drainLocked()
	e.mu.Unlock()
	e.op.Unlock()

	e.dispatch(ctx, events, listeners, st)
	traceResult(span, res)
	return res
}

// Poll runs one control cycle: read, evaluate, and switch if needed.
func (e *Engine) Poll(ctx context.Context) models.Status {
	ctx, span := e.tracer.Start(ctx, "engine.Poll")
	defer span.End()

	e.op.Lock()
	if !e.open() {
		e.op.Unlock()
		return e.Status()
	}
	r := e.sensor.Read(ctx)

	e.mu.Lock()
	e.observeLocked(ctx, r)
	if err := e.controlLocked(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Message)
	}
	events, listeners, st := e.drainLocked()
	e.mu.Unlock()
	e.op.Unlock()

	span.SetAttributes(attribute.String("pump.state", string(st.State)))
	e.dispatch(ctx, events, listeners, st)
	return st
}

// Run polls every PollInterval until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval())
	defer ticker.Stop()

	e.log.Infow("engine started",
		"poll_interval", e.cfg.PollInterval().String(),
		"mode", e.Status().Mode,
		"simulation", e.cfg.SimulationMode,
	)
	e.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			e.log.Infow("engine stopped")
			return
		case <-ticker.C:
			e.Poll(ctx)
		}
	}
}

// Shutdown cancels any pulse and de-energizes the relay. Later commands and
// polls are refused so nothing can energize the relay again.
func (e *Engine) Shutdown(ctx context.Context) {
	e.op.Lock()
	e.mu.Lock()
	e.closed = true
	e.cancelPulseLocked()
	e.forceOffLocked(ctx)
	if e.state == models.StateRunning {
		e.setStateLocked(models.StateOff, "shutdown")
	}
	events, listeners, st := e.drainLocked()
	e.mu.Unlock()
	e.op.Unlock()

	e.dispatch(ctx, events, listeners, st)
}

// Status returns a snapshot without touching sensors or the relay.
func (e *Engine) Status() models.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statusLocked()
}

// Subscribe registers fn and returns a func that removes it.
func (e *Engine) Subscribe(fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

// canStart reports whether a start request is worth a sensor read.
func (e *Engine) canStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.state != models.StateFault
}

func (e *Engine) open() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

// speedOrDefault maps the "unset" speed 0 to the configured default.
func (e *Engine) speedOrDefault(pct int) int {
	switch {
	case pct > 0:
		return pct
	case e.cfg.DefaultSpeed > 0:
		return e.cfg.DefaultSpeed
	default:
		return models.MaxSpeed
	}
}

func (e *Engine) validPulse(seconds int) bool {
	return seconds >= 1 && seconds <= e.cfg.MaxPulseSeconds
}

func (e *Engine) applyLocked(ctx context.Context, cmd models.PumpCommand, reading *models.SensorReading) models.CommandResult {
	switch cmd.Action {
	case models.ActionOff:
		return e.offLocked(ctx, cmd.Source)
	case models.ActionReset:
		return e.resetLocked(ctx, cmd.Source)
	case models.ActionOn, models.ActionAuto:
	default:
		return e.resultLocked(models.NewError(models.KindInvalidRequest, "unknown action %q", cmd.Action))
	}
	if !models.ValidSpeed(cmd.Speed) {
		return e.resultLocked(models.NewError(models.KindInvalidRequest,
			"speed must be between %d and %d percent, got %d", models.MinSpeed, models.MaxSpeed, cmd.Speed))
	}

	if e.state == models.StateFault {
		return e.rejectFaultLocked()
	}
	e.observeLocked(ctx, *reading)
	if e.state == models.StateFault {
		return e.rejectFaultLocked()
	}

	if cmd.Action == models.ActionOn {
		// A rejected ON leaves the mode alone so AUTO keeps deciding.
		if err := e.startLocked(ctx, 0, e.speedOrDefault(cmd.Speed), fmt.Sprintf("ON from %s", cmd.Source)); err != nil {
			if e.state == models.StateFault {
				return e.rejectFaultLocked()
			}
			return e.resultLocked(err)
		}
		e.mode = models.ModeManual
		return e.resultLocked(nil)
	}

	e.cancelPulseLocked()
	e.mode = models.ModeAuto
	if err := e.controlLocked(ctx); err != nil {
		if e.state == models.StateFault {
			return e.rejectFaultLocked()
		}
		return e.resultLocked(err)
	}
	return e.resultLocked(nil)
}

func (e *Engine) pulseLocked(ctx context.Context, seconds, speed int, reading *models.SensorReading) models.CommandResult {
	if !e.validPulse(seconds) {
		return e.resultLocked(models.NewError(models.KindInvalidRequest,
			"pulse must be between 1 and %d seconds, got %d", e.cfg.MaxPulseSeconds, seconds))
	}
	if !models.ValidSpeed(speed) {
		return e.resultLocked(models.NewError(models.KindInvalidRequest,
			"speed must be between %d and %d percent, got %d", models.MinSpeed, models.MaxSpeed, speed))
	}
	if e.state == models.StateFault {
		return e.rejectFaultLocked()
	}
	e.observeLocked(ctx, *reading)
	if e.state == models.StateFault {
		return e.rejectFaultLocked()
	}

	restore := e.mode
	if !e.pulseDeadline.IsZero() {
		restore = e.pulseMode
	}
	d := time.Duration(seconds) * time.Second
	if err := e.startLocked(ctx, d, e.speedOrDefault(speed), fmt.Sprintf("pulse %ds", seconds)); err != nil {
		if e.state == models.StateFault {
			return e.rejectFaultLocked()
		}
		return e.resultLocked(err)
	}
	e.mode = models.ModeManual
	e.pulseMode = restore
	return e.resultLocked(nil)
}

// startLocked gates on the latest reading, energizes the relay and sets the
// motor speed. A positive pulse arms the expiry timer. Mode is left to the
// caller.
func (e *Engine) startLocked(ctx context.Context, pulse time.Duration, speed int, reason string) *models.Error {
	vs := Evaluate(e.reading, e.cfg.Thresholds, e.enabled)
	if len(vs) > 0 {
		v := vs[0]
		e.setViolationLocked(&v)
		err := &models.Error{Kind: models.KindThresholdViolation, Sensor: v.Sensor, Message: v.Reason}
		e.lastErr = err
		if e.state == models.StateRunning {
			if serr := e.stopLocked(ctx, v.Reason); serr != nil {
				return serr
			}
		}
		return err
	}
	e.setViolationLocked(nil)
	e.cancelPulseLocked()

	if e.state != models.StateRunning {
		if err := e.switchLocked(ctx, true); err != nil {
			return err
		}
		e.setStateLocked(models.StateRunning, reason)
	}
	if err := e.speedLocked(ctx, speed); err != nil {
		return err
	}
	if pulse > 0 {
		e.armPulseLocked(pulse)
	}
	e.lastErr = nil
	return nil
}

func (e *Engine) offLocked(ctx context.Context, source models.Source) models.CommandResult {
	e.cancelPulseLocked()
	if e.state == models.StateFault {
		e.forceOffLocked(ctx)
		return e.resultLocked(nil)
	}

	e.mode = models.ModeManual
	if err := e.switchLocked(ctx, false); err != nil {
		if e.state == models.StateFault {
			return e.rejectFaultLocked()
		}
		return e.resultLocked(err)
	}
	e.setStateLocked(models.StateOff, fmt.Sprintf("OFF from %s", source))
	return e.resultLocked(nil)
}

func (e *Engine) resetLocked(ctx context.Context, source models.Source) models.CommandResult {
	if e.state != models.StateFault {
		return e.resultLocked(nil)
	}
	e.forceOffLocked(ctx)
	e.actFailures = 0
	e.sensorFails = make(map[models.Sensor]int)
	e.lastErr = nil
	e.faultCause = nil
	e.violation = nil
	e.mode = models.ModeManual
	e.setStateLocked(models.StateOff, fmt.Sprintf("reset from %s", source))
	e.emit(models.EventReset, fmt.Sprintf("fault cleared by %s", source), map[string]any{"source": source})
	e.log.Infow("fault reset", "source", source)
	return e.resultLocked(nil)
}

// controlLocked applies the policy to the latest reading: stop on any
// violation, confirm the relay while RUNNING, start when in AUTO and
// everything holds.
func (e *Engine) controlLocked(ctx context.Context) *models.Error {
	if e.state == models.StateFault {
		return nil
	}
	vs := Evaluate(e.reading, e.cfg.Thresholds, e.enabled)
	if len(vs) > 0 {
		v := vs[0]
		e.setViolationLocked(&v)
		if e.state == models.StateRunning {
			return e.stopLocked(ctx, v.Reason)
		}
		return nil
	}
	e.setViolationLocked(nil)

	switch {
	case e.state == models.StateRunning:
		// The relay can drop out underneath us; confirm it every cycle.
		if err := e.switchLocked(ctx, true); err != nil {
			if e.state == models.StateRunning {
				e.endPulseLocked()
				e.forceOffLocked(ctx)
				e.setStateLocked(models.StateOff, "relay not confirmed on")
			}
			return err
		}
	case e.state == models.StateOff && e.mode == models.ModeAuto:
		if err := e.switchLocked(ctx, true); err != nil {
			return err
		}
		e.setStateLocked(models.StateRunning, "auto: thresholds satisfied")
		return e.speedLocked(ctx, e.speedOrDefault(0))
	}
	return nil
}

func (e *Engine) stopLocked(ctx context.Context, reason string) *models.Error {
	e.endPulseLocked()
	if err := e.switchLocked(ctx, false); err != nil {
		return err
	}
	e.setStateLocked(models.StateOff, reason)
	return nil
}

// observeLocked stores r and tracks consecutive faults per sensor.
func (e *Engine) observeLocked(ctx context.Context, r models.SensorReading) {
	e.reading = r.Clone()
	for _, s := range models.SensorPriority {
		if !e.enabled.Enabled(s) {
			continue
		}
		if !r.HasFault(s) {
			e.sensorFails[s] = 0
			continue
		}
		e.sensorFails[s]++
		n := e.sensorFails[s]
		err := &models.Error{
			Kind:    models.KindSensorFault,
			Sensor:  s,
			Message: fmt.Sprintf("%s sensor unavailable for %d consecutive reads", s, n),
		}
		if n == 1 {
			e.lastErr = err
			e.emit(models.EventSensorFault, err.Message, map[string]any{"sensor": s})
			e.log.Warnw("sensor fault", "sensor", s)
		}
		if n > e.cfg.SensorFaultRetries {
			e.faultLocked(ctx, err)
		}
	}
}

// switchLocked asks the actuator for on and counts consecutive failures.
func (e *Engine) switchLocked(ctx context.Context, on bool) *models.Error {
	ack := e.act.SetState(ctx, on)
	e.relayOn = ack.Confirmed
	if ack.OK() {
		e.actFailures = 0
		if !on {
			e.idleSpeedLocked(ctx)
		}
		return nil
	}

	e.actFailures++
	err := &models.Error{
		Kind: models.KindActuatorFault,
		Message: fmt.Sprintf("relay %s not acknowledged (%d/%d): %v",
			onOff(on), e.actFailures, e.cfg.ActuatorRetries, ack.Failure()),
	}
	e.lastErr = err
	e.emit(models.EventActuatorFault, err.Message, map[string]any{
		"requested": on,
		"attempt":   e.actFailures,
	})
	e.log.Warnw("actuator ack failed", "requested", on, "attempt", e.actFailures, "error", ack.Failure())

	if e.actFailures >= e.cfg.ActuatorRetries {
		e.faultLocked(ctx, err)
	}
	return err
}

// faultLocked enters FAULT and tries to de-energize the relay.
func (e *Engine) faultLocked(ctx context.Context, cause *models.Error) {
	if e.state == models.StateFault {
		return
	}
	e.cancelPulseLocked()
	e.faultCause = cause
	e.lastErr = cause
	e.forceOffLocked(ctx)
	e.setStateLocked(models.StateFault, cause.Message)
	e.emit(models.EventFault, cause.Error(), map[string]any{
		"kind":   cause.Kind,
		"sensor": cause.Sensor,
	})
	e.log.Errorw("pump entered FAULT", "kind", cause.Kind, "sensor", cause.Sensor, "error", cause.Message)
}

// forceOffLocked de-energizes the relay without touching failure counters.
func (e *Engine) forceOffLocked(ctx context.Context) {
	ack := e.act.SetState(ctx, false)
	e.relayOn = ack.Confirmed
	e.idleSpeedLocked(ctx)
	if !ack.OK() {
		e.log.Errorw("could not de-energize relay", "error", ack.Failure())
	}
}

// speedLocked sets the motor duty cycle on actuators that support it. A
// failure leaves the pump running at its previous speed.
func (e *Engine) speedLocked(ctx context.Context, pct int) *models.Error {
	if pct == e.speed {
		return nil
	}
	if sc, ok := e.act.(actuator.SpeedController); ok {
		if err := sc.SetSpeed(ctx, pct); err != nil {
			merr := &models.Error{
				Kind:    models.KindActuatorFault,
				Message: fmt.Sprintf("set speed %d%%: %v", pct, err),
			}
			e.lastErr = merr
			e.emit(models.EventActuatorFault, merr.Message, map[string]any{"speed": pct})
			e.log.Warnw("set speed failed", "speed", pct, "error", err)
			return merr
		}
	}
	e.speed = pct
	return nil
}

// idleSpeedLocked drops the duty cycle to zero once the relay is off.
func (e *Engine) idleSpeedLocked(ctx context.Context) {
	if e.speed == 0 {
		return
	}
	e.speed = 0
	if sc, ok := e.act.(actuator.SpeedController); ok {
		if err := sc.SetSpeed(ctx, 0); err != nil {
			e.log.Warnw("reset speed failed", "error", err)
		}
	}
}

func (e *Engine) rejectFaultLocked() models.CommandResult {
	cause := e.faultCause
	if cause == nil {
		cause = models.NewError(models.KindActuatorFault, "unknown cause")
	}
	return e.resultLocked(&models.Error{
		Kind:    cause.Kind,
		Sensor:  cause.Sensor,
		Message: "pump is in FAULT until reset: " + cause.Message,
	})
}

func (e *Engine) setStateLocked(s models.PumpState, reason string) {
	if e.state == s {
		return
	}
	prev := e.state
	e.state = s
	e.changedAt = e.now()
	e.emit(models.EventStateChange, fmt.Sprintf("%s -> %s: %s", prev, s, reason), map[string]any{
		"from":   prev,
		"to":     s,
		"reason": reason,
	})
	e.log.Infow("pump state changed", "from", prev, "to", s, "reason", reason)
}

// setViolationLocked records v and emits an event when the violated sensor changes.
func (e *Engine) setViolationLocked(v *models.Violation) {
	prev := e.violation
	e.violation = v
	if v == nil || (prev != nil && prev.Sensor == v.Sensor) {
		return
	}
	e.emit(models.EventViolation, v.Reason, map[string]any{
		"sensor": v.Sensor,
		"value":  v.Value,
		"limit":  v.Limit,
	})
}

func (e *Engine) armPulseLocked(d time.Duration) {
	e.pulseGen++
	gen := e.pulseGen
	e.pulseDeadline = e.now().Add(d)
	e.pulseTimer = e.afterFunc(d, func() { e.expirePulse(gen) })
}

// endPulseLocked cancels the timer and hands control back to the mode that
// was active before the pulse.
func (e *Engine) endPulseLocked() {
	if e.pulseMode != "" && e.state != models.StateFault {
		e.mode = e.pulseMode
	}
	e.cancelPulseLocked()
}

func (e *Engine) cancelPulseLocked() {
	if e.pulseTimer != nil {
		e.pulseTimer.Stop()
		e.pulseTimer = nil
	}
	e.pulseGen++
	e.pulseDeadline = time.Time{}
	e.pulseMode = ""
}

// expirePulse switches the pump off when the pulse armed as gen is still current.
func (e *Engine) expirePulse(gen uint64) {
	ctx := context.Background()

	e.op.Lock()
	e.mu.Lock()
	if gen != e.pulseGen || e.pulseDeadline.IsZero() {
		e.mu.Unlock()
		e.op.Unlock()
		return
	}
	e.pulseTimer = nil
	e.pulseDeadline = time.Time{}
	if e.state == models.StateRunning {
		if err := e.stopLocked(ctx, "pulse finished"); err != nil {
			e.log.Errorw("pulse stop failed", "error", err.Message)
		}
	}
	e.endPulseLocked()
	events, listeners, st := e.drainLocked()
	e.mu.Unlock()
	e.op.Unlock()

	e.dispatch(ctx, events, listeners, st)
}

func (e *Engine) resultLocked(err *models.Error) models.CommandResult {
	res := models.CommandResult{
		OK:     err == nil,
		State:  e.state,
		Mode:   e.mode,
		Error:  err,
		Status: e.statusLocked(),
	}
	if err != nil && err.Kind == models.KindThresholdViolation {
		res.Violation = err.Sensor
	}
	return res
}

func (e *Engine) statusLocked() models.Status {
	st := models.Status{
		State:        e.state,
		Mode:         e.mode,
		Reading:      e.reading.Clone(),
		RelayOn:      e.relayOn,
		SpeedPercent: e.speed,
		Simulation:   e.cfg.SimulationMode,
		ChangedAt:    e.changedAt,
		Seq:          e.seq,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	if e.violation != nil {
		v := *e.violation
		st.Violation = &v
	}
	if !e.pulseDeadline.IsZero() {
		if left := e.pulseDeadline.Sub(e.now()); left > 0 {
			st.PulseRemainingSeconds = int(math.Ceil(left.Seconds()))
		}
	}
	return st
}

func (e *Engine) emit(typ, description string, metadata any) {
	e.pending = append(e.pending, models.PumpEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  e.now().UTC(),
		Type:        typ,
		Description: description,
		Metadata:    metadata,
	})
}

func (e *Engine) drainLocked() ([]models.PumpEvent, []Listener, models.Status) {
	events := e.pending
	e.pending = nil
	listeners := make([]Listener, 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.seq++
	return events, listeners, e.statusLocked()
}

// dispatch runs outside both locks, so two dispatches may reach a listener
// out of order; Status.Seq tells them apart. Event writes survive the
// caller's context being cancelled once the command has been applied.
func (e *Engine) dispatch(ctx context.Context, events []models.PumpEvent, listeners []Listener, st models.Status) {
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		for _, sink := range e.sinks {
			if err := sink.Append(ctx, ev); err != nil {
				e.log.Errorw("append pump event failed", "event_type", ev.Type, "error", err)
			}
		}
	}
	for _, fn := range listeners {
		fn(st)
	}
}

func traceResult(span trace.Span, res models.CommandResult) {
	span.SetAttributes(attribute.String("pump.state", string(res.State)))
	if res.OK {
		span.SetStatus(codes.Ok, "")
		return
	}
	if res.Error != nil {
		span.SetStatus(codes.Error, res.Error.Message)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
