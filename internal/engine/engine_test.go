package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"controlling_pump/internal/actuator"
	"controlling_pump/internal/config"
	"controlling_pump/internal/models"
	"controlling_pump/internal/sensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSensors = config.SensorsConfig{Temperature: true, Humidity: true, Flow: true}

func testConfig() config.EngineConfig {
	return config.EngineConfig{
		PollIntervalMs:     50,
		BusTimeoutMs:       20,
		SensorFaultRetries: 3,
		ActuatorRetries:    3,
		InitialMode:        models.ModeManual,
		MaxPulseSeconds:    60,
		Thresholds: models.Thresholds{
			MinFlowToRun:     0,
			MaxTempToRun:     35,
			MinHumidityToRun: 10,
		},
	}
}

func reading(temp, hum, flow float64) models.SensorReading {
	return models.SensorReading{
		TemperatureC:    models.Float(temp),
		HumidityPercent: models.Float(hum),
		FlowRateLPM:     models.Float(flow),
	}
}

type fixture struct {
	engine *Engine
	sensor *sensor.SimulatedSensor
	act    *actuator.SimulatedActuator
	sink   *recordingSink
}

func newFixture(t *testing.T, cfg config.EngineConfig, r models.SensorReading) *fixture {
	t.Helper()
	s := sensor.NewSimulated(config.SimulationConfig{Pattern: sensor.PatternFixed}, allSensors)
	s.Script(r)
	a := actuator.NewSimulated()
	sink := &recordingSink{}
	return &fixture{
		engine: New(cfg, allSensors, s, a, WithEventSink(sink)),
		sensor: s,
		act:    a,
		sink:   sink,
	}
}

func on(src models.Source) models.PumpCommand {
	return models.PumpCommand{Action: models.ActionOn, Source: src}
}

func cmd(a models.Action) models.PumpCommand {
	return models.PumpCommand{Action: a, Source: models.SourceWeb}
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.PumpEvent
}

func (r *recordingSink) Append(_ context.Context, e models.PumpEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// flakyActuator refuses to confirm ON while failOn is set.
type flakyActuator struct {
	mu     sync.Mutex
	on     bool
	failOn bool
	calls  int
}

func (f *flakyActuator) SetState(_ context.Context, on bool) actuator.Ack {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if on && f.failOn {
		return actuator.Ack{Requested: true, Confirmed: f.on, At: time.Now(), Err: errors.New("relay did not respond")}
	}
	changed := f.on != on
	f.on = on
	return actuator.Ack{Requested: on, Confirmed: on, Changed: changed, At: time.Now()}
}

func (f *flakyActuator) State() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

func (f *flakyActuator) Close() error { return nil }

// dropOut simulates the relay falling off on its own and refusing ON.
func (f *flakyActuator) dropOut() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.on = false
	f.failOn = true
}

func (f *flakyActuator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTimer struct{ stopped bool }

func (f *fakeTimer) Stop() bool {
	f.stopped = true
	return true
}

func TestCommandOn_ThresholdsHold(t *testing.T) {
	// Scenario B
	f := newFixture(t, testConfig(), reading(25, 60, 2.0))

	res := f.engine.Command(context.Background(), on(models.SourceWeb))

	require.True(t, res.OK)
	assert.Nil(t, res.Error)
	assert.Equal(t, models.StateRunning, res.State)
	assert.Equal(t, models.ModeManual, res.Mode)
	assert.Equal(t, 1, f.act.Calls())
	assert.Equal(t, 1, f.act.Writes())
	assert.True(t, f.act.State())
	assert.True(t, res.Status.RelayOn)
}

func TestCommandOn_ViolationReportsHighestPriority(t *testing.T) {
	cfg := testConfig()
	cfg.Thresholds.MinFlowToRun = 1.0

	tests := []struct {
		name string
		r    models.SensorReading
		want models.Sensor
	}{
		{"flow only", reading(20, 50, 0.5), models.SensorFlow},
		{"temperature only", reading(40, 50, 2), models.SensorTemperature},
		{"humidity only", reading(20, 5, 2), models.SensorHumidity},
		{"temperature and humidity", reading(40, 5, 2), models.SensorTemperature},
		{"all three", reading(40, 5, 0), models.SensorFlow},
		{"absent humidity", models.SensorReading{TemperatureC: models.Float(20), FlowRateLPM: models.Float(2)}, models.SensorHumidity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, cfg, tt.r)

			res := f.engine.Command(context.Background(), on(models.SourceGUI))

			assert.False(t, res.OK)
			assert.Equal(t, models.StateOff, res.State)
			assert.Equal(t, tt.want, res.Violation)
			require.NotNil(t, res.Error)
			assert.Equal(t, models.KindThresholdViolation, res.Error.Kind)
			assert.Equal(t, tt.want, res.Error.Sensor)
			require.NotNil(t, res.Status.Violation)
			assert.Equal(t, tt.want, res.Status.Violation.Sensor)
			assert.Equal(t, 0, f.act.Writes())
		})
	}
}

func TestScenarioA_NoFlowBlocksOn(t *testing.T) {
	cfg := testConfig()
	cfg.Thresholds = models.Thresholds{MinFlowToRun: 1.0, MaxTempToRun: 35, MinHumidityToRun: 10}
	f := newFixture(t, cfg, reading(20, 50, 0.0))

	res := f.engine.Command(context.Background(), on(models.SourceWeb))

	assert.Equal(t, models.StateOff, res.State)
	assert.Equal(t, models.SensorFlow, res.Violation)
	assert.Contains(t, res.Status.LastError, "flow")
}

func TestCommandOff_FromAnyNonFaultState(t *testing.T) {
	t.Run("from OFF", func(t *testing.T) {
		f := newFixture(t, testConfig(), reading(20, 50, 2))

		res := f.engine.Command(context.Background(), cmd(models.ActionOff))

		assert.True(t, res.OK)
		assert.Equal(t, models.StateOff, res.State)
		assert.Equal(t, 1, f.act.Calls())
		assert.Equal(t, 0, f.act.Writes())
	})
	t.Run("from RUNNING", func(t *testing.T) {
		f := newFixture(t, testConfig(), reading(20, 50, 2))
		require.True(t, f.engine.Command(context.Background(), on(models.SourceWeb)).OK)
		before := f.act.Calls()

		res := f.engine.Command(context.Background(), cmd(models.ActionOff))

		assert.True(t, res.OK)
		assert.Equal(t, models.StateOff, res.State)
		assert.Equal(t, models.ModeManual, res.Mode)
		assert.Equal(t, before+1, f.act.Calls())
		assert.False(t, f.act.State())
	})
	t.Run("even while violated", func(t *testing.T) {
		f := newFixture(t, testConfig(), reading(90, 0, 0))

		res := f.engine.Command(context.Background(), cmd(models.ActionOff))

		assert.True(t, res.OK)
		assert.Equal(t, models.StateOff, res.State)
	})
}

func TestCommand_Idempotent(t *testing.T) {
	f := newFixture(t, testConfig(), reading(20, 50, 2))

	r1 := f.engine.Command(context.Background(), on(models.SourceWeb))
	r2 := f.engine.Command(context.Background(), on(models.SourceGUI))
	assert.Equal(t, r1.State, r2.State)
	assert.Equal(t, models.StateRunning, r2.State)
	assert.Equal(t, 1, f.act.Writes())

	r3 := f.engine.Command(context.Background(), cmd(models.ActionOff))
	r4 := f.engine.Command(context.Background(), cmd(models.ActionOff))
	assert.Equal(t, r3.State, r4.State)
	assert.Equal(t, 2, f.act.Writes(), "second OFF is a no-op acknowledgment")
}

func TestScenarioC_AutoForcesOffWithinOnePoll(t *testing.T) {
	cfg := testConfig()
	f := newFixture(t, cfg, reading(25, 60, 2))

	res := f.engine.Command(context.Background(), cmd(models.ActionAuto))
	require.True(t, res.OK)
	require.Equal(t, models.StateRunning, res.State)
	require.Equal(t, models.ModeAuto, res.Mode)

	f.sensor.Script(reading(cfg.Thresholds.MaxTempToRun+5, 60, 2))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.engine.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return f.engine.Status().State == models.StateOff
	}, 2*cfg.PollInterval(), 5*time.Millisecond)

	st := f.engine.Status()
	require.NotNil(t, st.Violation)
	assert.Equal(t, models.SensorTemperature, st.Violation.Sensor)
	assert.Equal(t, models.ModeAuto, st.Mode, "AUTO keeps deciding after a forced stop")

	cancel()
	<-done
}

func TestCommandOn_RejectedKeepsAutoMode(t *testing.T) {
	f := newFixture(t, testConfig(), reading(40, 60, 2))
	require.True(t, f.engine.Command(context.Background(), cmd(models.ActionAuto)).OK)

	res := f.engine.Command(context.Background(), on(models.SourceWeb))
	assert.False(t, res.OK)
	assert.Equal(t, models.SensorTemperature, res.Violation)
	assert.Equal(t, models.ModeAuto, res.Mode)
	assert.Equal(t, models.ModeAuto, f.engine.Status().Mode)

	f.sensor.Script(reading(25, 60, 2))
	st := f.engine.Poll(context.Background())
	assert.Equal(t, models.StateRunning, st.State, "AUTO restarts once thresholds recover")
	assert.Equal(t, models.ModeAuto, st.Mode)
}

func TestAuto_RestartsWhenThresholdsRecover(t *testing.T) {
	f := newFixture(t, testConfig(), reading(40, 60, 2))

	res := f.engine.Command(context.Background(), cmd(models.ActionAuto))
	assert.True(t, res.OK)
	assert.Equal(t, models.StateOff, res.State)

	f.sensor.Script(reading(25, 60, 2))
	st := f.engine.Poll(context.Background())
	assert.Equal(t, models.StateRunning, st.State)
	assert.Nil(t, st.Violation)
}

func TestManualModePollDoesNotStart(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))

	st := f.engine.Poll(context.Background())

	assert.Equal(t, models.StateOff, st.State)
	assert.Equal(t, 0, f.act.Calls())
}

func TestManualRunningStopsOnViolation(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	require.True(t, f.engine.Command(context.Background(), on(models.SourceWeb)).OK)

	f.sensor.Script(reading(25, 3, 2))
	st := f.engine.Poll(context.Background())

	assert.Equal(t, models.StateOff, st.State)
	assert.False(t, f.act.State())
}

func TestScenarioD_ActuatorFailuresEnterFault(t *testing.T) {
	s := sensor.NewSimulated(config.SimulationConfig{Pattern: sensor.PatternFixed}, allSensors)
	s.Script(reading(25, 60, 2))
	act := &flakyActuator{failOn: true}
	e := New(testConfig(), allSensors, s, act)

	res := e.Command(context.Background(), cmd(models.ActionAuto))
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, models.KindActuatorFault, res.Error.Kind)
	assert.Equal(t, models.StateOff, res.State)

	assert.Equal(t, models.StateOff, e.Poll(context.Background()).State)
	st := e.Poll(context.Background())
	assert.Equal(t, models.StateFault, st.State)
	assert.False(t, act.State(), "relay de-energized on FAULT")
	assert.Contains(t, st.LastError, "ACTUATOR_FAULT")

	act.mu.Lock()
	act.failOn = false
	act.mu.Unlock()

	for i := 0; i < 3; i++ {
		res = e.Command(context.Background(), on(models.SourceWeb))
		assert.False(t, res.OK)
		assert.Equal(t, models.StateFault, res.State)
		require.NotNil(t, res.Error)
		assert.Equal(t, models.KindActuatorFault, res.Error.Kind)
	}
	assert.False(t, e.Pulse(context.Background(), 5, 0, models.SourceWeb).OK)
	assert.False(t, e.Command(context.Background(), cmd(models.ActionAuto)).OK)

	res = e.Command(context.Background(), cmd(models.ActionReset))
	assert.True(t, res.OK)
	assert.Equal(t, models.StateOff, res.State)
	assert.Empty(t, res.Status.LastError)

	res = e.Command(context.Background(), on(models.SourceWeb))
	assert.True(t, res.OK)
	assert.Equal(t, models.StateRunning, res.State)
}

func TestPoll_RelayDropOutLeavesRunning(t *testing.T) {
	s := sensor.NewSimulated(config.SimulationConfig{Pattern: sensor.PatternFixed}, allSensors)
	s.Script(reading(25, 60, 2))
	act := &flakyActuator{}
	e := New(testConfig(), allSensors, s, act)
	require.True(t, e.Command(context.Background(), on(models.SourceWeb)).OK)

	act.dropOut()
	before := act.callCount()
	st := e.Poll(context.Background())

	assert.Greater(t, act.callCount(), before, "poll re-checks the relay while RUNNING")
	assert.Equal(t, models.StateOff, st.State)
	assert.False(t, st.RelayOn)
	assert.Contains(t, st.LastError, "ACTUATOR_FAULT")

	for i := 0; i < 5; i++ {
		st = e.Poll(context.Background())
	}
	assert.Equal(t, models.StateOff, st.State, "MANUAL does not retry on its own")
}

func TestPoll_RelayDropOutInAutoFaultsAfterRetries(t *testing.T) {
	s := sensor.NewSimulated(config.SimulationConfig{Pattern: sensor.PatternFixed}, allSensors)
	s.Script(reading(25, 60, 2))
	act := &flakyActuator{}
	e := New(testConfig(), allSensors, s, act)
	require.Equal(t, models.StateRunning, e.Command(context.Background(), cmd(models.ActionAuto)).State)

	act.dropOut()
	assert.Equal(t, models.StateOff, e.Poll(context.Background()).State)
	assert.Equal(t, models.StateOff, e.Poll(context.Background()).State)
	st := e.Poll(context.Background())

	assert.Equal(t, models.StateFault, st.State)
	assert.False(t, st.RelayOn)
	assert.False(t, act.State())
}

func TestPoll_RunningRelayConfirmedEachCycle(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	require.True(t, f.engine.Command(context.Background(), on(models.SourceWeb)).OK)
	calls := f.act.Calls()

	for i := 0; i < 3; i++ {
		st := f.engine.Poll(context.Background())
		assert.Equal(t, models.StateRunning, st.State)
		assert.True(t, st.RelayOn)
	}
	assert.Equal(t, calls+3, f.act.Calls())
	assert.Equal(t, 1, f.act.Writes(), "confirming an energized relay does not rewrite it")
}

func TestActuatorFailureBelowRetriesResetsOnSuccess(t *testing.T) {
	s := sensor.NewSimulated(config.SimulationConfig{Pattern: sensor.PatternFixed}, allSensors)
	s.Script(reading(25, 60, 2))
	act := &flakyActuator{failOn: true}
	e := New(testConfig(), allSensors, s, act)

	for i := 0; i < 2; i++ {
		res := e.Command(context.Background(), on(models.SourceWeb))
		assert.False(t, res.OK)
		assert.Equal(t, models.StateOff, res.State)
	}

	act.mu.Lock()
	act.failOn = false
	act.mu.Unlock()
	require.True(t, e.Command(context.Background(), on(models.SourceWeb)).OK)
	require.True(t, e.Command(context.Background(), cmd(models.ActionOff)).OK)

	act.mu.Lock()
	act.failOn = true
	act.mu.Unlock()
	for i := 0; i < 2; i++ {
		e.Command(context.Background(), on(models.SourceWeb))
	}
	assert.Equal(t, models.StateOff, e.Status().State, "counter restarted after the successful ack")
}

func TestFaultOnlyClearedByReset(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	f.sensor.SetFaulty(models.SensorTemperature)
	for i := 0; i < 4; i++ {
		f.engine.Poll(context.Background())
	}
	require.Equal(t, models.StateFault, f.engine.Status().State)

	f.sensor.SetFaulty()
	for i := 0; i < 5; i++ {
		assert.Equal(t, models.StateFault, f.engine.Poll(context.Background()).State)
	}

	res := f.engine.Command(context.Background(), cmd(models.ActionOff))
	assert.True(t, res.OK, "OFF is always honored")
	assert.Equal(t, models.StateFault, res.State)
	assert.False(t, f.act.State())

	res = f.engine.Command(context.Background(), on(models.SourceWeb))
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, models.KindSensorFault, res.Error.Kind)
	assert.Equal(t, models.SensorTemperature, res.Error.Sensor)

	res = f.engine.Command(context.Background(), cmd(models.ActionReset))
	assert.True(t, res.OK)
	assert.Equal(t, models.StateOff, res.State)
	assert.Equal(t, models.ModeManual, res.Mode)
	assert.Contains(t, f.sink.types(), models.EventReset)
}

func TestSensorFault_PersistentEntersFault(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	f.sensor.SetFaulty(models.SensorHumidity)

	for i := 1; i <= 3; i++ {
		st := f.engine.Poll(context.Background())
		assert.Equal(t, models.StateOff, st.State, "read %d", i)
		assert.Nil(t, st.Reading.HumidityPercent)
		assert.NotNil(t, st.Reading.TemperatureC, "other sensors keep reporting")
	}
	st := f.engine.Poll(context.Background())
	assert.Equal(t, models.StateFault, st.State)
	assert.Contains(t, st.LastError, "SENSOR_FAULT")

	types := f.sink.types()
	assert.Contains(t, types, models.EventSensorFault)
	assert.Contains(t, types, models.EventFault)
}

func TestSensorFault_TransientDoesNotFault(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))

	for round := 0; round < 3; round++ {
		f.sensor.SetFaulty(models.SensorFlow)
		f.engine.Poll(context.Background())
		f.engine.Poll(context.Background())
		f.sensor.SetFaulty()
		f.engine.Poll(context.Background())
	}
	assert.Equal(t, models.StateOff, f.engine.Status().State)
}

func TestSensorFault_BlocksOnWithViolation(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	f.sensor.SetFaulty(models.SensorFlow)

	res := f.engine.Command(context.Background(), on(models.SourceWeb))

	assert.False(t, res.OK)
	assert.Equal(t, models.SensorFlow, res.Violation)
	assert.Equal(t, models.StateOff, res.State)
}

func TestDisabledSensorIsNotEvaluated(t *testing.T) {
	enabled := config.SensorsConfig{Temperature: true, Humidity: false, Flow: true}
	s := sensor.NewSimulated(config.SimulationConfig{Pattern: sensor.PatternFixed}, enabled)
	s.Script(reading(25, 0, 2))
	a := actuator.NewSimulated()
	e := New(testConfig(), enabled, s, a)

	res := e.Command(context.Background(), on(models.SourceWeb))

	assert.True(t, res.OK)
	assert.Nil(t, res.Status.Reading.HumidityPercent)
}

func newPulseFixture(t *testing.T) (*fixture, *time.Time, *[]func()) {
	t.Helper()
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	now := time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	f.engine.now = func() time.Time { return now }
	var fired []func()
	f.engine.afterFunc = func(_ time.Duration, fn func()) stopper {
		fired = append(fired, fn)
		return &fakeTimer{}
	}
	return f, &now, &fired
}

func TestPulse_ExpiryTurnsOff(t *testing.T) {
	f, now, timers := newPulseFixture(t)

	res := f.engine.Pulse(context.Background(), 30, 0, models.SourceSchedule)
	require.True(t, res.OK)
	assert.Equal(t, models.StateRunning, res.State)
	assert.Equal(t, 30, res.Status.PulseRemainingSeconds)

	*now = now.Add(10 * time.Second)
	assert.Equal(t, 20, f.engine.Status().PulseRemainingSeconds)

	require.Len(t, *timers, 1)
	(*timers)[0]()

	st := f.engine.Status()
	assert.Equal(t, models.StateOff, st.State)
	assert.Equal(t, models.ModeManual, st.Mode)
	assert.Zero(t, st.PulseRemainingSeconds)
	assert.False(t, f.act.State())
}

func TestPulse_ExpiryRestoresAutoMode(t *testing.T) {
	f, _, timers := newPulseFixture(t)
	require.True(t, f.engine.Command(context.Background(), cmd(models.ActionAuto)).OK)

	res := f.engine.Pulse(context.Background(), 30, 0, models.SourceSchedule)
	require.True(t, res.OK)
	assert.Equal(t, models.ModeManual, res.Mode, "the timer owns the pump while it runs")

	require.True(t, f.engine.Pulse(context.Background(), 20, 0, models.SourceWeb).OK)
	require.Len(t, *timers, 2)
	(*timers)[1]()

	st := f.engine.Status()
	assert.Equal(t, models.StateOff, st.State)
	assert.Equal(t, models.ModeAuto, st.Mode, "mode from before the first pulse")

	assert.Equal(t, models.StateRunning, f.engine.Poll(context.Background()).State)
}

func TestPulse_ViolationEndsPulseAndRestoresMode(t *testing.T) {
	f, _, _ := newPulseFixture(t)
	require.True(t, f.engine.Command(context.Background(), cmd(models.ActionAuto)).OK)
	require.True(t, f.engine.Pulse(context.Background(), 30, 0, models.SourceSchedule).OK)

	f.sensor.Script(reading(50, 60, 2))
	st := f.engine.Poll(context.Background())

	assert.Equal(t, models.StateOff, st.State)
	assert.Zero(t, st.PulseRemainingSeconds)
	assert.Equal(t, models.ModeAuto, st.Mode)
}

func TestPulse_AutoCommandTakesOver(t *testing.T) {
	f, _, timers := newPulseFixture(t)
	require.True(t, f.engine.Pulse(context.Background(), 30, 0, models.SourceWeb).OK)

	res := f.engine.Command(context.Background(), cmd(models.ActionAuto))
	require.True(t, res.OK)
	assert.Equal(t, models.StateRunning, res.State)
	assert.Zero(t, res.Status.PulseRemainingSeconds)

	(*timers)[0]()
	st := f.engine.Status()
	assert.Equal(t, models.StateRunning, st.State, "cancelled timer is ignored")
	assert.Equal(t, models.ModeAuto, st.Mode)
}

func TestPulse_RejectedKeepsAutoMode(t *testing.T) {
	f, _, timers := newPulseFixture(t)
	f.sensor.Script(reading(50, 60, 2))
	require.Equal(t, models.ModeAuto, f.engine.Command(context.Background(), cmd(models.ActionAuto)).Mode)

	res := f.engine.Pulse(context.Background(), 10, 0, models.SourceSchedule)

	assert.False(t, res.OK)
	assert.Equal(t, models.ModeAuto, res.Mode)
	assert.Equal(t, models.ModeAuto, f.engine.Status().Mode)
	assert.Empty(t, *timers)
}

func TestPulse_OffCancels(t *testing.T) {
	f, _, timers := newPulseFixture(t)

	require.True(t, f.engine.Pulse(context.Background(), 30, 0, models.SourceWeb).OK)
	require.True(t, f.engine.Command(context.Background(), on(models.SourceWeb)).OK)
	assert.Zero(t, f.engine.Status().PulseRemainingSeconds, "ON replaces the timed run")

	(*timers)[0]()
	assert.Equal(t, models.StateRunning, f.engine.Status().State, "stale timer ignored")

	require.True(t, f.engine.Pulse(context.Background(), 30, 0, models.SourceWeb).OK)
	require.True(t, f.engine.Command(context.Background(), cmd(models.ActionOff)).OK)
	writes := f.act.Writes()
	(*timers)[1]()
	assert.Equal(t, models.StateOff, f.engine.Status().State)
	assert.Equal(t, writes, f.act.Writes())
}

func TestPulse_Validation(t *testing.T) {
	f, _, _ := newPulseFixture(t)

	for _, secs := range []int{0, -1, 61} {
		res := f.engine.Pulse(context.Background(), secs, 0, models.SourceWeb)
		assert.False(t, res.OK)
		require.NotNil(t, res.Error)
		assert.Equal(t, models.KindInvalidRequest, res.Error.Kind)
	}
	assert.Equal(t, 0, f.act.Calls())
}

func TestPulse_GatedLikeOn(t *testing.T) {
	f, _, timers := newPulseFixture(t)
	f.sensor.Script(reading(50, 60, 2))

	res := f.engine.Pulse(context.Background(), 10, 0, models.SourceWeb)

	assert.False(t, res.OK)
	assert.Equal(t, models.SensorTemperature, res.Violation)
	assert.Empty(t, *timers)
}

func TestStatus_HasNoSideEffects(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	require.True(t, f.engine.Command(context.Background(), on(models.SourceWeb)).OK)
	calls := f.act.Calls()
	events := len(f.sink.types())

	for i := 0; i < 5; i++ {
		st := f.engine.Status()
		assert.Equal(t, models.StateRunning, st.State)
		assert.True(t, st.RelayOn)
	}
	assert.Equal(t, calls, f.act.Calls())
	assert.Equal(t, events, len(f.sink.types()))
}

func TestEventsAndListeners(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	var (
		mu   sync.Mutex
		seen []models.PumpState
	)
	unsubscribe := f.engine.Subscribe(func(st models.Status) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st.State)
		_ = f.engine.Status() // listeners may read status
	})

	f.engine.Command(context.Background(), on(models.SourceGUI))
	f.engine.Command(context.Background(), cmd(models.ActionOff))
	unsubscribe()
	f.engine.Command(context.Background(), on(models.SourceGUI))

	mu.Lock()
	assert.Equal(t, []models.PumpState{models.StateRunning, models.StateOff}, seen)
	mu.Unlock()

	assert.Equal(t, []string{
		models.EventCommand, models.EventStateChange,
		models.EventCommand, models.EventStateChange,
		models.EventCommand, models.EventStateChange,
	}, f.sink.types())

	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	for _, ev := range f.sink.events {
		assert.NotEmpty(t, ev.EventID)
		assert.False(t, ev.OccurredAt.IsZero())
	}
}

func TestUnknownAction(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	res := f.engine.Command(context.Background(), cmd(models.Action("FLUSH")))
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, models.KindInvalidRequest, res.Error.Kind)
}

func TestShutdownDeenergizes(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	require.True(t, f.engine.Command(context.Background(), on(models.SourceWeb)).OK)

	f.engine.Shutdown(context.Background())

	assert.Equal(t, models.StateOff, f.engine.Status().State)
	assert.False(t, f.act.State())
}

func TestShutdown_RefusesLaterCommands(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	require.True(t, f.engine.Command(context.Background(), cmd(models.ActionAuto)).OK)
	f.engine.Shutdown(context.Background())
	writes := f.act.Writes()

	res := f.engine.Command(context.Background(), on(models.SourceWeb))
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, models.KindActuatorFault, res.Error.Kind)

	assert.False(t, f.engine.Pulse(context.Background(), 10, 0, models.SourceWeb).OK)
	assert.False(t, f.engine.Command(context.Background(), cmd(models.ActionAuto)).OK)
	assert.Equal(t, models.StateOff, f.engine.Poll(context.Background()).State, "AUTO poll stays idle")

	assert.False(t, f.act.State())
	assert.Equal(t, writes, f.act.Writes())
}

func TestSpeed_CommandPulseAndAuto(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultSpeed = 80
	f := newFixture(t, cfg, reading(25, 60, 2))
	now := time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	f.engine.now = func() time.Time { return now }
	var timers []func()
	f.engine.afterFunc = func(_ time.Duration, fn func()) stopper {
		timers = append(timers, fn)
		return &fakeTimer{}
	}

	res := f.engine.Command(context.Background(), models.PumpCommand{Action: models.ActionOn, Source: models.SourceWeb, Speed: 60})
	require.True(t, res.OK)
	assert.Equal(t, 60, res.Status.SpeedPercent)
	assert.Equal(t, 60, f.act.Speed())

	res = f.engine.Command(context.Background(), models.PumpCommand{Action: models.ActionOn, Source: models.SourceWeb, Speed: 90})
	require.True(t, res.OK)
	assert.Equal(t, 90, res.Status.SpeedPercent, "ON while running changes speed")

	require.True(t, f.engine.Command(context.Background(), cmd(models.ActionOff)).OK)
	assert.Equal(t, 0, f.engine.Status().SpeedPercent)

	require.Equal(t, 40, f.engine.Pulse(context.Background(), 10, 40, models.SourceWeb).Status.SpeedPercent)
	timers[0]()
	assert.Equal(t, 0, f.engine.Status().SpeedPercent)

	res = f.engine.Command(context.Background(), cmd(models.ActionAuto))
	require.Equal(t, models.StateRunning, res.State)
	assert.Equal(t, 80, res.Status.SpeedPercent, "AUTO runs at the configured default")

	assert.Equal(t, []int{60, 90, 0, 40, 0, 80}, f.act.Speeds())
}

func TestSpeed_OutOfRangeRejected(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))

	for _, speed := range []int{-1, 101} {
		res := f.engine.Command(context.Background(), models.PumpCommand{Action: models.ActionOn, Source: models.SourceWeb, Speed: speed})
		assert.False(t, res.OK)
		require.NotNil(t, res.Error)
		assert.Equal(t, models.KindInvalidRequest, res.Error.Kind)

		res = f.engine.Pulse(context.Background(), 10, speed, models.SourceWeb)
		assert.False(t, res.OK)
		require.NotNil(t, res.Error)
		assert.Equal(t, models.KindInvalidRequest, res.Error.Kind)
	}
	assert.Equal(t, 0, f.act.Calls())
	assert.Equal(t, models.ModeManual, f.engine.Status().Mode)
}

func TestListeners_SeqOrdersSnapshots(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	var (
		mu   sync.Mutex
		seqs []uint64
	)
	f.engine.Subscribe(func(st models.Status) {
		mu.Lock()
		defer mu.Unlock()
		seqs = append(seqs, st.Seq)
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				f.engine.Command(context.Background(), on(models.SourceWeb))
				f.engine.Poll(context.Background())
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seqs, 80)
	seen := make(map[uint64]bool, len(seqs))
	var highest uint64
	for _, s := range seqs {
		assert.False(t, seen[s], "seq %d delivered twice", s)
		seen[s] = true
		highest = max(highest, s)
	}
	assert.Equal(t, uint64(80), highest)
	assert.Equal(t, highest, f.engine.Status().Seq)
}

func TestConcurrentFrontEnds(t *testing.T) {
	f := newFixture(t, testConfig(), reading(25, 60, 2))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := models.SourceWeb
			if i%2 == 0 {
				src = models.SourceGUI
			}
			for j := 0; j < 20; j++ {
				if j%2 == 0 {
					f.engine.Command(context.Background(), on(src))
				} else {
					f.engine.Command(context.Background(), models.PumpCommand{Action: models.ActionOff, Source: src})
				}
				_ = f.engine.Status()
			}
		}(i)
	}
	wg.Wait()

	st := f.engine.Status()
	assert.Contains(t, []models.PumpState{models.StateOff, models.StateRunning}, st.State)
	assert.Equal(t, st.State == models.StateRunning, f.act.State())
}

func TestEvaluate(t *testing.T) {
	th := models.Thresholds{MinFlowToRun: 1, MaxTempToRun: 30, MinHumidityToRun: 20}

	assert.Empty(t, Evaluate(reading(30, 20, 1), th, allSensors), "bounds are inclusive")

	vs := Evaluate(reading(31, 19, 0.9), th, allSensors)
	require.Len(t, vs, 3)
	assert.Equal(t, models.SensorFlow, vs[0].Sensor)
	assert.Equal(t, models.SensorTemperature, vs[1].Sensor)
	assert.Equal(t, models.SensorHumidity, vs[2].Sensor)
	assert.Equal(t, 30.0, vs[1].Limit)

	vs = Evaluate(models.SensorReading{}, th, config.SensorsConfig{Temperature: true})
	require.Len(t, vs, 1)
	assert.Nil(t, vs[0].Value)
	assert.Contains(t, vs[0].Reason, "unavailable")
}
