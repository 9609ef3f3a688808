package actuator

import (
	"context"
	"sync"
	"time"
)

// Transition is one relay change recorded by SimulatedActuator.
type Transition struct {
	On bool      `json:"on"`
	At time.Time `json:"at"`
}

// SimulatedActuator records requested states and speeds instead of touching GPIO.
type SimulatedActuator struct {
	mu      sync.Mutex
	on      bool
	speed   int
	speeds  []int
	history []Transition
	calls   int
	now     func() time.Time
}

func NewSimulated() *SimulatedActuator {
	return &SimulatedActuator{now: time.Now}
}

func (s *SimulatedActuator) SetState(_ context.Context, on bool) Ack {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	ack := Ack{Requested: on, Confirmed: on, At: s.now()}
	if on != s.on {
		s.on = on
		s.history = append(s.history, Transition{On: on, At: ack.At})
		ack.Changed = true
	}
	return ack
}

func (s *SimulatedActuator) SetSpeed(_ context.Context, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = clampSpeed(percent)
	s.speeds = append(s.speeds, s.speed)
	return nil
}

func (s *SimulatedActuator) Speed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Speeds returns every duty cycle set so far.
func (s *SimulatedActuator) Speeds() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.speeds...)
}

func (s *SimulatedActuator) State() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// History returns a copy of every relay change so far.
func (s *SimulatedActuator) History() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transition(nil), s.history...)
}

// Writes is the number of simulated relay writes.
func (s *SimulatedActuator) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Calls counts every SetState request, including no-ops.
func (s *SimulatedActuator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *SimulatedActuator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = 0
	if s.on {
		s.on = false
		s.history = append(s.history, Transition{On: false, At: s.now()})
	}
	return nil
}
