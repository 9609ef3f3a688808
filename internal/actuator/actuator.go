package actuator

import (
	"context"
	"fmt"
	"time"
)

// Ack is the actuator's answer to a SetState request.
type Ack struct {
	Requested bool // state asked for
	Confirmed bool // state read back from the relay
	Changed   bool // false when the relay was already in the requested state
	At        time.Time
	Err       error
}

// OK reports whether the relay ended up in the requested state.
func (a Ack) OK() bool {
	return a.Err == nil && a.Requested == a.Confirmed
}

// Failure returns a description of a failed ack, or nil when OK.
func (a Ack) Failure() error {
	if a.Err != nil {
		return a.Err
	}
	if a.Requested != a.Confirmed {
		return fmt.Errorf("relay read back %s, wanted %s", onOff(a.Confirmed), onOff(a.Requested))
	}
	return nil
}

// Actuator switches the pump relay. Implementations are idempotent: asking
// for the current state performs no hardware write and returns Changed=false.
type Actuator interface {
	SetState(ctx context.Context, on bool) Ack
	State() bool
	Close() error
}

// SpeedController is implemented by actuators that can vary motor power.
// Speed is a duty cycle in percent; 0 stops the motor with the relay still on.
type SpeedController interface {
	SetSpeed(ctx context.Context, percent int) error
	Speed() int
}

func clampSpeed(pct int) int {
	return max(0, min(100, pct))
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
