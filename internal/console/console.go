// Package console is the local operator front end: a line-oriented terminal
// that calls the pump services in-process with source "gui".
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"
	"controlling_pump/internal/service"
)

const prompt = "pump> "

const helpText = `commands:
  on [S]      start the pump at S percent speed (checked against thresholds)
  off         stop the pump; also de-energizes the relay in FAULT
  auto        let the poll cycle decide
  reset       clear FAULT
  pulse N [S] run for N seconds at S percent speed, then stop
  status      show state, mode and latest reading
  help        this text
  quit        leave the console (the engine keeps running)
`

// Console reads commands from in and writes results to out.
type Console struct {
	pump service.Pump
	mon  service.Monitoring
	in   io.Reader
	log  *logger.Logger

	mu  sync.Mutex // serializes writes to out
	out io.Writer
}

func New(pump service.Pump, mon service.Monitoring, in io.Reader, out io.Writer, log *logger.Logger) *Console {
	if log == nil {
		log = logger.Nop()
	}
	return &Console{pump: pump, mon: mon, in: in, out: out, log: log}
}

// Run prints state transitions as they happen and executes commands until
// quit, end of input or ctx cancellation.
func (c *Console) Run(ctx context.Context) error {
	last := c.mon.GetStatus(ctx).State
	var lastMu sync.Mutex
	unsubscribe := c.mon.Subscribe(func(st models.Status) {
		lastMu.Lock()
		prev := last
		last = st.State
		lastMu.Unlock()
		if prev != st.State {
			c.printf("\n[%s] %s -> %s%s\n%s", st.ChangedAt.Local().Format("15:04:05"), prev, st.State, reason(st), prompt)
		}
	})
	defer unsubscribe()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		scanErr <- sc.Err()
	}()

	c.printf("%s", prompt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			if quit := c.Execute(ctx, line); quit {
				return nil
			}
			c.printf("%s", prompt)
		}
	}
}

// Execute runs one command line. It returns true when the operator asked to quit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}

	switch cmd := fields[0]; cmd {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		c.printf("%s", helpText)
	case "status", "s":
		c.printf("%s", FormatStatus(c.mon.GetStatus(ctx)))
	case "pulse", "timer":
		if len(fields) < 2 || len(fields) > 3 {
			c.printf("usage: pulse N [SPEED]\n")
			return false
		}
		seconds, err := strconv.Atoi(fields[1])
		if err != nil {
			c.printf("pulse: %q is not a number of seconds\n", fields[1])
			return false
		}
		speed, ok := c.speedArg(cmd, fields[2:])
		if !ok {
			return false
		}
		c.printf("%s", FormatResult(c.pump.Pulse(ctx, seconds, speed, models.SourceGUI)))
	default:
		action, ok := models.ParseAction(cmd)
		if !ok {
			c.printf("unknown command %q, try help\n", cmd)
			return false
		}
		speed := 0
		if action == models.ActionOn {
			if speed, ok = c.speedArg(cmd, fields[1:]); !ok {
				return false
			}
		}
		res := c.pump.Command(ctx, models.PumpCommand{Action: action, Source: models.SourceGUI, Speed: speed})
		c.printf("%s", FormatResult(res))
	}
	return false
}

// speedArg parses an optional speed percentage. Missing means 0, the default.
func (c *Console) speedArg(cmd string, args []string) (int, bool) {
	if len(args) == 0 {
		return 0, true
	}
	speed, err := strconv.Atoi(strings.TrimSuffix(args[0], "%"))
	if err != nil || !models.ValidSpeed(speed) || speed == 0 {
		c.printf("%s: speed must be %d..%d, got %q\n", cmd, models.MinSpeed, models.MaxSpeed, args[0])
		return 0, false
	}
	return speed, true
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.out, format, args...); err != nil {
		c.log.Debugw("console write failed", "error", err)
	}
}

func reason(st models.Status) string {
	switch {
	case st.Violation != nil:
		return " (" + st.Violation.Reason + ")"
	case st.LastError != "":
		return " (" + st.LastError + ")"
	default:
		return ""
	}
}
