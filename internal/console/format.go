package console

import (
	"fmt"
	"strings"
	"time"

	"controlling_pump/internal/models"

	"github.com/dustin/go-humanize"
)

// FormatResult renders a command result as one or two lines.
func FormatResult(res models.CommandResult) string {
	var b strings.Builder
	if res.OK {
		fmt.Fprintf(&b, "ok: pump %s, mode %s\n", res.State, res.Mode)
	} else {
		fmt.Fprintf(&b, "rejected: pump %s, mode %s\n", res.State, res.Mode)
	}
	if res.Error != nil {
		fmt.Fprintf(&b, "  %s\n", res.Error.Error())
	}
	return b.String()
}

// FormatStatus renders a status snapshot for the terminal.
func FormatStatus(st models.Status) string {
	var b strings.Builder
	relay := "off"
	if st.RelayOn {
		relay = "on"
	}
	fmt.Fprintf(&b, "state:    %s (%s), relay %s", st.State, st.Mode, relay)
	if st.SpeedPercent > 0 {
		fmt.Fprintf(&b, " at %d%%", st.SpeedPercent)
	}
	if st.Simulation {
		b.WriteString(", simulated")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "reading:  %s", st.Reading)
	if !st.Reading.Timestamp.IsZero() {
		fmt.Fprintf(&b, " (%s)", humanize.Time(st.Reading.Timestamp))
	}
	b.WriteString("\n")

	if len(st.Reading.Faults) > 0 {
		names := make([]string, len(st.Reading.Faults))
		for i, f := range st.Reading.Faults {
			names[i] = string(f)
		}
		fmt.Fprintf(&b, "faulted:  %s\n", strings.Join(names, ", "))
	}
	if len(st.Reading.MoistureChannels) > 0 {
		pcts := make([]string, len(st.Reading.MoistureChannels))
		for i, v := range st.Reading.MoistureChannels {
			pcts[i] = fmt.Sprintf("%.0f%%", v)
		}
		fmt.Fprintf(&b, "moisture: %s\n", strings.Join(pcts, " "))
	}
	if st.PulseRemainingSeconds > 0 {
		fmt.Fprintf(&b, "pulse:    %s left\n", (time.Duration(st.PulseRemainingSeconds) * time.Second).String())
	}
	if st.Violation != nil {
		fmt.Fprintf(&b, "blocked:  %s\n", st.Violation.Reason)
	}
	if st.LastError != "" {
		fmt.Fprintf(&b, "error:    %s\n", st.LastError)
	}
	if !st.ChangedAt.IsZero() {
		fmt.Fprintf(&b, "since:    %s\n", humanize.Time(st.ChangedAt))
	}
	return b.String()
}
