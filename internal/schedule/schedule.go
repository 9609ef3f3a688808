// Package schedule runs timed waterings from RRULE recurrences.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"controlling_pump/internal/config"
	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"
	"controlling_pump/internal/service"

	"github.com/teambition/rrule-go"
)

// ParseRule parses an RRULE string (e.g. "FREQ=DAILY;BYHOUR=6") anchored at
// local midnight of the day containing start, so unspecified BYMINUTE and
// BYSECOND default to zero.
func ParseRule(rule string, start time.Time) (*rrule.RRule, error) {
	if rule == "" {
		return nil, fmt.Errorf("empty rule")
	}
	y, m, d := start.Date()
	anchor := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	full := "DTSTART=" + anchor.Format("20060102T150405") + ";" + rule
	opt, err := rrule.StrToROptionInLocation(full, start.Location())
	if err != nil {
		return nil, fmt.Errorf("parse rule %q: %w", rule, err)
	}
	return rrule.NewRRule(*opt)
}

type job struct {
	name    string
	rule    *rrule.RRule
	seconds int
	speed   int
}

// Scheduler calls Pump.Pulse with source "schedule" at every recurrence.
type Scheduler struct {
	pump service.Pump
	jobs []job
	log  *logger.Logger

	now  func() time.Time
	wait func(d time.Duration) <-chan time.Time
}

type Option func(*Scheduler)

// WithClock replaces time.Now and time.After.
func WithClock(now func() time.Time, wait func(d time.Duration) <-chan time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
		s.wait = wait
	}
}

// New parses every entry. An invalid rule is a config error.
func New(entries []config.ScheduleEntry, pump service.Pump, log *logger.Logger, opts ...Option) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{pump: pump, log: log, now: time.Now, wait: time.After}
	for _, opt := range opts {
		opt(s)
	}
	start := s.now()
	for i, e := range entries {
		rr, err := ParseRule(e.Rule, start)
		if err != nil {
			return nil, models.NewError(models.KindConfigError, "schedule[%d]: %v", i, err)
		}
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("schedule-%d", i)
		}
		s.jobs = append(s.jobs, job{name: name, rule: rr, seconds: e.Seconds, speed: e.Speed})
	}
	return s, nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int { return len(s.jobs) }

// Next returns the next occurrence of each job; zero when it has none left.
func (s *Scheduler) Next() map[string]time.Time {
	now := s.now()
	out := make(map[string]time.Time, len(s.jobs))
	for _, j := range s.jobs {
		out[j.name] = j.rule.After(now, false)
	}
	return out
}

// Run blocks until ctx is canceled or every job has run out of occurrences.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, j := range s.jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			s.runJob(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	for {
		next := j.rule.After(s.now(), false)
		if next.IsZero() {
			s.log.Infow("schedule finished", "name", j.name)
			return
		}
		s.log.Debugw("schedule waiting", "name", j.name, "next", next)

		select {
		case <-s.wait(next.Sub(s.now())):
			if ctx.Err() != nil {
				return
			}
			res := s.pump.Pulse(ctx, j.seconds, j.speed, models.SourceSchedule)
			if !res.OK {
				kv := []any{"name", j.name, "state", res.State}
				if res.Error != nil {
					kv = append(kv, "kind", res.Error.Kind, "error", res.Error.Message)
				}
				s.log.Warnw("scheduled run rejected", kv...)
				continue
			}
			s.log.Infow("scheduled run started", "name", j.name, "seconds", j.seconds, "speed", j.speed)
		case <-ctx.Done():
			return
		}
	}
}
