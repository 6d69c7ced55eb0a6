// Package backoff maps a failed delivery attempt to the delay before the
// next one and decides when a record has exhausted its attempts.
package backoff

import "time"

// DefaultMaxAttempts is the attempt number at which a failure dead-letters.
const DefaultMaxAttempts = 5

var defaultSchedule = []time.Duration{
	2 * time.Second,
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// Policy is a fixed, indexed retry schedule. Attempts beyond the schedule
// reuse its last entry. The zero value behaves like Default().
type Policy struct {
	schedule    []time.Duration
	maxAttempts int
}

// Default returns the 2s, 5s, 15s, 30s, 60s schedule with five attempts.
func Default() Policy {
	return Policy{schedule: defaultSchedule, maxAttempts: DefaultMaxAttempts}
}

// New builds a policy. An empty schedule, or one holding a non-positive
// delay, falls back to the default schedule; maxAttempts <= 0 falls back to
// DefaultMaxAttempts.
func New(schedule []time.Duration, maxAttempts int) Policy {
	p := Default()
	if maxAttempts > 0 {
		p.maxAttempts = maxAttempts
	}
	if len(schedule) == 0 {
		return p
	}
	for _, d := range schedule {
		if d <= 0 {
			return p
		}
	}
	p.schedule = append([]time.Duration(nil), schedule...)

	return p
}

// Delay returns the wait after the given failed attempt. Attempts below 1
// are treated as the first.
func (p Policy) Delay(attempt int) time.Duration {
	s := p.schedule
	if len(s) == 0 {
		s = defaultSchedule
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s) {
		idx = len(s) - 1
	}

	return s[idx]
}

// DelaySeconds is Delay rounded down to whole seconds.
func (p Policy) DelaySeconds(attempt int) int {
	return int(p.Delay(attempt) / time.Second)
}

func (p Policy) MaxAttempts() int {
	if p.maxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.maxAttempts
}

// Exhausted reports whether a failure on this attempt dead-letters the record.
func (p Policy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts()
}
