package task

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTitleLength is the longest title a task may carry, in characters.
const MaxTitleLength = 64

// MaxIntervalSeconds bounds work and sleep intervals to about a century.
const MaxIntervalSeconds = 100 * 366 * 24 * 60 * 60

// Validate checks that t describes a cycle Advance can drive.
// It does not modify t.
func Validate(t Task) error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("%w: title must be at most %d characters", ErrInvalidTask, MaxTitleLength)
	}
	if err := validateWindow(t.StartTime, t.EndTime); err != nil {
		return err
	}
	if t.WorkInterval != nil && *t.WorkInterval <= 0 {
		return fmt.Errorf("%w: work interval must be positive", ErrInvalidTask)
	}
	if t.WorkInterval != nil && *t.WorkInterval > MaxIntervalSeconds {
		return fmt.Errorf("%w: work interval must be at most %d seconds", ErrInvalidTask, MaxIntervalSeconds)
	}
	if t.SleepInterval != nil && *t.SleepInterval < 0 {
		return fmt.Errorf("%w: sleep interval must not be negative", ErrInvalidTask)
	}
	if t.SleepInterval != nil && *t.SleepInterval > MaxIntervalSeconds {
		return fmt.Errorf("%w: sleep interval must be at most %d seconds", ErrInvalidTask, MaxIntervalSeconds)
	}
	if t.Sleep && (t.SleepInterval == nil || *t.SleepInterval <= 0) {
		return fmt.Errorf("%w: sleep requires a positive sleep interval", ErrInvalidTask)
	}
	if t.State != "" && !t.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTask, t.State)
	}
	return nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() {
		return fmt.Errorf("%w: start time is required", ErrInvalidTask)
	}
	if end.IsZero() {
		return fmt.Errorf("%w: end time is required", ErrInvalidTask)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidTask)
	}
	return nil
}

// Initialize prepares a freshly submitted task: the first transition is due
// at StartTime, the phase is DISABLE, and a missing work interval defaults to
// the length of the start/end window.
func Initialize(t Task) (Task, error) {
	out := t.Clone()
	out.Title = strings.TrimSpace(out.Title)
	out.StartTime = normalize(out.StartTime)
	out.EndTime = normalize(out.EndTime)

	if err := validateWindow(out.StartTime, out.EndTime); err != nil {
		return Task{}, err
	}
	if out.WorkInterval == nil {
		out.WorkInterval = Seconds(windowSeconds(out))
	}
	if err := Validate(out); err != nil {
		return Task{}, err
	}

	start := out.StartTime
	out.Time = &start
	out.State = StateDisable
	return out, nil
}

// Reconfigure applies the user-editable fields of incoming onto current.
// Identity, ownership and phase are kept. An explicit incoming Time moves the
// next transition; otherwise the stored instant stays.
func Reconfigure(current, incoming Task) (Task, error) {
	out := current.Clone()
	in := incoming.Clone()

	out.Title = strings.TrimSpace(in.Title)
	out.Description = in.Description
	out.StartTime = normalize(in.StartTime)
	out.EndTime = normalize(in.EndTime)
	out.SleepInterval = in.SleepInterval
	out.Active = in.Active
	out.Repeat = in.Repeat
	out.Sleep = in.Sleep

	if err := validateWindow(out.StartTime, out.EndTime); err != nil {
		return Task{}, err
	}
	out.WorkInterval = in.WorkInterval
	if out.WorkInterval == nil {
		out.WorkInterval = Seconds(windowSeconds(out))
	}
	if in.Time != nil {
		next := normalize(*in.Time)
		out.Time = &next
	}
	if out.Time == nil {
		start := out.StartTime
		out.Time = &start
	}
	if out.State == "" {
		out.State = StateDisable
	}
	if err := Validate(out); err != nil {
		return Task{}, err
	}
	return out, nil
}

func windowSeconds(t Task) int {
	return int(t.EndTime.Sub(t.StartTime) / time.Second)
}

// Advance takes at most one phase step of t at instant now and returns the
// result; t itself is not modified.
//
// An inactive task is forced to DISABLE without moving its time. A transition
// instant equal to now is due. WORK only leaves for SLEEP when the task
// sleeps; a non-sleeping task stays in WORK.
func Advance(t Task, now time.Time) Task {
	out := t.Clone()
	if !out.Active {
		out.State = StateDisable
		return out
	}
	if out.Time == nil {
		start := out.StartTime
		out.Time = &start
	}
	if out.Time.After(now) {
		return out
	}

	switch out.State {
	case StateDisable:
		out.State = StateStart
	case StateStart:
		next := out.Time.Add(interval(out.WorkInterval))
		out.Time = &next
		out.State = StateWork
	case StateWork:
		if out.Sleep {
			next := out.Time.Add(interval(out.SleepInterval))
			out.Time = &next
			out.State = StateSleep
		}
	case StateSleep:
		out.State = StateStart
	}
	return out
}

// CatchUp applies Advance repeatedly until the task stops changing or
// maxSteps steps have been taken. It returns the resulting task and the number
// of steps that changed it.
func CatchUp(t Task, now time.Time, maxSteps int) (Task, int) {
	cur := t.Clone()
	steps := 0
	for steps < maxSteps {
		next := Advance(cur, now)
		if sameCycle(cur, next) {
			break
		}
		cur = next
		steps++
	}
	return cur, steps
}

// Effective returns the task as it should be presented: an inactive task
// always reads as DISABLE.
func Effective(t Task) Task {
	out := t.Clone()
	if !out.Active {
		out.State = StateDisable
	}
	return out
}

// Changed reports whether the phase or the transition instant differ.
func Changed(a, b Task) bool {
	return !sameCycle(a, b)
}

func sameCycle(a, b Task) bool {
	if a.State != b.State {
		return false
	}
	switch {
	case a.Time == nil && b.Time == nil:
		return true
	case a.Time == nil || b.Time == nil:
		return false
	}
	return a.Time.Equal(*b.Time)
}
