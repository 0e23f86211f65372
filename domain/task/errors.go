package task

import "errors"

var (
	// ErrInvalidTask is returned when a task configuration cannot drive a cycle.
	ErrInvalidTask = errors.New("invalid task")
)
