package task

import "time"

// SelectNext returns the task with the earliest transition instant strictly
// after ref. Ties on the instant go to the lowest ID. The boolean is false
// when no task qualifies.
func SelectNext(tasks []Task, ref time.Time) (Task, bool) {
	var (
		best  Task
		found bool
	)
	for _, t := range tasks {
		if t.Time == nil || !t.Time.After(ref) {
			continue
		}
		if !found || t.Time.Before(*best.Time) || (t.Time.Equal(*best.Time) && t.ID < best.ID) {
			best = t
			found = true
		}
	}
	if !found {
		return Task{}, false
	}
	return best.Clone(), true
}
