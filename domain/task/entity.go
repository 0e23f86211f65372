package task

import (
	"time"
)

// State is the phase a task is currently in.
type State string

const (
	StateDisable State = "DISABLE"
	StateStart   State = "START"
	StateWork    State = "WORK"
	StateSleep   State = "SLEEP"
)

// Valid reports whether s is one of the four known phases.
func (s State) Valid() bool {
	switch s {
	case StateDisable, StateStart, StateWork, StateSleep:
		return true
	}
	return false
}

// Task represents a repeating work/sleep cycle owned by a user.
// Intervals are whole seconds.
type Task struct {
	ID            string     `gorm:"primaryKey;type:text"`
	UserID        string     `gorm:"index;not null;type:text"`
	Title         string     `gorm:"not null;size:64"`
	Description   string     `gorm:"type:text"`
	StartTime     time.Time  `gorm:"column:start_time;not null"`
	EndTime       time.Time  `gorm:"column:end_time;not null"`
	WorkInterval  *int       `gorm:"column:work_interval;not null"`
	SleepInterval *int       `gorm:"column:sleep_interval"`
	Active        bool       `gorm:"column:active;not null"`
	Repeat        bool       `gorm:"column:repeat_cycle;not null"`
	Sleep         bool       `gorm:"column:sleep;not null"`
	Time          *time.Time `gorm:"column:next_time;index;not null"`
	State         State      `gorm:"column:task_state;type:text;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for the Task entity.
func (Task) TableName() string {
	return "tasks"
}

// Clone returns a copy of t that shares no pointers with it.
func (t Task) Clone() Task {
	c := t
	if t.WorkInterval != nil {
		v := *t.WorkInterval
		c.WorkInterval = &v
	}
	if t.SleepInterval != nil {
		v := *t.SleepInterval
		c.SleepInterval = &v
	}
	if t.Time != nil {
		v := *t.Time
		c.Time = &v
	}
	return c
}

// Seconds returns a pointer to n, for the optional interval fields.
func Seconds(n int) *int {
	return &n
}

func interval(p *int) time.Duration {
	if p == nil {
		return 0
	}
	return time.Duration(*p) * time.Second
}

// normalize truncates to whole seconds in UTC, the resolution times are stored
// and compared at.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
