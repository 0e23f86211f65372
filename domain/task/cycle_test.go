package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func sleepingTask() Task {
	return Task{
		ID:            "task-1",
		UserID:        "user-1",
		Title:         "Stretch",
		StartTime:     base,
		EndTime:       base.Add(2 * time.Minute),
		WorkInterval:  Seconds(60),
		SleepInterval: Seconds(30),
		Active:        true,
		Sleep:         true,
		Time:          at(0),
		State:         StateDisable,
	}
}

func TestInitialize_DefaultsWorkInterval(t *testing.T) {
	in := Task{
		Title:     "Hydrate",
		StartTime: base.Add(60 * time.Second),
		EndTime:   base.Add(180 * time.Second),
		Active:    true,
	}

	out, err := Initialize(in)
	require.NoError(t, err)

	require.NotNil(t, out.WorkInterval)
	assert.Equal(t, 120, *out.WorkInterval)
	require.NotNil(t, out.Time)
	assert.True(t, out.Time.Equal(out.StartTime))
	assert.Equal(t, StateDisable, out.State)
	assert.Nil(t, in.WorkInterval, "input must not be modified")
}

func TestInitialize_KeepsExplicitWorkInterval(t *testing.T) {
	out, err := Initialize(Task{
		Title:        "Read",
		StartTime:    base,
		EndTime:      base.Add(time.Hour),
		WorkInterval: Seconds(45),
	})
	require.NoError(t, err)
	assert.Equal(t, 45, *out.WorkInterval)
}

func TestInitialize_NormalizesToUTCSeconds(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	start := time.Date(2024, 3, 1, 12, 0, 0, 500_000_000, loc)

	out, err := Initialize(Task{
		Title:     "Walk",
		StartTime: start,
		EndTime:   start.Add(time.Minute),
	})
	require.NoError(t, err)

	assert.Equal(t, time.UTC, out.StartTime.Location())
	assert.Equal(t, 0, out.StartTime.Nanosecond())
	assert.True(t, out.StartTime.Equal(base))
}

func TestInitialize_RejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		task Task
		msg  string
	}{
		{
			name: "missing title",
			task: Task{Title: "  ", StartTime: base, EndTime: base.Add(time.Minute)},
			msg:  "title is required",
		},
		{
			name: "title too long",
			task: Task{Title: string(make([]byte, MaxTitleLength+1)) + "x", StartTime: base, EndTime: base.Add(time.Minute)},
			msg:  "title must be at most",
		},
		{
			name: "missing start",
			task: Task{Title: "t", EndTime: base},
			msg:  "start time is required",
		},
		{
			name: "end equals start",
			task: Task{Title: "t", StartTime: base, EndTime: base},
			msg:  "end time must be after start time",
		},
		{
			name: "end before start",
			task: Task{Title: "t", StartTime: base, EndTime: base.Add(-time.Minute)},
			msg:  "end time must be after start time",
		},
		{
			name: "zero work interval",
			task: Task{Title: "t", StartTime: base, EndTime: base.Add(time.Minute), WorkInterval: Seconds(0)},
			msg:  "work interval must be positive",
		},
		{
			name: "sleep without interval",
			task: Task{Title: "t", StartTime: base, EndTime: base.Add(time.Minute), Sleep: true},
			msg:  "sleep requires a positive sleep interval",
		},
		{
			name: "sleep with zero interval",
			task: Task{Title: "t", StartTime: base, EndTime: base.Add(time.Minute), Sleep: true, SleepInterval: Seconds(0)},
			msg:  "sleep requires a positive sleep interval",
		},
		{
			name: "negative sleep interval",
			task: Task{Title: "t", StartTime: base, EndTime: base.Add(time.Minute), SleepInterval: Seconds(-5)},
			msg:  "sleep interval must not be negative",
		},
		{
			name: "work interval beyond duration range",
			task: Task{Title: "t", StartTime: base, EndTime: base.Add(time.Minute), WorkInterval: Seconds(10_000_000_000)},
			msg:  "work interval must be at most",
		},
		{
			name: "sleep interval beyond duration range",
			task: Task{Title: "t", StartTime: base, EndTime: base.Add(time.Minute), Sleep: true, SleepInterval: Seconds(10_000_000_000)},
			msg:  "sleep interval must be at most",
		},
		{
			name: "window longer than the interval cap",
			task: Task{Title: "t", StartTime: base, EndTime: base.AddDate(150, 0, 0)},
			msg:  "work interval must be at most",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Initialize(tt.task)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTask)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestAdvance_InactiveAlwaysDisables(t *testing.T) {
	for _, state := range []State{StateDisable, StateStart, StateWork, StateSleep} {
		for _, offset := range []time.Duration{-time.Hour, 0, time.Hour} {
			task := sleepingTask()
			task.Active = false
			task.State = state
			task.Time = at(offset)

			out := Advance(task, base)

			assert.Equal(t, StateDisable, out.State, "state %s offset %s", state, offset)
			assert.True(t, out.Time.Equal(*task.Time), "time must not move")
		}
	}
}

func TestAdvance_FutureTimeIsIdentity(t *testing.T) {
	for _, state := range []State{StateDisable, StateStart, StateWork, StateSleep} {
		task := sleepingTask()
		task.State = state
		task.Time = at(time.Second)

		out := Advance(task, base)

		assert.Equal(t, state, out.State)
		assert.True(t, out.Time.Equal(*task.Time))
	}
}

func TestAdvance_SingleSteps(t *testing.T) {
	tests := []struct {
		name      string
		sleep     bool
		from      State
		wantState State
		wantTime  time.Duration
	}{
		{"disable wakes up", true, StateDisable, StateStart, 0},
		{"start begins work", true, StateStart, StateWork, 60 * time.Second},
		{"work goes to sleep", true, StateWork, StateSleep, 30 * time.Second},
		{"sleep restarts", true, StateSleep, StateStart, 0},
		{"work without sleep stays", false, StateWork, StateWork, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := sleepingTask()
			task.Sleep = tt.sleep
			task.State = tt.from

			out := Advance(task, base)

			assert.Equal(t, tt.wantState, out.State)
			assert.True(t, out.Time.Equal(base.Add(tt.wantTime)), "time = %s", out.Time)
		})
	}
}

func TestAdvance_DueExactlyAtNow(t *testing.T) {
	task := sleepingTask()
	task.State = StateStart
	task.Time = at(10 * time.Second)

	out := Advance(task, base.Add(10*time.Second))

	assert.Equal(t, StateWork, out.State)
	assert.True(t, out.Time.Equal(base.Add(70*time.Second)))
}

func TestAdvance_RecoversMissingTime(t *testing.T) {
	task := sleepingTask()
	task.Time = nil
	task.StartTime = base.Add(time.Hour)

	out := Advance(task, base)

	require.NotNil(t, out.Time)
	assert.True(t, out.Time.Equal(task.StartTime))
	assert.Equal(t, StateDisable, out.State)
}

func TestAdvance_WorkWithoutSleepScenario(t *testing.T) {
	task := sleepingTask()
	task.Sleep = false
	task.SleepInterval = nil
	task.State = StateWork
	task.Time = at(0)

	out := Advance(task, base)

	assert.Equal(t, StateWork, out.State)
	assert.True(t, out.Time.Equal(base))
}

func TestAdvance_DoesNotMutateInput(t *testing.T) {
	task := sleepingTask()
	task.State = StateStart
	before := *task.Time

	_ = Advance(task, base.Add(time.Hour))

	assert.Equal(t, StateStart, task.State)
	assert.True(t, task.Time.Equal(before))
}

func TestAdvance_CycleOrderWithSleep(t *testing.T) {
	task := sleepingTask()
	now := base

	var visited []State
	for i := 0; i < 9; i++ {
		task = Advance(task, now)
		visited = append(visited, task.State)
		now = *task.Time
	}

	assert.Equal(t, []State{
		StateStart, StateWork, StateSleep, StateStart, StateWork,
		StateSleep, StateStart, StateWork, StateSleep,
	}, visited)
}

func TestAdvance_CycleOrderWithoutSleep(t *testing.T) {
	task := sleepingTask()
	task.Sleep = false
	now := base

	var visited []State
	for i := 0; i < 6; i++ {
		task = Advance(task, now)
		visited = append(visited, task.State)
		now = now.Add(time.Hour)
	}

	assert.Equal(t, []State{
		StateStart, StateWork, StateWork, StateWork, StateWork, StateWork,
	}, visited)
}

func TestAdvance_TimeMonotonic(t *testing.T) {
	for _, sleep := range []bool{true, false} {
		task := sleepingTask()
		task.Sleep = sleep
		prev := *task.Time

		for step := 0; step < 50; step++ {
			now := base.Add(time.Duration(step*17) * time.Second)
			task = Advance(task, now)
			assert.False(t, task.Time.Before(prev), "sleep=%v step %d went backwards", sleep, step)
			prev = *task.Time
		}
	}
}

func TestAdvance_LargestIntervalsMoveForward(t *testing.T) {
	task, err := Initialize(Task{
		Title:         "Sabbatical",
		StartTime:     base,
		EndTime:       base.Add(time.Hour),
		WorkInterval:  Seconds(MaxIntervalSeconds),
		SleepInterval: Seconds(MaxIntervalSeconds),
		Active:        true,
		Sleep:         true,
	})
	require.NoError(t, err)

	prev := *task.Time
	for step := 0; step < 3; step++ {
		task = Advance(task, *task.Time)
		assert.True(t, task.Time.After(prev) || task.Time.Equal(prev), "step %d went backwards", step)
		assert.Equal(t, 0, task.Time.Nanosecond(), "step %d left a fractional second", step)
		prev = *task.Time
	}
	assert.Equal(t, StateSleep, task.State)
}

func TestCatchUp(t *testing.T) {
	t.Run("walks missed cycles", func(t *testing.T) {
		task := sleepingTask()

		// one full cycle is 90s: START(+0) WORK(+60) SLEEP(+30)
		out, steps := CatchUp(task, base.Add(200*time.Second), 100)

		assert.Equal(t, StateWork, out.State)
		assert.True(t, out.Time.Equal(base.Add(240*time.Second)), "time = %s", out.Time)
		assert.Equal(t, 8, steps)
	})

	t.Run("bounded by max steps", func(t *testing.T) {
		task := sleepingTask()

		out, steps := CatchUp(task, base.Add(24*time.Hour), 3)

		assert.Equal(t, 3, steps)
		assert.Equal(t, StateSleep, out.State)
	})

	t.Run("stops at fixed point", func(t *testing.T) {
		task := sleepingTask()
		task.Sleep = false

		out, steps := CatchUp(task, base.Add(24*time.Hour), 100)

		assert.Equal(t, 2, steps)
		assert.Equal(t, StateWork, out.State)
	})

	t.Run("inactive counts one step", func(t *testing.T) {
		task := sleepingTask()
		task.Active = false
		task.State = StateWork

		out, steps := CatchUp(task, base, 100)

		assert.Equal(t, 1, steps)
		assert.Equal(t, StateDisable, out.State)
	})
}

func TestReconfigure(t *testing.T) {
	current, err := Initialize(Task{
		ID:        "task-1",
		UserID:    "user-1",
		Title:     "Old",
		StartTime: base,
		EndTime:   base.Add(time.Minute),
		Active:    true,
	})
	require.NoError(t, err)
	current.State = StateWork

	t.Run("copies editable fields and keeps identity", func(t *testing.T) {
		out, err := Reconfigure(current, Task{
			ID:            "other",
			UserID:        "other",
			Title:         "New",
			Description:   "desc",
			StartTime:     base,
			EndTime:       base.Add(10 * time.Minute),
			SleepInterval: Seconds(15),
			Sleep:         true,
			Active:        true,
			Repeat:        true,
		})
		require.NoError(t, err)

		assert.Equal(t, "task-1", out.ID)
		assert.Equal(t, "user-1", out.UserID)
		assert.Equal(t, StateWork, out.State)
		assert.Equal(t, "New", out.Title)
		assert.Equal(t, 600, *out.WorkInterval)
		assert.True(t, out.Time.Equal(*current.Time))
		assert.True(t, out.Repeat)
	})

	t.Run("explicit time moves next transition", func(t *testing.T) {
		out, err := Reconfigure(current, Task{
			Title:     "New",
			StartTime: base,
			EndTime:   base.Add(time.Minute),
			Time:      at(time.Hour),
			Active:    true,
		})
		require.NoError(t, err)
		assert.True(t, out.Time.Equal(base.Add(time.Hour)))
	})

	t.Run("rejects invalid update", func(t *testing.T) {
		_, err := Reconfigure(current, Task{
			Title:     "New",
			StartTime: base,
			EndTime:   base.Add(time.Minute),
			Sleep:     true,
		})
		assert.ErrorIs(t, err, ErrInvalidTask)
	})
}

func TestEffective(t *testing.T) {
	task := sleepingTask()
	task.State = StateSleep

	assert.Equal(t, StateSleep, Effective(task).State)

	task.Active = false
	assert.Equal(t, StateDisable, Effective(task).State)
	assert.Equal(t, StateSleep, task.State)
}
