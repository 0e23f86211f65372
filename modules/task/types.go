package task

import (
	"time"

	domain "github.com/example/taskcycle/domain/task"
)

// TaskInput carries the user-editable fields of a task. Intervals are seconds.
type TaskInput struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	WorkInterval  *int       `json:"work_interval,omitempty"`
	SleepInterval *int       `json:"sleep_interval,omitempty"`
	Active        bool       `json:"active"`
	Repeat        bool       `json:"repeat"`
	Sleep         bool       `json:"sleep"`
	Time          *time.Time `json:"time,omitempty"`
}

func (in TaskInput) toDomain() domain.Task {
	return domain.Task{
		Title:         in.Title,
		Description:   in.Description,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		WorkInterval:  in.WorkInterval,
		SleepInterval: in.SleepInterval,
		Active:        in.Active,
		Repeat:        in.Repeat,
		Sleep:         in.Sleep,
		Time:          in.Time,
	}
}

// TaskResponse is the wire view of a task.
type TaskResponse struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	WorkInterval  int       `json:"work_interval"`
	SleepInterval *int      `json:"sleep_interval,omitempty"`
	Active        bool      `json:"active"`
	Repeat        bool      `json:"repeat"`
	Sleep         bool      `json:"sleep"`
	Time          time.Time `json:"time"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateTaskRequest represents a create task request.
type CreateTaskRequest struct {
	UserID string    `json:"user_id"`
	Task   TaskInput `json:"task"`
}

// GetTaskRequest represents a get task request.
type GetTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// ListTasksRequest represents a list tasks request.
type ListTasksRequest struct {
	UserID string `json:"user_id"`
}

// ListTasksResponse lists a user's tasks and names the one firing next.
type ListTasksResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	NextTaskID string         `json:"next_task_id,omitempty"`
}

// UpdateTaskRequest represents an update task request.
type UpdateTaskRequest struct {
	UserID string    `json:"user_id"`
	TaskID string    `json:"task_id"`
	Task   TaskInput `json:"task"`
}

// DeleteTaskRequest represents a delete task request.
type DeleteTaskRequest struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// DeleteTaskResponse represents a delete task response.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
}

// NextTaskRequest asks for the task firing first after After.
type NextTaskRequest struct {
	UserID string    `json:"user_id"`
	After  time.Time `json:"after"`
}

// AdvanceTaskRequest asks for one cycle step at At, or now when At is nil.
type AdvanceTaskRequest struct {
	UserID string     `json:"user_id"`
	TaskID string     `json:"task_id"`
	At     *time.Time `json:"at,omitempty"`
}

// AdvanceTaskResponse reports the task after the step.
type AdvanceTaskResponse struct {
	Task    TaskResponse `json:"task"`
	Changed bool         `json:"changed"`
}

func toTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:            t.ID,
		UserID:        t.UserID,
		Title:         t.Title,
		Description:   t.Description,
		StartTime:     t.StartTime,
		EndTime:       t.EndTime,
		SleepInterval: t.SleepInterval,
		Active:        t.Active,
		Repeat:        t.Repeat,
		Sleep:         t.Sleep,
		State:         string(t.State),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.WorkInterval != nil {
		resp.WorkInterval = *t.WorkInterval
	}
	if t.Time != nil {
		resp.Time = *t.Time
	}
	return resp
}

func fromTaskResponse(r TaskResponse) *domain.Task {
	next := r.Time
	work := r.WorkInterval
	return &domain.Task{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Description:   r.Description,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		WorkInterval:  &work,
		SleepInterval: r.SleepInterval,
		Active:        r.Active,
		Repeat:        r.Repeat,
		Sleep:         r.Sleep,
		Time:          &next,
		State:         domain.State(r.State),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
