package api

import (
	"time"

	domain "github.com/example/taskcycle/domain/task"
	userdomain "github.com/example/taskcycle/domain/user"
	"github.com/example/taskcycle/modules/activity"
)

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse represents an authentication token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UpdateProfileRequest changes the fields that are present.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
}

// UserResponse represents a user response. Password hashes never leave the
// auth module.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserListResponse lists accounts.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// TaskResponse is the HTTP view of a task. Intervals are seconds.
type TaskResponse struct {
	ID            string    `json:"id"`
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

// TaskListResponse lists tasks and names the one firing next.
type TaskListResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	NextTaskID string         `json:"next_task_id,omitempty"`
}

// AdvanceResponse reports the task after one cycle step.
type AdvanceResponse struct {
	Task    TaskResponse `json:"task"`
	Changed bool         `json:"changed"`
}

// ActivityResponse lists recent activity, newest first.
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toUserResponse(u *userdomain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toTaskResponse(t *domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:            t.ID,
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
