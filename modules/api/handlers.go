package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/example/taskcycle/modules/activity"
	"github.com/example/taskcycle/modules/auth"
	"github.com/example/taskcycle/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
)

const defaultActivityLimit = 20

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	authContainer mono.ServiceContainer
	authAdapter   auth.AuthPort
	tasks         task.TaskPort
	activity      activity.ActivityPort
	logger        types.Logger
	now           func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	authContainer mono.ServiceContainer,
	authAdapter auth.AuthPort,
	tasks task.TaskPort,
	activityPort activity.ActivityPort,
	logger types.Logger,
) *Handlers {
	return &Handlers{
		authContainer: authContainer,
		authAdapter:   authAdapter,
		tasks:         tasks,
		activity:      activityPort,
		logger:        logger,
		now:           time.Now,
	}
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	authReq := auth.RegisterRequest{
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	}
	var resp auth.UserResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"register",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(UserResponse(resp))
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	authReq := auth.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	}
	var resp auth.TokenResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"login",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse(resp))
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	authReq := auth.RefreshRequest{
		RefreshToken: req.RefreshToken,
	}
	var resp auth.TokenResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"refresh-token",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(TokenResponse(resp))
}

// Me returns the caller's profile.
func (h *Handlers) Me(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	user, err := h.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(toUserResponse(user))
}

// UpdateMe changes the caller's full name and/or password.
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.FullName == nil && req.Password == nil {
		return badRequest(c, "Nothing to update")
	}

	user, err := h.authAdapter.UpdateUser(c.UserContext(), auth.UpdateUserRequest{
		UserID:   claims.UserID,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(toUserResponse(user))
}

// DeleteMe removes the caller's account. Their tasks go with it.
func (h *Handlers) DeleteMe(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	if err := h.authAdapter.DeleteUser(c.UserContext(), claims.UserID); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListUsers returns the user directory.
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.authAdapter.ListUsers(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	resp := UserListResponse{Users: make([]UserResponse, 0, len(users))}
	for i := range users {
		resp.Users = append(resp.Users, toUserResponse(&users[i]))
	}
	return c.JSON(resp)
}

// GetUser returns one user of the directory.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	user, err := h.authAdapter.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(toUserResponse(user))
}

// ListTasks returns the caller's tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	tasks, nextID, err := h.tasks.ListTasks(c.UserContext(), claims.UserID)
	if err != nil {
		return h.handleError(c, err)
	}

	resp := TaskListResponse{
		Tasks:      make([]TaskResponse, 0, len(tasks)),
		NextTaskID: nextID,
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(&tasks[i]))
	}
	return c.JSON(resp)
}

// CreateTask stores a new task for the caller.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var in task.TaskInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	created, err := h.tasks.CreateTask(c.UserContext(), claims.UserID, in)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Location("/api/v1/tasks/" + created.ID)
	return c.Status(fiber.StatusCreated).JSON(toTaskResponse(created))
}

// GetTask returns one of the caller's tasks, caught up to now.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	t, err := h.tasks.GetTask(c.UserContext(), claims.UserID, c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(toTaskResponse(t))
}

// UpdateTask reconfigures one of the caller's tasks.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	var in task.TaskInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}

	t, err := h.tasks.UpdateTask(c.UserContext(), claims.UserID, c.Params("id"), in)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(toTaskResponse(t))
}

// DeleteTask removes one of the caller's tasks.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	if err := h.tasks.DeleteTask(c.UserContext(), claims.UserID, c.Params("id")); err != nil {
		return h.handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// NextTask returns the caller's task whose transition comes first after the
// "after" epoch (default now).
func (h *Handlers) NextTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	after, err := h.epochQuery(c, "after")
	if err != nil {
		return badRequest(c, "after must be a Unix timestamp in seconds")
	}

	t, err := h.tasks.NextTask(c.UserContext(), claims.UserID, after)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(toTaskResponse(t))
}

// AdvanceTask applies one cycle step at the "at" epoch (default now).
func (h *Handlers) AdvanceTask(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	at, err := h.epochQuery(c, "at")
	if err != nil {
		return badRequest(c, "at must be a Unix timestamp in seconds")
	}

	t, changed, err := h.tasks.AdvanceTask(c.UserContext(), claims.UserID, c.Params("id"), &at)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(AdvanceResponse{Task: toTaskResponse(t), Changed: changed})
}

// Activity returns the caller's recent activity.
func (h *Handlers) Activity(c *fiber.Ctx) error {
	claims, ok := claimsFrom(c)
	if !ok {
		return fiber.ErrUnauthorized
	}

	limit := c.QueryInt("limit", defaultActivityLimit)
	if limit < 1 {
		return badRequest(c, "limit must be positive")
	}

	entries, err := h.activity.ListActivity(c.UserContext(), claims.UserID, limit)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(ActivityResponse{Entries: entries})
}

func (h *Handlers) epochQuery(c *fiber.Ctx, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return h.now().UTC(), nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}

// handleError maps service errors to responses. Errors cross the service
// container as text, so they are matched by their sentinel messages.
func (h *Handlers) handleError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "task not found"),
		strings.Contains(errStr, "user not found"),
		strings.Contains(errStr, "no upcoming task"):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: tail(errStr, "task not found", "user not found", "no upcoming task"),
		})
	case strings.Contains(errStr, "already exists"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "User with this username already exists",
		})
	case strings.Contains(errStr, "invalid username or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid username or password",
		})
	case strings.Contains(errStr, "invalid task"),
		strings.Contains(errStr, "username must be"),
		strings.Contains(errStr, "password must be"),
		strings.Contains(errStr, "full name must be"):
		return badRequest(c, tail(errStr, "invalid task", "username must be", "password must be", "full name must be"))
	default:
		h.logger.WithError(err).Error("Internal error", "path", c.Path(), "method", c.Method())
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// tail cuts errStr at the first of the given markers, dropping the
// transport prefixes added on the way.
func tail(errStr string, markers ...string) string {
	for _, m := range markers {
		if i := strings.Index(errStr, m); i >= 0 {
			return errStr[i:]
		}
	}
	return errStr
}
