package task

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/taskcycle/domain/task"
	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound is returned when a task does not exist or belongs to another user.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoUpcomingTask is returned when a user has no task scheduled after the reference time.
	ErrNoUpcomingTask = errors.New("no upcoming task")
)

// TaskRepository handles task persistence using GORM.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
func (r *TaskRepository) Transaction(ctx context.Context, fn func(tx *TaskRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&TaskRepository{db: tx})
	})
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// Save upserts a task by ID.
func (r *TaskRepository) Save(ctx context.Context, t *domain.Task) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// FindByID finds a task by ID.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var t domain.Task
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByIDAndUser finds a task by ID only if userID owns it.
func (r *TaskRepository) FindByIDAndUser(ctx context.Context, id, userID string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByUser returns the user's tasks, earliest transition first.
func (r *TaskRepository) FindByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("next_time ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindNextAfter returns the user's task with the smallest transition instant
// strictly after ref.
func (r *TaskRepository) FindNextAfter(ctx context.Context, userID string, ref time.Time) (*domain.Task, error) {
	var t domain.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND next_time > ?", userID, ref.UTC().Truncate(time.Second)).
		Order("next_time ASC, id ASC").
		Limit(1).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoUpcomingTask
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes a task by ID.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// DeleteByUser removes every task owned by userID and returns their IDs.
func (r *TaskRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.Transaction(ctx, func(tx *TaskRepository) error {
		if err := tx.db.Model(&domain.Task{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		return tx.db.Where("user_id = ?", userID).Delete(&domain.Task{}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
