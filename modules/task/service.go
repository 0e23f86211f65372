package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/example/taskcycle/domain/task"
	userdomain "github.com/example/taskcycle/domain/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// UserLookup resolves task owners.
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (*userdomain.User, error)
}

// Transition describes a cycle change applied to a stored task.
type Transition struct {
	From     domain.State
	To       domain.State
	NextTime time.Time
	Steps    int
}

// ServiceConfig configures TaskService.
type ServiceConfig struct {
	MaxCatchUpSteps int
	// Now defaults to time.Now.
	Now func() time.Time
}

// TaskService implements the task use cases on top of the cycle state machine.
type TaskService struct {
	repo     *TaskRepository
	cache    *TaskCache
	users    UserLookup
	logger   types.Logger
	locks    taskLocks
	reads    singleflight.Group
	maxSteps int
	now      func() time.Time

	// fill orders cache fills against evictions; evictions counts the latter
	fill      sync.Mutex
	evictions uint64
}

// NewTaskService creates a TaskService. cache may be nil.
func NewTaskService(repo *TaskRepository, cache *TaskCache, users UserLookup, logger types.Logger, cfg ServiceConfig) *TaskService {
	if cfg.MaxCatchUpSteps < 1 {
		cfg.MaxCatchUpSteps = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TaskService{
		repo:     repo,
		cache:    cache,
		users:    users,
		logger:   logger,
		maxSteps: cfg.MaxCatchUpSteps,
		now:      cfg.Now,
	}
}

// Create initializes and stores a new task for userID.
func (s *TaskService) Create(ctx context.Context, userID string, in domain.Task) (*domain.Task, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to resolve task owner: %w", err)
	}

	t, err := domain.Initialize(in)
	if err != nil {
		return nil, err
	}
	t.ID = uuid.New().String()
	t.UserID = userID

	if err := s.repo.Create(ctx, &t); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	return &t, nil
}

// Get returns the user's task caught up to the current time. A task whose
// phase moved is written back before it is returned.
func (s *TaskService) Get(ctx context.Context, userID, taskID string) (*domain.Task, *Transition, error) {
	t, err := s.load(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if t.UserID != userID {
		return nil, nil, ErrTaskNotFound
	}

	now := s.now()
	if _, steps := domain.CatchUp(*t, now, s.maxSteps); steps == 0 {
		return t, nil, nil
	}
	return s.step(ctx, userID, taskID, func(cur domain.Task) (domain.Task, int) {
		return domain.CatchUp(cur, now, s.maxSteps)
	})
}

// Advance applies exactly one cycle step at the given instant.
func (s *TaskService) Advance(ctx context.Context, userID, taskID string, at time.Time) (*domain.Task, *Transition, error) {
	return s.step(ctx, userID, taskID, func(cur domain.Task) (domain.Task, int) {
		next := domain.Advance(cur, at)
		if domain.Changed(cur, next) {
			return next, 1
		}
		return next, 0
	})
}

// step re-reads the task under its lock and inside a transaction, applies
// fn, and stores the result if fn reports progress.
func (s *TaskService) step(ctx context.Context, userID, taskID string, fn func(domain.Task) (domain.Task, int)) (*domain.Task, *Transition, error) {
	unlock := s.locks.lock(taskID)
	defer unlock()

	var (
		result     domain.Task
		transition *Transition
	)
	err := s.repo.Transaction(ctx, func(tx *TaskRepository) error {
		cur, err := tx.FindByIDAndUser(ctx, taskID, userID)
		if err != nil {
			return err
		}
		next, steps := fn(*cur)
		result = next
		if steps == 0 {
			return nil
		}
		if err := tx.Save(ctx, &result); err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}
		transition = &Transition{
			From:     cur.State,
			To:       result.State,
			NextTime: *result.Time,
			Steps:    steps,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if transition != nil {
		s.evict(ctx, taskID)
	}
	return &result, transition, nil
}

// List returns the user's tasks as presented to callers and the ID of the
// one that fires next after now.
func (s *TaskService) List(ctx context.Context, userID string) ([]domain.Task, string, error) {
	tasks, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	for i := range tasks {
		tasks[i] = domain.Effective(tasks[i])
	}

	nextID := ""
	if next, ok := domain.SelectNext(tasks, s.now()); ok {
		nextID = next.ID
	}
	return tasks, nextID, nil
}

// Update reconfigures the user's task.
func (s *TaskService) Update(ctx context.Context, userID, taskID string, in domain.Task) (*domain.Task, error) {
	unlock := s.locks.lock(taskID)
	defer unlock()

	var result domain.Task
	err := s.repo.Transaction(ctx, func(tx *TaskRepository) error {
		cur, err := tx.FindByIDAndUser(ctx, taskID, userID)
		if err != nil {
			return err
		}
		next, err := domain.Reconfigure(*cur, in)
		if err != nil {
			return err
		}
		result = next
		return tx.Save(ctx, &result)
	})
	if err != nil {
		return nil, err
	}

	s.evict(ctx, taskID)
	return &result, nil
}

// Delete removes the user's task and returns it.
func (s *TaskService) Delete(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	unlock := s.locks.lock(taskID)
	defer unlock()

	var removed *domain.Task
	err := s.repo.Transaction(ctx, func(tx *TaskRepository) error {
		cur, err := tx.FindByIDAndUser(ctx, taskID, userID)
		if err != nil {
			return err
		}
		removed = cur
		return tx.Delete(ctx, taskID)
	})
	if err != nil {
		return nil, err
	}

	s.evict(ctx, taskID)
	return removed, nil
}

// Next returns the user's task with the earliest transition strictly after ref.
func (s *TaskService) Next(ctx context.Context, userID string, ref time.Time) (*domain.Task, error) {
	t, err := s.repo.FindNextAfter(ctx, userID, ref)
	if err != nil {
		if errors.Is(err, ErrNoUpcomingTask) {
			return nil, fmt.Errorf("%w for user '%s'", ErrNoUpcomingTask, userID)
		}
		return nil, err
	}
	// identity for an active task; an inactive one reads as DISABLE
	next := domain.Advance(*t, ref)
	return &next, nil
}

// DeleteByUser removes all tasks of a user.
func (s *TaskService) DeleteByUser(ctx context.Context, userID string) (int, error) {
	ids, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.evict(ctx, ids...)
	return len(ids), nil
}

// load reads a task through the cache. Concurrent misses for the same ID
// share one database read.
func (s *TaskService) load(ctx context.Context, taskID string) (*domain.Task, error) {
	if t, ok, err := s.cache.Get(ctx, taskID); err != nil {
		s.logger.WithError(err).Warn("Cache read failed", "task_id", taskID)
	} else if ok {
		return t, nil
	}

	v, err, _ := s.reads.Do(taskID, func() (any, error) {
		gen := s.cacheGeneration()
		t, err := s.repo.FindByID(ctx, taskID)
		if err != nil {
			return nil, err
		}
		s.fillCache(ctx, t, gen)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	t := v.(*domain.Task).Clone()
	return &t, nil
}

func (s *TaskService) cacheGeneration() uint64 {
	s.fill.Lock()
	defer s.fill.Unlock()
	return s.evictions
}

// fillCache stores t unless an eviction ran after gen was taken; t may then
// predate a committed write.
func (s *TaskService) fillCache(ctx context.Context, t *domain.Task, gen uint64) {
	if s.cache == nil {
		return
	}
	s.fill.Lock()
	defer s.fill.Unlock()
	if s.evictions != gen {
		s.logger.Debug("Skipped cache fill after eviction", "task_id", t.ID)
		return
	}
	if err := s.cache.Set(ctx, t); err != nil {
		s.logger.WithError(err).Warn("Cache write failed", "task_id", t.ID)
	}
}

// evict runs after the write it follows has committed.
func (s *TaskService) evict(ctx context.Context, ids ...string) {
	s.fill.Lock()
	defer s.fill.Unlock()
	s.evictions++
	if err := s.cache.Delete(ctx, ids...); err != nil {
		s.logger.WithError(err).Warn("Cache eviction failed", "task_ids", ids)
	}
}

// CacheStats reports cache counters; all zero when caching is disabled.
func (s *TaskService) CacheStats() CacheStats {
	return s.cache.Stats()
}
