package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("sync run not found")

// RunStore persists the sync run log.
type RunStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db, now: time.Now}
}

// Start inserts run with a fresh run id and returns that id.
func (s *RunStore) Start(ctx context.Context, run SyncRun) (string, error) {
	run.RunID = uuid.NewString()
	run.Status = RunStarted
	run.StartedAt = s.now()
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return run.RunID, nil
}

// RunResult is the outcome written when a run ends.
type RunResult struct {
	Status        string
	AdvocateName  string
	CaseCount     int
	EnrichedCount int
	Error         string
}

// Finish records the outcome of a started run.
func (s *RunStore) Finish(ctx context.Context, runID string, result RunResult) error {
	var run SyncRun
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRunNotFound
		}
		return fmt.Errorf("failed to load run: %w", err)
	}

	finished := s.now()
	updates := map[string]interface{}{
		"status":         result.Status,
		"case_count":     result.CaseCount,
		"enriched_count": result.EnrichedCount,
		"error_message":  result.Error,
		"finished_at":    finished,
		"duration_ms":    finished.Sub(run.StartedAt).Milliseconds(),
	}
	if result.AdvocateName != "" {
		updates["advocate_name"] = result.AdvocateName
	}
	if err := s.db.WithContext(ctx).Model(&run).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Get returns one run by id.
func (s *RunStore) Get(ctx context.Context, runID string) (*SyncRun, error) {
	var run SyncRun
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List returns a page of runs, newest first, and the total count.
func (s *RunStore) List(ctx context.Context, page, limit int) ([]SyncRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&SyncRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []SyncRun
	err := s.db.WithContext(ctx).
		Offset((page - 1) * limit).Limit(limit).
		Order("started_at DESC").Order("id DESC").
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// Ping reports whether the database answers.
func (s *RunStore) Ping(ctx context.Context) error {
	var count int64
	return s.db.WithContext(ctx).Model(&SyncRun{}).Count(&count).Error
}
