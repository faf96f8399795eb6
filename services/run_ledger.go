package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
)

// RunLedger keeps a history of optimizer calls in postgres. A ledger built
// with a nil db is disabled: writes are dropped and lists come back empty.
type RunLedger struct {
	db *gorm.DB
}

func NewRunLedger(db *gorm.DB) *RunLedger {
	return &RunLedger{db: db}
}

func (l *RunLedger) Enabled() bool {
	return l != nil && l.db != nil
}

func (l *RunLedger) Migrate() error {
	if !l.Enabled() {
		return nil
	}
	return l.db.AutoMigrate(&models.OptimizationRun{})
}

// Record stores run, filling in its id and timestamp when unset.
func (l *RunLedger) Record(ctx context.Context, run *models.OptimizationRun) error {
	if !l.Enabled() {
		return nil
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.TS.IsZero() {
		run.TS = time.Now().UTC()
	}
	if err := l.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns up to limit runs of a session, newest first, older than
// before when set. hasMore reports whether another page exists.
func (l *RunLedger) List(ctx context.Context, sessionID string, limit int, before *time.Time) ([]models.OptimizationRun, bool, error) {
	if !l.Enabled() {
		return []models.OptimizationRun{}, false, nil
	}

	var rows []models.OptimizationRun
	if err := listQuery(l.db.WithContext(ctx), sessionID, limit, before).Find(&rows).Error; err != nil {
		return nil, false, fmt.Errorf("list runs: %w", err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	return rows, hasMore, nil
}

// listQuery fetches one row beyond limit to detect a further page.
func listQuery(tx *gorm.DB, sessionID string, limit int, before *time.Time) *gorm.DB {
	query := tx.Model(&models.OptimizationRun{}).
		Where("session_id = ?", sessionID).
		Order("ts DESC").
		Limit(limit + 1)
	if before != nil {
		query = query.Where("ts < ?", *before)
	}
	return query
}
