package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecomplus/app-fb-conversions/internal/model"
)

// WebhookLogRepository webhook audit log repository interface
type WebhookLogRepository interface {
	// Create records one handled trigger
	Create(ctx context.Context, entry *model.WebhookLog) error

	// ListByStore lists recent entries for a store, newest first
	ListByStore(ctx context.Context, storeID int64, limit int) ([]*model.WebhookLog, error)

	// CountByOutcome counts entries per outcome since the given time
	CountByOutcome(ctx context.Context, since time.Time) (map[string]int64, error)
}

type webhookLogRepository struct {
	db *gorm.DB
}

// NewWebhookLogRepository creates a webhook audit log repository
func NewWebhookLogRepository(db *gorm.DB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

// Create records one handled trigger
func (r *webhookLogRepository) Create(ctx context.Context, entry *model.WebhookLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByStore lists recent entries for a store, newest first
func (r *webhookLogRepository) ListByStore(ctx context.Context, storeID int64, limit int) ([]*model.WebhookLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var entries []*model.WebhookLog
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByOutcome counts entries per outcome since the given time
func (r *webhookLogRepository) CountByOutcome(ctx context.Context, since time.Time) (map[string]int64, error) {
	type row struct {
		Outcome string
		Total   int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.WebhookLog{}).
		Select("outcome, COUNT(*) AS total").
		Where("created_at >= ?", since).
		Group("outcome").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Outcome] = r.Total
	}
	return counts, nil
}
