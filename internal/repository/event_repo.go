package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
)

// eventRepo implements EventRepository using GORM.
type eventRepo struct {
	db *gorm.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *gorm.DB) *eventRepo {
	return &eventRepo{db: db}
}

// Insert creates a new event.
func (r *eventRepo) Insert(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Log creates an event from its parts, marshaling detail to JSON.
func (r *eventRepo) Log(ctx context.Context, eventType, message string, detail any) error {
	return r.LogLatency(ctx, eventType, message, detail, 0)
}

// LogLatency creates an event that also records an operation latency.
func (r *eventRepo) LogLatency(ctx context.Context, eventType, message string, detail any, latency time.Duration) error {
	event := &models.Event{
		Type:      eventType,
		Message:   message,
		LatencyMS: latency.Milliseconds(),
	}
	if detail != nil {
		raw, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("marshaling event detail: %w", err)
		}
		event.Detail = string(raw)
	}
	return r.Insert(ctx, event)
}

// List retrieves events newest first, optionally filtered by type prefix.
func (r *eventRepo) List(ctx context.Context, typeFilter string, limit, offset int) ([]*models.Event, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Event{})
	if typeFilter != "" {
		q = q.Where("type LIKE ?", typeFilter+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}

	var events []*models.Event
	if err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("listing events: %w", err)
	}
	return events, total, nil
}

// CountByTypeSince counts events of a type prefix since the given time.
func (r *eventRepo) CountByTypeSince(ctx context.Context, typePrefix string, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("type LIKE ? AND created_at >= ?", typePrefix+"%", since).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes events created before the given time.
func (r *eventRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting old events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Ensure eventRepo implements EventRepository at compile time.
var _ EventRepository = (*eventRepo)(nil)
