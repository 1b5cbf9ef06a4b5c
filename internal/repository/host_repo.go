package repository

import (
	"context"
	"fmt"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
)

// hostRepo implements HostRepository using GORM.
type hostRepo struct {
	db *gorm.DB
}

// NewHostRepository creates a new HostRepository.
func NewHostRepository(db *gorm.DB) *hostRepo {
	return &hostRepo{db: db}
}

// Create creates a new host.
func (r *hostRepo) Create(ctx context.Context, host *models.Host) error {
	if err := r.db.WithContext(ctx).Create(host).Error; err != nil {
		return fmt.Errorf("creating host: %w", err)
	}
	return nil
}

// GetBySlug retrieves a host by slug.
func (r *hostRepo) GetBySlug(ctx context.Context, slug string) (*models.Host, error) {
	var host models.Host
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&host).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting host by slug: %w", err)
	}
	return &host, nil
}

// GetAll retrieves all hosts ordered by slug.
func (r *hostRepo) GetAll(ctx context.Context) ([]*models.Host, error) {
	var hosts []*models.Host
	if err := r.db.WithContext(ctx).Order("slug ASC").Find(&hosts).Error; err != nil {
		return nil, fmt.Errorf("getting all hosts: %w", err)
	}
	return hosts, nil
}

// GetActive retrieves all active hosts ordered by slug.
func (r *hostRepo) GetActive(ctx context.Context) ([]*models.Host, error) {
	var hosts []*models.Host
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("slug ASC").Find(&hosts).Error; err != nil {
		return nil, fmt.Errorf("getting active hosts: %w", err)
	}
	return hosts, nil
}

// GetBreakingHost retrieves the active host flagged for breaking news.
func (r *hostRepo) GetBreakingHost(ctx context.Context) (*models.Host, error) {
	var host models.Host
	if err := r.db.WithContext(ctx).
		Where("is_breaking_host = ? AND active = ?", true, true).
		First(&host).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting breaking host: %w", err)
	}
	return &host, nil
}

// Update updates an existing host.
func (r *hostRepo) Update(ctx context.Context, host *models.Host) error {
	if err := r.db.WithContext(ctx).Save(host).Error; err != nil {
		return fmt.Errorf("updating host: %w", err)
	}
	return nil
}

// Ensure hostRepo implements HostRepository at compile time.
var _ HostRepository = (*hostRepo)(nil)
