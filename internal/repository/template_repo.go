package repository

import (
	"context"
	"fmt"

	"github.com/hermesradio/hermes/internal/models"
	"gorm.io/gorm"
)

// templateRepo implements TemplateRepository using GORM.
type templateRepo struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new TemplateRepository.
func NewTemplateRepository(db *gorm.DB) *templateRepo {
	return &templateRepo{db: db}
}

// Create creates a new script template.
func (r *templateRepo) Create(ctx context.Context, tmpl *models.ScriptTemplate) error {
	if err := r.db.WithContext(ctx).Create(tmpl).Error; err != nil {
		return fmt.Errorf("creating template: %w", err)
	}
	return nil
}

// GetAll retrieves all templates ordered by name.
func (r *templateRepo) GetAll(ctx context.Context) ([]*models.ScriptTemplate, error) {
	var templates []*models.ScriptTemplate
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("getting all templates: %w", err)
	}
	return templates, nil
}

// PickNext selects the least-used active template with random tie-breaking
// and bumps its use count. Returns nil when no active template exists, which
// sends the degradation ladder past the template rung.
func (r *templateRepo) PickNext(ctx context.Context) (*models.ScriptTemplate, error) {
	var tmpl models.ScriptTemplate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("active = ?", true).
			Order("use_count ASC, RANDOM()").
			First(&tmpl).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ScriptTemplate{}).
			Where("id = ?", tmpl.ID).
			UpdateColumn("use_count", gorm.Expr("use_count + 1")).Error; err != nil {
			return err
		}
		tmpl.UseCount++
		return nil
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("picking template: %w", err)
	}
	return &tmpl, nil
}

// Ensure templateRepo implements TemplateRepository at compile time.
var _ TemplateRepository = (*templateRepo)(nil)
