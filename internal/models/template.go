package models

import "gorm.io/gorm"

// ScriptTemplate is a canned weather script used when the LM is down
// (degradation rung 2). Placeholders {city1} {temp1} {condition1} {city2}
// {temp2} {condition2} are substituted from cached observations; a template
// break needs at least two cached cities to render.
type ScriptTemplate struct {
	BaseModel

	Name string `gorm:"not null;uniqueIndex;size:100" json:"name"`
	Body string `gorm:"not null;size:4096" json:"body"`

	// UseCount spreads template selection the same way city rotation
	// works: least-used first with a random tiebreak.
	UseCount int `gorm:"default:0;index" json:"use_count"`

	Active bool `gorm:"default:true;index" json:"active"`
}

// TableName returns the table name for ScriptTemplate.
func (ScriptTemplate) TableName() string {
	return "script_templates"
}

// Validate performs basic validation on the template.
func (t *ScriptTemplate) Validate() error {
	if t.Name == "" {
		return ErrNameRequired
	}
	if t.Body == "" {
		return ErrBodyRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the template and generates its ULID.
func (t *ScriptTemplate) BeforeCreate(tx *gorm.DB) error {
	if err := t.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return t.Validate()
}

// BeforeUpdate is a GORM hook that validates the template before update.
func (t *ScriptTemplate) BeforeUpdate(tx *gorm.DB) error {
	return t.Validate()
}
