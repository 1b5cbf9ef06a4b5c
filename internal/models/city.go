package models

import "gorm.io/gorm"

// City is a weather rotation entry. Each break picks the least-used active
// cities so coverage spreads evenly over time.
type City struct {
	BaseModel

	Name      string  `gorm:"not null;uniqueIndex;size:100" json:"name"`
	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`

	// UseCount increments each time the city's weather is spoken in a
	// break. Rotation orders by it ascending with a random tiebreak.
	UseCount int `gorm:"default:0;index" json:"use_count"`

	Active bool `gorm:"default:true;index" json:"active"`
}

// TableName returns the table name for City.
func (City) TableName() string {
	return "cities"
}

// Validate performs basic validation on the city.
func (c *City) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the city and generates its ULID.
func (c *City) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}

// BeforeUpdate is a GORM hook that validates the city before update.
func (c *City) BeforeUpdate(tx *gorm.DB) error {
	return c.Validate()
}
