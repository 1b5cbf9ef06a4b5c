package models

import "gorm.io/gorm"

// Rotation slugs. Seeding creates one host per slug; operators can rename
// the on-air personas but the slugs stay fixed so rotation parity holds.
const (
	HostSlugA        = "host_a"
	HostSlugB        = "host_b"
	HostSlugBreaking = "host_breaking"
)

// Host is an on-air persona. Two regular hosts alternate break by break;
// a third persona fronts breaking news.
type Host struct {
	BaseModel

	// Slug is the stable identifier used by rotation: host_a, host_b,
	// host_breaking.
	Slug string `gorm:"not null;uniqueIndex;size:50" json:"slug"`

	// Name is the on-air name spoken in scripts.
	Name string `gorm:"not null;size:100" json:"name"`

	// Character maps the host onto a visual character rig (alex, maya, rolo).
	Character string `gorm:"size:50" json:"character"`

	// StylePrompt shapes the LM writer's voice for this host.
	StylePrompt string `gorm:"size:4096" json:"style_prompt,omitempty"`

	// Per-provider voice identifiers.
	VoicePiper      string `gorm:"size:200" json:"voice_piper,omitempty"`
	VoiceElevenLabs string `gorm:"size:200" json:"voice_elevenlabs,omitempty"`
	VoiceOpenAI     string `gorm:"size:50" json:"voice_openai,omitempty"`

	// IsBreakingHost marks the persona used for breaking-news breaks.
	IsBreakingHost bool `gorm:"default:false" json:"is_breaking_host"`

	Active bool `gorm:"default:true" json:"active"`
}

// TableName returns the table name for Host.
func (Host) TableName() string {
	return "hosts"
}

// Validate performs basic validation on the host.
func (h *Host) Validate() error {
	if h.Slug == "" {
		return ErrSlugRequired
	}
	if h.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the host and generates its ULID.
func (h *Host) BeforeCreate(tx *gorm.DB) error {
	if err := h.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return h.Validate()
}

// BeforeUpdate is a GORM hook that validates the host before update.
func (h *Host) BeforeUpdate(tx *gorm.DB) error {
	return h.Validate()
}
