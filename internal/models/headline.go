package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Headline is one sanitized news item pulled from a feed source.
type Headline struct {
	BaseModel

	// DedupeID is "{source}_{first 16 hex chars of sha256(title)}". A
	// headline whose DedupeID was seen inside the dedupe window is skipped
	// at ingest, so re-published and cross-polled items only land once.
	DedupeID string `gorm:"not null;uniqueIndex;size:150" json:"dedupe_id"`

	SourceName string `gorm:"not null;size:100;index" json:"source_name"`
	Title      string `gorm:"not null;size:1024" json:"title"`
	Summary    string `gorm:"size:2048" json:"summary,omitempty"`
	Link       string `gorm:"size:2048" json:"link,omitempty"`

	// Score is the LM newsworthiness rating 1-10. Nil until scored.
	Score *int `gorm:"index" json:"score,omitempty"`

	// Breaking marks headlines that crossed the breaking threshold and
	// triggered (or were considered for) an urgent break.
	Breaking bool `gorm:"default:false;index" json:"breaking"`

	PublishedAt *Time `json:"published_at,omitempty"`
	FetchedAt   Time  `gorm:"not null;index" json:"fetched_at"`
}

// TableName returns the table name for Headline.
func (Headline) TableName() string {
	return "headlines"
}

// NewDedupeID builds the stable identity for a headline title under a source.
// The title is lowercased and trimmed first so reformatted re-publishes of
// the same story still collide.
func NewDedupeID(source, title string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(title))))
	return fmt.Sprintf("%s_%s", source, hex.EncodeToString(sum[:])[:16])
}

// IsScored returns true once the LM scorer has rated this headline.
func (h *Headline) IsScored() bool {
	return h.Score != nil
}

// Validate performs basic validation on the headline.
func (h *Headline) Validate() error {
	if h.Title == "" {
		return ErrTitleRequired
	}
	if h.DedupeID == "" {
		h.DedupeID = NewDedupeID(h.SourceName, h.Title)
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the headline and generates its ULID.
func (h *Headline) BeforeCreate(tx *gorm.DB) error {
	if err := h.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if h.FetchedAt.IsZero() {
		h.FetchedAt = Now()
	}
	return h.Validate()
}
