package models

import (
	"net/url"

	"gorm.io/gorm"
)

// deadSourceThreshold is how many consecutive fetch failures mark a feed
// source dead. Dead sources are still attempted so they recover on their
// own, but they no longer count as healthy.
const deadSourceThreshold = 5

// FeedSource is one RSS/Atom feed the news collector polls.
type FeedSource struct {
	BaseModel

	Name string `gorm:"not null;uniqueIndex;size:100" json:"name"`
	URL  string `gorm:"not null;size:2048" json:"url"`

	// Active sources are polled; inactive sources are kept for reference
	// but never fetched.
	Active bool `gorm:"default:true;index" json:"active"`

	// ConsecutiveFailures counts fetch/parse errors since the last success.
	ConsecutiveFailures int `gorm:"default:0" json:"consecutive_failures"`

	// Healthy turns false at deadSourceThreshold consecutive failures and
	// true again on any success.
	Healthy bool `gorm:"default:true;index" json:"healthy"`

	LastFetchedAt *Time  `json:"last_fetched_at,omitempty"`
	LastError     string `gorm:"size:1024" json:"last_error,omitempty"`
}

// TableName returns the table name for FeedSource.
func (FeedSource) TableName() string {
	return "feed_sources"
}

// RecordSuccess resets the failure streak after a successful fetch.
// An empty feed and a feed of nothing but duplicates both count as success.
func (s *FeedSource) RecordSuccess() {
	s.ConsecutiveFailures = 0
	s.Healthy = true
	s.LastError = ""
	now := Now()
	s.LastFetchedAt = &now
}

// RecordFailure increments the failure streak and returns true when this
// failure crossed the dead threshold (callers log the transition once).
func (s *FeedSource) RecordFailure(err error) bool {
	s.ConsecutiveFailures++
	if err != nil {
		s.LastError = err.Error()
	}
	now := Now()
	s.LastFetchedAt = &now

	if s.Healthy && s.ConsecutiveFailures >= deadSourceThreshold {
		s.Healthy = false
		return true
	}
	return false
}

// Validate performs basic validation on the feed source.
func (s *FeedSource) Validate() error {
	if s.Name == "" {
		return ErrNameRequired
	}
	if s.URL == "" {
		return ErrURLRequired
	}
	if u, err := url.Parse(s.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and generates its ULID.
func (s *FeedSource) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// BeforeUpdate is a GORM hook that validates the source before update.
func (s *FeedSource) BeforeUpdate(tx *gorm.DB) error {
	return s.Validate()
}
