package models

import "gorm.io/gorm"

// Event types written by the services. The logs API filters on these with
// a LIKE match, so related types share a prefix (break_*, feed_*).
const (
	EventBreakStarted    = "break_started"
	EventBreakReady      = "break_ready"
	EventBreakPushed     = "break_pushed"
	EventBreakPlayed     = "break_played"
	EventBreakFailed     = "break_failed"
	EventBreakDegraded   = "break_degraded"
	EventBreakSkipped    = "break_skipped"
	EventBreakingTrigger = "breaking_trigger"
	EventFeedDead        = "feed_dead"
	EventFeedRecovered   = "feed_recovered"
	EventPlayoutError    = "playout_error"
	EventTrackChange     = "track_change"
	EventMaintenance     = "maintenance"
	EventStatsDaily      = "stats_daily"
)

// Event is an operational log row. The slog stream is for humans tailing
// the process; events are the queryable history behind /api/logs.
type Event struct {
	BaseModel

	// Type categorizes the event, e.g. "break_failed" or "feed_dead".
	Type string `gorm:"not null;size:50;index" json:"type"`

	// Message is the human-readable one-liner.
	Message string `gorm:"not null;size:1024" json:"message"`

	// Detail carries structured context as JSON.
	Detail string `gorm:"size:4096" json:"detail,omitempty"`

	// LatencyMS is how long the operation behind the event took. Break
	// lifecycle events record the assembly time here.
	LatencyMS int64 `gorm:"default:0" json:"latency_ms,omitempty"`
}

// TableName returns the table name for Event.
func (Event) TableName() string {
	return "events"
}

// Validate performs basic validation on the event.
func (e *Event) Validate() error {
	if e.Type == "" {
		return ErrEventTypeRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the event and generates its ULID.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if err := e.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return e.Validate()
}
