package models

import "gorm.io/gorm"

// Setting is a runtime-tunable key/value pair. Operators change these over
// the API without restarting the service; the defaults are seeded at first
// migration.
type Setting struct {
	BaseModel

	// Key is the unique setting name, e.g. "break_interval_minutes".
	Key string `gorm:"not null;uniqueIndex;size:100" json:"key"`

	// Value is stored as text; callers parse it with the typed accessors
	// on the settings repository.
	Value string `gorm:"size:8192" json:"value"`

	// Description documents the setting for the admin API.
	Description string `gorm:"size:512" json:"description,omitempty"`
}

// TableName returns the table name for Setting.
func (Setting) TableName() string {
	return "settings"
}

// Validate performs basic validation on the setting.
func (s *Setting) Validate() error {
	if s.Key == "" {
		return ErrKeyRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the setting and generates its ULID.
func (s *Setting) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return s.Validate()
}

// Well-known setting keys. The settings repository seeds defaults for all
// of these; see database.SeedDefaults.
const (
	SettingBreakIntervalMinutes   = "break_interval_minutes"
	SettingQuietMode              = "quiet_mode"
	SettingQuietHoursStart        = "quiet_hours_start"
	SettingQuietHoursEnd          = "quiet_hours_end"
	SettingBreakingScoreThreshold = "breaking_score_threshold"
	SettingNewsDedupeWindowMin    = "news_dedupe_window_minutes"
	SettingBreakMinWords          = "break_min_words"
	SettingBreakMaxWords          = "break_max_words"
	SettingBreakMaxChars          = "break_max_chars"
	SettingBreakingMinWords       = "breaking_min_words"
	SettingBreakingMaxWords       = "breaking_max_words"
	SettingDialogMode             = "dialog_mode"
	SettingDialogCharacters       = "dialog_characters"
	SettingMasterPrompt           = "master_prompt"
	SettingElevenLabsAPIKey       = "elevenlabs_api_key"
	SettingOpenAITTSModel         = "openai_tts_model"
	SettingTTSDefaultProvider     = "tts_default_provider"
	SettingTTSBreakingProvider    = "tts_breaking_provider"
	SettingBitcoinEnabled         = "bitcoin_enabled"
	SettingBitcoinAPIKey          = "bitcoin_api_key"
	SettingBitcoinCacheTTL        = "bitcoin_cache_ttl_seconds"
	SettingPrepareAtTrack         = "prepare_at_track"
	SettingEveryNTracks           = "every_n_tracks"
	SettingCooldownSeconds        = "cooldown_seconds"
	SettingBreakTimeoutSeconds    = "break_timeout_seconds"
	SettingWeatherCitiesPerBreak  = "weather_cities_per_break"
	SettingBlockedPhrases         = "blocked_phrases"
	SettingBlockedDomains         = "blocked_domains"
	SettingEventsRetention        = "events_retention"
	SettingNewsRetention          = "news_retention"
	SettingFailedBreaksRetention  = "failed_breaks_retention"
)
