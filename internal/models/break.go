package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
)

// BreakKind distinguishes timer-driven breaks from breaking-news breaks.
type BreakKind string

const (
	// BreakKindScheduled is a regular timer-driven break.
	BreakKindScheduled BreakKind = "scheduled"
	// BreakKindBreaking is an urgent break triggered by a high-scoring
	// headline or a manual trigger. Breaking breaks bypass the admission
	// gate and the cooldown.
	BreakKindBreaking BreakKind = "breaking"
)

// BreakStatus represents the lifecycle state of a break.
type BreakStatus string

const (
	// BreakStatusPreparing indicates the pipeline is assembling the break.
	BreakStatusPreparing BreakStatus = "PREPARING"
	// BreakStatusReady indicates the break has playable media on disk.
	BreakStatusReady BreakStatus = "READY"
	// BreakStatusPushed indicates the playout system accepted the break.
	BreakStatusPushed BreakStatus = "PUSHED"
	// BreakStatusPlayed indicates the break went to air.
	BreakStatusPlayed BreakStatus = "PLAYED"
	// BreakStatusFailed indicates every fallback rung was exhausted or the
	// break was abandoned (e.g. stale PREPARING at startup).
	BreakStatusFailed BreakStatus = "FAILED"
)

// Degradation rungs. The builder records the rung each break settled on so
// operators can see how often the full path succeeds.
const (
	// DegradationNone is a full LM script with synthesized speech.
	DegradationNone = 0
	// DegradationRetry means an LM retry or alternate attempt produced the script.
	DegradationRetry = 1
	// DegradationTemplate means a weather template replaced the LM script.
	DegradationTemplate = 2
	// DegradationSting means a pre-recorded sting replaced speech entirely.
	DegradationSting = 3
	// DegradationFailed means nothing playable could be produced.
	DegradationFailed = 4
)

// FailReasonExhausted is recorded when every degradation rung fails.
const FailReasonExhausted = "all fallbacks exhausted"

// FailReasonStale is recorded when startup recovery abandons a break that
// was PREPARING when the previous process died.
const FailReasonStale = "stale_preparing_on_startup"

// FailReasonNoSpeech is recorded when synthesis failed and no sting asset
// was available to fall back to.
const FailReasonNoSpeech = "TTS failed, no sting"

// Break is one produced (or failed) station break.
type Break struct {
	BaseModel

	// Kind distinguishes scheduled breaks from breaking-news breaks.
	Kind BreakKind `gorm:"not null;size:20;index" json:"kind"`

	// Status is the current lifecycle state.
	Status BreakStatus `gorm:"not null;default:'PREPARING';size:20;index" json:"status"`

	// HostSlug identifies the host persona that voices this break.
	HostSlug string `gorm:"size:50;index" json:"host_slug"`

	// Script is the spoken text. Empty for sting-only breaks (rung 3).
	Script string `gorm:"size:8192" json:"script,omitempty"`

	// DialogJSON holds the structured two-host script when dialog mode
	// produced this break. Empty for monologues.
	DialogJSON string `gorm:"size:16384" json:"dialog_json,omitempty"`

	// AudioPath is the finished audio file inside the media sandbox.
	AudioPath string `gorm:"size:1024" json:"audio_path,omitempty"`

	// VideoPath is the rendered MP4, when the visual pipeline ran.
	VideoPath string `gorm:"size:1024" json:"video_path,omitempty"`

	// DegradationLevel records the rung the break settled on (0-4).
	DegradationLevel int `gorm:"default:0" json:"degradation_level"`

	// FailReason explains a FAILED status.
	FailReason string `gorm:"size:1024" json:"fail_reason,omitempty"`

	// Meta carries assembly context as JSON: weather cities used, headline
	// IDs, market quote, trigger note.
	Meta string `gorm:"size:8192" json:"meta,omitempty"`

	ReadyAt  *Time `json:"ready_at,omitempty"`
	PushedAt *Time `json:"pushed_at,omitempty"`
	PlayedAt *Time `gorm:"index" json:"played_at,omitempty"`
}

// TableName returns the table name for Break.
func (Break) TableName() string {
	return "breaks"
}

// IsBreaking returns true for breaking-news breaks.
func (b *Break) IsBreaking() bool {
	return b.Kind == BreakKindBreaking
}

// IsTerminal returns true once the break can no longer change state.
func (b *Break) IsTerminal() bool {
	return b.Status == BreakStatusPlayed || b.Status == BreakStatusFailed
}

// CanTransition reports whether the state machine allows moving to next.
// PREPARING -> READY | FAILED
// READY     -> PUSHED | FAILED
// PUSHED    -> PLAYED | FAILED
func (b *Break) CanTransition(next BreakStatus) bool {
	switch b.Status {
	case BreakStatusPreparing:
		return next == BreakStatusReady || next == BreakStatusFailed
	case BreakStatusReady:
		return next == BreakStatusPushed || next == BreakStatusFailed
	case BreakStatusPushed:
		return next == BreakStatusPlayed || next == BreakStatusFailed
	default:
		return false
	}
}

// MarkReady transitions the break to READY.
// A break is playable with audio on disk, or with no audio at all when the
// sting rung produced it (the sting asset is the audio).
func (b *Break) MarkReady() error {
	if !b.CanTransition(BreakStatusReady) {
		return ErrInvalidTransition
	}
	if b.AudioPath == "" && b.DegradationLevel != DegradationSting {
		return ErrValidation{Field: "audio_path", Message: "required below the sting rung"}
	}
	b.Status = BreakStatusReady
	now := Now()
	b.ReadyAt = &now
	return nil
}

// MarkPushed transitions the break to PUSHED after playout accepted it.
func (b *Break) MarkPushed() error {
	if !b.CanTransition(BreakStatusPushed) {
		return ErrInvalidTransition
	}
	b.Status = BreakStatusPushed
	now := Now()
	b.PushedAt = &now
	return nil
}

// MarkPlayed transitions the break to PLAYED once it went to air.
func (b *Break) MarkPlayed() error {
	if !b.CanTransition(BreakStatusPlayed) {
		return ErrInvalidTransition
	}
	b.Status = BreakStatusPlayed
	now := Now()
	b.PlayedAt = &now
	return nil
}

// MarkFailed transitions the break to FAILED with a reason.
// Allowed from any non-terminal state.
func (b *Break) MarkFailed(reason string) error {
	if b.IsTerminal() {
		return ErrInvalidTransition
	}
	b.Status = BreakStatusFailed
	b.FailReason = reason
	return nil
}

// Validate performs basic validation on the break.
func (b *Break) Validate() error {
	switch b.Kind {
	case BreakKindScheduled, BreakKindBreaking:
	default:
		return ErrInvalidBreakKind
	}
	switch b.Status {
	case BreakStatusPreparing, BreakStatusReady, BreakStatusPushed,
		BreakStatusPlayed, BreakStatusFailed:
	default:
		return ErrInvalidBreakStatus
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the break and generates its ULID.
func (b *Break) BeforeCreate(tx *gorm.DB) error {
	if err := b.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return b.Validate()
}

// BeforeUpdate is a GORM hook that validates the break before update.
func (b *Break) BeforeUpdate(tx *gorm.DB) error {
	return b.Validate()
}

// BreakMeta is the assembly context stored in the Meta column. Headline IDs
// feed the repeat-story exclusion on subsequent builds.
type BreakMeta struct {
	HeadlineIDs   []ULID   `json:"headline_ids,omitempty"`
	WeatherCities []string `json:"weather_cities,omitempty"`
	QuotePriceUSD float64  `json:"quote_price_usd,omitempty"`
	QuoteChange   float64  `json:"quote_change_24h,omitempty"`
	Note          string   `json:"note,omitempty"`
}

// SetMeta marshals meta into the Meta column.
func (b *Break) SetMeta(meta *BreakMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling break meta: %w", err)
	}
	b.Meta = string(raw)
	return nil
}

// ParseMeta unmarshals the Meta column. A break without meta parses to an
// empty value.
func (b *Break) ParseMeta() (*BreakMeta, error) {
	meta := &BreakMeta{}
	if b.Meta == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(b.Meta), meta); err != nil {
		return nil, fmt.Errorf("parsing break meta: %w", err)
	}
	return meta, nil
}
