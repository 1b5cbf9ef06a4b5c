package models

// RotationState is the single-row break ordinal behind host rotation. The
// count survives restarts so the hosts keep alternating across process
// lives instead of resetting to the same voice after every deploy.
type RotationState struct {
	// ID is always 1. A fixed key keeps the table to one row.
	ID int `gorm:"primaryKey" json:"id"`

	// BreakCount is the ordinal of the most recent rotated break.
	BreakCount int `gorm:"default:0" json:"break_count"`

	// LastHostSlug records which host took the most recent rotated break.
	LastHostSlug string `gorm:"size:50" json:"last_host_slug"`

	UpdatedAt Time `json:"updated_at"`
}

// TableName returns the table name for RotationState.
func (RotationState) TableName() string {
	return "host_rotation"
}
