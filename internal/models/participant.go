package models

import "time"

// Participant is one joined player. NameKey is the trimmed, case-folded form of
// Name used for identity comparison; the original casing is kept in Name.
type Participant struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   uint      `gorm:"not null;uniqueIndex:idx_participant_name;uniqueIndex:idx_participant_token" json:"session_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	NameKey     string    `gorm:"size:100;not null;uniqueIndex:idx_participant_name" json:"-"`
	DeviceToken string    `gorm:"size:64;not null;uniqueIndex:idx_participant_token" json:"-"`
	AccountID   *uint     `json:"account_id,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}
