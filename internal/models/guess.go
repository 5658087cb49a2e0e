package models

import "time"

// BlockGuess is one participant's guess of a block's author. Exactly one row
// exists per (block, guesser); IsCorrect is computed at submission.
type BlockGuess struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	SessionID            uint      `gorm:"not null;index" json:"session_id"`
	BlockID              uint      `gorm:"not null;uniqueIndex:idx_guess_unique" json:"block_id"`
	GuesserID            uint      `gorm:"not null;uniqueIndex:idx_guess_unique" json:"guesser_id"`
	GuessedParticipantID uint      `gorm:"not null" json:"guessed_participant_id"`
	IsCorrect            bool      `gorm:"not null" json:"is_correct"`
	GuessedAt            time.Time `json:"guessed_at"`
}
