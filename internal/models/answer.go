package models

import "time"

// Answer is one participant's response to one question. Exactly one row exists
// per (question, participant); resubmission replaces the row. IsCorrect is
// tri-state: nil means an open answer not yet graded.
type Answer struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	SessionID     uint       `gorm:"not null;index" json:"session_id"`
	QuestionID    uint       `gorm:"not null;uniqueIndex:idx_answer_unique" json:"question_id"`
	ParticipantID uint       `gorm:"not null;uniqueIndex:idx_answer_unique" json:"participant_id"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	IsCorrect     *bool      `json:"is_correct"`
	AnsweredAt    time.Time  `json:"answered_at"`
	GradedAt      *time.Time `json:"graded_at,omitempty"`
}
