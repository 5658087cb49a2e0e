package models

import "time"

type Session struct {
	ID                   uint          `gorm:"primaryKey" json:"id"`
	HostID               uint          `gorm:"not null;index" json:"host_id"`
	Host                 Host          `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE" json:"-"`
	Code                 string        `gorm:"size:6;index" json:"code"`
	Status               string        `gorm:"size:20;not null;default:'creation'" json:"status"`
	Phase                string        `gorm:"size:20;not null;default:''" json:"phase,omitempty"`
	CurrentBlockID       *uint         `json:"current_block_id,omitempty"`
	CurrentQuestionID    *uint         `json:"current_question_id,omitempty"`
	MinQuestions         int           `gorm:"not null;default:0" json:"min_questions"`
	SuggestedQuestions   int           `gorm:"not null;default:3" json:"suggested_questions"`
	MaxQuestions         int           `gorm:"not null;default:10" json:"max_questions"`
	EnableAuthorGuessing bool          `gorm:"not null;default:true" json:"enable_author_guessing"`
	Version              uint          `gorm:"not null;default:0" json:"version"`
	Participants         []Participant `gorm:"foreignKey:SessionID" json:"participants,omitempty"`
	Blocks               []Block       `gorm:"foreignKey:SessionID" json:"blocks,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
}

const (
	SessionStatusCreation = "creation"
	SessionStatusPlay     = "play"
	SessionStatusFinished = "finished"
)

// Phase is meaningful only while Status is "play"; it is the empty string
// otherwise.
const (
	PhaseQuestion     = "question"
	PhaseAuthorGuess  = "author_guess"
	PhaseAuthorReveal = "author_reveal"
	PhaseGrading      = "grading"
)

func (s *Session) InPlay() bool {
	return s.Status == SessionStatusPlay
}
