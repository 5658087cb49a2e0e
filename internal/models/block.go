package models

// Block is a titled group of questions authored by the host or by exactly one
// participant. Host blocks always sort before participant blocks and keep
// their creation order; participant blocks may be shuffled at game start.
type Block struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	SessionID           uint       `gorm:"not null;index" json:"session_id"`
	AuthorType          string     `gorm:"size:20;not null" json:"author_type"`
	AuthorParticipantID *uint      `gorm:"index" json:"author_participant_id,omitempty"`
	Title               string     `gorm:"size:255;not null" json:"title"`
	OrderIndex          int        `gorm:"not null;default:0" json:"order_index"`
	IsLocked            bool       `gorm:"not null;default:false" json:"is_locked"`
	Questions           []Question `gorm:"foreignKey:BlockID" json:"questions,omitempty"`
}

const (
	AuthorTypeHost        = "host"
	AuthorTypeParticipant = "participant"
)

func (b *Block) IsHostAuthored() bool {
	return b.AuthorType == AuthorTypeHost
}
