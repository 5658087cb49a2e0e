package models

type Question struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	BlockID      uint     `gorm:"not null;index" json:"block_id"`
	IndexInBlock int      `gorm:"not null;default:0" json:"index_in_block"`
	Text         string   `gorm:"type:text;not null" json:"text"`
	Type         string   `gorm:"size:10;not null;default:'open'" json:"type"`
	CorrectText  string   `gorm:"type:text" json:"correct_text,omitempty"`
	ImageURL     string   `gorm:"size:500" json:"image_url,omitempty"`
	Options      []Option `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

const (
	QuestionTypeOpen = "open"
	QuestionTypeMCQ  = "mcq"
)

type Option struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Text       string `gorm:"size:500;not null" json:"text"`
	OrderNum   int    `gorm:"not null;default:0" json:"order_num"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"is_correct"`
}
