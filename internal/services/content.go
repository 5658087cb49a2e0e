package services

import (
	"math/rand"
	"strings"

	"github.com/mihkeluutar/quiz-game/internal/apperrors"
	"github.com/mihkeluutar/quiz-game/internal/models"

	"gorm.io/gorm"
)

// ContentService manages authored blocks and questions during CREATION and
// freezes them into a play order at game start.
type ContentService struct {
	db *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{db: db}
}

type QuestionInput struct {
	Text        string        `json:"text"`
	Type        string        `json:"type"`
	CorrectText string        `json:"correct_text"`
	ImageURL    string        `json:"image_url"`
	Options     []OptionInput `json:"options"`
}

type OptionInput struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// SaveHostBlock creates a new host block (blockID nil) or fully replaces an
// existing one. Hosts may own any number of blocks.
func (s *ContentService) SaveHostBlock(session *models.Session, blockID *uint, title string, questions []QuestionInput) (*models.Block, error) {
	if err := s.checkEditable(session); err != nil {
		return nil, err
	}
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}

	var block models.Block
	if blockID != nil {
		if err := s.db.Where("id = ? AND session_id = ? AND author_type = ?",
			*blockID, session.ID, models.AuthorTypeHost).First(&block).Error; err != nil {
			return nil, apperrors.NotFound("host block %d not found in session %d", *blockID, session.ID)
		}
		block.Title = strings.TrimSpace(title)
	} else {
		var maxOrder int
		s.db.Model(&models.Block{}).Where("session_id = ?", session.ID).
			Select("COALESCE(MAX(order_index), -1)").Scan(&maxOrder)
		block = models.Block{
			SessionID:  session.ID,
			AuthorType: models.AuthorTypeHost,
			Title:      strings.TrimSpace(title),
			OrderIndex: maxOrder + 1,
		}
	}

	return s.saveBlock(&block, questions)
}

// SaveParticipantBlock creates or fully replaces the participant's single
// block. Submitted question order becomes index_in_block, so reordering is a
// side effect of resubmission.
func (s *ContentService) SaveParticipantBlock(session *models.Session, participant *models.Participant, title string, questions []QuestionInput) (*models.Block, error) {
	if err := s.checkEditable(session); err != nil {
		return nil, err
	}
	if err := validateQuestions(questions); err != nil {
		return nil, err
	}

	var block models.Block
	err := s.db.Where("session_id = ? AND author_participant_id = ?", session.ID, participant.ID).
		First(&block).Error
	if err != nil {
		var maxOrder int
		s.db.Model(&models.Block{}).Where("session_id = ?", session.ID).
			Select("COALESCE(MAX(order_index), -1)").Scan(&maxOrder)
		block = models.Block{
			SessionID:           session.ID,
			AuthorType:          models.AuthorTypeParticipant,
			AuthorParticipantID: &participant.ID,
			OrderIndex:          maxOrder + 1,
		}
	}
	block.Title = strings.TrimSpace(title)
	if block.Title == "" {
		block.Title = participant.Name
	}

	return s.saveBlock(&block, questions)
}

func (s *ContentService) saveBlock(block *models.Block, questions []QuestionInput) (*models.Block, error) {
	tx := s.db.Begin()

	if err := tx.Save(block).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Where("question_id IN (SELECT id FROM questions WHERE block_id = ?)", block.ID).
		Delete(&models.Option{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("block_id = ?", block.ID).Delete(&models.Question{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for i, q := range questions {
		question := models.Question{
			BlockID:      block.ID,
			IndexInBlock: i,
			Text:         strings.TrimSpace(q.Text),
			Type:         questionType(q),
			CorrectText:  strings.TrimSpace(q.CorrectText),
			ImageURL:     q.ImageURL,
		}
		if err := tx.Create(&question).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		for j, o := range q.Options {
			opt := models.Option{
				QuestionID: question.ID,
				Text:       strings.TrimSpace(o.Text),
				OrderNum:   j,
				IsCorrect:  o.IsCorrect,
			}
			if err := tx.Create(&opt).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.GetBlock(block.ID)
}

func (s *ContentService) GetBlock(blockID uint) (*models.Block, error) {
	var block models.Block
	if err := s.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("index_in_block ASC")
	}).Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_num ASC")
	}).First(&block, blockID).Error; err != nil {
		return nil, apperrors.NotFound("block %d not found", blockID)
	}
	return &block, nil
}

// OrderedBlocks returns the session's blocks in play order with questions and
// options loaded.
func (s *ContentService) OrderedBlocks(sessionID uint) ([]models.Block, error) {
	return orderedBlocks(s.db, sessionID)
}

func orderedBlocks(db *gorm.DB, sessionID uint) ([]models.Block, error) {
	var blocks []models.Block
	err := db.Where("session_id = ?", sessionID).
		Order("order_index ASC, id ASC").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("index_in_block ASC")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_num ASC")
		}).
		Find(&blocks).Error
	return blocks, err
}

// LockAndOrderBlocks freezes content at game start: host blocks keep their
// creation order and come first, participant blocks optionally get a
// Fisher-Yates shuffle, then every block receives a sequential order_index and
// is_locked. Questions left with empty text are dropped as drafts. Runs inside
// the START_GAME transaction; the committed ordering is immutable for the rest
// of the session.
func (s *ContentService) LockAndOrderBlocks(tx *gorm.DB, session *models.Session, shuffle bool) ([]models.Block, error) {
	blocks, err := orderedBlocks(tx, session.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Where(
		"block_id IN (SELECT id FROM blocks WHERE session_id = ?) AND TRIM(text) = ''",
		session.ID,
	).Delete(&models.Question{}).Error; err != nil {
		return nil, err
	}

	var hostBlocks, participantBlocks []models.Block
	for _, b := range blocks {
		if b.IsHostAuthored() {
			hostBlocks = append(hostBlocks, b)
		} else {
			participantBlocks = append(participantBlocks, b)
		}
	}

	if shuffle {
		rand.Shuffle(len(participantBlocks), func(i, j int) {
			participantBlocks[i], participantBlocks[j] = participantBlocks[j], participantBlocks[i]
		})
	}

	ordered := append(hostBlocks, participantBlocks...)
	for i := range ordered {
		ordered[i].OrderIndex = i
		ordered[i].IsLocked = true
		var kept []models.Question
		for _, q := range ordered[i].Questions {
			if strings.TrimSpace(q.Text) != "" {
				kept = append(kept, q)
			}
		}
		ordered[i].Questions = kept

		if err := tx.Model(&models.Block{}).Where("id = ?", ordered[i].ID).
			Updates(map[string]interface{}{
				"order_index": i,
				"is_locked":   true,
			}).Error; err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

// NonEmptyQuestionCounts returns the number of non-empty questions per
// participant author, plus the session-wide total including host blocks.
func (s *ContentService) NonEmptyQuestionCounts(sessionID uint) (map[uint]int, int, error) {
	blocks, err := s.OrderedBlocks(sessionID)
	if err != nil {
		return nil, 0, err
	}

	perParticipant := make(map[uint]int)
	total := 0
	for _, b := range blocks {
		count := 0
		for _, q := range b.Questions {
			if strings.TrimSpace(q.Text) != "" {
				count++
			}
		}
		total += count
		if b.AuthorParticipantID != nil {
			perParticipant[*b.AuthorParticipantID] += count
		}
	}
	return perParticipant, total, nil
}

func (s *ContentService) checkEditable(session *models.Session) error {
	if session.Status != models.SessionStatusCreation {
		return apperrors.Locked("session %d content is locked: status is %s", session.ID, session.Status)
	}
	return nil
}

func questionType(q QuestionInput) string {
	if q.Type == "" {
		if len(q.Options) > 0 {
			return models.QuestionTypeMCQ
		}
		return models.QuestionTypeOpen
	}
	return q.Type
}

// validateQuestions checks non-empty questions only: partial drafts with blank
// text are allowed until game start.
func validateQuestions(questions []QuestionInput) error {
	for i, q := range questions {
		if strings.TrimSpace(q.Text) == "" {
			continue
		}
		switch questionType(q) {
		case models.QuestionTypeMCQ:
			if len(q.Options) < 2 {
				return apperrors.Validation("question %d: choice questions need at least 2 options", i+1)
			}
			correct := 0
			for _, o := range q.Options {
				if strings.TrimSpace(o.Text) == "" {
					return apperrors.Validation("question %d: options must not be empty", i+1)
				}
				if o.IsCorrect {
					correct++
				}
			}
			if correct != 1 {
				return apperrors.Validation("question %d: exactly one option must be marked correct", i+1)
			}
		case models.QuestionTypeOpen:
			if strings.TrimSpace(q.CorrectText) == "" {
				return apperrors.Validation("question %d: open questions need a correct answer", i+1)
			}
		default:
			return apperrors.Validation("question %d: unknown question type %q", i+1, q.Type)
		}
	}
	return nil
}
