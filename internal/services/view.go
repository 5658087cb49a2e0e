package services

import (
	"time"

	"github.com/mihkeluutar/quiz-game/internal/models"
)

// SessionState is the consistent snapshot handed to pollers. What it contains
// depends on the viewer: hosts see everything, participants see their own
// content during CREATION and only public facts during play.
type SessionState struct {
	ID                   uint              `json:"id"`
	Code                 string            `json:"code"`
	Status               string            `json:"status"`
	Phase                string            `json:"phase,omitempty"`
	MinQuestions         int               `json:"min_questions"`
	SuggestedQuestions   int               `json:"suggested_questions"`
	MaxQuestions         int               `json:"max_questions"`
	EnableAuthorGuessing bool              `json:"enable_author_guessing"`
	Version              uint              `json:"version"`
	Participants         []ParticipantView `json:"participants"`
	Blocks               []BlockView       `json:"blocks,omitempty"`
	CurrentBlock         *BlockView        `json:"current_block,omitempty"`
	CurrentQuestion      *QuestionView     `json:"current_question,omitempty"`
	QuestionNumber       int               `json:"question_number,omitempty"`
	BlockSize            int               `json:"block_size,omitempty"`
	AnswerCount          int               `json:"answer_count,omitempty"`
	GuessCount           int               `json:"guess_count,omitempty"`
}

type ParticipantView struct {
	ID       uint      `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

type BlockView struct {
	ID                  uint           `json:"id"`
	Title               string         `json:"title"`
	AuthorType          string         `json:"author_type"`
	AuthorParticipantID *uint          `json:"author_participant_id,omitempty"`
	AuthorName          string         `json:"author_name,omitempty"`
	OrderIndex          int            `json:"order_index"`
	IsLocked            bool           `json:"is_locked"`
	QuestionCount       int            `json:"question_count"`
	Questions           []QuestionView `json:"questions,omitempty"`
}

type QuestionView struct {
	ID           uint         `json:"id"`
	IndexInBlock int          `json:"index_in_block"`
	Text         string       `json:"text"`
	Type         string       `json:"type"`
	ImageURL     string       `json:"image_url,omitempty"`
	Options      []OptionView `json:"options,omitempty"`
	CorrectText  string       `json:"correct_text,omitempty"`
}

type OptionView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

// StateForHost builds the unfiltered snapshot.
func (s *SessionService) StateForHost(sessionID, hostID uint) (*SessionState, error) {
	session, err := s.hostSession(sessionID, hostID)
	if err != nil {
		return nil, err
	}
	return s.buildState(session, nil, true)
}

// StateForParticipant builds the snapshot a participant is allowed to see.
func (s *SessionService) StateForParticipant(session *models.Session, participant *models.Participant) (*SessionState, error) {
	return s.buildState(session, participant, false)
}

func (s *SessionService) buildState(session *models.Session, viewer *models.Participant, isHost bool) (*SessionState, error) {
	state := &SessionState{
		ID:                   session.ID,
		Code:                 session.Code,
		Status:               session.Status,
		Phase:                session.Phase,
		MinQuestions:         session.MinQuestions,
		SuggestedQuestions:   session.SuggestedQuestions,
		MaxQuestions:         session.MaxQuestions,
		EnableAuthorGuessing: session.EnableAuthorGuessing,
		Version:              session.Version,
	}

	var participants []models.Participant
	if err := s.db.Where("session_id = ?", session.ID).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(participants))
	for _, p := range participants {
		names[p.ID] = p.Name
		state.Participants = append(state.Participants, ParticipantView{
			ID:       p.ID,
			Name:     p.Name,
			JoinedAt: p.JoinedAt,
		})
	}

	blocks, err := s.content.OrderedBlocks(session.ID)
	if err != nil {
		return nil, err
	}

	currentIdx := -1
	if session.CurrentBlockID != nil {
		for i := range blocks {
			if blocks[i].ID == *session.CurrentBlockID {
				currentIdx = i
			}
		}
	}

	for i := range blocks {
		block := &blocks[i]
		view := BlockView{
			ID:            block.ID,
			Title:         block.Title,
			AuthorType:    block.AuthorType,
			OrderIndex:    block.OrderIndex,
			IsLocked:      block.IsLocked,
			QuestionCount: len(block.Questions),
		}

		ownBlock := viewer != nil && block.AuthorParticipantID != nil && *block.AuthorParticipantID == viewer.ID
		if isHost || ownBlock || s.authorshipPublic(session, block, i, currentIdx) {
			view.AuthorParticipantID = block.AuthorParticipantID
			if block.AuthorParticipantID != nil {
				view.AuthorName = names[*block.AuthorParticipantID]
			}
		}

		if isHost || ownBlock {
			view.Questions = questionViews(block.Questions, true)
		}

		if session.Status == models.SessionStatusCreation && !isHost && !ownBlock {
			// During creation a participant sees nothing of other blocks.
			continue
		}
		state.Blocks = append(state.Blocks, view)

		if currentIdx == i {
			current := view
			current.Questions = nil
			state.CurrentBlock = &current
			s.fillCurrentQuestion(state, session, block, isHost)
		}
	}

	if session.InPlay() && session.Phase == models.PhaseAuthorGuess && session.CurrentBlockID != nil {
		var guessCount int64
		s.db.Model(&models.BlockGuess{}).
			Where("block_id = ?", *session.CurrentBlockID).
			Count(&guessCount)
		state.GuessCount = int(guessCount)
	}

	return state, nil
}

func (s *SessionService) fillCurrentQuestion(state *SessionState, session *models.Session, block *models.Block, isHost bool) {
	if session.CurrentQuestionID == nil {
		return
	}
	state.BlockSize = len(block.Questions)
	for i, q := range block.Questions {
		if q.ID != *session.CurrentQuestionID {
			continue
		}
		view := questionViews([]models.Question{q}, isHost)
		state.CurrentQuestion = &view[0]
		state.QuestionNumber = i + 1

		var answerCount int64
		s.db.Model(&models.Answer{}).
			Where("session_id = ? AND question_id = ?", session.ID, q.ID).
			Count(&answerCount)
		state.AnswerCount = int(answerCount)
		return
	}
}

// authorshipPublic reports whether a block's author may be shown to a
// non-author participant: after the game, or once the block's reveal has
// happened during play.
func (s *SessionService) authorshipPublic(session *models.Session, block *models.Block, idx, currentIdx int) bool {
	if block.IsHostAuthored() {
		return true
	}
	if session.Status == models.SessionStatusFinished {
		return true
	}
	if !session.InPlay() || !session.EnableAuthorGuessing {
		return false
	}
	if session.Phase == models.PhaseGrading {
		return true
	}
	if currentIdx < 0 {
		return false
	}
	if idx < currentIdx {
		return true
	}
	return idx == currentIdx && session.Phase == models.PhaseAuthorReveal
}

func questionViews(questions []models.Question, withAnswers bool) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		view := QuestionView{
			ID:           q.ID,
			IndexInBlock: q.IndexInBlock,
			Text:         q.Text,
			Type:         q.Type,
			ImageURL:     q.ImageURL,
		}
		if withAnswers {
			view.CorrectText = q.CorrectText
		}
		for _, o := range q.Options {
			opt := OptionView{ID: o.ID, Text: o.Text}
			if withAnswers {
				correct := o.IsCorrect
				opt.IsCorrect = &correct
			}
			view.Options = append(view.Options, opt)
		}
		views[i] = view
	}
	return views
}
