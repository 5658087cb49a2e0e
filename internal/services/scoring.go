package services

import (
	"sort"
	"strings"
	"time"

	"github.com/mihkeluutar/quiz-game/internal/apperrors"
	"github.com/mihkeluutar/quiz-game/internal/cache"
	"github.com/mihkeluutar/quiz-game/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScoringService determines per-answer and per-guess correctness and
// aggregates scores. Point weights come from configuration.
type ScoringService struct {
	db             *gorm.DB
	questionPoints int
	guessPoints    int
	scores         *cache.Scores
}

func NewScoringService(db *gorm.DB, questionPoints, guessPoints int, scores *cache.Scores) *ScoringService {
	return &ScoringService{
		db:             db,
		questionPoints: questionPoints,
		guessPoints:    guessPoints,
		scores:         scores,
	}
}

// RecordAnswer upserts the participant's answer to the current question,
// keyed by (question, participant). Choice answers get is_correct recomputed
// on every write; open answers keep an existing manual grade when the text is
// resubmitted — only the grading actions change it.
func (s *ScoringService) RecordAnswer(session *models.Session, participant *models.Participant, questionID uint, text string) (*models.Answer, error) {
	if !session.InPlay() || session.Phase != models.PhaseQuestion ||
		session.CurrentQuestionID == nil || *session.CurrentQuestionID != questionID {
		return nil, apperrors.Precondition("session %d is not accepting answers for question %d", session.ID, questionID)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("answer text must not be empty")
	}

	var question models.Question
	if err := s.db.Preload("Options").First(&question, questionID).Error; err != nil {
		return nil, apperrors.NotFound("question %d not found", questionID)
	}

	answer := models.Answer{
		SessionID:     session.ID,
		QuestionID:    questionID,
		ParticipantID: participant.ID,
		Text:          text,
		AnsweredAt:    time.Now(),
	}

	updated := []string{"text", "answered_at"}
	if question.Type == models.QuestionTypeMCQ {
		matched := false
		correct := false
		for _, o := range question.Options {
			if o.Text == text {
				matched = true
				correct = o.IsCorrect
				break
			}
		}
		if !matched {
			return nil, apperrors.Validation("answer %q is not an option of question %d", text, questionID)
		}
		answer.IsCorrect = &correct
		updated = append(updated, "is_correct")
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "question_id"}, {Name: "participant_id"}},
		DoUpdates: clause.AssignmentColumns(updated),
	}).Create(&answer).Error
	if err != nil {
		return nil, err
	}

	s.scores.Invalidate(session.ID)
	return s.getAnswer(questionID, participant.ID)
}

// GradeAnswer is the host's manual is_correct override for a single open
// answer. Choice answers are graded automatically and never touched here.
func (s *ScoringService) GradeAnswer(session *models.Session, questionID, participantID uint, correct bool) (*models.Answer, error) {
	if !session.InPlay() {
		return nil, apperrors.Precondition("session %d is not in play", session.ID)
	}

	tx := s.db.Begin()
	if err := s.ApplyGrades(tx, session.ID, []GradeEntry{{
		QuestionID:    questionID,
		ParticipantID: participantID,
		Correct:       correct,
	}}); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	s.scores.Invalidate(session.ID)
	return s.getAnswer(questionID, participantID)
}

// RecordGuess upserts the guesser's authorship guess for the current block,
// keyed by (block, guesser). Correctness is computed against the block's true
// author at submission; guessing one's own block is rejected.
func (s *ScoringService) RecordGuess(session *models.Session, guesser *models.Participant, blockID, guessedParticipantID uint) (*models.BlockGuess, error) {
	if !session.InPlay() || session.Phase != models.PhaseAuthorGuess ||
		session.CurrentBlockID == nil || *session.CurrentBlockID != blockID {
		return nil, apperrors.Precondition("session %d is not accepting guesses for block %d", session.ID, blockID)
	}

	var block models.Block
	if err := s.db.Where("id = ? AND session_id = ?", blockID, session.ID).First(&block).Error; err != nil {
		return nil, apperrors.NotFound("block %d not found in session %d", blockID, session.ID)
	}
	if block.AuthorParticipantID != nil && *block.AuthorParticipantID == guesser.ID {
		return nil, apperrors.Validation("participants cannot guess the author of their own block")
	}

	var guessed models.Participant
	if err := s.db.Where("id = ? AND session_id = ?", guessedParticipantID, session.ID).
		First(&guessed).Error; err != nil {
		return nil, apperrors.NotFound("participant %d not found in session %d", guessedParticipantID, session.ID)
	}

	guess := models.BlockGuess{
		SessionID:            session.ID,
		BlockID:              blockID,
		GuesserID:            guesser.ID,
		GuessedParticipantID: guessedParticipantID,
		IsCorrect:            block.AuthorParticipantID != nil && *block.AuthorParticipantID == guessedParticipantID,
		GuessedAt:            time.Now(),
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "block_id"}, {Name: "guesser_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"guessed_participant_id", "is_correct", "guessed_at"}),
	}).Create(&guess).Error
	if err != nil {
		return nil, err
	}

	s.scores.Invalidate(session.ID)

	var saved models.BlockGuess
	if err := s.db.Where("block_id = ? AND guesser_id = ?", blockID, guesser.ID).
		First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

type ScoreBreakdown struct {
	Position       int    `json:"position"`
	ParticipantID  uint   `json:"participant_id"`
	Name           string `json:"name"`
	QuestionPoints int    `json:"question_points"`
	GuessPoints    int    `json:"guess_points"`
	Total          int    `json:"total"`
}

// ComputeScores aggregates correct answers and correct guesses per
// participant, weighted by configuration. Sorted descending by total; ties
// keep join order.
func (s *ScoringService) ComputeScores(sessionID uint) ([]ScoreBreakdown, error) {
	var cached []ScoreBreakdown
	if s.scores.Get(sessionID, &cached) {
		return cached, nil
	}

	var participants []models.Participant
	if err := s.db.Where("session_id = ?", sessionID).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}

	answerCounts, err := s.correctCounts(&models.Answer{}, "participant_id", sessionID)
	if err != nil {
		return nil, err
	}
	guessCounts, err := s.correctCounts(&models.BlockGuess{}, "guesser_id", sessionID)
	if err != nil {
		return nil, err
	}

	entries := make([]ScoreBreakdown, len(participants))
	for i, p := range participants {
		qp := answerCounts[p.ID] * s.questionPoints
		gp := guessCounts[p.ID] * s.guessPoints
		entries[i] = ScoreBreakdown{
			ParticipantID:  p.ID,
			Name:           p.Name,
			QuestionPoints: qp,
			GuessPoints:    gp,
			Total:          qp + gp,
		}
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Total > entries[b].Total
	})
	for i := range entries {
		entries[i].Position = i + 1
	}

	// Cache write is best-effort; the computed result is returned either way.
	_ = s.scores.Set(sessionID, entries)
	return entries, nil
}

func (s *ScoringService) correctCounts(model interface{}, keyColumn string, sessionID uint) (map[uint]int, error) {
	var rows []struct {
		Key uint
		N   int
	}
	err := s.db.Model(model).
		Select(keyColumn+" AS key, COUNT(*) AS n").
		Where("session_id = ? AND is_correct = ?", sessionID, true).
		Group(keyColumn).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.N
	}
	return counts, nil
}

type BlockAccuracy struct {
	BlockID  uint    `json:"block_id"`
	Title    string  `json:"title"`
	Correct  int     `json:"correct"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"accuracy"`
}

// BlockAccuracies reports correct/total answer ratios per block in play
// order, used to surface the hardest and easiest rounds.
func (s *ScoringService) BlockAccuracies(sessionID uint) ([]BlockAccuracy, error) {
	var blocks []models.Block
	if err := s.db.Where("session_id = ?", sessionID).
		Order("order_index ASC, id ASC").
		Find(&blocks).Error; err != nil {
		return nil, err
	}

	totals, err := s.blockAnswerCounts(sessionID, false)
	if err != nil {
		return nil, err
	}
	corrects, err := s.blockAnswerCounts(sessionID, true)
	if err != nil {
		return nil, err
	}

	result := make([]BlockAccuracy, len(blocks))
	for i, b := range blocks {
		entry := BlockAccuracy{
			BlockID: b.ID,
			Title:   b.Title,
			Correct: corrects[b.ID],
			Total:   totals[b.ID],
		}
		if entry.Total > 0 {
			entry.Accuracy = float64(entry.Correct) / float64(entry.Total)
		}
		result[i] = entry
	}
	return result, nil
}

func (s *ScoringService) blockAnswerCounts(sessionID uint, correctOnly bool) (map[uint]int, error) {
	var rows []struct {
		Key uint
		N   int
	}
	q := s.db.Table("answers").
		Select("questions.block_id AS key, COUNT(*) AS n").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.session_id = ?", sessionID)
	if correctOnly {
		q = q.Where("answers.is_correct = ?", true)
	}
	if err := q.Group("questions.block_id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.Key] = r.N
	}
	return counts, nil
}

type GradingItem struct {
	QuestionID    uint   `json:"question_id"`
	ParticipantID uint   `json:"participant_id"`
	Text          string `json:"text"`
}

type GradingGroup struct {
	QuestionID  uint          `json:"question_id"`
	Text        string        `json:"text"`
	CorrectText string        `json:"correct_text"`
	Items       []GradingItem `json:"items"`
}

// ListUngradedOpenAnswers returns open answers awaiting a grade, grouped by
// question. Participant identity is carried only as the opaque grading key so
// the grader reviews answers blind.
func (s *ScoringService) ListUngradedOpenAnswers(sessionID uint) ([]GradingGroup, error) {
	var rows []struct {
		QuestionID    uint
		ParticipantID uint
		AnswerText    string
		QuestionText  string
		CorrectText   string
	}
	err := s.db.Table("answers").
		Select("answers.question_id, answers.participant_id, answers.text AS answer_text, questions.text AS question_text, questions.correct_text").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.session_id = ? AND questions.type = ? AND answers.is_correct IS NULL",
			sessionID, models.QuestionTypeOpen).
		Order("questions.block_id ASC, questions.index_in_block ASC, answers.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var groups []GradingGroup
	index := make(map[uint]int)
	for _, r := range rows {
		i, ok := index[r.QuestionID]
		if !ok {
			i = len(groups)
			index[r.QuestionID] = i
			groups = append(groups, GradingGroup{
				QuestionID:  r.QuestionID,
				Text:        r.QuestionText,
				CorrectText: r.CorrectText,
			})
		}
		groups[i].Items = append(groups[i].Items, GradingItem{
			QuestionID:    r.QuestionID,
			ParticipantID: r.ParticipantID,
			Text:          r.AnswerText,
		})
	}
	return groups, nil
}

type GradeEntry struct {
	QuestionID    uint `json:"question_id" binding:"required"`
	ParticipantID uint `json:"participant_id" binding:"required"`
	Correct       bool `json:"correct"`
}

// SubmitGradingBatch commits a batch of grades atomically: either every entry
// lands or none do.
func (s *ScoringService) SubmitGradingBatch(session *models.Session, entries []GradeEntry) error {
	if !session.InPlay() {
		return apperrors.Precondition("session %d is not in play", session.ID)
	}

	tx := s.db.Begin()
	if err := s.ApplyGrades(tx, session.ID, entries); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return err
	}

	s.scores.Invalidate(session.ID)
	return nil
}

// ApplyGrades writes grades within the caller's transaction. Used by the
// batch endpoint and by the FINISH transition.
func (s *ScoringService) ApplyGrades(tx *gorm.DB, sessionID uint, entries []GradeEntry) error {
	now := time.Now()
	for _, e := range entries {
		var question models.Question
		if err := tx.First(&question, e.QuestionID).Error; err != nil {
			return apperrors.NotFound("question %d not found", e.QuestionID)
		}
		if question.Type != models.QuestionTypeOpen {
			return apperrors.Validation("question %d is not an open question; choice answers are graded automatically", e.QuestionID)
		}

		res := tx.Model(&models.Answer{}).
			Where("session_id = ? AND question_id = ? AND participant_id = ?",
				sessionID, e.QuestionID, e.ParticipantID).
			Updates(map[string]interface{}{"is_correct": e.Correct, "graded_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("no answer to question %d by participant %d", e.QuestionID, e.ParticipantID)
		}
	}
	return nil
}

func (s *ScoringService) getAnswer(questionID, participantID uint) (*models.Answer, error) {
	var answer models.Answer
	if err := s.db.Where("question_id = ? AND participant_id = ?", questionID, participantID).
		First(&answer).Error; err != nil {
		return nil, apperrors.NotFound("answer to question %d by participant %d not found", questionID, participantID)
	}
	return &answer, nil
}
