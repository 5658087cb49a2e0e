package services

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/mihkeluutar/quiz-game/internal/apperrors"
	"github.com/mihkeluutar/quiz-game/internal/cache"
	"github.com/mihkeluutar/quiz-game/internal/models"

	"gorm.io/gorm"
)

// SessionService is the session phase controller: the only writer of the
// Session row. Every transition is all-or-nothing, committed with a
// compare-and-swap on the session version so concurrent host actions
// serialize; the loser of a race gets a ConflictError.
type SessionService struct {
	db       *gorm.DB
	content  *ContentService
	scoring  *ScoringService
	scores   *cache.Scores
	defaults SessionConfig
}

func NewSessionService(db *gorm.DB, content *ContentService, scoring *ScoringService, scores *cache.Scores, defaults SessionConfig) *SessionService {
	return &SessionService{db: db, content: content, scoring: scoring, scores: scores, defaults: defaults}
}

type SessionConfig struct {
	MinQuestions         int
	SuggestedQuestions   int
	MaxQuestions         int
	EnableAuthorGuessing bool
}

// DefaultConfig returns the configured content limits for new sessions.
func (s *SessionService) DefaultConfig() SessionConfig {
	return s.defaults
}

func (s *SessionService) CreateSession(hostID uint, cfg SessionConfig) (*models.Session, error) {
	if cfg.MinQuestions < 0 || cfg.MaxQuestions < 1 ||
		cfg.MinQuestions > cfg.SuggestedQuestions || cfg.SuggestedQuestions > cfg.MaxQuestions {
		return nil, apperrors.Validation("content limits must satisfy 0 <= min <= suggested <= max")
	}

	// A host runs one session at a time; starting a new one archives the rest.
	// The version bump makes any in-flight transition on an archived session
	// lose its compare-and-swap instead of silently resurrecting it.
	res := s.db.Model(&models.Session{}).
		Where("host_id = ? AND status != ?", hostID, models.SessionStatusFinished).
		Updates(map[string]interface{}{
			"status":  models.SessionStatusFinished,
			"phase":   "",
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	code, err := s.generateUniqueCode()
	if err != nil {
		return nil, err
	}
	session := models.Session{
		HostID:               hostID,
		Code:                 code,
		Status:               models.SessionStatusCreation,
		MinQuestions:         cfg.MinQuestions,
		SuggestedQuestions:   cfg.SuggestedQuestions,
		MaxQuestions:         cfg.MaxQuestions,
		EnableAuthorGuessing: cfg.EnableAuthorGuessing,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionService) GetSession(sessionID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		return nil, apperrors.NotFound("session %d not found", sessionID)
	}
	return &session, nil
}

func (s *SessionService) GetSessionByCode(code string) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("code = ? AND status != ?", code, models.SessionStatusFinished).
		Order("created_at DESC").
		First(&session).Error; err == nil {
		return &session, nil
	}
	// Finished sessions stay reachable so players can see final scores.
	if err := s.db.Where("code = ?", code).Order("created_at DESC").
		First(&session).Error; err != nil {
		return nil, apperrors.NotFound("no session with code %s", code)
	}
	return &session, nil
}

func (s *SessionService) hostSession(sessionID, hostID uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.Where("id = ? AND host_id = ?", sessionID, hostID).
		First(&session).Error; err != nil {
		return nil, apperrors.NotFound("session %d not found", sessionID)
	}
	return &session, nil
}

type SessionSummary struct {
	ID               uint   `json:"id"`
	Code             string `json:"code"`
	Status           string `json:"status"`
	Phase            string `json:"phase,omitempty"`
	ParticipantCount int    `json:"participant_count"`
	BlockCount       int    `json:"block_count"`
}

func (s *SessionService) ListSessions(hostID uint) ([]SessionSummary, error) {
	var sessions []models.Session
	if err := s.db.Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}

	result := make([]SessionSummary, len(sessions))
	for i, sess := range sessions {
		var participantCount, blockCount int64
		s.db.Model(&models.Participant{}).Where("session_id = ?", sess.ID).Count(&participantCount)
		s.db.Model(&models.Block{}).Where("session_id = ?", sess.ID).Count(&blockCount)
		result[i] = SessionSummary{
			ID:               sess.ID,
			Code:             sess.Code,
			Status:           sess.Status,
			Phase:            sess.Phase,
			ParticipantCount: int(participantCount),
			BlockCount:       int(blockCount),
		}
	}
	return result, nil
}

// Action is the closed set of host actions. Payload fields are statically
// typed per action and validated before they reach the state machine.
type ActionName string

const (
	ActionStartGame ActionName = "START_GAME"
	ActionAdvance   ActionName = "ADVANCE"
	ActionReveal    ActionName = "REVEAL"
	ActionBack      ActionName = "BACK"
	ActionFinish    ActionName = "FINISH"
	ActionRestart   ActionName = "RESTART"
)

type Action struct {
	Name    ActionName   `json:"name"`
	Shuffle bool         `json:"shuffle,omitempty"` // START_GAME only
	Grades  []GradeEntry `json:"grades,omitempty"`  // FINISH only
}

func (a Action) validate() error {
	switch a.Name {
	case ActionStartGame, ActionAdvance, ActionReveal, ActionBack, ActionFinish, ActionRestart:
		return nil
	default:
		return apperrors.Validation("unknown action %q", string(a.Name))
	}
}

// PerformAction runs one host action against the session state machine. A
// transition that loses the version race is retried exactly once with freshly
// read state; a second loss surfaces the ConflictError.
func (s *SessionService) PerformAction(sessionID, hostID uint, action Action) (*models.Session, error) {
	if err := action.validate(); err != nil {
		return nil, err
	}

	session, err := s.hostSession(sessionID, hostID)
	if err != nil {
		return nil, err
	}

	err = s.applyAction(session, action)
	if apperrors.IsConflict(err) {
		if session, err = s.hostSession(sessionID, hostID); err == nil {
			err = s.applyAction(session, action)
		}
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) applyAction(session *models.Session, action Action) error {
	switch action.Name {
	case ActionStartGame:
		return s.startGame(session, action.Shuffle)
	case ActionAdvance:
		return s.advance(session)
	case ActionReveal:
		return s.reveal(session)
	case ActionBack:
		return s.back(session)
	case ActionFinish:
		return s.finish(session, action.Grades)
	case ActionRestart:
		return s.restart(session)
	}
	return apperrors.Validation("unknown action %q", string(action.Name))
}

// transition runs sideEffects and the session-row compare-and-swap in one
// transaction, so a transition either commits completely or not at all.
func (s *SessionService) transition(session *models.Session, sideEffects func(tx *gorm.DB) error) error {
	oldVersion := session.Version
	tx := s.db.Begin()

	if sideEffects != nil {
		if err := sideEffects(tx); err != nil {
			tx.Rollback()
			return err
		}
	}

	res := tx.Model(&models.Session{}).
		Where("id = ? AND version = ?", session.ID, oldVersion).
		Updates(map[string]interface{}{
			"status":              session.Status,
			"phase":               session.Phase,
			"current_block_id":    session.CurrentBlockID,
			"current_question_id": session.CurrentQuestionID,
			"version":             oldVersion + 1,
		})
	if res.Error != nil {
		tx.Rollback()
		return res.Error
	}
	if res.RowsAffected == 0 {
		tx.Rollback()
		return apperrors.Conflict("session %d was modified concurrently", session.ID)
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}
	session.Version = oldVersion + 1
	return nil
}

func (s *SessionService) startGame(session *models.Session, shuffle bool) error {
	if session.Status != models.SessionStatusCreation {
		return apperrors.Precondition("cannot start session %d: status is %s", session.ID, session.Status)
	}

	var participants []models.Participant
	if err := s.db.Where("session_id = ?", session.ID).Find(&participants).Error; err != nil {
		return err
	}
	if len(participants) == 0 {
		return apperrors.Precondition("cannot start session %d: no participants", session.ID)
	}

	perParticipant, total, err := s.content.NonEmptyQuestionCounts(session.ID)
	if err != nil {
		return err
	}
	if total == 0 {
		return apperrors.Precondition("cannot start session %d: no questions", session.ID)
	}
	for _, p := range participants {
		n := perParticipant[p.ID]
		if n < session.MinQuestions || n > session.MaxQuestions {
			return apperrors.Precondition("cannot start: %s has %d questions, needs between %d and %d",
				p.Name, n, session.MinQuestions, session.MaxQuestions)
		}
	}

	return s.transition(session, func(tx *gorm.DB) error {
		blocks, err := s.content.LockAndOrderBlocks(tx, session, shuffle)
		if err != nil {
			return err
		}
		session.Status = models.SessionStatusPlay
		enterBlockFrom(session, blocks, 0)
		return nil
	})
}

func (s *SessionService) advance(session *models.Session) error {
	if !session.InPlay() {
		return apperrors.Precondition("session %d has no game in progress", session.ID)
	}

	blocks, err := s.content.OrderedBlocks(session.ID)
	if err != nil {
		return err
	}

	switch session.Phase {
	case models.PhaseQuestion:
		idx, qi, err := currentPosition(session, blocks)
		if err != nil {
			return err
		}
		block := blocks[idx]
		if qi+1 < len(block.Questions) {
			next := block.Questions[qi+1].ID
			session.CurrentQuestionID = &next
			return s.transition(session, nil)
		}
		// end of block
		if guessEligible(session, &block) {
			session.Phase = models.PhaseAuthorGuess
			session.CurrentQuestionID = nil
			return s.transition(session, nil)
		}
		enterBlockFrom(session, blocks, idx+1)
		return s.transition(session, nil)

	case models.PhaseAuthorReveal:
		idx, err := currentBlockIndex(session, blocks)
		if err != nil {
			return err
		}
		enterBlockFrom(session, blocks, idx+1)
		return s.transition(session, nil)

	case models.PhaseAuthorGuess:
		return apperrors.Precondition("session %d: reveal the author before advancing", session.ID)

	case models.PhaseGrading:
		return apperrors.Precondition("session %d: submit grades with FINISH to leave grading", session.ID)
	}
	return apperrors.Precondition("session %d is in unknown phase %q", session.ID, session.Phase)
}

func (s *SessionService) reveal(session *models.Session) error {
	if !session.InPlay() || session.Phase != models.PhaseAuthorGuess {
		return apperrors.Precondition("session %d: no author guess to reveal", session.ID)
	}
	session.Phase = models.PhaseAuthorReveal
	return s.transition(session, nil)
}

// back is host-only backwards navigation. It moves the phase and position
// pointers; answers and guesses are never touched. Stepping back off the
// first block is a no-op.
func (s *SessionService) back(session *models.Session) error {
	if !session.InPlay() {
		return apperrors.Precondition("session %d has no game in progress", session.ID)
	}

	blocks, err := s.content.OrderedBlocks(session.ID)
	if err != nil {
		return err
	}

	switch session.Phase {
	case models.PhaseAuthorReveal:
		session.Phase = models.PhaseAuthorGuess
		return s.transition(session, nil)

	case models.PhaseAuthorGuess:
		idx, err := currentBlockIndex(session, blocks)
		if err != nil {
			return err
		}
		if n := len(blocks[idx].Questions); n > 0 {
			last := blocks[idx].Questions[n-1].ID
			session.Phase = models.PhaseQuestion
			session.CurrentQuestionID = &last
			return s.transition(session, nil)
		}
		if !backIntoPrevious(session, blocks, idx) {
			return nil
		}
		return s.transition(session, nil)

	case models.PhaseQuestion:
		idx, qi, err := currentPosition(session, blocks)
		if err != nil {
			return err
		}
		if qi > 0 {
			prev := blocks[idx].Questions[qi-1].ID
			session.CurrentQuestionID = &prev
			return s.transition(session, nil)
		}
		if !backIntoPrevious(session, blocks, idx) {
			return nil
		}
		return s.transition(session, nil)

	case models.PhaseGrading:
		return apperrors.Precondition("session %d: cannot navigate back from grading", session.ID)
	}
	return apperrors.Precondition("session %d is in unknown phase %q", session.ID, session.Phase)
}

func (s *SessionService) finish(session *models.Session, grades []GradeEntry) error {
	if !session.InPlay() || session.Phase != models.PhaseGrading {
		return apperrors.Precondition("session %d: grading is not pending", session.ID)
	}

	err := s.transition(session, func(tx *gorm.DB) error {
		if err := s.scoring.ApplyGrades(tx, session.ID, grades); err != nil {
			return err
		}
		session.Status = models.SessionStatusFinished
		session.Phase = ""
		session.CurrentBlockID = nil
		session.CurrentQuestionID = nil
		return nil
	})
	if err != nil {
		return err
	}

	s.scores.Invalidate(session.ID)
	return nil
}

// restart re-enters CREATION with the same participants, blocks, and
// questions; answers and guesses are cleared. Block lock flags stay as they
// are until the next START_GAME recomputes the ordering.
func (s *SessionService) restart(session *models.Session) error {
	if session.Status != models.SessionStatusFinished {
		return apperrors.Precondition("session %d: only a finished session can restart", session.ID)
	}

	err := s.transition(session, func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", session.ID).Delete(&models.BlockGuess{}).Error; err != nil {
			return err
		}
		session.Status = models.SessionStatusCreation
		session.Phase = ""
		session.CurrentBlockID = nil
		session.CurrentQuestionID = nil
		return nil
	})
	if err != nil {
		return err
	}

	s.scores.Invalidate(session.ID)
	return nil
}

func guessEligible(session *models.Session, block *models.Block) bool {
	return !block.IsHostAuthored() && session.EnableAuthorGuessing
}

// enterBlockFrom points the session at the first playable position at or
// after blocks[idx]: the block's first question, or its guess phase when it
// has no questions, skipping blocks with neither. Past the last block the
// session lands in GRADING, pending host confirmation via FINISH.
func enterBlockFrom(session *models.Session, blocks []models.Block, idx int) {
	for ; idx < len(blocks); idx++ {
		if len(blocks[idx].Questions) > 0 {
			first := blocks[idx].Questions[0].ID
			session.Phase = models.PhaseQuestion
			session.CurrentBlockID = &blocks[idx].ID
			session.CurrentQuestionID = &first
			return
		}
		if guessEligible(session, &blocks[idx]) {
			session.Phase = models.PhaseAuthorGuess
			session.CurrentBlockID = &blocks[idx].ID
			session.CurrentQuestionID = nil
			return
		}
	}
	session.Phase = models.PhaseGrading
	session.CurrentBlockID = nil
	session.CurrentQuestionID = nil
}

// backIntoPrevious lands on the nearest earlier block position: its reveal
// when the block had one, otherwise its last question. Returns false when no
// earlier position exists.
func backIntoPrevious(session *models.Session, blocks []models.Block, idx int) bool {
	for i := idx - 1; i >= 0; i-- {
		if guessEligible(session, &blocks[i]) {
			session.Phase = models.PhaseAuthorReveal
			session.CurrentBlockID = &blocks[i].ID
			session.CurrentQuestionID = nil
			return true
		}
		if n := len(blocks[i].Questions); n > 0 {
			last := blocks[i].Questions[n-1].ID
			session.Phase = models.PhaseQuestion
			session.CurrentBlockID = &blocks[i].ID
			session.CurrentQuestionID = &last
			return true
		}
	}
	return false
}

func currentBlockIndex(session *models.Session, blocks []models.Block) (int, error) {
	if session.CurrentBlockID == nil {
		return 0, apperrors.NotFound("session %d has no current block", session.ID)
	}
	for i := range blocks {
		if blocks[i].ID == *session.CurrentBlockID {
			return i, nil
		}
	}
	return 0, apperrors.NotFound("session %d: current block %d not found", session.ID, *session.CurrentBlockID)
}

func currentPosition(session *models.Session, blocks []models.Block) (blockIdx, questionIdx int, err error) {
	blockIdx, err = currentBlockIndex(session, blocks)
	if err != nil {
		return 0, 0, err
	}
	if session.CurrentQuestionID == nil {
		return 0, 0, apperrors.NotFound("session %d has no current question", session.ID)
	}
	for i, q := range blocks[blockIdx].Questions {
		if q.ID == *session.CurrentQuestionID {
			return blockIdx, i, nil
		}
	}
	return 0, 0, apperrors.NotFound("session %d: current question %d not found", session.ID, *session.CurrentQuestionID)
}

func (s *SessionService) generateUniqueCode() (string, error) {
	for attempts := 0; attempts < 100; attempts++ {
		code := fmt.Sprintf("%06d", rand.Intn(1000000))
		var count int64
		if err := s.db.Model(&models.Session{}).
			Where("code = ? AND status != ?", code, models.SessionStatusFinished).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique join code")
}
