package handlers

import (
	"net/http"

	"github.com/mihkeluutar/quiz-game/internal/models"
	"github.com/mihkeluutar/quiz-game/internal/services"
	"github.com/mihkeluutar/quiz-game/internal/ws"

	"github.com/gin-gonic/gin"
)

// PlayHandler carries the participant-facing surface. Participants identify
// themselves with the session code plus their device token; a lost token with
// a known display name resolves back to the same participant.
type PlayHandler struct {
	sessionService  *services.SessionService
	identityService *services.IdentityService
	contentService  *services.ContentService
	scoringService  *services.ScoringService
	hub             *ws.Hub
}

func NewPlayHandler(sessionService *services.SessionService, identityService *services.IdentityService, contentService *services.ContentService, scoringService *services.ScoringService, hub *ws.Hub) *PlayHandler {
	return &PlayHandler{
		sessionService:  sessionService,
		identityService: identityService,
		contentService:  contentService,
		scoringService:  scoringService,
		hub:             hub,
	}
}

type PlayJoinRequest struct {
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name" binding:"required,min=1,max=100"`
	Token string `json:"token" binding:"required"`
}

// Join godoc
// @Summary      Join or rejoin a session
// @Description  Resolves (token, name) into a participant: token match rejoins, name match reattaches the new token, otherwise a participant is created.
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayJoinRequest true "Join data"
// @Success      200 {object} services.SessionState
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/play/join [post]
func (h *PlayHandler) Join(c *gin.Context) {
	var req PlayJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.GetSessionByCode(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	participant, isRejoin, err := h.identityService.ResolveOrCreateParticipant(session, req.Token, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	if !isRejoin {
		h.hub.Broadcast(session.ID, ws.WSMessage{
			Type: "participant_joined",
			Data: gin.H{"id": participant.ID, "name": participant.Name},
		})
	}

	state, err := h.sessionService.StateForParticipant(session, participant)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"participant": gin.H{"id": participant.ID, "name": participant.Name},
		"is_rejoin":   isRejoin,
		"state":       state,
	})
}

// GetState godoc
// @Summary      Participant view of session state
// @Tags         play
// @Produce      json
// @Param        code query string true "Session code"
// @Param        token query string true "Device token"
// @Success      200 {object} services.SessionState
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/play/state [get]
func (h *PlayHandler) GetState(c *gin.Context) {
	session, participant, ok := h.resolve(c)
	if !ok {
		return
	}

	state, err := h.sessionService.StateForParticipant(session, participant)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type PlayBlockRequest struct {
	Code      string                   `json:"code" binding:"required"`
	Token     string                   `json:"token" binding:"required"`
	Title     string                   `json:"title" binding:"max=255"`
	Questions []services.QuestionInput `json:"questions"`
}

// SaveBlock godoc
// @Summary      Create or replace the participant's block
// @Description  Full replacement: submitted question order becomes the stored order. Rejected once the session has left CREATION.
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayBlockRequest true "Block content"
// @Success      200 {object} models.Block
// @Failure      423 {object} ErrorResponse
// @Router       /api/v1/play/block [post]
func (h *PlayHandler) SaveBlock(c *gin.Context) {
	var req PlayBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.GetSessionByCode(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	participant, err := h.identityService.GetByToken(session.ID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	block, err := h.contentService.SaveParticipantBlock(session, participant, req.Title, req.Questions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

type PlayAnswerRequest struct {
	Code       string `json:"code" binding:"required"`
	Token      string `json:"token" binding:"required"`
	QuestionID uint   `json:"question_id" binding:"required"`
	Text       string `json:"text" binding:"required"`
}

// SubmitAnswer godoc
// @Summary      Answer the current question
// @Description  Resubmission replaces the previous answer. Choice answers are auto-graded on every write; a manual grade on an open answer survives a text edit.
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayAnswerRequest true "Answer"
// @Success      200 {object} MessageResponse
// @Failure      422 {object} ErrorResponse
// @Router       /api/v1/play/answer [post]
func (h *PlayHandler) SubmitAnswer(c *gin.Context) {
	var req PlayAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.GetSessionByCode(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	participant, err := h.identityService.GetByToken(session.ID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.scoringService.RecordAnswer(session, participant, req.QuestionID, req.Text); err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.WSMessage{
		Type: "answer_received",
		Data: gin.H{"question_id": req.QuestionID},
	})
	c.JSON(http.StatusOK, MessageResponse{Message: "answer accepted"})
}

type PlayGuessRequest struct {
	Code                 string `json:"code" binding:"required"`
	Token                string `json:"token" binding:"required"`
	BlockID              uint   `json:"block_id" binding:"required"`
	GuessedParticipantID uint   `json:"guessed_participant_id" binding:"required"`
}

// SubmitGuess godoc
// @Summary      Guess the author of the current block
// @Tags         play
// @Accept       json
// @Produce      json
// @Param        request body PlayGuessRequest true "Guess"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/play/guess [post]
func (h *PlayHandler) SubmitGuess(c *gin.Context) {
	var req PlayGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.GetSessionByCode(req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	participant, err := h.identityService.GetByToken(session.ID, req.Token)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.scoringService.RecordGuess(session, participant, req.BlockID, req.GuessedParticipantID); err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.WSMessage{
		Type: "guess_received",
		Data: gin.H{"block_id": req.BlockID},
	})
	c.JSON(http.StatusOK, MessageResponse{Message: "guess accepted"})
}

// GetScores godoc
// @Summary      Leaderboard for participants
// @Tags         play
// @Produce      json
// @Param        code query string true "Session code"
// @Param        token query string true "Device token"
// @Success      200 {array} services.ScoreBreakdown
// @Router       /api/v1/play/scores [get]
func (h *PlayHandler) GetScores(c *gin.Context) {
	session, _, ok := h.resolve(c)
	if !ok {
		return
	}

	scores, err := h.scoringService.ComputeScores(session.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

func (h *PlayHandler) resolve(c *gin.Context) (*models.Session, *models.Participant, bool) {
	code := c.Query("code")
	token := c.Query("token")
	if code == "" || token == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "code and token required"})
		return nil, nil, false
	}

	session, err := h.sessionService.GetSessionByCode(code)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	participant, err := h.identityService.GetByToken(session.ID, token)
	if err != nil {
		respondError(c, err)
		return nil, nil, false
	}
	return session, participant, true
}
