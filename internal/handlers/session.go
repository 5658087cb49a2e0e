package handlers

import (
	"net/http"
	"strconv"

	"github.com/mihkeluutar/quiz-game/internal/services"
	"github.com/mihkeluutar/quiz-game/internal/ws"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService *services.SessionService
	contentService *services.ContentService
	scoringService *services.ScoringService
	hub            *ws.Hub
}

func NewSessionHandler(sessionService *services.SessionService, contentService *services.ContentService, scoringService *services.ScoringService, hub *ws.Hub) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		contentService: contentService,
		scoringService: scoringService,
		hub:            hub,
	}
}

type CreateSessionRequest struct {
	MinQuestions         *int  `json:"min_questions"`
	SuggestedQuestions   *int  `json:"suggested_questions"`
	MaxQuestions         *int  `json:"max_questions"`
	EnableAuthorGuessing *bool `json:"enable_author_guessing"`
}

// CreateSession godoc
// @Summary      Create a session
// @Description  Creates a session in CREATION with a fresh join code; any unfinished session of the host is archived.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSessionRequest true "Content limits"
// @Success      201 {object} services.SessionState
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	hostID := c.GetUint("host_id")

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	cfg := h.sessionService.DefaultConfig()
	if req.MinQuestions != nil {
		cfg.MinQuestions = *req.MinQuestions
	}
	if req.SuggestedQuestions != nil {
		cfg.SuggestedQuestions = *req.SuggestedQuestions
	}
	if req.MaxQuestions != nil {
		cfg.MaxQuestions = *req.MaxQuestions
	}
	if req.EnableAuthorGuessing != nil {
		cfg.EnableAuthorGuessing = *req.EnableAuthorGuessing
	}

	session, err := h.sessionService.CreateSession(hostID, cfg)
	if err != nil {
		respondError(c, err)
		return
	}

	state, err := h.sessionService.StateForHost(session.ID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, state)
}

// ListSessions godoc
// @Summary      List the host's sessions
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} services.SessionSummary
// @Router       /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	hostID := c.GetUint("host_id")

	sessions, err := h.sessionService.ListSessions(hostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary      Host view of session state
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} services.SessionState
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	state, err := h.sessionService.StateForHost(sessionID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type ActionRequest struct {
	Name    string                `json:"name" binding:"required"`
	Shuffle bool                  `json:"shuffle"`
	Grades  []services.GradeEntry `json:"grades"`
}

// PerformAction godoc
// @Summary      Run a host action against the session state machine
// @Description  Name is one of START_GAME, ADVANCE, REVEAL, BACK, FINISH, RESTART. Shuffle applies to START_GAME, grades to FINISH.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body ActionRequest true "Action"
// @Success      200 {object} services.SessionState
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/action [post]
func (h *SessionHandler) PerformAction(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.PerformAction(sessionID, hostID, services.Action{
		Name:    services.ActionName(req.Name),
		Shuffle: req.Shuffle,
		Grades:  req.Grades,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.Broadcast(session.ID, ws.WSMessage{
		Type: "session_updated",
		Data: gin.H{"version": session.Version, "status": session.Status, "phase": session.Phase},
	})

	state, err := h.sessionService.StateForHost(sessionID, hostID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

type SaveBlockRequest struct {
	BlockID   *uint                    `json:"block_id"`
	Title     string                   `json:"title" binding:"required,max=255"`
	Questions []services.QuestionInput `json:"questions"`
}

// SaveHostBlock godoc
// @Summary      Create or replace a host block
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body SaveBlockRequest true "Block content"
// @Success      200 {object} models.Block
// @Failure      423 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/blocks [post]
func (h *SessionHandler) SaveHostBlock(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req SaveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil || session.HostID != hostID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	block, err := h.contentService.SaveHostBlock(session, req.BlockID, req.Title, req.Questions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, block)
}

// ListUngraded godoc
// @Summary      Blind-grading worklist
// @Description  Ungraded open answers grouped by question. Answers carry only an opaque grading key, not who wrote them.
// @Tags         grading
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} services.GradingGroup
// @Router       /api/v1/sessions/{id}/grading [get]
func (h *SessionHandler) ListUngraded(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	if _, err := h.sessionService.StateForHost(sessionID, hostID); err != nil {
		respondError(c, err)
		return
	}

	groups, err := h.scoringService.ListUngradedOpenAnswers(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

type GradingBatchRequest struct {
	Grades []services.GradeEntry `json:"grades" binding:"required"`
}

// SubmitGradingBatch godoc
// @Summary      Commit a batch of open-answer grades atomically
// @Tags         grading
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body GradingBatchRequest true "Grades"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/grading [post]
func (h *SessionHandler) SubmitGradingBatch(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req GradingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil || session.HostID != hostID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	if err := h.scoringService.SubmitGradingBatch(session, req.Grades); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "grades recorded"})
}

type GradeRequest struct {
	QuestionID    uint `json:"question_id" binding:"required"`
	ParticipantID uint `json:"participant_id" binding:"required"`
	Correct       bool `json:"correct"`
}

// GradeAnswer godoc
// @Summary      Grade a single open answer
// @Tags         grading
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body GradeRequest true "Grade"
// @Success      200 {object} services.SessionState
// @Router       /api/v1/sessions/{id}/grade [post]
func (h *SessionHandler) GradeAnswer(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	session, err := h.sessionService.GetSession(sessionID)
	if err != nil || session.HostID != hostID {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}

	answer, err := h.scoringService.GradeAnswer(session, req.QuestionID, req.ParticipantID, req.Correct)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// GetScores godoc
// @Summary      Leaderboard and per-block difficulty
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} ScoresResponse
// @Router       /api/v1/sessions/{id}/scores [get]
func (h *SessionHandler) GetScores(c *gin.Context) {
	hostID := c.GetUint("host_id")
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	if _, err := h.sessionService.StateForHost(sessionID, hostID); err != nil {
		respondError(c, err)
		return
	}

	scores, err := h.scoringService.ComputeScores(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	blocks, err := h.scoringService.BlockAccuracies(sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ScoresResponse{Leaderboard: scores, Blocks: blocks})
}

type ScoresResponse struct {
	Leaderboard []services.ScoreBreakdown `json:"leaderboard"`
	Blocks      []services.BlockAccuracy  `json:"blocks"`
}

func (h *SessionHandler) sessionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid session id"})
		return 0, false
	}
	return uint(id), true
}
