package handlers

import (
	"net/http"

	"github.com/mihkeluutar/quiz-game/internal/apperrors"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"operation successful"`
}

// respondError maps the service error taxonomy to HTTP statuses. Every error
// carries its own context; nothing is rewritten here.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsPrecondition(err):
		status = http.StatusUnprocessableEntity
	case apperrors.IsLocked(err):
		status = http.StatusLocked
	case apperrors.IsConflict(err):
		status = http.StatusConflict
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
