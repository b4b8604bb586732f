package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/service"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

// SessionHandler starts subject sessions and reports the active slot.
type SessionHandler struct {
	sessions *service.SessionService
	tokens   *service.TokenService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(sessions *service.SessionService, tokens *service.TokenService) *SessionHandler {
	return &SessionHandler{sessions: sessions, tokens: tokens}
}

type startSessionRequest struct {
	SubjectID int64 `json:"subject_id" binding:"required"`
}

// Start godoc
// @Summary Start a subject session
// @Description Activates the scanning window for a subject and refreshes its token image
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body startSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	subject, err := h.sessions.StartSession(c.Request.Context(), claims.UserID, req.SubjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	// A session start always refreshes the on-disk token image.
	if _, err := h.tokens.Issue(c.Request.Context(), subject); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{
		"subject":   subject,
		"token_url": fmt.Sprintf("/subjects/%d/token.png", subject.ID),
	})
}

// Current godoc
// @Summary Get the active session
// @Description Returns the ongoing-class slot state
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions/current [get]
func (h *SessionHandler) Current(c *gin.Context) {
	slot, err := h.sessions.Current(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
