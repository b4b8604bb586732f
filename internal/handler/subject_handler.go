package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/service"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

// SubjectHandler exposes a teacher's subjects and their token images.
type SubjectHandler struct {
	sessions *service.SessionService
	tokens   *service.TokenService
}

// NewSubjectHandler creates a new handler.
func NewSubjectHandler(sessions *service.SessionService, tokens *service.TokenService) *SubjectHandler {
	return &SubjectHandler{sessions: sessions, tokens: tokens}
}

// ListMine godoc
// @Summary List my subjects
// @Description Lists the subjects owned by the authenticated teacher
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subjects, err := h.sessions.SubjectsForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, subjects, nil)
}

// TokenImage godoc
// @Summary Get subject token image
// @Description Returns the subject's current QR token as a PNG
// @Tags Subjects
// @Produce png
// @Param id path int true "Subject ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{id}/token.png [get]
func (h *SubjectHandler) TokenImage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	subjectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid subject id"))
		return
	}

	subject, err := h.sessions.SubjectForTeacher(c.Request.Context(), claims.UserID, subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}

	img, err := h.tokens.Image(c.Request.Context(), subject)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", img)
}
