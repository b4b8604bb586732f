package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/service"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

// AttendanceHandler serves attendance summaries and exports.
type AttendanceHandler struct {
	attendance *service.AttendanceService
	exports    *service.ExportService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService, exports *service.ExportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, exports: exports}
}

// MySummary godoc
// @Summary My attendance summary
// @Description Per-subject attendance for the authenticated student; format=csv or pdf downloads a file
// @Tags Attendance
// @Produce json
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /attendance/summary/me [get]
func (h *AttendanceHandler) MySummary(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if format := c.Query("format"); format != "" {
		file, err := h.exports.StudentSummaryExport(c.Request.Context(), claims.UserID, service.ExportFormat(format))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.Data(http.StatusOK, file.ContentType, file.Data)
		return
	}

	rows, err := h.attendance.StudentSummary(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Roster godoc
// @Summary Active subject roster
// @Description Every student's standing for the active subject; format=csv or pdf downloads a file
// @Tags Attendance
// @Produce json
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/summary [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	if format := c.Query("format"); format != "" {
		file, err := h.exports.ActiveRosterExport(c.Request.Context(), service.ExportFormat(format))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.Data(http.StatusOK, file.ContentType, file.Data)
		return
	}

	subjectID, rows, err := h.attendance.ActiveRoster(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"subject_id": subjectID, "students": rows}, nil)
}
