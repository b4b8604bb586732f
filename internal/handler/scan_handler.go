package handler

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classtrack/classtrack-api/internal/service"
	appErrors "github.com/classtrack/classtrack-api/pkg/errors"
	"github.com/classtrack/classtrack-api/pkg/response"
)

// ScanHandler exposes the scan attempt lifecycle. Frames arrive as
// uploaded images; the result is polled or awaited.
type ScanHandler struct {
	scans *service.ScanService
}

// NewScanHandler creates a new handler.
func NewScanHandler(scans *service.ScanService) *ScanHandler {
	return &ScanHandler{scans: scans}
}

// Begin godoc
// @Summary Start a scan attempt
// @Description Opens a scan attempt for the authenticated student
// @Tags Scans
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /scans [post]
func (h *ScanHandler) Begin(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.scans.Begin(claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, status)
}

// PushFrame godoc
// @Summary Submit a captured frame
// @Description Feeds one camera frame into a live scan attempt
// @Tags Scans
// @Accept mpfd
// @Produce json
// @Param id path string true "Attempt ID"
// @Param frame formData file true "Frame image (png or jpeg)"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scans/{id}/frames [post]
func (h *ScanHandler) PushFrame(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	frame, err := decodeFrame(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.scans.PushFrame(c.Param("id"), claims.UserID, frame); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"accepted": true}, nil)
}

func decodeFrame(c *gin.Context) (image.Image, error) {
	reader := c.Request.Body
	if file, err := c.FormFile("frame"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable frame upload")
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "frame is not a decodable image")
		}
		return img, nil
	}

	img, _, err := image.Decode(reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "frame is not a decodable image")
	}
	return img, nil
}

// Status godoc
// @Summary Get scan attempt status
// @Description Returns the attempt state; pass wait=true to block for the result
// @Tags Scans
// @Produce json
// @Param id path string true "Attempt ID"
// @Param wait query bool false "Block until the attempt finishes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scans/{id} [get]
func (h *ScanHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if c.Query("wait") == "true" {
		result, err := h.scans.Wait(c.Request.Context(), c.Param("id"), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, result, nil)
		return
	}

	result, err := h.scans.Status(c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel a scan attempt
// @Description Stops a live attempt; the terminal outcome becomes cancelled
// @Tags Scans
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /scans/{id} [delete]
func (h *ScanHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.scans.Cancel(c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
