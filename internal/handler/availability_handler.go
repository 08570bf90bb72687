package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type availabilityManager interface {
	List(ctx context.Context, studentID, courseID string) ([]dto.AvailabilityWindowResponse, error)
	Replace(ctx context.Context, studentID, courseID string, req dto.ReplaceAvailabilityRequest) ([]dto.AvailabilityWindowResponse, error)
}

// AvailabilityHandler exposes a student's weekly availability for a course.
type AvailabilityHandler struct {
	service availabilityManager
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc availabilityManager) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// List godoc
// @Summary List availability windows
// @Tags Availability
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/courses/{courseId}/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	studentID, courseID := studentCourseParams(c)
	windows, err := h.service.List(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, map[string]interface{}{"count": len(windows)})
}

// Replace godoc
// @Summary Replace availability windows
// @Description Replaces every window the student has for the course. Stored schedules are not regenerated.
// @Tags Availability
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param payload body dto.ReplaceAvailabilityRequest true "Availability windows"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{studentId}/courses/{courseId}/availability [put]
func (h *AvailabilityHandler) Replace(c *gin.Context) {
	var req dto.ReplaceAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	studentID, courseID := studentCourseParams(c)
	windows, err := h.service.Replace(c.Request.Context(), studentID, courseID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, map[string]interface{}{"count": len(windows)})
}
