package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type studentScheduler interface {
	Generate(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error)
	Preview(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error)
	Get(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error)
	Clear(ctx context.Context, studentID, courseID string) (bool, error)
}

type scheduleExporter interface {
	Export(ctx context.Context, studentID, courseID, format string) (*service.ExportFile, error)
}

// StudentScheduleHandler exposes per-student lesson schedules.
type StudentScheduleHandler struct {
	service  studentScheduler
	exporter scheduleExporter
}

// NewStudentScheduleHandler constructs the handler.
func NewStudentScheduleHandler(svc studentScheduler, exporter scheduleExporter) *StudentScheduleHandler {
	return &StudentScheduleHandler{service: svc, exporter: exporter}
}

// Generate godoc
// @Summary Generate and store a lesson schedule
// @Description Places every lesson of the course into the student's availability and replaces the stored schedule.
// @Tags Schedules
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{studentId}/courses/{courseId}/schedule [post]
func (h *StudentScheduleHandler) Generate(c *gin.Context) {
	studentID, courseID := studentCourseParams(c)
	result, err := h.service.Generate(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Preview godoc
// @Summary Preview a lesson schedule without storing it
// @Tags Schedules
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{studentId}/courses/{courseId}/schedule/preview [post]
func (h *StudentScheduleHandler) Preview(c *gin.Context) {
	studentID, courseID := studentCourseParams(c)
	result, err := h.service.Preview(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{"mode": "preview"})
}

// Get godoc
// @Summary Get the stored lesson schedule
// @Tags Schedules
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/courses/{courseId}/schedule [get]
func (h *StudentScheduleHandler) Get(c *gin.Context) {
	studentID, courseID := studentCourseParams(c)
	result, err := h.service.Get(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Clear godoc
// @Summary Delete the stored lesson schedule
// @Tags Schedules
// @Produce json
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/courses/{courseId}/schedule [delete]
func (h *StudentScheduleHandler) Clear(c *gin.Context) {
	studentID, courseID := studentCourseParams(c)
	cleared, err := h.service.Clear(c.Request.Context(), studentID, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ClearScheduleResponse{Cleared: cleared})
}

// Export godoc
// @Summary Download the stored lesson schedule
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/courses/{courseId}/schedule/export [get]
func (h *StudentScheduleHandler) Export(c *gin.Context) {
	var query dto.ScheduleExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	studentID, courseID := studentCourseParams(c)
	file, err := h.exporter.Export(c.Request.Context(), studentID, courseID, query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
