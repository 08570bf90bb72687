package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/pkg/response"
)

type courseRebuilder interface {
	EnqueueCourse(ctx context.Context, courseID string) (*dto.RebuildCourseResponse, error)
}

// ScheduleRebuildHandler queues schedule regeneration for a whole course.
type ScheduleRebuildHandler struct {
	service courseRebuilder
	logger  *zap.Logger
}

// NewScheduleRebuildHandler constructs the handler.
func NewScheduleRebuildHandler(svc courseRebuilder, logger *zap.Logger) *ScheduleRebuildHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRebuildHandler{service: svc, logger: logger}
}

// Rebuild godoc
// @Summary Regenerate every student schedule of a course
// @Description Jobs run in the background; stored schedules are replaced as each one completes.
// @Tags Schedules
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 202 {object} response.Envelope
// @Router /courses/{courseId}/schedules/rebuild [post]
func (h *ScheduleRebuildHandler) Rebuild(c *gin.Context) {
	courseID := strings.TrimSpace(c.Param("courseId"))
	result, err := h.service.EnqueueCourse(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("course schedule rebuild requested",
		zap.String("course_id", courseID),
		zap.String("requested_by", actorID(c)),
		zap.Int("enqueued", result.Enqueued),
	)
	response.JSON(c, http.StatusAccepted, result)
}
