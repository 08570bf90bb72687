package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduler"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type availabilityStore interface {
	availabilityReader
	Replace(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string, windows []models.StudentAvailability) error
}

// AvailabilityService manages the weekly windows a student offers for a course.
type AvailabilityService struct {
	courses        courseReader
	repo           availabilityStore
	tx             txProvider
	validator      *validator.Validate
	logger         *zap.Logger
	rejectOverlaps bool
}

// NewAvailabilityService constructs the service and registers the "clock" validation tag.
func NewAvailabilityService(courses courseReader, repo availabilityStore, tx txProvider, validate *validator.Validate, logger *zap.Logger, rejectOverlaps bool) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	RegisterClockValidation(validate)
	return &AvailabilityService{
		courses:        courses,
		repo:           repo,
		tx:             tx,
		validator:      validate,
		logger:         logger,
		rejectOverlaps: rejectOverlaps,
	}
}

// RegisterClockValidation adds the "clock" tag accepting HH:MM times of day.
func RegisterClockValidation(validate *validator.Validate) {
	_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := scheduler.ParseClock(fl.Field().String())
		return err == nil
	})
}

// List returns the stored windows ordered by weekday and start time.
func (s *AvailabilityService) List(ctx context.Context, studentID, courseID string) ([]dto.AvailabilityWindowResponse, error) {
	rows, err := s.repo.ListByStudentCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	return toAvailabilityResponses(rows), nil
}

// Replace validates and stores a new window set, dropping every previous window.
func (s *AvailabilityService) Replace(ctx context.Context, studentID, courseID string, req dto.ReplaceAvailabilityRequest) ([]dto.AvailabilityWindowResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	if _, err := loadCourse(ctx, s.courses, courseID); err != nil {
		return nil, err
	}

	windows := make([]scheduler.AvailabilityWindow, 0, len(req.Windows))
	rows := make([]models.StudentAvailability, 0, len(req.Windows))
	for _, item := range req.Windows {
		start, _ := scheduler.ParseClock(item.StartTime)
		end, _ := scheduler.ParseClock(item.EndTime)
		windows = append(windows, scheduler.AvailabilityWindow{Weekday: time.Weekday(*item.Weekday), Start: start, End: end})
		rows = append(rows, models.StudentAvailability{
			Weekday:   *item.Weekday,
			StartTime: start.String(),
			EndTime:   end.String(),
		})
	}
	if err := scheduler.ValidateWindows(windows, s.rejectOverlaps); err != nil {
		var invalid *scheduler.InvalidWindowError
		if errors.As(err, &invalid) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("windows[%d]: %s", invalid.Index, invalid.Reason))
		}
		return nil, mapScheduleError(err)
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	err := database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.repo.Replace(ctx, tx, studentID, courseID, rows)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store availability")
	}

	s.logger.Info("availability replaced",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Int("windows", len(rows)),
	)
	return toAvailabilityResponses(rows), nil
}

func toAvailabilityResponses(rows []models.StudentAvailability) []dto.AvailabilityWindowResponse {
	out := make([]dto.AvailabilityWindowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.AvailabilityWindowResponse{
			ID:        row.ID,
			Weekday:   row.Weekday,
			StartTime: trimSeconds(row.StartTime),
			EndTime:   trimSeconds(row.EndTime),
		})
	}
	return out
}
