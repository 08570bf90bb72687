package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/jobs"
)

// JobTypeScheduleRebuild regenerates one student's schedule for a course.
const JobTypeScheduleRebuild = "schedule.rebuild"

// RebuildPayload identifies the schedule a rebuild job regenerates.
type RebuildPayload struct {
	StudentID string
	CourseID  string
}

type courseStudentLister interface {
	ListStudentsByCourse(ctx context.Context, courseID string) ([]string, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) (string, error)
}

type scheduleGenerator interface {
	Generate(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error)
}

// ScheduleRebuildService fans a course-wide rebuild out into one job per student.
type ScheduleRebuildService struct {
	courses  courseReader
	students courseStudentLister
	queue    jobDispatcher
	logger   *zap.Logger
}

// NewScheduleRebuildService constructs the service.
func NewScheduleRebuildService(courses courseReader, students courseStudentLister, queue jobDispatcher, logger *zap.Logger) *ScheduleRebuildService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRebuildService{courses: courses, students: students, queue: queue, logger: logger}
}

// EnqueueCourse queues a rebuild for every student with availability in the course.
func (s *ScheduleRebuildService) EnqueueCourse(ctx context.Context, courseID string) (*dto.RebuildCourseResponse, error) {
	if _, err := loadCourse(ctx, s.courses, courseID); err != nil {
		return nil, err
	}
	studentIDs, err := s.students.ListStudentsByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course students")
	}

	enqueued := 0
	for _, studentID := range studentIDs {
		_, err := s.queue.Enqueue(jobs.Job{
			Type:    JobTypeScheduleRebuild,
			Payload: RebuildPayload{StudentID: studentID, CourseID: courseID},
		})
		if err != nil {
			s.logger.Warn("failed to enqueue schedule rebuild",
				zap.String("course_id", courseID), zap.String("student_id", studentID), zap.Error(err))
			if enqueued == 0 {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue schedule rebuild")
			}
			break
		}
		enqueued++
	}

	s.logger.Info("course schedule rebuild queued", zap.String("course_id", courseID), zap.Int("students", enqueued))
	return &dto.RebuildCourseResponse{CourseID: courseID, Enqueued: enqueued}, nil
}

// ScheduleRebuildWorker bridges queue jobs to schedule generation.
type ScheduleRebuildWorker struct {
	generator scheduleGenerator
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewScheduleRebuildWorker constructs a worker.
func NewScheduleRebuildWorker(generator scheduleGenerator, metrics *MetricsService, logger *zap.Logger) *ScheduleRebuildWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRebuildWorker{generator: generator, metrics: metrics, logger: logger}
}

// Handle processes a queue job. Failures the engine would reproduce are not retried.
func (w *ScheduleRebuildWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(RebuildPayload)
	if !ok {
		err := jobs.Permanent(fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID))
		w.metrics.ObserveRebuildJob(err)
		return err
	}

	_, err := w.generator.Generate(ctx, payload.StudentID, payload.CourseID)
	w.metrics.ObserveRebuildJob(err)
	if err == nil {
		return nil
	}
	if isRetryable(err) {
		return err
	}
	w.logger.Info("schedule rebuild skipped",
		zap.String("student_id", payload.StudentID),
		zap.String("course_id", payload.CourseID),
		zap.Error(err),
	)
	return jobs.Permanent(err)
}

// isRetryable reports whether another attempt could succeed.
func isRetryable(err error) bool {
	switch appErrors.FromError(err).Code {
	case appErrors.ErrInternal.Code, appErrors.ErrLocked.Code:
		return true
	default:
		return false
	}
}
