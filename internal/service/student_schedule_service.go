package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/scheduler"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/lock"
	"github.com/noah-isme/lesson-scheduler-api/pkg/logger"
)

const dateLayout = "2006-01-02"

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type lessonReader interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error)
}

type availabilityReader interface {
	ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.StudentAvailability, error)
}

type studentScheduleStore interface {
	Replace(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string, rows []models.StudentLessonSchedule) error
	ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.StudentLessonSchedule, error)
	DeleteByStudentCourse(ctx context.Context, studentID, courseID string) (bool, error)
}

type scheduleCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, keys ...string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// StudentScheduleConfig tunes schedule generation.
type StudentScheduleConfig struct {
	MaxIterations            int
	MaxPeriodDays            int
	RejectOverlappingWindows bool
	LockTTL                  time.Duration
	CacheTTL                 time.Duration
}

// StudentScheduleService places course lessons into a student's availability and stores the result.
type StudentScheduleService struct {
	courses      courseReader
	lessons      lessonReader
	availability availabilityReader
	schedules    studentScheduleStore
	tx           txProvider
	locker       lock.Locker
	cache        scheduleCache
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	cfg          StudentScheduleConfig
	loads        singleflight.Group
	now          func() time.Time
}

// NewStudentScheduleService wires schedule dependencies. A nil locker falls back to an in-process lock.
func NewStudentScheduleService(
	courses courseReader,
	lessons lessonReader,
	availability availabilityReader,
	schedules studentScheduleStore,
	tx txProvider,
	locker lock.Locker,
	cacheSvc scheduleCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg StudentScheduleConfig,
) *StudentScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewMemoryLock()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = scheduler.DefaultMaxIterations
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &StudentScheduleService{
		courses:      courses,
		lessons:      lessons,
		availability: availability,
		schedules:    schedules,
		tx:           tx,
		locker:       locker,
		cache:        cacheSvc,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// plan is a computed but not yet persisted schedule.
type plan struct {
	course      *models.Course
	lessons     map[string]models.Lesson
	assignments []scheduler.Assignment
}

// Generate computes the schedule and replaces the stored one atomically.
func (s *StudentScheduleService) Generate(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error) {
	if err := s.validateIDs(studentID, courseID); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.logger).With(zap.String("student_id", studentID), zap.String("course_id", courseID))

	lease, ok, err := s.locker.Lock(ctx, cache.LockKey(studentID, courseID), s.cfg.LockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire schedule lock")
	}
	if !ok {
		s.metrics.IncLockContention()
		return nil, appErrors.Clone(appErrors.ErrLocked, "a schedule for this student and course is already being generated")
	}
	defer func() {
		if unlockErr := lease.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			log.Warn("release schedule lock", zap.Error(unlockErr))
		}
	}()

	started := s.now()
	p, err := s.plan(ctx, studentID, courseID)
	if err != nil {
		s.observeFailure(RunModeGenerate, started, err, log)
		return nil, err
	}

	rows := toScheduleRows(p)
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.schedules.Replace(ctx, tx, studentID, courseID, rows)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule")
	}

	generatedAt := s.now().UTC()
	resp := buildScheduleResponse(studentID, p, true, &generatedAt)

	key := cache.ScheduleKey(studentID, courseID)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, key); err == nil {
			s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
		}
	}

	s.metrics.ObserveScheduleRun(RunModeGenerate, models.ScheduleRunSuccess, s.now().Sub(started))
	s.metrics.AddLessonsPlaced(len(rows))
	log.Info("schedule generated", zap.Int("lessons", len(rows)))
	return resp, nil
}

// Preview computes the schedule without storing it.
func (s *StudentScheduleService) Preview(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error) {
	if err := s.validateIDs(studentID, courseID); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.logger).With(zap.String("student_id", studentID), zap.String("course_id", courseID))

	started := s.now()
	p, err := s.plan(ctx, studentID, courseID)
	if err != nil {
		s.observeFailure(RunModePreview, started, err, log)
		return nil, err
	}
	s.metrics.ObserveScheduleRun(RunModePreview, models.ScheduleRunSuccess, s.now().Sub(started))
	return buildScheduleResponse(studentID, p, false, nil), nil
}

// Get returns the stored schedule, served from cache when possible.
func (s *StudentScheduleService) Get(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error) {
	if err := s.validateIDs(studentID, courseID); err != nil {
		return nil, err
	}
	key := cache.ScheduleKey(studentID, courseID)
	if s.cache != nil {
		var cached dto.StudentScheduleResponse
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	result, err, _ := s.loads.Do(key, func() (interface{}, error) {
		return s.loadStored(ctx, studentID, courseID)
	})
	if err != nil {
		return nil, err
	}
	resp := result.(*dto.StudentScheduleResponse)
	if s.cache != nil {
		s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	}
	return resp, nil
}

// Clear deletes the stored schedule and reports whether one existed.
func (s *StudentScheduleService) Clear(ctx context.Context, studentID, courseID string) (bool, error) {
	if err := s.validateIDs(studentID, courseID); err != nil {
		return false, err
	}
	cleared, err := s.schedules.DeleteByStudentCourse(ctx, studentID, courseID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear schedule")
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, cache.ScheduleKey(studentID, courseID))
	}
	return cleared, nil
}

func (s *StudentScheduleService) loadStored(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.schedules.ListByStudentCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	byID := indexLessons(lessons)

	generatedAt := rows[0].CreatedAt.UTC()
	resp := &dto.StudentScheduleResponse{
		StudentID:   studentID,
		CourseID:    courseID,
		CourseStart: course.DateStart.Format(dateLayout),
		CourseEnd:   course.DateFinish.Format(dateLayout),
		Persisted:   true,
		Lessons:     make([]dto.ScheduledLesson, 0, len(rows)),
		GeneratedAt: &generatedAt,
	}
	for _, row := range rows {
		item := dto.ScheduledLesson{
			LessonID:  row.LessonID,
			Position:  row.Position,
			Date:      row.ScheduledDate.Format(dateLayout),
			Weekday:   int(row.ScheduledDate.Weekday()),
			StartTime: trimSeconds(row.StartTime),
			EndTime:   trimSeconds(row.EndTime),
		}
		if lesson, ok := byID[row.LessonID]; ok {
			item.Title = lesson.Title
			item.DurationMinutes = lesson.DurationMinutes
		}
		resp.Lessons = append(resp.Lessons, item)
	}
	return resp, nil
}

func (s *StudentScheduleService) plan(ctx context.Context, studentID, courseID string) (*plan, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	period := scheduler.CoursePeriod{Start: course.DateStart, Finish: course.DateFinish}
	if s.cfg.MaxPeriodDays > 0 && period.Days() > s.cfg.MaxPeriodDays {
		return nil, appErrors.Clone(appErrors.ErrCoursePeriodUnsupported,
			fmt.Sprintf("course period of %d days exceeds the %d day limit", period.Days(), s.cfg.MaxPeriodDays))
	}

	lessons, err := s.lessons.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	stored, err := s.availability.ListByStudentCourse(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	windows, err := toWindows(stored)
	if err != nil {
		return nil, err
	}
	items := toLessonItems(lessons, course.DateStart)

	assignments, err := scheduler.Schedule(windows, items, period, scheduler.Options{
		MaxIterations:            s.cfg.MaxIterations,
		RejectOverlappingWindows: s.cfg.RejectOverlappingWindows,
	})
	if err != nil {
		return nil, mapScheduleError(err)
	}
	return &plan{course: course, lessons: indexLessons(lessons), assignments: assignments}, nil
}

func (s *StudentScheduleService) findCourse(ctx context.Context, courseID string) (*models.Course, error) {
	return loadCourse(ctx, s.courses, courseID)
}

func loadCourse(ctx context.Context, courses courseReader, courseID string) (*models.Course, error) {
	course, err := courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *StudentScheduleService) validateIDs(studentID, courseID string) error {
	if err := s.validator.Var(studentID, "required,max=64"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student id")
	}
	if err := s.validator.Var(courseID, "required,max=64"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course id")
	}
	return nil
}

func (s *StudentScheduleService) observeFailure(mode string, started time.Time, err error, log *zap.Logger) {
	outcome := runOutcome(err)
	s.metrics.ObserveScheduleRun(mode, outcome, s.now().Sub(started))
	if outcome == "" {
		log.Error("schedule run failed", zap.String("mode", mode), zap.Error(err))
		return
	}
	log.Info("schedule run rejected", zap.String("mode", mode), zap.String("outcome", string(outcome)), zap.Error(err))
}

// runOutcome classifies a mapped error. Infrastructure failures return "".
func runOutcome(err error) models.ScheduleRunOutcome {
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrNoAvailability.Code:
		return models.ScheduleRunNoAvailable
	case appErrors.ErrUnassignableLesson.Code:
		return models.ScheduleRunUnassignable
	case appErrors.ErrScheduleTooComplex.Code:
		return models.ScheduleRunTooComplex
	case appErrors.ErrValidation.Code, appErrors.ErrOverlappingWindows.Code, appErrors.ErrCoursePeriodUnsupported.Code, appErrors.ErrNotFound.Code:
		return models.ScheduleRunInvalid
	default:
		return ""
	}
}

// mapScheduleError converts engine errors into API errors.
func mapScheduleError(err error) error {
	var (
		unassignable *scheduler.UnassignableLessonError
		badLesson    *scheduler.InvalidLessonError
		badWindow    *scheduler.InvalidWindowError
	)
	switch {
	case errors.Is(err, scheduler.ErrNoAvailability):
		return appErrors.Wrap(err, appErrors.ErrNoAvailability.Code, appErrors.ErrNoAvailability.Status, appErrors.ErrNoAvailability.Message)
	case errors.As(err, &unassignable):
		return appErrors.Wrap(err, appErrors.ErrUnassignableLesson.Code, appErrors.ErrUnassignableLesson.Status, unassignable.Error())
	case errors.Is(err, scheduler.ErrOverlappingWindows):
		return appErrors.Wrap(err, appErrors.ErrOverlappingWindows.Code, appErrors.ErrOverlappingWindows.Status, err.Error())
	case errors.Is(err, scheduler.ErrComplexityExceeded):
		return appErrors.Wrap(err, appErrors.ErrScheduleTooComplex.Code, appErrors.ErrScheduleTooComplex.Status, appErrors.ErrScheduleTooComplex.Message)
	case errors.Is(err, scheduler.ErrInvalidPeriod):
		return appErrors.Wrap(err, appErrors.ErrCoursePeriodUnsupported.Code, appErrors.ErrCoursePeriodUnsupported.Status, "course period is empty")
	case errors.As(err, &badLesson), errors.As(err, &badWindow):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute schedule")
	}
}

func toWindows(stored []models.StudentAvailability) ([]scheduler.AvailabilityWindow, error) {
	windows := make([]scheduler.AvailabilityWindow, 0, len(stored))
	for _, row := range stored {
		start, err := scheduler.ParseClock(row.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored availability is corrupt")
		}
		end, err := scheduler.ParseClock(row.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored availability is corrupt")
		}
		windows = append(windows, scheduler.AvailabilityWindow{Weekday: time.Weekday(row.Weekday), Start: start, End: end})
	}
	return windows, nil
}

// toLessonItems keeps catalogue order. Lessons without a release date open with the course.
func toLessonItems(lessons []models.Lesson, courseStart time.Time) []scheduler.LessonItem {
	items := make([]scheduler.LessonItem, 0, len(lessons))
	for _, lesson := range lessons {
		earliest := courseStart
		if lesson.AvailableFrom != nil {
			earliest = *lesson.AvailableFrom
		}
		items = append(items, scheduler.LessonItem{
			ID:              lesson.ID,
			DurationMinutes: lesson.DurationMinutes,
			EarliestDate:    earliest,
		})
	}
	return items
}

func toScheduleRows(p *plan) []models.StudentLessonSchedule {
	rows := make([]models.StudentLessonSchedule, 0, len(p.assignments))
	for i, a := range p.assignments {
		rows = append(rows, models.StudentLessonSchedule{
			LessonID:      a.LessonID,
			Position:      i + 1,
			ScheduledDate: a.Date,
			StartTime:     a.Start.String(),
			EndTime:       a.End.String(),
		})
	}
	return rows
}

func buildScheduleResponse(studentID string, p *plan, persisted bool, generatedAt *time.Time) *dto.StudentScheduleResponse {
	resp := &dto.StudentScheduleResponse{
		StudentID:   studentID,
		CourseID:    p.course.ID,
		CourseStart: p.course.DateStart.Format(dateLayout),
		CourseEnd:   p.course.DateFinish.Format(dateLayout),
		Persisted:   persisted,
		Lessons:     make([]dto.ScheduledLesson, 0, len(p.assignments)),
		GeneratedAt: generatedAt,
	}
	for i, a := range p.assignments {
		lesson := p.lessons[a.LessonID]
		resp.Lessons = append(resp.Lessons, dto.ScheduledLesson{
			LessonID:        a.LessonID,
			Title:           lesson.Title,
			Position:        i + 1,
			Date:            a.Date.Format(dateLayout),
			Weekday:         int(a.Date.Weekday()),
			StartTime:       a.Start.String(),
			EndTime:         a.End.String(),
			DurationMinutes: int(a.End - a.Start),
		})
	}
	return resp
}

func indexLessons(lessons []models.Lesson) map[string]models.Lesson {
	byID := make(map[string]models.Lesson, len(lessons))
	for _, lesson := range lessons {
		byID[lesson.ID] = lesson
	}
	return byID
}

// trimSeconds renders Postgres TIME values ("09:00:00") as HH:MM.
func trimSeconds(raw string) string {
	if c, err := scheduler.ParseClock(raw); err == nil {
		return c.String()
	}
	return raw
}
