package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/lock"
)

type courseRepoStub struct {
	courses map[string]*models.Course
	err     error
}

func (s *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type lessonRepoStub struct {
	lessons map[string][]models.Lesson
}

func (s *lessonRepoStub) ListByCourse(ctx context.Context, courseID string) ([]models.Lesson, error) {
	return s.lessons[courseID], nil
}

type availabilityRepoStub struct {
	mu       sync.Mutex
	windows  map[string][]models.StudentAvailability
	replaced []models.StudentAvailability
	students map[string][]string
	err      error
}

func availabilityKey(studentID, courseID string) string { return studentID + "/" + courseID }

func (s *availabilityRepoStub) ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.StudentAvailability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.windows[availabilityKey(studentID, courseID)], nil
}

func (s *availabilityRepoStub) Replace(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string, windows []models.StudentAvailability) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced = windows
	if s.windows == nil {
		s.windows = map[string][]models.StudentAvailability{}
	}
	s.windows[availabilityKey(studentID, courseID)] = windows
	return nil
}

func (s *availabilityRepoStub) ListStudentsByCourse(ctx context.Context, courseID string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.students[courseID], nil
}

type scheduleStoreStub struct {
	mu        sync.Mutex
	rows      map[string][]models.StudentLessonSchedule
	replaced  int
	listCalls int
	err       error
}

func newScheduleStoreStub() *scheduleStoreStub {
	return &scheduleStoreStub{rows: map[string][]models.StudentLessonSchedule{}}
}

func (s *scheduleStoreStub) Replace(ctx context.Context, exec sqlx.ExtContext, studentID, courseID string, rows []models.StudentLessonSchedule) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaced++
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	stored := make([]models.StudentLessonSchedule, len(rows))
	for i, row := range rows {
		row.StudentID, row.CourseID, row.CreatedAt = studentID, courseID, now
		stored[i] = row
	}
	s.rows[availabilityKey(studentID, courseID)] = stored
	return nil
}

func (s *scheduleStoreStub) ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]models.StudentLessonSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return s.rows[availabilityKey(studentID, courseID)], nil
}

func (s *scheduleStoreStub) DeleteByStudentCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := availabilityKey(studentID, courseID)
	_, ok := s.rows[key]
	delete(s.rows, key)
	return ok, nil
}

type cacheRepoStub struct {
	mu      sync.Mutex
	values  map[string][]byte
	deleted []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{values: map[string][]byte{}}
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	return nil
}

func (c *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.values, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, pattern)
	return nil
}

func (c *cacheRepoStub) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ptrTime(t time.Time) *time.Time { return &t }

type scheduleFixture struct {
	service      *StudentScheduleService
	courses      *courseRepoStub
	lessons      *lessonRepoStub
	availability *availabilityRepoStub
	store        *scheduleStoreStub
	cacheRepo    *cacheRepoStub
	locker       *lock.MemoryLock
	txMock       sqlmock.Sqlmock
}

// newScheduleFixture builds a January 2024 course (starting Monday the 1st) with three one-hour
// lessons and a Monday 09:00-11:00 window for student-1.
func newScheduleFixture(t *testing.T, cfg StudentScheduleConfig) *scheduleFixture {
	t.Helper()
	courses := &courseRepoStub{courses: map[string]*models.Course{
		"course-1": {ID: "course-1", Title: "Piano", DateStart: date(2024, 1, 1), DateFinish: date(2024, 2, 1)},
	}}
	lessons := &lessonRepoStub{lessons: map[string][]models.Lesson{
		"course-1": {
			{ID: "l-1", CourseID: "course-1", Title: "Scales", DurationMinutes: 60, Position: 1},
			{ID: "l-2", CourseID: "course-1", Title: "Chords", DurationMinutes: 60, Position: 2},
			{ID: "l-3", CourseID: "course-1", Title: "Arpeggios", DurationMinutes: 60, Position: 3},
		},
	}}
	availability := &availabilityRepoStub{windows: map[string][]models.StudentAvailability{
		availabilityKey("student-1", "course-1"): {{ID: "w-1", Weekday: 1, StartTime: "09:00:00", EndTime: "11:00:00"}},
	}}
	store := newScheduleStoreStub()
	cacheRepo := newCacheRepoStub()
	cacheSvc := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	locker := lock.NewMemoryLock()
	tx, mock := newTxProviderMock(t)

	if cfg.MaxPeriodDays == 0 {
		cfg.MaxPeriodDays = 366
	}
	cfg.RejectOverlappingWindows = true

	svc := NewStudentScheduleService(courses, lessons, availability, store, tx, locker, cacheSvc, NewMetricsService(), nil, zap.NewNop(), cfg)
	return &scheduleFixture{
		service:      svc,
		courses:      courses,
		lessons:      lessons,
		availability: availability,
		store:        store,
		cacheRepo:    cacheRepo,
		locker:       locker,
		txMock:       mock,
	}
}

func assertAppError(t *testing.T, err error, code string, status int) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.Status)
	return appErr
}

func TestStudentScheduleServiceGenerate(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	f.txMock.ExpectBegin()
	f.txMock.ExpectCommit()

	resp, err := f.service.Generate(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	require.Len(t, resp.Lessons, 3)
	assert.True(t, resp.Persisted)
	assert.NotNil(t, resp.GeneratedAt)

	assert.Equal(t, "2024-01-01", resp.Lessons[0].Date)
	assert.Equal(t, "09:00", resp.Lessons[0].StartTime)
	assert.Equal(t, "10:00", resp.Lessons[0].EndTime)
	assert.Equal(t, "Scales", resp.Lessons[0].Title)
	assert.Equal(t, "2024-01-01", resp.Lessons[1].Date)
	assert.Equal(t, "10:00", resp.Lessons[1].StartTime)
	assert.Equal(t, "2024-01-08", resp.Lessons[2].Date)
	assert.Equal(t, "09:00", resp.Lessons[2].StartTime)
	assert.Equal(t, int(time.Monday), resp.Lessons[2].Weekday)

	stored := f.store.rows[availabilityKey("student-1", "course-1")]
	require.Len(t, stored, 3)
	assert.Equal(t, 3, stored[2].Position)
	assert.True(t, f.cacheRepo.has(cache.ScheduleKey("student-1", "course-1")))
	assert.NoError(t, f.txMock.ExpectationsWereMet())

	_, ok, err := f.locker.Lock(context.Background(), cache.LockKey("student-1", "course-1"), time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "lock must be released after generation")
}

func TestStudentScheduleServiceGenerateHonoursLessonReleaseDate(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	f.lessons.lessons["course-1"][1].AvailableFrom = ptrTime(date(2024, 1, 10))
	f.txMock.ExpectBegin()
	f.txMock.ExpectCommit()

	resp, err := f.service.Generate(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	require.Len(t, resp.Lessons, 3)
	assert.Equal(t, "l-1", resp.Lessons[0].LessonID)
	assert.Equal(t, "l-3", resp.Lessons[1].LessonID)
	assert.Equal(t, "10:00", resp.Lessons[1].StartTime)
	assert.Equal(t, "l-2", resp.Lessons[2].LessonID)
	assert.Equal(t, "2024-01-15", resp.Lessons[2].Date)
}

func TestStudentScheduleServiceGenerateNoAvailability(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})

	_, err := f.service.Generate(context.Background(), "student-2", "course-1")
	assertAppError(t, err, "NO_AVAILABILITY", http.StatusUnprocessableEntity)
	assert.Zero(t, f.store.replaced)
}

func TestStudentScheduleServiceGenerateUnassignableLesson(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	f.lessons.lessons["course-1"] = append(f.lessons.lessons["course-1"], models.Lesson{ID: "l-long", DurationMinutes: 180})

	_, err := f.service.Generate(context.Background(), "student-1", "course-1")
	appErr := assertAppError(t, err, "UNASSIGNABLE_LESSON", http.StatusUnprocessableEntity)
	assert.Equal(t, "lesson l-long could not be scheduled", appErr.Message)
	assert.Zero(t, f.store.replaced)
}

func TestStudentScheduleServiceGenerateOverlappingWindows(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	key := availabilityKey("student-1", "course-1")
	f.availability.windows[key] = append(f.availability.windows[key], models.StudentAvailability{Weekday: 1, StartTime: "10:30", EndTime: "12:00"})

	_, err := f.service.Generate(context.Background(), "student-1", "course-1")
	assertAppError(t, err, "OVERLAPPING_WINDOWS", http.StatusUnprocessableEntity)
}

func TestStudentScheduleServiceGenerateInvalidLesson(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	f.lessons.lessons["course-1"][0].DurationMinutes = 0

	_, err := f.service.Generate(context.Background(), "student-1", "course-1")
	assertAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
}

func TestStudentScheduleServiceGenerateComplexityCeiling(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{MaxIterations: 2})

	_, err := f.service.Generate(context.Background(), "student-1", "course-1")
	assertAppError(t, err, "SCHEDULE_COMPLEXITY_EXCEEDED", http.StatusUnprocessableEntity)
}

func TestStudentScheduleServiceGenerateCourseNotFound(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})

	_, err := f.service.Generate(context.Background(), "student-1", "missing")
	assertAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestStudentScheduleServiceGeneratePeriodTooLong(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{MaxPeriodDays: 14})

	_, err := f.service.Generate(context.Background(), "student-1", "course-1")
	assertAppError(t, err, "COURSE_PERIOD_UNSUPPORTED", http.StatusUnprocessableEntity)
}

func TestStudentScheduleServiceGenerateLocked(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	_, ok, err := f.locker.Lock(context.Background(), cache.LockKey("student-1", "course-1"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.service.Generate(context.Background(), "student-1", "course-1")
	assertAppError(t, err, "LOCKED", http.StatusConflict)
}

func TestStudentScheduleServiceGenerateStoreFailureRollsBack(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	f.store.err = errors.New("unique violation")
	f.txMock.ExpectBegin()
	f.txMock.ExpectRollback()

	_, err := f.service.Generate(context.Background(), "student-1", "course-1")
	assertAppError(t, err, "INTERNAL_ERROR", http.StatusInternalServerError)
	assert.False(t, f.cacheRepo.has(cache.ScheduleKey("student-1", "course-1")))
	assert.NoError(t, f.txMock.ExpectationsWereMet())
}

func TestStudentScheduleServiceGenerateValidatesIDs(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})

	_, err := f.service.Generate(context.Background(), "", "course-1")
	assertAppError(t, err, "VALIDATION_ERROR", http.StatusBadRequest)
}

func TestStudentScheduleServicePreviewDoesNotPersist(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})

	resp, err := f.service.Preview(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	assert.False(t, resp.Persisted)
	assert.Len(t, resp.Lessons, 3)
	assert.Zero(t, f.store.replaced)
	assert.False(t, f.cacheRepo.has(cache.ScheduleKey("student-1", "course-1")))
}

func TestStudentScheduleServiceGetReadsThroughCache(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	f.store.rows[availabilityKey("student-1", "course-1")] = []models.StudentLessonSchedule{
		{LessonID: "l-1", Position: 1, ScheduledDate: date(2024, 1, 1), StartTime: "09:00:00", EndTime: "10:00:00", CreatedAt: date(2023, 12, 31)},
	}

	resp, err := f.service.Get(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	require.Len(t, resp.Lessons, 1)
	assert.Equal(t, "09:00", resp.Lessons[0].StartTime)
	assert.Equal(t, "Scales", resp.Lessons[0].Title)
	assert.Equal(t, 60, resp.Lessons[0].DurationMinutes)
	assert.True(t, resp.Persisted)

	_, err = f.service.Get(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.listCalls, "second read must be served from cache")
}

func TestStudentScheduleServiceGetNotFound(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})

	_, err := f.service.Get(context.Background(), "student-1", "course-1")
	assertAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestStudentScheduleServiceClear(t *testing.T) {
	f := newScheduleFixture(t, StudentScheduleConfig{})
	f.txMock.ExpectBegin()
	f.txMock.ExpectCommit()
	_, err := f.service.Generate(context.Background(), "student-1", "course-1")
	require.NoError(t, err)

	cleared, err := f.service.Clear(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.False(t, f.cacheRepo.has(cache.ScheduleKey("student-1", "course-1")))

	cleared, err = f.service.Clear(context.Background(), "student-1", "course-1")
	require.NoError(t, err)
	assert.False(t, cleared)
}
