package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/jobs"
)

type dispatcherStub struct {
	jobs    []jobs.Job
	failAt  int
	calls   int
	failErr error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) (string, error) {
	d.calls++
	if d.failErr != nil && d.calls >= d.failAt {
		return "", d.failErr
	}
	d.jobs = append(d.jobs, job)
	return "job-id", nil
}

type generatorStub struct {
	calls []RebuildPayload
	err   error
}

func (g *generatorStub) Generate(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error) {
	g.calls = append(g.calls, RebuildPayload{StudentID: studentID, CourseID: courseID})
	if g.err != nil {
		return nil, g.err
	}
	return &dto.StudentScheduleResponse{StudentID: studentID, CourseID: courseID, Persisted: true}, nil
}

func newRebuildFixture(students []string, dispatcher *dispatcherStub) *ScheduleRebuildService {
	courses := &courseRepoStub{courses: map[string]*models.Course{"course-1": {ID: "course-1"}}}
	lister := &availabilityRepoStub{students: map[string][]string{"course-1": students}}
	return NewScheduleRebuildService(courses, lister, dispatcher, zap.NewNop())
}

func TestScheduleRebuildServiceEnqueueCourse(t *testing.T) {
	dispatcher := &dispatcherStub{}
	svc := newRebuildFixture([]string{"student-1", "student-2"}, dispatcher)

	resp, err := svc.EnqueueCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Enqueued)
	require.Len(t, dispatcher.jobs, 2)
	assert.Equal(t, JobTypeScheduleRebuild, dispatcher.jobs[0].Type)
	assert.Equal(t, RebuildPayload{StudentID: "student-2", CourseID: "course-1"}, dispatcher.jobs[1].Payload)
}

func TestScheduleRebuildServiceEnqueueCoursePartialFailure(t *testing.T) {
	dispatcher := &dispatcherStub{failAt: 2, failErr: errors.New("queue stopped")}
	svc := newRebuildFixture([]string{"student-1", "student-2", "student-3"}, dispatcher)

	resp, err := svc.EnqueueCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Enqueued)
}

func TestScheduleRebuildServiceEnqueueCourseQueueDown(t *testing.T) {
	dispatcher := &dispatcherStub{failAt: 1, failErr: errors.New("queue stopped")}
	svc := newRebuildFixture([]string{"student-1"}, dispatcher)

	_, err := svc.EnqueueCourse(context.Background(), "course-1")
	assertAppError(t, err, "INTERNAL_ERROR", http.StatusInternalServerError)
}

func TestScheduleRebuildServiceUnknownCourse(t *testing.T) {
	svc := newRebuildFixture(nil, &dispatcherStub{})

	_, err := svc.EnqueueCourse(context.Background(), "missing")
	assertAppError(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestScheduleRebuildWorkerHandle(t *testing.T) {
	generator := &generatorStub{}
	worker := NewScheduleRebuildWorker(generator, NewMetricsService(), zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "j-1", Payload: RebuildPayload{StudentID: "student-1", CourseID: "course-1"}})
	require.NoError(t, err)
	assert.Equal(t, []RebuildPayload{{StudentID: "student-1", CourseID: "course-1"}}, generator.calls)
}

func TestScheduleRebuildWorkerClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"unassignable", appErrors.Clone(appErrors.ErrUnassignableLesson, "lesson l-1 could not be scheduled"), true},
		{"no availability", appErrors.Clone(appErrors.ErrNoAvailability, ""), true},
		{"locked", appErrors.Clone(appErrors.ErrLocked, ""), false},
		{"database", appErrors.Wrap(errors.New("timeout"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			worker := NewScheduleRebuildWorker(&generatorStub{err: tc.err}, nil, nil)
			err := worker.Handle(context.Background(), jobs.Job{Payload: RebuildPayload{StudentID: "s", CourseID: "c"}})
			require.Error(t, err)
			assert.Equal(t, tc.permanent, jobs.IsPermanent(err))
		})
	}
}

func TestScheduleRebuildWorkerRejectsUnknownPayload(t *testing.T) {
	worker := NewScheduleRebuildWorker(&generatorStub{}, nil, nil)
	err := worker.Handle(context.Background(), jobs.Job{Payload: "nope"})
	assert.True(t, jobs.IsPermanent(err))
}
