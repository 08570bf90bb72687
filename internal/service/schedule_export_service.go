package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var scheduleExportHeaders = []string{"Position", "Date", "Day", "Start", "End", "Minutes", "Lesson"}

type scheduleReader interface {
	Get(ctx context.Context, studentID, courseID string) (*dto.StudentScheduleResponse, error)
}

type datasetRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportFile is a rendered schedule ready to be served as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ScheduleExportService renders stored schedules as CSV or PDF.
type ScheduleExportService struct {
	schedules scheduleReader
	renderers map[string]datasetRenderer
	logger    *zap.Logger
}

// NewScheduleExportService constructs a ScheduleExportService with the CSV and PDF renderers.
func NewScheduleExportService(schedules scheduleReader, logger *zap.Logger) *ScheduleExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleExportService{
		schedules: schedules,
		renderers: map[string]datasetRenderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// Export renders the persisted schedule in the requested format. An empty format means CSV.
func (s *ScheduleExportService) Export(ctx context.Context, studentID, courseID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	schedule, err := s.schedules.Get(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(scheduleDataset(schedule))
	if err != nil {
		s.logger.Error("render schedule export",
			zap.String("student_id", studentID),
			zap.String("course_id", courseID),
			zap.String("format", format),
			zap.Error(err),
		)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("schedule-%s-%s.%s", studentID, courseID, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func scheduleDataset(schedule *dto.StudentScheduleResponse) export.Dataset {
	rows := make([]map[string]string, 0, len(schedule.Lessons))
	for _, lesson := range schedule.Lessons {
		name := lesson.Title
		if name == "" {
			name = lesson.LessonID
		}
		rows = append(rows, map[string]string{
			"Position": strconv.Itoa(lesson.Position),
			"Date":     lesson.Date,
			"Day":      time.Weekday(lesson.Weekday).String(),
			"Start":    lesson.StartTime,
			"End":      lesson.EndTime,
			"Minutes":  strconv.Itoa(lesson.DurationMinutes),
			"Lesson":   name,
		})
	}

	notes := []string{fmt.Sprintf("Student: %s", schedule.StudentID)}
	if schedule.CourseStart != "" && schedule.CourseEnd != "" {
		notes = append(notes, fmt.Sprintf("Course period: %s to %s", schedule.CourseStart, schedule.CourseEnd))
	}
	if schedule.GeneratedAt != nil {
		notes = append(notes, fmt.Sprintf("Generated: %s", schedule.GeneratedAt.UTC().Format(time.RFC3339)))
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Lesson schedule for course %s", schedule.CourseID),
		Notes:   notes,
		Headers: scheduleExportHeaders,
		Rows:    rows,
	}
}
