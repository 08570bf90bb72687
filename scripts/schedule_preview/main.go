package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/scheduler"
)

type windowFixture struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type lessonFixture struct {
	ID              string `json:"id"`
	DurationMinutes int    `json:"durationMinutes"`
	EarliestDate    string `json:"earliestDate"`
}

type fixture struct {
	Start   string          `json:"start"`
	Finish  string          `json:"finish"`
	Windows []windowFixture `json:"windows"`
	Lessons []lessonFixture `json:"lessons"`
}

type input struct {
	windows []scheduler.AvailabilityWindow
	lessons []scheduler.LessonItem
	period  scheduler.CoursePeriod
}

func main() {
	var (
		path          string
		asJSON        bool
		maxIterations int
		allowOverlap  bool
	)

	flag.StringVar(&path, "fixture", "", "Path to JSON fixture (defaults to stdin)")
	flag.BoolVar(&asJSON, "json", false, "Print assignments as JSON")
	flag.IntVar(&maxIterations, "max-iterations", scheduler.DefaultMaxIterations, "Search budget")
	flag.BoolVar(&allowOverlap, "allow-overlap", false, "Accept overlapping windows on the same weekday")
	flag.Parse()

	var src io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("failed to open fixture: %v", err)
		}
		defer f.Close()
		src = f
	}

	in, err := loadFixture(src)
	if err != nil {
		log.Fatalf("invalid fixture: %v", err)
	}

	assignments, err := scheduler.Schedule(in.windows, in.lessons, in.period, scheduler.Options{
		MaxIterations:            maxIterations,
		RejectOverlappingWindows: !allowOverlap,
	})
	if err != nil {
		log.Fatalf("schedule failed: %v", err)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(toRows(assignments)); err != nil {
			log.Fatalf("failed to encode: %v", err)
		}
		return
	}
	printTable(os.Stdout, assignments)
}

func loadFixture(r io.Reader) (*input, error) {
	var fx fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	start, err := scheduler.ParseDate(fx.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	finish, err := scheduler.ParseDate(fx.Finish)
	if err != nil {
		return nil, fmt.Errorf("finish: %w", err)
	}
	in := &input{period: scheduler.CoursePeriod{Start: start, Finish: finish}}

	for i, w := range fx.Windows {
		from, err := scheduler.ParseClock(w.Start)
		if err != nil {
			return nil, fmt.Errorf("windows[%d].start: %w", i, err)
		}
		to, err := scheduler.ParseClock(w.End)
		if err != nil {
			return nil, fmt.Errorf("windows[%d].end: %w", i, err)
		}
		in.windows = append(in.windows, scheduler.AvailabilityWindow{Weekday: time.Weekday(w.Weekday), Start: from, End: to})
	}

	for i, l := range fx.Lessons {
		earliest := start
		if l.EarliestDate != "" {
			if earliest, err = scheduler.ParseDate(l.EarliestDate); err != nil {
				return nil, fmt.Errorf("lessons[%d].earliestDate: %w", i, err)
			}
		}
		in.lessons = append(in.lessons, scheduler.LessonItem{ID: l.ID, DurationMinutes: l.DurationMinutes, EarliestDate: earliest})
	}
	return in, nil
}

type row struct {
	LessonID string `json:"lessonId"`
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Window   int    `json:"window"`
}

func toRows(assignments []scheduler.Assignment) []row {
	rows := make([]row, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, row{
			LessonID: a.LessonID,
			Date:     a.Date.Format("2006-01-02"),
			Weekday:  a.Date.Weekday().String(),
			Start:    a.Start.String(),
			End:      a.End.String(),
			Window:   a.WindowIndex,
		})
	}
	return rows
}

func printTable(w io.Writer, assignments []scheduler.Assignment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLESSON\tDATE\tDAY\tSTART\tEND\tWINDOW")
	for i, r := range toRows(assignments) {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n", i+1, r.LessonID, r.Date, r.Weekday, r.Start, r.End, r.Window)
	}
	tw.Flush()
}
