package ics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
)

type recordingAdder struct {
	added []model.EventInput
	err   error
}

func (a *recordingAdder) AddEvent(in model.EventInput) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.added = append(a.added, in)
	return "id-" + in.Title, nil
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestExportContainsEvents(t *testing.T) {
	events := []model.CalendarEvent{
		{
			ID:          "1704096000000-abc1234",
			Title:       "Standup",
			Start:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
			End:         time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
			Color:       "#3b82f6",
			Description: "Daily sync",
		},
	}

	out := Export(events, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"UID:1704096000000-abc1234",
		"SUMMARY:Standup",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T091500Z",
		"COLOR:blue",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q\n%s", want, out)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	events := []model.CalendarEvent{
		{ID: "a", Title: "Design", Start: mustParse(t, "2024-03-04T10:00:00Z"), End: mustParse(t, "2024-03-04T11:30:00Z"), Color: "#10b981"},
		{ID: "b", Title: "Review", Start: mustParse(t, "2024-03-05T14:00:00Z"), End: mustParse(t, "2024-03-05T14:45:00Z"), Color: "#123456"},
	}

	adder := &recordingAdder{}
	res, err := Import(strings.NewReader(Export(events, time.Now())), adder, "#3b82f6")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.Imported) != 2 || res.Skipped != 0 {
		t.Fatalf("result = %+v, want 2 imported", res)
	}

	for i, in := range adder.added {
		if in.Title != events[i].Title {
			t.Errorf("title[%d] = %q, want %q", i, in.Title, events[i].Title)
		}
		if !mustParse(t, in.Start).Equal(events[i].Start) {
			t.Errorf("start[%d] = %s, want %s", i, in.Start, events[i].Start)
		}
		if !mustParse(t, in.End).Equal(events[i].End) {
			t.Errorf("end[%d] = %s, want %s", i, in.End, events[i].End)
		}
		if in.Color != events[i].Color {
			t.Errorf("color[%d] = %q, want %q", i, in.Color, events[i].Color)
		}
	}
}

const sampleICS = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:no-end\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240102T080000Z\r\n" +
	"SUMMARY:Open ended\r\n" +
	"COLOR:Purple\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:no-start\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"SUMMARY:Broken\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:backwards\r\n" +
	"DTSTAMP:20240101T000000Z\r\n" +
	"DTSTART:20240102T100000Z\r\n" +
	"DTEND:20240102T090000Z\r\n" +
	"SUMMARY:Backwards\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportDefaultsAndSkips(t *testing.T) {
	adder := &recordingAdder{}
	res, err := Import(strings.NewReader(sampleICS), adder, "#6b7280")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(res.Imported) != 1 {
		t.Fatalf("imported = %d, want 1", len(res.Imported))
	}
	if res.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", res.Skipped)
	}

	got := adder.added[0]
	if !mustParse(t, got.End).Equal(mustParse(t, "2024-01-02T09:00:00Z")) {
		t.Errorf("end = %s, want one hour after start", got.End)
	}
	if got.Color != "#a855f7" {
		t.Errorf("color = %q, want purple", got.Color)
	}
}

func TestImportEmptyCalendar(t *testing.T) {
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\nEND:VCALENDAR\r\n"
	_, err := Import(strings.NewReader(body), &recordingAdder{}, "")
	if !errors.Is(err, ErrEmptyCalendar) {
		t.Errorf("err = %v, want ErrEmptyCalendar", err)
	}
}

func TestImportAdderError(t *testing.T) {
	boom := errors.New("boom")
	events := []model.CalendarEvent{{ID: "a", Title: "x", Start: time.Now(), End: time.Now().Add(time.Hour)}}

	_, err := Import(strings.NewReader(Export(events, time.Now())), &recordingAdder{err: boom}, "")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}
