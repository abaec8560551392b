package timeaxis

import (
	"testing"
	"time"

	"github.com/dukerupert/timegrid/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestWeekDays(t *testing.T) {
	// 2024-01-03 is a Wednesday.
	days := WeekDays(date(2024, 1, 3), time.Sunday)
	if len(days) != 7 {
		t.Fatalf("len = %d, want 7", len(days))
	}
	if !days[0].Equal(date(2023, 12, 31)) {
		t.Errorf("first = %v, want 2023-12-31", days[0])
	}
	if !days[6].Equal(date(2024, 1, 6)) {
		t.Errorf("last = %v, want 2024-01-06", days[6])
	}

	monday := WeekDays(date(2024, 1, 3), time.Monday)
	if !monday[0].Equal(date(2024, 1, 1)) {
		t.Errorf("monday start = %v, want 2024-01-01", monday[0])
	}
}

func TestMonthGrid(t *testing.T) {
	days := MonthGrid(date(2024, 2, 14), time.Sunday)
	if len(days)%7 != 0 {
		t.Fatalf("len = %d, want multiple of 7", len(days))
	}
	if !days[0].Equal(date(2024, 1, 28)) {
		t.Errorf("first = %v, want 2024-01-28", days[0])
	}
	if !days[len(days)-1].Equal(date(2024, 3, 2)) {
		t.Errorf("last = %v, want 2024-03-02", days[len(days)-1])
	}
}

func TestTimeSlots(t *testing.T) {
	slots := TimeSlots(date(2024, 1, 1).Add(13 * time.Hour))
	if len(slots) != 96 {
		t.Fatalf("len = %d, want 96", len(slots))
	}
	if !slots[0].Equal(date(2024, 1, 1)) {
		t.Errorf("first slot = %v", slots[0])
	}
	if got := slots[95].Format("15:04"); got != "23:45" {
		t.Errorf("last slot = %s, want 23:45", got)
	}
}

func TestShift(t *testing.T) {
	tests := []struct {
		view model.View
		in   time.Time
		n    int
		want time.Time
	}{
		{model.ViewDay, date(2024, 1, 31), 1, date(2024, 2, 1)},
		{model.ViewWeek, date(2024, 1, 31), -1, date(2024, 1, 24)},
		{model.ViewMonth, date(2024, 1, 31), 1, date(2024, 2, 29)},
		{model.ViewMonth, date(2024, 3, 15), -2, date(2024, 1, 15)},
	}
	for _, tt := range tests {
		if got := Shift(tt.view, tt.in, tt.n); !got.Equal(tt.want) {
			t.Errorf("Shift(%s, %v, %d) = %v, want %v", tt.view, tt.in, tt.n, got, tt.want)
		}
	}
}

func TestVisibleDays(t *testing.T) {
	d := date(2024, 1, 3).Add(10 * time.Hour)
	if got := VisibleDays(model.ViewDay, d, time.Sunday); len(got) != 1 || !got[0].Equal(date(2024, 1, 3)) {
		t.Errorf("day view = %v", got)
	}
	if got := VisibleDays(model.ViewWeek, d, time.Sunday); len(got) != 7 {
		t.Errorf("week view len = %d", len(got))
	}
	if got := VisibleDays(model.ViewMonth, d, time.Sunday); len(got) < 28 {
		t.Errorf("month view len = %d", len(got))
	}
}
