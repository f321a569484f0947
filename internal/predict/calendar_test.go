package predict

import (
	"testing"
	"time"
)

func TestDaysSince(t *testing.T) {
	today := time.Date(2025, 10, 17, 0, 0, 0, 0, planTimezone)

	if got := DaysSince(nil, today); got != 0 {
		t.Fatalf("DaysSince(nil) = %d, want 0", got)
	}

	six := today.AddDate(0, 0, -6)
	if got := DaysSince(&six, today); got != 6 {
		t.Fatalf("DaysSince(6 days ago) = %d, want 6", got)
	}

	future := today.AddDate(0, 0, 2)
	if got := DaysSince(&future, today); got != 0 {
		t.Fatalf("DaysSince(future date) = %d, want clamp to 0", got)
	}
}

func TestDaysSinceIgnoresTimeOfDay(t *testing.T) {
	today := time.Date(2025, 10, 17, 0, 0, 0, 0, planTimezone)
	lateYesterday := time.Date(2025, 10, 16, 23, 55, 0, 0, planTimezone)
	if got := DaysSince(&lateYesterday, today); got != 1 {
		t.Fatalf("DaysSince(23:55 yesterday) = %d, want 1 civil day", got)
	}
}

func TestCivilDateTruncates(t *testing.T) {
	instant := time.Date(2025, 10, 17, 18, 30, 12, 0, planTimezone)
	got := CivilDate(instant)
	want := time.Date(2025, 10, 17, 0, 0, 0, 0, planTimezone)
	if !got.Equal(want) {
		t.Fatalf("CivilDate = %v, want %v", got, want)
	}
}
