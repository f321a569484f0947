package predict

import "time"

// All civil-day arithmetic runs in a single fixed timezone so that "today"
// is stable regardless of server locale.
var planTimezone = mustLoadLocation("Asia/Kolkata")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// Now returns the current instant in the plan timezone.
func Now() time.Time {
	return time.Now().In(planTimezone)
}

// Today returns the current civil date (midnight) in the plan timezone.
func Today() time.Time {
	return CivilDate(Now())
}

// CivilDate truncates an instant to its civil date in the plan timezone.
func CivilDate(t time.Time) time.Time {
	t = t.In(planTimezone)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, planTimezone)
}

// DaysSince returns the whole civil days elapsed between last and today,
// clamped at zero. A nil last date counts as zero elapsed days; "never
// studied" is handled by the due-date check, not here.
func DaysSince(last *time.Time, today time.Time) int {
	if last == nil {
		return 0
	}
	from := CivilDate(*last)
	to := CivilDate(today)
	days := int(to.Sub(from).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
