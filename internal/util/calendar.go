package util

import (
	"fmt"
	"time"

	"vnstock/internal/domain"
)

// Location is the fixed UTC+7 offset used for every date-derived symbol,
// payload bound, and snapshot stamp, independent of the host timezone.
var Location = time.FixedZone("ICT", 7*60*60)

// DateLayout is the compact date format accepted on the command line.
const DateLayout = "20060102"

// Clock supplies the current time and the blocking delay between requests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock in Location.
type SystemClock struct{}

// Now returns LocalNow().
func (SystemClock) Now() time.Time { return LocalNow() }

// Sleep blocks for d.
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// LocalNow returns the current time in Location.
func LocalNow() time.Time {
	return time.Now().In(Location)
}

// Date returns midnight of the given calendar day in Location.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Location)
}

// DateOf truncates t to midnight of its calendar day as seen in Location.
func DateOf(t time.Time) time.Time {
	t = t.In(Location)
	return Date(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYYMMDD string into a Location-midnight date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", domain.ErrInvalidDate, s, err)
	}
	return t, nil
}

// ThirdThursday returns the expiry date of the given contract month: the
// Thursday of the third calendar week that contains a Thursday.
func ThirdThursday(year int, month time.Month) (time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("%w: month %d", domain.ErrInvalidDate, int(month))
	}
	first := Date(year, month, 1)
	offset := (int(time.Thursday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+14), nil
}

// Expiry returns ThirdThursday for a contract month.
func Expiry(cm domain.ContractMonth) (time.Time, error) {
	return ThirdThursday(cm.Year, cm.Month)
}

// IsBusinessDay reports whether t falls Monday through Friday. There is no
// holiday table.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
