package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// Reminder dates and times are entered as Colombo wall-clock time.
	civilOffsetSeconds = 5*3600 + 30*60
)

var civilZone = time.FixedZone("+05:30", civilOffsetSeconds)

// CivilZone returns the fixed +05:30 zone used for reminder display strings.
func CivilZone() *time.Location {
	return civilZone
}

// ToAbsoluteInstant interprets localDate (YYYY-MM-DD) and localTime (HH:mm)
// as wall-clock time at a static +05:30 offset and returns the instant in UTC.
func ToAbsoluteInstant(localDate, localTime string) (time.Time, error) {
	localDate = strings.TrimSpace(localDate)
	localTime = strings.TrimSpace(localTime)

	d, err := time.ParseInLocation(dateLayout, localDate, civilZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: expected YYYY-MM-DD", ErrInvalidTimeFormat, localDate)
	}
	t, err := time.ParseInLocation(timeLayout, localTime, civilZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q: expected HH:mm", ErrInvalidTimeFormat, localTime)
	}

	instant := time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, civilZone)
	return instant.UTC(), nil
}
