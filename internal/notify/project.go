package notify

import "time"

const dateLayout = "2006-01-02"

// ProjectLocal converts a calendar date plus an HH:MM time of day into the
// instant the notification should fire: the local date/time minus the lead
// time. It returns false when the inputs do not parse or when the projected
// instant is not strictly in the future; callers skip the record either way.
func ProjectLocal(date, timeOfDay string, leadMinutes int, now time.Time) (time.Time, bool) {
	day, err := time.ParseInLocation(dateLayout, date, now.Location())
	if err != nil {
		return time.Time{}, false
	}
	hhmm, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return time.Time{}, false
	}

	at := time.Date(day.Year(), day.Month(), day.Day(), hhmm.Hour(), hhmm.Minute(), 0, 0, now.Location())
	at = at.Add(-time.Duration(leadMinutes) * time.Minute)

	if !at.After(now) {
		return time.Time{}, false
	}
	return at, true
}

// ProjectInstant applies the lead time to an absolute timestamp, with the
// same past-rejection rule as ProjectLocal.
func ProjectInstant(t time.Time, leadMinutes int, now time.Time) (time.Time, bool) {
	at := t.Add(-time.Duration(leadMinutes) * time.Minute)
	if !at.After(now) {
		return time.Time{}, false
	}
	return at, true
}
