package chore

import (
	"time"

	"github.com/blueberryplanner/blueberry/internal/model"
)

const dateLayout = "2006-01-02"

// NextDueDate advances a due date by one repeat period. The second return is
// false for non-repeating chores or an unparseable date, meaning the chore
// should stay completed rather than roll over.
func NextDueDate(dueDate, repeatType string) (string, bool) {
	d, err := time.Parse(dateLayout, dueDate)
	if err != nil {
		return "", false
	}

	switch repeatType {
	case model.RepeatDaily:
		d = d.AddDate(0, 0, 1)
	case model.RepeatWeekly:
		d = d.AddDate(0, 0, 7)
	case model.RepeatMonthly:
		d = d.AddDate(0, 1, 0)
	default:
		return "", false
	}
	return d.Format(dateLayout), true
}

// Rollover returns the next occurrence for a completed repeating chore: the
// advanced due date with status reset. Advancing always starts from the
// chore's own due date, so completing early never shifts the cadence.
func Rollover(c *model.Chore) (dueDate string, ok bool) {
	if c.DueDate == nil {
		return "", false
	}
	return NextDueDate(*c.DueDate, c.RepeatType)
}
