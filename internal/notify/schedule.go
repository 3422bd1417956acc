package notify

import (
	"fmt"
	"time"

	"github.com/blueberryplanner/blueberry/internal/model"
)

// DefaultSettings is used whenever a user has never saved notification
// preferences. It matches the defaults the settings endpoint reports.
var DefaultSettings = model.NotificationSettings{
	MedicationsEnabled: true,
	MedicationsMinutes: 15,
	ChoresEnabled:      true,
	ChoresMinutes:      30,
	RemindersEnabled:   true,
	RemindersMinutes:   15,
	GroceriesEnabled:   false,
	CalendarEnabled:    true,
	CalendarMinutes:    15,
	PushEnabled:        false,
}

// MedicationTriggers builds triggers for every active medication with a
// schedule, covering a rolling two-day window (today and tomorrow) per
// time-of-day slot. The sink only takes one-shot fire times, not recurring
// rules, so periodic rescheduling keeps the window populated.
func MedicationTriggers(meds []model.Medicine, settings model.NotificationSettings, now time.Time) []Trigger {
	if !settings.MedicationsEnabled {
		return nil
	}

	today := now.Format(dateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(dateLayout)

	var triggers []Trigger
	for _, med := range meds {
		if !med.Active || med.Schedule == nil {
			continue
		}
		for slot, timeOfDay := range med.Schedule.Times {
			baseID := BaseMedication + HashID(med.ID) + slot

			for _, date := range []string{today, tomorrow} {
				at, ok := ProjectLocal(date, timeOfDay, settings.MedicationsMinutes, now)
				if !ok {
					continue
				}

				id := baseID
				if date == tomorrow {
					id += tomorrowOffset
				}

				body := fmt.Sprintf("Time to take %s", med.Name)
				if med.Dosage != "" {
					body = fmt.Sprintf("Time to take %s (%s)", med.Name, med.Dosage)
				}

				triggers = append(triggers, Trigger{
					ID:         id,
					Title:      "💊 Medication Reminder",
					Body:       body,
					FireAt:     at,
					Sound:      "default",
					ActionType: ActionMedication,
					Extra:      Extra{Type: "medication", ID: med.ID},
				})
			}
		}
	}
	return triggers
}

// ChoreTriggers builds one trigger per open chore with a due date. A chore
// without a due time defaults to 08:00.
func ChoreTriggers(chores []model.Chore, settings model.NotificationSettings, now time.Time) []Trigger {
	if !settings.ChoresEnabled {
		return nil
	}

	var triggers []Trigger
	for _, chore := range chores {
		if chore.IsCompleted() || chore.DueDate == nil {
			continue
		}

		timeOfDay := "08:00"
		if chore.DueTime != nil && *chore.DueTime != "" {
			timeOfDay = *chore.DueTime
		}

		at, ok := ProjectLocal(*chore.DueDate, timeOfDay, settings.ChoresMinutes, now)
		if !ok {
			continue
		}

		triggers = append(triggers, Trigger{
			ID:         BaseChore + HashID(chore.ID),
			Title:      "✅ Chore Reminder",
			Body:       fmt.Sprintf("Don't forget: %s", chore.Title),
			FireAt:     at,
			Sound:      "default",
			ActionType: ActionChore,
			Extra:      Extra{Type: "chore", ID: chore.ID},
		})
	}
	return triggers
}

// ReminderTriggers builds one trigger per active reminder with a start time.
func ReminderTriggers(reminders []model.Reminder, settings model.NotificationSettings, now time.Time) []Trigger {
	if !settings.RemindersEnabled {
		return nil
	}

	var triggers []Trigger
	for _, rem := range reminders {
		if !rem.IsActive || rem.StartTime == nil {
			continue
		}

		at, ok := ProjectInstant(*rem.StartTime, settings.RemindersMinutes, now)
		if !ok {
			continue
		}

		body := rem.Title
		if rem.Description != "" {
			body = fmt.Sprintf("%s: %s", rem.Title, rem.Description)
		}

		triggers = append(triggers, Trigger{
			ID:         BaseReminder + HashID(rem.ID),
			Title:      "🔔 Reminder",
			Body:       body,
			FireAt:     at,
			Sound:      "default",
			ActionType: ActionReminder,
			Extra:      Extra{Type: "reminder", ID: rem.ID},
		})
	}
	return triggers
}
