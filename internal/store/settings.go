package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blueberryplanner/blueberry/internal/model"
)

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

const settingsCols = `id, user_id, family_id, medications_enabled, medications_minutes,
	chores_enabled, chores_minutes, reminders_enabled, reminders_minutes,
	groceries_enabled, calendar_enabled, calendar_minutes, push_enabled, created_at, updated_at`

func scanSettings(scanner interface{ Scan(...any) error }) (*model.NotificationSettings, error) {
	var ns model.NotificationSettings
	err := scanner.Scan(
		&ns.ID, &ns.UserID, &ns.FamilyID, &ns.MedicationsEnabled, &ns.MedicationsMinutes,
		&ns.ChoresEnabled, &ns.ChoresMinutes, &ns.RemindersEnabled, &ns.RemindersMinutes,
		&ns.GroceriesEnabled, &ns.CalendarEnabled, &ns.CalendarMinutes, &ns.PushEnabled,
		&ns.CreatedAt, &ns.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ns, nil
}

// Get returns the stored settings for a user in a family, or nil when the
// user has never saved any. Callers fall back to notify.DefaultSettings.
func (s *SettingsStore) Get(userID, familyID string) (*model.NotificationSettings, error) {
	row := s.db.QueryRow(
		`SELECT `+settingsCols+` FROM notification_settings WHERE user_id = ? AND family_id = ?`,
		userID, familyID,
	)
	ns, err := scanSettings(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return ns, nil
}

// Upsert writes the full settings row for a user in a family, creating it on
// first save.
func (s *SettingsStore) Upsert(userID, familyID string, ns model.NotificationSettings) (*model.NotificationSettings, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO notification_settings (id, user_id, family_id,
		   medications_enabled, medications_minutes, chores_enabled, chores_minutes,
		   reminders_enabled, reminders_minutes, groceries_enabled,
		   calendar_enabled, calendar_minutes, push_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, family_id) DO UPDATE SET
		   medications_enabled = excluded.medications_enabled,
		   medications_minutes = excluded.medications_minutes,
		   chores_enabled = excluded.chores_enabled,
		   chores_minutes = excluded.chores_minutes,
		   reminders_enabled = excluded.reminders_enabled,
		   reminders_minutes = excluded.reminders_minutes,
		   groceries_enabled = excluded.groceries_enabled,
		   calendar_enabled = excluded.calendar_enabled,
		   calendar_minutes = excluded.calendar_minutes,
		   push_enabled = excluded.push_enabled,
		   updated_at = excluded.updated_at`,
		uuid.NewString(), userID, familyID,
		ns.MedicationsEnabled, ns.MedicationsMinutes, ns.ChoresEnabled, ns.ChoresMinutes,
		ns.RemindersEnabled, ns.RemindersMinutes, ns.GroceriesEnabled,
		ns.CalendarEnabled, ns.CalendarMinutes, ns.PushEnabled, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert settings: %w", err)
	}
	return s.Get(userID, familyID)
}
