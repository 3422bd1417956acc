package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blueberryplanner/blueberry/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

const reminderCols = `id, family_id, title, description, type, schedule_type, start_time, end_time, timezone, created_by, is_active, created_at, updated_at`

func scanReminder(scanner interface{ Scan(...any) error }) (*model.Reminder, error) {
	var r model.Reminder
	var start, end sql.NullTime
	var createdBy sql.NullString

	err := scanner.Scan(
		&r.ID, &r.FamilyID, &r.Title, &r.Description, &r.Type, &r.ScheduleType,
		&start, &end, &r.Timezone, &createdBy, &r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if start.Valid {
		r.StartTime = &start.Time
	}
	if end.Valid {
		r.EndTime = &end.Time
	}
	r.CreatedBy = nullStr(createdBy)
	return &r, nil
}

// NewReminder carries the fields needed to create a reminder row.
type NewReminder struct {
	FamilyID      string
	Title         string
	Description   string
	Type          string
	ScheduleType  string
	StartTime     *time.Time
	EndTime       *time.Time
	Timezone      string
	CreatedBy     *string
	TargetUserIDs []string
}

func (s *ReminderStore) Create(nr NewReminder) (*model.Reminder, error) {
	id := uuid.NewString()
	if nr.Type == "" {
		nr.Type = "GENERAL"
	}
	if nr.ScheduleType == "" {
		nr.ScheduleType = "ONCE"
	}
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO reminders (id, family_id, title, description, type, schedule_type, start_time, end_time, timezone, created_by, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		id, nr.FamilyID, nr.Title, nr.Description, nr.Type, nr.ScheduleType,
		nullTimeArg(nr.StartTime), nullTimeArg(nr.EndTime), nr.Timezone, nullArg(nr.CreatedBy), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}

	if len(nr.TargetUserIDs) > 0 {
		if err := s.SetTargets(id, nr.TargetUserIDs); err != nil {
			return nil, err
		}
	}
	return s.GetByID(id)
}

func (s *ReminderStore) GetByID(id string) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}

	targets, err := s.Targets(id)
	if err != nil {
		return nil, err
	}
	r.TargetUserIDs = targets
	return r, nil
}

func (s *ReminderStore) ListByFamily(familyID string) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM reminders WHERE family_id = ? ORDER BY created_at ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()
	return s.collect(rows)
}

// ListByTarget returns the family's reminders that either target the given
// user or target nobody in particular.
func (s *ReminderStore) ListByTarget(familyID, userID string) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM reminders r WHERE r.family_id = ? AND (
		   EXISTS (SELECT 1 FROM reminder_targets t WHERE t.reminder_id = r.id AND t.user_id = ?)
		   OR NOT EXISTS (SELECT 1 FROM reminder_targets t WHERE t.reminder_id = r.id)
		 ) ORDER BY r.created_at ASC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders by target: %w", err)
	}
	defer rows.Close()
	return s.collect(rows)
}

func (s *ReminderStore) collect(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range reminders {
		targets, err := s.Targets(reminders[i].ID)
		if err != nil {
			return nil, err
		}
		reminders[i].TargetUserIDs = targets
	}
	return reminders, nil
}

// ReminderUpdate holds optional field updates.
type ReminderUpdate struct {
	Title        *string
	Description  *string
	ScheduleType *string
	StartTime    *time.Time
	SetStartTime bool
	EndTime      *time.Time
	SetEndTime   bool
	IsActive     *bool
}

func (s *ReminderStore) Update(id string, u ReminderUpdate) (*model.Reminder, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if u.Title != nil {
		existing.Title = *u.Title
	}
	if u.Description != nil {
		existing.Description = *u.Description
	}
	if u.ScheduleType != nil {
		existing.ScheduleType = *u.ScheduleType
	}
	if u.SetStartTime {
		existing.StartTime = u.StartTime
	}
	if u.SetEndTime {
		existing.EndTime = u.EndTime
	}
	if u.IsActive != nil {
		existing.IsActive = *u.IsActive
	}

	_, err = s.db.Exec(
		`UPDATE reminders SET title = ?, description = ?, schedule_type = ?, start_time = ?, end_time = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		existing.Title, existing.Description, existing.ScheduleType,
		nullTimeArg(existing.StartTime), nullTimeArg(existing.EndTime), existing.IsActive, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	return s.GetByID(id)
}

func (s *ReminderStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// SetTargets replaces the reminder's target user set.
func (s *ReminderStore) SetTargets(reminderID string, userIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reminder_targets WHERE reminder_id = ?`, reminderID); err != nil {
		return fmt.Errorf("clear targets: %w", err)
	}
	for _, uid := range userIDs {
		if _, err := tx.Exec(`INSERT INTO reminder_targets (reminder_id, user_id) VALUES (?, ?)`, reminderID, uid); err != nil {
			return fmt.Errorf("insert target: %w", err)
		}
	}
	return tx.Commit()
}

func (s *ReminderStore) Targets(reminderID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT user_id FROM reminder_targets WHERE reminder_id = ?`, reminderID)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
