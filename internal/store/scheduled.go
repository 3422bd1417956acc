package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/blueberryplanner/blueberry/internal/notify"
)

// ScheduledStore persists pending notification triggers per family. It backs
// the push sink: rows replace the device-local alarm table a mobile client
// would keep.
type ScheduledStore struct {
	db *sql.DB
}

func NewScheduledStore(db *sql.DB) *ScheduledStore {
	return &ScheduledStore{db: db}
}

// Insert writes the triggers, replacing any existing row with the same
// trigger ID. Scheduling over an existing ID is an overwrite, not an error.
func (s *ScheduledStore) Insert(familyID string, triggers []notify.Trigger) error {
	if len(triggers) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, t := range triggers {
		_, err := tx.Exec(
			`INSERT INTO scheduled_notifications (trigger_id, family_id, title, body, fire_at, sound, action_type, extra_type, extra_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(family_id, trigger_id) DO UPDATE SET
			   title = excluded.title,
			   body = excluded.body,
			   fire_at = excluded.fire_at,
			   sound = excluded.sound,
			   action_type = excluded.action_type,
			   extra_type = excluded.extra_type,
			   extra_id = excluded.extra_id,
			   created_at = excluded.created_at`,
			t.ID, familyID, t.Title, t.Body, t.FireAt.UTC(), t.Sound, t.ActionType,
			t.Extra.Type, t.Extra.ID, now,
		)
		if err != nil {
			return fmt.Errorf("insert scheduled notification: %w", err)
		}
	}
	return tx.Commit()
}

// Cancel deletes the family's rows with the given trigger IDs. Unknown IDs
// are ignored.
func (s *ScheduledStore) Cancel(familyID string, ids []int) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, familyID)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.Exec(
		`DELETE FROM scheduled_notifications WHERE family_id = ? AND trigger_id IN (`+placeholders+`)`, args...,
	)
	if err != nil {
		return fmt.Errorf("cancel scheduled notifications: %w", err)
	}
	return nil
}

// ListByFamily returns the family's pending triggers ordered by ID.
func (s *ScheduledStore) ListByFamily(familyID string) ([]notify.Trigger, error) {
	rows, err := s.db.Query(
		`SELECT trigger_id, title, body, fire_at, sound, action_type, extra_type, extra_id
		 FROM scheduled_notifications WHERE family_id = ? ORDER BY trigger_id ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scheduled notifications: %w", err)
	}
	defer rows.Close()

	var triggers []notify.Trigger
	for rows.Next() {
		var t notify.Trigger
		if err := rows.Scan(&t.ID, &t.Title, &t.Body, &t.FireAt, &t.Sound, &t.ActionType, &t.Extra.Type, &t.Extra.ID); err != nil {
			return nil, fmt.Errorf("scan scheduled notification: %w", err)
		}
		triggers = append(triggers, t)
	}
	return triggers, rows.Err()
}

// DueTrigger pairs a fired trigger with the family it belongs to.
type DueTrigger struct {
	FamilyID string
	Trigger  notify.Trigger
}

// ListDue returns every trigger whose fire time has passed, oldest first.
// The dispatcher delivers these and then deletes them.
func (s *ScheduledStore) ListDue(now time.Time) ([]DueTrigger, error) {
	rows, err := s.db.Query(
		`SELECT family_id, trigger_id, title, body, fire_at, sound, action_type, extra_type, extra_id
		 FROM scheduled_notifications WHERE fire_at <= ? ORDER BY fire_at ASC`, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()

	var due []DueTrigger
	for rows.Next() {
		var d DueTrigger
		t := &d.Trigger
		if err := rows.Scan(&d.FamilyID, &t.ID, &t.Title, &t.Body, &t.FireAt, &t.Sound, &t.ActionType, &t.Extra.Type, &t.Extra.ID); err != nil {
			return nil, fmt.Errorf("scan due notification: %w", err)
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// Delete removes one trigger row after delivery.
func (s *ScheduledStore) Delete(familyID string, triggerID int) error {
	_, err := s.db.Exec(
		`DELETE FROM scheduled_notifications WHERE family_id = ? AND trigger_id = ?`, familyID, triggerID,
	)
	if err != nil {
		return fmt.Errorf("delete scheduled notification: %w", err)
	}
	return nil
}
