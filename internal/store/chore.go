package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blueberryplanner/blueberry/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

const choreCols = `id, family_id, title, assigned_to, due_date, due_time, repeat_type, status, points, created_by, created_at`

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var assignedTo, dueDate, dueTime, createdBy sql.NullString

	err := scanner.Scan(
		&c.ID, &c.FamilyID, &c.Title, &assignedTo, &dueDate, &dueTime,
		&c.RepeatType, &c.Status, &c.Points, &createdBy, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.AssignedTo = nullStr(assignedTo)
	c.DueDate = nullStr(dueDate)
	c.DueTime = nullStr(dueTime)
	c.CreatedBy = nullStr(createdBy)
	return &c, nil
}

// NewChore carries the fields needed to create a chore row.
type NewChore struct {
	FamilyID   string
	Title      string
	AssignedTo *string
	DueDate    *string
	DueTime    *string
	RepeatType string
	Points     int
	CreatedBy  *string
}

func (s *ChoreStore) Create(nc NewChore) (*model.Chore, error) {
	id := uuid.NewString()
	if nc.RepeatType == "" {
		nc.RepeatType = model.RepeatNone
	}

	_, err := s.db.Exec(
		`INSERT INTO chores (id, family_id, title, assigned_to, due_date, due_time, repeat_type, status, points, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'PENDING', ?, ?, ?)`,
		id, nc.FamilyID, nc.Title, nullArg(nc.AssignedTo), nullArg(nc.DueDate), nullArg(nc.DueTime),
		nc.RepeatType, nc.Points, nullArg(nc.CreatedBy), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id string) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

func (s *ChoreStore) ListByFamily(familyID string) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? ORDER BY created_at ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

// ListByAssignee returns the chores assigned to one family member; child
// sessions only ever see this slice.
func (s *ChoreStore) ListByAssignee(familyID, userID string) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE family_id = ? AND assigned_to = ? ORDER BY created_at ASC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by assignee: %w", err)
	}
	defer rows.Close()
	return collectChores(rows)
}

func collectChores(rows *sql.Rows) ([]model.Chore, error) {
	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

// ChoreUpdate holds optional field updates; nil pointers leave the column
// unchanged except AssignedTo/DueDate/DueTime, which use the Set* flags to
// distinguish "clear" from "leave alone".
type ChoreUpdate struct {
	Title         *string
	AssignedTo    *string
	SetAssignedTo bool
	DueDate       *string
	SetDueDate    bool
	DueTime       *string
	SetDueTime    bool
	RepeatType    *string
	Status        *string
	Points        *int
}

func (s *ChoreStore) Update(id string, u ChoreUpdate) (*model.Chore, error) {
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
	if u.SetAssignedTo {
		existing.AssignedTo = u.AssignedTo
	}
	if u.SetDueDate {
		existing.DueDate = u.DueDate
	}
	if u.SetDueTime {
		existing.DueTime = u.DueTime
	}
	if u.RepeatType != nil {
		existing.RepeatType = *u.RepeatType
	}
	if u.Status != nil {
		existing.Status = *u.Status
	}
	if u.Points != nil {
		existing.Points = *u.Points
	}

	_, err = s.db.Exec(
		`UPDATE chores SET title = ?, assigned_to = ?, due_date = ?, due_time = ?, repeat_type = ?, status = ?, points = ?
		 WHERE id = ?`,
		existing.Title, nullArg(existing.AssignedTo), nullArg(existing.DueDate), nullArg(existing.DueTime),
		existing.RepeatType, existing.Status, existing.Points, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}
