package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blueberryplanner/blueberry/internal/model"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

func (s *FamilyStore) Create(name, createdBy, timezone string) (*model.Family, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO families (id, name, created_by, timezone, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, createdBy, timezone, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	return s.GetByID(id)
}

func (s *FamilyStore) GetByID(id string) (*model.Family, error) {
	row := s.db.QueryRow(`SELECT id, name, created_by, timezone, created_at FROM families WHERE id = ?`, id)
	var f model.Family
	err := row.Scan(&f.ID, &f.Name, &f.CreatedBy, &f.Timezone, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return &f, nil
}

// GetByName performs a case-insensitive lookup, used by kid login where the
// family name is typed by hand.
func (s *FamilyStore) GetByName(name string) (*model.Family, error) {
	row := s.db.QueryRow(
		`SELECT id, name, created_by, timezone, created_at FROM families
		 WHERE name = ? COLLATE NOCASE`, name,
	)
	var f model.Family
	err := row.Scan(&f.ID, &f.Name, &f.CreatedBy, &f.Timezone, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family by name: %w", err)
	}
	return &f, nil
}

// ListIDs returns every family ID, used by the notification refresher.
func (s *FamilyStore) ListIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM families ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list family ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan family id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *FamilyStore) AddMember(familyID, userID, role string) (*model.FamilyMember, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO family_members (id, family_id, user_id, role, status, joined_at)
		 VALUES (?, ?, ?, ?, 'ACTIVE', ?)`,
		id, familyID, userID, role, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert family member: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT id, family_id, user_id, role, status, joined_at FROM family_members WHERE id = ?`, id,
	)
	var m model.FamilyMember
	if err := row.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt); err != nil {
		return nil, fmt.Errorf("get family member: %w", err)
	}
	return &m, nil
}

// GetMembership returns the user's membership row in the family, or nil.
func (s *FamilyStore) GetMembership(familyID, userID string) (*model.FamilyMember, error) {
	row := s.db.QueryRow(
		`SELECT id, family_id, user_id, role, status, joined_at FROM family_members
		 WHERE family_id = ? AND user_id = ?`, familyID, userID,
	)
	var m model.FamilyMember
	err := row.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return &m, nil
}

// memberCols qualifies every user column with the join alias: id and status
// exist on family_members too, and SQLite rejects the bare names as ambiguous.
const memberCols = `u.id, u.name, u.email, u.phone, u.login_type, u.pin_hash, u.password_hash, u.age, u.is_child,
	u.email_verified, u.status, u.avatar, u.chore_points,
	u.security_question_1, u.security_answer_1, u.security_question_2, u.security_answer_2, u.created_at`

// ListMembers returns the users belonging to a family.
func (s *FamilyStore) ListMembers(familyID string) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM users u
		 JOIN family_members fm ON fm.user_id = u.id
		 WHERE fm.family_id = ? ORDER BY u.created_at ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListKids returns the child users of a family.
func (s *FamilyStore) ListKids(familyID string) ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+memberCols+` FROM users u
		 JOIN family_members fm ON fm.user_id = u.id
		 WHERE fm.family_id = ? AND u.is_child = 1 ORDER BY u.name ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()

	var kids []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan kid: %w", err)
		}
		kids = append(kids, *u)
	}
	return kids, rows.Err()
}

// FamilyForUser returns the first family the user belongs to, or nil.
func (s *FamilyStore) FamilyForUser(userID string) (*model.Family, error) {
	row := s.db.QueryRow(
		`SELECT f.id, f.name, f.created_by, f.timezone, f.created_at FROM families f
		 JOIN family_members fm ON fm.family_id = f.id
		 WHERE fm.user_id = ? ORDER BY fm.joined_at ASC LIMIT 1`, userID,
	)
	var f model.Family
	err := row.Scan(&f.ID, &f.Name, &f.CreatedBy, &f.Timezone, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("family for user: %w", err)
	}
	return &f, nil
}
