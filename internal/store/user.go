package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blueberryplanner/blueberry/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userCols = `id, name, email, phone, login_type, pin_hash, password_hash, age, is_child,
	email_verified, status, avatar, chore_points,
	security_question_1, security_answer_1, security_question_2, security_answer_2, created_at`

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var email, phone, pinHash, passwordHash sql.NullString
	var q1, a1, q2, a2 sql.NullString
	var age sql.NullInt64

	err := scanner.Scan(
		&u.ID, &u.Name, &email, &phone, &u.LoginType, &pinHash, &passwordHash, &age, &u.IsChild,
		&u.EmailVerified, &u.Status, &u.Avatar, &u.ChorePoints,
		&q1, &a1, &q2, &a2, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Email = nullStr(email)
	u.Phone = nullStr(phone)
	u.PINHash = nullStr(pinHash)
	u.PasswordHash = nullStr(passwordHash)
	u.SecurityQuestion1 = nullStr(q1)
	u.SecurityAnswer1 = nullStr(a1)
	u.SecurityQuestion2 = nullStr(q2)
	u.SecurityAnswer2 = nullStr(a2)
	if age.Valid {
		v := int(age.Int64)
		u.Age = &v
	}
	return &u, nil
}

// NewUser carries the fields needed to create a user row.
type NewUser struct {
	Name         string
	Email        *string
	LoginType    string
	PINHash      *string
	PasswordHash *string
	Age          *int
	IsChild      bool
	Avatar       string
}

func (s *UserStore) Create(nu NewUser) (*model.User, error) {
	id := uuid.NewString()
	var age sql.NullInt64
	if nu.Age != nil {
		age = sql.NullInt64{Int64: int64(*nu.Age), Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO users (id, name, email, login_type, pin_hash, password_hash, age, is_child, avatar, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nu.Name, nullArg(nu.Email), nu.LoginType, nullArg(nu.PINHash), nullArg(nu.PasswordHash),
		age, nu.IsChild, nu.Avatar, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ? COLLATE NOCASE`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) UpdatePassword(id, passwordHash string) error {
	_, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *UserStore) UpdatePIN(id, pinHash string) error {
	_, err := s.db.Exec(`UPDATE users SET pin_hash = ? WHERE id = ?`, pinHash, id)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	return nil
}

func (s *UserStore) UpdateAvatar(id, avatar string) error {
	_, err := s.db.Exec(`UPDATE users SET avatar = ? WHERE id = ?`, avatar, id)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return nil
}

// AddPoints adjusts a user's chore point balance by delta and returns the
// new balance.
func (s *UserStore) AddPoints(id string, delta int) (int, error) {
	_, err := s.db.Exec(`UPDATE users SET chore_points = chore_points + ? WHERE id = ?`, delta, id)
	if err != nil {
		return 0, fmt.Errorf("add points: %w", err)
	}
	var points int
	if err := s.db.QueryRow(`SELECT chore_points FROM users WHERE id = ?`, id).Scan(&points); err != nil {
		return 0, fmt.Errorf("read points: %w", err)
	}
	return points, nil
}

func (s *UserStore) SetEmailVerified(id string) error {
	_, err := s.db.Exec(`UPDATE users SET email_verified = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("set email verified: %w", err)
	}
	return nil
}

// SetSecurityQuestions stores both questions with normalized answers.
// Answers must already be lower-cased and trimmed by the caller.
func (s *UserStore) SetSecurityQuestions(id, q1, a1, q2, a2 string) error {
	_, err := s.db.Exec(
		`UPDATE users SET security_question_1 = ?, security_answer_1 = ?,
		 security_question_2 = ?, security_answer_2 = ? WHERE id = ?`,
		q1, a1, q2, a2, id,
	)
	if err != nil {
		return fmt.Errorf("set security questions: %w", err)
	}
	return nil
}

func (s *UserStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func nullArg(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTimeArg(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
