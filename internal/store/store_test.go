package store

import (
	"database/sql"
	"testing"

	"github.com/blueberryplanner/blueberry/internal/database"
	"github.com/blueberryplanner/blueberry/internal/model"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates a guardian user with a family and returns both.
func seedFamily(t *testing.T, db *sql.DB) (*model.User, *model.Family) {
	t.Helper()
	us := NewUserStore(db)
	fs := NewFamilyStore(db)

	email := "parent@example.com"
	hash := "x"
	user, err := us.Create(NewUser{
		Name:         "Parent",
		Email:        &email,
		LoginType:    model.LoginTypePassword,
		PasswordHash: &hash,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	family, err := fs.Create("The Parents", user.ID, "America/New_York")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	if _, err := fs.AddMember(family.ID, user.ID, model.RoleGuardian); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return user, family
}

func strPtr(s string) *string { return &s }
