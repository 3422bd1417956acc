package store

import (
	"testing"

	"github.com/blueberryplanner/blueberry/internal/model"
)

func TestUserCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)

	email := "jane@example.com"
	hash := "bcrypt-hash"
	age := 34
	user, err := us.Create(NewUser{
		Name:         "Jane",
		Email:        &email,
		LoginType:    model.LoginTypePassword,
		PasswordHash: &hash,
		Age:          &age,
		Avatar:       "🫐",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Name != "Jane" {
		t.Errorf("name = %q, want %q", user.Name, "Jane")
	}
	if user.Email == nil || *user.Email != email {
		t.Errorf("email = %v, want %q", user.Email, email)
	}
	if user.LoginType != model.LoginTypePassword {
		t.Errorf("login_type = %q, want %q", user.LoginType, model.LoginTypePassword)
	}
	if user.Age == nil || *user.Age != 34 {
		t.Errorf("age = %v, want 34", user.Age)
	}
	if user.IsChild {
		t.Error("is_child should default false")
	}
	if user.Status != model.UserStatusActive {
		t.Errorf("status = %q, want ACTIVE", user.Status)
	}

	got, err := us.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got == nil || got.Name != "Jane" {
		t.Errorf("got = %+v, want Jane", got)
	}
}

func TestUserGetByEmailCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)

	email := "Jane@Example.com"
	user, err := us.Create(NewUser{Name: "Jane", Email: &email, LoginType: model.LoginTypePassword})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := us.GetByEmail("jane@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Fatalf("expected lookup to match regardless of case, got %+v", got)
	}

	// The unique constraint is case-insensitive too, so a recased duplicate
	// can't slip past the lookup.
	dup := "JANE@EXAMPLE.COM"
	if _, err := us.Create(NewUser{Name: "Imposter", Email: &dup, LoginType: model.LoginTypePassword}); err == nil {
		t.Error("expected unique violation for recased duplicate email")
	}
}

func TestUserGetByIDNotFound(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)

	got, err := us.GetByID("missing")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent user")
	}
}

func TestUserPINChild(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)

	pin := "pin-hash"
	age := 9
	kid, err := us.Create(NewUser{
		Name:      "Milo",
		LoginType: model.LoginTypePIN,
		PINHash:   &pin,
		Age:       &age,
		IsChild:   true,
	})
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}
	if !kid.IsChild {
		t.Error("is_child should be true")
	}
	if kid.Email != nil {
		t.Errorf("email should be nil, got %v", *kid.Email)
	}
	if kid.PINHash == nil || *kid.PINHash != pin {
		t.Errorf("pin_hash = %v, want %q", kid.PINHash, pin)
	}

	if err := us.UpdatePIN(kid.ID, "new-pin-hash"); err != nil {
		t.Fatalf("update pin: %v", err)
	}
	got, _ := us.GetByID(kid.ID)
	if got.PINHash == nil || *got.PINHash != "new-pin-hash" {
		t.Errorf("pin_hash after update = %v, want new-pin-hash", got.PINHash)
	}
}

func TestUserAddPoints(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)

	user, err := us.Create(NewUser{Name: "Milo", LoginType: model.LoginTypePIN, IsChild: true})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	points, err := us.AddPoints(user.ID, 10)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if points != 10 {
		t.Errorf("points = %d, want 10", points)
	}

	points, err = us.AddPoints(user.ID, -3)
	if err != nil {
		t.Fatalf("add points: %v", err)
	}
	if points != 7 {
		t.Errorf("points = %d, want 7", points)
	}
}

func TestUserSecurityQuestions(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)

	email := "jane@example.com"
	user, err := us.Create(NewUser{Name: "Jane", Email: &email, LoginType: model.LoginTypePassword})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	err = us.SetSecurityQuestions(user.ID, "First pet?", "rex", "Home town?", "portland")
	if err != nil {
		t.Fatalf("set security questions: %v", err)
	}

	got, _ := us.GetByID(user.ID)
	if got.SecurityQuestion1 == nil || *got.SecurityQuestion1 != "First pet?" {
		t.Errorf("question1 = %v, want First pet?", got.SecurityQuestion1)
	}
	if got.SecurityAnswer2 == nil || *got.SecurityAnswer2 != "portland" {
		t.Errorf("answer2 = %v, want portland", got.SecurityAnswer2)
	}
}

func TestUserDelete(t *testing.T) {
	db := newTestDB(t)
	us := NewUserStore(db)

	user, err := us.Create(NewUser{Name: "Gone", LoginType: model.LoginTypePIN})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := us.Delete(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	got, err := us.GetByID(user.ID)
	if err != nil {
		t.Fatalf("get deleted user: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted user")
	}
}
