package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/database"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/store"
)

// fixture bundles the stores and seed data shared by handler tests.
type fixture struct {
	db       *sql.DB
	users    *store.UserStore
	families *store.FamilyStore
	sessions *store.SessionStore
	guardian *model.User
	kid      *model.User
	family   *model.Family
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		users:    store.NewUserStore(db),
		families: store.NewFamilyStore(db),
		sessions: store.NewSessionStore(db),
	}

	email := "guardian@example.com"
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	hashStr := string(hash)
	f.guardian, err = f.users.Create(store.NewUser{
		Name: "Guardian", Email: &email,
		LoginType: model.LoginTypePassword, PasswordHash: &hashStr,
	})
	if err != nil {
		t.Fatalf("seed guardian: %v", err)
	}

	f.family, err = f.families.Create("Handler Family", f.guardian.ID, "America/New_York")
	if err != nil {
		t.Fatalf("seed family: %v", err)
	}
	if _, err := f.families.AddMember(f.family.ID, f.guardian.ID, model.RoleGuardian); err != nil {
		t.Fatalf("seed membership: %v", err)
	}

	pinHash, _ := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	pinStr := string(pinHash)
	f.kid, err = f.users.Create(store.NewUser{
		Name: "Kid", LoginType: model.LoginTypePIN, PINHash: &pinStr, IsChild: true,
	})
	if err != nil {
		t.Fatalf("seed kid: %v", err)
	}
	if _, err := f.families.AddMember(f.family.ID, f.kid.ID, model.RoleChild); err != nil {
		t.Fatalf("seed kid membership: %v", err)
	}

	return f
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// asGuardian attaches a guardian auth context to the request.
func (f *fixture) asGuardian(r *http.Request) *http.Request {
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		UserID: f.guardian.ID, FamilyID: f.family.ID,
	})
	return r.WithContext(ctx)
}

// asKid attaches a child auth context to the request.
func (f *fixture) asKid(r *http.Request) *http.Request {
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		UserID: f.kid.ID, FamilyID: f.family.ID, IsChild: true,
	})
	return r.WithContext(ctx)
}
