package store

import (
	"testing"

	"github.com/blueberryplanner/blueberry/internal/model"
)

func TestFamilyCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	_, family := seedFamily(t, db)

	fs := NewFamilyStore(db)
	got, err := fs.GetByID(family.ID)
	if err != nil {
		t.Fatalf("get family: %v", err)
	}
	if got == nil || got.Name != "The Parents" {
		t.Errorf("got = %+v, want The Parents", got)
	}
	if got.Timezone != "America/New_York" {
		t.Errorf("timezone = %q, want America/New_York", got.Timezone)
	}
}

func TestFamilyGetByNameCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	_, family := seedFamily(t, db)

	fs := NewFamilyStore(db)
	got, err := fs.GetByName("the parents")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got == nil || got.ID != family.ID {
		t.Fatalf("expected case-insensitive match, got %+v", got)
	}

	got, err = fs.GetByName("nobody")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown family name")
	}
}

func TestFamilyMembership(t *testing.T) {
	db := newTestDB(t)
	parent, family := seedFamily(t, db)

	us := NewUserStore(db)
	fs := NewFamilyStore(db)

	kid, err := us.Create(NewUser{Name: "Milo", LoginType: model.LoginTypePIN, IsChild: true})
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}
	if _, err := fs.AddMember(family.ID, kid.ID, model.RoleChild); err != nil {
		t.Fatalf("add member: %v", err)
	}

	m, err := fs.GetMembership(family.ID, kid.ID)
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if m == nil || m.Role != model.RoleChild {
		t.Fatalf("membership = %+v, want child role", m)
	}

	m, err = fs.GetMembership(family.ID, "stranger")
	if err != nil {
		t.Fatalf("get membership: %v", err)
	}
	if m != nil {
		t.Error("expected nil membership for non-member")
	}

	members, err := fs.ListMembers(family.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}

	kids, err := fs.ListKids(family.ID)
	if err != nil {
		t.Fatalf("list kids: %v", err)
	}
	if len(kids) != 1 || kids[0].ID != kid.ID {
		t.Fatalf("kids = %+v, want just Milo", kids)
	}
	// The joined rows must carry the user's columns, not family_members'
	// (both tables have id and status).
	if kids[0].Name != "Milo" || kids[0].Status != model.UserStatusActive {
		t.Errorf("kid row = %+v, want user columns", kids[0])
	}
	if !kids[0].IsChild {
		t.Error("kid row lost is_child flag")
	}

	got, err := fs.FamilyForUser(parent.ID)
	if err != nil {
		t.Fatalf("family for user: %v", err)
	}
	if got == nil || got.ID != family.ID {
		t.Fatalf("family for user = %+v, want %s", got, family.ID)
	}
}

func TestFamilyListIDs(t *testing.T) {
	db := newTestDB(t)
	_, family := seedFamily(t, db)

	fs := NewFamilyStore(db)
	ids, err := fs.ListIDs()
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != family.ID {
		t.Fatalf("ids = %v, want [%s]", ids, family.ID)
	}
}
