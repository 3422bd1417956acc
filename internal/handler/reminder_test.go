package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/store"
)

func newReminderHandler(f *fixture) (*ReminderHandler, *store.ReminderStore) {
	reminders := store.NewReminderStore(f.db)
	return NewReminderHandler(reminders, f.families, nil, nil, discard()), reminders
}

func TestReminderCreateInheritsFamilyTimezone(t *testing.T) {
	f := newFixture(t)
	h, _ := newReminderHandler(f)

	body := `{"title": "Soccer practice", "scheduleType": "once", "startTime": "2026-09-01T16:00:00Z"}`
	req := httptest.NewRequest("POST", "/api/families/"+f.family.ID+"/reminders", strings.NewReader(body))
	req.SetPathValue("id", f.family.ID)
	rec := httptest.NewRecorder()
	h.Create(rec, f.asGuardian(req))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created model.Reminder
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Timezone != "America/New_York" {
		t.Errorf("timezone = %q, want family timezone", created.Timezone)
	}
	if !created.IsActive {
		t.Error("new reminders should be active")
	}
}

func TestReminderCreateRejectsOutsideTarget(t *testing.T) {
	f := newFixture(t)
	h, _ := newReminderHandler(f)

	body := `{"title": "Secret", "targetUserIds": ["not-a-member"]}`
	req := httptest.NewRequest("POST", "/api/families/"+f.family.ID+"/reminders", strings.NewReader(body))
	req.SetPathValue("id", f.family.ID)
	rec := httptest.NewRecorder()
	h.Create(rec, f.asGuardian(req))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestReminderListChildSeesTargetedAndUntargeted(t *testing.T) {
	f := newFixture(t)
	h, reminders := newReminderHandler(f)

	if _, err := reminders.Create(store.NewReminder{
		FamilyID: f.family.ID, Title: "For kid", Timezone: "UTC",
		TargetUserIDs: []string{f.kid.ID},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := reminders.Create(store.NewReminder{
		FamilyID: f.family.ID, Title: "For guardian", Timezone: "UTC",
		TargetUserIDs: []string{f.guardian.ID},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := reminders.Create(store.NewReminder{
		FamilyID: f.family.ID, Title: "For everyone", Timezone: "UTC",
	}); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/api/families/"+f.family.ID+"/reminders", nil)
	req.SetPathValue("id", f.family.ID)
	rec := httptest.NewRecorder()
	h.List(rec, f.asKid(req))

	var list []model.Reminder
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 2 {
		t.Fatalf("kid sees %d reminders, want 2: %+v", len(list), list)
	}
	for _, rem := range list {
		if rem.Title == "For guardian" {
			t.Error("kid should not see reminders targeting someone else")
		}
	}
}

func TestReminderUpdateTargets(t *testing.T) {
	f := newFixture(t)
	h, reminders := newReminderHandler(f)

	rem, err := reminders.Create(store.NewReminder{
		FamilyID: f.family.ID, Title: "Retargetable", Timezone: "UTC",
		TargetUserIDs: []string{f.guardian.ID},
	})
	if err != nil {
		t.Fatal(err)
	}

	body := `{"targetUserIds": ["` + f.kid.ID + `"]}`
	req := httptest.NewRequest("PATCH", "/api/reminders/"+rem.ID, strings.NewReader(body))
	req.SetPathValue("id", rem.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, f.asGuardian(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated model.Reminder
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if len(updated.TargetUserIDs) != 1 || updated.TargetUserIDs[0] != f.kid.ID {
		t.Errorf("targets = %v, want only the kid", updated.TargetUserIDs)
	}
}

func TestReminderUpdateClearsEndTimeWithNull(t *testing.T) {
	f := newFixture(t)
	h, reminders := newReminderHandler(f)

	end := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	rem, err := reminders.Create(store.NewReminder{
		FamilyID: f.family.ID, Title: "Bounded", Timezone: "UTC", EndTime: &end,
	})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("PATCH", "/api/reminders/"+rem.ID, strings.NewReader(`{"endTime": null}`))
	req.SetPathValue("id", rem.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, f.asGuardian(req))

	var updated model.Reminder
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.EndTime != nil {
		t.Errorf("endTime = %v, want cleared", updated.EndTime)
	}
}

func TestReminderCrossFamilyNotFound(t *testing.T) {
	f := newFixture(t)
	h, reminders := newReminderHandler(f)

	other, err := f.users.Create(store.NewUser{Name: "Stranger", LoginType: model.LoginTypePassword})
	if err != nil {
		t.Fatal(err)
	}
	otherFam, err := f.families.Create("Other Family", other.ID, "UTC")
	if err != nil {
		t.Fatal(err)
	}
	rem, err := reminders.Create(store.NewReminder{FamilyID: otherFam.ID, Title: "Theirs", Timezone: "UTC"})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("PATCH", "/api/reminders/"+rem.ID, strings.NewReader(`{"title": "hijack"}`))
	req.SetPathValue("id", rem.ID)
	rec := httptest.NewRecorder()
	h.Update(rec, f.asGuardian(req))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
