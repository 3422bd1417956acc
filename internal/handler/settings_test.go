package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/notify"
	"github.com/blueberryplanner/blueberry/internal/store"
)

func newSettingsHandler(f *fixture) *SettingsHandler {
	return NewSettingsHandler(store.NewSettingsStore(f.db), nil, discard())
}

func TestSettingsGetReturnsDefaultsWhenUnsaved(t *testing.T) {
	f := newFixture(t)
	h := newSettingsHandler(f)

	req := httptest.NewRequest("GET", "/api/notification-settings", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, f.asGuardian(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got model.NotificationSettings
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.UserID != f.guardian.ID || got.FamilyID != f.family.ID {
		t.Errorf("ids = %q/%q", got.UserID, got.FamilyID)
	}
	if got.MedicationsMinutes != notify.DefaultSettings.MedicationsMinutes {
		t.Errorf("medicationsMinutes = %d, want default %d",
			got.MedicationsMinutes, notify.DefaultSettings.MedicationsMinutes)
	}
	if got.PushEnabled {
		t.Error("push should default to off")
	}
}

func TestSettingsUpdateRoundTrip(t *testing.T) {
	f := newFixture(t)
	h := newSettingsHandler(f)

	body := `{
		"pushEnabled": true,
		"medicationsEnabled": true, "medicationsMinutes": 10,
		"choresEnabled": true, "choresMinutes": 45,
		"remindersEnabled": false, "remindersMinutes": 15,
		"calendarEnabled": true, "calendarMinutes": 20,
		"groceriesEnabled": true
	}`
	req := httptest.NewRequest("POST", "/api/notification-settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Update(rec, f.asGuardian(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/notification-settings", nil)
	rec = httptest.NewRecorder()
	h.Get(rec, f.asGuardian(req))

	var got model.NotificationSettings
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.PushEnabled || got.ChoresMinutes != 45 || got.RemindersEnabled {
		t.Errorf("settings = %+v", got)
	}
}

func TestSettingsUpdateRejectsNegativeMinutes(t *testing.T) {
	f := newFixture(t)
	h := newSettingsHandler(f)

	req := httptest.NewRequest("POST", "/api/notification-settings",
		strings.NewReader(`{"choresMinutes": -5}`))
	rec := httptest.NewRecorder()
	h.Update(rec, f.asGuardian(req))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSettingsArePerUser(t *testing.T) {
	f := newFixture(t)
	h := newSettingsHandler(f)

	req := httptest.NewRequest("POST", "/api/notification-settings",
		strings.NewReader(`{"pushEnabled": true, "choresMinutes": 45}`))
	rec := httptest.NewRecorder()
	h.Update(rec, f.asGuardian(req))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// The kid never saved settings, so they still see the defaults.
	req = httptest.NewRequest("GET", "/api/notification-settings", nil)
	rec = httptest.NewRecorder()
	h.Get(rec, f.asKid(req))

	var got model.NotificationSettings
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.PushEnabled {
		t.Error("guardian's settings leaked to the kid")
	}
}
