package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/notify"
	"github.com/blueberryplanner/blueberry/internal/push"
	"github.com/blueberryplanner/blueberry/internal/store"
)

type SettingsHandler struct {
	settings  *store.SettingsStore
	refresher *push.Refresher
	logger    *slog.Logger
}

func NewSettingsHandler(settings *store.SettingsStore, refresher *push.Refresher, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, refresher: refresher, logger: logger}
}

// Get returns the session user's notification settings, or the defaults
// when they've never saved any. The response shape is identical either way
// so clients don't special-case first use.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	saved, err := h.settings.Get(ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	if saved == nil {
		defaults := notify.DefaultSettings
		defaults.UserID = ac.UserID
		defaults.FamilyID = ac.FamilyID
		writeJSON(w, http.StatusOK, defaults)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Update upserts the full settings row and kicks the refresher so the new
// lead times and flags take effect without waiting for the next cycle.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req model.NotificationSettings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.MedicationsMinutes < 0 || req.ChoresMinutes < 0 || req.RemindersMinutes < 0 || req.CalendarMinutes < 0 {
		writeError(w, http.StatusBadRequest, "lead minutes cannot be negative")
		return
	}

	saved, err := h.settings.Upsert(ac.UserID, ac.FamilyID, req)
	if err != nil {
		h.logger.Error("upsert settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	if h.refresher != nil {
		h.refresher.Kick(ac.FamilyID)
	}
	writeJSON(w, http.StatusOK, saved)
}
