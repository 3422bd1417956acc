package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/push"
	"github.com/blueberryplanner/blueberry/internal/store"
	"github.com/blueberryplanner/blueberry/internal/websocket"
)

type ReminderHandler struct {
	reminders *store.ReminderStore
	families  *store.FamilyStore
	hub       *websocket.Hub
	refresher *push.Refresher
	logger    *slog.Logger
}

func NewReminderHandler(
	reminders *store.ReminderStore,
	families *store.FamilyStore,
	hub *websocket.Hub,
	refresher *push.Refresher,
	logger *slog.Logger,
) *ReminderHandler {
	return &ReminderHandler{
		reminders: reminders,
		families:  families,
		hub:       hub,
		refresher: refresher,
		logger:    logger,
	}
}

func (h *ReminderHandler) notifyChanged(familyID, action, id string) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("reminder", action, id, nil))
	}
	if h.refresher != nil {
		h.refresher.Kick(familyID)
	}
}

type reminderRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	ScheduleType  string     `json:"scheduleType"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Timezone      string     `json:"timezone"`
	TargetUserIDs []string   `json:"targetUserIds"`
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if req.Timezone == "" {
		family, err := h.families.GetByID(familyID)
		if err != nil || family == nil {
			writeError(w, http.StatusInternalServerError, "failed to load family")
			return
		}
		req.Timezone = family.Timezone
	}

	for _, uid := range req.TargetUserIDs {
		member, err := h.families.GetMembership(familyID, uid)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check targets")
			return
		}
		if member == nil {
			writeError(w, http.StatusBadRequest, "target user is not in this family")
			return
		}
	}

	reminder, err := h.reminders.Create(store.NewReminder{
		FamilyID:      familyID,
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		ScheduleType:  req.ScheduleType,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Timezone:      req.Timezone,
		CreatedBy:     &ac.UserID,
		TargetUserIDs: req.TargetUserIDs,
	})
	if err != nil {
		h.logger.Error("create reminder", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reminder")
		return
	}

	h.notifyChanged(familyID, "created", reminder.ID)
	writeJSON(w, http.StatusCreated, reminder)
}

// List returns the family's reminders. Child sessions only see reminders
// targeting them or targeting nobody in particular.
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var reminders []model.Reminder
	var err error
	if ac.IsChild {
		reminders, err = h.reminders.ListByTarget(familyID, ac.UserID)
	} else {
		reminders, err = h.reminders.ListByFamily(familyID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list reminders")
		return
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.reminders.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reminder")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var req struct {
		Title         *string    `json:"title"`
		Description   *string    `json:"description"`
		ScheduleType  *string    `json:"scheduleType"`
		StartTime     *time.Time `json:"startTime"`
		EndTime       *time.Time `json:"endTime"`
		IsActive      *bool      `json:"isActive"`
		TargetUserIDs []string   `json:"targetUserIds"`
	}
	if err := unmarshalFields(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	upd := store.ReminderUpdate{
		Title:        req.Title,
		Description:  req.Description,
		ScheduleType: req.ScheduleType,
		IsActive:     req.IsActive,
	}
	if _, ok := raw["startTime"]; ok {
		upd.StartTime = req.StartTime
		upd.SetStartTime = true
	}
	if _, ok := raw["endTime"]; ok {
		upd.EndTime = req.EndTime
		upd.SetEndTime = true
	}

	updated, err := h.reminders.Update(id, upd)
	if err != nil {
		h.logger.Error("update reminder", "reminder_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update reminder")
		return
	}

	if _, ok := raw["targetUserIds"]; ok {
		if err := h.reminders.SetTargets(id, req.TargetUserIDs); err != nil {
			h.logger.Error("set reminder targets", "reminder_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update targets")
			return
		}
		updated, err = h.reminders.GetByID(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to reload reminder")
			return
		}
	}

	h.notifyChanged(ac.FamilyID, "updated", id)
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.reminders.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get reminder")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	if err := h.reminders.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete reminder")
		return
	}

	h.notifyChanged(ac.FamilyID, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
