package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/chore"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/push"
	"github.com/blueberryplanner/blueberry/internal/store"
	"github.com/blueberryplanner/blueberry/internal/websocket"
)

type ChoreHandler struct {
	chores    *store.ChoreStore
	users     *store.UserStore
	families  *store.FamilyStore
	hub       *websocket.Hub
	refresher *push.Refresher
	logger    *slog.Logger
}

func NewChoreHandler(
	chores *store.ChoreStore,
	users *store.UserStore,
	families *store.FamilyStore,
	hub *websocket.Hub,
	refresher *push.Refresher,
	logger *slog.Logger,
) *ChoreHandler {
	return &ChoreHandler{
		chores:    chores,
		users:     users,
		families:  families,
		hub:       hub,
		refresher: refresher,
		logger:    logger,
	}
}

func (h *ChoreHandler) notifyChanged(familyID, action, id string) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("chore", action, id, nil))
	}
	if h.refresher != nil {
		h.refresher.Kick(familyID)
	}
}

type choreRequest struct {
	Title      string  `json:"title"`
	AssignedTo *string `json:"assignedTo"`
	DueDate    *string `json:"dueDate"`
	DueTime    *string `json:"dueTime"`
	RepeatType string  `json:"repeatType"`
	Points     int     `json:"points"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if req.AssignedTo != nil {
		member, err := h.families.GetMembership(familyID, *req.AssignedTo)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check assignee")
			return
		}
		if member == nil {
			writeError(w, http.StatusBadRequest, "assignee is not in this family")
			return
		}
	}

	created, err := h.chores.Create(store.NewChore{
		FamilyID:   familyID,
		Title:      req.Title,
		AssignedTo: req.AssignedTo,
		DueDate:    req.DueDate,
		DueTime:    req.DueTime,
		RepeatType: req.RepeatType,
		Points:     req.Points,
		CreatedBy:  &ac.UserID,
	})
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create chore")
		return
	}

	h.notifyChanged(familyID, "created", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// List returns the family's chores. Child sessions only see chores assigned
// to them.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var chores []model.Chore
	var err error
	if ac.IsChild {
		chores, err = h.chores.ListByAssignee(familyID, ac.UserID)
	} else {
		chores, err = h.chores.ListByFamily(familyID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chores")
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

type choreUpdateRequest struct {
	Title      *string `json:"title"`
	AssignedTo *string `json:"assignedTo"`
	DueDate    *string `json:"dueDate"`
	DueTime    *string `json:"dueTime"`
	RepeatType *string `json:"repeatType"`
	Status     *string `json:"status"`
	Points     *int    `json:"points"`
}

// Update patches chore fields. Moving the status to a completed value awards
// the chore's points to its assignee; a repeating chore then rolls over to
// its next due date instead of staying completed.
func (h *ChoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}
	if ac.IsChild && (existing.AssignedTo == nil || *existing.AssignedTo != ac.UserID) {
		writeError(w, http.StatusForbidden, "not your chore")
		return
	}

	// Raw map first: a field set to null means "clear", an absent field
	// means "leave alone". A typed struct can't tell the two apart.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var req choreUpdateRequest
	if err := unmarshalFields(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	upd := store.ChoreUpdate{
		Title:      req.Title,
		RepeatType: req.RepeatType,
		Status:     req.Status,
		Points:     req.Points,
	}
	// Children can only flip status on their own chore.
	if ac.IsChild {
		upd = store.ChoreUpdate{Status: req.Status}
	} else {
		if _, ok := raw["assignedTo"]; ok {
			upd.AssignedTo = req.AssignedTo
			upd.SetAssignedTo = true
		}
		if _, ok := raw["dueDate"]; ok {
			upd.DueDate = req.DueDate
			upd.SetDueDate = true
		}
		if _, ok := raw["dueTime"]; ok {
			upd.DueTime = req.DueTime
			upd.SetDueTime = true
		}
	}

	completing := req.Status != nil && !existing.IsCompleted() &&
		(*req.Status == model.ChoreStatusCompleted || *req.Status == model.ChoreStatusDone)

	updated, err := h.chores.Update(id, upd)
	if err != nil {
		h.logger.Error("update chore", "chore_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update chore")
		return
	}

	if completing {
		updated = h.completeChore(updated)
	}

	h.notifyChanged(ac.FamilyID, "updated", id)
	writeJSON(w, http.StatusOK, updated)
}

// completeChore awards points and rolls repeating chores to their next
// occurrence. Returns the chore as it stands after the rollover.
func (h *ChoreHandler) completeChore(c *model.Chore) *model.Chore {
	if c.AssignedTo != nil && c.Points > 0 {
		if _, err := h.users.AddPoints(*c.AssignedTo, c.Points); err != nil {
			h.logger.Error("award points", "chore_id", c.ID, "error", err)
		}
	}

	nextDue, ok := chore.Rollover(c)
	if !ok {
		return c
	}

	pending := model.ChoreStatusPending
	rolled, err := h.chores.Update(c.ID, store.ChoreUpdate{
		Status:     &pending,
		DueDate:    &nextDue,
		SetDueDate: true,
	})
	if err != nil {
		h.logger.Error("roll over chore", "chore_id", c.ID, "error", err)
		return c
	}
	return rolled
}

func (h *ChoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.chores.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get chore")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "chore not found")
		return
	}

	if err := h.chores.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete chore")
		return
	}

	h.notifyChanged(ac.FamilyID, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
