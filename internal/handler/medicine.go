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

type MedicineHandler struct {
	medicines *store.MedicineStore
	families  *store.FamilyStore
	hub       *websocket.Hub
	refresher *push.Refresher
	logger    *slog.Logger
}

func NewMedicineHandler(
	medicines *store.MedicineStore,
	families *store.FamilyStore,
	hub *websocket.Hub,
	refresher *push.Refresher,
	logger *slog.Logger,
) *MedicineHandler {
	return &MedicineHandler{
		medicines: medicines,
		families:  families,
		hub:       hub,
		refresher: refresher,
		logger:    logger,
	}
}

func (h *MedicineHandler) notifyChanged(familyID, action, id string) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("medicine", action, id, nil))
	}
	if h.refresher != nil {
		h.refresher.Kick(familyID)
	}
}

type medicineRequest struct {
	Name       string                  `json:"name"`
	Dosage     string                  `json:"dosage"`
	Schedule   *model.MedicineSchedule `json:"schedule"`
	AssignedTo *string                 `json:"assignedTo"`
	Active     *bool                   `json:"active"`
	Inventory  int                     `json:"inventory"`
	StartDate  *string                 `json:"startDate"`
	EndDate    *string                 `json:"endDate"`
}

func validateSchedule(s *model.MedicineSchedule) bool {
	if s == nil {
		return true
	}
	for _, t := range s.Times {
		if _, err := time.Parse("15:04", t); err != nil {
			return false
		}
	}
	return true
}

func (h *MedicineHandler) Create(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var req medicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !validateSchedule(req.Schedule) {
		writeError(w, http.StatusBadRequest, "schedule times must be HH:MM")
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

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	med, err := h.medicines.Create(store.NewMedicine{
		FamilyID:   familyID,
		Name:       req.Name,
		Dosage:     req.Dosage,
		Schedule:   req.Schedule,
		AssignedTo: req.AssignedTo,
		Active:     active,
		Inventory:  req.Inventory,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		CreatedBy:  &ac.UserID,
	})
	if err != nil {
		h.logger.Error("create medicine", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create medicine")
		return
	}

	h.notifyChanged(familyID, "created", med.ID)
	writeJSON(w, http.StatusCreated, med)
}

// List returns the family's medicines. Child sessions only see medicines
// assigned to them.
func (h *MedicineHandler) List(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var meds []model.Medicine
	var err error
	if ac.IsChild {
		meds, err = h.medicines.ListByAssignee(familyID, ac.UserID)
	} else {
		meds, err = h.medicines.ListByFamily(familyID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list medicines")
		return
	}
	if meds == nil {
		meds = []model.Medicine{}
	}
	writeJSON(w, http.StatusOK, meds)
}

func (h *MedicineHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.medicines.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get medicine")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "medicine not found")
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	var req struct {
		Name       *string                 `json:"name"`
		Dosage     *string                 `json:"dosage"`
		Schedule   *model.MedicineSchedule `json:"schedule"`
		AssignedTo *string                 `json:"assignedTo"`
		Active     *bool                   `json:"active"`
		Inventory  *int                    `json:"inventory"`
	}
	if err := unmarshalFields(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !validateSchedule(req.Schedule) {
		writeError(w, http.StatusBadRequest, "schedule times must be HH:MM")
		return
	}

	upd := store.MedicineUpdate{
		Name:      req.Name,
		Dosage:    req.Dosage,
		Active:    req.Active,
		Inventory: req.Inventory,
	}
	if _, ok := raw["schedule"]; ok {
		upd.Schedule = req.Schedule
		upd.SetSchedule = true
	}
	if _, ok := raw["assignedTo"]; ok {
		upd.AssignedTo = req.AssignedTo
		upd.SetAssigned = true
	}

	updated, err := h.medicines.Update(id, upd)
	if err != nil {
		h.logger.Error("update medicine", "medicine_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update medicine")
		return
	}

	h.notifyChanged(ac.FamilyID, "updated", id)
	writeJSON(w, http.StatusOK, updated)
}

func (h *MedicineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.medicines.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get medicine")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "medicine not found")
		return
	}

	if err := h.medicines.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete medicine")
		return
	}

	h.notifyChanged(ac.FamilyID, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Logs ---

type medicineLogRequest struct {
	MedicineID    string  `json:"medicineId"`
	TakenBy       *string `json:"takenBy"`
	TakenAt       *string `json:"takenAt"`
	ScheduledTime string  `json:"scheduledTime"`
	Status        string  `json:"status"`
}

// CreateLog records a dose as taken or skipped. MarkedBy is always the
// session user; TakenBy defaults to the medicine's assignee.
func (h *MedicineHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var req medicineLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Status != "" && req.Status != model.MedicineLogTaken && req.Status != model.MedicineLogSkipped {
		writeError(w, http.StatusBadRequest, "status must be TAKEN or SKIPPED")
		return
	}

	med, err := h.medicines.GetByID(req.MedicineID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get medicine")
		return
	}
	if med == nil || med.FamilyID != familyID {
		writeError(w, http.StatusBadRequest, "medicine not found in this family")
		return
	}

	takenAt := time.Now().UTC()
	if req.TakenAt != nil {
		parsed, err := time.Parse(time.RFC3339, *req.TakenAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "takenAt must be RFC 3339")
			return
		}
		takenAt = parsed
	}

	takenBy := req.TakenBy
	if takenBy == nil {
		takenBy = med.AssignedTo
	}

	log, err := h.medicines.CreateLog(store.NewMedicineLog{
		FamilyID:      familyID,
		MedicineID:    req.MedicineID,
		TakenBy:       takenBy,
		MarkedBy:      &ac.UserID,
		TakenAt:       takenAt,
		ScheduledTime: req.ScheduledTime,
		Status:        req.Status,
	})
	if err != nil {
		h.logger.Error("create medicine log", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record dose")
		return
	}

	// Taking a dose decrements the medicine's remaining inventory.
	if log.Status == model.MedicineLogTaken && med.Inventory > 0 {
		inv := med.Inventory - 1
		if _, err := h.medicines.Update(med.ID, store.MedicineUpdate{Inventory: &inv}); err != nil {
			h.logger.Error("decrement inventory", "medicine_id", med.ID, "error", err)
		}
	}

	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("medicine_log", "created", log.ID, nil))
	}
	writeJSON(w, http.StatusCreated, log)
}

func (h *MedicineHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	if familyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	logs, err := h.medicines.ListLogs(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}
	if logs == nil {
		logs = []model.MedicineLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}
