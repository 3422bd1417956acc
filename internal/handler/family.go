package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/store"
)

type FamilyHandler struct {
	users    *store.UserStore
	families *store.FamilyStore
	logger   *slog.Logger
}

func NewFamilyHandler(users *store.UserStore, families *store.FamilyStore, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{users: users, families: families, logger: logger}
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	family, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load family")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	members, err := h.families.ListMembers(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []model.User{}
	}
	writeJSON(w, http.StatusOK, members)
}

type kidSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// ListKids is the one family endpoint reachable without a session: the kid
// login screen needs the avatar picker before anyone is signed in. It leaks
// only id, name, and avatar.
func (h *FamilyHandler) ListKids(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	kids, err := h.families.ListKids(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list kids")
		return
	}

	out := make([]kidSummary, 0, len(kids))
	for _, k := range kids {
		out = append(out, kidSummary{ID: k.ID, Name: k.Name, Avatar: k.Avatar})
	}
	writeJSON(w, http.StatusOK, out)
}

// UpdatePoints adjusts a member's chore point balance by a delta, used by
// guardians for manual corrections and reward redemptions.
func (h *FamilyHandler) UpdatePoints(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !h.sameFamily(w, r, userID) {
		return
	}

	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	points, err := h.users.AddPoints(userID, req.Delta)
	if err != nil {
		h.logger.Error("update points", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update points")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"chorePoints": points})
}

func (h *FamilyHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !h.sameFamily(w, r, userID) {
		return
	}

	var req struct {
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.users.UpdateAvatar(userID, req.Avatar); err != nil {
		h.logger.Error("update avatar", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update avatar")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"avatar": req.Avatar})
}

// UpdatePIN lets a guardian set or rotate a child's login PIN.
func (h *FamilyHandler) UpdatePIN(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if !h.sameFamily(w, r, userID) {
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.PIN = strings.TrimSpace(req.PIN)
	if !pinPattern.MatchString(req.PIN) {
		writeError(w, http.StatusBadRequest, "pin must be exactly 4 digits")
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if !user.IsChild {
		writeError(w, http.StatusBadRequest, "only child accounts use PINs")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update pin")
		return
	}
	if err := h.users.UpdatePIN(userID, string(hash)); err != nil {
		h.logger.Error("update pin", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update pin")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// sameFamily verifies the target user belongs to the caller's family. It
// writes the error response itself and reports whether to continue.
func (h *FamilyHandler) sameFamily(w http.ResponseWriter, r *http.Request, userID string) bool {
	member, err := h.families.GetMembership(auth.FamilyID(r.Context()), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "membership check failed")
		return false
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "user not found in your family")
		return false
	}
	return true
}
