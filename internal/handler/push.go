package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/push"
	"github.com/blueberryplanner/blueberry/internal/store"
)

type PushHandler struct {
	subs      *store.PushStore
	scheduled *store.ScheduledStore
	service   *push.Service
	refresher *push.Refresher
	logger    *slog.Logger
}

func NewPushHandler(
	subs *store.PushStore,
	scheduled *store.ScheduledStore,
	service *push.Service,
	refresher *push.Refresher,
	logger *slog.Logger,
) *PushHandler {
	return &PushHandler{
		subs:      subs,
		scheduled: scheduled,
		service:   service,
		refresher: refresher,
		logger:    logger,
	}
}

// VAPIDKey returns the public key the browser needs to subscribe.
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.service.VAPIDPublicKey()})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	DeviceName string `json:"deviceName"`
}

// Subscribe registers the browser's push subscription for the session user.
// Registering a device may flip the family's permission probe from default
// to granted, so the refresher gets kicked.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint and keys are required")
		return
	}

	sub, err := h.subs.Create(store.NewPushSubscription{
		UserID:     ac.UserID,
		FamilyID:   ac.FamilyID,
		Endpoint:   req.Endpoint,
		P256dhKey:  req.Keys.P256dh,
		AuthKey:    req.Keys.Auth,
		DeviceName: req.DeviceName,
	})
	if err != nil {
		h.logger.Error("create subscription", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}

	if h.refresher != nil {
		h.refresher.Kick(ac.FamilyID)
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	subs, err := h.subs.ListByUser(ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	subs, err := h.subs.ListByUser(ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check subscription")
		return
	}
	owned := false
	for _, s := range subs {
		if s.ID == id {
			owned = true
			break
		}
	}
	if !owned {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}

	if err := h.subs.Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}

	if h.refresher != nil {
		h.refresher.Kick(ac.FamilyID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Test sends a notification to every one of the session user's devices so
// people can confirm the pipeline end to end.
func (h *PushHandler) Test(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	subs, err := h.subs.ListByUser(ac.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if len(subs) == 0 {
		writeError(w, http.StatusBadRequest, "no devices registered")
		return
	}

	payload := push.Payload{
		Title: "Blueberry Planner",
		Body:  "Push notifications are working!",
		Type:  "test",
	}

	sent := 0
	for i := range subs {
		if err := h.service.Send(r.Context(), &subs[i], payload); err != nil {
			if errors.Is(err, push.ErrExpired) {
				if err := h.subs.DeleteByEndpoint(subs[i].Endpoint); err != nil {
					h.logger.Error("remove expired subscription", "error", err)
				}
				continue
			}
			h.logger.Error("test notification", "error", err)
			continue
		}
		sent++
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

// PendingCount reports how many triggers are queued for the family.
func (h *PushHandler) PendingCount(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	pending, err := h.scheduled.ListByFamily(ac.FamilyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list pending notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"pending": len(pending)})
}
