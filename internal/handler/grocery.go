package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blueberryplanner/blueberry/internal/auth"
	"github.com/blueberryplanner/blueberry/internal/grocery"
	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/notify"
	"github.com/blueberryplanner/blueberry/internal/push"
	"github.com/blueberryplanner/blueberry/internal/store"
	"github.com/blueberryplanner/blueberry/internal/websocket"
)

type GroceryHandler struct {
	groceries *store.GroceryStore
	settings  *store.SettingsStore
	subs      *store.PushStore
	pushSvc   *push.Service
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewGroceryHandler(
	groceries *store.GroceryStore,
	settings *store.SettingsStore,
	subs *store.PushStore,
	pushSvc *push.Service,
	hub *websocket.Hub,
	logger *slog.Logger,
) *GroceryHandler {
	return &GroceryHandler{
		groceries: groceries,
		settings:  settings,
		subs:      subs,
		pushSvc:   pushSvc,
		hub:       hub,
		logger:    logger,
	}
}

func (h *GroceryHandler) broadcast(familyID, action, id string) {
	if h.hub != nil {
		h.hub.Broadcast(familyID, websocket.NewMessage("grocery_item", action, id, nil))
	}
}

type groceryItemRequest struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Category string `json:"category"`
	Store    string `json:"store"`
	Notes    string `json:"notes"`
}

func (h *GroceryHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var req groceryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Category == "" {
		req.Category = grocery.Categorize(req.Name)
	}

	item, err := h.groceries.CreateItem(store.NewGroceryItem{
		FamilyID: familyID,
		Name:     req.Name,
		Quantity: req.Quantity,
		Category: req.Category,
		Store:    req.Store,
		Notes:    req.Notes,
		AddedBy:  &ac.UserID,
	})
	if err != nil {
		h.logger.Error("create grocery item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.broadcast(familyID, "created", item.ID)
	h.pushItemAdded(r, item)
	writeJSON(w, http.StatusCreated, item)
}

// pushItemAdded sends an instant notification for a new list item. Grocery
// adds aren't time-based, so they bypass the scheduled-trigger pipeline;
// the groceries_enabled and push_enabled flags both gate the send.
func (h *GroceryHandler) pushItemAdded(r *http.Request, item *model.GroceryItem) {
	if h.pushSvc == nil {
		return
	}
	ac, _ := auth.FromContext(r.Context())

	saved, err := h.settings.Get(ac.UserID, ac.FamilyID)
	if err != nil {
		h.logger.Error("load settings", "error", err)
		return
	}
	settings := notify.DefaultSettings
	if saved != nil {
		settings = *saved
	}
	if !settings.PushEnabled || !settings.GroceriesEnabled {
		return
	}

	subs, err := h.subs.ListByFamily(ac.FamilyID)
	if err != nil {
		h.logger.Error("list subscriptions", "error", err)
		return
	}

	payload := push.Payload{
		Title: "Grocery list updated",
		Body:  item.Name + " was added to the list",
		Type:  "grocery",
		RefID: item.ID,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for i := range subs {
			if err := h.pushSvc.Send(ctx, &subs[i], payload); err != nil {
				h.logger.Debug("grocery push", "error", err)
			}
		}
	}()
}

func (h *GroceryHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	if familyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	items, err := h.groceries.ListItems(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.GroceryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

type groceryItemUpdateRequest struct {
	Name     *string `json:"name"`
	Quantity *string `json:"quantity"`
	Category *string `json:"category"`
	Store    *string `json:"store"`
	Notes    *string `json:"notes"`
	Status   *string `json:"status"`
}

// UpdateItem patches item fields. Flipping status to BOUGHT routes through
// MarkBought so the purchase lands in the buy-again history.
func (h *GroceryHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.groceries.GetItem(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	var req groceryItemUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	buying := req.Status != nil && *req.Status == model.GroceryStatusBought &&
		existing.Status != model.GroceryStatusBought

	var updated *model.GroceryItem
	if buying {
		req.Status = nil
		if _, err := h.groceries.UpdateItem(id, store.GroceryItemUpdate{
			Name: req.Name, Quantity: req.Quantity, Category: req.Category,
			Store: req.Store, Notes: req.Notes,
		}); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to update item")
			return
		}
		updated, err = h.groceries.MarkBought(id)
	} else {
		updated, err = h.groceries.UpdateItem(id, store.GroceryItemUpdate{
			Name: req.Name, Quantity: req.Quantity, Category: req.Category,
			Store: req.Store, Notes: req.Notes, Status: req.Status,
		})
	}
	if err != nil {
		h.logger.Error("update grocery item", "item_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.broadcast(ac.FamilyID, "updated", id)
	writeJSON(w, http.StatusOK, updated)
}

func (h *GroceryHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())

	existing, err := h.groceries.GetItem(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil || existing.FamilyID != ac.FamilyID {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	if err := h.groceries.DeleteItem(id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.broadcast(ac.FamilyID, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *GroceryHandler) ClearBought(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	if familyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	n, err := h.groceries.ClearBought(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear bought items")
		return
	}

	h.broadcast(familyID, "cleared", "")
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": n})
}

// --- Essentials ---

func (h *GroceryHandler) CreateEssential(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Category == "" {
		req.Category = grocery.Categorize(req.Name)
	}

	essential, err := h.groceries.CreateEssential(familyID, &ac.UserID, req.Name, req.Category)
	if err != nil {
		h.logger.Error("create essential", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create essential")
		return
	}
	writeJSON(w, http.StatusCreated, essential)
}

func (h *GroceryHandler) ListEssentials(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	if familyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	essentials, err := h.groceries.ListEssentials(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list essentials")
		return
	}
	if essentials == nil {
		essentials = []model.GroceryEssential{}
	}
	writeJSON(w, http.StatusOK, essentials)
}

func (h *GroceryHandler) DeleteEssential(w http.ResponseWriter, r *http.Request) {
	if err := h.groceries.DeleteEssential(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete essential")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Stores ---

func (h *GroceryHandler) CreateShop(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	ac, _ := auth.FromContext(r.Context())
	if familyID != ac.FamilyID {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	shop, err := h.groceries.CreateShop(familyID, &ac.UserID, req.Name)
	if err != nil {
		h.logger.Error("create store", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create store")
		return
	}
	writeJSON(w, http.StatusCreated, shop)
}

func (h *GroceryHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	if familyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	shops, err := h.groceries.ListShops(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list stores")
		return
	}
	if shops == nil {
		shops = []model.GroceryStore{}
	}
	writeJSON(w, http.StatusOK, shops)
}

func (h *GroceryHandler) DeleteShop(w http.ResponseWriter, r *http.Request) {
	if err := h.groceries.DeleteShop(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete store")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Buy again ---

func (h *GroceryHandler) ListBuyAgain(w http.ResponseWriter, r *http.Request) {
	familyID := r.PathValue("id")
	if familyID != auth.FamilyID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your family")
		return
	}

	entries, err := h.groceries.ListBuyAgain(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if entries == nil {
		entries = []model.GroceryBuyAgain{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *GroceryHandler) UpdateBuyAgain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string `json:"name"`
		Category *string `json:"category"`
		Store    *string `json:"store"`
		Quantity *string `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	err := h.groceries.UpdateBuyAgain(r.PathValue("id"), store.BuyAgainUpdate{
		Name: req.Name, Category: req.Category, Store: req.Store, Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update history entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *GroceryHandler) DeleteBuyAgain(w http.ResponseWriter, r *http.Request) {
	if err := h.groceries.DeleteBuyAgain(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete history entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
