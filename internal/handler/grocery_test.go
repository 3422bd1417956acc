package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blueberryplanner/blueberry/internal/model"
	"github.com/blueberryplanner/blueberry/internal/store"
)

func newGroceryHandler(f *fixture) (*GroceryHandler, *store.GroceryStore) {
	groceries := store.NewGroceryStore(f.db)
	settings := store.NewSettingsStore(f.db)
	subs := store.NewPushStore(f.db)
	return NewGroceryHandler(groceries, settings, subs, nil, nil, discard()), groceries
}

func (f *fixture) createItem(t *testing.T, h *GroceryHandler, body string) *model.GroceryItem {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/families/"+f.family.ID+"/groceries", strings.NewReader(body))
	req.SetPathValue("id", f.family.ID)
	rec := httptest.NewRecorder()
	h.CreateItem(rec, f.asGuardian(req))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var item model.GroceryItem
	json.Unmarshal(rec.Body.Bytes(), &item)
	return &item
}

func TestGroceryCreateAutoCategorizes(t *testing.T) {
	f := newFixture(t)
	h, _ := newGroceryHandler(f)

	item := f.createItem(t, h, `{"name": "Milk", "quantity": "1 gallon"}`)
	if item.Category != "Dairy" {
		t.Errorf("category = %q, want Dairy", item.Category)
	}
	if item.Status != model.GroceryStatusNeeded {
		t.Errorf("status = %q, want %q", item.Status, model.GroceryStatusNeeded)
	}

	// An explicit category wins over the guess.
	item = f.createItem(t, h, `{"name": "Milk", "category": "Beverages"}`)
	if item.Category != "Beverages" {
		t.Errorf("category = %q, want Beverages", item.Category)
	}
}

func TestGroceryMarkBoughtRecordsBuyAgain(t *testing.T) {
	f := newFixture(t)
	h, groceries := newGroceryHandler(f)

	item := f.createItem(t, h, `{"name": "Bananas", "store": "Corner Market", "quantity": "6"}`)

	req := httptest.NewRequest("PATCH", "/api/groceries/"+item.ID, strings.NewReader(`{"status": "BOUGHT"}`))
	req.SetPathValue("id", item.ID)
	rec := httptest.NewRecorder()
	h.UpdateItem(rec, f.asGuardian(req))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated model.GroceryItem
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.Status != model.GroceryStatusBought {
		t.Errorf("status = %q, want BOUGHT", updated.Status)
	}
	if updated.PurchaseCount != 1 {
		t.Errorf("purchaseCount = %d, want 1", updated.PurchaseCount)
	}

	entries, err := groceries.ListBuyAgain(f.family.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("buy-again entries = %d, want 1", len(entries))
	}
	if entries[0].Name != "Bananas" || entries[0].Store != "Corner Market" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestGroceryMarkBoughtIdempotent(t *testing.T) {
	f := newFixture(t)
	h, groceries := newGroceryHandler(f)

	item := f.createItem(t, h, `{"name": "Eggs"}`)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("PATCH", "/api/groceries/"+item.ID, strings.NewReader(`{"status": "BOUGHT"}`))
		req.SetPathValue("id", item.ID)
		rec := httptest.NewRecorder()
		h.UpdateItem(rec, f.asGuardian(req))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d on attempt %d", rec.Code, i)
		}
	}

	// The second PATCH is a no-op status-wise, so the purchase only counts once.
	got, _ := groceries.GetItem(item.ID)
	if got.PurchaseCount != 1 {
		t.Errorf("purchaseCount = %d, want 1", got.PurchaseCount)
	}
	entries, _ := groceries.ListBuyAgain(f.family.ID)
	if len(entries) != 1 {
		t.Errorf("buy-again entries = %d, want 1", len(entries))
	}
}

func TestGroceryClearBought(t *testing.T) {
	f := newFixture(t)
	h, groceries := newGroceryHandler(f)

	bought := f.createItem(t, h, `{"name": "Bread"}`)
	f.createItem(t, h, `{"name": "Jam"}`)
	if _, err := groceries.MarkBought(bought.ID); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api/families/"+f.family.ID+"/groceries/clear-bought", nil)
	req.SetPathValue("id", f.family.ID)
	rec := httptest.NewRecorder()
	h.ClearBought(rec, f.asGuardian(req))

	var resp map[string]int64
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["cleared"] != 1 {
		t.Errorf("cleared = %d, want 1", resp["cleared"])
	}

	items, _ := groceries.ListItems(f.family.ID)
	if len(items) != 1 || items[0].Name != "Jam" {
		t.Errorf("remaining items = %+v", items)
	}
}

func TestGroceryCrossFamilyItemNotFound(t *testing.T) {
	f := newFixture(t)
	h, groceries := newGroceryHandler(f)

	other, err := f.users.Create(store.NewUser{Name: "Stranger", LoginType: model.LoginTypePassword})
	if err != nil {
		t.Fatal(err)
	}
	otherFam, err := f.families.Create("Other Family", other.ID, "UTC")
	if err != nil {
		t.Fatal(err)
	}
	item, err := groceries.CreateItem(store.NewGroceryItem{FamilyID: otherFam.ID, Name: "Theirs"})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("PATCH", "/api/groceries/"+item.ID, strings.NewReader(`{"name": "hijack"}`))
	req.SetPathValue("id", item.ID)
	rec := httptest.NewRecorder()
	h.UpdateItem(rec, f.asGuardian(req))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGroceryEssentials(t *testing.T) {
	f := newFixture(t)
	h, _ := newGroceryHandler(f)

	req := httptest.NewRequest("POST", "/api/families/"+f.family.ID+"/grocery-essentials",
		strings.NewReader(`{"name": "Butter"}`))
	req.SetPathValue("id", f.family.ID)
	rec := httptest.NewRecorder()
	h.CreateEssential(rec, f.asGuardian(req))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var essential model.GroceryEssential
	json.Unmarshal(rec.Body.Bytes(), &essential)
	if essential.Category != "Dairy" {
		t.Errorf("category = %q, want Dairy", essential.Category)
	}

	req = httptest.NewRequest("GET", "/api/families/"+f.family.ID+"/grocery-essentials", nil)
	req.SetPathValue("id", f.family.ID)
	rec = httptest.NewRecorder()
	h.ListEssentials(rec, f.asGuardian(req))

	var list []model.GroceryEssential
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list) != 1 {
		t.Fatalf("essentials = %d, want 1", len(list))
	}

	req = httptest.NewRequest("DELETE", "/api/grocery-essentials/"+essential.ID, nil)
	req.SetPathValue("id", essential.ID)
	rec = httptest.NewRecorder()
	h.DeleteEssential(rec, f.asGuardian(req))
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
}

func TestGroceryStores(t *testing.T) {
	f := newFixture(t)
	h, _ := newGroceryHandler(f)

	req := httptest.NewRequest("POST", "/api/families/"+f.family.ID+"/grocery-stores",
		strings.NewReader(`{"name": "Corner Market"}`))
	req.SetPathValue("id", f.family.ID)
	rec := httptest.NewRecorder()
	h.CreateShop(rec, f.asGuardian(req))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/families/"+f.family.ID+"/grocery-stores", nil)
	req.SetPathValue("id", f.family.ID)
	rec = httptest.NewRecorder()
	h.ListShops(rec, f.asGuardian(req))

	var shops []model.GroceryStore
	json.Unmarshal(rec.Body.Bytes(), &shops)
	if len(shops) != 1 || shops[0].Name != "Corner Market" {
		t.Errorf("shops = %+v", shops)
	}
}

func TestGroceryFamilyMismatchForbidden(t *testing.T) {
	f := newFixture(t)
	h, _ := newGroceryHandler(f)

	req := httptest.NewRequest("GET", "/api/families/some-other-family/groceries", nil)
	req.SetPathValue("id", "some-other-family")
	rec := httptest.NewRecorder()
	h.ListItems(rec, f.asGuardian(req))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
