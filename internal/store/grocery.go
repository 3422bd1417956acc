package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blueberryplanner/blueberry/internal/model"
)

type GroceryStore struct {
	db *sql.DB
}

func NewGroceryStore(db *sql.DB) *GroceryStore {
	return &GroceryStore{db: db}
}

const groceryItemCols = `id, family_id, name, quantity, category, store, notes, status, purchase_count, added_by, updated_at`

func scanGroceryItem(scanner interface{ Scan(...any) error }) (*model.GroceryItem, error) {
	var g model.GroceryItem
	var addedBy sql.NullString

	err := scanner.Scan(
		&g.ID, &g.FamilyID, &g.Name, &g.Quantity, &g.Category, &g.Store,
		&g.Notes, &g.Status, &g.PurchaseCount, &addedBy, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	g.AddedBy = nullStr(addedBy)
	return &g, nil
}

// NewGroceryItem carries the fields needed to create a grocery item row.
type NewGroceryItem struct {
	FamilyID string
	Name     string
	Quantity string
	Category string
	Store    string
	Notes    string
	AddedBy  *string
}

func (s *GroceryStore) CreateItem(ni NewGroceryItem) (*model.GroceryItem, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO grocery_items (id, family_id, name, quantity, category, store, notes, status, added_by, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 'NEEDED', ?, ?)`,
		id, ni.FamilyID, ni.Name, ni.Quantity, ni.Category, ni.Store, ni.Notes,
		nullArg(ni.AddedBy), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert grocery item: %w", err)
	}
	return s.GetItem(id)
}

func (s *GroceryStore) GetItem(id string) (*model.GroceryItem, error) {
	row := s.db.QueryRow(`SELECT `+groceryItemCols+` FROM grocery_items WHERE id = ?`, id)
	g, err := scanGroceryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery item: %w", err)
	}
	return g, nil
}

func (s *GroceryStore) ListItems(familyID string) ([]model.GroceryItem, error) {
	rows, err := s.db.Query(
		`SELECT `+groceryItemCols+` FROM grocery_items WHERE family_id = ? ORDER BY updated_at DESC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list grocery items: %w", err)
	}
	defer rows.Close()

	var items []model.GroceryItem
	for rows.Next() {
		g, err := scanGroceryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grocery item: %w", err)
		}
		items = append(items, *g)
	}
	return items, rows.Err()
}

// MarkBought flips an item to BOUGHT, bumps its purchase count, and records
// the purchase in the buy-again history.
func (s *GroceryStore) MarkBought(id string) (*model.GroceryItem, error) {
	item, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}

	_, err = s.db.Exec(
		`UPDATE grocery_items SET status = 'BOUGHT', purchase_count = purchase_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark bought: %w", err)
	}

	if err := s.RecordPurchase(item.FamilyID, item.AddedBy, item.Name, item.Category, item.Store, item.Quantity); err != nil {
		return nil, err
	}
	return s.GetItem(id)
}

// GroceryItemUpdate holds optional field updates.
type GroceryItemUpdate struct {
	Name     *string
	Quantity *string
	Category *string
	Store    *string
	Notes    *string
	Status   *string
}

func (s *GroceryStore) UpdateItem(id string, u GroceryItemUpdate) (*model.GroceryItem, error) {
	existing, err := s.GetItem(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if u.Name != nil {
		existing.Name = *u.Name
	}
	if u.Quantity != nil {
		existing.Quantity = *u.Quantity
	}
	if u.Category != nil {
		existing.Category = *u.Category
	}
	if u.Store != nil {
		existing.Store = *u.Store
	}
	if u.Notes != nil {
		existing.Notes = *u.Notes
	}
	if u.Status != nil {
		existing.Status = *u.Status
	}

	_, err = s.db.Exec(
		`UPDATE grocery_items SET name = ?, quantity = ?, category = ?, store = ?, notes = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		existing.Name, existing.Quantity, existing.Category, existing.Store, existing.Notes,
		existing.Status, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update grocery item: %w", err)
	}
	return s.GetItem(id)
}

func (s *GroceryStore) DeleteItem(id string) error {
	_, err := s.db.Exec(`DELETE FROM grocery_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete grocery item: %w", err)
	}
	return nil
}

// ClearBought removes every bought item from the family's list.
func (s *GroceryStore) ClearBought(familyID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM grocery_items WHERE family_id = ? AND status = 'BOUGHT'`, familyID)
	if err != nil {
		return 0, fmt.Errorf("clear bought: %w", err)
	}
	return res.RowsAffected()
}

// --- Essentials ---

func (s *GroceryStore) CreateEssential(familyID string, userID *string, name, category string) (*model.GroceryEssential, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO grocery_essentials (id, family_id, user_id, name, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, familyID, nullArg(userID), name, category, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert essential: %w", err)
	}

	row := s.db.QueryRow(`SELECT id, family_id, user_id, name, category, created_at FROM grocery_essentials WHERE id = ?`, id)
	return scanEssential(row)
}

func scanEssential(scanner interface{ Scan(...any) error }) (*model.GroceryEssential, error) {
	var e model.GroceryEssential
	var userID sql.NullString
	if err := scanner.Scan(&e.ID, &e.FamilyID, &userID, &e.Name, &e.Category, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan essential: %w", err)
	}
	e.UserID = nullStr(userID)
	return &e, nil
}

func (s *GroceryStore) ListEssentials(familyID string) ([]model.GroceryEssential, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, user_id, name, category, created_at FROM grocery_essentials
		 WHERE family_id = ? ORDER BY name ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list essentials: %w", err)
	}
	defer rows.Close()

	var essentials []model.GroceryEssential
	for rows.Next() {
		e, err := scanEssential(rows)
		if err != nil {
			return nil, err
		}
		essentials = append(essentials, *e)
	}
	return essentials, rows.Err()
}

func (s *GroceryStore) DeleteEssential(id string) error {
	_, err := s.db.Exec(`DELETE FROM grocery_essentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete essential: %w", err)
	}
	return nil
}

// --- Stores ---

func (s *GroceryStore) CreateShop(familyID string, userID *string, name string) (*model.GroceryStore, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO grocery_stores (id, family_id, user_id, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, familyID, nullArg(userID), name, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert store: %w", err)
	}

	row := s.db.QueryRow(`SELECT id, family_id, user_id, name, created_at FROM grocery_stores WHERE id = ?`, id)
	var shop model.GroceryStore
	var uid sql.NullString
	if err := row.Scan(&shop.ID, &shop.FamilyID, &uid, &shop.Name, &shop.CreatedAt); err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	shop.UserID = nullStr(uid)
	return &shop, nil
}

func (s *GroceryStore) ListShops(familyID string) ([]model.GroceryStore, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, user_id, name, created_at FROM grocery_stores WHERE family_id = ? ORDER BY name ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var shops []model.GroceryStore
	for rows.Next() {
		var shop model.GroceryStore
		var uid sql.NullString
		if err := rows.Scan(&shop.ID, &shop.FamilyID, &uid, &shop.Name, &shop.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		shop.UserID = nullStr(uid)
		shops = append(shops, shop)
	}
	return shops, rows.Err()
}

func (s *GroceryStore) DeleteShop(id string) error {
	_, err := s.db.Exec(`DELETE FROM grocery_stores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	return nil
}

// --- Buy again ---

// RecordPurchase upserts the buy-again row for the item name, incrementing
// its purchase count on repeat buys.
func (s *GroceryStore) RecordPurchase(familyID string, userID *string, name, category, shop, quantity string) error {
	_, err := s.db.Exec(
		`INSERT INTO grocery_buy_again (id, family_id, user_id, name, category, store, quantity, purchase_count, last_purchased)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT(family_id, name) DO UPDATE SET
		   purchase_count = purchase_count + 1,
		   last_purchased = excluded.last_purchased,
		   category = excluded.category,
		   store = excluded.store,
		   quantity = excluded.quantity`,
		uuid.NewString(), familyID, nullArg(userID), name, category, shop, quantity, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record purchase: %w", err)
	}
	return nil
}

// ListBuyAgain returns the family's purchase history, most-bought first.
func (s *GroceryStore) ListBuyAgain(familyID string) ([]model.GroceryBuyAgain, error) {
	rows, err := s.db.Query(
		`SELECT id, family_id, user_id, name, category, store, quantity, purchase_count, last_purchased
		 FROM grocery_buy_again WHERE family_id = ? ORDER BY purchase_count DESC, last_purchased DESC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list buy again: %w", err)
	}
	defer rows.Close()

	var entries []model.GroceryBuyAgain
	for rows.Next() {
		var b model.GroceryBuyAgain
		var uid sql.NullString
		if err := rows.Scan(&b.ID, &b.FamilyID, &uid, &b.Name, &b.Category, &b.Store, &b.Quantity, &b.PurchaseCount, &b.LastPurchased); err != nil {
			return nil, fmt.Errorf("scan buy again: %w", err)
		}
		b.UserID = nullStr(uid)
		entries = append(entries, b)
	}
	return entries, rows.Err()
}

// BuyAgainUpdate holds optional field updates for a history entry.
type BuyAgainUpdate struct {
	Name     *string
	Category *string
	Store    *string
	Quantity *string
}

func (s *GroceryStore) UpdateBuyAgain(id string, u BuyAgainUpdate) error {
	existing := struct {
		name, category, store, quantity string
	}{}
	row := s.db.QueryRow(`SELECT name, category, store, quantity FROM grocery_buy_again WHERE id = ?`, id)
	err := row.Scan(&existing.name, &existing.category, &existing.store, &existing.quantity)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get buy again: %w", err)
	}

	if u.Name != nil {
		existing.name = *u.Name
	}
	if u.Category != nil {
		existing.category = *u.Category
	}
	if u.Store != nil {
		existing.store = *u.Store
	}
	if u.Quantity != nil {
		existing.quantity = *u.Quantity
	}

	_, err = s.db.Exec(
		`UPDATE grocery_buy_again SET name = ?, category = ?, store = ?, quantity = ? WHERE id = ?`,
		existing.name, existing.category, existing.store, existing.quantity, id,
	)
	if err != nil {
		return fmt.Errorf("update buy again: %w", err)
	}
	return nil
}

func (s *GroceryStore) DeleteBuyAgain(id string) error {
	_, err := s.db.Exec(`DELETE FROM grocery_buy_again WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete buy again: %w", err)
	}
	return nil
}
