package model

import "time"

// Grocery item statuses.
const (
	GroceryStatusNeeded = "NEEDED"
	GroceryStatusBought = "BOUGHT"
)

type GroceryItem struct {
	ID            string    `json:"id"`
	FamilyID      string    `json:"familyId"`
	Name          string    `json:"name"`
	Quantity      string    `json:"quantity"`
	Category      string    `json:"category"`
	Store         string    `json:"store"`
	Notes         string    `json:"notes"`
	Status        string    `json:"status"`
	PurchaseCount int       `json:"purchaseCount"`
	AddedBy       *string   `json:"addedBy"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// GroceryEssential is a family staple kept on a quick re-add list.
type GroceryEssential struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	UserID    *string   `json:"userId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"createdAt"`
}

type GroceryStore struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	UserID    *string   `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroceryBuyAgain records previously purchased items so they can be
// re-added with one tap. PurchaseCount increments on every repurchase.
type GroceryBuyAgain struct {
	ID            string    `json:"id"`
	FamilyID      string    `json:"familyId"`
	UserID        *string   `json:"userId"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Store         string    `json:"store"`
	Quantity      string    `json:"quantity"`
	PurchaseCount int       `json:"purchaseCount"`
	LastPurchased time.Time `json:"lastPurchased"`
}
