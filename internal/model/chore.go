package model

import "time"

// Chore statuses. COMPLETED and DONE are both terminal; the original data
// contains both spellings, so every consumer must treat them identically.
const (
	ChoreStatusPending   = "PENDING"
	ChoreStatusCompleted = "COMPLETED"
	ChoreStatusDone      = "DONE"
)

// Chore repeat types.
const (
	RepeatNone    = "NONE"
	RepeatDaily   = "DAILY"
	RepeatWeekly  = "WEEKLY"
	RepeatMonthly = "MONTHLY"
)

type Chore struct {
	ID         string    `json:"id"`
	FamilyID   string    `json:"familyId"`
	Title      string    `json:"title"`
	AssignedTo *string   `json:"assignedTo"`
	DueDate    *string   `json:"dueDate"`
	DueTime    *string   `json:"dueTime"`
	RepeatType string    `json:"repeatType"`
	Status     string    `json:"status"`
	Points     int       `json:"points"`
	CreatedBy  *string   `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IsCompleted reports whether the chore is in a terminal status.
func (c *Chore) IsCompleted() bool {
	return c.Status == ChoreStatusCompleted || c.Status == ChoreStatusDone
}
