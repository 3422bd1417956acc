package model

import "time"

// Medicine log statuses.
const (
	MedicineLogTaken   = "TAKEN"
	MedicineLogSkipped = "SKIPPED"
)

// MedicineSchedule describes when a medicine is taken. Times are local
// HH:MM strings, e.g. ["08:00", "20:00"].
type MedicineSchedule struct {
	Type  string   `json:"type"`
	Times []string `json:"times"`
}

type Medicine struct {
	ID         string            `json:"id"`
	FamilyID   string            `json:"familyId"`
	Name       string            `json:"name"`
	Dosage     string            `json:"dosage"`
	Schedule   *MedicineSchedule `json:"schedule"`
	AssignedTo *string           `json:"assignedTo"`
	Active     bool              `json:"active"`
	Inventory  int               `json:"inventory"`
	StartDate  *string           `json:"startDate"`
	EndDate    *string           `json:"endDate"`
	CreatedBy  *string           `json:"createdBy"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type MedicineLog struct {
	ID            string    `json:"id"`
	FamilyID      string    `json:"familyId"`
	MedicineID    string    `json:"medicineId"`
	TakenBy       *string   `json:"takenBy"`
	MarkedBy      *string   `json:"markedBy"`
	TakenAt       time.Time `json:"takenAt"`
	ScheduledTime string    `json:"scheduledTime"`
	Status        string    `json:"status"`
}
