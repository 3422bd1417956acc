package model

import "time"

// NotificationSettings holds per-user, per-family notification preferences:
// an enable flag and a lead time (minutes before the event) per category.
type NotificationSettings struct {
	ID                 string    `json:"id,omitempty"`
	UserID             string    `json:"userId,omitempty"`
	FamilyID           string    `json:"familyId,omitempty"`
	MedicationsEnabled bool      `json:"medicationsEnabled"`
	MedicationsMinutes int       `json:"medicationsMinutes"`
	ChoresEnabled      bool      `json:"choresEnabled"`
	ChoresMinutes      int       `json:"choresMinutes"`
	RemindersEnabled   bool      `json:"remindersEnabled"`
	RemindersMinutes   int       `json:"remindersMinutes"`
	GroceriesEnabled   bool      `json:"groceriesEnabled"`
	CalendarEnabled    bool      `json:"calendarEnabled"`
	CalendarMinutes    int       `json:"calendarMinutes"`
	PushEnabled        bool      `json:"pushEnabled"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt,omitempty"`
}
