package model

import "time"

type Reminder struct {
	ID            string     `json:"id"`
	FamilyID      string     `json:"familyId"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	ScheduleType  string     `json:"scheduleType"`
	StartTime     *time.Time `json:"startTime"`
	EndTime       *time.Time `json:"endTime"`
	Timezone      string     `json:"timezone"`
	CreatedBy     *string    `json:"createdBy"`
	IsActive      bool       `json:"isActive"`
	TargetUserIDs []string   `json:"targetUserIds,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
