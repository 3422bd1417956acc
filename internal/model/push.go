package model

import "time"

type PushSubscription struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	FamilyID   string    `json:"familyId"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dhKey"`
	AuthKey    string    `json:"authKey"`
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
}
