package schedule

import "time"

// Slot is one reminder in a profile's current generation. A generation is
// the full set of slots covering one awake window; it advances as a unit by
// 24 hours once its last slot has fired.
type Slot struct {
	ID               string    `json:"id"`
	ProfileID        string    `json:"profileId"`
	NotificationTime time.Time `json:"notificationTime"`
	ExpectedAmount   int       `json:"expectedAmount"`
	Fired            bool      `json:"fired"`
	IsLast           bool      `json:"isLast"`
}

// DispatchItem is a due slot joined with everything the dispatch pass needs
// to push it: the owner's notify credential and registered device tokens.
type DispatchItem struct {
	SlotID         string
	ProfileID      string
	ExpectedAmount int
	Credential     *string
	DeviceTokens   []string
}

// RolloverItem identifies a generation whose last reminder has been sent and
// which is eligible to move forward a day.
type RolloverItem struct {
	ProfileID            string
	NotificationTurnedOn bool
}
