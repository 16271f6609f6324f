package profile

import "time"

// Default awake window for a freshly created profile.
const (
	DefaultFirstNotification = "08:00"
	DefaultLastNotification  = "22:00"
	DefaultInterval          = 1
)

type Profile struct {
	ID                    string    `json:"id"`
	ClerkID               string    `json:"clerkId"`
	Weight                float64   `json:"weight"`
	ExerciseDuration      float64   `json:"exerciseDuration"`
	WaterAmountPerDay     int       `json:"waterAmountPerDay"`
	WaterAmountPerHour    float64   `json:"waterAmountPerHour"`
	FirstNotificationTime string    `json:"firstNotificationTime"` // HH:MM
	LastNotificationTime  string    `json:"lastNotificationTime"`  // HH:MM
	TimeInterval          int       `json:"timeInterval"`
	NotificationTurnedOn  bool      `json:"notificationTurnedOn"`
	NotifyCredential      *string   `json:"-"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

// Configured reports whether the profile has gone through the body-metrics
// step. A zero daily target gates all scheduling.
func (p *Profile) Configured() bool {
	return p.WaterAmountPerDay > 0
}
