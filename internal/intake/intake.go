package intake

import "time"

// Intake dates are normalized to a fixed 10:00 marker so one row holds a
// whole calendar day.
const DayMarkerHour = 10

type Intake struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profileId"`
	Date        time.Time `json:"date"`
	TotalAmount float64   `json:"totalAmount"`
}

type LogIntakeRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"` // YYYY-MM-DD
}

// DayAmount is one bar of the monthly history chart.
type DayAmount struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	TotalAmount float64 `json:"totalAmount"`
	ReachedGoal bool    `json:"reachedGoal"`
}

type MonthlyHistoryResponse struct {
	Goal  int         `json:"goal"`
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Days  []DayAmount `json:"days"`
}

// NormalizeDay pins a date to the day marker in the given location.
func NormalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), DayMarkerHour, 0, 0, 0, t.Location())
}
