package hydration

import (
	"math"
	"time"
)

const (
	KilogramToPound   = 2.20462262185
	OunceToMilliliter = 29.5735296
	ClockLayout       = "15:04"
)

// DailyTarget computes the daily water goal in milliliters from body weight
// and daily exercise duration. The result is truncated to a whole milliliter.
func DailyTarget(weightKg, exerciseMinutes float64) int {
	ounces := weightKg*KilogramToPound*0.5 + (exerciseMinutes/30)*12
	return int(ounces * OunceToMilliliter)
}

// AwakeHours computes the whole hours between two "HH:MM" times of day,
// rounded to the nearest hour. The result is 0 when the times are equal and
// negative when last is earlier than first; callers reject both before
// building a schedule.
func AwakeHours(first, last string) (int, error) {
	firstTime, err := time.Parse(ClockLayout, first)
	if err != nil {
		return 0, err
	}
	lastTime, err := time.Parse(ClockLayout, last)
	if err != nil {
		return 0, err
	}
	return int(math.Round(lastTime.Sub(firstTime).Seconds() / 3600)), nil
}

// SlotCount is the number of reminders in one awake window, inclusive of
// both endpoints.
func SlotCount(awakeHours, intervalHours int) int {
	return awakeHours/intervalHours + 1
}

// PerSlotAmount splits the daily target evenly across the window's slots.
func PerSlotAmount(dailyTargetML, awakeHours, intervalHours int) float64 {
	return float64(dailyTargetML) / float64(SlotCount(awakeHours, intervalHours))
}
