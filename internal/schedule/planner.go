package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"aquaholicAPI/internal/hydration"
	"aquaholicAPI/internal/profile"
)

var (
	// ErrEmptyWindow rejects identical or inverted first/last times.
	ErrEmptyWindow = errors.New("awake window must span at least one hour")
	// ErrInvalidInterval rejects non-positive reminder intervals.
	ErrInvalidInterval = errors.New("reminder interval must be at least one hour")
	// ErrNotConfigured rejects planning before the daily target exists.
	ErrNotConfigured = errors.New("profile has no daily water target yet")
)

// BuildGeneration produces the ordered reminder slots for one day-cycle of
// the given profile, anchored to now's date. The whole schedule shifts to
// tomorrow as a unit when its final slot would already be in the past.
//
// Slots start at the first notification time and repeat every TimeInterval
// hours up to the largest multiple of the interval that fits inside the
// awake window; that slot carries IsLast. A slot already in the past at
// creation time starts out fired so it is never dispatched retroactively,
// and every slot starts out fired when notifications are turned off.
//
// now is injected by the caller; the planner never reads the wall clock, so
// identical inputs always produce an identical schedule.
func BuildGeneration(p *profile.Profile, now time.Time) ([]Slot, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	if p.TimeInterval < 1 {
		return nil, ErrInvalidInterval
	}

	totalHours, err := hydration.AwakeHours(p.FirstNotificationTime, p.LastNotificationTime)
	if err != nil {
		return nil, err
	}
	if totalHours <= 0 {
		return nil, ErrEmptyWindow
	}

	first, err := time.Parse(hydration.ClockLayout, p.FirstNotificationTime)
	if err != nil {
		return nil, err
	}
	anchor := time.Date(now.Year(), now.Month(), now.Day(),
		first.Hour(), first.Minute(), 0, 0, now.Location())

	// Largest multiple of the interval that does not overshoot the window.
	lastOffset := totalHours - totalHours%p.TimeInterval
	if anchor.Add(time.Duration(lastOffset) * time.Hour).Before(now) {
		anchor = anchor.Add(24 * time.Hour)
	}

	expected := int(hydration.PerSlotAmount(p.WaterAmountPerDay, totalHours, p.TimeInterval))

	var slots []Slot
	for offset := 0; offset <= lastOffset; offset += p.TimeInterval {
		instant := anchor.Add(time.Duration(offset) * time.Hour)
		slots = append(slots, Slot{
			ID:               uuid.New().String(),
			ProfileID:        p.ID,
			NotificationTime: instant,
			ExpectedAmount:   expected,
			Fired:            !p.NotificationTurnedOn || instant.Before(now),
			IsLast:           offset == lastOffset,
		})
	}
	return slots, nil
}
