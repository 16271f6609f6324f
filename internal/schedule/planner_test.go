package schedule

import (
	"errors"
	"testing"
	"time"

	"aquaholicAPI/internal/profile"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		ID:                    "p1",
		WaterAmountPerDay:     2339,
		WaterAmountPerHour:    155.93,
		FirstNotificationTime: "08:00",
		LastNotificationTime:  "22:00",
		TimeInterval:          1,
		NotificationTurnedOn:  true,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2022, 11, 2, hour, minute, 0, 0, time.UTC)
}

func TestBuildGenerationSlotLayout(t *testing.T) {
	now := at(7, 0)
	slots, err := BuildGeneration(testProfile(), now)
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}

	if len(slots) != 15 {
		t.Fatalf("got %d slots, want 15", len(slots))
	}
	for i, slot := range slots {
		want := at(8+i, 0)
		if !slot.NotificationTime.Equal(want) {
			t.Errorf("slot %d at %v, want %v", i, slot.NotificationTime, want)
		}
		if slot.Fired {
			t.Errorf("slot %d starts fired; nothing is in the past", i)
		}
		if slot.IsLast != (i == 14) {
			t.Errorf("slot %d IsLast = %v", i, slot.IsLast)
		}
		if slot.ExpectedAmount != 155 {
			t.Errorf("slot %d amount = %d, want 155", i, slot.ExpectedAmount)
		}
	}
}

func TestBuildGenerationPastSlotsStartFired(t *testing.T) {
	now := at(10, 30)
	slots, err := BuildGeneration(testProfile(), now)
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}

	// 08:00, 09:00 and 10:00 are already gone; they must never be
	// dispatched retroactively.
	for i, slot := range slots {
		wantFired := slot.NotificationTime.Before(now)
		if slot.Fired != wantFired {
			t.Errorf("slot %d fired = %v, want %v", i, slot.Fired, wantFired)
		}
	}
	if !slots[2].Fired || slots[3].Fired {
		t.Error("fired boundary should sit between 10:00 and 11:00")
	}
}

func TestBuildGenerationShiftsToTomorrowAsAUnit(t *testing.T) {
	now := at(23, 0)
	slots, err := BuildGeneration(testProfile(), now)
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}

	first := time.Date(2022, 11, 3, 8, 0, 0, 0, time.UTC)
	if !slots[0].NotificationTime.Equal(first) {
		t.Errorf("first slot at %v, want %v (tomorrow)", slots[0].NotificationTime, first)
	}
	for i, slot := range slots {
		if slot.Fired {
			t.Errorf("slot %d fired after shifting to tomorrow", i)
		}
		want := first.Add(time.Duration(i) * time.Hour)
		if !slot.NotificationTime.Equal(want) {
			t.Errorf("slot %d at %v, want %v", i, slot.NotificationTime, want)
		}
	}
}

func TestBuildGenerationIntervalNotDividingWindow(t *testing.T) {
	p := testProfile()
	p.TimeInterval = 4
	slots, err := BuildGeneration(p, at(7, 0))
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}

	// 14 hours at a 4 hour step: offsets 0, 4, 8, 12. The terminal slot is
	// the floor multiple, never past the last notification time.
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	last := slots[len(slots)-1]
	if !last.IsLast {
		t.Error("final slot is not marked IsLast")
	}
	if !last.NotificationTime.Equal(at(20, 0)) {
		t.Errorf("terminal slot at %v, want %v", last.NotificationTime, at(20, 0))
	}
	for i, slot := range slots[:len(slots)-1] {
		if slot.IsLast {
			t.Errorf("slot %d wrongly marked IsLast", i)
		}
	}
}

func TestBuildGenerationIntervalWiderThanWindow(t *testing.T) {
	p := testProfile()
	p.FirstNotificationTime = "19:00"
	p.LastNotificationTime = "21:00"
	p.TimeInterval = 3
	slots, err := BuildGeneration(p, at(7, 0))
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
	if !slots[0].IsLast {
		t.Error("the only slot must be terminal")
	}
	if !slots[0].NotificationTime.Equal(at(19, 0)) {
		t.Errorf("slot at %v, want %v", slots[0].NotificationTime, at(19, 0))
	}
}

func TestBuildGenerationDisabledNotificationsForceFired(t *testing.T) {
	p := testProfile()
	p.NotificationTurnedOn = false
	slots, err := BuildGeneration(p, at(7, 0))
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}
	if len(slots) != 15 {
		t.Fatalf("got %d slots, want 15", len(slots))
	}
	for i, slot := range slots {
		if !slot.Fired {
			t.Errorf("slot %d not fired; disabled profiles never dispatch", i)
		}
	}
}

func TestBuildGenerationDeterministic(t *testing.T) {
	now := at(9, 15)
	a, err := BuildGeneration(testProfile(), now)
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}
	b, err := BuildGeneration(testProfile(), now)
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("slot counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !a[i].NotificationTime.Equal(b[i].NotificationTime) ||
			a[i].ExpectedAmount != b[i].ExpectedAmount ||
			a[i].Fired != b[i].Fired ||
			a[i].IsLast != b[i].IsLast {
			t.Errorf("slot %d differs between identical runs", i)
		}
	}
}

func TestBuildGenerationRejectsBadWindows(t *testing.T) {
	cases := []struct {
		name        string
		first, last string
		interval    int
		want        error
	}{
		{"equal times", "10:00", "10:00", 1, ErrEmptyWindow},
		{"inverted window", "22:00", "08:00", 1, ErrEmptyWindow},
		{"zero interval", "08:00", "22:00", 0, ErrInvalidInterval},
		{"negative interval", "08:00", "22:00", -2, ErrInvalidInterval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testProfile()
			p.FirstNotificationTime = tc.first
			p.LastNotificationTime = tc.last
			p.TimeInterval = tc.interval
			if _, err := BuildGeneration(p, at(7, 0)); !errors.Is(err, tc.want) {
				t.Errorf("got err %v, want %v", err, tc.want)
			}
		})
	}
}

func TestBuildGenerationRejectsUnconfiguredProfile(t *testing.T) {
	p := testProfile()
	p.WaterAmountPerDay = 0
	if _, err := BuildGeneration(p, at(7, 0)); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("got err %v, want ErrNotConfigured", err)
	}
}
