package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"aquaholicAPI/internal/profile"
	"aquaholicAPI/internal/schedule"
)

// memoryStore is an in-memory ScheduleSource so dispatch passes run against
// a frozen clock without a database.
type memoryStore struct {
	slots    map[string]*schedule.Slot
	profiles map[string]*memoryProfile
}

type memoryProfile struct {
	enabled    bool
	credential *string
	tokens     []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		slots:    make(map[string]*schedule.Slot),
		profiles: make(map[string]*memoryProfile),
	}
}

func (m *memoryStore) ReplaceSchedule(profileID string, slots []schedule.Slot) {
	for id, slot := range m.slots {
		if slot.ProfileID == profileID {
			delete(m.slots, id)
		}
	}
	for i := range slots {
		slot := slots[i]
		m.slots[slot.ID] = &slot
	}
}

func (m *memoryStore) DueSlots(ctx context.Context, now time.Time) ([]schedule.DispatchItem, error) {
	var items []schedule.DispatchItem
	for _, slot := range m.slots {
		if slot.Fired || slot.NotificationTime.After(now) {
			continue
		}
		p := m.profiles[slot.ProfileID]
		items = append(items, schedule.DispatchItem{
			SlotID:         slot.ID,
			ProfileID:      slot.ProfileID,
			ExpectedAmount: slot.ExpectedAmount,
			Credential:     p.credential,
			DeviceTokens:   p.tokens,
		})
	}
	return items, nil
}

func (m *memoryStore) MarkFired(ctx context.Context, slotID string) error {
	m.slots[slotID].Fired = true
	return nil
}

func (m *memoryStore) TerminalDueSlots(ctx context.Context, now time.Time) ([]schedule.RolloverItem, error) {
	var items []schedule.RolloverItem
	for _, slot := range m.slots {
		if slot.Fired && slot.IsLast && !slot.NotificationTime.After(now) {
			items = append(items, schedule.RolloverItem{
				ProfileID:            slot.ProfileID,
				NotificationTurnedOn: m.profiles[slot.ProfileID].enabled,
			})
		}
	}
	return items, nil
}

func (m *memoryStore) AdvanceGeneration(ctx context.Context, profileID string, enabled bool, now time.Time) error {
	for _, slot := range m.slots {
		if slot.ProfileID != profileID {
			continue
		}
		slot.NotificationTime = slot.NotificationTime.Add(24 * time.Hour)
		if enabled {
			slot.Fired = slot.NotificationTime.Before(now)
		} else {
			slot.Fired = true
		}
	}
	return nil
}

func (m *memoryStore) profileSlots(profileID string) []*schedule.Slot {
	var slots []*schedule.Slot
	for _, slot := range m.slots {
		if slot.ProfileID == profileID {
			slots = append(slots, slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].NotificationTime.Before(slots[j].NotificationTime)
	})
	return slots
}

// fakeNotifier records sends instead of calling the provider.
type fakeNotifier struct {
	sent    []string
	sendErr error
}

func (f *fakeNotifier) Send(ctx context.Context, message string, credential *string) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	if credential == nil || *credential == "" {
		return 0, nil
	}
	f.sent = append(f.sent, message)
	return 200, nil
}

func (f *fakeNotifier) ExchangeCode(ctx context.Context, code string) (string, error) {
	return "token-" + code, nil
}

func (f *fakeNotifier) CheckStatus(ctx context.Context, credential *string) (int, error) {
	if credential == nil || *credential == "" {
		return 0, nil
	}
	return 200, nil
}

func eveningProfile(id string, enabled bool) *profile.Profile {
	return &profile.Profile{
		ID:                    id,
		WaterAmountPerDay:     2339,
		FirstNotificationTime: "19:00",
		LastNotificationTime:  "21:00",
		TimeInterval:          1,
		NotificationTurnedOn:  enabled,
	}
}

func clock(day, hour, minute int) time.Time {
	return time.Date(2022, 11, day, hour, minute, 0, 0, time.UTC)
}

func seedProfile(t *testing.T, store *memoryStore, p *profile.Profile, now time.Time) {
	t.Helper()
	cred := "line-token"
	store.profiles[p.ID] = &memoryProfile{enabled: p.NotificationTurnedOn, credential: &cred}

	slots, err := schedule.BuildGeneration(p, now)
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}
	store.ReplaceSchedule(p.ID, slots)
}

func TestRunPassFiresOnlyDueSlots(t *testing.T) {
	store := newMemoryStore()
	notifier := &fakeNotifier{}
	svc := NewDispatchService(store, notifier)

	seedProfile(t, store, eveningProfile("p1", true), clock(2, 7, 0))

	if err := svc.RunPass(context.Background(), clock(2, 19, 10)); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	slots := store.profileSlots("p1")
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	if !slots[0].Fired || slots[1].Fired || slots[2].Fired {
		t.Errorf("fired flags = %v/%v/%v, want true/false/false",
			slots[0].Fired, slots[1].Fired, slots[2].Fired)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(notifier.sent))
	}
	want := fmt.Sprintf("Don't forget to drink %d ml of water", slots[0].ExpectedAmount)
	if notifier.sent[0] != want {
		t.Errorf("message %q, want %q", notifier.sent[0], want)
	}
}

func TestTerminalSlotRollsOverOnNextPassOnly(t *testing.T) {
	store := newMemoryStore()
	notifier := &fakeNotifier{}
	svc := NewDispatchService(store, notifier)

	seedProfile(t, store, eveningProfile("p1", true), clock(2, 7, 0))

	// First pass at 19:10 fires the first slot.
	if err := svc.RunPass(context.Background(), clock(2, 19, 10)); err != nil {
		t.Fatalf("pass 1 failed: %v", err)
	}

	// Pass at 21:10 fires the remaining two, terminal included, but must
	// not advance the generation it just fired.
	if err := svc.RunPass(context.Background(), clock(2, 21, 10)); err != nil {
		t.Fatalf("pass 2 failed: %v", err)
	}

	slots := store.profileSlots("p1")
	if !slots[2].NotificationTime.Equal(clock(2, 21, 0)) {
		t.Fatalf("terminal slot advanced in the pass that fired it: %v", slots[2].NotificationTime)
	}
	for i, slot := range slots {
		if !slot.Fired {
			t.Errorf("slot %d unfired after pass at 21:10", i)
		}
	}
	if len(notifier.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(notifier.sent))
	}

	// The following pass observes the fired terminal slot and rolls the
	// whole generation forward by exactly 24 hours.
	if err := svc.RunPass(context.Background(), clock(2, 21, 15)); err != nil {
		t.Fatalf("pass 3 failed: %v", err)
	}

	slots = store.profileSlots("p1")
	for i, slot := range slots {
		want := clock(3, 19+i, 0)
		if !slot.NotificationTime.Equal(want) {
			t.Errorf("slot %d at %v, want %v", i, slot.NotificationTime, want)
		}
		if slot.Fired {
			t.Errorf("slot %d still fired after rollover", i)
		}
		if slot.IsLast != (i == 2) {
			t.Errorf("slot %d IsLast changed to %v", i, slot.IsLast)
		}
	}
	if len(notifier.sent) != 3 {
		t.Errorf("rollover pass sent %d extra messages", len(notifier.sent)-3)
	}
}

func TestDisabledProfileRollsOverSilently(t *testing.T) {
	store := newMemoryStore()
	notifier := &fakeNotifier{}
	svc := NewDispatchService(store, notifier)

	seedProfile(t, store, eveningProfile("p1", false), clock(2, 7, 0))

	// Slots exist but every one starts fired, so nothing dispatches.
	if err := svc.RunPass(context.Background(), clock(2, 21, 10)); err != nil {
		t.Fatalf("pass 1 failed: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("disabled profile got %d messages", len(notifier.sent))
	}

	// The generation still advances daily, staying silenced.
	slots := store.profileSlots("p1")
	for i, slot := range slots {
		want := clock(3, 19+i, 0)
		if !slot.NotificationTime.Equal(want) {
			t.Errorf("slot %d at %v, want %v", i, slot.NotificationTime, want)
		}
		if !slot.Fired {
			t.Errorf("slot %d re-armed on rollover despite notifications being off", i)
		}
	}
}

func TestSendFailureStillMarksFired(t *testing.T) {
	store := newMemoryStore()
	notifier := &fakeNotifier{sendErr: errors.New("provider down")}
	svc := NewDispatchService(store, notifier)

	seedProfile(t, store, eveningProfile("p1", true), clock(2, 7, 0))

	if err := svc.RunPass(context.Background(), clock(2, 19, 10)); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	// At-most-once: a failed reminder is stale and never retried.
	slots := store.profileSlots("p1")
	if !slots[0].Fired {
		t.Error("slot not marked fired after transport failure")
	}
}

func TestFailureForOneProfileDoesNotBlockAnother(t *testing.T) {
	store := newMemoryStore()
	notifier := &fakeNotifier{}
	svc := NewDispatchService(store, notifier)

	seedProfile(t, store, eveningProfile("p1", true), clock(2, 7, 0))
	seedProfile(t, store, eveningProfile("p2", true), clock(2, 7, 0))
	// p1 has no credential; its sends are silent no-ops.
	store.profiles["p1"].credential = nil

	if err := svc.RunPass(context.Background(), clock(2, 19, 10)); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	if !store.profileSlots("p1")[0].Fired || !store.profileSlots("p2")[0].Fired {
		t.Error("both profiles' due slots should be fired")
	}
	if len(notifier.sent) != 1 {
		t.Errorf("sent %d messages, want 1 (p2 only)", len(notifier.sent))
	}
	for _, msg := range notifier.sent {
		if !strings.Contains(msg, "ml of water") {
			t.Errorf("unexpected message %q", msg)
		}
	}
}

func TestReplaceScheduleIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	p := eveningProfile("p1", true)
	cred := "line-token"
	store.profiles["p1"] = &memoryProfile{enabled: true, credential: &cred}

	slots, err := schedule.BuildGeneration(p, clock(2, 7, 0))
	if err != nil {
		t.Fatalf("BuildGeneration failed: %v", err)
	}

	store.ReplaceSchedule("p1", slots)
	store.ReplaceSchedule("p1", slots)

	if got := len(store.profileSlots("p1")); got != len(slots) {
		t.Errorf("got %d slots after double replace, want %d", got, len(slots))
	}
}

func TestAdvanceGenerationMovesExactly24Hours(t *testing.T) {
	store := newMemoryStore()
	seedProfile(t, store, eveningProfile("p1", true), clock(2, 7, 0))

	before := make(map[string]time.Time)
	lastFlags := make(map[string]bool)
	for _, slot := range store.profileSlots("p1") {
		before[slot.ID] = slot.NotificationTime
		lastFlags[slot.ID] = slot.IsLast
	}

	if err := store.AdvanceGeneration(context.Background(), "p1", true, clock(2, 22, 0)); err != nil {
		t.Fatalf("AdvanceGeneration failed: %v", err)
	}

	for _, slot := range store.profileSlots("p1") {
		if got := slot.NotificationTime.Sub(before[slot.ID]); got != 24*time.Hour {
			t.Errorf("slot %s moved by %v, want 24h", slot.ID, got)
		}
		if slot.IsLast != lastFlags[slot.ID] {
			t.Errorf("slot %s IsLast changed on rollover", slot.ID)
		}
	}
}
