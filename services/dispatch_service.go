package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"aquaholicAPI/internal/notify"
	"aquaholicAPI/internal/schedule"
)

var (
	remindersSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_sent_total",
		Help: "Total number of drink reminders dispatched",
	})
	reminderSendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminder_send_failures_total",
		Help: "Total number of reminder pushes that failed at the provider",
	})
	scheduleRollovers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedule_rollovers_total",
		Help: "Total number of schedule generations advanced by 24 hours",
	})
)

// InitDispatchMetrics registers the dispatch counters. Call this from main.go
func InitDispatchMetrics() {
	prometheus.MustRegister(remindersSent)
	prometheus.MustRegister(reminderSendFailures)
	prometheus.MustRegister(scheduleRollovers)
}

// ScheduleSource is the slice of the schedule store the dispatch pass needs.
type ScheduleSource interface {
	DueSlots(ctx context.Context, now time.Time) ([]schedule.DispatchItem, error)
	MarkFired(ctx context.Context, slotID string) error
	TerminalDueSlots(ctx context.Context, now time.Time) ([]schedule.RolloverItem, error)
	AdvanceGeneration(ctx context.Context, profileID string, enabled bool, now time.Time) error
}

// DispatchService is the periodically-triggered reminder pass. It is a
// single synchronous sweep: send every due reminder, then roll forward every
// generation whose last reminder already went out. The external trigger
// (cron-job.org style, ~5 minutes) serializes invocations; the pass itself
// holds no locks.
type DispatchService struct {
	store    ScheduleSource
	notifier notify.Notifier
	pusher   notify.DevicePusher
}

func NewDispatchService(store ScheduleSource, notifier notify.Notifier) *DispatchService {
	return &DispatchService{store: store, notifier: notifier}
}

// SetDevicePusher injects the FCM provider from main.go; without it the pass
// sends through the notify credential only.
func (s *DispatchService) SetDevicePusher(pusher notify.DevicePusher) {
	s.pusher = pusher
}

// RunPass executes one dispatch sweep at the injected instant. Rollover
// candidates are snapshotted before anything is dispatched, so a terminal
// slot fired by this pass only rolls its generation forward on the next
// trigger, never in the same pass.
func (s *DispatchService) RunPass(ctx context.Context, now time.Time) error {
	terminal, err := s.store.TerminalDueSlots(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load terminal slots: %w", err)
	}

	due, err := s.store.DueSlots(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to load due slots: %w", err)
	}

	for _, item := range due {
		s.dispatchOne(ctx, item)
	}

	for _, item := range terminal {
		if err := s.store.AdvanceGeneration(ctx, item.ProfileID, item.NotificationTurnedOn, now); err != nil {
			// One profile's rollover must not block another's.
			log.Printf("Dispatch: failed to advance generation for profile %s: %v", item.ProfileID, err)
			continue
		}
		scheduleRollovers.Inc()
	}
	return nil
}

// dispatchOne pushes a single reminder and marks the slot fired no matter
// how delivery went: a missed reminder is stale and never resent.
func (s *DispatchService) dispatchOne(ctx context.Context, item schedule.DispatchItem) {
	message := fmt.Sprintf("Don't forget to drink %d ml of water", item.ExpectedAmount)

	if _, err := s.notifier.Send(ctx, message, item.Credential); err != nil {
		log.Printf("Dispatch: send failed for profile %s: %v", item.ProfileID, err)
		reminderSendFailures.Inc()
	} else {
		remindersSent.Inc()
	}

	if s.pusher != nil && len(item.DeviceTokens) > 0 {
		if err := s.pusher.SendPush(ctx, item.DeviceTokens, "Aquaholic", message); err != nil {
			log.Printf("Dispatch: device push failed for profile %s: %v", item.ProfileID, err)
		}
	}

	if err := s.store.MarkFired(ctx, item.SlotID); err != nil {
		log.Printf("Dispatch: failed to mark slot %s fired: %v", item.SlotID, err)
	}
}
