package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"aquaholicAPI/internal/schedule"
)

// ScheduleService owns the reminder_slots table: one generation of slots per
// profile, replaced wholesale on settings changes and advanced day by day by
// the dispatch loop.
type ScheduleService struct {
	db *pgxpool.Pool
}

func NewScheduleService(db *pgxpool.Pool) *ScheduleService {
	return &ScheduleService{db: db}
}

// ReplaceSchedule swaps a profile's generation for a new one. Delete and
// insert run in a single transaction so the dispatch loop never observes a
// half-written schedule.
func (s *ScheduleService) ReplaceSchedule(ctx context.Context, profileID string, slots []schedule.Slot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin schedule replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM reminder_slots WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("failed to delete old schedule: %w", err)
	}

	query := `
	INSERT INTO reminder_slots (id, profile_id, notification_time, expected_amount, fired, is_last)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, slot := range slots {
		if _, err := tx.Exec(ctx, query,
			slot.ID, profileID, slot.NotificationTime,
			slot.ExpectedAmount, slot.Fired, slot.IsLast); err != nil {
			return fmt.Errorf("failed to insert slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit schedule replace: %w", err)
	}
	return nil
}

// ListSchedule returns the profile's current generation in firing order.
func (s *ScheduleService) ListSchedule(ctx context.Context, profileID string) ([]schedule.Slot, error) {
	query := `
	SELECT id, profile_id, notification_time, expected_amount, fired, is_last
	FROM reminder_slots
	WHERE profile_id = $1
	ORDER BY notification_time
	`

	rows, err := s.db.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule: %w", err)
	}
	defer rows.Close()

	var slots []schedule.Slot
	for rows.Next() {
		var slot schedule.Slot
		if err := rows.Scan(&slot.ID, &slot.ProfileID, &slot.NotificationTime,
			&slot.ExpectedAmount, &slot.Fired, &slot.IsLast); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// DueSlots returns every unfired slot across all profiles whose instant has
// passed, joined with the owner's credential and device tokens.
func (s *ScheduleService) DueSlots(ctx context.Context, now time.Time) ([]schedule.DispatchItem, error) {
	query := `
	SELECT s.id, s.profile_id, s.expected_amount, p.notify_credential,
	       COALESCE(array_agg(d.token) FILTER (WHERE d.token IS NOT NULL), '{}')
	FROM reminder_slots s
	JOIN user_profiles p ON p.id = s.profile_id
	LEFT JOIN device_tokens d ON d.profile_id = s.profile_id
	WHERE s.notification_time <= $1 AND s.fired = false
	GROUP BY s.id, s.profile_id, s.expected_amount, p.notify_credential
	`

	rows, err := s.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due slots: %w", err)
	}
	defer rows.Close()

	var items []schedule.DispatchItem
	for rows.Next() {
		var item schedule.DispatchItem
		if err := rows.Scan(&item.SlotID, &item.ProfileID, &item.ExpectedAmount,
			&item.Credential, &item.DeviceTokens); err != nil {
			return nil, fmt.Errorf("failed to scan due slot: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkFired records that a slot's reminder was dispatched (or at least
// attempted; there is no retry of a stale reminder).
func (s *ScheduleService) MarkFired(ctx context.Context, slotID string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE reminder_slots SET fired = true WHERE id = $1`, slotID); err != nil {
		return fmt.Errorf("failed to mark slot fired: %w", err)
	}
	return nil
}

// TerminalDueSlots returns the generations whose last reminder has already
// been sent and which are eligible to roll forward a day.
func (s *ScheduleService) TerminalDueSlots(ctx context.Context, now time.Time) ([]schedule.RolloverItem, error) {
	query := `
	SELECT s.profile_id, p.notification_turned_on
	FROM reminder_slots s
	JOIN user_profiles p ON p.id = s.profile_id
	WHERE s.fired = true AND s.is_last = true AND s.notification_time <= $1
	`

	rows, err := s.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query terminal slots: %w", err)
	}
	defer rows.Close()

	var items []schedule.RolloverItem
	for rows.Next() {
		var item schedule.RolloverItem
		if err := rows.Scan(&item.ProfileID, &item.NotificationTurnedOn); err != nil {
			return nil, fmt.Errorf("failed to scan terminal slot: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AdvanceGeneration moves every slot of the profile forward by exactly 24
// hours, starting the next day's cycle. Enabled profiles get their fired
// flags re-armed against the new instants; disabled profiles stay fired so
// nothing dispatches until they turn notifications back on.
func (s *ScheduleService) AdvanceGeneration(ctx context.Context, profileID string, enabled bool, now time.Time) error {
	query := `
	UPDATE reminder_slots
	SET notification_time = notification_time + interval '24 hours',
	    fired = CASE WHEN $2::bool
	                 THEN notification_time + interval '24 hours' < $3
	                 ELSE true END
	WHERE profile_id = $1
	`

	if _, err := s.db.Exec(ctx, query, profileID, enabled, now); err != nil {
		return fmt.Errorf("failed to advance generation: %w", err)
	}
	return nil
}

// SetFiredForToggle re-arms or silences a whole generation when the user
// flips the notifications switch: off forces every slot fired, on re-arms
// every slot that is still in the future.
func (s *ScheduleService) SetFiredForToggle(ctx context.Context, profileID string, enabled bool, now time.Time) error {
	query := `
	UPDATE reminder_slots
	SET fired = CASE WHEN $2::bool THEN notification_time < $3 ELSE true END
	WHERE profile_id = $1
	`

	if _, err := s.db.Exec(ctx, query, profileID, enabled, now); err != nil {
		return fmt.Errorf("failed to toggle schedule: %w", err)
	}
	return nil
}

// UpdateExpectedAmounts refreshes each slot's expected intake after the
// daily target changed without the window itself changing.
func (s *ScheduleService) UpdateExpectedAmounts(ctx context.Context, profileID string, amount int) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE reminder_slots SET expected_amount = $2 WHERE profile_id = $1`,
		profileID, amount); err != nil {
		return fmt.Errorf("failed to update expected amounts: %w", err)
	}
	return nil
}
