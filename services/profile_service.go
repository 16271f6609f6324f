package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aquaholicAPI/internal/hydration"
	"aquaholicAPI/internal/profile"
	"aquaholicAPI/internal/schedule"
)

// ErrNotNumeric marks weight/exercise/amount input that does not parse as a
// non-negative number. Handlers map it to the user-facing message.
var ErrNotNumeric = errors.New("input is not a non-negative number")

// ErrProfileNotFound means scheduling was invoked for a profile that was
// never created; callers are expected to go through GetOrCreate first.
var ErrProfileNotFound = errors.New("profile not found")

type ProfileService struct {
	db              *pgxpool.Pool
	scheduleService *ScheduleService
}

func NewProfileService(db *pgxpool.Pool, scheduleService *ScheduleService) *ProfileService {
	return &ProfileService{db: db, scheduleService: scheduleService}
}

const profileColumns = `
	id, clerk_id, weight, exercise_duration, water_amount_per_day,
	water_amount_per_hour, first_notification_time, last_notification_time,
	time_interval, notification_turned_on, notify_credential, created_at, updated_at
`

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	err := row.Scan(
		&p.ID, &p.ClerkID, &p.Weight, &p.ExerciseDuration, &p.WaterAmountPerDay,
		&p.WaterAmountPerHour, &p.FirstNotificationTime, &p.LastNotificationTime,
		&p.TimeInterval, &p.NotificationTurnedOn, &p.NotifyCredential,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetOrCreate fetches the profile behind a Clerk account, creating a
// zero-valued one on first authenticated access. A zero daily target tells
// the client the user still has to register body metrics.
func (s *ProfileService) GetOrCreate(ctx context.Context, clerkID string) (*profile.Profile, error) {
	p, err := s.GetByClerkID(ctx, clerkID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	query := `
	INSERT INTO user_profiles (id, clerk_id, first_notification_time, last_notification_time, time_interval, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	RETURNING ` + profileColumns

	return scanProfile(s.db.QueryRow(ctx, query,
		uuid.New().String(), clerkID,
		profile.DefaultFirstNotification, profile.DefaultLastNotification,
		profile.DefaultInterval, time.Now()))
}

func (s *ProfileService) GetByClerkID(ctx context.Context, clerkID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE clerk_id = $1`

	p, err := scanProfile(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func parseNonNegative(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, ErrNotNumeric
	}
	return v, nil
}

// Calculate computes a daily target for the anonymous calculator page; no
// state is touched.
func (s *ProfileService) Calculate(weightRaw, exerciseRaw string) (int, error) {
	weight, err := parseNonNegative(weightRaw)
	if err != nil {
		return 0, err
	}
	exercise, err := parseNonNegative(exerciseRaw)
	if err != nil {
		return 0, err
	}
	return hydration.DailyTarget(weight, exercise), nil
}

// UpdateBodyMetrics recomputes the daily target and per-slot share from new
// weight/exercise values. Both derived values are written in the same UPDATE
// so they can never drift apart, and any existing slots pick up the new
// expected amount without the schedule itself being rebuilt.
func (s *ProfileService) UpdateBodyMetrics(ctx context.Context, clerkID, weightRaw, exerciseRaw string) (*profile.Profile, error) {
	weight, err := parseNonNegative(weightRaw)
	if err != nil {
		return nil, err
	}
	exercise, err := parseNonNegative(exerciseRaw)
	if err != nil {
		return nil, err
	}

	p, err := s.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	p.Weight = weight
	p.ExerciseDuration = exercise
	p.WaterAmountPerDay = hydration.DailyTarget(weight, exercise)

	totalHours, err := hydration.AwakeHours(p.FirstNotificationTime, p.LastNotificationTime)
	if err != nil {
		return nil, err
	}
	if totalHours > 0 && p.TimeInterval >= 1 {
		p.WaterAmountPerHour = hydration.PerSlotAmount(p.WaterAmountPerDay, totalHours, p.TimeInterval)
	}

	query := `
	UPDATE user_profiles
	SET weight = $2, exercise_duration = $3, water_amount_per_day = $4,
	    water_amount_per_hour = $5, updated_at = $6
	WHERE clerk_id = $1
	`
	if _, err := s.db.Exec(ctx, query, clerkID,
		p.Weight, p.ExerciseDuration, p.WaterAmountPerDay, p.WaterAmountPerHour,
		time.Now()); err != nil {
		return nil, fmt.Errorf("failed to update body metrics: %w", err)
	}

	if err := s.scheduleService.UpdateExpectedAmounts(ctx, p.ID, int(p.WaterAmountPerHour)); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateAwakeWindow saves a new first/last/interval setup and regenerates
// the whole schedule. The old generation is destroyed rather than diffed;
// intra-day fired state does not survive an edit.
func (s *ProfileService) UpdateAwakeWindow(ctx context.Context, clerkID string, req *profile.UpdateAwakeWindowRequest, now time.Time) (*profile.Profile, error) {
	p, err := s.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	p.FirstNotificationTime = req.FirstNotificationTime
	p.LastNotificationTime = req.LastNotificationTime
	p.TimeInterval = req.TimeInterval

	// Validates the window and interval before anything is persisted.
	slots, err := schedule.BuildGeneration(p, now)
	if err != nil {
		return nil, err
	}

	totalHours, err := hydration.AwakeHours(p.FirstNotificationTime, p.LastNotificationTime)
	if err != nil {
		return nil, err
	}
	p.WaterAmountPerHour = hydration.PerSlotAmount(p.WaterAmountPerDay, totalHours, p.TimeInterval)

	query := `
	UPDATE user_profiles
	SET first_notification_time = $2, last_notification_time = $3,
	    time_interval = $4, water_amount_per_hour = $5, updated_at = $6
	WHERE clerk_id = $1
	`
	if _, err := s.db.Exec(ctx, query, clerkID,
		p.FirstNotificationTime, p.LastNotificationTime, p.TimeInterval,
		p.WaterAmountPerHour, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to update awake window: %w", err)
	}

	if err := s.scheduleService.ReplaceSchedule(ctx, p.ID, slots); err != nil {
		return nil, err
	}
	return p, nil
}

// SetNotificationsEnabled flips the notifications switch and re-arms or
// silences the current generation accordingly.
func (s *ProfileService) SetNotificationsEnabled(ctx context.Context, clerkID string, enabled bool, now time.Time) error {
	p, err := s.GetByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx,
		`UPDATE user_profiles SET notification_turned_on = $2, updated_at = $3 WHERE id = $1`,
		p.ID, enabled, time.Now()); err != nil {
		return fmt.Errorf("failed to toggle notifications: %w", err)
	}

	return s.scheduleService.SetFiredForToggle(ctx, p.ID, enabled, now)
}

// SaveCredential stores the push credential obtained from the provider's
// code exchange.
func (s *ProfileService) SaveCredential(ctx context.Context, clerkID, credential string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE user_profiles SET notify_credential = $2, updated_at = $3 WHERE clerk_id = $1`,
		clerkID, credential, time.Now()); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// RegisterDevice records an FCM device token for the profile. Duplicate
// registrations are upserts.
func (s *ProfileService) RegisterDevice(ctx context.Context, clerkID, token, platform string) error {
	p, err := s.GetByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO device_tokens (id, profile_id, token, platform, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (profile_id, token) DO UPDATE SET platform = EXCLUDED.platform
	`
	if _, err := s.db.Exec(ctx, query,
		uuid.New().String(), p.ID, token, platform, time.Now()); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}
