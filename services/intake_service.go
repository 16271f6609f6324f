package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"aquaholicAPI/internal/intake"
)

// IntakeService keeps one accumulated intake row per profile and day.
type IntakeService struct {
	db             *pgxpool.Pool
	profileService *ProfileService
}

func NewIntakeService(db *pgxpool.Pool, profileService *ProfileService) *IntakeService {
	return &IntakeService{db: db, profileService: profileService}
}

// Log records amount millilitres drunk on the given YYYY-MM-DD day. Logging
// twice on the same day accumulates instead of overwriting.
func (s *IntakeService) Log(ctx context.Context, clerkID, dateRaw, amountRaw string) (*intake.Intake, error) {
	amount, err := parseNonNegative(amountRaw)
	if err != nil {
		return nil, err
	}
	day, err := time.Parse("2006-01-02", dateRaw)
	if err != nil {
		return nil, ErrNotNumeric
	}

	p, err := s.profileService.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	record := &intake.Intake{
		ID:          uuid.New().String(),
		ProfileID:   p.ID,
		Date:        intake.NormalizeDay(day),
		TotalAmount: amount,
	}

	query := `
	INSERT INTO intakes (id, profile_id, date, total_amount)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (profile_id, date)
	DO UPDATE SET total_amount = intakes.total_amount + EXCLUDED.total_amount
	RETURNING id, total_amount
	`
	if err := s.db.QueryRow(ctx, query,
		record.ID, record.ProfileID, record.Date, record.TotalAmount).
		Scan(&record.ID, &record.TotalAmount); err != nil {
		return nil, fmt.Errorf("failed to log intake: %w", err)
	}
	return record, nil
}

// MonthlyHistory returns a bar per day of the month: logged amount and
// whether it reached the daily goal. Days without a row come back as zero.
func (s *IntakeService) MonthlyHistory(ctx context.Context, clerkID string, year, month int) (*intake.MonthlyHistoryResponse, error) {
	p, err := s.profileService.GetByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT date, total_amount
	FROM intakes
	WHERE profile_id = $1
	  AND date >= $2 AND date < $3
	ORDER BY date
	`
	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	rows, err := s.db.Query(ctx, query, p.ID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query intake history: %w", err)
	}
	defer rows.Close()

	logged := make(map[int]float64)
	for rows.Next() {
		var day time.Time
		var amount float64
		if err := rows.Scan(&day, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan intake: %w", err)
		}
		logged[day.Day()] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	daysInMonth := monthEnd.AddDate(0, 0, -1).Day()
	resp := &intake.MonthlyHistoryResponse{
		Goal:  p.WaterAmountPerDay,
		Year:  year,
		Month: month,
	}
	for day := 1; day <= daysInMonth; day++ {
		amount := logged[day]
		resp.Days = append(resp.Days, intake.DayAmount{
			Date:        time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			TotalAmount: amount,
			ReachedGoal: amount >= float64(p.WaterAmountPerDay),
		})
	}
	return resp, nil
}
