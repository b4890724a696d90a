package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"planboard/internal/model"
	"planboard/internal/repository"
	"planboard/internal/scheduler"
)

// RecurringService materializes weekly commitments into dated blocks ahead
// of time, so the scheduler core only ever sees concrete (date, interval)
// rows. Materialization is idempotent: existing blocks are left alone.
type RecurringService struct {
	recurring *repository.RecurringRepository
	log       zerolog.Logger
}

func NewRecurringService(recurring *repository.RecurringRepository, log zerolog.Logger) *RecurringService {
	return &RecurringService{recurring: recurring, log: log}
}

// Materialize writes blocks for every commitment over horizonDays starting
// at from.
func (s *RecurringService) Materialize(ctx context.Context, from time.Time, horizonDays int) error {
	if horizonDays <= 0 {
		return fmt.Errorf("%w: horizon must be positive", scheduler.ErrInvalidInput)
	}

	commitments, err := s.recurring.ListCommitments(ctx)
	if err != nil {
		return fmt.Errorf("list commitments: %w", err)
	}
	if len(commitments) == 0 {
		return nil
	}

	byWeekday := make(map[int][]model.RecurringCommitment)
	for _, c := range commitments {
		byWeekday[c.Weekday] = append(byWeekday[c.Weekday], c)
	}

	created := 0
	date := scheduler.Midnight(from)
	for i := 0; i < horizonDays; i, date = i+1, date.AddDate(0, 0, 1) {
		for _, c := range byWeekday[int(date.Weekday())] {
			exists, err := s.recurring.BlockExists(ctx, c.UserID, date, c.StartMinutes)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			block := model.RecurringBlock{
				UserID:       c.UserID,
				Date:         date,
				StartMinutes: c.StartMinutes,
				EndMinutes:   c.EndMinutes,
				Hours:        scheduler.Hours(c.EndMinutes - c.StartMinutes),
			}
			if err := s.recurring.CreateBlock(ctx, &block); err != nil {
				return err
			}
			created++
		}
	}
	if created > 0 {
		s.log.Info().Int("blocks", created).Msg("recurring blocks materialized")
	}
	return nil
}
