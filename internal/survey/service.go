package survey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultListLimit = 100

type Service struct {
	repo Repo
	log  *zap.Logger
	now  func() time.Time
}

func NewService(repo Repo, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Submit validates and stores a new response. recordingTimes beyond the cap
// are dropped, keeping the most recent entries.
func (s *Service) Submit(ctx context.Context, rating int, easeOfUse *int, positive, improvement string, recordingTimes []int) (string, error) {
	if rating < 1 || rating > 5 {
		return "", fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	if easeOfUse != nil && (*easeOfUse < 1 || *easeOfUse > 5) {
		return "", fmt.Errorf("easeOfUse must be between 1 and 5, got %d", *easeOfUse)
	}

	if len(recordingTimes) > maxRecordingTimes {
		recordingTimes = recordingTimes[len(recordingTimes)-maxRecordingTimes:]
	}

	id, err := s.repo.Insert(ctx, Survey{
		Rating:              rating,
		EaseOfUse:           easeOfUse,
		PositiveFeedback:    positive,
		ImprovementFeedback: improvement,
		RecordingTimes:      append([]int(nil), recordingTimes...),
		CreatedAt:           s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("insert survey: %w", err)
	}
	return id, nil
}

// ListAll returns responses newest first.
func (s *Service) ListAll(ctx context.Context, limit int64) ([]Survey, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, limit)
}

func (s *Service) GetByID(ctx context.Context, id string) (Survey, error) {
	return s.repo.Get(ctx, id)
}

// DeleteByID removes a response. Deleting an absent id is not an error.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// AverageRating is the arithmetic mean over all responses, 0 when empty.
func (s *Service) AverageRating(ctx context.Context) (float64, error) {
	surveys, err := s.repo.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	if len(surveys) == 0 {
		return 0, nil
	}

	sum := 0
	for _, sv := range surveys {
		sum += sv.Rating
	}
	return float64(sum) / float64(len(surveys)), nil
}

// RatingHistogram counts responses per rating value. Every bucket 1..5 is
// present even at zero.
func (s *Service) RatingHistogram(ctx context.Context) (map[int]int, error) {
	surveys, err := s.repo.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	buckets := map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}
	for _, sv := range surveys {
		if sv.Rating >= 1 && sv.Rating <= 5 {
			buckets[sv.Rating]++
		}
	}
	return buckets, nil
}

// RecordingDurationStats flattens every response's recordingTimes and
// computes min/avg/max over them.
func (s *Service) RecordingDurationStats(ctx context.Context) (DurationStats, error) {
	surveys, err := s.repo.List(ctx, 0)
	if err != nil {
		return DurationStats{}, err
	}

	var all []int
	for _, sv := range surveys {
		all = append(all, sv.RecordingTimes...)
	}
	if len(all) == 0 {
		return DurationStats{}, nil
	}

	stats := DurationStats{
		HasData: true,
		Count:   len(all),
		Min:     all[0],
		Max:     all[0],
	}
	sum := 0
	for _, d := range all {
		if d < stats.Min {
			stats.Min = d
		}
		if d > stats.Max {
			stats.Max = d
		}
		sum += d
	}
	stats.Avg = float64(sum) / float64(len(all))
	return stats, nil
}
