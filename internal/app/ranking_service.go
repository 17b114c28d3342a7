package app

import (
	"context"
	"errors"
	"reflect"
	"time"

	"propsheet-service/internal/domain"
	"propsheet-service/internal/ranking"
)

// SheetRepository loads the snapshot a ranking is computed from (cache or backing store).
type SheetRepository interface {
	GetSheet(ctx context.Context, sheetID string) (domain.SheetSnapshot, error)
}

// RankingService answers placement and leaderboard queries.
type RankingService struct {
	sheets SheetRepository
	now    func() time.Time
}

func NewRankingService(sheets SheetRepository) *RankingService {
	return NewRankingServiceWithClock(sheets, time.Now)
}

// NewRankingServiceWithClock is test-only for deterministic timestamps.
func NewRankingServiceWithClock(sheets SheetRepository, now func() time.Time) *RankingService {
	return &RankingService{sheets: sheets, now: now}
}

// Placement never fails for unknown sheets or submissions; those rank last.
// Only infrastructure errors are returned.
func (s *RankingService) Placement(ctx context.Context, sheetID, submissionID string) (domain.Placement, error) {
	snapshot, err := s.sheets.GetSheet(ctx, sheetID)
	if errors.Is(err, domain.ErrSheetNotFound) {
		return domain.Placement{Rank: 1}, nil
	}
	if err != nil {
		return domain.Placement{}, err
	}
	return ranking.Placement(snapshot, submissionID), nil
}

// Leaderboard returns the standings of every ranked submission in the sheet.
func (s *RankingService) Leaderboard(ctx context.Context, sheetID string) (domain.Leaderboard, error) {
	snapshot, err := s.sheets.GetSheet(ctx, sheetID)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{
		SheetID:   sheetID,
		Standings: ranking.Standings(snapshot),
		UpdatedAt: s.now(),
	}, nil
}

// Watch emits the leaderboard now and then again whenever it changes, polling every interval.
// Slow readers only ever see the latest leaderboard. The channel closes when ctx is done.
func (s *RankingService) Watch(ctx context.Context, sheetID string, interval time.Duration) (<-chan domain.Leaderboard, error) {
	initial, err := s.Leaderboard(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.Leaderboard, 1)
	ch <- initial

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := initial.Standings
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			lb, err := s.Leaderboard(ctx, sheetID)
			if err != nil || reflect.DeepEqual(lb.Standings, last) {
				continue
			}
			last = lb.Standings
			publishLatest(ch, lb)
		}
	}()
	return ch, nil
}

// publishLatest replaces an unread update instead of blocking the poller.
func publishLatest(ch chan domain.Leaderboard, lb domain.Leaderboard) {
	select {
	case ch <- lb:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- lb
	}
}
