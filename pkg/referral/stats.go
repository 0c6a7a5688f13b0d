package referral

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/antonionng/luke-robert-hair-sub001/pkg/models"
)

const recentRedemptionsLimit = 10

// Aggregator derives per-code analytics and the leaderboard by folding over
// redemption records. It is read-only and keeps no state of its own.
type Aggregator struct {
	registry    Registry
	redemptions RedemptionStore
}

func NewAggregator(registry Registry, redemptions RedemptionStore) *Aggregator {
	return &Aggregator{registry: registry, redemptions: redemptions}
}

// StatsForCode reports the analytics view for one code, plus its most recent
// redemptions.
func (a *Aggregator) StatsForCode(ctx context.Context, code string) (*models.CodeStats, []models.RecentRedemption, error) {
	record, err := a.registry.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, nil, err
	}
	return a.statsFor(ctx, record)
}

// StatsForReferrer reports the analytics view for the referrer's active code.
func (a *Aggregator) StatsForReferrer(ctx context.Context, email string) (*models.CodeStats, []models.RecentRedemption, error) {
	record, err := a.registry.FindActiveByReferrerEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, nil, err
	}
	return a.statsFor(ctx, record)
}

func (a *Aggregator) statsFor(ctx context.Context, record *models.ReferralCode) (*models.CodeStats, []models.RecentRedemption, error) {
	redemptions, err := a.redemptions.ListByCode(ctx, record.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load redemptions for %s: %w", record.Code, err)
	}

	stats := foldStats(record, redemptions)

	sort.Slice(redemptions, func(i, j int) bool {
		return redemptions[i].RedeemedAt.After(redemptions[j].RedeemedAt)
	})
	recent := make([]models.RecentRedemption, 0, recentRedemptionsLimit)
	for _, r := range redemptions {
		if len(recent) == recentRedemptionsLimit {
			break
		}
		recent = append(recent, models.RecentRedemption{
			RefereeName:      r.RefereeName,
			RedeemedAt:       r.RedeemedAt,
			BookingCompleted: r.BookingCompleted,
		})
	}

	return &stats, recent, nil
}

// Leaderboard folds the same aggregation across every code, ranked by
// completed bookings, with portfolio-level sums computed over the combined
// counts rather than averaged per code.
func (a *Aggregator) Leaderboard(ctx context.Context) (*models.Leaderboard, error) {
	codes, err := a.registry.ListCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral codes: %w", err)
	}

	board := &models.Leaderboard{
		Entries:             make([]models.CodeStats, 0, len(codes)),
		TotalDiscountsGiven: decimal.Zero,
	}

	var totalRedemptions, totalCompleted int
	for i := range codes {
		redemptions, err := a.redemptions.ListByCode(ctx, codes[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load redemptions for %s: %w", codes[i].Code, err)
		}

		board.Entries = append(board.Entries, foldStats(&codes[i], redemptions))

		for _, r := range redemptions {
			totalRedemptions++
			if r.BookingCompleted {
				totalCompleted++
			}
			if r.RefereeDiscountAmount != nil {
				board.TotalDiscountsGiven = board.TotalDiscountsGiven.Add(*r.RefereeDiscountAmount)
			}
		}
	}

	sort.SliceStable(board.Entries, func(i, j int) bool {
		return board.Entries[i].CompletedBookings > board.Entries[j].CompletedBookings
	})
	board.OverallConversionRate = conversionRate(totalCompleted, totalRedemptions)

	return board, nil
}

func foldStats(code *models.ReferralCode, redemptions []models.Redemption) models.CodeStats {
	completed := 0
	credits := decimal.Zero
	for _, r := range redemptions {
		if !r.BookingCompleted {
			continue
		}
		completed++
		if r.ReferrerCreditAmount != nil {
			credits = credits.Add(*r.ReferrerCreditAmount)
		}
	}

	total := len(redemptions)
	return models.CodeStats{
		Code:               code.Code,
		ReferrerName:       code.ReferrerName,
		TotalUses:          code.TotalUses,
		MaxUses:            code.MaxUses,
		RemainingUses:      code.RemainingUses(),
		TotalRedemptions:   total,
		CompletedBookings:  completed,
		PendingBookings:    total - completed,
		TotalCreditsEarned: credits,
		ConversionRate:     conversionRate(completed, total),
	}
}

func conversionRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
