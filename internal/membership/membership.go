// Package membership holds the loyalty tier table and the discount math
// derived from it. Everything here is pure: tiers and discounts are
// recomputed from total spending, never stored independently.
package membership

import (
	"math"

	"beanledger/internal/domain"
)

const (
	Level1ThresholdCents int64 = 250000
	Level2ThresholdCents int64 = 166667
	Level3ThresholdCents int64 = 83333
	Level4ThresholdCents int64 = 41667
)

const (
	Level1DiscountPercent = 20
	Level2DiscountPercent = 15
	Level3DiscountPercent = 10
	Level4DiscountPercent = 5
)

// LevelFor maps lifetime spending to a tier. Level 1 is the highest tier,
// level 5 the default with no discount.
func LevelFor(totalSpentCents int64) int {
	switch {
	case totalSpentCents >= Level1ThresholdCents:
		return 1
	case totalSpentCents >= Level2ThresholdCents:
		return 2
	case totalSpentCents >= Level3ThresholdCents:
		return 3
	case totalSpentCents >= Level4ThresholdCents:
		return 4
	default:
		return 5
	}
}

func DiscountPercentFor(level int) int {
	switch level {
	case 1:
		return Level1DiscountPercent
	case 2:
		return Level2DiscountPercent
	case 3:
		return Level3DiscountPercent
	case 4:
		return Level4DiscountPercent
	default:
		return 0
	}
}

func LevelName(level int) string {
	switch level {
	case 1:
		return "VIP"
	case 2:
		return "Platinum"
	case 3:
		return "Gold"
	case 4:
		return "Silver"
	default:
		return "Basic"
	}
}

// Recalculate rewrites the member's derived tier fields from TotalSpentCents.
func Recalculate(m *domain.Member) {
	m.Level = LevelFor(m.TotalSpentCents)
	m.DiscountPercent = DiscountPercentFor(m.Level)
}

// AddSpending accrues a purchase and recomputes the tier.
func AddSpending(m *domain.Member, amountCents int64) {
	if amountCents <= 0 {
		return
	}
	m.TotalSpentCents += amountCents
	Recalculate(m)
}

// DiscountCents applies the member's discount percentage to an amount,
// rounding half away from zero.
func DiscountCents(m domain.Member, amountCents int64) int64 {
	if m.DiscountPercent <= 0 {
		return 0
	}
	return int64(math.Round(float64(amountCents) * float64(m.DiscountPercent) / 100))
}

func FinalAmountCents(m domain.Member, amountCents int64) int64 {
	return amountCents - DiscountCents(m, amountCents)
}

// AmountToNextLevelCents reports how much more spending reaches the next
// tier. Zero at the top tier.
func AmountToNextLevelCents(m domain.Member) int64 {
	var next int64
	switch LevelFor(m.TotalSpentCents) {
	case 1:
		return 0
	case 2:
		next = Level1ThresholdCents
	case 3:
		next = Level2ThresholdCents
	case 4:
		next = Level3ThresholdCents
	default:
		next = Level4ThresholdCents
	}
	return next - m.TotalSpentCents
}
