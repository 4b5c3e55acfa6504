// Package report is the read side of the ledger: daily and monthly
// summaries, the popularity ranking, and CSV export. Hot reads go through
// the report cache with a short TTL so a busy register does not recompute
// the same payload on every poll.
package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"beanledger/internal/cache"
	"beanledger/internal/domain"
	"beanledger/internal/ledger"
)

type Engine struct {
	ledger   *ledger.Ledger
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(salesLedger *ledger.Ledger, cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}

	return &Engine{
		ledger:   salesLedger,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// PopularItems ranks items by quantity sold, highest first, name as the
// tiebreak so the ordering is stable.
func (e *Engine) PopularItems(ctx context.Context) []domain.PopularItem {
	cacheKey := buildCacheKey("popular")
	if payload, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		var items []domain.PopularItem
		if err := json.Unmarshal(payload, &items); err == nil {
			return items
		}
	}

	counts := e.ledger.ItemSalesCounts()
	items := make([]domain.PopularItem, 0, len(counts))
	for name, qty := range counts {
		items = append(items, domain.PopularItem{Name: name, Qty: qty})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Qty != items[j].Qty {
			return items[i].Qty > items[j].Qty
		}
		return items[i].Name < items[j].Name
	})

	if payload, err := json.Marshal(items); err == nil {
		_ = e.cache.Set(ctx, cacheKey, payload, e.cacheTTL)
	}
	return items
}

// DailySummary collects the day's order count, revenue, active payments
// and the cancelled set, cancelled rows newest first.
func (e *Engine) DailySummary(ctx context.Context, date time.Time) domain.DailySummary {
	dateKey := date.Format("2006-01-02")
	cacheKey := buildCacheKey("daily", dateKey)
	if payload, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		var summary domain.DailySummary
		if err := json.Unmarshal(payload, &summary); err == nil {
			return summary
		}
	}

	cancelled := e.ledger.CancelledPayments()
	sort.Slice(cancelled, func(i, j int) bool {
		return cancelled[i].PaidAt.After(cancelled[j].PaidAt)
	})

	summary := domain.DailySummary{
		Date:              dateKey,
		OrderCount:        e.ledger.OrderCountForDate(date),
		RevenueCents:      e.ledger.TotalForDate(date),
		Payments:          e.ledger.PaymentsForDate(date),
		CancelledPayments: cancelled,
	}

	if payload, err := json.Marshal(summary); err == nil {
		_ = e.cache.Set(ctx, cacheKey, payload, e.cacheTTL)
	}
	return summary
}

func (e *Engine) MonthlyRevenue(year int, month time.Month) int64 {
	return e.ledger.MonthlyRevenue(year, month)
}

func buildCacheKey(parts ...string) string {
	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "beanledger:report:" + hex.EncodeToString(hash[:])
}
