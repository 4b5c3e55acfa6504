// Package ledger is the in-memory sales ledger: every captured payment is
// filed under the calendar date it was taken, cancelled payments move to a
// separate set, and per-item sale counters back the popularity reports.
// The ledger owns canonical copies of orders and payments; all reads hand
// out copies so callers can never mutate ledger state.
package ledger

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"beanledger/internal/domain"
	"beanledger/internal/store"
)

// ErrAlreadyCancelled reports a cancel of an order that is already
// cancelled. The ledger state is untouched in that case.
var ErrAlreadyCancelled = errors.New("order already cancelled")

const dateKeyLayout = "2006-01-02"

type Ledger struct {
	mu             sync.RWMutex
	dailySales     map[string][]domain.Payment
	cancelled      []domain.Payment
	orders         map[string]*domain.Order
	itemSalesCount map[string]int

	seqDate string
	seq     int
}

func New() *Ledger {
	return &Ledger{
		dailySales:     make(map[string][]domain.Payment),
		orders:         make(map[string]*domain.Order),
		itemSalesCount: make(map[string]int),
	}
}

// NextOrderID issues the next order id for the given moment: the date as
// YYYYMMDD plus a four-digit sequence that resets every day.
func (l *Ledger) NextOrderID(now time.Time) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := now.Format("20060102")
	if day != l.seqDate {
		l.seqDate = day
		l.seq = 0
	}
	l.seq++
	return fmt.Sprintf("%s%04d", day, l.seq)
}

// Record files a completed order and its payment into the ledger. The
// payment is bucketed by the date of PaidAt and every line's quantity is
// added to the per-item sale counters under the line's snapshot name.
func (l *Ledger) Record(order *domain.Order, payment domain.Payment) error {
	if order == nil {
		return fmt.Errorf("record: %w: nil order", store.ErrInvalidArgument)
	}
	if order.Status != domain.OrderStatusCompleted {
		return fmt.Errorf("record order %s: %w: status %q", order.ID, store.ErrInvalidArgument, order.Status)
	}
	if payment.OrderID != order.ID {
		return fmt.Errorf("record order %s: %w: payment belongs to %q", order.ID, store.ErrInvalidArgument, payment.OrderID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.orders[order.ID]; exists {
		return fmt.Errorf("record order %s: %w: already recorded", order.ID, store.ErrInvalidArgument)
	}

	key := payment.PaidAt.Format(dateKeyLayout)
	l.dailySales[key] = append(l.dailySales[key], payment)
	l.orders[order.ID] = order.Clone()
	for _, line := range order.Lines {
		l.itemSalesCount[line.ItemName] += line.Qty
	}
	return nil
}

// CancelResult reports the outcome of a cancellation. PaymentIndexed is
// false when the order was known but no payment for it was found in any
// date bucket; the cancellation still proceeds in that case.
type CancelResult struct {
	Order          *domain.Order
	Payment        *domain.Payment
	PaymentIndexed bool
}

// Cancel marks the order cancelled, moves its payment from the daily
// buckets to the cancelled set, and rolls the item sale counters back.
// All three mutations happen under one lock.
func (l *Ledger) Cancel(orderID string) (*CancelResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, store.ErrNotFound)
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, ErrAlreadyCancelled)
	}

	order.Status = domain.OrderStatusCancelled

	// First-match scan over every bucket. Order ids encode a date, but
	// the scan never parses it so ledger integrity survives odd ids.
	result := &CancelResult{Order: order.Clone()}
	for key, bucket := range l.dailySales {
		for i, payment := range bucket {
			if payment.OrderID != orderID {
				continue
			}
			l.dailySales[key] = append(bucket[:i:i], bucket[i+1:]...)
			l.cancelled = append(l.cancelled, payment)
			cp := payment
			result.Payment = &cp
			result.PaymentIndexed = true
			break
		}
		if result.PaymentIndexed {
			break
		}
	}
	if !result.PaymentIndexed {
		log.Printf("[ledger] WARN: cancel order %s: no payment found in any date bucket", orderID)
	}

	for _, line := range order.Lines {
		l.itemSalesCount[line.ItemName] -= line.Qty
		if l.itemSalesCount[line.ItemName] <= 0 {
			delete(l.itemSalesCount, line.ItemName)
		}
	}
	return result, nil
}

func (l *Ledger) TotalForDate(date time.Time) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for _, payment := range l.dailySales[date.Format(dateKeyLayout)] {
		total += payment.AmountCents
	}
	return total
}

func (l *Ledger) OrderCountForDate(date time.Time) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.dailySales[date.Format(dateKeyLayout)])
}

func (l *Ledger) MonthlyRevenue(year int, month time.Month) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total int64
	for key, bucket := range l.dailySales {
		day, err := time.Parse(dateKeyLayout, key)
		if err != nil {
			continue
		}
		if day.Year() != year || day.Month() != month {
			continue
		}
		for _, payment := range bucket {
			total += payment.AmountCents
		}
	}
	return total
}

func (l *Ledger) PaymentsForDate(date time.Time) []domain.Payment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Payment(nil), l.dailySales[date.Format(dateKeyLayout)]...)
}

func (l *Ledger) CancelledPayments() []domain.Payment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Payment(nil), l.cancelled...)
}

// Search returns the active payments taken on the given calendar day,
// optionally narrowed to amounts within one cent of amountCents.
func (l *Ledger) Search(year int, month time.Month, day int, amountCents *int64) []domain.Payment {
	key := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(dateKeyLayout)

	l.mu.RLock()
	defer l.mu.RUnlock()

	results := make([]domain.Payment, 0)
	for _, payment := range l.dailySales[key] {
		if amountCents != nil {
			diff := payment.AmountCents - *amountCents
			if diff < -1 || diff > 1 {
				continue
			}
		}
		results = append(results, payment)
	}
	return results
}

func (l *Ledger) GetOrder(orderID string) (*domain.Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	order, ok := l.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	return order.Clone(), nil
}

// GetPayment finds the payment for an order, checking the cancelled set
// too so receipts for cancelled orders can still be reprinted.
func (l *Ledger) GetPayment(orderID string) (*domain.Payment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, bucket := range l.dailySales {
		for _, payment := range bucket {
			if payment.OrderID == orderID {
				cp := payment
				return &cp, nil
			}
		}
	}
	for _, payment := range l.cancelled {
		if payment.OrderID == orderID {
			cp := payment
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("payment for order %s: %w", orderID, store.ErrNotFound)
}

func (l *Ledger) ItemSalesCounts() map[string]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	counts := make(map[string]int, len(l.itemSalesCount))
	for name, qty := range l.itemSalesCount {
		counts[name] = qty
	}
	return counts
}
