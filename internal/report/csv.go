package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"beanledger/internal/domain"
)

// SalesRow is one exported payment. Column order matches the receipt
// layout: date, time, order id, method, then the money columns.
type SalesRow struct {
	Date     string `csv:"Date"`
	Time     string `csv:"Time"`
	OrderID  string `csv:"Order ID"`
	Method   string `csv:"Payment Method"`
	Subtotal string `csv:"Subtotal"`
	Discount string `csv:"Discount"`
	Total    string `csv:"Total"`
}

type PopularItemRow struct {
	Rank     int    `csv:"Rank"`
	ItemName string `csv:"Item Name"`
	QtySold  int    `csv:"Quantity Sold"`
}

type rangeTotals struct {
	orders        int
	revenueCents  int64
	discountCents int64
}

// SalesRows flattens the ledger's payments for every day in [from, to]
// into export rows. Discount is the full gap between the order subtotal
// and the captured amount, so member discounts are included.
func (e *Engine) SalesRows(from time.Time, to time.Time) []SalesRow {
	rows, _ := e.salesRows(from, to)
	return rows
}

func (e *Engine) salesRows(from time.Time, to time.Time) ([]SalesRow, rangeTotals) {
	rows := make([]SalesRow, 0)
	var totals rangeTotals
	for day := dateOnly(from); !day.After(dateOnly(to)); day = day.AddDate(0, 0, 1) {
		for _, payment := range e.ledger.PaymentsForDate(day) {
			subtotal := payment.AmountCents
			if order, err := e.ledger.GetOrder(payment.OrderID); err == nil {
				subtotal = order.SubtotalCents()
			}
			discount := subtotal - payment.AmountCents

			rows = append(rows, SalesRow{
				Date:     payment.PaidAt.Format("2006-01-02"),
				Time:     payment.PaidAt.Format("15:04:05"),
				OrderID:  payment.OrderID,
				Method:   payment.Method,
				Subtotal: domain.FormatCents(subtotal),
				Discount: domain.FormatCents(discount),
				Total:    domain.FormatCents(payment.AmountCents),
			})
			totals.orders++
			totals.revenueCents += payment.AmountCents
			totals.discountCents += discount
		}
	}
	return rows, totals
}

// ExportSalesCSV renders the rows for the range plus a trailing SUMMARY
// block with order count, revenue, discount and average order value.
func (e *Engine) ExportSalesCSV(from time.Time, to time.Time) ([]byte, error) {
	rows, totals := e.salesRows(from, to)
	body, err := gocsv.MarshalString(&rows)
	if err != nil {
		return nil, fmt.Errorf("export sales csv: %w", err)
	}

	var avg int64
	if totals.orders > 0 {
		avg = totals.revenueCents / int64(totals.orders)
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	b.WriteString("SUMMARY\n")
	fmt.Fprintf(&b, "Total Orders,%d\n", totals.orders)
	fmt.Fprintf(&b, "Total Revenue,%s\n", escapeCSV(domain.FormatCents(totals.revenueCents)))
	fmt.Fprintf(&b, "Total Discount,%s\n", escapeCSV(domain.FormatCents(totals.discountCents)))
	fmt.Fprintf(&b, "Average Order Value,%s\n", escapeCSV(domain.FormatCents(avg)))
	return []byte(b.String()), nil
}

func (e *Engine) ExportPopularItemsCSV(ctx context.Context) ([]byte, error) {
	items := e.PopularItems(ctx)
	rows := make([]PopularItemRow, 0, len(items))
	for i, item := range items {
		rows = append(rows, PopularItemRow{Rank: i + 1, ItemName: item.Name, QtySold: item.Qty})
	}
	body, err := gocsv.MarshalString(&rows)
	if err != nil {
		return nil, fmt.Errorf("export popular items csv: %w", err)
	}
	return []byte(body), nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// escapeCSV quotes a field when it contains a comma, quote or newline,
// doubling embedded quotes.
func escapeCSV(field string) string {
	if !strings.ContainsAny(field, ",\"\n") {
		return field
	}
	return "\"" + strings.ReplaceAll(field, "\"", "\"\"") + "\""
}
