package service

import (
	"context"
	"fmt"
	"strings"

	"beanledger/internal/domain"
)

const receiptWidth = 32

// Receipt renders the printable text for an order. Cancelled orders keep
// their receipt and carry a banner so a reprint is unambiguous.
func (s *Service) Receipt(_ context.Context, orderID string) (domain.ReceiptResponse, error) {
	orderID = strings.TrimSpace(orderID)
	order, err := s.ledger.GetOrder(orderID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	payment, err := s.ledger.GetPayment(orderID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	var b strings.Builder
	divider := strings.Repeat("=", receiptWidth)
	rule := strings.Repeat("-", receiptWidth)

	b.WriteString(divider + "\n")
	b.WriteString(centerText("BeanLedger Cafe", receiptWidth) + "\n")
	b.WriteString(divider + "\n")
	if order.Status == domain.OrderStatusCancelled {
		b.WriteString(centerText("[ ORDER CANCELLED ]", receiptWidth) + "\n")
		b.WriteString(rule + "\n")
	}
	fmt.Fprintf(&b, "Order: %s\n", order.ID)
	fmt.Fprintf(&b, "Date : %s\n", payment.PaidAt.Format("2006-01-02 15:04:05"))
	b.WriteString(rule + "\n")

	for _, line := range order.Lines {
		b.WriteString(line.ItemName + "\n")
		qty := fmt.Sprintf("  %d x %s", line.Qty, domain.FormatCents(line.UnitPriceCents))
		b.WriteString(padBetween(qty, domain.FormatCents(line.SubtotalCents()), receiptWidth) + "\n")
	}

	b.WriteString(rule + "\n")
	b.WriteString(moneyLine("Subtotal:", order.SubtotalCents()) + "\n")
	if discount := order.SubtotalCents() - payment.AmountCents; discount > 0 {
		b.WriteString(moneyLine("Discount:", discount) + "\n")
	}
	b.WriteString(moneyLine("Total:", payment.AmountCents) + "\n")
	if s.displayRate > 0 {
		b.WriteString(padBetween("Total (KRW):", domain.FormatCentsAtRate(payment.AmountCents, s.displayRate), receiptWidth) + "\n")
	}
	if payment.Method == domain.PaymentMethodCash {
		b.WriteString(moneyLine("Cash:", payment.ReceivedCents) + "\n")
		b.WriteString(moneyLine("Change:", payment.ChangeCents) + "\n")
	} else {
		b.WriteString(padBetween("Paid by:", payment.Method, receiptWidth) + "\n")
	}
	b.WriteString(divider + "\n")
	b.WriteString(centerText("Thank you for your visit!", receiptWidth) + "\n")
	b.WriteString(divider + "\n")

	return domain.ReceiptResponse{OrderID: order.ID, Text: b.String()}, nil
}

func moneyLine(label string, cents int64) string {
	return padBetween(label, domain.FormatCents(cents), receiptWidth)
}

func padBetween(left string, right string, width int) string {
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func centerText(text string, width int) string {
	if len(text) >= width {
		return text
	}
	left := (width - len(text)) / 2
	return strings.Repeat(" ", left) + text
}
