package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type MenuItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Description string `json:"description,omitempty"`
	ImagePath   string `json:"image_path,omitempty"`
	Available   bool   `json:"available"`
}

type MenuItemCreateRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Description string `json:"description,omitempty"`
	ImagePath   string `json:"image_path,omitempty"`
	Available   *bool  `json:"available,omitempty"`
}

type MenuItemUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Description *string `json:"description,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`
	Available   *bool   `json:"available,omitempty"`
}

type MenuItemAvailabilityRequest struct {
	Available bool `json:"available"`
}

type OrderLine struct {
	MenuItemID     string `json:"menu_item_id"`
	ItemName       string `json:"item_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
}

func (l OrderLine) SubtotalCents() int64 {
	return l.UnitPriceCents * int64(l.Qty)
}

type Order struct {
	ID              string      `json:"id"`
	Lines           []OrderLine `json:"lines"`
	DiscountPercent int         `json:"discount_percent"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// AddLine puts a snapshot line on an open order. Adding the same menu
// item again merges into the existing line, keeping its position.
func (o *Order) AddLine(line OrderLine) error {
	if o.Status != OrderStatusOpen {
		return errors.New("order is not open")
	}
	if line.MenuItemID == "" || line.Qty < 1 {
		return fmt.Errorf("invalid line item=%q qty=%d", line.MenuItemID, line.Qty)
	}
	for i := range o.Lines {
		if o.Lines[i].MenuItemID == line.MenuItemID {
			o.Lines[i].Qty += line.Qty
			return nil
		}
	}
	o.Lines = append(o.Lines, line)
	return nil
}

// SetDiscountPercent validates the percentage before mutating.
func (o *Order) SetDiscountPercent(pct int) error {
	if o.Status != OrderStatusOpen {
		return errors.New("order is not open")
	}
	if pct < 0 || pct > 100 {
		return fmt.Errorf("discount percent %d out of range", pct)
	}
	o.DiscountPercent = pct
	return nil
}

// Clear empties the cart of an open order and resets its discount.
func (o *Order) Clear() error {
	if o.Status != OrderStatusOpen {
		return errors.New("order is not open")
	}
	o.Lines = nil
	o.DiscountPercent = 0
	return nil
}

func (o *Order) SubtotalCents() int64 {
	var sum int64
	for _, line := range o.Lines {
		sum += line.SubtotalCents()
	}
	return sum
}

func (o *Order) DiscountCents() int64 {
	if o.DiscountPercent <= 0 {
		return 0
	}
	return int64(math.Round(float64(o.SubtotalCents()) * float64(o.DiscountPercent) / 100))
}

func (o *Order) TotalCents() int64 {
	return o.SubtotalCents() - o.DiscountCents()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Lines = append([]OrderLine(nil), o.Lines...)
	return &cp
}

type Payment struct {
	ID            string    `json:"id"`
	OrderID       string    `json:"order_id"`
	AmountCents   int64     `json:"amount_cents"`
	Method        string    `json:"method"`
	ReceivedCents int64     `json:"received_cents,omitempty"`
	ChangeCents   int64     `json:"change_cents,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

type Member struct {
	Phone           string `json:"phone"`
	Name            string `json:"name"`
	TotalSpentCents int64  `json:"total_spent_cents"`
	Level           int    `json:"level"`
	DiscountPercent int    `json:"discount_percent"`
}

type MemberCreateRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type MemberUpdateRequest struct {
	Phone *string `json:"phone,omitempty"`
	Name  *string `json:"name,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CheckoutLine struct {
	MenuItemID string `json:"menu_item_id"`
	Qty        int    `json:"qty"`
}

type CheckoutRequest struct {
	Lines             []CheckoutLine `json:"lines"`
	DiscountPercent   int            `json:"discount_percent"`
	MemberPhone       string         `json:"member_phone,omitempty"`
	PaymentMethod     string         `json:"payment_method"`
	CashReceivedCents int64          `json:"cash_received_cents,omitempty"`
}

type CheckoutResponse struct {
	OrderID               string `json:"order_id"`
	PaymentID             string `json:"payment_id"`
	Status                string `json:"status"`
	PaymentMethod         string `json:"payment_method"`
	SubtotalCents         int64  `json:"subtotal_cents"`
	DiscountCents         int64  `json:"discount_cents"`
	MemberDiscountCents   int64  `json:"member_discount_cents"`
	TotalCents            int64  `json:"total_cents"`
	CashReceivedCents     int64  `json:"cash_received_cents,omitempty"`
	ChangeCents           int64  `json:"change_cents,omitempty"`
	MemberLevel           int    `json:"member_level,omitempty"`
	MemberDiscountPercent int    `json:"member_discount_percent,omitempty"`
	PaidAt                string `json:"paid_at"`
}

type CancelOrderRequest struct {
	ManagerPIN string `json:"manager_pin"`
}

type CancelOrderResponse struct {
	OrderID        string `json:"order_id"`
	Status         string `json:"status"`
	PaymentIndexed bool   `json:"payment_indexed"`
	CancelledAt    string `json:"cancelled_at"`
}

type ReceiptResponse struct {
	OrderID string `json:"order_id"`
	Text    string `json:"text"`
}

type SalesSearchRequest struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
	AmountCents *int64 `json:"amount_cents,omitempty"`
}

type SalesSearchResponse struct {
	Results []Payment `json:"results"`
}

type DailySummary struct {
	Date              string    `json:"date"`
	OrderCount        int       `json:"order_count"`
	RevenueCents      int64     `json:"revenue_cents"`
	Payments          []Payment `json:"payments"`
	CancelledPayments []Payment `json:"cancelled_payments"`
}

type MonthlyRevenueResponse struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	RevenueCents int64 `json:"revenue_cents"`
}

type PopularItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type PopularItemsResponse struct {
	Items       []PopularItem `json:"items"`
	GeneratedAt string        `json:"generated_at"`
}

type MemberLookupResponse struct {
	Member           Member `json:"member"`
	LevelName        string `json:"level_name"`
	ToNextLevelCents int64  `json:"to_next_level_cents"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type User struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	CategoryCoffee   = "coffee"
	CategoryBeverage = "beverage"
	CategoryDessert  = "dessert"
	CategoryFood     = "food"
)

const (
	OrderStatusOpen      = "open"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
)

func ValidCategory(category string) bool {
	switch category {
	case CategoryCoffee, CategoryBeverage, CategoryDessert, CategoryFood:
		return true
	}
	return false
}

func ValidPaymentMethod(method string) bool {
	return method == PaymentMethodCash || method == PaymentMethodCard
}

// FormatCents renders an int64 cent amount as a decimal currency string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// FormatCentsAtRate converts cents to a secondary display currency at a
// fixed exchange rate. Display only, never fed back into stored amounts.
func FormatCentsAtRate(cents int64, rate float64) string {
	return fmt.Sprintf("%.0f", float64(cents)/100*rate)
}
