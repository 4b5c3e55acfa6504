package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"beanledger/internal/domain"
	"beanledger/internal/ledger"
	"beanledger/internal/membership"
	"beanledger/internal/report"
	"beanledger/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Service orchestrates the catalog, members, checkout and cancellation.
// The ledger is the session's source of truth for recorded sales; the
// repository is written after the fact and failures there are logged,
// never surfaced to the register.
type Service struct {
	repo        store.Repository
	ledger      *ledger.Ledger
	reports     *report.Engine
	displayRate float64
	now         func() time.Time
}

func New(repo store.Repository, salesLedger *ledger.Ledger, reports *report.Engine, displayCurrencyRate float64) *Service {
	return &Service{
		repo:        repo,
		ledger:      salesLedger,
		reports:     reports,
		displayRate: displayCurrencyRate,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	return s.repo.ListMenuItems(ctx)
}

func (s *Service) ListMenuItemsByCategory(ctx context.Context, category string) ([]domain.MenuItem, error) {
	if !domain.ValidCategory(category) {
		return nil, fmt.Errorf("category %q: %w", category, store.ErrInvalidArgument)
	}
	return s.repo.ListMenuItemsByCategory(ctx, category)
}

func (s *Service) GetMenuItem(ctx context.Context, id string) (domain.MenuItem, error) {
	item, err := s.repo.GetMenuItem(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.MenuItem{}, err
	}
	return *item, nil
}

func (s *Service) CreateMenuItem(ctx context.Context, req domain.MenuItemCreateRequest) (domain.MenuItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.MenuItem{}, fmt.Errorf("admin role required")
	}

	req.ID = strings.ToLower(strings.TrimSpace(req.ID))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.ID == "" || req.Name == "" || req.PriceCents < 1 || !domain.ValidCategory(req.Category) {
		return domain.MenuItem{}, store.ErrInvalidArgument
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	created, err := s.repo.CreateMenuItem(ctx, domain.MenuItem{
		ID:          req.ID,
		Name:        req.Name,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Description: strings.TrimSpace(req.Description),
		ImagePath:   strings.TrimSpace(req.ImagePath),
		Available:   available,
	})
	if err != nil {
		return domain.MenuItem{}, err
	}

	log.Printf("[service] audit actor=%s action=menu_create id=%s price=%d", actor.Username, created.ID, created.PriceCents)
	return *created, nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, id string, req domain.MenuItemUpdateRequest) (domain.MenuItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.MenuItem{}, fmt.Errorf("admin role required")
	}

	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return domain.MenuItem{}, store.ErrInvalidArgument
	}

	existing, err := s.repo.GetMenuItem(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.MenuItem{}, store.ErrInvalidArgument
		}
		updated.Name = name
	}
	if req.Category != nil {
		if !domain.ValidCategory(*req.Category) {
			return domain.MenuItem{}, store.ErrInvalidArgument
		}
		updated.Category = *req.Category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.MenuItem{}, store.ErrInvalidArgument
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.ImagePath != nil {
		updated.ImagePath = strings.TrimSpace(*req.ImagePath)
	}
	if req.Available != nil {
		updated.Available = *req.Available
	}

	saved, err := s.repo.UpdateMenuItem(ctx, updated)
	if err != nil {
		return domain.MenuItem{}, err
	}

	log.Printf("[service] audit actor=%s action=menu_update id=%s", actor.Username, saved.ID)
	return *saved, nil
}

func (s *Service) SetMenuItemAvailability(ctx context.Context, id string, available bool) (domain.MenuItem, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.MenuItem{}, fmt.Errorf("admin role required")
	}

	saved, err := s.repo.SetMenuItemAvailability(ctx, strings.TrimSpace(id), available)
	if err != nil {
		return domain.MenuItem{}, err
	}
	log.Printf("[service] audit actor=%s action=menu_availability id=%s available=%t", actor.Username, saved.ID, available)
	return *saved, nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	if err := s.repo.DeleteMenuItem(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	log.Printf("[service] audit actor=%s action=menu_delete id=%s", actor.Username, id)
	return nil
}

func (s *Service) ListMembers(ctx context.Context) ([]domain.Member, error) {
	return s.repo.ListMembers(ctx)
}

func (s *Service) ListMembersByLevel(ctx context.Context, level int) ([]domain.Member, error) {
	if level < 1 || level > 5 {
		return nil, fmt.Errorf("level %d: %w", level, store.ErrInvalidArgument)
	}
	return s.repo.ListMembersByLevel(ctx, level)
}

func (s *Service) SearchMembers(ctx context.Context, query string) ([]domain.Member, error) {
	return s.repo.SearchMembers(ctx, query)
}

func (s *Service) GetMember(ctx context.Context, phone string) (domain.MemberLookupResponse, error) {
	member, err := s.repo.GetMemberByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return domain.MemberLookupResponse{}, err
	}

	return domain.MemberLookupResponse{
		Member:           *member,
		LevelName:        membership.LevelName(member.Level),
		ToNextLevelCents: membership.AmountToNextLevelCents(*member),
	}, nil
}

// CreateMember has no role gate: membership signup happens at the register.
func (s *Service) CreateMember(ctx context.Context, req domain.MemberCreateRequest) (domain.Member, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Name = strings.TrimSpace(req.Name)
	if req.Phone == "" || req.Name == "" {
		return domain.Member{}, store.ErrInvalidArgument
	}

	created, err := s.repo.CreateMember(ctx, domain.Member{Phone: req.Phone, Name: req.Name})
	if err != nil {
		return domain.Member{}, err
	}
	return *created, nil
}

func (s *Service) UpdateMember(ctx context.Context, phone string, req domain.MemberUpdateRequest) (domain.Member, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Member{}, fmt.Errorf("admin role required")
	}

	phone = strings.TrimSpace(phone)
	existing, err := s.repo.GetMemberByPhone(ctx, phone)
	if err != nil {
		return domain.Member{}, err
	}

	updated := *existing
	if req.Phone != nil {
		newPhone := strings.TrimSpace(*req.Phone)
		if newPhone == "" {
			return domain.Member{}, store.ErrInvalidArgument
		}
		updated.Phone = newPhone
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Member{}, store.ErrInvalidArgument
		}
		updated.Name = name
	}

	saved, err := s.repo.UpdateMember(ctx, phone, updated)
	if err != nil {
		return domain.Member{}, err
	}

	log.Printf("[service] audit actor=%s action=member_update phone=%s", actor.Username, saved.Phone)
	return *saved, nil
}

func (s *Service) DeleteMember(ctx context.Context, phone string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}

	if err := s.repo.DeleteMember(ctx, strings.TrimSpace(phone)); err != nil {
		return err
	}
	log.Printf("[service] audit actor=%s action=member_delete phone=%s", actor.Username, phone)
	return nil
}

// Checkout validates the cart against the catalog, applies the order and
// membership discounts, captures the payment and records the sale in the
// ledger. Repository writes afterwards are best effort.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	if !domain.ValidPaymentMethod(req.PaymentMethod) {
		return domain.CheckoutResponse{}, fmt.Errorf("payment method %q: %w", req.PaymentMethod, store.ErrInvalidArgument)
	}
	if len(req.Lines) == 0 {
		return domain.CheckoutResponse{}, fmt.Errorf("empty cart: %w", store.ErrInvalidArgument)
	}

	now := s.now()
	order := &domain.Order{
		ID:        s.ledger.NextOrderID(now),
		Status:    domain.OrderStatusOpen,
		CreatedAt: now,
	}
	if err := order.SetDiscountPercent(req.DiscountPercent); err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("%v: %w", err, store.ErrInvalidArgument)
	}
	if err := s.fillCart(ctx, order, req.Lines); err != nil {
		return domain.CheckoutResponse{}, err
	}

	var member *domain.Member
	var memberDiscount int64
	if phone := strings.TrimSpace(req.MemberPhone); phone != "" {
		found, err := s.repo.GetMemberByPhone(ctx, phone)
		if err != nil {
			return domain.CheckoutResponse{}, fmt.Errorf("member %s: %w", phone, err)
		}
		member = found
		memberDiscount = membership.DiscountCents(*member, order.TotalCents())
	}

	due := order.TotalCents() - memberDiscount

	payment := domain.Payment{
		ID:          "PAY" + order.ID,
		OrderID:     order.ID,
		AmountCents: due,
		Method:      req.PaymentMethod,
		PaidAt:      now,
	}
	if req.PaymentMethod == domain.PaymentMethodCash {
		if req.CashReceivedCents < due {
			return domain.CheckoutResponse{}, fmt.Errorf("cash received %d below due %d: %w", req.CashReceivedCents, due, store.ErrInvalidArgument)
		}
		payment.ReceivedCents = req.CashReceivedCents
		payment.ChangeCents = req.CashReceivedCents - due
	}

	order.Status = domain.OrderStatusCompleted
	if err := s.ledger.Record(order, payment); err != nil {
		return domain.CheckoutResponse{}, err
	}

	if err := s.repo.SaveOrder(ctx, *order); err != nil {
		log.Printf("[service] WARN: persist order %s: %v", order.ID, err)
	}
	if err := s.repo.SavePayment(ctx, payment); err != nil {
		log.Printf("[service] WARN: persist payment %s: %v", payment.ID, err)
	}

	resp := domain.CheckoutResponse{
		OrderID:             order.ID,
		PaymentID:           payment.ID,
		Status:              order.Status,
		PaymentMethod:       payment.Method,
		SubtotalCents:       order.SubtotalCents(),
		DiscountCents:       order.DiscountCents(),
		MemberDiscountCents: memberDiscount,
		TotalCents:          due,
		CashReceivedCents:   payment.ReceivedCents,
		ChangeCents:         payment.ChangeCents,
		PaidAt:              payment.PaidAt.Format(time.RFC3339),
	}

	if member != nil {
		membership.AddSpending(member, due)
		if _, err := s.repo.UpdateMember(ctx, member.Phone, *member); err != nil {
			log.Printf("[service] WARN: persist member spending phone=%s: %v", member.Phone, err)
		}
		resp.MemberLevel = member.Level
		resp.MemberDiscountPercent = member.DiscountPercent
	}

	return resp, nil
}

// fillCart resolves cart lines against the catalog and adds them to the
// order; Order.AddLine merges duplicate item ids into the first-seen line
// so receipts keep insertion order.
func (s *Service) fillCart(ctx context.Context, order *domain.Order, reqLines []domain.CheckoutLine) error {
	for _, reqLine := range reqLines {
		id := strings.TrimSpace(reqLine.MenuItemID)
		if id == "" || reqLine.Qty < 1 {
			return fmt.Errorf("line item=%q qty=%d: %w", reqLine.MenuItemID, reqLine.Qty, store.ErrInvalidArgument)
		}

		item, err := s.repo.GetMenuItem(ctx, id)
		if err != nil {
			return fmt.Errorf("menu item %s: %w", id, err)
		}
		if !item.Available {
			return fmt.Errorf("menu item %s unavailable: %w", id, store.ErrInvalidArgument)
		}

		if err := order.AddLine(domain.OrderLine{
			MenuItemID:     item.ID,
			ItemName:       item.Name,
			UnitPriceCents: item.PriceCents,
			Qty:            reqLine.Qty,
		}); err != nil {
			return fmt.Errorf("%v: %w", err, store.ErrInvalidArgument)
		}
	}
	return nil
}

// CancelOrder rolls the sale back in the ledger and then writes the
// cancelled order through to the repository, best effort.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (domain.CancelOrderResponse, error) {
	actor, _ := ActorFromContext(ctx)

	result, err := s.ledger.Cancel(strings.TrimSpace(orderID))
	if err != nil {
		return domain.CancelOrderResponse{}, err
	}

	if err := s.repo.SaveOrder(ctx, *result.Order); err != nil {
		log.Printf("[service] WARN: persist cancelled order %s: %v", result.Order.ID, err)
	}

	log.Printf("[service] audit actor=%s action=order_cancel id=%s payment_indexed=%t", actor.Username, result.Order.ID, result.PaymentIndexed)
	return domain.CancelOrderResponse{
		OrderID:        result.Order.ID,
		Status:         result.Order.Status,
		PaymentIndexed: result.PaymentIndexed,
		CancelledAt:    s.now().Format(time.RFC3339),
	}, nil
}

func (s *Service) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	order, err := s.ledger.GetOrder(strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) SearchSales(_ context.Context, req domain.SalesSearchRequest) (domain.SalesSearchResponse, error) {
	if req.Year < 2000 || req.Month < 1 || req.Month > 12 || req.Day < 1 || req.Day > 31 {
		return domain.SalesSearchResponse{}, fmt.Errorf("date %04d-%02d-%02d: %w", req.Year, req.Month, req.Day, store.ErrInvalidArgument)
	}

	results := s.ledger.Search(req.Year, time.Month(req.Month), req.Day, req.AmountCents)
	return domain.SalesSearchResponse{Results: results}, nil
}

func (s *Service) DailySummary(ctx context.Context, date time.Time) domain.DailySummary {
	return s.reports.DailySummary(ctx, date)
}

func (s *Service) MonthlyRevenue(_ context.Context, year int, month int) (domain.MonthlyRevenueResponse, error) {
	if year < 2000 || month < 1 || month > 12 {
		return domain.MonthlyRevenueResponse{}, fmt.Errorf("month %04d-%02d: %w", year, month, store.ErrInvalidArgument)
	}
	return domain.MonthlyRevenueResponse{
		Year:         year,
		Month:        month,
		RevenueCents: s.reports.MonthlyRevenue(year, time.Month(month)),
	}, nil
}

func (s *Service) PopularItems(ctx context.Context) domain.PopularItemsResponse {
	return domain.PopularItemsResponse{
		Items:       s.reports.PopularItems(ctx),
		GeneratedAt: s.now().Format(time.RFC3339),
	}
}

func (s *Service) ExportSalesCSV(_ context.Context, from time.Time, to time.Time) ([]byte, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range end before start: %w", store.ErrInvalidArgument)
	}
	return s.reports.ExportSalesCSV(from, to)
}

func (s *Service) ExportPopularItemsCSV(ctx context.Context) ([]byte, error) {
	return s.reports.ExportPopularItemsCSV(ctx)
}
