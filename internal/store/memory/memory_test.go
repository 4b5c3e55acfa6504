package memory

import (
	"context"
	"errors"
	"testing"

	"beanledger/internal/domain"
	"beanledger/internal/store"
)

func TestSeededCatalogSortedByCategoryThenName(t *testing.T) {
	s := NewSeeded()

	items, err := s.ListMenuItems(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 13 {
		t.Fatalf("expected 13 seeded items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1], items[i]
		if prev.Category > cur.Category {
			t.Fatalf("items not sorted by category: %s before %s", prev.Category, cur.Category)
		}
		if prev.Category == cur.Category && prev.Name > cur.Name {
			t.Fatalf("items not sorted by name within %s: %s before %s", cur.Category, prev.Name, cur.Name)
		}
	}
}

func TestMenuItemCRUD(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	created, err := s.CreateMenuItem(ctx, domain.MenuItem{
		ID:         "flat-white",
		Name:       "Flat White",
		Category:   domain.CategoryCoffee,
		PriceCents: 420,
		Available:  true,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := s.CreateMenuItem(ctx, *created); !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	if _, err := s.CreateMenuItem(ctx, domain.MenuItem{ID: "bad", Name: "Bad", Category: "sushi", PriceCents: 100}); !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bad category, got %v", err)
	}

	created.PriceCents = 450
	updated, err := s.UpdateMenuItem(ctx, *created)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.PriceCents != 450 {
		t.Fatalf("expected updated price 450, got %d", updated.PriceCents)
	}

	toggled, err := s.SetMenuItemAvailability(ctx, "flat-white", false)
	if err != nil {
		t.Fatalf("set availability failed: %v", err)
	}
	if toggled.Available {
		t.Fatalf("expected item unavailable")
	}

	if err := s.DeleteMenuItem(ctx, "flat-white"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.GetMenuItem(ctx, "flat-white"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteMenuItem(ctx, "flat-white"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestListMenuItemsByCategory(t *testing.T) {
	s := NewSeeded()

	desserts, err := s.ListMenuItemsByCategory(context.Background(), domain.CategoryDessert)
	if err != nil {
		t.Fatalf("list by category failed: %v", err)
	}
	if len(desserts) != 3 {
		t.Fatalf("expected 3 desserts, got %d", len(desserts))
	}
	for _, item := range desserts {
		if item.Category != domain.CategoryDessert {
			t.Fatalf("unexpected category %s", item.Category)
		}
	}
}

func TestCreateMemberRecalculatesTier(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	created, err := s.CreateMember(ctx, domain.Member{
		Phone:           "010-1234-5678",
		Name:            "Park Jiwoo",
		TotalSpentCents: 200000,
		Level:           99, // must be overwritten
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Level != 2 || created.DiscountPercent != 15 {
		t.Fatalf("expected derived tier 2/15%%, got %d/%d%%", created.Level, created.DiscountPercent)
	}

	if _, err := s.CreateMember(ctx, domain.Member{Phone: "010-1234-5678", Name: "Someone Else"}); !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for taken phone, got %v", err)
	}
}

func TestUpdateMemberMovesPhoneKey(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CreateMember(ctx, domain.Member{Phone: "010-1111-1111", Name: "Lee Minji"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.CreateMember(ctx, domain.Member{Phone: "010-2222-2222", Name: "Choi Hana"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Moving onto a taken phone must fail and leave both records alone.
	if _, err := s.UpdateMember(ctx, "010-1111-1111", domain.Member{Phone: "010-2222-2222", Name: "Lee Minji"}); !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID for taken new phone, got %v", err)
	}

	moved, err := s.UpdateMember(ctx, "010-1111-1111", domain.Member{Phone: "010-3333-3333", Name: "Lee Minji"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if moved.Phone != "010-3333-3333" {
		t.Fatalf("expected new phone, got %s", moved.Phone)
	}
	if _, err := s.GetMemberByPhone(ctx, "010-1111-1111"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected old phone key gone, got %v", err)
	}
	if _, err := s.GetMemberByPhone(ctx, "010-3333-3333"); err != nil {
		t.Fatalf("expected member under new phone: %v", err)
	}
}

func TestSearchMembers(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	for _, m := range []domain.Member{
		{Phone: "010-1111-1111", Name: "Lee Minji"},
		{Phone: "010-2222-2222", Name: "Choi Hana"},
		{Phone: "010-3333-1111", Name: "Min Seola"},
	} {
		if _, err := s.CreateMember(ctx, m); err != nil {
			t.Fatalf("create %s failed: %v", m.Phone, err)
		}
	}

	byName, err := s.SearchMembers(ctx, "min")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(byName) != 2 {
		t.Fatalf("expected 2 matches for 'min', got %d", len(byName))
	}

	byPhone, err := s.SearchMembers(ctx, "1111")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(byPhone) != 2 {
		t.Fatalf("expected 2 phone matches for '1111', got %d", len(byPhone))
	}

	all, err := s.SearchMembers(ctx, "  ")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected blank query to return everyone, got %d", len(all))
	}
}

func TestListMembersByLevel(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if _, err := s.CreateMember(ctx, domain.Member{Phone: "010-1111-1111", Name: "Lee Minji", TotalSpentCents: 300000}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.CreateMember(ctx, domain.Member{Phone: "010-2222-2222", Name: "Choi Hana"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	vips, err := s.ListMembersByLevel(ctx, 1)
	if err != nil {
		t.Fatalf("list by level failed: %v", err)
	}
	if len(vips) != 1 || vips[0].Phone != "010-1111-1111" {
		t.Fatalf("expected one level-1 member, got %v", vips)
	}
}

func TestSaveOrderAndPaymentValidation(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	if err := s.SaveOrder(ctx, domain.Order{}); !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank order id, got %v", err)
	}
	if err := s.SaveOrder(ctx, domain.Order{ID: "202608280001", Status: domain.OrderStatusCompleted}); err != nil {
		t.Fatalf("save order failed: %v", err)
	}

	if err := s.SavePayment(ctx, domain.Payment{ID: "PAY202608280001"}); !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for blank order ref, got %v", err)
	}
	if err := s.SavePayment(ctx, domain.Payment{ID: "PAY202608280001", OrderID: "202608280001", AmountCents: 500}); err != nil {
		t.Fatalf("save payment failed: %v", err)
	}
}

func TestSeededUsersAreHashed(t *testing.T) {
	s := NewSeeded()

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 seeded users, got %d", len(users))
	}
	for _, u := range users {
		if u.Password == "admin123" || u.Password == "cashier123" {
			t.Fatalf("seed password for %s stored in plain text", u.Username)
		}
	}
}
