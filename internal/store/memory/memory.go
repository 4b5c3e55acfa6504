package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"beanledger/internal/domain"
	"beanledger/internal/membership"
	"beanledger/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	menuItems       map[string]domain.MenuItem
	membersByPhone  map[string]domain.Member
	ordersByID      map[string]domain.Order
	paymentsByID    map[string]domain.Payment
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	items := []domain.MenuItem{
		{ID: "espresso", Name: "Espresso", Category: domain.CategoryCoffee, PriceCents: 250, Available: true},
		{ID: "americano", Name: "Americano", Category: domain.CategoryCoffee, PriceCents: 300, Available: true},
		{ID: "latte", Name: "Caffe Latte", Category: domain.CategoryCoffee, PriceCents: 400, Available: true},
		{ID: "cappuccino", Name: "Cappuccino", Category: domain.CategoryCoffee, PriceCents: 400, Available: true},
		{ID: "mocha", Name: "Caffe Mocha", Category: domain.CategoryCoffee, PriceCents: 450, Available: true},
		{ID: "green-tea", Name: "Green Tea", Category: domain.CategoryBeverage, PriceCents: 350, Available: true},
		{ID: "lemonade", Name: "Fresh Lemonade", Category: domain.CategoryBeverage, PriceCents: 380, Available: true},
		{ID: "hot-choco", Name: "Hot Chocolate", Category: domain.CategoryBeverage, PriceCents: 420, Available: true},
		{ID: "cheesecake", Name: "Cheesecake", Category: domain.CategoryDessert, PriceCents: 550, Available: true},
		{ID: "muffin", Name: "Blueberry Muffin", Category: domain.CategoryDessert, PriceCents: 320, Available: true},
		{ID: "tiramisu", Name: "Tiramisu", Category: domain.CategoryDessert, PriceCents: 580, Available: true},
		{ID: "club-sandwich", Name: "Club Sandwich", Category: domain.CategoryFood, PriceCents: 680, Available: true},
		{ID: "bagel", Name: "Plain Bagel", Category: domain.CategoryFood, PriceCents: 280, Available: true},
	}

	itemMap := make(map[string]domain.MenuItem, len(items))
	for _, item := range items {
		itemMap[item.ID] = item
	}

	return &Store{
		menuItems:       itemMap,
		membersByPhone:  make(map[string]domain.Member),
		ordersByID:      make(map[string]domain.Order),
		paymentsByID:    make(map[string]domain.Payment),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListMenuItems(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.MenuItem, 0, len(s.menuItems))
	for _, item := range s.menuItems {
		items = append(items, item)
	}
	sortMenuItems(items)
	return items, nil
}

func (s *Store) ListMenuItemsByCategory(_ context.Context, category string) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.MenuItem, 0)
	for _, item := range s.menuItems {
		if item.Category == category {
			items = append(items, item)
		}
	}
	sortMenuItems(items)
	return items, nil
}

func (s *Store) GetMenuItem(_ context.Context, id string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.menuItems[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) CreateMenuItem(_ context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" || item.Name == "" || item.PriceCents < 1 || !domain.ValidCategory(item.Category) {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.menuItems[item.ID]; exists {
		return nil, store.ErrDuplicateID
	}

	s.menuItems[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateMenuItem(_ context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" || item.Name == "" || item.PriceCents < 1 || !domain.ValidCategory(item.Category) {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.menuItems[item.ID]; !exists {
		return nil, store.ErrNotFound
	}

	s.menuItems[item.ID] = item
	updated := item
	return &updated, nil
}

func (s *Store) SetMenuItemAvailability(_ context.Context, id string, available bool) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.menuItems[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	item.Available = available
	s.menuItems[id] = item
	updated := item
	return &updated, nil
}

func (s *Store) DeleteMenuItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.menuItems[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.menuItems, id)
	return nil
}

func (s *Store) ListMembers(_ context.Context) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]domain.Member, 0, len(s.membersByPhone))
	for _, m := range s.membersByPhone {
		members = append(members, m)
	}
	sortMembers(members)
	return members, nil
}

func (s *Store) ListMembersByLevel(_ context.Context, level int) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]domain.Member, 0)
	for _, m := range s.membersByPhone {
		if m.Level == level {
			members = append(members, m)
		}
	}
	sortMembers(members)
	return members, nil
}

func (s *Store) SearchMembers(_ context.Context, query string) ([]domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	members := make([]domain.Member, 0)
	for _, m := range s.membersByPhone {
		if needle == "" ||
			strings.Contains(strings.ToLower(m.Name), needle) ||
			strings.Contains(m.Phone, needle) {
			members = append(members, m)
		}
	}
	sortMembers(members)
	return members, nil
}

func (s *Store) GetMemberByPhone(_ context.Context, phone string) (*domain.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, exists := s.membersByPhone[phone]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyMember := member
	return &copyMember, nil
}

func (s *Store) CreateMember(_ context.Context, member domain.Member) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.Phone == "" || member.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.membersByPhone[member.Phone]; exists {
		return nil, store.ErrDuplicateID
	}

	membership.Recalculate(&member)
	s.membersByPhone[member.Phone] = member
	created := member
	return &created, nil
}

// UpdateMember rewrites the member stored under phone. A phone change
// moves the record to the new key; the new phone must be free.
func (s *Store) UpdateMember(_ context.Context, phone string, member domain.Member) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if member.Phone == "" || member.Name == "" {
		return nil, store.ErrInvalidArgument
	}
	if _, exists := s.membersByPhone[phone]; !exists {
		return nil, store.ErrNotFound
	}
	if member.Phone != phone {
		if _, taken := s.membersByPhone[member.Phone]; taken {
			return nil, store.ErrDuplicateID
		}
		delete(s.membersByPhone, phone)
	}

	membership.Recalculate(&member)
	s.membersByPhone[member.Phone] = member
	updated := member
	return &updated, nil
}

func (s *Store) DeleteMember(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.membersByPhone[phone]; !exists {
		return store.ErrNotFound
	}
	delete(s.membersByPhone, phone)
	return nil
}

func (s *Store) SaveOrder(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		return store.ErrInvalidArgument
	}
	order.Lines = append([]domain.OrderLine(nil), order.Lines...)
	s.ordersByID[order.ID] = order
	return nil
}

func (s *Store) SavePayment(_ context.Context, payment domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if payment.ID == "" || payment.OrderID == "" {
		return store.ErrInvalidArgument
	}
	s.paymentsByID[payment.ID] = payment
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidArgument
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrDuplicateID
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func sortMenuItems(items []domain.MenuItem) {
	slices.SortFunc(items, func(a, b domain.MenuItem) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
}

func sortMembers(members []domain.Member) {
	slices.SortFunc(members, func(a, b domain.Member) int {
		if a.Name == b.Name {
			return cmpString(a.Phone, b.Phone)
		}
		return cmpString(a.Name, b.Name)
	})
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
