package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"beanledger/internal/domain"
	"beanledger/internal/membership"
	"beanledger/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	return s.queryMenuItems(ctx, `
		SELECT id, name, category, price_cents, description, image_path, available
		FROM menu_items
		ORDER BY category, name
	`)
}

func (s *Store) ListMenuItemsByCategory(ctx context.Context, category string) ([]domain.MenuItem, error) {
	return s.queryMenuItems(ctx, `
		SELECT id, name, category, price_cents, description, image_path, available
		FROM menu_items
		WHERE category = $1
		ORDER BY name
	`, category)
}

func (s *Store) queryMenuItems(ctx context.Context, query string, args ...any) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 64)
	for rows.Next() {
		var item domain.MenuItem
		var description, imagePath sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.PriceCents, &description, &imagePath, &item.Available); err != nil {
			return nil, err
		}
		item.Description = description.String
		item.ImagePath = imagePath.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Store) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	var description, imagePath sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price_cents, description, image_path, available
		FROM menu_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Category, &item.PriceCents, &description, &imagePath, &item.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.Description = description.String
	item.ImagePath = imagePath.String
	return &item, nil
}

func (s *Store) CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if item.ID == "" || item.Name == "" || item.PriceCents < 1 || !domain.ValidCategory(item.Category) {
		return nil, store.ErrInvalidArgument
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO menu_items (id, name, category, price_cents, description, image_path, available, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now())
	`, item.ID, item.Name, item.Category, item.PriceCents, nullIfEmpty(item.Description), nullIfEmpty(item.ImagePath), item.Available)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateID
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	if item.ID == "" || item.Name == "" || item.PriceCents < 1 || !domain.ValidCategory(item.Category) {
		return nil, store.ErrInvalidArgument
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE menu_items
		SET name = $2, category = $3, price_cents = $4, description = $5, image_path = $6, available = $7, updated_at = now()
		WHERE id = $1
	`, item.ID, item.Name, item.Category, item.PriceCents, nullIfEmpty(item.Description), nullIfEmpty(item.ImagePath), item.Available)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	updated := item
	return &updated, nil
}

func (s *Store) SetMenuItemAvailability(ctx context.Context, id string, available bool) (*domain.MenuItem, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE menu_items
		SET available = $2, updated_at = now()
		WHERE id = $1
	`, id, available)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return s.GetMenuItem(ctx, id)
}

func (s *Store) DeleteMenuItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListMembers(ctx context.Context) ([]domain.Member, error) {
	return s.queryMembers(ctx, `
		SELECT phone, name, total_spent_cents
		FROM members
		ORDER BY name, phone
	`)
}

func (s *Store) ListMembersByLevel(ctx context.Context, level int) ([]domain.Member, error) {
	members, err := s.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if m.Level == level {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func (s *Store) SearchMembers(ctx context.Context, query string) ([]domain.Member, error) {
	needle := "%" + strings.TrimSpace(query) + "%"
	return s.queryMembers(ctx, `
		SELECT phone, name, total_spent_cents
		FROM members
		WHERE name ILIKE $1 OR phone LIKE $1
		ORDER BY name, phone
	`, needle)
}

func (s *Store) queryMembers(ctx context.Context, query string, args ...any) ([]domain.Member, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.Member, 0, 64)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.Phone, &m.Name, &m.TotalSpentCents); err != nil {
			return nil, err
		}
		membership.Recalculate(&m)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return members, nil
}

func (s *Store) GetMemberByPhone(ctx context.Context, phone string) (*domain.Member, error) {
	var m domain.Member
	err := s.db.QueryRowContext(ctx, `
		SELECT phone, name, total_spent_cents
		FROM members
		WHERE phone = $1
	`, phone).Scan(&m.Phone, &m.Name, &m.TotalSpentCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	membership.Recalculate(&m)
	return &m, nil
}

func (s *Store) CreateMember(ctx context.Context, member domain.Member) (*domain.Member, error) {
	if member.Phone == "" || member.Name == "" {
		return nil, store.ErrInvalidArgument
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (phone, name, total_spent_cents, created_at, updated_at)
		VALUES ($1,$2,$3,now(),now())
	`, member.Phone, member.Name, member.TotalSpentCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateID
		}
		return nil, err
	}

	membership.Recalculate(&member)
	created := member
	return &created, nil
}

func (s *Store) UpdateMember(ctx context.Context, phone string, member domain.Member) (*domain.Member, error) {
	if member.Phone == "" || member.Name == "" {
		return nil, store.ErrInvalidArgument
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE members
		SET phone = $2, name = $3, total_spent_cents = $4, updated_at = now()
		WHERE phone = $1
	`, phone, member.Phone, member.Name, member.TotalSpentCents)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateID
		}
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}

	membership.Recalculate(&member)
	updated := member
	return &updated, nil
}

func (s *Store) DeleteMember(ctx context.Context, phone string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE phone = $1`, phone)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SaveOrder upserts the full order row, lines serialized as jsonb. The
// same id is written again on cancellation with the new status.
func (s *Store) SaveOrder(ctx context.Context, order domain.Order) error {
	if order.ID == "" {
		return store.ErrInvalidArgument
	}
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (id, lines, discount_percent, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (id) DO UPDATE
		SET lines = EXCLUDED.lines, discount_percent = EXCLUDED.discount_percent,
		    status = EXCLUDED.status, updated_at = now()
	`, order.ID, lines, order.DiscountPercent, order.Status, order.CreatedAt)
	return err
}

func (s *Store) SavePayment(ctx context.Context, payment domain.Payment) error {
	if payment.ID == "" || payment.OrderID == "" {
		return store.ErrInvalidArgument
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, amount_cents, method, received_cents, change_cents, paid_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE
		SET amount_cents = EXCLUDED.amount_cents, method = EXCLUDED.method,
		    received_cents = EXCLUDED.received_cents, change_cents = EXCLUDED.change_cents,
		    paid_at = EXCLUDED.paid_at
	`, payment.ID, payment.OrderID, payment.AmountCents, payment.Method, payment.ReceivedCents, payment.ChangeCents, payment.PaidAt)
	return err
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidArgument
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrDuplicateID
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
