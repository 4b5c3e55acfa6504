package store

import (
	"context"
	"errors"

	"beanledger/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrInvalidArgument = errors.New("invalid argument")
)

type Repository interface {
	ListMenuItems(ctx context.Context) ([]domain.MenuItem, error)
	ListMenuItemsByCategory(ctx context.Context, category string) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	SetMenuItemAvailability(ctx context.Context, id string, available bool) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id string) error

	ListMembers(ctx context.Context) ([]domain.Member, error)
	ListMembersByLevel(ctx context.Context, level int) ([]domain.Member, error)
	SearchMembers(ctx context.Context, query string) ([]domain.Member, error)
	GetMemberByPhone(ctx context.Context, phone string) (*domain.Member, error)
	CreateMember(ctx context.Context, member domain.Member) (*domain.Member, error)
	UpdateMember(ctx context.Context, phone string, member domain.Member) (*domain.Member, error)
	DeleteMember(ctx context.Context, phone string) error

	SaveOrder(ctx context.Context, order domain.Order) error
	SavePayment(ctx context.Context, payment domain.Payment) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
