package identity

import (
	"context"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	// AddBalances atomically adjusts a user's lifetime earnings and spend.
	AddBalances(ctx context.Context, id uuid.UUID, earningsDelta, spentDelta float64) error
	Count(ctx context.Context) (int, error)
}
