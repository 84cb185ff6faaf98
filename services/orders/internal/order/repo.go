package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
)

// OrderRepo persists orders together with their items. Get and Save return
// ErrNotFound when the order does not exist. ListSince returns every order
// not yet delivered plus the delivered ones updated at or after since.
type OrderRepo interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context) ([]*Order, error)
	ListByStatus(ctx context.Context, status orderstatus.Status) ([]*Order, error)
	ListSince(ctx context.Context, since time.Time) ([]*Order, error)
	Save(ctx context.Context, order *Order) error
}
