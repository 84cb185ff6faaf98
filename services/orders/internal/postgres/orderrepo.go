package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/appetiteclub/orderboard/pkg/enums/orderstatus"
	"github.com/appetiteclub/orderboard/pkg/event"
	"github.com/appetiteclub/orderboard/services/orders/internal/order"
)

const (
	orderColumns = `id::text, table_ref, customer_ref, waiter_ref, stato, has_kitchen_items,
		total::text, note, created_at, updated_at`
	itemColumns = `id::text, order_id::text, product_name, product_id, quantity, unit_price::text,
		stato, postazione, note, glasses, configuration::text, created_at, updated_at`
)

// OrderRepo stores orders in the orders table and their items in
// order_items, always written in one transaction.
type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, table_ref, customer_ref, waiter_ref, stato, has_kitchen_items,
			total, note, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10)`,
		o.ID.String(), o.TableRef, o.CustomerRef, o.WaiterRef, o.Status.Code(), o.HasKitchenItems,
		o.Total.String(), o.Note, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	if err := upsertItems(ctx, tx, o); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cannot commit order: %w", err)
	}
	return nil
}

func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cannot begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET table_ref = $2, customer_ref = $3, waiter_ref = $4, stato = $5,
			has_kitchen_items = $6, total = $7::numeric, note = $8, updated_at = $9
		WHERE id = $1::uuid`,
		o.ID.String(), o.TableRef, o.CustomerRef, o.WaiterRef, o.Status.Code(),
		o.HasKitchenItems, o.Total.String(), o.Note, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("cannot update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	if err := upsertItems(ctx, tx, o); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("cannot commit order: %w", err)
	}
	return nil
}

func upsertItems(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	batch := &pgx.Batch{}
	for i, it := range o.Items {
		batch.Queue(`
			INSERT INTO order_items (id, order_id, position, product_name, product_id, quantity,
				unit_price, stato, postazione, note, glasses, configuration, created_at, updated_at)
			VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12::jsonb, $13, $14)
			ON CONFLICT (id) DO UPDATE SET
				position = EXCLUDED.position,
				product_name = EXCLUDED.product_name,
				product_id = EXCLUDED.product_id,
				quantity = EXCLUDED.quantity,
				unit_price = EXCLUDED.unit_price,
				stato = EXCLUDED.stato,
				postazione = EXCLUDED.postazione,
				note = EXCLUDED.note,
				glasses = EXCLUDED.glasses,
				configuration = EXCLUDED.configuration,
				updated_at = EXCLUDED.updated_at`,
			it.ID.String(), o.ID.String(), i, it.ProductName, it.ProductID, it.Quantity,
			it.UnitPrice.String(), it.Status.Code(), it.Station.Code(), it.Note, it.Glasses,
			nullableJSON(it.Configuration), it.CreatedAt, it.UpdatedAt)
	}

	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("cannot store order items: %w", err)
	}
	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	orders, err := r.find(ctx, `WHERE id = $1::uuid`, id.String())
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, order.ErrNotFound
	}
	return orders[0], nil
}

func (r *OrderRepo) List(ctx context.Context) ([]*order.Order, error) {
	return r.find(ctx, "")
}

func (r *OrderRepo) ListByStatus(ctx context.Context, status orderstatus.Status) ([]*order.Order, error) {
	return r.find(ctx, `WHERE stato = $1`, status.Code())
}

func (r *OrderRepo) ListSince(ctx context.Context, since time.Time) ([]*order.Order, error) {
	return r.find(ctx, `WHERE stato <> $1 OR updated_at >= $2`, orderstatus.Statuses.Delivered.Code(), since)
}

func (r *OrderRepo) find(ctx context.Context, where string, args ...any) ([]*order.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}

	var snaps []*event.OrderSnapshot
	index := make(map[string]*event.OrderSnapshot)
	for rows.Next() {
		s := &event.OrderSnapshot{Items: []event.OrderItemSnapshot{}}
		if err := rows.Scan(&s.ID, &s.TableRef, &s.CustomerRef, &s.WaiterRef, &s.Stato,
			&s.HasKitchenItems, &s.Total, &s.Note, &s.CreatedAt, &s.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("cannot scan order: %w", err)
		}
		snaps = append(snaps, s)
		index[s.ID] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}

	if len(snaps) == 0 {
		return []*order.Order{}, nil
	}

	if err := r.loadItems(ctx, index); err != nil {
		return nil, err
	}

	result := make([]*order.Order, 0, len(snaps))
	for _, s := range snaps {
		o, err := order.FromSnapshot(*s)
		if err != nil {
			return nil, fmt.Errorf("stored order %s: %w", s.ID, err)
		}
		result = append(result, o)
	}
	return result, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, index map[string]*event.OrderSnapshot) error {
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM order_items
		WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("cannot list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it      event.OrderItemSnapshot
			orderID string
			glasses *int32
			config  *string
		)
		if err := rows.Scan(&it.ID, &orderID, &it.ProductName, &it.ProductID, &it.Quantity,
			&it.UnitPrice, &it.Stato, &it.Station, &it.Note, &glasses, &config,
			&it.CreatedAt, &it.UpdatedAt); err != nil {
			return fmt.Errorf("cannot scan order item: %w", err)
		}
		if glasses != nil {
			g := int(*glasses)
			it.Glasses = &g
		}
		if config != nil {
			it.Configuration = json.RawMessage(*config)
		}

		s, ok := index[orderID]
		if !ok {
			return errors.New("order item references an order outside the result")
		}
		s.Items = append(s.Items, it)
	}
	return rows.Err()
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
