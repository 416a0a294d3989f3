package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/infra/storage"
)

// OrderRepo implements storage.OrderRepository using PostgreSQL.
type OrderRepo struct {
	db *DB
}

// NewOrderRepo creates a new PostgreSQL order repository.
func NewOrderRepo(db *DB) *OrderRepo {
	return &OrderRepo{db: db}
}

type orderRow struct {
	ID                 string       `db:"id"`
	OrderNumber        string       `db:"order_number"`
	SessionID          string       `db:"session_id"`
	CustomerName       string       `db:"customer_name"`
	CustomerEmail      string       `db:"customer_email"`
	CustomerPhone      string       `db:"customer_phone"`
	SubtotalCents      int64        `db:"subtotal_cents"`
	TaxCents           int64        `db:"tax_cents"`
	DeliveryFeeCents   int64        `db:"delivery_fee_cents"`
	DiscountCents      int64        `db:"discount_cents"`
	TipCents           int64        `db:"tip_cents"`
	TotalCents         int64        `db:"total_cents"`
	Status             string       `db:"status"`
	CreatedAt          time.Time    `db:"created_at"`
	GraceExpiresAt     time.Time    `db:"grace_expires_at"`
	CancelWindowEndsAt time.Time    `db:"cancel_window_ends_at"`
	ConfirmedAt        sql.NullTime `db:"confirmed_at"`
	PreparingAt        sql.NullTime `db:"preparing_at"`
	ReadyAt            sql.NullTime `db:"ready_at"`
	DeliveredAt        sql.NullTime `db:"delivered_at"`
	CancelledAt        sql.NullTime `db:"cancelled_at"`
	CancelReason       string       `db:"cancel_reason"`
}

type lineItemRow struct {
	OrderID        string `db:"order_id"`
	ItemID         string `db:"item_id"`
	Name           string `db:"name"`
	Quantity       int    `db:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents"`
}

// Create persists a new order and its line items.
func (r *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (
			id, order_number, session_id,
			customer_name, customer_email, customer_phone,
			subtotal_cents, tax_cents, delivery_fee_cents, discount_cents, tip_cents, total_cents,
			status, created_at, grace_expires_at, cancel_window_ends_at, cancel_reason
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		order.ID, order.OrderNumber, order.SessionID,
		order.Customer.Name, order.Customer.Email, order.Customer.Phone,
		order.Pricing.SubtotalCents, order.Pricing.TaxCents, order.Pricing.DeliveryFeeCents,
		order.Pricing.DiscountCents, order.Pricing.TipCents, order.Pricing.TotalCents,
		string(order.Status), order.CreatedAt, order.GracePeriodExpiresAt,
		order.CancelWindowEndsAt, order.CancelReason)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	if err := insertItems(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit()
}

// Update rewrites the order's mutable fields (item set, pricing,
// cancel reason). Only called while the order is pending or as part of
// a serialized transition.
func (r *OrderRepo) Update(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET
			subtotal_cents = $2, tax_cents = $3, delivery_fee_cents = $4,
			discount_cents = $5, tip_cents = $6, total_cents = $7,
			cancel_reason = $8
		 WHERE id = $1`,
		order.ID,
		order.Pricing.SubtotalCents, order.Pricing.TaxCents, order.Pricing.DeliveryFeeCents,
		order.Pricing.DiscountCents, order.Pricing.TipCents, order.Pricing.TotalCents,
		order.CancelReason)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storage.ErrOrderNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM order_items WHERE order_id = $1`, order.ID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}
	if err := insertItems(ctx, tx, order); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, order *domain.Order) error {
	for _, li := range order.Items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, item_id, name, quantity, unit_price_cents)
			 VALUES ($1,$2,$3,$4,$5)`,
			order.ID, li.ItemID, li.Name, li.Quantity, li.UnitPriceCents)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an order with its line items.
func (r *OrderRepo) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM orders WHERE id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	var items []lineItemRow
	if err := r.db.SelectContext(ctx, &items,
		`SELECT order_id, item_id, name, quantity, unit_price_cents
		 FROM order_items WHERE order_id = $1 ORDER BY item_id`, orderID); err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}

	return toDomain(&row, items), nil
}

// UpdateStatus records a status transition and its timestamp.
func (r *OrderRepo) UpdateStatus(
	ctx context.Context,
	orderID string,
	status domain.OrderStatus,
	at time.Time,
) error {
	column := ""
	switch status {
	case domain.OrderStatusConfirmed:
		column = "confirmed_at"
	case domain.OrderStatusPreparing:
		column = "preparing_at"
	case domain.OrderStatusReady:
		column = "ready_at"
	case domain.OrderStatusDelivered:
		column = "delivered_at"
	case domain.OrderStatusCancelled:
		column = "cancelled_at"
	}

	query := `UPDATE orders SET status = $2 WHERE id = $1`
	args := []any{orderID, string(status)}
	if column != "" {
		query = fmt.Sprintf(`UPDATE orders SET status = $2, %s = $3 WHERE id = $1`, column)
		args = append(args, at)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return storage.ErrOrderNotFound
	}
	return nil
}

// ListPendingBefore retrieves pending orders whose grace period
// expired at or before the cutoff.
func (r *OrderRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*domain.Order, error) {
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM orders
		 WHERE status = $1 AND grace_expires_at <= $2
		 ORDER BY grace_expires_at`,
		string(domain.OrderStatusPendingConfirmation), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		var items []lineItemRow
		if err := r.db.SelectContext(ctx, &items,
			`SELECT order_id, item_id, name, quantity, unit_price_cents
			 FROM order_items WHERE order_id = $1 ORDER BY item_id`, rows[i].ID); err != nil {
			return nil, fmt.Errorf("failed to get order items: %w", err)
		}
		orders = append(orders, toDomain(&rows[i], items))
	}
	return orders, nil
}

// CountItemOrdersSince counts non-cancelled orders containing an item
// created at or after since.
func (r *OrderRepo) CountItemOrdersSince(
	ctx context.Context,
	itemID string,
	since time.Time,
) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(DISTINCT o.id)
		 FROM orders o
		 JOIN order_items oi ON oi.order_id = o.id
		 WHERE oi.item_id = $1 AND o.created_at >= $2 AND o.status <> $3`,
		itemID, since, string(domain.OrderStatusCancelled))
	if err != nil {
		return 0, fmt.Errorf("failed to count item orders: %w", err)
	}
	return count, nil
}

func toDomain(row *orderRow, items []lineItemRow) *domain.Order {
	order := &domain.Order{
		ID:          row.ID,
		OrderNumber: row.OrderNumber,
		SessionID:   row.SessionID,
		Customer: domain.CustomerContact{
			Name:  row.CustomerName,
			Email: row.CustomerEmail,
			Phone: row.CustomerPhone,
		},
		Pricing: domain.Pricing{
			SubtotalCents:    row.SubtotalCents,
			TaxCents:         row.TaxCents,
			DeliveryFeeCents: row.DeliveryFeeCents,
			DiscountCents:    row.DiscountCents,
			TipCents:         row.TipCents,
			TotalCents:       row.TotalCents,
		},
		Status:               domain.OrderStatus(row.Status),
		CreatedAt:            row.CreatedAt,
		GracePeriodExpiresAt: row.GraceExpiresAt,
		CancelWindowEndsAt:   row.CancelWindowEndsAt,
		CancelReason:         row.CancelReason,
	}
	if row.ConfirmedAt.Valid {
		order.ConfirmedAt = row.ConfirmedAt.Time
	}
	if row.PreparingAt.Valid {
		order.PreparingAt = row.PreparingAt.Time
	}
	if row.ReadyAt.Valid {
		order.ReadyAt = row.ReadyAt.Time
	}
	if row.DeliveredAt.Valid {
		order.DeliveredAt = row.DeliveredAt.Time
	}
	if row.CancelledAt.Valid {
		order.CancelledAt = row.CancelledAt.Time
	}
	for _, li := range items {
		order.Items = append(order.Items, domain.LineItem{
			ItemID:         li.ItemID,
			Name:           li.Name,
			Quantity:       li.Quantity,
			UnitPriceCents: li.UnitPriceCents,
		})
	}
	return order
}
