package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/storefront/internal/core/domain"
	"github.com/vietddude/storefront/internal/infra/storage"
)

// InventoryRepo implements storage.InventoryStore using PostgreSQL.
// Raw inventory -1 means untracked (unbounded).
type InventoryRepo struct {
	db *DB
}

// NewInventoryRepo creates a new PostgreSQL inventory store.
func NewInventoryRepo(db *DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

type menuItemRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Category     string `db:"category"`
	PriceCents   int64  `db:"price_cents"`
	RawInventory int    `db:"raw_inventory"`
	Available    bool   `db:"available"`
}

// GetMenuItem retrieves a menu item by id.
func (r *InventoryRepo) GetMenuItem(ctx context.Context, itemID string) (*domain.MenuItem, error) {
	var row menuItemRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, name, category, price_cents, raw_inventory, available
		 FROM menu_items WHERE id = $1`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu item: %w", err)
	}

	return &domain.MenuItem{
		ID:           row.ID,
		Name:         row.Name,
		Category:     row.Category,
		PriceCents:   row.PriceCents,
		RawInventory: row.RawInventory,
		Available:    row.Available,
	}, nil
}

// GetRawInventory retrieves current raw stock for an item.
func (r *InventoryRepo) GetRawInventory(ctx context.Context, itemID string) (int, error) {
	var raw int
	err := r.db.GetContext(ctx, &raw,
		`SELECT raw_inventory FROM menu_items WHERE id = $1`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrItemNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get raw inventory: %w", err)
	}
	return raw, nil
}

// DecrementIfAvailable atomically decrements raw stock if at least qty
// remains. The guard and the decrement are one statement, so two
// concurrent commits of the last unit cannot both succeed.
func (r *InventoryRepo) DecrementIfAvailable(ctx context.Context, itemID string, qty int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE menu_items
		 SET raw_inventory = CASE WHEN raw_inventory = -1 THEN raw_inventory ELSE raw_inventory - $2 END
		 WHERE id = $1 AND (raw_inventory = -1 OR raw_inventory >= $2)`,
		itemID, qty)
	if err != nil {
		return false, fmt.Errorf("failed to decrement inventory: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "insufficient" from "unknown item".
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM menu_items WHERE id = $1)`, itemID); err != nil {
		return false, fmt.Errorf("failed to check menu item: %w", err)
	}
	if !exists {
		return false, storage.ErrItemNotFound
	}
	return false, nil
}

// Increment atomically adds stock back. No-op for unbounded items.
func (r *InventoryRepo) Increment(ctx context.Context, itemID string, qty int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE menu_items
		 SET raw_inventory = raw_inventory + $2
		 WHERE id = $1 AND raw_inventory <> -1`,
		itemID, qty)
	if err != nil {
		return fmt.Errorf("failed to increment inventory: %w", err)
	}
	return nil
}
