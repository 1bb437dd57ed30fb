package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EntitlementRepository implements purchase.HistoryRepository using
// PostgreSQL. One row per owned product; the stored transaction id is the
// grant that delivered it.
type EntitlementRepository struct {
	pool *pgxpool.Pool
}

// NewEntitlementRepository creates a new EntitlementRepository.
func NewEntitlementRepository(pool *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{pool: pool}
}

// MarkOwned records the entitlement. The upsert only touches the row when
// the transaction id differs from the recorded one, so redelivering the same
// transaction reports granted=false and a fresh purchase reports true.
func (r *EntitlementRepository) MarkOwned(ctx context.Context, productID, transactionID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO entitlements (product_id, transaction_id, granted_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (product_id) DO UPDATE
		 SET transaction_id = EXCLUDED.transaction_id, granted_at = now()
		 WHERE entitlements.transaction_id IS DISTINCT FROM EXCLUDED.transaction_id`,
		productID, transactionID,
	)
	if err != nil {
		return false, fmt.Errorf("upsert entitlement: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Revoke removes the entitlement. Used as saga compensation when the store
// confirmation fails after a grant.
func (r *EntitlementRepository) Revoke(ctx context.Context, productID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM entitlements WHERE product_id = $1`, productID,
	)
	if err != nil {
		return fmt.Errorf("delete entitlement: %w", err)
	}
	return nil
}

// IsOwned reports whether the product has an entitlement row.
func (r *EntitlementRepository) IsOwned(ctx context.Context, productID string) (bool, error) {
	var owned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM entitlements WHERE product_id = $1)`, productID,
	).Scan(&owned)
	if err != nil {
		return false, fmt.Errorf("check entitlement: %w", err)
	}
	return owned, nil
}

// All returns the owned flag for every entitled product.
func (r *EntitlementRepository) All(ctx context.Context) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id FROM entitlements`)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}
	defer rows.Close()

	owned := make(map[string]bool)
	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return nil, fmt.Errorf("scan entitlement: %w", err)
		}
		owned[productID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entitlements: %w", err)
	}
	return owned, nil
}
