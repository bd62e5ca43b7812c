package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Repository interface {
	// GetCart returns nil, nil when the user has no cart yet.
	GetCart(ctx context.Context, userID string) (*Cart, error)
	UpsertCart(ctx context.Context, c *Cart) error
	ClearCart(ctx context.Context, userID string) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const selectCartSQL = `SELECT id, user_id, promo_code, promo_fraction, promo_flat_amount, promo_max_discount, updated_at
FROM carts WHERE user_id = $1`

const selectCartItemsSQL = `SELECT test_id, test_name, price, kind FROM cart_items WHERE cart_id = $1 ORDER BY position`

func (r *repo) GetCart(ctx context.Context, userID string) (*Cart, error) {
	var (
		c        Cart
		code     sql.NullString
		fraction float64
		flat     float64
		maxDisc  float64
	)
	err := r.db.QueryRowContext(ctx, selectCartSQL, userID).
		Scan(&c.ID, &c.UserID, &code, &fraction, &flat, &maxDisc, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}
	if code.Valid {
		c.Promo = normalizePromo(Promo{Code: code.String, Fraction: fraction, FlatAmount: flat, MaxDiscount: maxDisc})
	}

	rows, err := r.db.QueryContext(ctx, selectCartItemsSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it   Item
			kind string
		)
		if err := rows.Scan(&it.TestID, &it.TestName, &it.Price, &kind); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		it.Kind = ItemKind(kind)
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &c, nil
}

const upsertCartSQL = `INSERT INTO carts (id, user_id, promo_code, promo_fraction, promo_flat_amount, promo_max_discount, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW())
ON CONFLICT (user_id) DO UPDATE
SET promo_code = EXCLUDED.promo_code,
    promo_fraction = EXCLUDED.promo_fraction,
    promo_flat_amount = EXCLUDED.promo_flat_amount,
    promo_max_discount = EXCLUDED.promo_max_discount,
    updated_at = NOW()
RETURNING id, updated_at`

const insertCartItemSQL = `INSERT INTO cart_items (id, cart_id, position, test_id, test_name, price, kind) VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *repo) UpsertCart(ctx context.Context, c *Cart) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	var (
		code                    sql.NullString
		fraction, flat, maxDisc float64
	)
	if p := c.Promo; p != nil {
		code = sql.NullString{String: p.Code, Valid: true}
		fraction, flat, maxDisc = p.Fraction, p.FlatAmount, p.MaxDiscount
	}

	if err = tx.QueryRowContext(ctx, upsertCartSQL, c.ID, c.UserID, code, fraction, flat, maxDisc).
		Scan(&c.ID, &c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
		return fmt.Errorf("delete cart_items: %w", err)
	}

	for i, it := range c.Items {
		if _, err = tx.ExecContext(ctx, insertCartItemSQL,
			uuid.NewString(), c.ID, i, it.TestID, it.TestName, it.Price, string(it.Kind)); err != nil {
			return fmt.Errorf("insert cart_item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) ClearCart(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
