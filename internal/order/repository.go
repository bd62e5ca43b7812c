package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
)

// ErrConflict means the order changed status between read and write.
var ErrConflict = errors.New("order was modified concurrently")

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// UpdateStatus persists o's status timestamps if the stored status is still from.
	UpdateStatus(ctx context.Context, o *Order, from Status) error
	Delete(ctx context.Context, orderID string) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const insertOrderSQL = `INSERT INTO orders (id, user_id, subtotal, discount, total_amount, promo_code, customer_info,
payment_method, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const insertOrderItemSQL = `INSERT INTO order_items (id, order_id, position, test_id, test_name, price, kind)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *repo) Create(ctx context.Context, o *Order) (err error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	info, err := json.Marshal(o.CustomerInfo)
	if err != nil {
		return fmt.Errorf("marshal customer info: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, insertOrderSQL,
		o.ID, o.UserID, o.Subtotal, o.Discount, o.TotalAmount, nullString(o.PromoCode), string(info),
		string(o.PaymentMethod), string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Tests {
		_, err = tx.ExecContext(ctx, insertOrderItemSQL,
			uuid.NewString(), o.ID, i, it.TestID, it.TestName, it.Price, string(it.Kind),
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, subtotal, discount, total_amount, promo_code, customer_info, payment_method,
status, created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o         Order
		promo     sql.NullString
		info      []byte
		method    string
		status    string
		updated   sql.NullTime
		completed sql.NullTime
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Subtotal, &o.Discount, &o.TotalAmount, &promo, &info, &method,
		&status, &o.CreatedAt, &updated, &completed)
	if err != nil {
		return nil, err
	}
	if len(info) > 0 {
		if err := json.Unmarshal(info, &o.CustomerInfo); err != nil {
			return nil, fmt.Errorf("decode customer info: %w", err)
		}
	}
	if promo.Valid {
		o.PromoCode = &promo.String
	}
	if updated.Valid {
		o.UpdatedAt = &updated.Time
	}
	if completed.Valid {
		o.CompletedAt = &completed.Time
	}
	o.PaymentMethod = PaymentMethod(method)
	o.Status = Status(status)
	o.Tests = []cart.Item{}
	return &o, nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	orders := []Order{*o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.List(ctx, Filter{UserID: userID})
}

func (r *repo) List(ctx context.Context, f Filter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

const selectOrderItemsSQL = `SELECT order_id, test_id, test_name, price, kind FROM order_items
WHERE order_id = ANY($1) ORDER BY order_id, position`

// loadItems fills the line items of orders with a single query.
func (r *repo) loadItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.QueryContext(ctx, selectOrderItemsSQL, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      cart.Item
			kind    string
		)
		if err := rows.Scan(&orderID, &it.TestID, &it.TestName, &it.Price, &kind); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		it.Kind = cart.ItemKind(kind)
		if i, ok := index[orderID]; ok {
			orders[i].Tests = append(orders[i].Tests, it)
		}
	}
	return rows.Err()
}

const updateStatusSQL = `UPDATE orders SET status = $2, updated_at = $3, completed_at = $4 WHERE id = $1 AND status = $5`

func (r *repo) UpdateStatus(ctx context.Context, o *Order, from Status) error {
	res, err := r.db.ExecContext(ctx, updateStatusSQL,
		o.ID, string(o.Status), nullTime(o.UpdatedAt), nullTime(o.CompletedAt), string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, orderID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
