package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DBPool is the subset of *pgxpool.Pool the repository uses.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	GetByID(ctx context.Context, id string) (*PromoCode, error)
	List(ctx context.Context, f Filter) ([]PromoCode, error)
	Create(ctx context.Context, p *PromoCode) error
	Update(ctx context.Context, p *PromoCode) error
	Delete(ctx context.Context, id string) error
	IncrementUsage(ctx context.Context, code string) error
}

type PostgresRepository struct {
	pool   DBPool
	tracer trace.Tracer
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool, tracer: otel.Tracer("storefront/promo_repo")}
}

const promoColumns = `id, code, description, discount_type, discount_value, min_purchase_amount, max_discount_amount,
valid_from, valid_until, usage_limit, usage_count, enabled, applicable_to, created_at, updated_at`

func scanPromo(row pgx.Row) (*PromoCode, error) {
	var (
		p            PromoCode
		discountType string
		applicable   string
	)
	err := row.Scan(&p.ID, &p.Code, &p.Description, &discountType, &p.DiscountValue, &p.MinPurchaseAmount,
		&p.MaxDiscountAmount, &p.ValidFrom, &p.ValidUntil, &p.UsageLimit, &p.UsageCount, &p.Enabled,
		&applicable, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DiscountType = DiscountType(discountType)
	p.ApplicableTo = Applicability(applicable)
	return &p, nil
}

func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*PromoCode, error) {
	ctx, span := r.tracer.Start(ctx, "PromoRepository.FindByCode")
	defer span.End()

	p, err := scanPromo(r.pool.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE lower(code) = lower($1)`, strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("select promo by code: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*PromoCode, error) {
	p, err := scanPromo(r.pool.QueryRow(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select promo: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]PromoCode, error) {
	ctx, span := r.tracer.Start(ctx, "PromoRepository.List")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(code ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if f.Enabled != nil {
		args = append(args, *f.Enabled)
		where = append(where, fmt.Sprintf("enabled = $%d", len(args)))
	}

	query := `SELECT ` + promoColumns + ` FROM promo_codes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("select promos: %w", err)
	}
	defer rows.Close()

	out := []PromoCode{}
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promo: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

const insertPromoSQL = `INSERT INTO promo_codes (id, code, description, discount_type, discount_value, min_purchase_amount,
max_discount_amount, valid_from, valid_until, usage_limit, usage_count, enabled, applicable_to, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
RETURNING created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, p *PromoCode) error {
	ctx, span := r.tracer.Start(ctx, "PromoRepository.Create")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("promo.code", p.Code))

	err := r.pool.QueryRow(ctx, insertPromoSQL,
		p.ID, p.Code, p.Description, string(p.DiscountType), p.DiscountValue, p.MinPurchaseAmount,
		p.MaxDiscountAmount, p.ValidFrom, p.ValidUntil, p.UsageLimit, p.UsageCount, p.Enabled, string(p.ApplicableTo),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCode
		}
		span.RecordError(err)
		return fmt.Errorf("insert promo: %w", err)
	}
	return nil
}

const updatePromoSQL = `UPDATE promo_codes
SET code = $2, description = $3, discount_type = $4, discount_value = $5, min_purchase_amount = $6,
    max_discount_amount = $7, valid_from = $8, valid_until = $9, usage_limit = $10, usage_count = $11,
    enabled = $12, applicable_to = $13, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`

func (r *PostgresRepository) Update(ctx context.Context, p *PromoCode) error {
	err := r.pool.QueryRow(ctx, updatePromoSQL,
		p.ID, p.Code, p.Description, string(p.DiscountType), p.DiscountValue, p.MinPurchaseAmount,
		p.MaxDiscountAmount, p.ValidFrom, p.ValidUntil, p.UsageLimit, p.UsageCount, p.Enabled, string(p.ApplicableTo),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrDuplicateCode
		}
		return fmt.Errorf("update promo: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM promo_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const incrementUsageSQL = `UPDATE promo_codes
SET usage_count = usage_count + 1, updated_at = NOW()
WHERE lower(code) = lower($1) AND (usage_limit IS NULL OR usage_count < usage_limit)`

// IncrementUsage records one redemption. It fails with ErrUsageExceeded when
// the cap was reached concurrently.
func (r *PostgresRepository) IncrementUsage(ctx context.Context, code string) error {
	ctx, span := r.tracer.Start(ctx, "PromoRepository.IncrementUsage")
	defer span.End()

	tag, err := r.pool.Exec(ctx, incrementUsageSQL, code)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("increment promo usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUsageExceeded
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
