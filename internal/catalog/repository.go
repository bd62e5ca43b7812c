package catalog

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

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository interface {
	ListTests(ctx context.Context, f TestFilter) ([]Test, error)
	GetTest(ctx context.Context, id string) (*Test, error)
	CreateTest(ctx context.Context, t *Test) error
	UpdateTest(ctx context.Context, t *Test) error
	DeleteTest(ctx context.Context, id string) error
	// TestPrices returns the price of every id that exists.
	TestPrices(ctx context.Context, ids []string) (map[string]float64, error)

	ListPanels(ctx context.Context, f PanelFilter) ([]Panel, error)
	GetPanel(ctx context.Context, id string) (*Panel, error)
	CreatePanel(ctx context.Context, p *Panel) error
	UpdatePanel(ctx context.Context, p *Panel) error
	DeletePanel(ctx context.Context, id string) error
}

type PostgresRepository struct {
	pool   DBPool
	tracer trace.Tracer
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool, tracer: otel.Tracer("storefront/catalog_repo")}
}

const testColumns = `id, name, description, category, price, cpt_codes, lab_code, lab_name, turnaround_days,
sample_type, enabled, preparation, collection_method, fasting_required, created_at, updated_at`

func scanTest(row pgx.Row) (*Test, error) {
	var t Test
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.Price, &t.CPTCodes, &t.LabCode, &t.LabName,
		&t.TurnaroundDays, &t.SampleType, &t.Enabled, &t.Preparation, &t.CollectionMethod, &t.FastingRequired,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if t.CPTCodes == nil {
		t.CPTCodes = []string{}
	}
	return &t, nil
}

func (r *PostgresRepository) ListTests(ctx context.Context, f TestFilter) ([]Test, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ListTests")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		args = append(args, c)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Enabled != nil {
		args = append(args, *f.Enabled)
		where = append(where, fmt.Sprintf("enabled = $%d", len(args)))
	}

	query := `SELECT ` + testColumns + ` FROM tests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("select tests: %w", err)
	}
	defer rows.Close()

	out := []Test{}
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan test: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetTest(ctx context.Context, id string) (*Test, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetTest", trace.WithAttributes(attribute.String("test.id", id)))
	defer span.End()

	t, err := scanTest(r.pool.QueryRow(ctx, `SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("select test: %w", err)
	}
	return t, nil
}

const insertTestSQL = `INSERT INTO tests (id, name, description, category, price, cpt_codes, lab_code, lab_name,
turnaround_days, sample_type, enabled, preparation, collection_method, fasting_required, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
RETURNING created_at, updated_at`

func (r *PostgresRepository) CreateTest(ctx context.Context, t *Test) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, insertTestSQL,
		t.ID, t.Name, t.Description, t.Category, t.Price, t.CPTCodes, t.LabCode, t.LabName,
		t.TurnaroundDays, t.SampleType, t.Enabled, t.Preparation, t.CollectionMethod, t.FastingRequired,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert test: %w", err)
	}
	return nil
}

const updateTestSQL = `UPDATE tests
SET name = $2, description = $3, category = $4, price = $5, cpt_codes = $6, lab_code = $7, lab_name = $8,
    turnaround_days = $9, sample_type = $10, enabled = $11, preparation = $12, collection_method = $13,
    fasting_required = $14, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`

func (r *PostgresRepository) UpdateTest(ctx context.Context, t *Test) error {
	err := r.pool.QueryRow(ctx, updateTestSQL,
		t.ID, t.Name, t.Description, t.Category, t.Price, t.CPTCodes, t.LabCode, t.LabName,
		t.TurnaroundDays, t.SampleType, t.Enabled, t.Preparation, t.CollectionMethod, t.FastingRequired,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update test: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteTest(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return ErrInUse
		}
		return fmt.Errorf("delete test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) TestPrices(ctx context.Context, ids []string) (map[string]float64, error) {
	out := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, price FROM tests WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("select test prices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			price float64
		)
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("scan test price: %w", err)
		}
		out[id] = price
	}
	return out, rows.Err()
}

// Panels are read with their ordered test ids and the live sum of the test
// prices, so OriginalPrice always follows test price changes.
const panelSelect = `SELECT p.id, p.name, p.description, p.bundle_price, p.enabled, p.created_at, p.updated_at,
COALESCE(array_agg(pt.test_id ORDER BY pt.position) FILTER (WHERE pt.test_id IS NOT NULL), '{}') AS test_ids,
COALESCE(SUM(t.price), 0) AS original_price
FROM panels p
LEFT JOIN panel_tests pt ON pt.panel_id = p.id
LEFT JOIN tests t ON t.id = pt.test_id`

const panelGroup = ` GROUP BY p.id`

func scanPanel(row pgx.Row) (*Panel, error) {
	var p Panel
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.BundlePrice, &p.Enabled, &p.CreatedAt, &p.UpdatedAt,
		&p.TestIDs, &p.OriginalPrice)
	if err != nil {
		return nil, err
	}
	if p.TestIDs == nil {
		p.TestIDs = []string{}
	}
	p.derive()
	return &p, nil
}

func (r *PostgresRepository) ListPanels(ctx context.Context, f PanelFilter) ([]Panel, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.ListPanels")
	defer span.End()

	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if f.Enabled != nil {
		args = append(args, *f.Enabled)
		where = append(where, fmt.Sprintf("p.enabled = $%d", len(args)))
	}
	if f.TestID != "" {
		args = append(args, f.TestID)
		where = append(where, fmt.Sprintf("p.id IN (SELECT panel_id FROM panel_tests WHERE test_id = $%d)", len(args)))
	}

	query := panelSelect
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += panelGroup + ` ORDER BY p.name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("select panels: %w", err)
	}
	defer rows.Close()

	out := []Panel{}
	for rows.Next() {
		p, err := scanPanel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan panel: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetPanel(ctx context.Context, id string) (*Panel, error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.GetPanel", trace.WithAttributes(attribute.String("panel.id", id)))
	defer span.End()

	p, err := scanPanel(r.pool.QueryRow(ctx, panelSelect+` WHERE p.id = $1`+panelGroup, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("select panel: %w", err)
	}
	return p, nil
}

const insertPanelSQL = `INSERT INTO panels (id, name, description, bundle_price, enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING created_at, updated_at`

const updatePanelSQL = `UPDATE panels
SET name = $2, description = $3, bundle_price = $4, enabled = $5, updated_at = NOW()
WHERE id = $1
RETURNING created_at, updated_at`

const insertPanelTestSQL = `INSERT INTO panel_tests (panel_id, test_id, position) VALUES ($1, $2, $3)`

func (r *PostgresRepository) CreatePanel(ctx context.Context, p *Panel) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.writePanel(ctx, p, insertPanelSQL, false)
}

func (r *PostgresRepository) UpdatePanel(ctx context.Context, p *Panel) error {
	return r.writePanel(ctx, p, updatePanelSQL, true)
}

func (r *PostgresRepository) writePanel(ctx context.Context, p *Panel, stmt string, replace bool) (err error) {
	ctx, span := r.tracer.Start(ctx, "CatalogRepository.WritePanel", trace.WithAttributes(attribute.String("panel.id", p.ID)))
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, stmt, p.ID, p.Name, p.Description, p.BundlePrice, p.Enabled).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("write panel: %w", err)
	}

	if replace {
		if _, err = tx.Exec(ctx, `DELETE FROM panel_tests WHERE panel_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear panel tests: %w", err)
		}
	}
	for i, testID := range p.TestIDs {
		if _, err = tx.Exec(ctx, insertPanelTestSQL, p.ID, testID, i); err != nil {
			if pgCode(err) == foreignKeyViolation {
				return ErrUnknownTest
			}
			return fmt.Errorf("insert panel test: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeletePanel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM panels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete panel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const foreignKeyViolation = "23503"

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
