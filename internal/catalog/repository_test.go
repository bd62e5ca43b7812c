package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	stamp        = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	testRowCols  = []string{"id", "name", "description", "category", "price", "cpt_codes", "lab_code", "lab_name", "turnaround_days", "sample_type", "enabled", "preparation", "collection_method", "fasting_required", "created_at", "updated_at"}
	panelRowCols = []string{"id", "name", "description", "bundle_price", "enabled", "created_at", "updated_at", "test_ids", "original_price"}
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepository_GetTest(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	prep := "Fast for 12 hours"

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tests WHERE id = $1`)).
		WithArgs("lipid").
		WillReturnRows(mock.NewRows(testRowCols).AddRow(
			"lipid", "Lipid Panel", "Cholesterol", "heart", 30.0, []string{"80061"}, "LP1", "Quest", 2,
			"blood", true, &prep, nil, true, stamp, stamp,
		))

	got, err := repo.GetTest(context.Background(), "lipid")
	require.NoError(t, err)
	assert.Equal(t, "Lipid Panel", got.Name)
	assert.Equal(t, []string{"80061"}, got.CPTCodes)
	require.NotNil(t, got.Preparation)
	assert.Equal(t, prep, *got.Preparation)
	assert.Nil(t, got.CollectionMethod)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetTestMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tests WHERE id = $1`)).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetTest(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepository_ListTestsFilters(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	on := true

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tests WHERE (name ILIKE $1 OR description ILIKE $1) AND category = $2 AND enabled = $3 ORDER BY name`)).
		WithArgs("%vit%", "nutrition", true).
		WillReturnRows(mock.NewRows(testRowCols).AddRow(
			"vitd", "Vitamin D", "", "nutrition", 45.0, nil, "", "", 3,
			"blood", true, nil, nil, false, stamp, stamp,
		))

	out, err := repo.ListTests(context.Background(), TestFilter{Search: "vit", Category: "nutrition", Enabled: &on})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{}, out[0].CPTCodes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_DeleteTestInUse(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tests WHERE id = $1`)).
		WithArgs("cbc").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tests WHERE id = $1`)).
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.ErrorIs(t, repo.DeleteTest(context.Background(), "cbc"), ErrInUse)
	require.ErrorIs(t, repo.DeleteTest(context.Background(), "gone"), ErrNotFound)
}

func TestPostgresRepository_TestPrices(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, price FROM tests WHERE id = ANY($1)`)).
		WithArgs([]string{"cbc", "lipid", "ghost"}).
		WillReturnRows(mock.NewRows([]string{"id", "price"}).AddRow("cbc", 50.0).AddRow("lipid", 30.0))

	prices, err := repo.TestPrices(context.Background(), []string{"cbc", "lipid", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"cbc": 50, "lipid": 30}, prices)

	empty, err := repo.TestPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetPanelDerivesSavings(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.id = $1 GROUP BY p.id`)).
		WithArgs("wellness").
		WillReturnRows(mock.NewRows(panelRowCols).AddRow(
			"wellness", "Wellness", "", 65.0, true, stamp, stamp, []string{"cbc", "lipid"}, 80.0,
		))

	p, err := repo.GetPanel(context.Background(), "wellness")
	require.NoError(t, err)
	assert.Equal(t, []string{"cbc", "lipid"}, p.TestIDs)
	assert.Equal(t, 80.0, p.OriginalPrice)
	assert.Equal(t, 15.0, p.Savings)
}

func TestPostgresRepository_ListPanelsByTest(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE p.id IN (SELECT panel_id FROM panel_tests WHERE test_id = $1) GROUP BY p.id ORDER BY p.name`)).
		WithArgs("cbc").
		WillReturnRows(mock.NewRows(panelRowCols))

	out, err := repo.ListPanels(context.Background(), PanelFilter{TestID: "cbc"})
	require.NoError(t, err)
	assert.Empty(t, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_CreatePanel(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	p := &Panel{ID: "wellness", Name: "Wellness", BundlePrice: 65, Enabled: true, TestIDs: []string{"cbc", "lipid"}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO panels`)).
		WithArgs("wellness", "Wellness", "", 65.0, true).
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))
	mock.ExpectExec(regexp.QuoteMeta(insertPanelTestSQL)).
		WithArgs("wellness", "cbc", 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta(insertPanelTestSQL)).
		WithArgs("wellness", "lipid", 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreatePanel(context.Background(), p))
	assert.Equal(t, stamp, p.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdatePanelUnknownTestRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)
	p := &Panel{ID: "wellness", Name: "Wellness", BundlePrice: 65, TestIDs: []string{"ghost"}}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE panels`)).
		WithArgs("wellness", "Wellness", "", 65.0, false).
		WillReturnRows(mock.NewRows([]string{"created_at", "updated_at"}).AddRow(stamp, stamp))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM panel_tests WHERE panel_id = $1`)).
		WithArgs("wellness").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(regexp.QuoteMeta(insertPanelTestSQL)).
		WithArgs("wellness", "ghost", 0).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	require.ErrorIs(t, repo.UpdatePanel(context.Background(), p), ErrUnknownTest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdatePanelMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewPostgresRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE panels`)).
		WithArgs("x", "", "", 0.0, false).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	require.ErrorIs(t, repo.UpdatePanel(context.Background(), &Panel{ID: "x", TestIDs: []string{"a"}}), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
