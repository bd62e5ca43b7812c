package catalog

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/money"
	"github.com/andreasstove999/labtest-storefront/internal/validation"
)

// memRepo is an in-memory Repository that counts single-entry reads.
type memRepo struct {
	mu         sync.Mutex
	tests      map[string]Test
	panels     map[string]Panel
	testReads  int
	panelReads int
}

func newMemRepo(tests ...Test) *memRepo {
	r := &memRepo{tests: map[string]Test{}, panels: map[string]Panel{}}
	for _, t := range tests {
		r.tests[t.ID] = t
	}
	return r
}

func (r *memRepo) ListTests(_ context.Context, f TestFilter) ([]Test, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Test{}
	for _, t := range r.tests {
		if f.Enabled != nil && t.Enabled != *f.Enabled {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) GetTest(_ context.Context, id string) (*Test, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.testReads++
	t, ok := r.tests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (r *memRepo) CreateTest(_ context.Context, t *Test) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests[t.ID] = *t
	return nil
}

func (r *memRepo) UpdateTest(_ context.Context, t *Test) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tests[t.ID]; !ok {
		return ErrNotFound
	}
	r.tests[t.ID] = *t
	return nil
}

func (r *memRepo) DeleteTest(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tests, id)
	return nil
}

func (r *memRepo) TestPrices(_ context.Context, ids []string) (map[string]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]float64{}
	for _, id := range ids {
		if t, ok := r.tests[id]; ok {
			out[id] = t.Price
		}
	}
	return out, nil
}

func (r *memRepo) ListPanels(_ context.Context, f PanelFilter) ([]Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Panel{}
	for _, p := range r.panels {
		if f.Enabled != nil && p.Enabled != *f.Enabled {
			continue
		}
		if f.TestID != "" && !contains(p.TestIDs, f.TestID) {
			continue
		}
		out = append(out, r.priced(p))
	}
	return out, nil
}

func (r *memRepo) GetPanel(_ context.Context, id string) (*Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panelReads++
	p, ok := r.panels[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = r.priced(p)
	return &p, nil
}

func (r *memRepo) priced(p Panel) Panel {
	var amounts []float64
	for _, id := range p.TestIDs {
		amounts = append(amounts, r.tests[id].Price)
	}
	p.OriginalPrice = money.Sum(amounts...)
	p.derive()
	return p
}

func (r *memRepo) CreatePanel(_ context.Context, p *Panel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels[p.ID] = *p
	return nil
}

func (r *memRepo) UpdatePanel(_ context.Context, p *Panel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.panels[p.ID]; !ok {
		return ErrNotFound
	}
	r.panels[p.ID] = *p
	return nil
}

func (r *memRepo) DeletePanel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.panels, id)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func seedTests() []Test {
	return []Test{
		{ID: "cbc", Name: "Complete Blood Count", Category: "blood", Price: 50, Enabled: true, CPTCodes: []string{"85025"}},
		{ID: "lipid", Name: "Lipid Panel", Category: "heart", Price: 30, Enabled: true},
		{ID: "retired", Name: "Retired Test", Category: "blood", Price: 10, Enabled: false},
	}
}

func newService(repo Repository) *Service {
	return NewService(repo, validation.New(), zap.NewNop())
}

func TestCreatePanelComputesSavings(t *testing.T) {
	repo := newMemRepo(seedTests()...)
	svc := newService(repo)

	p := &Panel{ID: "wellness", Name: " Wellness ", TestIDs: []string{"cbc", "lipid"}, BundlePrice: 65, Enabled: true}
	require.NoError(t, svc.CreatePanel(context.Background(), p))

	assert.Equal(t, "Wellness", p.Name)
	assert.Equal(t, 80.0, p.OriginalPrice)
	assert.Equal(t, 15.0, p.Savings)
}

func TestCreatePanelIgnoresClientOriginalPrice(t *testing.T) {
	svc := newService(newMemRepo(seedTests()...))

	p := &Panel{ID: "w", Name: "W", TestIDs: []string{"cbc"}, BundlePrice: 45, OriginalPrice: 999, Savings: 954}
	require.NoError(t, svc.CreatePanel(context.Background(), p))
	assert.Equal(t, 50.0, p.OriginalPrice)
	assert.Equal(t, 5.0, p.Savings)
}

func TestCreatePanelRejectsUnknownTest(t *testing.T) {
	svc := newService(newMemRepo(seedTests()...))

	err := svc.CreatePanel(context.Background(), &Panel{ID: "w", Name: "W", TestIDs: []string{"cbc", "ghost"}, BundlePrice: 10})
	require.ErrorIs(t, err, ErrUnknownTest)
}

func TestPanelBundlePriceCannotExceedOriginal(t *testing.T) {
	repo := newMemRepo(seedTests()...)
	svc := newService(repo)

	err := svc.CreatePanel(context.Background(), &Panel{ID: "w", Name: "W", TestIDs: []string{"cbc", "lipid"}, BundlePrice: 80.01})
	require.ErrorIs(t, err, ErrBundlePrice)
	assert.NotContains(t, repo.panels, "w")

	even := &Panel{ID: "w", Name: "W", TestIDs: []string{"cbc", "lipid"}, BundlePrice: 80}
	require.NoError(t, svc.CreatePanel(context.Background(), even))
	assert.Equal(t, 0.0, even.Savings)

	even.BundlePrice = 120
	require.ErrorIs(t, svc.UpdatePanel(context.Background(), even), ErrBundlePrice)
	assert.Equal(t, 80.0, repo.panels["w"].BundlePrice)
}

func TestCreatePanelValidation(t *testing.T) {
	svc := newService(newMemRepo(seedTests()...))

	var verrs validator.ValidationErrors
	err := svc.CreatePanel(context.Background(), &Panel{ID: "w", Name: "W", BundlePrice: 10})
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "testIds", verrs[0].Field())

	err = svc.CreatePanel(context.Background(), &Panel{ID: "w", Name: "W", TestIDs: []string{"cbc", "cbc"}, BundlePrice: 10})
	require.ErrorAs(t, err, &verrs)
}

func TestCreateTestValidation(t *testing.T) {
	svc := newService(newMemRepo())

	var verrs validator.ValidationErrors
	require.ErrorAs(t, svc.CreateTest(context.Background(), &Test{ID: "x", Name: "X", Category: "blood", Price: -1}), &verrs)
	assert.Equal(t, "price", verrs[0].Field())

	ok := &Test{ID: "x", Name: "X", Category: "blood", Price: 19.999}
	require.NoError(t, svc.CreateTest(context.Background(), ok))
	assert.Equal(t, 20.0, ok.Price)
	assert.Equal(t, []string{}, ok.CPTCodes)
}

func TestBrowseHidesDisabled(t *testing.T) {
	svc := newService(newMemRepo(seedTests()...))
	ctx := context.Background()

	out, err := svc.BrowseTests(ctx, "", "blood")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "cbc", out[0].ID)

	_, err = svc.ViewTest(ctx, "retired")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLookupItem(t *testing.T) {
	repo := newMemRepo(seedTests()...)
	repo.panels["wellness"] = Panel{ID: "wellness", Name: "Wellness", TestIDs: []string{"cbc", "lipid"}, BundlePrice: 65, Enabled: true}
	svc := newService(repo)
	ctx := context.Background()

	item, err := svc.LookupItem(ctx, "cbc", cart.KindTest)
	require.NoError(t, err)
	assert.Equal(t, cart.Item{TestID: "cbc", TestName: "Complete Blood Count", Price: 50, Kind: cart.KindTest}, item)

	item, err = svc.LookupItem(ctx, "wellness", cart.KindPanel)
	require.NoError(t, err)
	assert.Equal(t, 65.0, item.Price)
	assert.Equal(t, cart.KindPanel, item.Kind)

	_, err = svc.LookupItem(ctx, "retired", "")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = svc.LookupItem(ctx, "ghost", cart.KindTest)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.LookupItem(ctx, "cbc", "kit")
	require.Error(t, err)
}
