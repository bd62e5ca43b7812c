package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/money"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(repo Repository, validate *validator.Validate, logger *zap.Logger) *Service {
	return &Service{repo: repo, validate: validate, logger: logger}
}

func enabledOnly() *bool {
	v := true
	return &v
}

// BrowseTests lists the tests a customer can buy.
func (s *Service) BrowseTests(ctx context.Context, search, category string) ([]Test, error) {
	return s.repo.ListTests(ctx, TestFilter{Search: search, Category: category, Enabled: enabledOnly()})
}

// ViewTest returns an enabled test. Disabled tests look missing.
func (s *Service) ViewTest(ctx context.Context, id string) (*Test, error) {
	t, err := s.repo.GetTest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Enabled {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) BrowsePanels(ctx context.Context, search string) ([]Panel, error) {
	return s.repo.ListPanels(ctx, PanelFilter{Search: search, Enabled: enabledOnly()})
}

func (s *Service) ViewPanel(ctx context.Context, id string) (*Panel, error) {
	p, err := s.repo.GetPanel(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Enabled {
		return nil, ErrNotFound
	}
	return p, nil
}

// LookupItem resolves a purchasable test or panel into a cart line at its
// current price.
func (s *Service) LookupItem(ctx context.Context, id string, kind cart.ItemKind) (cart.Item, error) {
	switch kind {
	case cart.KindPanel:
		p, err := s.repo.GetPanel(ctx, id)
		if err != nil {
			return cart.Item{}, err
		}
		if !p.Enabled {
			return cart.Item{}, ErrUnavailable
		}
		return cart.Item{TestID: p.ID, TestName: p.Name, Price: p.BundlePrice, Kind: cart.KindPanel}, nil
	case cart.KindTest, "":
		t, err := s.repo.GetTest(ctx, id)
		if err != nil {
			return cart.Item{}, err
		}
		if !t.Enabled {
			return cart.Item{}, ErrUnavailable
		}
		return cart.Item{TestID: t.ID, TestName: t.Name, Price: t.Price, Kind: cart.KindTest}, nil
	default:
		return cart.Item{}, fmt.Errorf("unknown item kind %q", kind)
	}
}

// Admin operations.

func (s *Service) ListTests(ctx context.Context, f TestFilter) ([]Test, error) {
	return s.repo.ListTests(ctx, f)
}

func (s *Service) GetTest(ctx context.Context, id string) (*Test, error) {
	return s.repo.GetTest(ctx, id)
}

func (s *Service) CreateTest(ctx context.Context, t *Test) error {
	if err := s.checkTest(t); err != nil {
		return err
	}
	if err := s.repo.CreateTest(ctx, t); err != nil {
		return err
	}
	logging.Info(ctx, s.logger, "test created", zap.String("test_id", t.ID))
	return nil
}

func (s *Service) UpdateTest(ctx context.Context, t *Test) error {
	if err := s.checkTest(t); err != nil {
		return err
	}
	return s.repo.UpdateTest(ctx, t)
}

func (s *Service) DeleteTest(ctx context.Context, id string) error {
	return s.repo.DeleteTest(ctx, id)
}

func (s *Service) checkTest(t *Test) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Category = strings.TrimSpace(t.Category)
	if t.CPTCodes == nil {
		t.CPTCodes = []string{}
	}
	t.Price = money.Round(t.Price)
	return s.validate.Struct(t)
}

func (s *Service) ListPanels(ctx context.Context, f PanelFilter) ([]Panel, error) {
	return s.repo.ListPanels(ctx, f)
}

func (s *Service) GetPanel(ctx context.Context, id string) (*Panel, error) {
	return s.repo.GetPanel(ctx, id)
}

func (s *Service) CreatePanel(ctx context.Context, p *Panel) error {
	if err := s.pricePanel(ctx, p); err != nil {
		return err
	}
	if err := s.repo.CreatePanel(ctx, p); err != nil {
		return err
	}
	logging.Info(ctx, s.logger, "panel created", zap.String("panel_id", p.ID), zap.Float64("savings", p.Savings))
	return nil
}

func (s *Service) UpdatePanel(ctx context.Context, p *Panel) error {
	if err := s.pricePanel(ctx, p); err != nil {
		return err
	}
	return s.repo.UpdatePanel(ctx, p)
}

func (s *Service) DeletePanel(ctx context.Context, id string) error {
	return s.repo.DeletePanel(ctx, id)
}

// pricePanel validates p and recomputes OriginalPrice and Savings from the
// current prices of its tests. Savings is never negative.
func (s *Service) pricePanel(ctx context.Context, p *Panel) error {
	p.Name = strings.TrimSpace(p.Name)
	p.BundlePrice = money.Round(p.BundlePrice)
	if err := s.validate.Struct(p); err != nil {
		return err
	}

	prices, err := s.repo.TestPrices(ctx, p.TestIDs)
	if err != nil {
		return err
	}
	amounts := make([]float64, 0, len(p.TestIDs))
	for _, id := range p.TestIDs {
		price, ok := prices[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTest, id)
		}
		amounts = append(amounts, price)
	}
	p.OriginalPrice = money.Sum(amounts...)
	if p.BundlePrice > p.OriginalPrice {
		return fmt.Errorf("%w: %.2f > %.2f", ErrBundlePrice, p.BundlePrice, p.OriginalPrice)
	}
	p.derive()
	return nil
}
