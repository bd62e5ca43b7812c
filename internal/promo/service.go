package promo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/metrics"
)

var ErrInvalidPromo = errors.New("invalid promo code")

type Service struct {
	repo     Repository
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, validate *validator.Validate, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{repo: repo, validate: validate, metrics: m, logger: logger, now: time.Now}
}

// Validate looks code up case-insensitively and checks it against e.
// An unknown code is an invalid Result, not an error.
func (s *Service) Validate(ctx context.Context, code string, e Eligibility) (Result, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		s.metrics.PromoValidated(string(ReasonNotFound))
		return invalid(ReasonNotFound), nil
	}

	p, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Result{}, err
	}

	res := Validate(p, e, s.now())
	if res.Valid {
		s.metrics.PromoValidated("valid")
	} else {
		s.metrics.PromoValidated(string(res.Reason))
		logging.Debug(ctx, s.logger, "promo rejected", zap.String("code", code), zap.String("reason", string(res.Reason)))
	}
	return res, nil
}

func (s *Service) ValidateForCart(ctx context.Context, code string, st cart.State) (cart.PromoDecision, error) {
	res, err := s.Validate(ctx, code, EligibilityOf(st))
	if err != nil {
		return cart.PromoDecision{}, err
	}
	return cart.PromoDecision{Valid: res.Valid, Reason: string(res.Reason), Promo: res.CartPromo()}, nil
}

// Redeem counts one use of code.
func (s *Service) Redeem(ctx context.Context, code string) error {
	return s.repo.IncrementUsage(ctx, code)
}

func (s *Service) List(ctx context.Context, f Filter) ([]PromoCode, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*PromoCode, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, p *PromoCode) error {
	if err := s.check(p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	logging.Info(ctx, s.logger, "promo code created", zap.String("promo_id", p.ID), zap.String("code", p.Code))
	return nil
}

func (s *Service) Update(ctx context.Context, p *PromoCode) error {
	if err := s.check(p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) check(p *PromoCode) error {
	p.Code = NormalizeCode(p.Code)
	if p.ApplicableTo == "" {
		p.ApplicableTo = ApplicableAll
	}
	if err := s.validate.Struct(p); err != nil {
		return err
	}
	if p.DiscountType == TypePercentage && p.DiscountValue > 100 {
		return fmt.Errorf("%w: percentage discount above 100", ErrInvalidPromo)
	}
	return nil
}
