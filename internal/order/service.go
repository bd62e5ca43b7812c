package order

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/metrics"
)

// Notifier announces order lifecycle changes to other systems.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order) error
	OrderStatusChanged(ctx context.Context, o *Order, from Status) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, metrics: m, logger: logger, now: time.Now}
}

// Place stores a new pending order and announces it. A failed announcement
// is logged; the order stands.
func (s *Service) Place(ctx context.Context, o *Order) error {
	o.Status = StatusPending
	o.CreatedAt = s.now().UTC()
	o.UpdatedAt = nil
	o.CompletedAt = nil

	if err := s.repo.Create(ctx, o); err != nil {
		return err
	}
	logging.Info(ctx, s.logger, "order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Float64("total", o.TotalAmount),
	)

	if err := s.notifier.OrderCreated(ctx, o); err != nil {
		logging.Warn(ctx, s.logger, "publish OrderCreated failed", zap.String("order_id", o.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// GetForUser hides orders that belong to someone else.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, f)
}

// UpdateStatus applies an admin status change and publishes OrderStatusChanged.
func (s *Service) UpdateStatus(ctx context.Context, id string, to Status) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := o.Status
	changed, err := Transition(o, to, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}

	if err := s.repo.UpdateStatus(ctx, o, from); err != nil {
		return nil, err
	}
	s.metrics.OrderTransitioned(string(to))
	logging.Info(ctx, s.logger, "order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)

	if err := s.notifier.OrderStatusChanged(ctx, o, from); err != nil {
		logging.Warn(ctx, s.logger, "publish OrderStatusChanged failed", zap.String("order_id", o.ID), zap.Error(err))
	}
	return o, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logging.Info(ctx, s.logger, "order deleted", zap.String("order_id", id))
	return nil
}
