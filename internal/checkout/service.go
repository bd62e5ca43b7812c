package checkout

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/metrics"
	"github.com/andreasstove999/labtest-storefront/internal/order"
	"github.com/andreasstove999/labtest-storefront/internal/promo"
	"github.com/andreasstove999/labtest-storefront/internal/validation"
)

const CartPath = "/cart"

type Carts interface {
	Checkout(ctx context.Context, userID string, place func(c *cart.Cart) error) (*cart.Cart, error)
}

type Promos interface {
	ValidateForCart(ctx context.Context, code string, s cart.State) (cart.PromoDecision, error)
	Redeem(ctx context.Context, code string) error
}

type Orders interface {
	Place(ctx context.Context, o *order.Order) error
}

// RedemptionNotifier announces a promo code used by an order.
type RedemptionNotifier interface {
	PromoRedeemed(ctx context.Context, code, orderID string) error
}

type Service struct {
	carts    Carts
	promos   Promos
	orders   Orders
	notifier RedemptionNotifier
	validate *validator.Validate
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewService(carts Carts, promos Promos, orders Orders, notifier RedemptionNotifier,
	validate *validator.Validate, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		carts:    carts,
		promos:   promos,
		orders:   orders,
		notifier: notifier,
		validate: validate,
		metrics:  m,
		logger:   logger,
	}
}

// Submit turns the user's cart into a pending order. On any failure the
// result is a *Error and the cart is left as it was. On success the cart's
// items and promo are both cleared.
func (s *Service) Submit(ctx context.Context, userID string, form Form) (*order.Order, error) {
	var placed *order.Order

	_, err := s.carts.Checkout(ctx, userID, func(c *cart.Cart) error {
		if c.IsEmpty() {
			return &Error{Kind: KindEmptyCart, Redirect: CartPath}
		}

		form = form.normalized()
		if err := s.validate.Struct(form); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return &Error{Kind: KindSubmission, Err: err}
			}
			return &Error{Kind: KindValidation, Fields: validation.FieldErrors(err)}
		}

		state := c.State
		if code := state.PromoCode(); code != "" {
			decision, err := s.promos.ValidateForCart(ctx, code, state)
			if err != nil {
				return &Error{Kind: KindSubmission, Err: err}
			}
			if !decision.Valid {
				return &Error{Kind: KindPromoInvalid, Reason: decision.Reason}
			}
			state = cart.Reduce(state, cart.SetPromo{Promo: decision.Promo})
		}

		o := buildOrder(userID, state, form)
		if err := s.orders.Place(ctx, o); err != nil {
			return &Error{Kind: KindSubmission, Err: err}
		}
		placed = o

		if o.PromoCode != nil {
			s.redeem(ctx, *o.PromoCode, o.ID)
		}
		return nil
	})

	if placed != nil {
		if err != nil {
			logging.Error(ctx, s.logger, "order placed but cart not cleared",
				zap.String("order_id", placed.ID), zap.String("user_id", userID), zap.Error(err))
		}
		s.metrics.CheckoutFinished("success")
		return placed, nil
	}

	var cerr *Error
	if !errors.As(err, &cerr) {
		cerr = &Error{Kind: KindSubmission, Err: err}
	}
	s.metrics.CheckoutFinished(string(cerr.Kind))
	if cerr.Kind == KindSubmission {
		logging.Error(ctx, s.logger, "checkout submission failed", zap.String("user_id", userID), zap.Error(cerr.Err))
	}
	return nil, cerr
}

// redeem counts the use of code. The order already stands, so failures
// are only logged.
func (s *Service) redeem(ctx context.Context, code, orderID string) {
	if err := s.promos.Redeem(ctx, code); err != nil {
		if errors.Is(err, promo.ErrUsageExceeded) {
			logging.Warn(ctx, s.logger, "promo usage limit reached during checkout",
				zap.String("code", code), zap.String("order_id", orderID))
		} else {
			logging.Error(ctx, s.logger, "promo redemption failed",
				zap.String("code", code), zap.String("order_id", orderID), zap.Error(err))
		}
		return
	}
	if err := s.notifier.PromoRedeemed(ctx, code, orderID); err != nil {
		logging.Warn(ctx, s.logger, "publish PromoRedeemed failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func buildOrder(userID string, st cart.State, form Form) *order.Order {
	o := &order.Order{
		UserID:        userID,
		Tests:         append([]cart.Item(nil), st.Items...),
		Subtotal:      cart.Subtotal(st),
		Discount:      cart.Discount(st),
		TotalAmount:   cart.Total(st),
		CustomerInfo:  form.customerInfo(),
		PaymentMethod: order.PaymentMethod(form.PaymentMethod),
		Status:        order.StatusPending,
	}
	if code := st.PromoCode(); code != "" {
		o.PromoCode = &code
	}
	return o
}
