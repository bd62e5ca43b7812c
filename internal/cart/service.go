package cart

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"strings"
	"sync"
	"time"
)

var ErrPromoRejected = errors.New("promo code rejected")

// PromoDecision is the outcome of checking a code against a cart.
type PromoDecision struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Promo  Promo  `json:"-"`
}

type PromoValidator interface {
	ValidateForCart(ctx context.Context, code string, s State) (PromoDecision, error)
}

// ItemLookup resolves a catalog entry into a line item with its current price.
type ItemLookup interface {
	LookupItem(ctx context.Context, id string, kind ItemKind) (Item, error)
}

// lockStripes bounds the number of cart mutexes. Users hashing to the same
// stripe wait on each other, which only costs throughput.
const lockStripes = 64

// Service loads a user's cart, applies one action through a Store and saves
// the result. Calls for the same user are serialized.
type Service struct {
	repo    Repository
	promos  PromoValidator
	catalog ItemLookup

	seed  maphash.Seed
	locks [lockStripes]sync.Mutex
}

func NewService(repo Repository, promos PromoValidator, catalog ItemLookup) *Service {
	return &Service{
		repo:    repo,
		promos:  promos,
		catalog: catalog,
		seed:    maphash.MakeSeed(),
	}
}

func (s *Service) userLock(userID string) *sync.Mutex {
	return &s.locks[maphash.String(s.seed, userID)%lockStripes]
}

// Get returns the user's cart, or an unsaved empty one.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if c == nil {
		c = &Cart{UserID: userID, UpdatedAt: time.Now().UTC()}
	}
	return c, nil
}

// Dispatch applies a to the user's cart and persists it.
func (s *Service) Dispatch(ctx context.Context, userID string, a Action) (*Cart, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	return s.dispatchLocked(ctx, userID, a)
}

func (s *Service) dispatchLocked(ctx context.Context, userID string, actions ...Action) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := NewStore(c.State)
	for _, a := range actions {
		st.Dispatch(a)
	}
	c.State = st.State()

	if err := s.repo.UpsertCart(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

func (s *Service) AddItem(ctx context.Context, userID, id string, kind ItemKind) (*Cart, error) {
	if kind == "" {
		kind = KindTest
	}
	it, err := s.catalog.LookupItem(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	if it.TestID == "" || it.Price < 0 {
		return nil, ErrInvalidItem
	}
	return s.Dispatch(ctx, userID, AddItem{Item: it})
}

func (s *Service) RemoveItem(ctx context.Context, userID, testID string) (*Cart, error) {
	return s.Dispatch(ctx, userID, RemoveItem{TestID: testID})
}

// ApplyPromo validates code against the current cart. A rejected code leaves
// the stored cart untouched and returns ErrPromoRejected with the decision.
func (s *Service) ApplyPromo(ctx context.Context, userID, code string) (*Cart, PromoDecision, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	code = strings.TrimSpace(code)
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, PromoDecision{}, err
	}

	decision, err := s.promos.ValidateForCart(ctx, code, c.State)
	if err != nil {
		return nil, PromoDecision{}, fmt.Errorf("validate promo: %w", err)
	}
	if !decision.Valid {
		return c, decision, ErrPromoRejected
	}

	c, err = s.dispatchLocked(ctx, userID, SetPromo{Promo: decision.Promo})
	if err != nil {
		return nil, decision, err
	}
	return c, decision, nil
}

func (s *Service) ClearPromo(ctx context.Context, userID string) (*Cart, error) {
	return s.Dispatch(ctx, userID, ClearPromo{})
}

// Clear empties the items only. Callers finishing a checkout use Reset.
func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	return s.Dispatch(ctx, userID, ClearCart{})
}

// Reset clears both the items and the promo.
func (s *Service) Reset(ctx context.Context, userID string) (*Cart, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	return s.resetLocked(ctx, userID)
}

// resetLocked drops the stored cart row and its items.
func (s *Service) resetLocked(ctx context.Context, userID string) (*Cart, error) {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}
	return &Cart{UserID: userID, UpdatedAt: time.Now().UTC()}, nil
}

// Checkout runs place against the user's cart while holding the cart lock, so
// no item can slip in between reading the cart and emptying it. Items and
// promo are cleared only when place succeeds; otherwise the cart is untouched
// and place's error is returned as is.
func (s *Service) Checkout(ctx context.Context, userID string, place func(c *Cart) error) (*Cart, error) {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := place(c); err != nil {
		return c, err
	}
	return s.resetLocked(ctx, userID)
}
