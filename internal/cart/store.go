package cart

import (
	"errors"
	"sync"

	"github.com/andreasstove999/labtest-storefront/internal/money"
)

var ErrInvalidItem = errors.New("invalid cart item")

// Action is one of AddItem, RemoveItem, SetPromo, ClearPromo or ClearCart.
type Action interface {
	isAction()
}

type AddItem struct{ Item Item }

// RemoveItem drops every line item carrying TestID.
type RemoveItem struct{ TestID string }

type SetPromo struct{ Promo Promo }

type ClearPromo struct{}

// ClearCart empties the items. The applied promo is kept.
type ClearCart struct{}

func (AddItem) isAction()    {}
func (RemoveItem) isAction() {}
func (SetPromo) isAction()   {}
func (ClearPromo) isAction() {}
func (ClearCart) isAction()  {}

// Reduce applies a to s and returns the next state. s is not modified.
func Reduce(s State, a Action) State {
	next := State{Items: append([]Item(nil), s.Items...), Promo: s.Promo}

	switch act := a.(type) {
	case AddItem:
		it := act.Item
		if it.Kind == "" {
			it.Kind = KindTest
		}
		next.Items = append(next.Items, it)
	case RemoveItem:
		kept := next.Items[:0]
		for _, it := range next.Items {
			if it.TestID != act.TestID {
				kept = append(kept, it)
			}
		}
		next.Items = kept
	case SetPromo:
		next.Promo = normalizePromo(act.Promo)
	case ClearPromo:
		next.Promo = nil
	case ClearCart:
		next.Items = nil
	}

	return next
}

// normalizePromo clamps the discount and returns nil when the code or the
// discount is missing, so a code is present iff it discounts something.
func normalizePromo(p Promo) *Promo {
	p.Fraction = clamp(p.Fraction, 0, 1)
	if p.FlatAmount < 0 {
		p.FlatAmount = 0
	}
	if p.MaxDiscount < 0 {
		p.MaxDiscount = 0
	}
	if p.Code == "" || (p.Fraction == 0 && p.FlatAmount == 0) {
		return nil
	}
	return &p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Subtotal(s State) float64 {
	prices := make([]float64, 0, len(s.Items))
	for _, it := range s.Items {
		prices = append(prices, it.Price)
	}
	return money.Sum(prices...)
}

func Discount(s State) float64 {
	if s.Promo == nil {
		return 0
	}
	subtotal := Subtotal(s)

	var d float64
	if s.Promo.FlatAmount > 0 {
		d = money.Min(s.Promo.FlatAmount, subtotal)
	} else {
		d = money.Mul(subtotal, clamp(s.Promo.Fraction, 0, 1))
	}
	if s.Promo.MaxDiscount > 0 {
		d = money.Min(d, s.Promo.MaxDiscount)
	}
	return d
}

func Total(s State) float64 {
	return money.Max(money.Sub(Subtotal(s), Discount(s)), 0)
}

// Store holds one cart state and serializes mutations.
type Store struct {
	mu    sync.RWMutex
	state State
}

// NewStore copies initial and re-normalizes its promo.
func NewStore(initial State) *Store {
	state := Reduce(initial, ClearPromo{})
	if initial.Promo != nil {
		state = Reduce(state, SetPromo{Promo: *initial.Promo})
	}
	return &Store{state: state}
}

func (st *Store) Dispatch(a Action) State {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state = Reduce(st.state, a)
	return Reduce(st.state, nil)
}

func (st *Store) State() State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return Reduce(st.state, nil)
}

func (st *Store) AddItem(it Item) error {
	if it.TestID == "" || it.Price < 0 {
		return ErrInvalidItem
	}
	st.Dispatch(AddItem{Item: it})
	return nil
}

func (st *Store) RemoveItem(testID string) { st.Dispatch(RemoveItem{TestID: testID}) }

func (st *Store) SetPromoCode(code string, fraction float64) {
	st.Dispatch(SetPromo{Promo: Promo{Code: code, Fraction: fraction}})
}

func (st *Store) ApplyPromo(p Promo) { st.Dispatch(SetPromo{Promo: p}) }

func (st *Store) ClearPromoCode() { st.Dispatch(ClearPromo{}) }

func (st *Store) ClearCart() { st.Dispatch(ClearCart{}) }

func (st *Store) Subtotal() float64 { return Subtotal(st.State()) }

func (st *Store) Discount() float64 { return Discount(st.State()) }

func (st *Store) Total() float64 { return Total(st.State()) }
