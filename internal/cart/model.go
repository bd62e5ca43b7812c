package cart

import "time"

type ItemKind string

const (
	KindTest  ItemKind = "test"
	KindPanel ItemKind = "panel"
)

type Item struct {
	TestID   string   `json:"testId"`
	TestName string   `json:"testName"`
	Price    float64  `json:"price"`
	Kind     ItemKind `json:"kind,omitempty"`
}

// Promo is the discount currently applied to a cart. Fraction applies to
// percentage codes, FlatAmount to fixed codes. MaxDiscount caps either when > 0.
type Promo struct {
	Code        string  `json:"code"`
	Fraction    float64 `json:"fraction"`
	FlatAmount  float64 `json:"flatAmount,omitempty"`
	MaxDiscount float64 `json:"maxDiscount,omitempty"`
}

type State struct {
	Items []Item `json:"items"`
	Promo *Promo `json:"promo,omitempty"`
}

func (s State) PromoCode() string {
	if s.Promo == nil {
		return ""
	}
	return s.Promo.Code
}

func (s State) DiscountFraction() float64 {
	if s.Promo == nil {
		return 0
	}
	return s.Promo.Fraction
}

func (s State) IsEmpty() bool { return len(s.Items) == 0 }

// Cart is the persisted per-user cart.
type Cart struct {
	ID        string    `json:"cartId"`
	UserID    string    `json:"userId"`
	State               // items and promo
	UpdatedAt time.Time `json:"updatedAt"`
}

// Summary is the JSON view of a cart with derived totals.
type Summary struct {
	CartID    string    `json:"cartId,omitempty"`
	Items     []Item    `json:"items"`
	PromoCode *string   `json:"promoCode"`
	Discount  float64   `json:"discountFraction"`
	Subtotal  float64   `json:"subtotal"`
	Savings   float64   `json:"discount"`
	Total     float64   `json:"total"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func Summarize(c *Cart) Summary {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	s := Summary{
		CartID:    c.ID,
		Items:     items,
		Discount:  c.DiscountFraction(),
		Subtotal:  Subtotal(c.State),
		Savings:   Discount(c.State),
		Total:     Total(c.State),
		UpdatedAt: c.UpdatedAt,
	}
	if code := c.PromoCode(); code != "" {
		s.PromoCode = &code
	}
	return s
}
