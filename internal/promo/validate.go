package promo

import (
	"strings"
	"time"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/money"
)

type Reason string

const (
	ReasonNotFound      Reason = "not_found"
	ReasonDisabled      Reason = "disabled"
	ReasonNotStarted    Reason = "not_started"
	ReasonExpired       Reason = "expired"
	ReasonUsageLimit    Reason = "usage_limit"
	ReasonMinPurchase   Reason = "min_purchase"
	ReasonNotApplicable Reason = "not_applicable"
)

// Eligibility is what validation needs to know about the cart.
type Eligibility struct {
	Subtotal  float64
	HasTests  bool
	HasPanels bool
}

func EligibilityOf(s cart.State) Eligibility {
	e := Eligibility{Subtotal: cart.Subtotal(s)}
	for _, it := range s.Items {
		switch it.Kind {
		case cart.KindPanel:
			e.HasPanels = true
		default:
			e.HasTests = true
		}
	}
	return e
}

// Result answers "is this code usable right now". Discount is the effective
// fraction of the subtotal and is 0 whenever Valid is false.
type Result struct {
	Valid       bool         `json:"valid"`
	Discount    float64      `json:"discount"`
	Code        string       `json:"code,omitempty"`
	Kind        DiscountType `json:"discountType,omitempty"`
	Fraction    float64      `json:"-"`
	FlatAmount  float64      `json:"flatAmount,omitempty"`
	MaxDiscount float64      `json:"maxDiscount,omitempty"`
	Reason      Reason       `json:"reason,omitempty"`
}

func invalid(r Reason) Result { return Result{Reason: r} }

// Validate checks p against the validity window, usage cap, minimum purchase
// and applicability. Percentage codes discount discountValue/100 of the
// subtotal; fixed codes subtract discountValue, never more than the subtotal.
func Validate(p *PromoCode, e Eligibility, now time.Time) Result {
	if p == nil {
		return invalid(ReasonNotFound)
	}
	if !p.Enabled {
		return invalid(ReasonDisabled)
	}
	if now.Before(p.ValidFrom) {
		return invalid(ReasonNotStarted)
	}
	if now.After(p.ValidUntil) {
		return invalid(ReasonExpired)
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return invalid(ReasonUsageLimit)
	}
	if p.MinPurchaseAmount != nil && e.Subtotal < *p.MinPurchaseAmount {
		return invalid(ReasonMinPurchase)
	}
	switch p.ApplicableTo {
	case ApplicableTests:
		if !e.HasTests {
			return invalid(ReasonNotApplicable)
		}
	case ApplicablePanels:
		if !e.HasPanels {
			return invalid(ReasonNotApplicable)
		}
	}

	res := Result{Valid: true, Code: p.Code, Kind: p.DiscountType}
	if p.MaxDiscountAmount != nil {
		res.MaxDiscount = *p.MaxDiscountAmount
	}

	var amount float64
	switch p.DiscountType {
	case TypeFixed:
		res.FlatAmount = money.Round(p.DiscountValue)
		amount = money.Min(res.FlatAmount, e.Subtotal)
	default:
		res.Fraction = clamp01(p.DiscountValue / 100)
		amount = money.Mul(e.Subtotal, res.Fraction)
	}
	if res.MaxDiscount > 0 {
		amount = money.Min(amount, res.MaxDiscount)
	}

	switch {
	case res.Kind == TypePercentage && res.MaxDiscount == 0:
		res.Discount = res.Fraction
	case e.Subtotal > 0:
		res.Discount = amount / e.Subtotal
	}
	return res
}

// CartPromo converts a valid result into the promo a cart applies.
func (r Result) CartPromo() cart.Promo {
	return cart.Promo{
		Code:        r.Code,
		Fraction:    r.Fraction,
		FlatAmount:  r.FlatAmount,
		MaxDiscount: r.MaxDiscount,
	}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
