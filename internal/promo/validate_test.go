package promo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func activePromo() *PromoCode {
	return &PromoCode{
		Code:          "SAVE10",
		DiscountType:  TypePercentage,
		DiscountValue: 10,
		ValidFrom:     now.Add(-24 * time.Hour),
		ValidUntil:    now.Add(24 * time.Hour),
		Enabled:       true,
		ApplicableTo:  ApplicableAll,
	}
}

func TestValidateRejections(t *testing.T) {
	cases := map[string]struct {
		mutate func(p *PromoCode)
		elig   Eligibility
		want   Reason
	}{
		"disabled":           {mutate: func(p *PromoCode) { p.Enabled = false }, want: ReasonDisabled},
		"not started":        {mutate: func(p *PromoCode) { p.ValidFrom = now.Add(time.Minute) }, want: ReasonNotStarted},
		"expired":            {mutate: func(p *PromoCode) { p.ValidUntil = now.Add(-time.Minute) }, want: ReasonExpired},
		"usage cap reached":  {mutate: func(p *PromoCode) { p.UsageLimit = ptr(5); p.UsageCount = 5 }, want: ReasonUsageLimit},
		"usage cap exceeded": {mutate: func(p *PromoCode) { p.UsageLimit = ptr(5); p.UsageCount = 9 }, want: ReasonUsageLimit},
		"below min purchase": {mutate: func(p *PromoCode) { p.MinPurchaseAmount = ptr(100.0) }, elig: Eligibility{Subtotal: 99.99, HasTests: true}, want: ReasonMinPurchase},
		"panels only, tests": {mutate: func(p *PromoCode) { p.ApplicableTo = ApplicablePanels }, elig: Eligibility{Subtotal: 50, HasTests: true}, want: ReasonNotApplicable},
		"tests only, panels": {mutate: func(p *PromoCode) { p.ApplicableTo = ApplicableTests }, elig: Eligibility{Subtotal: 50, HasPanels: true}, want: ReasonNotApplicable},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := activePromo()
			tc.mutate(p)

			res := Validate(p, tc.elig, now)

			assert.False(t, res.Valid)
			assert.Equal(t, 0.0, res.Discount)
			assert.Equal(t, tc.want, res.Reason)
		})
	}

	t.Run("missing", func(t *testing.T) {
		res := Validate(nil, Eligibility{}, now)
		assert.Equal(t, Result{Reason: ReasonNotFound}, res)
	})
}

func TestValidateWindowIsInclusive(t *testing.T) {
	p := activePromo()
	p.ValidFrom = now
	p.ValidUntil = now

	assert.True(t, Validate(p, Eligibility{Subtotal: 10, HasTests: true}, now).Valid)
}

func TestValidateUnderUsageLimit(t *testing.T) {
	p := activePromo()
	p.UsageLimit = ptr(5)
	p.UsageCount = 4

	res := Validate(p, Eligibility{Subtotal: 80, HasTests: true}, now)
	assert.True(t, res.Valid)
	assert.Equal(t, 0.1, res.Discount)
}

func TestValidatePercentage(t *testing.T) {
	res := Validate(activePromo(), Eligibility{Subtotal: 80, HasTests: true}, now)

	assert.True(t, res.Valid)
	assert.Equal(t, 0.1, res.Discount)
	assert.Equal(t, cart.Promo{Code: "SAVE10", Fraction: 0.1}, res.CartPromo())
}

func TestValidateFixedIsFlatAmount(t *testing.T) {
	p := activePromo()
	p.Code = "TENOFF"
	p.DiscountType = TypeFixed
	p.DiscountValue = 10

	res := Validate(p, Eligibility{Subtotal: 80, HasTests: true}, now)
	assert.True(t, res.Valid)
	assert.Equal(t, 0.125, res.Discount)
	assert.Equal(t, 10.0, res.FlatAmount)

	st := cart.NewStore(cart.State{Items: []cart.Item{{TestID: "a", Price: 50}, {TestID: "b", Price: 30}}})
	st.ApplyPromo(res.CartPromo())
	assert.Equal(t, 10.0, st.Discount())
	assert.Equal(t, 70.0, st.Total())

	small := Validate(p, Eligibility{Subtotal: 4, HasTests: true}, now)
	assert.Equal(t, 1.0, small.Discount)
}

func TestValidateMaxDiscountCap(t *testing.T) {
	p := activePromo()
	p.DiscountValue = 50
	p.MaxDiscountAmount = ptr(20.0)

	res := Validate(p, Eligibility{Subtotal: 200, HasTests: true}, now)
	assert.True(t, res.Valid)
	assert.Equal(t, 0.1, res.Discount)
	assert.Equal(t, 20.0, res.MaxDiscount)
}

func TestValidatePercentageAbove100IsClamped(t *testing.T) {
	p := activePromo()
	p.DiscountValue = 150

	res := Validate(p, Eligibility{Subtotal: 20, HasTests: true}, now)
	assert.Equal(t, 1.0, res.Discount)
}

func TestEligibilityOf(t *testing.T) {
	e := EligibilityOf(cart.State{Items: []cart.Item{
		{TestID: "a", Price: 10, Kind: cart.KindTest},
		{TestID: "p", Price: 25, Kind: cart.KindPanel},
	}})
	assert.Equal(t, Eligibility{Subtotal: 35, HasTests: true, HasPanels: true}, e)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
}
