package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/labtest-storefront/internal/promo"
)

type validatePromoRequest struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
	// Kinds narrows applicability; empty means the cart holds both kinds.
	Kinds []string `json:"kinds"`
}

type validatePromoResponse struct {
	Valid        bool               `json:"valid"`
	Discount     float64            `json:"discount"`
	DiscountType promo.DiscountType `json:"discountType,omitempty"`
	FlatAmount   float64            `json:"flatAmount,omitempty"`
	Reason       promo.Reason       `json:"reason,omitempty"`
}

// ValidatePromo answers {valid, discount} for a code against a subtotal. A
// rejected code is a normal 200 response with valid=false and discount 0.
func (a *API) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	var body validatePromoRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Subtotal < 0 {
		badRequest(w, r, "subtotal must not be negative")
		return
	}

	e := promo.Eligibility{Subtotal: body.Subtotal, HasTests: len(body.Kinds) == 0, HasPanels: len(body.Kinds) == 0}
	for _, k := range body.Kinds {
		switch k {
		case "test":
			e.HasTests = true
		case "panel":
			e.HasPanels = true
		default:
			badRequest(w, r, "unknown kind %q", k)
			return
		}
	}

	ctx, cancel := a.ctx(r)
	defer cancel()

	res, err := a.promos.Validate(ctx, body.Code, e)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validatePromoResponse{
		Valid:        res.Valid,
		Discount:     res.Discount,
		DiscountType: res.Kind,
		FlatAmount:   res.FlatAmount,
		Reason:       res.Reason,
	})
}

func (a *API) AdminListPromos(w http.ResponseWriter, r *http.Request) {
	enabled, ok := parseEnabled(r)
	if !ok {
		badRequest(w, r, "invalid enabled filter")
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	out, err := a.promos.List(ctx, promo.Filter{Search: r.URL.Query().Get("search"), Enabled: enabled})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) AdminGetPromo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	p, err := a.promos.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) AdminCreatePromo(w http.ResponseWriter, r *http.Request) {
	var p promo.PromoCode
	if !decodeJSON(w, r, &p) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.promos.Create(ctx, &p); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) AdminUpdatePromo(w http.ResponseWriter, r *http.Request) {
	var p promo.PromoCode
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.promos.Update(ctx, &p); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) AdminDeletePromo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.promos.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
