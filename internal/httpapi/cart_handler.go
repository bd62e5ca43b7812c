package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
)

func (a *API) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	c, err := a.cart.Get(ctx, principal(r).UserID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.Summarize(c))
}

type addItemRequest struct {
	ID   string        `json:"id"`
	Kind cart.ItemKind `json:"kind"`
}

func (a *API) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var body addItemRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	body.ID = strings.TrimSpace(body.ID)
	if body.ID == "" {
		badRequest(w, r, "missing id")
		return
	}
	if body.Kind != "" && body.Kind != cart.KindTest && body.Kind != cart.KindPanel {
		badRequest(w, r, "kind must be test or panel")
		return
	}

	ctx, cancel := a.ctx(r)
	defer cancel()

	c, err := a.cart.AddItem(ctx, principal(r).UserID, body.ID, body.Kind)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.Summarize(c))
}

func (a *API) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	c, err := a.cart.RemoveItem(ctx, principal(r).UserID, chi.URLParam(r, "testId"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.Summarize(c))
}

// ClearCart empties the items. An applied promo stays.
func (a *API) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	c, err := a.cart.Clear(ctx, principal(r).UserID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.Summarize(c))
}

type promoRequest struct {
	Code string `json:"code"`
}

type applyPromoResponse struct {
	Valid  bool         `json:"valid"`
	Reason string       `json:"reason,omitempty"`
	Cart   cart.Summary `json:"cart"`
}

func (a *API) ApplyCartPromo(w http.ResponseWriter, r *http.Request) {
	var body promoRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Code) == "" {
		badRequest(w, r, "missing code")
		return
	}

	ctx, cancel := a.ctx(r)
	defer cancel()

	c, decision, err := a.cart.ApplyPromo(ctx, principal(r).UserID, body.Code)
	if errors.Is(err, cart.ErrPromoRejected) {
		writeErrorBody(w, r, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "invalid promo code",
			Reason: decision.Reason,
		})
		return
	}
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applyPromoResponse{Valid: true, Cart: cart.Summarize(c)})
}

func (a *API) ClearCartPromo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	c, err := a.cart.ClearPromo(ctx, principal(r).UserID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart.Summarize(c))
}
