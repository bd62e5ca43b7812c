package httpapi

import (
	"net/http"

	"github.com/andreasstove999/labtest-storefront/internal/checkout"
)

// Checkout submits the caller's cart. Outcomes: 201 with the order, 422 for
// form or promo problems, 303 to /cart for an empty cart, 502 when the order
// could not be stored. The cart is only emptied on 201.
func (a *API) Checkout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if !decodeJSON(w, r, &form) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	o, err := a.checkout.Submit(ctx, principal(r).UserID, form)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}
