package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/labtest-storefront/internal/order"
)

func (a *API) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	out, err := a.orders.ListForUser(ctx, principal(r).UserID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	o, err := a.orders.GetForUser(ctx, principal(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	q := r.URL.Query()
	out, err := a.orders.List(ctx, order.Filter{Status: order.Status(q.Get("status")), UserID: q.Get("userId")})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	o, err := a.orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type statusRequest struct {
	Status order.Status `json:"status"`
}

func (a *API) AdminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	o, err := a.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), body.Status)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) AdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.orders.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
