package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/labtest-storefront/internal/user"
)

func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	u, err := a.users.Get(ctx, principal(r).UserID)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	q := r.URL.Query()
	out, err := a.users.List(ctx, user.Filter{Search: q.Get("search"), Role: user.Role(q.Get("role"))})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) AdminGetUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	u, err := a.users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) AdminCreateUser(w http.ResponseWriter, r *http.Request) {
	var in user.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	u, err := a.users.Create(ctx, in)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (a *API) AdminUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in user.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	u, err := a.users.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *API) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == principal(r).UserID {
		writeError(w, r, http.StatusConflict, "cannot delete your own account")
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.users.Delete(ctx, id); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
