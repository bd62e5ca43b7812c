package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/labtest-storefront/internal/catalog"
)

func (a *API) BrowseTests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	q := r.URL.Query()
	tests, err := a.catalog.BrowseTests(ctx, q.Get("search"), q.Get("category"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (a *API) ViewTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	t, err := a.catalog.ViewTest(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) BrowsePanels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	panels, err := a.catalog.BrowsePanels(ctx, r.URL.Query().Get("search"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panels)
}

func (a *API) ViewPanel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	p, err := a.catalog.ViewPanel(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// parseEnabled reads the optional ?enabled= filter.
func parseEnabled(r *http.Request) (*bool, bool) {
	raw := r.URL.Query().Get("enabled")
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func (a *API) AdminListTests(w http.ResponseWriter, r *http.Request) {
	enabled, ok := parseEnabled(r)
	if !ok {
		badRequest(w, r, "invalid enabled filter")
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	q := r.URL.Query()
	tests, err := a.catalog.ListTests(ctx, catalog.TestFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Enabled:  enabled,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (a *API) AdminGetTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	t, err := a.catalog.GetTest(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) AdminCreateTest(w http.ResponseWriter, r *http.Request) {
	var t catalog.Test
	if !decodeJSON(w, r, &t) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.catalog.CreateTest(ctx, &t); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) AdminUpdateTest(w http.ResponseWriter, r *http.Request) {
	var t catalog.Test
	if !decodeJSON(w, r, &t) {
		return
	}
	t.ID = chi.URLParam(r, "id")
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.catalog.UpdateTest(ctx, &t); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) AdminDeleteTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.catalog.DeleteTest(ctx, chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) AdminListPanels(w http.ResponseWriter, r *http.Request) {
	enabled, ok := parseEnabled(r)
	if !ok {
		badRequest(w, r, "invalid enabled filter")
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	q := r.URL.Query()
	panels, err := a.catalog.ListPanels(ctx, catalog.PanelFilter{
		Search:  q.Get("search"),
		Enabled: enabled,
		TestID:  q.Get("testId"),
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, panels)
}

func (a *API) AdminGetPanel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	p, err := a.catalog.GetPanel(ctx, chi.URLParam(r, "id"))
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) AdminCreatePanel(w http.ResponseWriter, r *http.Request) {
	var p catalog.Panel
	if !decodeJSON(w, r, &p) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.catalog.CreatePanel(ctx, &p); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) AdminUpdatePanel(w http.ResponseWriter, r *http.Request) {
	var p catalog.Panel
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = chi.URLParam(r, "id")
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.catalog.UpdatePanel(ctx, &p); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) AdminDeletePanel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.catalog.DeletePanel(ctx, chi.URLParam(r, "id")); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
