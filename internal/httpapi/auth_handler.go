package httpapi

import (
	"net/http"

	"github.com/andreasstove999/labtest-storefront/internal/user"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	tok, err := a.auth.Register(ctx, user.CreateInput{
		Email:    body.Email,
		Name:     body.Name,
		Phone:    body.Phone,
		Password: body.Password,
	})
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tok)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	tok, err := a.auth.Login(ctx, body.Email, body.Password)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// RequestCode always answers 202 so callers cannot probe for accounts.
func (a *API) RequestCode(w http.ResponseWriter, r *http.Request) {
	var body codeRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Email == "" {
		badRequest(w, r, "missing email")
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	if err := a.auth.RequestCode(ctx, body.Email); err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (a *API) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var body codeRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	ctx, cancel := a.ctx(r)
	defer cancel()

	tok, err := a.auth.VerifyCode(ctx, body.Email, body.Code)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}
