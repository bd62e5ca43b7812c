package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/auth"
	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/catalog"
	"github.com/andreasstove999/labtest-storefront/internal/checkout"
	"github.com/andreasstove999/labtest-storefront/internal/logging"
	"github.com/andreasstove999/labtest-storefront/internal/order"
	"github.com/andreasstove999/labtest-storefront/internal/promo"
	"github.com/andreasstove999/labtest-storefront/internal/user"
	"github.com/andreasstove999/labtest-storefront/internal/validation"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error         string            `json:"error"`
	CorrelationID string            `json:"correlationId,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	Redirect      string            `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeErrorBody(w, r, status, ErrorResponse{Error: msg})
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	body.CorrelationID = logging.CorrelationID(r.Context())
	writeJSON(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

var (
	notFoundErrors = []error{catalog.ErrNotFound, order.ErrNotFound, promo.ErrNotFound, user.ErrNotFound}
	conflictErrors = []error{promo.ErrDuplicateCode, user.ErrEmailTaken, catalog.ErrInUse, order.ErrConflict}
	invalidErrors  = []error{
		order.ErrInvalidStatus, order.ErrInvalidTransition, promo.ErrInvalidPromo,
		catalog.ErrUnknownTest, catalog.ErrUnavailable, catalog.ErrBundlePrice, cart.ErrInvalidItem,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeServiceError maps domain errors onto HTTP statuses. Anything it does
// not recognise is logged and answered with a generic 500.
func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs  validator.ValidationErrors
		coErr  *checkout.Error
		status int
	)
	switch {
	case errors.As(err, &coErr):
		a.writeCheckoutError(w, r, coErr)
		return
	case errors.As(err, &verrs):
		writeErrorBody(w, r, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "validation failed",
			Fields: validation.FieldErrors(err),
		})
		return
	case isAny(err, notFoundErrors):
		status = http.StatusNotFound
	case isAny(err, conflictErrors):
		status = http.StatusConflict
	case isAny(err, invalidErrors):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidOTP), errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		logging.Warn(r.Context(), a.logger, "request timed out", zap.String("path", r.URL.Path))
		writeError(w, r, http.StatusGatewayTimeout, "request timed out")
		return
	default:
		logging.Error(r.Context(), a.logger, "request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	writeError(w, r, status, errorMessage(err))
}

// errorMessage keeps only the sentinel text, never wrapped driver details.
func errorMessage(err error) string {
	for _, group := range [][]error{notFoundErrors, conflictErrors, invalidErrors} {
		for _, t := range group {
			if errors.Is(err, t) {
				return t.Error()
			}
		}
	}
	return err.Error()
}

func (a *API) writeCheckoutError(w http.ResponseWriter, r *http.Request, e *checkout.Error) {
	switch e.Kind {
	case checkout.KindValidation:
		writeErrorBody(w, r, http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Fields: e.Fields})
	case checkout.KindEmptyCart:
		w.Header().Set("Location", e.Redirect)
		writeErrorBody(w, r, http.StatusSeeOther, ErrorResponse{Error: "cart is empty", Redirect: e.Redirect})
	case checkout.KindPromoInvalid:
		writeErrorBody(w, r, http.StatusUnprocessableEntity, ErrorResponse{Error: "promo code is no longer valid", Reason: e.Reason})
	default:
		logging.Error(r.Context(), a.logger, "checkout submission failed", zap.Error(e))
		writeError(w, r, http.StatusBadGateway, "order could not be submitted, please try again")
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	writeError(w, r, http.StatusBadRequest, fmt.Sprintf(format, args...))
}
