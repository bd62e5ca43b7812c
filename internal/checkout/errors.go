package checkout

import "fmt"

type Kind string

const (
	KindValidation   Kind = "validation"
	KindEmptyCart    Kind = "empty_cart"
	KindPromoInvalid Kind = "promo_invalid"
	KindSubmission   Kind = "submission"
)

// Error is the failure result of Submit. Fields is set for KindValidation,
// Redirect for KindEmptyCart and Reason for KindPromoInvalid.
type Error struct {
	Kind     Kind
	Fields   map[string]string
	Redirect string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindValidation:
		return fmt.Sprintf("checkout: %d invalid field(s)", len(e.Fields))
	case KindEmptyCart:
		return "checkout: cart is empty"
	case KindPromoInvalid:
		return fmt.Sprintf("checkout: promo code no longer valid (%s)", e.Reason)
	}
	if e.Err != nil {
		return "checkout: " + e.Err.Error()
	}
	return "checkout: " + string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }
