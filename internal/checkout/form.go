package checkout

import (
	"strings"

	"github.com/andreasstove999/labtest-storefront/internal/order"
	"github.com/andreasstove999/labtest-storefront/internal/validation"
)

type AddressForm struct {
	Line1 string `json:"line1" validate:"required,max=200"`
	Line2 string `json:"line2" validate:"max=200"`
	City  string `json:"city" validate:"required,max=100"`
	State string `json:"state" validate:"required,len=2,alpha"`
	Zip   string `json:"zip" validate:"required,numeric,len=5"`
}

// Form is the customer-supplied part of a checkout. It is validated as a
// whole; nothing is submitted unless every field passes.
type Form struct {
	Name          string              `json:"name" validate:"required,max=200"`
	Email         string              `json:"email" validate:"required,email"`
	Phone         string              `json:"phone" validate:"required,phone10"`
	DateOfBirth   string              `json:"dateOfBirth" validate:"required,pastdate"`
	Address       AddressForm         `json:"address"`
	HIPAAConsent  bool                `json:"hipaaConsent" validate:"eq=true"`
	TermsConsent  bool                `json:"termsConsent" validate:"eq=true"`
	PaymentMethod string              `json:"paymentMethod" validate:"required,oneof=card ach"`
	Notifications order.Notifications `json:"notifications"`
}

// normalized returns a copy with whitespace trimmed and the phone reduced to digits.
func (f Form) normalized() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = validation.DigitsOnly(f.Phone)
	f.DateOfBirth = strings.TrimSpace(f.DateOfBirth)
	f.Address.Line1 = strings.TrimSpace(f.Address.Line1)
	f.Address.Line2 = strings.TrimSpace(f.Address.Line2)
	f.Address.City = strings.TrimSpace(f.Address.City)
	f.Address.State = strings.ToUpper(strings.TrimSpace(f.Address.State))
	f.Address.Zip = strings.TrimSpace(f.Address.Zip)
	f.PaymentMethod = strings.ToLower(strings.TrimSpace(f.PaymentMethod))
	return f
}

func (f Form) customerInfo() order.CustomerInfo {
	return order.CustomerInfo{
		Name:        f.Name,
		Email:       f.Email,
		Phone:       f.Phone,
		DateOfBirth: f.DateOfBirth,
		Address: order.Address{
			Line1: f.Address.Line1,
			Line2: f.Address.Line2,
			City:  f.Address.City,
			State: f.Address.State,
			Zip:   f.Address.Zip,
		},
		Notifications: f.Notifications,
	}
}
