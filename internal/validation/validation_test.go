package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Phone   string `json:"phone" validate:"phone10"`
	Born    string `json:"dateOfBirth" validate:"required,pastdate"`
	Email   string `json:"email" validate:"required,email"`
	Address struct {
		City string `json:"city" validate:"required"`
	} `json:"address"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	ok := contact{Phone: "(555) 123-4567", Born: "1990-04-01", Email: "a@b.co"}
	ok.Address.City = "Austin"
	require.NoError(t, v.Struct(ok))

	bad := contact{Phone: "555-1234", Born: time.Now().AddDate(1, 0, 0).Format(DateLayout), Email: "nope"}
	err := v.Struct(bad)
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "phone must contain exactly 10 digits", fields["phone"])
	assert.Contains(t, fields["dateOfBirth"], "in the past")
	assert.Contains(t, fields["email"], "valid email")
	assert.Equal(t, "address.city is required", fields["address.city"])
}

func TestFieldErrorsNonValidationError(t *testing.T) {
	fields := FieldErrors(errors.New("boom"))
	assert.Equal(t, map[string]string{"_": "boom"}, fields)
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "5551234567", DigitsOnly("+(555) 123-4567"))
	assert.Equal(t, "", DigitsOnly("abc"))
}
