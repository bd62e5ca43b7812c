package order

import (
	"errors"
	"time"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
)

var ErrNotFound = errors.New("order not found")

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentACH  PaymentMethod = "ach"
)

type Address struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2,omitempty"`
	City  string `json:"city"`
	State string `json:"state"`
	Zip   string `json:"zip"`
}

type Notifications struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

type CustomerInfo struct {
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	DateOfBirth   string        `json:"dateOfBirth"`
	Address       Address       `json:"address"`
	Notifications Notifications `json:"notifications"`
}

type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Tests         []cart.Item   `json:"tests"`
	Subtotal      float64       `json:"subtotal"`
	Discount      float64       `json:"discount"`
	TotalAmount   float64       `json:"totalAmount"`
	PromoCode     *string       `json:"promoCode,omitempty"`
	CustomerInfo  CustomerInfo  `json:"customerInfo"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     *time.Time    `json:"updatedAt,omitempty"`
	CompletedAt   *time.Time    `json:"completedAt,omitempty"`
}

type Filter struct {
	Status Status
	UserID string
}
