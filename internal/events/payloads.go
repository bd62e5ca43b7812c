package events

import (
	"time"

	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/order"
)

const (
	OrderCreatedEventName       = "OrderCreated"
	OrderStatusChangedEventName = "OrderStatusChanged"
	PromoRedeemedEventName      = "PromoRedeemed"
	eventVersion                = 1
)

type OrderCreatedPayload struct {
	OrderID       string              `json:"orderId"`
	UserID        string              `json:"userId"`
	Items         []cart.Item         `json:"items"`
	Subtotal      float64             `json:"subtotal"`
	Discount      float64             `json:"discount"`
	TotalAmount   float64             `json:"totalAmount"`
	PromoCode     string              `json:"promoCode,omitempty"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type OrderStatusChangedPayload struct {
	OrderID     string       `json:"orderId"`
	UserID      string       `json:"userId"`
	From        order.Status `json:"from"`
	To          order.Status `json:"to"`
	UpdatedAt   *time.Time   `json:"updatedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

type PromoRedeemedPayload struct {
	Code       string    `json:"code"`
	OrderID    string    `json:"orderId"`
	RedeemedAt time.Time `json:"redeemedAt"`
}

func orderCreatedPayload(o *order.Order) OrderCreatedPayload {
	p := OrderCreatedPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Items:         o.Tests,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
	}
	if o.PromoCode != nil {
		p.PromoCode = *o.PromoCode
	}
	return p
}
