package promo

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("promo code not found")
	ErrDuplicateCode = errors.New("promo code already exists")
	ErrUsageExceeded = errors.New("promo code usage limit reached")
)

type DiscountType string

const (
	TypePercentage DiscountType = "percentage"
	TypeFixed      DiscountType = "fixed"
)

type Applicability string

const (
	ApplicableAll    Applicability = "all"
	ApplicableTests  Applicability = "tests"
	ApplicablePanels Applicability = "panels"
)

type PromoCode struct {
	ID                string        `json:"id"`
	Code              string        `json:"code" validate:"required,max=64"`
	Description       string        `json:"description,omitempty"`
	DiscountType      DiscountType  `json:"discountType" validate:"required,oneof=percentage fixed"`
	DiscountValue     float64       `json:"discountValue" validate:"gt=0"`
	MinPurchaseAmount *float64      `json:"minPurchaseAmount,omitempty" validate:"omitempty,gte=0"`
	MaxDiscountAmount *float64      `json:"maxDiscountAmount,omitempty" validate:"omitempty,gt=0"`
	ValidFrom         time.Time     `json:"validFrom" validate:"required"`
	ValidUntil        time.Time     `json:"validUntil" validate:"required,gtfield=ValidFrom"`
	UsageLimit        *int          `json:"usageLimit,omitempty" validate:"omitempty,gt=0"`
	UsageCount        int           `json:"usageCount" validate:"gte=0"`
	Enabled           bool          `json:"enabled"`
	ApplicableTo      Applicability `json:"applicableTo" validate:"omitempty,oneof=all tests panels"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

type Filter struct {
	Search  string
	Enabled *bool
}
