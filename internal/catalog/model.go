package catalog

import (
	"errors"
	"time"

	"github.com/andreasstove999/labtest-storefront/internal/money"
)

var (
	ErrNotFound    = errors.New("catalog entry not found")
	ErrUnknownTest = errors.New("panel references an unknown test")
	ErrUnavailable = errors.New("catalog entry is not available")
	ErrBundlePrice = errors.New("bundle price exceeds the sum of its tests")
)

type Test struct {
	ID               string    `json:"id"`
	Name             string    `json:"name" validate:"required,max=200"`
	Description      string    `json:"description"`
	Category         string    `json:"category" validate:"required"`
	Price            float64   `json:"price" validate:"gte=0"`
	CPTCodes         []string  `json:"cptCodes" validate:"dive,required"`
	LabCode          string    `json:"labCode"`
	LabName          string    `json:"labName"`
	TurnaroundDays   int       `json:"turnaroundDays" validate:"gte=0"`
	SampleType       string    `json:"sampleType"`
	Enabled          bool      `json:"enabled"`
	Preparation      *string   `json:"preparation,omitempty"`
	CollectionMethod *string   `json:"collectionMethod,omitempty"`
	FastingRequired  bool      `json:"fastingRequired"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Panel is a bundle of tests sold at BundlePrice. OriginalPrice is the sum of
// its tests' prices and is never taken from input.
type Panel struct {
	ID            string    `json:"id"`
	Name          string    `json:"name" validate:"required,max=200"`
	Description   string    `json:"description"`
	TestIDs       []string  `json:"testIds" validate:"min=1,unique,dive,required"`
	OriginalPrice float64   `json:"originalPrice"`
	BundlePrice   float64   `json:"bundlePrice" validate:"gte=0"`
	Savings       float64   `json:"savings"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Panel) derive() {
	p.OriginalPrice = money.Round(p.OriginalPrice)
	p.Savings = money.Sub(p.OriginalPrice, p.BundlePrice)
}

type TestFilter struct {
	Search   string
	Category string
	Enabled  *bool
}

type PanelFilter struct {
	Search  string
	Enabled *bool
	// TestID limits the result to panels containing that test.
	TestID string
}

// ErrInUse is returned when deleting a test that a panel still bundles.
var ErrInUse = errors.New("test is part of a panel")
