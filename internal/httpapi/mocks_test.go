package httpapi_test

import (
	"context"
	"errors"

	"github.com/andreasstove999/labtest-storefront/internal/auth"
	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/catalog"
	"github.com/andreasstove999/labtest-storefront/internal/checkout"
	"github.com/andreasstove999/labtest-storefront/internal/httpapi"
	"github.com/andreasstove999/labtest-storefront/internal/order"
	"github.com/andreasstove999/labtest-storefront/internal/promo"
	"github.com/andreasstove999/labtest-storefront/internal/user"
)

type CartServiceMock struct {
	GetFunc        func(ctx context.Context, userID string) (*cart.Cart, error)
	AddItemFunc    func(ctx context.Context, userID, id string, kind cart.ItemKind) (*cart.Cart, error)
	RemoveItemFunc func(ctx context.Context, userID, testID string) (*cart.Cart, error)
	ApplyPromoFunc func(ctx context.Context, userID, code string) (*cart.Cart, cart.PromoDecision, error)
	ClearPromoFunc func(ctx context.Context, userID string) (*cart.Cart, error)
	ClearFunc      func(ctx context.Context, userID string) (*cart.Cart, error)
}

func (m *CartServiceMock) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	return m.GetFunc(ctx, userID)
}

func (m *CartServiceMock) AddItem(ctx context.Context, userID, id string, kind cart.ItemKind) (*cart.Cart, error) {
	return m.AddItemFunc(ctx, userID, id, kind)
}

func (m *CartServiceMock) RemoveItem(ctx context.Context, userID, testID string) (*cart.Cart, error) {
	return m.RemoveItemFunc(ctx, userID, testID)
}

func (m *CartServiceMock) ApplyPromo(ctx context.Context, userID, code string) (*cart.Cart, cart.PromoDecision, error) {
	return m.ApplyPromoFunc(ctx, userID, code)
}

func (m *CartServiceMock) ClearPromo(ctx context.Context, userID string) (*cart.Cart, error) {
	return m.ClearPromoFunc(ctx, userID)
}

func (m *CartServiceMock) Clear(ctx context.Context, userID string) (*cart.Cart, error) {
	return m.ClearFunc(ctx, userID)
}

type CheckoutServiceMock struct {
	SubmitFunc func(ctx context.Context, userID string, form checkout.Form) (*order.Order, error)
}

func (m *CheckoutServiceMock) Submit(ctx context.Context, userID string, form checkout.Form) (*order.Order, error) {
	return m.SubmitFunc(ctx, userID, form)
}

type OrderServiceMock struct {
	GetForUserFunc   func(ctx context.Context, userID, id string) (*order.Order, error)
	ListForUserFunc  func(ctx context.Context, userID string) ([]order.Order, error)
	ListFunc         func(ctx context.Context, f order.Filter) ([]order.Order, error)
	GetFunc          func(ctx context.Context, id string) (*order.Order, error)
	UpdateStatusFunc func(ctx context.Context, id string, to order.Status) (*order.Order, error)
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *OrderServiceMock) GetForUser(ctx context.Context, userID, id string) (*order.Order, error) {
	return m.GetForUserFunc(ctx, userID, id)
}

func (m *OrderServiceMock) ListForUser(ctx context.Context, userID string) ([]order.Order, error) {
	return m.ListForUserFunc(ctx, userID)
}

func (m *OrderServiceMock) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	return m.ListFunc(ctx, f)
}

func (m *OrderServiceMock) Get(ctx context.Context, id string) (*order.Order, error) {
	return m.GetFunc(ctx, id)
}

func (m *OrderServiceMock) UpdateStatus(ctx context.Context, id string, to order.Status) (*order.Order, error) {
	return m.UpdateStatusFunc(ctx, id, to)
}

func (m *OrderServiceMock) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

type PromoServiceMock struct {
	ValidateFunc func(ctx context.Context, code string, e promo.Eligibility) (promo.Result, error)
	ListFunc     func(ctx context.Context, f promo.Filter) ([]promo.PromoCode, error)
	GetFunc      func(ctx context.Context, id string) (*promo.PromoCode, error)
	CreateFunc   func(ctx context.Context, p *promo.PromoCode) error
	UpdateFunc   func(ctx context.Context, p *promo.PromoCode) error
	DeleteFunc   func(ctx context.Context, id string) error
}

func (m *PromoServiceMock) Validate(ctx context.Context, code string, e promo.Eligibility) (promo.Result, error) {
	return m.ValidateFunc(ctx, code, e)
}

func (m *PromoServiceMock) List(ctx context.Context, f promo.Filter) ([]promo.PromoCode, error) {
	return m.ListFunc(ctx, f)
}

func (m *PromoServiceMock) Get(ctx context.Context, id string) (*promo.PromoCode, error) {
	return m.GetFunc(ctx, id)
}

func (m *PromoServiceMock) Create(ctx context.Context, p *promo.PromoCode) error {
	return m.CreateFunc(ctx, p)
}

func (m *PromoServiceMock) Update(ctx context.Context, p *promo.PromoCode) error {
	return m.UpdateFunc(ctx, p)
}

func (m *PromoServiceMock) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// CatalogServiceMock overrides the few calls a test needs; anything else
// hits the nil embedded interface and panics.
type CatalogServiceMock struct {
	httpapi.CatalogService
	BrowseTestsFunc func(ctx context.Context, search, category string) ([]catalog.Test, error)
	ViewTestFunc    func(ctx context.Context, id string) (*catalog.Test, error)
	ListTestsFunc   func(ctx context.Context, f catalog.TestFilter) ([]catalog.Test, error)
	DeleteTestFunc  func(ctx context.Context, id string) error
	CreatePanelFunc func(ctx context.Context, p *catalog.Panel) error
}

func (m *CatalogServiceMock) BrowseTests(ctx context.Context, search, category string) ([]catalog.Test, error) {
	return m.BrowseTestsFunc(ctx, search, category)
}

func (m *CatalogServiceMock) ViewTest(ctx context.Context, id string) (*catalog.Test, error) {
	return m.ViewTestFunc(ctx, id)
}

func (m *CatalogServiceMock) ListTests(ctx context.Context, f catalog.TestFilter) ([]catalog.Test, error) {
	return m.ListTestsFunc(ctx, f)
}

func (m *CatalogServiceMock) DeleteTest(ctx context.Context, id string) error {
	return m.DeleteTestFunc(ctx, id)
}

func (m *CatalogServiceMock) CreatePanel(ctx context.Context, p *catalog.Panel) error {
	return m.CreatePanelFunc(ctx, p)
}

type UserServiceMock struct {
	httpapi.UserService
	GetFunc    func(ctx context.Context, id string) (*user.User, error)
	CreateFunc func(ctx context.Context, in user.CreateInput) (*user.User, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *UserServiceMock) Get(ctx context.Context, id string) (*user.User, error) {
	return m.GetFunc(ctx, id)
}

func (m *UserServiceMock) Create(ctx context.Context, in user.CreateInput) (*user.User, error) {
	return m.CreateFunc(ctx, in)
}

func (m *UserServiceMock) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

// tokenAuth accepts the fixed tokens below and nothing else.
type tokenAuth struct {
	httpapi.AuthService
	LoginFunc       func(ctx context.Context, email, password string) (*auth.Token, error)
	RequestCodeFunc func(ctx context.Context, email string) error
}

const (
	customerToken = "customer-token"
	adminToken    = "admin-token"
)

func (tokenAuth) Authenticate(token string) (auth.Principal, error) {
	switch token {
	case customerToken:
		return auth.Principal{UserID: "u1", Role: user.RoleCustomer}, nil
	case adminToken:
		return auth.Principal{UserID: "admin1", Role: user.RoleAdmin}, nil
	}
	return auth.Principal{}, auth.ErrInvalidToken
}

func (m tokenAuth) Login(ctx context.Context, email, password string) (*auth.Token, error) {
	return m.LoginFunc(ctx, email, password)
}

func (m tokenAuth) RequestCode(ctx context.Context, email string) error {
	return m.RequestCodeFunc(ctx, email)
}

var errBoom = errors.New("boom")
