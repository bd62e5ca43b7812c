package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/andreasstove999/labtest-storefront/internal/auth"
	"github.com/andreasstove999/labtest-storefront/internal/cart"
	"github.com/andreasstove999/labtest-storefront/internal/catalog"
	"github.com/andreasstove999/labtest-storefront/internal/checkout"
	"github.com/andreasstove999/labtest-storefront/internal/metrics"
	"github.com/andreasstove999/labtest-storefront/internal/order"
	"github.com/andreasstove999/labtest-storefront/internal/promo"
	"github.com/andreasstove999/labtest-storefront/internal/user"
)

type CartService interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	AddItem(ctx context.Context, userID, id string, kind cart.ItemKind) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, testID string) (*cart.Cart, error)
	ApplyPromo(ctx context.Context, userID, code string) (*cart.Cart, cart.PromoDecision, error)
	ClearPromo(ctx context.Context, userID string) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) (*cart.Cart, error)
}

type PromoService interface {
	Validate(ctx context.Context, code string, e promo.Eligibility) (promo.Result, error)
	List(ctx context.Context, f promo.Filter) ([]promo.PromoCode, error)
	Get(ctx context.Context, id string) (*promo.PromoCode, error)
	Create(ctx context.Context, p *promo.PromoCode) error
	Update(ctx context.Context, p *promo.PromoCode) error
	Delete(ctx context.Context, id string) error
}

type CatalogService interface {
	BrowseTests(ctx context.Context, search, category string) ([]catalog.Test, error)
	ViewTest(ctx context.Context, id string) (*catalog.Test, error)
	BrowsePanels(ctx context.Context, search string) ([]catalog.Panel, error)
	ViewPanel(ctx context.Context, id string) (*catalog.Panel, error)

	ListTests(ctx context.Context, f catalog.TestFilter) ([]catalog.Test, error)
	GetTest(ctx context.Context, id string) (*catalog.Test, error)
	CreateTest(ctx context.Context, t *catalog.Test) error
	UpdateTest(ctx context.Context, t *catalog.Test) error
	DeleteTest(ctx context.Context, id string) error

	ListPanels(ctx context.Context, f catalog.PanelFilter) ([]catalog.Panel, error)
	GetPanel(ctx context.Context, id string) (*catalog.Panel, error)
	CreatePanel(ctx context.Context, p *catalog.Panel) error
	UpdatePanel(ctx context.Context, p *catalog.Panel) error
	DeletePanel(ctx context.Context, id string) error
}

type CheckoutService interface {
	Submit(ctx context.Context, userID string, form checkout.Form) (*order.Order, error)
}

type OrderService interface {
	GetForUser(ctx context.Context, userID, id string) (*order.Order, error)
	ListForUser(ctx context.Context, userID string) ([]order.Order, error)
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	UpdateStatus(ctx context.Context, id string, to order.Status) (*order.Order, error)
	Delete(ctx context.Context, id string) error
}

type UserService interface {
	List(ctx context.Context, f user.Filter) ([]user.User, error)
	Get(ctx context.Context, id string) (*user.User, error)
	Create(ctx context.Context, in user.CreateInput) (*user.User, error)
	Update(ctx context.Context, id string, in user.UpdateInput) (*user.User, error)
	Delete(ctx context.Context, id string) error
}

type AuthService interface {
	Register(ctx context.Context, in user.CreateInput) (*auth.Token, error)
	Login(ctx context.Context, email, password string) (*auth.Token, error)
	RequestCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*auth.Token, error)
	Authenticate(token string) (auth.Principal, error)
}

type Authorizer interface {
	Allowed(role, path, method string) (bool, error)
}

type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Cart     CartService
	Promos   PromoService
	Catalog  CatalogService
	Checkout CheckoutService
	Orders   OrderService
	Users    UserService
	Auth     AuthService
	Authz    Authorizer

	Probes         []Probe
	AllowOrigins   []string
	RequestTimeout time.Duration
}

type API struct {
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cart     CartService
	promos   PromoService
	catalog  CatalogService
	checkout CheckoutService
	orders   OrderService
	users    UserService
	auth     AuthService
	authz    Authorizer
	probes   []Probe
	timeout  time.Duration
}

func New(d Deps) *API {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		logger:   logger,
		metrics:  d.Metrics,
		cart:     d.Cart,
		promos:   d.Promos,
		catalog:  d.Catalog,
		checkout: d.Checkout,
		orders:   d.Orders,
		users:    d.Users,
		auth:     d.Auth,
		authz:    d.Authz,
		probes:   d.Probes,
		timeout:  timeout,
	}
}

func (a *API) ctx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), a.timeout)
}

func NewRouter(d Deps) http.Handler {
	a := New(d)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationID)
	r.Use(AccessLog(a.logger))
	r.Use(Recover(a.logger))
	r.Use(CORS(d.AllowOrigins))
	r.Use(a.metrics.Middleware)

	r.Get("/health", a.Health)
	r.Get("/health/ready", a.Ready)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(a.Authenticate)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.Register)
			r.Post("/login", a.Login)
			r.Post("/otp/request", a.RequestCode)
			r.Post("/otp/verify", a.VerifyCode)
		})

		r.Get("/tests", a.BrowseTests)
		r.Get("/tests/{id}", a.ViewTest)
		r.Get("/panels", a.BrowsePanels)
		r.Get("/panels/{id}", a.ViewPanel)
		r.Post("/promo-codes/validate", a.ValidatePromo)

		r.Group(func(r chi.Router) {
			r.Use(a.RequireRole)

			r.Get("/me", a.Me)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", a.GetCart)
				r.Delete("/", a.ClearCart)
				r.Post("/items", a.AddCartItem)
				r.Delete("/items/{testId}", a.RemoveCartItem)
				r.Post("/promo", a.ApplyCartPromo)
				r.Delete("/promo", a.ClearCartPromo)
			})

			r.Post("/checkout", a.Checkout)

			r.Get("/orders", a.ListMyOrders)
			r.Get("/orders/{id}", a.GetMyOrder)

			r.Route("/admin", func(r chi.Router) {
				r.Route("/tests", func(r chi.Router) {
					r.Get("/", a.AdminListTests)
					r.Post("/", a.AdminCreateTest)
					r.Get("/{id}", a.AdminGetTest)
					r.Put("/{id}", a.AdminUpdateTest)
					r.Delete("/{id}", a.AdminDeleteTest)
				})
				r.Route("/panels", func(r chi.Router) {
					r.Get("/", a.AdminListPanels)
					r.Post("/", a.AdminCreatePanel)
					r.Get("/{id}", a.AdminGetPanel)
					r.Put("/{id}", a.AdminUpdatePanel)
					r.Delete("/{id}", a.AdminDeletePanel)
				})
				r.Route("/promo-codes", func(r chi.Router) {
					r.Get("/", a.AdminListPromos)
					r.Post("/", a.AdminCreatePromo)
					r.Get("/{id}", a.AdminGetPromo)
					r.Put("/{id}", a.AdminUpdatePromo)
					r.Delete("/{id}", a.AdminDeletePromo)
				})
				r.Route("/orders", func(r chi.Router) {
					r.Get("/", a.AdminListOrders)
					r.Get("/{id}", a.AdminGetOrder)
					r.Patch("/{id}/status", a.AdminUpdateOrderStatus)
					r.Delete("/{id}", a.AdminDeleteOrder)
				})
				r.Route("/users", func(r chi.Router) {
					r.Get("/", a.AdminListUsers)
					r.Post("/", a.AdminCreateUser)
					r.Get("/{id}", a.AdminGetUser)
					r.Put("/{id}", a.AdminUpdateUser)
					r.Delete("/{id}", a.AdminDeleteUser)
				})
			})
		})
	})

	return r
}
