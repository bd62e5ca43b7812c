package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && regexMatch(r.act, p.act)
`

// DefaultPolicies grants customers their own cart, checkout and orders.
// Admins inherit everything customers can do plus the admin API.
var DefaultPolicies = [][]string{
	{"customer", "/api/cart", "GET|DELETE"},
	{"customer", "/api/cart/*", "GET|POST|PUT|DELETE"},
	{"customer", "/api/checkout", "POST"},
	{"customer", "/api/orders", "GET"},
	{"customer", "/api/orders/:id", "GET"},
	{"customer", "/api/me", "GET"},
	{"admin", "/api/admin/*", "GET|POST|PUT|PATCH|DELETE"},
}

var defaultRoles = [][]string{
	{"admin", "customer"},
}

type Enforcer struct {
	e *casbin.Enforcer
}

func New() (*Enforcer, error) {
	return NewWithPolicies(DefaultPolicies)
}

func NewWithPolicies(policies [][]string) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("init enforcer: %w", err)
	}
	if len(policies) > 0 {
		if _, err := e.AddPolicies(policies); err != nil {
			return nil, fmt.Errorf("add policies: %w", err)
		}
	}
	if _, err := e.AddGroupingPolicies(defaultRoles); err != nil {
		return nil, fmt.Errorf("add roles: %w", err)
	}
	return &Enforcer{e: e}, nil
}

// Allowed reports whether role may perform method on path.
func (a *Enforcer) Allowed(role, path, method string) (bool, error) {
	if role == "" {
		return false, nil
	}
	ok, err := a.e.Enforce(role, path, method)
	if err != nil {
		return false, fmt.Errorf("rbac check failed: %w", err)
	}
	return ok, nil
}
