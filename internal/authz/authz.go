// Package authz resolves actor capabilities through a casbin RBAC model:
// actors hold roles and roles hold capabilities.
package authz

import (
	"fmt"
	"log"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/beesaferoot/lotassign/domain"
)

const rbacModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Built-in roles.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleAccountant = "accountant"
	RoleViewer     = "viewer"
)

// DefaultGrants maps each built-in role to its capabilities.
var DefaultGrants = map[string][]domain.Capability{
	RoleOwner:      {domain.CanEditProperties, domain.CanManageTenants, domain.CanViewFinances},
	RoleManager:    {domain.CanEditProperties, domain.CanManageTenants},
	RoleAccountant: {domain.CanManageTenants, domain.CanViewFinances},
	RoleViewer:     {},
}

// Enforcer answers capability checks. Safe for concurrent use.
type Enforcer struct {
	e *casbin.SyncedEnforcer
}

// New creates an Enforcer seeded with DefaultGrants. An actor named after a
// role holds that role's capabilities.
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RBAC model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize RBAC enforcer: %w", err)
	}

	a := &Enforcer{e: e}
	for role, caps := range DefaultGrants {
		for _, c := range caps {
			if err := a.Grant(role, c); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

// Grant gives capability c to role.
func (a *Enforcer) Grant(role string, c domain.Capability) error {
	if _, err := a.e.AddPolicy(role, string(c)); err != nil {
		return fmt.Errorf("failed to grant %s to %s: %w", c, role, err)
	}
	return nil
}

// AssignRole gives actor the capabilities of role.
func (a *Enforcer) AssignRole(actor domain.Actor, role string) error {
	if _, err := a.e.AddGroupingPolicy(string(actor), role); err != nil {
		return fmt.Errorf("failed to assign role %s to %s: %w", role, actor, err)
	}
	return nil
}

// LoadAssignments reads a comma-separated list of actor:role pairs, e.g.
// "alice:owner,bob:accountant".
func (a *Enforcer) LoadAssignments(spec string) error {
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		actor, role, ok := strings.Cut(pair, ":")
		if !ok || actor == "" || role == "" {
			return fmt.Errorf("invalid role assignment %q, want actor:role", pair)
		}
		if err := a.AssignRole(domain.Actor(actor), role); err != nil {
			return err
		}
	}
	return nil
}

// RolesFor lists the roles assigned to actor.
func (a *Enforcer) RolesFor(actor domain.Actor) ([]string, error) {
	roles, err := a.e.GetRolesForUser(string(actor))
	if err != nil {
		return nil, fmt.Errorf("failed to get roles for %s: %w", actor, err)
	}
	return roles, nil
}

// HasCapability reports whether actor holds c. Enforcement errors deny.
func (a *Enforcer) HasCapability(actor domain.Actor, c domain.Capability) bool {
	if actor == "" {
		return false
	}
	allowed, err := a.e.Enforce(string(actor), string(c))
	if err != nil {
		log.Printf("authz: permission check for %s/%s failed: %v", actor, c, err)
		return false
	}
	return allowed
}
