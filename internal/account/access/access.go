// Package access implements the authorization decision engine: a static
// role × action × resource grant table queried per request. A grant carries a
// possession scope deciding whether the caller may act on any instance of a
// resource or only the one it owns.
package access

import "github.com/aussiebroadwan/accountd/internal/account/domain"

// Action is a mutation or read verb on a resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource names a protected resource type.
type Resource string

const (
	ResourceUser Resource = "user"
)

// Possession is the scope of a grant. Ordering matters: Any is strictly more
// permissive than Own, which is more permissive than None.
type Possession int

const (
	PossessionNone Possession = iota
	PossessionOwn
	PossessionAny
)

func (p Possession) String() string {
	switch p {
	case PossessionOwn:
		return "own"
	case PossessionAny:
		return "any"
	default:
		return "none"
	}
}

// Grant is one declarative {role, resource, action, possession} tuple.
// Grants are loaded once at process start and never mutated afterwards.
type Grant struct {
	Role       string
	Resource   Resource
	Action     Action
	Possession Possession
}

// Verdict is the ephemeral result of an authorization query. It is computed
// per request and never persisted.
type Verdict struct {
	Granted    bool       `json:"granted"`
	Possession Possession `json:"-"`
}

type grantKey struct {
	role     string
	resource Resource
	action   Action
}

// Engine answers Can queries against an immutable grant table.
type Engine struct {
	grants map[grantKey]Possession
}

// NewEngine indexes the grant table. When a role is granted the same action
// on the same resource more than once, the most permissive possession wins.
func NewEngine(grants []Grant) *Engine {
	indexed := make(map[grantKey]Possession, len(grants))
	for _, g := range grants {
		key := grantKey{role: g.Role, resource: g.Resource, action: g.Action}
		if g.Possession > indexed[key] {
			indexed[key] = g.Possession
		}
	}
	return &Engine{grants: indexed}
}

// Can evaluates the caller's full role set against the grant table. The
// verdict carries the most permissive possession found across all roles;
// callers holding both an "own" and an "any" grant get "any". No matching
// grant yields a denied verdict.
//
// Callers must derive roles from the verified token, never from a
// client-supplied flag.
func (e *Engine) Can(roles []string, action Action, resource Resource) Verdict {
	best := PossessionNone
	for _, role := range roles {
		p := e.grants[grantKey{role: role, resource: resource, action: action}]
		if p > best {
			best = p
		}
	}

	return Verdict{
		Granted:    best > PossessionNone,
		Possession: best,
	}
}

// DefaultGrants is accountd's grant table: admins act on any user record,
// authors manage only their own, and reading profiles is open to both.
func DefaultGrants() []Grant {
	return []Grant{
		{Role: domain.RoleAdmin, Resource: ResourceUser, Action: ActionCreate, Possession: PossessionAny},
		{Role: domain.RoleAdmin, Resource: ResourceUser, Action: ActionRead, Possession: PossessionAny},
		{Role: domain.RoleAdmin, Resource: ResourceUser, Action: ActionUpdate, Possession: PossessionAny},
		{Role: domain.RoleAdmin, Resource: ResourceUser, Action: ActionDelete, Possession: PossessionAny},

		{Role: domain.RoleAuthor, Resource: ResourceUser, Action: ActionRead, Possession: PossessionAny},
		{Role: domain.RoleAuthor, Resource: ResourceUser, Action: ActionUpdate, Possession: PossessionOwn},
		{Role: domain.RoleAuthor, Resource: ResourceUser, Action: ActionDelete, Possession: PossessionOwn},
	}
}
