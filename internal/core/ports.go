package core

import "context"

// IdentityVerifier proves which principal signed a relayed "who am I"
// request. Implementations: the STS GetCallerIdentity relay, static stubs
// for tests.
type IdentityVerifier interface {
	// Resolve relays the caller-supplied headers to the identity service in
	// the given region and returns the verified principal identifier.
	Resolve(ctx context.Context, region string, headers map[string]string) (string, error)
}

// RBACStore is the authorization data store: resources, scopes, roles and
// their principal assignments. Assignments are materialized as mirrored
// record pairs so both query directions are a single key-prefix query.
type RBACStore interface {
	CreateResource(ctx context.Context, resource string) error
	DeleteResource(ctx context.Context, resource string) error
	GetResource(ctx context.Context, resource string) (*Resource, error)

	CreateScope(ctx context.Context, resource, scope string) error
	DeleteScope(ctx context.Context, resource, scope string) error

	CreateRole(ctx context.Context, resource, role string) error
	DeleteRole(ctx context.Context, resource, role string) error

	CreateRoleAssignment(ctx context.Context, resource, role, principal string) error
	DeleteRoleAssignment(ctx context.Context, resource, role, principal string) error

	CreateScopeAssignment(ctx context.Context, resource, scope, principal string) error
	DeleteScopeAssignment(ctx context.Context, resource, scope, principal string) error

	// GetPrincipalAccess returns the scopes and roles the principal holds on
	// the resource. A non-empty scope narrows the scope list to that scope.
	GetPrincipalAccess(ctx context.Context, resource, principal, scope string) (*PrincipalAccess, error)

	GetPrincipalsForRole(ctx context.Context, resource, role string) ([]string, error)
	GetRolesForPrincipal(ctx context.Context, principal, resource string) ([]string, error)

	// DeletePrincipal removes every role and scope assignment mentioning
	// the principal, across all resources.
	DeletePrincipal(ctx context.Context, principal string) error
}

// TokenEncoder mints a signed access token for a verified principal.
// Encoders are provisioned per region so signing keys can be rotated
// independently.
type TokenEncoder interface {
	Encode(ctx context.Context, audience, principalID string, scopes, roles []string) (*AccessToken, error)
}

type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}
