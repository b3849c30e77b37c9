package client

import (
	"context"

	"github.com/vouchd/vouchd/internal/api"
	"github.com/vouchd/vouchd/internal/core"
)

// RoleAssignmentListing is the server's answer to "who holds this role".
type RoleAssignmentListing struct {
	ResourceName string   `json:"resourceName"`
	RoleName     string   `json:"roleName"`
	PrincipalIDs []string `json:"principalIds"`
}

func (c *Client) CreateResource(ctx context.Context, resource string) (string, error) {
	return c.post(ctx, c.url().setPath(api.ResourcesRoute).build(),
		api.RBACPayload{ResourceName: resource}, nil)
}

func (c *Client) DeleteResource(ctx context.Context, resource string) (string, error) {
	return c.delete(ctx, c.url().setPath(api.ResourcesRoute).build(),
		api.RBACPayload{ResourceName: resource}, nil)
}

func (c *Client) GetResource(ctx context.Context, resource string) (*core.Resource, string, error) {
	var result core.Resource
	correlation, err := c.get(ctx, c.url().
		setPath(api.ResourcesRoute).
		addQueryParam("resourceName", resource).
		build(), &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

func (c *Client) CreateScope(ctx context.Context, resource, scope string) (string, error) {
	return c.post(ctx, c.url().setPath(api.ScopesRoute).build(),
		api.RBACPayload{ResourceName: resource, ScopeName: scope}, nil)
}

func (c *Client) DeleteScope(ctx context.Context, resource, scope string) (string, error) {
	return c.delete(ctx, c.url().setPath(api.ScopesRoute).build(),
		api.RBACPayload{ResourceName: resource, ScopeName: scope}, nil)
}

func (c *Client) CreateRole(ctx context.Context, resource, role string) (string, error) {
	return c.post(ctx, c.url().setPath(api.RolesRoute).build(),
		api.RBACPayload{ResourceName: resource, RoleName: role}, nil)
}

func (c *Client) DeleteRole(ctx context.Context, resource, role string) (string, error) {
	return c.delete(ctx, c.url().setPath(api.RolesRoute).build(),
		api.RBACPayload{ResourceName: resource, RoleName: role}, nil)
}

func (c *Client) CreateRoleAssignment(ctx context.Context, resource, role, principal string) (string, error) {
	return c.post(ctx, c.url().setPath(api.RoleAssignmentsRoute).build(),
		api.RBACPayload{ResourceName: resource, RoleName: role, PrincipalID: principal}, nil)
}

func (c *Client) DeleteRoleAssignment(ctx context.Context, resource, role, principal string) (string, error) {
	return c.delete(ctx, c.url().setPath(api.RoleAssignmentsRoute).build(),
		api.RBACPayload{ResourceName: resource, RoleName: role, PrincipalID: principal}, nil)
}

func (c *Client) GetRoleAssignments(ctx context.Context, resource, role string) (*RoleAssignmentListing, string, error) {
	var result RoleAssignmentListing
	correlation, err := c.get(ctx, c.url().
		setPath(api.RoleAssignmentsRoute).
		addQueryParam("resourceName", resource).
		addQueryParam("roleName", role).
		build(), &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

func (c *Client) CreateScopeAssignment(ctx context.Context, resource, scope, principal string) (string, error) {
	return c.post(ctx, c.url().setPath(api.ScopeAssignmentsRoute).build(),
		api.RBACPayload{ResourceName: resource, ScopeName: scope, PrincipalID: principal}, nil)
}

func (c *Client) DeleteScopeAssignment(ctx context.Context, resource, scope, principal string) (string, error) {
	return c.delete(ctx, c.url().setPath(api.ScopeAssignmentsRoute).build(),
		api.RBACPayload{ResourceName: resource, ScopeName: scope, PrincipalID: principal}, nil)
}

// GetPrincipalAccess returns the scopes and roles a principal holds on a
// resource. A non-empty scope narrows the result to that scope.
func (c *Client) GetPrincipalAccess(ctx context.Context, resource, principal, scope string) (*core.PrincipalAccess, string, error) {
	ub := c.url().
		setPath(api.PrincipalAccessRoute).
		addQueryParam("resourceName", resource).
		addQueryParam("principalId", principal)
	if scope != "" {
		ub = ub.addQueryParam("scopeName", scope)
	}
	var result core.PrincipalAccess
	correlation, err := c.get(ctx, ub.build(), &result)
	if err != nil {
		return nil, correlation, err
	}
	return &result, correlation, nil
}

// DeletePrincipal removes every assignment mentioning the principal.
func (c *Client) DeletePrincipal(ctx context.Context, principal string) (string, error) {
	return c.delete(ctx, c.url().setPath(api.PrincipalsRoute).build(),
		api.RBACPayload{PrincipalID: principal}, nil)
}
