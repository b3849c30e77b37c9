// Package rbac implements the authorization store: resources, scopes, roles
// and principal assignments in a single table keyed by EntityName (partition)
// and SubjectName (sort). Assignments are mirrored record pairs so that both
// "what does principal X hold" and "who holds Y on Z" are one prefix query.
package rbac

import "strings"

// Key prefixes. Names never contain '#', so prefixes compose unambiguously.
const (
	resourcePrefix  = "RESOURCE#"
	scopePrefix     = "SCOPE#"
	rolePrefix      = "ROLE#"
	principalPrefix = "PRINCIPAL#"
)

// Item kinds, stored on every record to disambiguate prefix queries.
const (
	kindResource        = "resource"
	kindScope           = "scope"
	kindRole            = "role"
	kindRoleAssignment  = "role-assignment"
	kindScopeAssignment = "scope-assignment"
)

// record is the generic single-table item shape. The key attributes are
// derived from the name attributes by the item constructors below.
type record struct {
	EntityName  string `json:"EntityName"`
	SubjectName string `json:"SubjectName"`
	Kind        string `json:"Kind"`

	ResourceName string `json:"ResourceName,omitempty"`
	ScopeName    string `json:"ScopeName,omitempty"`
	RoleName     string `json:"RoleName,omitempty"`
	PrincipalID  string `json:"PrincipalId,omitempty"`
}

func resourceKey(resource string) string {
	return resourcePrefix + resource
}

func principalKey(principal string) string {
	return principalPrefix + principal
}

func newResourceItem(resource string) record {
	return record{
		EntityName:   resourceKey(resource),
		SubjectName:  resourceKey(resource),
		Kind:         kindResource,
		ResourceName: resource,
	}
}

func newScopeItem(resource, scope string) record {
	return record{
		EntityName:   resourceKey(resource),
		SubjectName:  scopePrefix + scope,
		Kind:         kindScope,
		ResourceName: resource,
		ScopeName:    scope,
	}
}

func newRoleItem(resource, role string) record {
	return record{
		EntityName:   resourceKey(resource),
		SubjectName:  rolePrefix + role,
		Kind:         kindRole,
		ResourceName: resource,
		RoleName:     role,
	}
}

// newRoleAssignmentByPrincipal supports "what roles does principal X have".
func newRoleAssignmentByPrincipal(resource, role, principal string) record {
	return record{
		EntityName:   principalKey(principal),
		SubjectName:  resourceKey(resource) + "#" + rolePrefix + role,
		Kind:         kindRoleAssignment,
		ResourceName: resource,
		RoleName:     role,
		PrincipalID:  principal,
	}
}

// newRoleAssignmentByRole supports "who has role Y on resource Z".
func newRoleAssignmentByRole(resource, role, principal string) record {
	return record{
		EntityName:   resourceKey(resource),
		SubjectName:  rolePrefix + role + "#" + principalPrefix + principal,
		Kind:         kindRoleAssignment,
		ResourceName: resource,
		RoleName:     role,
		PrincipalID:  principal,
	}
}

func newScopeAssignmentByPrincipal(resource, scope, principal string) record {
	return record{
		EntityName:   principalKey(principal),
		SubjectName:  resourceKey(resource) + "#" + scopePrefix + scope,
		Kind:         kindScopeAssignment,
		ResourceName: resource,
		ScopeName:    scope,
		PrincipalID:  principal,
	}
}

func newScopeAssignmentByScope(resource, scope, principal string) record {
	return record{
		EntityName:   resourceKey(resource),
		SubjectName:  scopePrefix + scope + "#" + principalPrefix + principal,
		Kind:         kindScopeAssignment,
		ResourceName: resource,
		ScopeName:    scope,
		PrincipalID:  principal,
	}
}

// mirror derives the counterpart record of an assignment: the same
// principal/role/scope/resource values under the other key shape. Non
// assignment records mirror to themselves.
func (r record) mirror() record {
	switch r.Kind {
	case kindRoleAssignment:
		if strings.HasPrefix(r.EntityName, principalPrefix) {
			return newRoleAssignmentByRole(r.ResourceName, r.RoleName, r.PrincipalID)
		}
		return newRoleAssignmentByPrincipal(r.ResourceName, r.RoleName, r.PrincipalID)
	case kindScopeAssignment:
		if strings.HasPrefix(r.EntityName, principalPrefix) {
			return newScopeAssignmentByScope(r.ResourceName, r.ScopeName, r.PrincipalID)
		}
		return newScopeAssignmentByPrincipal(r.ResourceName, r.ScopeName, r.PrincipalID)
	default:
		return r
	}
}

// isAssignment reports whether the record is one half of a mirrored pair.
func (r record) isAssignment() bool {
	return r.Kind == kindRoleAssignment || r.Kind == kindScopeAssignment
}

// parentKeys lists the table keys an assignment depends on: the resource
// item and the scope/role item it grants. An assignment whose parents are
// gone is a cascade leftover, not a grant.
func (r record) parentKeys() [][2]string {
	rk := resourceKey(r.ResourceName)
	keys := [][2]string{{rk, rk}}
	switch r.Kind {
	case kindRoleAssignment:
		keys = append(keys, [2]string{rk, rolePrefix + r.RoleName})
	case kindScopeAssignment:
		keys = append(keys, [2]string{rk, scopePrefix + r.ScopeName})
	}
	return keys
}
