package api

const (
	HealthCheckRoute = "/healthz"
	InfoRoute        = "/v1/info"

	TokenRoute = "/oauth2/token"

	RBACParent            = "/v1/rbac/"
	ResourcesRoute        = RBACParent + "resources"
	ScopesRoute           = RBACParent + "scopes"
	RolesRoute            = RBACParent + "roles"
	RoleAssignmentsRoute  = RBACParent + "roleassignments"
	ScopeAssignmentsRoute = RBACParent + "scopeassignments"
	PrincipalsRoute       = RBACParent + "principals"
	PrincipalAccessRoute  = RBACParent + "principals/access"

	AuditParent     = "/v1/audit/"
	ListAuditsRoute = AuditParent + "entries"

	TaskParent       = "/v1/tasks/"
	ListTasksRoute   = TaskParent
	TriggerTaskRoute = TaskParent + "{name}/trigger"
	LogsForTaskRoute = TaskParent + "{name}/logs"
)
