package api

import (
	"net/http"

	"github.com/vouchd/vouchd/internal/api/middleware"
	"github.com/vouchd/vouchd/internal/audit"
	"github.com/vouchd/vouchd/internal/core"
	"github.com/vouchd/vouchd/internal/service"
	"github.com/vouchd/vouchd/internal/tasks"
)

type Server struct {
	tokenService *service.TokenService
	store        core.RBACStore
	taskManager  *tasks.Manager
	auditor      core.Auditor
}

func NewServer(
	tokenService *service.TokenService,
	store core.RBACStore,
	taskManager *tasks.Manager,
	auditor core.Auditor,
) *Server {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &Server{
		tokenService: tokenService,
		store:        store,
		taskManager:  taskManager,
		auditor:      auditor,
	}
}

func (s *Server) Routes(adminSigningKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+InfoRoute, s.handleInfo)

	// token endpoint
	mux.HandleFunc("POST "+TokenRoute, s.handleToken)

	// RBAC admin surface, role-gated per method class
	rbacMux := http.NewServeMux()
	rbacMux.HandleFunc("POST "+ResourcesRoute, s.handleCreateResource)
	rbacMux.HandleFunc("DELETE "+ResourcesRoute, s.handleDeleteResource)
	rbacMux.HandleFunc("GET "+ResourcesRoute, s.handleGetResource)
	rbacMux.HandleFunc("POST "+ScopesRoute, s.handleCreateScope)
	rbacMux.HandleFunc("DELETE "+ScopesRoute, s.handleDeleteScope)
	rbacMux.HandleFunc("POST "+RolesRoute, s.handleCreateRole)
	rbacMux.HandleFunc("DELETE "+RolesRoute, s.handleDeleteRole)
	rbacMux.HandleFunc("POST "+RoleAssignmentsRoute, s.handleCreateRoleAssignment)
	rbacMux.HandleFunc("DELETE "+RoleAssignmentsRoute, s.handleDeleteRoleAssignment)
	rbacMux.HandleFunc("GET "+RoleAssignmentsRoute, s.handleGetRoleAssignments)
	rbacMux.HandleFunc("POST "+ScopeAssignmentsRoute, s.handleCreateScopeAssignment)
	rbacMux.HandleFunc("DELETE "+ScopeAssignmentsRoute, s.handleDeleteScopeAssignment)
	rbacMux.HandleFunc("GET "+PrincipalAccessRoute, s.handleGetPrincipalAccess)
	rbacMux.HandleFunc("DELETE "+PrincipalsRoute, s.handleDeletePrincipal)
	mux.Handle(RBACParent, middleware.RBACAuth(adminSigningKey)(rbacMux))

	// admin routes (tasks, audit)
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAuditEntries)
	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleTaskLogs)
	mux.Handle(AuditParent, middleware.AdminAuth(adminSigningKey)(adminMux))
	mux.Handle(TaskParent, middleware.AdminAuth(adminSigningKey)(adminMux))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
