package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vouchd/vouchd/internal/api/middleware"
	"github.com/vouchd/vouchd/internal/api/presenter"
	"github.com/vouchd/vouchd/internal/core"
	"github.com/vouchd/vouchd/internal/names"
)

// RBACPayload is the request shape shared by all RBAC admin mutations.
type RBACPayload struct {
	ResourceName string `json:"resourceName"`
	ScopeName    string `json:"scopeName,omitempty"`
	RoleName     string `json:"roleName,omitempty"`
	PrincipalID  string `json:"principalId,omitempty"`
}

// storeError maps store error kinds to HTTP statuses.
func storeError(w http.ResponseWriter, r *http.Request, err error, short string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	presenter.Error(w, r, short+": "+err.Error(), status)
}

// auditMutation records an admin mutation on the RBAC store.
func (s *Server) auditMutation(ctx context.Context, action string, payload RBACPayload, opErr error) {
	entry := core.AuditEntry{
		ID:          middleware.CorrelationCtx(ctx),
		Time:        time.Now(),
		Action:      action,
		Resource:    payload.ResourceName,
		Scope:       payload.ScopeName,
		Role:        payload.RoleName,
		PrincipalID: payload.PrincipalID,
		Granted:     opErr == nil,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	if err := s.auditor.Log(entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("action", action).Msg("failed to write audit log entry")
	}
}

// decodeRBACPayload parses and rejects malformed admin payloads in one place.
func decodeRBACPayload(w http.ResponseWriter, r *http.Request) (RBACPayload, bool) {
	var payload RBACPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return payload, false
	}
	return payload, true
}

// --- resources ---

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := names.ValidateResource(payload.ResourceName); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.CreateResource(r.Context(), payload.ResourceName)
	s.auditMutation(r.Context(), "rbac.resource.create", payload, err)
	if err != nil {
		storeError(w, r, err, "creating resource failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "created"}, http.StatusCreated)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := names.ValidateResource(payload.ResourceName); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.DeleteResource(r.Context(), payload.ResourceName)
	s.auditMutation(r.Context(), "rbac.resource.delete", payload, err)
	if err != nil {
		storeError(w, r, err, "deleting resource failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "deleted"}, http.StatusOK)
}

func (s *Server) handleGetResource(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resourceName")
	if err := names.ValidateResource(resource); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	result, err := s.store.GetResource(r.Context(), resource)
	if err != nil {
		storeError(w, r, err, "getting resource failed")
		return
	}
	presenter.JSON(w, r, result, http.StatusOK)
}

// --- scopes ---

func (s *Server) handleCreateScope(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateResourceScope(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.CreateScope(r.Context(), payload.ResourceName, payload.ScopeName)
	s.auditMutation(r.Context(), "rbac.scope.create", payload, err)
	if err != nil {
		storeError(w, r, err, "creating scope failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "created"}, http.StatusCreated)
}

func (s *Server) handleDeleteScope(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateResourceScope(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.DeleteScope(r.Context(), payload.ResourceName, payload.ScopeName)
	s.auditMutation(r.Context(), "rbac.scope.delete", payload, err)
	if err != nil {
		storeError(w, r, err, "deleting scope failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "deleted"}, http.StatusOK)
}

// --- roles ---

func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateResourceRole(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.CreateRole(r.Context(), payload.ResourceName, payload.RoleName)
	s.auditMutation(r.Context(), "rbac.role.create", payload, err)
	if err != nil {
		storeError(w, r, err, "creating role failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "created"}, http.StatusCreated)
}

func (s *Server) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateResourceRole(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.DeleteRole(r.Context(), payload.ResourceName, payload.RoleName)
	s.auditMutation(r.Context(), "rbac.role.delete", payload, err)
	if err != nil {
		storeError(w, r, err, "deleting role failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "deleted"}, http.StatusOK)
}

// --- assignments ---

func (s *Server) handleCreateRoleAssignment(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateRoleAssignment(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.CreateRoleAssignment(r.Context(), payload.ResourceName, payload.RoleName, payload.PrincipalID)
	s.auditMutation(r.Context(), "rbac.roleassignment.create", payload, err)
	if err != nil {
		storeError(w, r, err, "creating role assignment failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "created"}, http.StatusCreated)
}

func (s *Server) handleDeleteRoleAssignment(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateRoleAssignment(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.DeleteRoleAssignment(r.Context(), payload.ResourceName, payload.RoleName, payload.PrincipalID)
	s.auditMutation(r.Context(), "rbac.roleassignment.delete", payload, err)
	if err != nil {
		storeError(w, r, err, "deleting role assignment failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "deleted"}, http.StatusOK)
}

func (s *Server) handleGetRoleAssignments(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resourceName")
	role := r.URL.Query().Get("roleName")
	if err := names.ValidateResource(resource); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := names.ValidateRole(role); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	principals, err := s.store.GetPrincipalsForRole(r.Context(), resource, role)
	if err != nil {
		storeError(w, r, err, "listing role assignments failed")
		return
	}
	presenter.JSON(w, r, map[string]any{
		"resourceName": resource,
		"roleName":     role,
		"principalIds": principals,
	}, http.StatusOK)
}

func (s *Server) handleCreateScopeAssignment(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateScopeAssignment(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.CreateScopeAssignment(r.Context(), payload.ResourceName, payload.ScopeName, payload.PrincipalID)
	s.auditMutation(r.Context(), "rbac.scopeassignment.create", payload, err)
	if err != nil {
		storeError(w, r, err, "creating scope assignment failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "created"}, http.StatusCreated)
}

func (s *Server) handleDeleteScopeAssignment(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := validateScopeAssignment(payload); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.DeleteScopeAssignment(r.Context(), payload.ResourceName, payload.ScopeName, payload.PrincipalID)
	s.auditMutation(r.Context(), "rbac.scopeassignment.delete", payload, err)
	if err != nil {
		storeError(w, r, err, "deleting scope assignment failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "deleted"}, http.StatusOK)
}

// --- principals ---

func (s *Server) handleGetPrincipalAccess(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	resource := query.Get("resourceName")
	principal := query.Get("principalId")
	scope := query.Get("scopeName")

	if err := names.ValidateResource(resource); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := names.ValidatePrincipal(principal); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if scope != "" {
		if err := names.ValidateScope(scope); err != nil {
			presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	access, err := s.store.GetPrincipalAccess(r.Context(), resource, principal, scope)
	if err != nil {
		storeError(w, r, err, "getting principal access failed")
		return
	}
	presenter.JSON(w, r, access, http.StatusOK)
}

func (s *Server) handleDeletePrincipal(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeRBACPayload(w, r)
	if !ok {
		return
	}
	if err := names.ValidatePrincipal(payload.PrincipalID); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	err := s.store.DeletePrincipal(r.Context(), payload.PrincipalID)
	s.auditMutation(r.Context(), "rbac.principal.delete", payload, err)
	if err != nil {
		storeError(w, r, err, "deleting principal failed")
		return
	}
	presenter.JSON(w, r, map[string]string{"status": "deleted"}, http.StatusOK)
}

// --- payload validation helpers ---

func validateResourceScope(p RBACPayload) error {
	if err := names.ValidateResource(p.ResourceName); err != nil {
		return err
	}
	return names.ValidateScope(p.ScopeName)
}

func validateResourceRole(p RBACPayload) error {
	if err := names.ValidateResource(p.ResourceName); err != nil {
		return err
	}
	return names.ValidateRole(p.RoleName)
}

func validateRoleAssignment(p RBACPayload) error {
	if err := validateResourceRole(p); err != nil {
		return err
	}
	return names.ValidatePrincipal(p.PrincipalID)
}

func validateScopeAssignment(p RBACPayload) error {
	if err := validateResourceScope(p); err != nil {
		return err
	}
	return names.ValidatePrincipal(p.PrincipalID)
}
