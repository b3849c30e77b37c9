package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vouchd/vouchd/internal/core"
)

// repairableStore is implemented by both backends; the property tests below
// run against each.
type repairableStore interface {
	core.RBACStore
	RepairMirrors(ctx context.Context) (int, error)
}

func runStoreTests(t *testing.T, newStore func(t *testing.T) repairableStore) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s.CreateResource(ctx, "api://amber"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "rbac"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "admin"))
		mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))
		mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.create"))

		got, err := s.GetResource(ctx, "api://amber")
		if err != nil {
			t.Fatalf("GetResource() error = %v", err)
		}
		want := &core.Resource{
			ResourceName: "api://amber",
			ScopeNames:   []string{"admin", "rbac"},
			RoleNames:    []string{"rbac.create", "rbac.read"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetResource() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("create child requires resource", func(t *testing.T) {
		s := newStore(t)
		if err := s.CreateScope(ctx, "api://ghost", "rbac"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("CreateScope() error = %v, want core.ErrNotFound", err)
		}
		if err := s.CreateRole(ctx, "api://ghost", "rbac.read"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("CreateRole() error = %v, want core.ErrNotFound", err)
		}
	})

	t.Run("assignment requires role", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s.CreateResource(ctx, "api://amber"))
		err := s.CreateRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("CreateRoleAssignment() error = %v, want core.ErrNotFound", err)
		}
	})

	t.Run("assignment symmetry", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s.CreateResource(ctx, "api://amber"))
		mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))
		mustCreate(t, s.CreateRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice"))

		roles, err := s.GetRolesForPrincipal(ctx, "arn:test:user/alice", "api://amber")
		if err != nil {
			t.Fatalf("GetRolesForPrincipal() error = %v", err)
		}
		if diff := cmp.Diff([]string{"rbac.read"}, roles); diff != "" {
			t.Errorf("roles mismatch (-want +got):\n%s", diff)
		}

		principals, err := s.GetPrincipalsForRole(ctx, "api://amber", "rbac.read")
		if err != nil {
			t.Fatalf("GetPrincipalsForRole() error = %v", err)
		}
		if diff := cmp.Diff([]string{"arn:test:user/alice"}, principals); diff != "" {
			t.Errorf("principals mismatch (-want +got):\n%s", diff)
		}

		// deleting removes it from both views
		if err := s.DeleteRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice"); err != nil {
			t.Fatalf("DeleteRoleAssignment() error = %v", err)
		}
		roles, _ = s.GetRolesForPrincipal(ctx, "arn:test:user/alice", "api://amber")
		if len(roles) != 0 {
			t.Errorf("roles after delete = %v, want empty", roles)
		}
		principals, _ = s.GetPrincipalsForRole(ctx, "api://amber", "rbac.read")
		if len(principals) != 0 {
			t.Errorf("principals after delete = %v, want empty", principals)
		}
	})

	t.Run("principal access with scope filter", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s.CreateResource(ctx, "api://amber"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "rbac"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "admin"))
		mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))
		mustCreate(t, s.CreateScopeAssignment(ctx, "api://amber", "rbac", "arn:test:user/alice"))
		mustCreate(t, s.CreateScopeAssignment(ctx, "api://amber", "admin", "arn:test:user/alice"))
		mustCreate(t, s.CreateRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice"))

		got, err := s.GetPrincipalAccess(ctx, "api://amber", "arn:test:user/alice", "rbac")
		if err != nil {
			t.Fatalf("GetPrincipalAccess() error = %v", err)
		}
		want := &core.PrincipalAccess{
			PrincipalID:  "arn:test:user/alice",
			ResourceName: "api://amber",
			ScopeNames:   []string{"rbac"},
			RoleNames:    []string{"rbac.read"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetPrincipalAccess() mismatch (-want +got):\n%s", diff)
		}

		// unfiltered includes both scopes
		got, err = s.GetPrincipalAccess(ctx, "api://amber", "arn:test:user/alice", "")
		if err != nil {
			t.Fatalf("GetPrincipalAccess() error = %v", err)
		}
		if diff := cmp.Diff([]string{"admin", "rbac"}, got.ScopeNames); diff != "" {
			t.Errorf("unfiltered scopes mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("resource delete cascades", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s.CreateResource(ctx, "api://amber"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "rbac"))
		mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))
		mustCreate(t, s.CreateRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice"))
		mustCreate(t, s.CreateScopeAssignment(ctx, "api://amber", "rbac", "arn:test:user/alice"))

		if err := s.DeleteResource(ctx, "api://amber"); err != nil {
			t.Fatalf("DeleteResource() error = %v", err)
		}

		if _, err := s.GetResource(ctx, "api://amber"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("GetResource() after delete error = %v, want core.ErrNotFound", err)
		}
		access, err := s.GetPrincipalAccess(ctx, "api://amber", "arn:test:user/alice", "")
		if err != nil {
			t.Fatalf("GetPrincipalAccess() error = %v", err)
		}
		if len(access.ScopeNames) != 0 || len(access.RoleNames) != 0 {
			t.Errorf("principal still holds grants after cascade: %+v", access)
		}
		principals, _ := s.GetPrincipalsForRole(ctx, "api://amber", "rbac.read")
		if len(principals) != 0 {
			t.Errorf("role still assigned after cascade: %v", principals)
		}
	})

	t.Run("scope delete cascades assignments only for that scope", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s.CreateResource(ctx, "api://amber"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "rbac"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "admin"))
		mustCreate(t, s.CreateScopeAssignment(ctx, "api://amber", "rbac", "arn:test:user/alice"))
		mustCreate(t, s.CreateScopeAssignment(ctx, "api://amber", "admin", "arn:test:user/alice"))

		if err := s.DeleteScope(ctx, "api://amber", "rbac"); err != nil {
			t.Fatalf("DeleteScope() error = %v", err)
		}

		access, err := s.GetPrincipalAccess(ctx, "api://amber", "arn:test:user/alice", "")
		if err != nil {
			t.Fatalf("GetPrincipalAccess() error = %v", err)
		}
		if diff := cmp.Diff([]string{"admin"}, access.ScopeNames); diff != "" {
			t.Errorf("scopes after cascade mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("principal delete cascades across resources", func(t *testing.T) {
		s := newStore(t)
		for _, res := range []string{"api://amber", "api://teal"} {
			mustCreate(t, s.CreateResource(ctx, res))
			mustCreate(t, s.CreateRole(ctx, res, "rbac.read"))
			mustCreate(t, s.CreateRoleAssignment(ctx, res, "rbac.read", "arn:test:user/alice"))
			mustCreate(t, s.CreateRoleAssignment(ctx, res, "rbac.read", "arn:test:user/bob"))
		}

		if err := s.DeletePrincipal(ctx, "arn:test:user/alice"); err != nil {
			t.Fatalf("DeletePrincipal() error = %v", err)
		}

		for _, res := range []string{"api://amber", "api://teal"} {
			roles, _ := s.GetRolesForPrincipal(ctx, "arn:test:user/alice", res)
			if len(roles) != 0 {
				t.Errorf("alice still has roles on %s: %v", res, roles)
			}
			principals, _ := s.GetPrincipalsForRole(ctx, res, "rbac.read")
			if diff := cmp.Diff([]string{"arn:test:user/bob"}, principals); diff != "" {
				t.Errorf("principals on %s mismatch (-want +got):\n%s", res, diff)
			}
		}
	})

	t.Run("deletes are idempotent", func(t *testing.T) {
		s := newStore(t)
		mustCreate(t, s.CreateResource(ctx, "api://amber"))
		mustCreate(t, s.CreateScope(ctx, "api://amber", "rbac"))

		for i := 0; i < 2; i++ {
			if err := s.DeleteScope(ctx, "api://amber", "rbac"); err != nil {
				t.Fatalf("DeleteScope() attempt %d error = %v", i+1, err)
			}
			if err := s.DeleteResource(ctx, "api://amber"); err != nil {
				t.Fatalf("DeleteResource() attempt %d error = %v", i+1, err)
			}
			if err := s.DeleteRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice"); err != nil {
				t.Fatalf("DeleteRoleAssignment() attempt %d error = %v", i+1, err)
			}
			if err := s.DeletePrincipal(ctx, "arn:test:user/alice"); err != nil {
				t.Fatalf("DeletePrincipal() attempt %d error = %v", i+1, err)
			}
		}
	})
}

func mustCreate(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) repairableStore {
		return NewMemoryStore()
	})
}

func TestDynamoStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) repairableStore {
		return NewDynamoStoreWithClient(newFakeDynamo(), "vouchd-rbac")
	})
}

func TestMemoryStoreRepairMirrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	mustCreate(t, s.CreateResource(ctx, "api://amber"))
	mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))

	// simulate a crash after the by-principal write: only one half exists
	s.mu.Lock()
	s.putLocked(newRoleAssignmentByPrincipal("api://amber", "rbac.read", "arn:test:user/alice"))
	s.mu.Unlock()

	principals, _ := s.GetPrincipalsForRole(ctx, "api://amber", "rbac.read")
	if len(principals) != 0 {
		t.Fatalf("by-role view should be empty before repair, got %v", principals)
	}

	repaired, err := s.RepairMirrors(ctx)
	if err != nil {
		t.Fatalf("RepairMirrors() error = %v", err)
	}
	if repaired != 1 {
		t.Errorf("RepairMirrors() = %d, want 1", repaired)
	}

	principals, _ = s.GetPrincipalsForRole(ctx, "api://amber", "rbac.read")
	if diff := cmp.Diff([]string{"arn:test:user/alice"}, principals); diff != "" {
		t.Errorf("principals after repair mismatch (-want +got):\n%s", diff)
	}

	// a second run finds nothing to do
	repaired, err = s.RepairMirrors(ctx)
	if err != nil || repaired != 0 {
		t.Errorf("second RepairMirrors() = (%d, %v), want (0, nil)", repaired, err)
	}
}

func TestMemoryStoreRepairDoesNotResurrectRevokedGrants(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	mustCreate(t, s.CreateResource(ctx, "api://amber"))
	mustCreate(t, s.CreateScope(ctx, "api://amber", "rbac"))

	// crash after the by-principal write, then the scope is deleted: the
	// cascade only queries the resource partition so the half survives it
	s.mu.Lock()
	s.putLocked(newScopeAssignmentByPrincipal("api://amber", "rbac", "arn:test:user/alice"))
	s.mu.Unlock()

	if err := s.DeleteScope(ctx, "api://amber", "rbac"); err != nil {
		t.Fatalf("DeleteScope() error = %v", err)
	}

	repaired, err := s.RepairMirrors(ctx)
	if err != nil {
		t.Fatalf("RepairMirrors() error = %v", err)
	}
	if repaired != 1 {
		t.Errorf("RepairMirrors() = %d, want 1", repaired)
	}

	access, err := s.GetPrincipalAccess(ctx, "api://amber", "arn:test:user/alice", "")
	if err != nil {
		t.Fatalf("GetPrincipalAccess() error = %v", err)
	}
	if len(access.ScopeNames) != 0 {
		t.Errorf("principal still holds scopes on a deleted scope: %v", access.ScopeNames)
	}

	mirror := newScopeAssignmentByPrincipal("api://amber", "rbac", "arn:test:user/alice").mirror()
	s.mu.Lock()
	_, resurrected := s.getLocked(mirror.EntityName, mirror.SubjectName)
	s.mu.Unlock()
	if resurrected {
		t.Error("repair recreated the resource-side mirror for a deleted scope")
	}

	repaired, err = s.RepairMirrors(ctx)
	if err != nil || repaired != 0 {
		t.Errorf("second RepairMirrors() = (%d, %v), want (0, nil)", repaired, err)
	}
}
