package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vouchd/vouchd/internal/core"
)

var _ core.RBACStore = (*MemoryStore)(nil)

// MemoryStore keeps the same single-table layout as DynamoStore in a map of
// partitions. It backs tests and the `--store memory` local mode.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]map[string]record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string]map[string]record),
	}
}

func (s *MemoryStore) CreateResource(_ context.Context, resource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(newResourceItem(resource))
	return nil
}

func (s *MemoryStore) DeleteResource(_ context.Context, resource string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Resource record first, then both child groups with their mirrors.
	s.deleteLocked(resourceKey(resource), resourceKey(resource))
	children := append(
		s.queryLocked(resourceKey(resource), scopePrefix),
		s.queryLocked(resourceKey(resource), rolePrefix)...,
	)
	for _, r := range withMirrors(children) {
		s.deleteLocked(r.EntityName, r.SubjectName)
	}
	return nil
}

func (s *MemoryStore) GetResource(_ context.Context, resource string) (*core.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.getLocked(resourceKey(resource), resourceKey(resource)); !ok {
		return nil, fmt.Errorf("%w: resource %q", core.ErrNotFound, resource)
	}
	out := &core.Resource{
		ResourceName: resource,
		ScopeNames:   []string{},
		RoleNames:    []string{},
	}
	for _, r := range s.queryLocked(resourceKey(resource), scopePrefix) {
		if r.Kind == kindScope {
			out.ScopeNames = append(out.ScopeNames, r.ScopeName)
		}
	}
	for _, r := range s.queryLocked(resourceKey(resource), rolePrefix) {
		if r.Kind == kindRole {
			out.RoleNames = append(out.RoleNames, r.RoleName)
		}
	}
	sort.Strings(out.ScopeNames)
	sort.Strings(out.RoleNames)
	return out, nil
}

func (s *MemoryStore) CreateScope(_ context.Context, resource, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireResourceLocked(resource); err != nil {
		return err
	}
	s.putLocked(newScopeItem(resource, scope))
	return nil
}

func (s *MemoryStore) DeleteScope(_ context.Context, resource, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(resourceKey(resource), scopePrefix+scope)
	assignments := s.queryLocked(resourceKey(resource), scopePrefix+scope+"#"+principalPrefix)
	for _, r := range withMirrors(assignments) {
		s.deleteLocked(r.EntityName, r.SubjectName)
	}
	return nil
}

func (s *MemoryStore) CreateRole(_ context.Context, resource, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireResourceLocked(resource); err != nil {
		return err
	}
	s.putLocked(newRoleItem(resource, role))
	return nil
}

func (s *MemoryStore) DeleteRole(_ context.Context, resource, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(resourceKey(resource), rolePrefix+role)
	assignments := s.queryLocked(resourceKey(resource), rolePrefix+role+"#"+principalPrefix)
	for _, r := range withMirrors(assignments) {
		s.deleteLocked(r.EntityName, r.SubjectName)
	}
	return nil
}

func (s *MemoryStore) CreateRoleAssignment(_ context.Context, resource, role, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireResourceLocked(resource); err != nil {
		return err
	}
	if _, ok := s.getLocked(resourceKey(resource), rolePrefix+role); !ok {
		return fmt.Errorf("%w: role %q on resource %q", core.ErrNotFound, role, resource)
	}
	s.putLocked(newRoleAssignmentByPrincipal(resource, role, principal))
	s.putLocked(newRoleAssignmentByRole(resource, role, principal))
	return nil
}

func (s *MemoryStore) DeleteRoleAssignment(_ context.Context, resource, role, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range []record{
		newRoleAssignmentByPrincipal(resource, role, principal),
		newRoleAssignmentByRole(resource, role, principal),
	} {
		s.deleteLocked(r.EntityName, r.SubjectName)
	}
	return nil
}

func (s *MemoryStore) CreateScopeAssignment(_ context.Context, resource, scope, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireResourceLocked(resource); err != nil {
		return err
	}
	if _, ok := s.getLocked(resourceKey(resource), scopePrefix+scope); !ok {
		return fmt.Errorf("%w: scope %q on resource %q", core.ErrNotFound, scope, resource)
	}
	s.putLocked(newScopeAssignmentByPrincipal(resource, scope, principal))
	s.putLocked(newScopeAssignmentByScope(resource, scope, principal))
	return nil
}

func (s *MemoryStore) DeleteScopeAssignment(_ context.Context, resource, scope, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range []record{
		newScopeAssignmentByPrincipal(resource, scope, principal),
		newScopeAssignmentByScope(resource, scope, principal),
	} {
		s.deleteLocked(r.EntityName, r.SubjectName)
	}
	return nil
}

func (s *MemoryStore) GetPrincipalAccess(_ context.Context, resource, principal, scope string) (*core.PrincipalAccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.queryLocked(principalKey(principal), resourceKey(resource)+"#")
	return buildPrincipalAccess(resource, principal, scope, recs), nil
}

func (s *MemoryStore) GetPrincipalsForRole(_ context.Context, resource, role string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var principals []string
	for _, r := range s.queryLocked(resourceKey(resource), rolePrefix+role+"#"+principalPrefix) {
		if r.Kind == kindRoleAssignment {
			principals = append(principals, r.PrincipalID)
		}
	}
	sort.Strings(principals)
	return principals, nil
}

func (s *MemoryStore) GetRolesForPrincipal(_ context.Context, principal, resource string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var roles []string
	for _, r := range s.queryLocked(principalKey(principal), resourceKey(resource)+"#"+rolePrefix) {
		if r.Kind == kindRoleAssignment {
			roles = append(roles, r.RoleName)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

func (s *MemoryStore) DeletePrincipal(_ context.Context, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range withMirrors(s.queryLocked(principalKey(principal), "")) {
		s.deleteLocked(r.EntityName, r.SubjectName)
	}
	return nil
}

// RepairMirrors matches the DynamoStore sweep for tests and local mode:
// assignment halves with live parents get their missing mirror recreated,
// halves whose parent scope/role/resource is gone are cascade leftovers and
// are removed with their mirrors.
func (s *MemoryStore) RepairMirrors(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var assignments []record
	for _, partition := range s.partitions {
		for _, r := range partition {
			if r.isAssignment() {
				assignments = append(assignments, r)
			}
		}
	}

	repaired := 0
	removed := make(map[string]struct{})
	for _, r := range assignments {
		key := r.EntityName + "\x00" + r.SubjectName
		if _, ok := removed[key]; ok {
			continue
		}
		m := r.mirror()

		if !s.parentsExistLocked(r) {
			for _, half := range []record{r, m} {
				s.deleteLocked(half.EntityName, half.SubjectName)
				removed[half.EntityName+"\x00"+half.SubjectName] = struct{}{}
			}
			repaired++
			continue
		}
		if _, ok := s.getLocked(m.EntityName, m.SubjectName); !ok {
			s.putLocked(m)
			repaired++
		}
	}
	return repaired, nil
}

// --- unexported helpers; callers hold the lock ---

func (s *MemoryStore) parentsExistLocked(r record) bool {
	for _, k := range r.parentKeys() {
		if _, ok := s.getLocked(k[0], k[1]); !ok {
			return false
		}
	}
	return true
}

func (s *MemoryStore) requireResourceLocked(resource string) error {
	if _, ok := s.getLocked(resourceKey(resource), resourceKey(resource)); !ok {
		return fmt.Errorf("%w: resource %q", core.ErrNotFound, resource)
	}
	return nil
}

func (s *MemoryStore) putLocked(r record) {
	partition, ok := s.partitions[r.EntityName]
	if !ok {
		partition = make(map[string]record)
		s.partitions[r.EntityName] = partition
	}
	partition[r.SubjectName] = r
}

func (s *MemoryStore) getLocked(pk, sk string) (record, bool) {
	r, ok := s.partitions[pk][sk]
	return r, ok
}

func (s *MemoryStore) deleteLocked(pk, sk string) {
	if partition, ok := s.partitions[pk]; ok {
		delete(partition, sk)
		if len(partition) == 0 {
			delete(s.partitions, pk)
		}
	}
}

func (s *MemoryStore) queryLocked(pk, prefix string) []record {
	var out []record
	for sk, r := range s.partitions[pk] {
		if prefix == "" || strings.HasPrefix(sk, prefix) {
			out = append(out, r)
		}
	}
	return out
}
