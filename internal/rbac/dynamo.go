package rbac

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"golang.org/x/sync/errgroup"

	"github.com/vouchd/vouchd/internal/core"
)

// batchWriteLimit is the DynamoDB cap on write requests per batch.
const batchWriteLimit = 25

// dynamoAPI is the slice of the DynamoDB client the store uses. Tests
// substitute a fake.
type dynamoAPI interface {
	PutItemWithContext(aws.Context, *dynamodb.PutItemInput, ...request.Option) (*dynamodb.PutItemOutput, error)
	GetItemWithContext(aws.Context, *dynamodb.GetItemInput, ...request.Option) (*dynamodb.GetItemOutput, error)
	DeleteItemWithContext(aws.Context, *dynamodb.DeleteItemInput, ...request.Option) (*dynamodb.DeleteItemOutput, error)
	QueryWithContext(aws.Context, *dynamodb.QueryInput, ...request.Option) (*dynamodb.QueryOutput, error)
	BatchWriteItemWithContext(aws.Context, *dynamodb.BatchWriteItemInput, ...request.Option) (*dynamodb.BatchWriteItemOutput, error)
	ScanWithContext(aws.Context, *dynamodb.ScanInput, ...request.Option) (*dynamodb.ScanOutput, error)
}

var _ core.RBACStore = (*DynamoStore)(nil)

// DynamoStore persists RBAC records in a single DynamoDB table.
type DynamoStore struct {
	db    dynamoAPI
	table string
}

// Config for the DynamoDB backend.
type Config struct {
	Region   string `mapstructure:"region"`
	Table    string `mapstructure:"table"`
	Endpoint string `mapstructure:"endpoint"` // optional, for dynamodb-local
}

// NewDynamoStore builds a store with its own long-lived session.
func NewDynamoStore(cfg Config) (*DynamoStore, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("creating aws session: %w", err)
	}
	return &DynamoStore{
		db:    dynamodb.New(sess),
		table: cfg.Table,
	}, nil
}

// NewDynamoStoreWithClient is used by tests to inject a fake client.
func NewDynamoStoreWithClient(db dynamoAPI, table string) *DynamoStore {
	return &DynamoStore{db: db, table: table}
}

func (s *DynamoStore) CreateResource(ctx context.Context, resource string) error {
	return s.put(ctx, newResourceItem(resource))
}

func (s *DynamoStore) DeleteResource(ctx context.Context, resource string) error {
	// The resource record goes first so no new children can be created
	// mid-cascade; creates check for its existence.
	if err := s.deleteKey(ctx, resourceKey(resource), resourceKey(resource)); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	var scopeSide, roleSide []record
	g.Go(func() error {
		var err error
		scopeSide, err = s.queryPrefix(gctx, resourceKey(resource), scopePrefix)
		return err
	})
	g.Go(func() error {
		var err error
		roleSide, err = s.queryPrefix(gctx, resourceKey(resource), rolePrefix)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return s.deleteRecords(ctx, withMirrors(append(scopeSide, roleSide...)))
}

func (s *DynamoStore) GetResource(ctx context.Context, resource string) (*core.Resource, error) {
	existing, err := s.get(ctx, resourceKey(resource), resourceKey(resource))
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: resource %q", core.ErrNotFound, resource)
	}

	out := &core.Resource{ResourceName: resource}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.ScopeNames, err = s.listChildNames(gctx, resource, scopePrefix, kindScope)
		return err
	})
	g.Go(func() error {
		var err error
		out.RoleNames, err = s.listChildNames(gctx, resource, rolePrefix, kindRole)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DynamoStore) CreateScope(ctx context.Context, resource, scope string) error {
	if err := s.requireResource(ctx, resource); err != nil {
		return err
	}
	return s.put(ctx, newScopeItem(resource, scope))
}

func (s *DynamoStore) DeleteScope(ctx context.Context, resource, scope string) error {
	if err := s.deleteKey(ctx, resourceKey(resource), scopePrefix+scope); err != nil {
		return err
	}
	byScope, err := s.queryPrefix(ctx, resourceKey(resource), scopePrefix+scope+"#"+principalPrefix)
	if err != nil {
		return err
	}
	return s.deleteRecords(ctx, withMirrors(byScope))
}

func (s *DynamoStore) CreateRole(ctx context.Context, resource, role string) error {
	if err := s.requireResource(ctx, resource); err != nil {
		return err
	}
	return s.put(ctx, newRoleItem(resource, role))
}

func (s *DynamoStore) DeleteRole(ctx context.Context, resource, role string) error {
	if err := s.deleteKey(ctx, resourceKey(resource), rolePrefix+role); err != nil {
		return err
	}
	byRole, err := s.queryPrefix(ctx, resourceKey(resource), rolePrefix+role+"#"+principalPrefix)
	if err != nil {
		return err
	}
	return s.deleteRecords(ctx, withMirrors(byRole))
}

func (s *DynamoStore) CreateRoleAssignment(ctx context.Context, resource, role, principal string) error {
	if err := s.requireResource(ctx, resource); err != nil {
		return err
	}
	existing, err := s.get(ctx, resourceKey(resource), rolePrefix+role)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: role %q on resource %q", core.ErrNotFound, role, resource)
	}

	// Best-effort dual write, by-principal side first. A crash between the
	// two puts is healed by the mirror repair sweep.
	if err := s.put(ctx, newRoleAssignmentByPrincipal(resource, role, principal)); err != nil {
		return err
	}
	return s.put(ctx, newRoleAssignmentByRole(resource, role, principal))
}

func (s *DynamoStore) DeleteRoleAssignment(ctx context.Context, resource, role, principal string) error {
	byPrincipal := newRoleAssignmentByPrincipal(resource, role, principal)
	byRole := newRoleAssignmentByRole(resource, role, principal)
	return s.deleteRecords(ctx, []record{byPrincipal, byRole})
}

func (s *DynamoStore) CreateScopeAssignment(ctx context.Context, resource, scope, principal string) error {
	if err := s.requireResource(ctx, resource); err != nil {
		return err
	}
	existing, err := s.get(ctx, resourceKey(resource), scopePrefix+scope)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: scope %q on resource %q", core.ErrNotFound, scope, resource)
	}

	if err := s.put(ctx, newScopeAssignmentByPrincipal(resource, scope, principal)); err != nil {
		return err
	}
	return s.put(ctx, newScopeAssignmentByScope(resource, scope, principal))
}

func (s *DynamoStore) DeleteScopeAssignment(ctx context.Context, resource, scope, principal string) error {
	byPrincipal := newScopeAssignmentByPrincipal(resource, scope, principal)
	byScope := newScopeAssignmentByScope(resource, scope, principal)
	return s.deleteRecords(ctx, []record{byPrincipal, byScope})
}

func (s *DynamoStore) GetPrincipalAccess(ctx context.Context, resource, principal, scope string) (*core.PrincipalAccess, error) {
	recs, err := s.queryPrefix(ctx, principalKey(principal), resourceKey(resource)+"#")
	if err != nil {
		return nil, err
	}
	return buildPrincipalAccess(resource, principal, scope, recs), nil
}

func (s *DynamoStore) GetPrincipalsForRole(ctx context.Context, resource, role string) ([]string, error) {
	recs, err := s.queryPrefix(ctx, resourceKey(resource), rolePrefix+role+"#"+principalPrefix)
	if err != nil {
		return nil, err
	}
	principals := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.Kind == kindRoleAssignment {
			principals = append(principals, r.PrincipalID)
		}
	}
	sort.Strings(principals)
	return principals, nil
}

func (s *DynamoStore) GetRolesForPrincipal(ctx context.Context, principal, resource string) ([]string, error) {
	recs, err := s.queryPrefix(ctx, principalKey(principal), resourceKey(resource)+"#"+rolePrefix)
	if err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.Kind == kindRoleAssignment {
			roles = append(roles, r.RoleName)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

func (s *DynamoStore) DeletePrincipal(ctx context.Context, principal string) error {
	byPrincipal, err := s.queryPrefix(ctx, principalKey(principal), "")
	if err != nil {
		return err
	}
	return s.deleteRecords(ctx, withMirrors(byPrincipal))
}

// RepairMirrors sweeps assignment records left inconsistent by a crash
// between the two writes of a logical assignment. A half whose parent
// resource and scope/role still exist gets its missing mirror recreated;
// a half whose parents are gone is a leftover of an interrupted cascade
// (cascades only see the resource-partition side) and is removed together
// with its mirror, so a revoked grant cannot be resurrected. Returns the
// number of logical assignments corrected.
func (s *DynamoStore) RepairMirrors(ctx context.Context) (int, error) {
	records, err := s.scanTable(ctx)
	if err != nil {
		return 0, err
	}

	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.EntityName+"\x00"+r.SubjectName] = struct{}{}
	}
	parentsExist := func(r record) bool {
		for _, k := range r.parentKeys() {
			if _, ok := present[k[0]+"\x00"+k[1]]; !ok {
				return false
			}
		}
		return true
	}

	repaired := 0
	var dangling []record
	removed := make(map[string]struct{})
	for _, r := range records {
		if !r.isAssignment() {
			continue
		}
		key := r.EntityName + "\x00" + r.SubjectName
		if _, ok := removed[key]; ok {
			continue
		}
		m := r.mirror()
		mKey := m.EntityName + "\x00" + m.SubjectName

		if !parentsExist(r) {
			dangling = append(dangling, r)
			removed[key] = struct{}{}
			removed[mKey] = struct{}{}
			repaired++
			continue
		}
		if _, ok := present[mKey]; ok {
			continue
		}
		if err := s.put(ctx, m); err != nil {
			return repaired, err
		}
		present[mKey] = struct{}{}
		repaired++
	}

	if len(dangling) > 0 {
		if err := s.deleteRecords(ctx, withMirrors(dangling)); err != nil {
			return repaired, err
		}
	}
	return repaired, nil
}

// --- low-level helpers ---

func (s *DynamoStore) requireResource(ctx context.Context, resource string) error {
	existing, err := s.get(ctx, resourceKey(resource), resourceKey(resource))
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: resource %q", core.ErrNotFound, resource)
	}
	return nil
}

func (s *DynamoStore) put(ctx context.Context, r record) error {
	item, err := dynamodbattribute.MarshalMap(r)
	if err != nil {
		return fmt.Errorf("marshaling %s item: %w", r.Kind, err)
	}
	_, err = s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: putting %s item: %v", core.ErrUnavailable, r.Kind, err)
	}
	return nil
}

func (s *DynamoStore) get(ctx context.Context, pk, sk string) (*record, error) {
	out, err := s.db.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttributes(pk, sk),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: getting item: %v", core.ErrUnavailable, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r record
	if err := dynamodbattribute.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshaling item: %w", err)
	}
	return &r, nil
}

func (s *DynamoStore) deleteKey(ctx context.Context, pk, sk string) error {
	_, err := s.db.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttributes(pk, sk),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting item: %v", core.ErrUnavailable, err)
	}
	return nil
}

// queryPrefix returns all records in partition pk whose sort key begins with
// prefix. An empty prefix returns the whole partition.
func (s *DynamoStore) queryPrefix(ctx context.Context, pk, prefix string) ([]record, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("EntityName = :pk"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk": {S: aws.String(pk)},
		},
	}
	if prefix != "" {
		input.KeyConditionExpression = aws.String("EntityName = :pk AND begins_with(SubjectName, :prefix)")
		input.ExpressionAttributeValues[":prefix"] = &dynamodb.AttributeValue{S: aws.String(prefix)}
	}

	var records []record
	for {
		out, err := s.db.QueryWithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: querying partition %q: %v", core.ErrUnavailable, pk, err)
		}
		var page []record
		if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling query page: %w", err)
		}
		records = append(records, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) listChildNames(ctx context.Context, resource, prefix, kind string) ([]string, error) {
	recs, err := s.queryPrefix(ctx, resourceKey(resource), prefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.Kind != kind {
			continue
		}
		switch kind {
		case kindScope:
			names = append(names, r.ScopeName)
		case kindRole:
			names = append(names, r.RoleName)
		}
	}
	sort.Strings(names)
	return names, nil
}

// deleteRecords removes the given records in batches, deduplicating keys.
// Missing records are not an error; deletes are idempotent.
func (s *DynamoStore) deleteRecords(ctx context.Context, recs []record) error {
	seen := make(map[string]struct{}, len(recs))
	var writes []*dynamodb.WriteRequest
	for _, r := range recs {
		key := r.EntityName + "\x00" + r.SubjectName
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		writes = append(writes, &dynamodb.WriteRequest{
			DeleteRequest: &dynamodb.DeleteRequest{
				Key: keyAttributes(r.EntityName, r.SubjectName),
			},
		})
	}

	for start := 0; start < len(writes); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(writes) {
			end = len(writes)
		}
		batch := map[string][]*dynamodb.WriteRequest{s.table: writes[start:end]}
		for len(batch[s.table]) > 0 {
			out, err := s.db.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: batch,
			})
			if err != nil {
				return fmt.Errorf("%w: batch delete: %v", core.ErrUnavailable, err)
			}
			batch = out.UnprocessedItems
		}
	}
	return nil
}

// scanTable reads the whole table. The repair sweep needs parent records as
// well as assignments, so no kind filter is applied.
func (s *DynamoStore) scanTable(ctx context.Context) ([]record, error) {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	}
	var records []record
	for {
		out, err := s.db.ScanWithContext(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning table: %v", core.ErrUnavailable, err)
		}
		var page []record
		if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling scan page: %w", err)
		}
		records = append(records, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func keyAttributes(pk, sk string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"EntityName":  {S: aws.String(pk)},
		"SubjectName": {S: aws.String(sk)},
	}
}

// withMirrors extends a record list with the derived mirror of every
// assignment record, so a cascade covers both sides of each pair.
func withMirrors(recs []record) []record {
	out := make([]record, 0, len(recs)*2)
	for _, r := range recs {
		out = append(out, r)
		if r.isAssignment() {
			out = append(out, r.mirror())
		}
	}
	return out
}

// buildPrincipalAccess folds by-principal records into the aggregate read
// model, optionally narrowed to a single scope.
func buildPrincipalAccess(resource, principal, scope string, recs []record) *core.PrincipalAccess {
	access := &core.PrincipalAccess{
		PrincipalID:  principal,
		ResourceName: resource,
		ScopeNames:   []string{},
		RoleNames:    []string{},
	}
	for _, r := range recs {
		if r.ResourceName != resource {
			continue
		}
		switch r.Kind {
		case kindScopeAssignment:
			if scope == "" || r.ScopeName == scope {
				access.ScopeNames = append(access.ScopeNames, r.ScopeName)
			}
		case kindRoleAssignment:
			access.RoleNames = append(access.RoleNames, r.RoleName)
		}
	}
	sort.Strings(access.ScopeNames)
	sort.Strings(access.RoleNames)
	return access
}
