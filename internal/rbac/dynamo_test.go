package rbac

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"

	"github.com/google/go-cmp/cmp"
)

// fakeDynamo implements just enough of the DynamoDB API for the store:
// a map of partitions with begins_with queries and batched deletes.
type fakeDynamo struct {
	mu         sync.Mutex
	partitions map[string]map[string]map[string]*dynamodb.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		partitions: make(map[string]map[string]map[string]*dynamodb.AttributeValue),
	}
}

func itemKeys(item map[string]*dynamodb.AttributeValue) (string, string) {
	return aws.StringValue(item["EntityName"].S), aws.StringValue(item["SubjectName"].S)
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, input *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk, sk := itemKeys(input.Item)
	if f.partitions[pk] == nil {
		f.partitions[pk] = make(map[string]map[string]*dynamodb.AttributeValue)
	}
	f.partitions[pk][sk] = input.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, input *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk, sk := itemKeys(input.Key)
	item := f.partitions[pk][sk]
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (f *fakeDynamo) DeleteItemWithContext(_ aws.Context, input *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk, sk := itemKeys(input.Key)
	delete(f.partitions[pk], sk)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) QueryWithContext(_ aws.Context, input *dynamodb.QueryInput, _ ...request.Option) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pk := aws.StringValue(input.ExpressionAttributeValues[":pk"].S)
	var prefix string
	if v, ok := input.ExpressionAttributeValues[":prefix"]; ok {
		prefix = aws.StringValue(v.S)
	}

	var sks []string
	for sk := range f.partitions[pk] {
		if prefix == "" || strings.HasPrefix(sk, prefix) {
			sks = append(sks, sk)
		}
	}
	sort.Strings(sks)

	out := &dynamodb.QueryOutput{}
	for _, sk := range sks {
		out.Items = append(out.Items, f.partitions[pk][sk])
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItemWithContext(_ aws.Context, input *dynamodb.BatchWriteItemInput, _ ...request.Option) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, writes := range input.RequestItems {
		for _, w := range writes {
			if w.DeleteRequest != nil {
				pk, sk := itemKeys(w.DeleteRequest.Key)
				delete(f.partitions[pk], sk)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeDynamo) ScanWithContext(_ aws.Context, _ *dynamodb.ScanInput, _ ...request.Option) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := &dynamodb.ScanOutput{}
	for _, partition := range f.partitions {
		for _, item := range partition {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func TestDynamoStoreMirroredWrites(t *testing.T) {
	ctx := context.Background()
	db := newFakeDynamo()
	s := NewDynamoStoreWithClient(db, "vouchd-rbac")

	mustCreate(t, s.CreateResource(ctx, "api://amber"))
	mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))
	mustCreate(t, s.CreateRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice"))

	// both physical records must exist under their respective partitions
	if _, ok := db.partitions["PRINCIPAL#arn:test:user/alice"]["RESOURCE#api://amber#ROLE#rbac.read"]; !ok {
		t.Error("by-principal record missing")
	}
	if _, ok := db.partitions["RESOURCE#api://amber"]["ROLE#rbac.read#PRINCIPAL#arn:test:user/alice"]; !ok {
		t.Error("by-role record missing")
	}

	mustCreate(t, s.DeleteRoleAssignment(ctx, "api://amber", "rbac.read", "arn:test:user/alice"))
	if len(db.partitions["PRINCIPAL#arn:test:user/alice"]) != 0 {
		t.Error("by-principal record not deleted")
	}
}

func TestDynamoStoreRepairMirrors(t *testing.T) {
	ctx := context.Background()
	db := newFakeDynamo()
	s := NewDynamoStoreWithClient(db, "vouchd-rbac")

	mustCreate(t, s.CreateResource(ctx, "api://amber"))
	mustCreate(t, s.CreateScope(ctx, "api://amber", "rbac"))

	// write only one half of a scope assignment pair
	if err := s.put(ctx, newScopeAssignmentByScope("api://amber", "rbac", "arn:test:user/alice")); err != nil {
		t.Fatalf("put: %v", err)
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
	if diff := cmp.Diff([]string{"rbac"}, access.ScopeNames); diff != "" {
		t.Errorf("scopes after repair mismatch (-want +got):\n%s", diff)
	}
}

func TestDynamoStoreRepairRemovesCascadeLeftovers(t *testing.T) {
	ctx := context.Background()
	db := newFakeDynamo()
	s := NewDynamoStoreWithClient(db, "vouchd-rbac")

	mustCreate(t, s.CreateResource(ctx, "api://amber"))
	mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))

	// crash after the by-principal write: the resource cascade never sees
	// this half because it only queries the resource partition
	if err := s.put(ctx, newRoleAssignmentByPrincipal("api://amber", "rbac.read", "arn:test:user/alice")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.DeleteResource(ctx, "api://amber"); err != nil {
		t.Fatalf("DeleteResource() error = %v", err)
	}

	repaired, err := s.RepairMirrors(ctx)
	if err != nil {
		t.Fatalf("RepairMirrors() error = %v", err)
	}
	if repaired != 1 {
		t.Errorf("RepairMirrors() = %d, want 1", repaired)
	}

	// the surviving half must be gone, not re-mirrored
	access, err := s.GetPrincipalAccess(ctx, "api://amber", "arn:test:user/alice", "")
	if err != nil {
		t.Fatalf("GetPrincipalAccess() error = %v", err)
	}
	if len(access.RoleNames) != 0 {
		t.Errorf("principal still holds roles on a deleted resource: %v", access.RoleNames)
	}
	if len(db.partitions["PRINCIPAL#arn:test:user/alice"]) != 0 {
		t.Errorf("leftover records not removed: %v", db.partitions["PRINCIPAL#arn:test:user/alice"])
	}
}

func TestDeleteRecordsChunksBatches(t *testing.T) {
	ctx := context.Background()
	db := newFakeDynamo()
	s := NewDynamoStoreWithClient(db, "vouchd-rbac")

	mustCreate(t, s.CreateResource(ctx, "api://amber"))
	mustCreate(t, s.CreateRole(ctx, "api://amber", "rbac.read"))
	// 30 assignments produce 60+ records, forcing multiple delete batches
	for i := 0; i < 30; i++ {
		principal := "arn:test:user/u" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		mustCreate(t, s.CreateRoleAssignment(ctx, "api://amber", "rbac.read", principal))
	}

	if err := s.DeleteResource(ctx, "api://amber"); err != nil {
		t.Fatalf("DeleteResource() error = %v", err)
	}
	for pk, partition := range db.partitions {
		if len(partition) != 0 {
			t.Errorf("partition %q not emptied: %d records left", pk, len(partition))
		}
	}
}
