package dynamocache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goforj/attrcache/cachecore"
	"github.com/goforj/attrcache/cachetest"
)

type dynStub struct {
	items           map[string]map[string]types.AttributeValue
	exists          bool
	putErr          error
	scanErr         error
	getErr          error
	batchWriteSizes []int
	describeErrs    []error
	createErrs      []error
	describeHits    int
	createHits      int
}

func newDynStub() *dynStub { return &dynStub{items: map[string]map[string]types.AttributeValue{}} }

func (d *dynStub) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	key := in.Key["k"].(*types.AttributeValueMemberS).Value
	item, ok := d.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

func (d *dynStub) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if d.putErr != nil {
		return nil, d.putErr
	}
	key := in.Item["k"].(*types.AttributeValueMemberS).Value
	d.items[key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (d *dynStub) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	key := in.Key["k"].(*types.AttributeValueMemberS).Value
	delete(d.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (d *dynStub) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	for _, writes := range in.RequestItems {
		d.batchWriteSizes = append(d.batchWriteSizes, len(writes))
		for _, wr := range writes {
			if dr := wr.DeleteRequest; dr != nil {
				key := dr.Key["k"].(*types.AttributeValueMemberS).Value
				delete(d.items, key)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (d *dynStub) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if d.scanErr != nil {
		return nil, d.scanErr
	}
	var items []map[string]types.AttributeValue
	for k := range d.items {
		items = append(items, map[string]types.AttributeValue{
			"k": &types.AttributeValueMemberS{Value: k},
		})
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

func (d *dynStub) CreateTable(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	d.createHits++
	if len(d.createErrs) > 0 {
		err := d.createErrs[0]
		d.createErrs = d.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &dynamodb.CreateTableOutput{}, nil
}

func (d *dynStub) DescribeTable(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	d.describeHits++
	if len(d.describeErrs) > 0 {
		err := d.describeErrs[0]
		d.describeErrs = d.describeErrs[1:]
		if err != nil {
			return nil, err
		}
		return &dynamodb.DescribeTableOutput{}, nil
	}
	if d.exists {
		return &dynamodb.DescribeTableOutput{}, nil
	}
	return nil, &types.ResourceNotFoundException{}
}

func newTestStore(t *testing.T, stub *dynStub) *dynamoStore {
	t.Helper()
	store, err := New(context.Background(), Config{
		BaseConfig: cachecore.BaseConfig{Prefix: "p"},
		Client:     stub,
		Table:      "tbl",
	})
	if err != nil {
		t.Fatalf("store create failed: %v", err)
	}
	return store.(*dynamoStore)
}

func TestEnsureDynamoTableRetriesStartupErrors(t *testing.T) {
	stub := newDynStub()
	stub.describeErrs = []error{
		errors.New("request send failed: connection reset by peer"),
		&types.ResourceNotFoundException{},
		nil,
	}

	if err := ensureDynamoTable(context.Background(), stub, "tbl"); err != nil {
		t.Fatalf("expected retry path to succeed, got err=%v", err)
	}
	if stub.createHits != 1 {
		t.Fatalf("expected create table to be called once, got %d", stub.createHits)
	}
	if stub.describeHits < 2 {
		t.Fatalf("expected describe to be retried, got %d calls", stub.describeHits)
	}
}

func TestEnsureDynamoTableFailsOnPermanentError(t *testing.T) {
	stub := newDynStub()
	stub.describeErrs = []error{errors.New("access denied")}
	if err := ensureDynamoTable(context.Background(), stub, "tbl"); err == nil {
		t.Fatalf("expected permanent error to fail")
	}
}

func TestDynamoEnsureTableToleratesConcurrentCreate(t *testing.T) {
	stub := newDynStub()
	stub.createErrs = []error{&types.ResourceInUseException{}}
	if err := ensureDynamoTable(context.Background(), stub, "tbl"); err != nil {
		t.Fatalf("expected resource-in-use to count as created: %v", err)
	}
}

func TestDynamoStoreContract(t *testing.T) {
	cachetest.RunStoreContract(t, newTestStore(t, newDynStub()), cachetest.Options{})
}

func TestDynamoSetWithoutTTLOmitsExpiry(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	ctx := context.Background()

	if err := store.Set(ctx, "forever", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok := stub.items["p:forever"]["ea"]; ok {
		t.Fatalf("expected no ea attribute for ttl 0")
	}
	if err := store.Set(ctx, "bounded", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, ok := stub.items["p:bounded"]["ea"]; !ok {
		t.Fatalf("expected ea attribute for positive ttl")
	}
}

func TestDynamoDeleteManyBatchesOverLimit(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	ctx := context.Background()

	keys := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		key := fmt.Sprintf("k%d", i)
		keys = append(keys, key)
		if err := store.Set(ctx, key, []byte("v"), 0); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}
	if err := store.DeleteMany(ctx, keys...); err != nil {
		t.Fatalf("delete many failed: %v", err)
	}
	if len(stub.batchWriteSizes) != 2 || stub.batchWriteSizes[0] != 25 || stub.batchWriteSizes[1] != 5 {
		t.Fatalf("unexpected batch sizes %v", stub.batchWriteSizes)
	}
	if len(stub.items) != 0 {
		t.Fatalf("expected all items removed, got %d", len(stub.items))
	}
}

func TestDynamoDeleteManyEmpty(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	if err := store.DeleteMany(context.Background()); err != nil {
		t.Fatalf("empty delete many failed: %v", err)
	}
	if len(stub.batchWriteSizes) != 0 {
		t.Fatalf("expected no batch writes")
	}
}

func TestDynamoFlushKeepsOtherPrefixes(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	ctx := context.Background()
	stub.items["other:k"] = map[string]types.AttributeValue{
		"k": &types.AttributeValueMemberS{Value: "other:k"},
		"v": &types.AttributeValueMemberB{Value: []byte("keep")},
	}
	if err := store.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if _, ok := stub.items["p:k"]; ok {
		t.Fatalf("expected prefixed key flushed")
	}
	if _, ok := stub.items["other:k"]; !ok {
		t.Fatalf("expected other prefix kept")
	}
}

func TestDynamoFlushScanError(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	stub.scanErr = errors.New("scan boom")
	if err := store.Flush(context.Background()); err == nil || !strings.Contains(err.Error(), "scan boom") {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestDynamoGetExpiredRemoves(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	stub.items["p:old"] = map[string]types.AttributeValue{
		"k":  &types.AttributeValueMemberS{Value: "p:old"},
		"v":  &types.AttributeValueMemberB{Value: []byte("v")},
		"ea": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", time.Now().Add(-time.Minute).UnixMilli())},
	}
	if _, ok, err := store.Get(context.Background(), "old"); err != nil || ok {
		t.Fatalf("expected expired miss; ok=%v err=%v", ok, err)
	}
	if _, ok := stub.items["p:old"]; ok {
		t.Fatalf("expected expired item deleted")
	}
}

func TestDynamoGetNonBinaryValue(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	stub.items["p:s"] = map[string]types.AttributeValue{
		"k": &types.AttributeValueMemberS{Value: "p:s"},
		"v": &types.AttributeValueMemberS{Value: "not-binary"},
	}
	if _, _, err := store.Get(context.Background(), "s"); err == nil {
		t.Fatalf("expected error for non-binary value")
	}
}

func TestDynamoClientErrors(t *testing.T) {
	stub := newDynStub()
	store := newTestStore(t, stub)
	ctx := context.Background()

	stub.putErr = errors.New("put boom")
	if err := store.Set(ctx, "k", []byte("v"), 0); err == nil {
		t.Fatalf("expected put error")
	}
	stub.getErr = errors.New("get boom")
	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Fatalf("expected get error")
	}
}
