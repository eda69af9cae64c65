package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"launchsync/internal/model"
)

// fakeDynamo keeps items in memory and pages scans two items at a time.
type fakeDynamo struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	order   []string
	getErr  error
	putErr  error
	scanned int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(item map[string]types.AttributeValue) string {
	s, _ := item["launch_id"].(*types.AttributeValueMemberS)
	if s == nil {
		return ""
	}
	return s.Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	k := keyOf(in.Item)
	if _, ok := f.items[k]; !ok {
		f.order = append(f.order, k)
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scanned++
	start := 0
	if in.ExclusiveStartKey != nil {
		last := keyOf(in.ExclusiveStartKey)
		for i, k := range f.order {
			if k == last {
				start = i + 1
			}
		}
	}
	end := start + 2
	if end > len(f.order) {
		end = len(f.order)
	}
	out := &dynamodb.ScanOutput{}
	for _, k := range f.order[start:end] {
		out.Items = append(out.Items, f.items[k])
	}
	if end < len(f.order) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"launch_id": &types.AttributeValueMemberS{Value: f.order[end-1]},
		}
	}
	return out, nil
}

func TestDynamoStore_UpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	fd := newFakeDynamo()
	st := NewDynamoStoreWith(fd, "spacex-launches-dev")

	l := launch("42", 42, model.StatusSuccess)
	ok := true
	l.LaunchSuccess = &ok
	kg := 525.5
	l.Payloads = []model.Payload{{PayloadID: "FalconSAT-2", PayloadMassKg: &kg, Customers: []string{"DARPA"}}}

	out, err := Upsert(ctx, st, l, nil)
	require.NoError(t, err)
	require.Equal(t, Created, out)
	out, err = Upsert(ctx, st, l, nil)
	require.NoError(t, err)
	require.Equal(t, Updated, out)
	require.Len(t, fd.items, 1)

	// fractional numbers travel as decimal strings
	payloads := fd.items["42"]["payloads"].(*types.AttributeValueMemberL)
	mass := payloads.Value[0].(*types.AttributeValueMemberM).Value["payload_mass_kg"].(*types.AttributeValueMemberN)
	require.Equal(t, "525.5", mass.Value)

	got, found, err := st.Get(ctx, "42")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(42), got.FlightNumberOrZero())
	require.NotNil(t, got.LaunchSuccess)
	require.True(t, *got.LaunchSuccess)
	require.Equal(t, 525.5, *got.Payloads[0].PayloadMassKg)
	require.Nil(t, got.Payloads[0].PayloadMassLbs)
}

func TestDynamoStore_RangeFollowsPages(t *testing.T) {
	ctx := context.Background()
	fd := newFakeDynamo()
	st := NewDynamoStoreWith(fd, "t")
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, st.Put(ctx, launch(id, 1, model.StatusUnknown)))
	}
	n := 0
	require.NoError(t, st.Range(ctx, func(model.Launch) error { n++; return nil }))
	require.Equal(t, 5, n)
	require.Equal(t, 3, fd.scanned)
}

func TestDynamoStore_Failures(t *testing.T) {
	ctx := context.Background()
	fd := newFakeDynamo()
	st := NewDynamoStoreWith(fd, "t")

	fd.getErr = errors.New("ProvisionedThroughputExceededException")
	out, err := Upsert(ctx, st, launch("1", 1, model.StatusSuccess), nil)
	require.NoError(t, err)
	require.Equal(t, Created, out)

	fd.getErr = nil
	fd.putErr = errors.New("ValidationException")
	_, err = Upsert(ctx, st, launch("2", 2, model.StatusSuccess), nil)
	require.Error(t, err)
	require.True(t, Error.Has(err))
	require.Equal(t, "t", st.Table())
}
