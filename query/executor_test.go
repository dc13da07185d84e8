package query

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/filter"
	"github.com/raywall/stark-toolkit/pkg/metrics"
	"github.com/raywall/stark-toolkit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) *types.AttributeValueMemberS { return &types.AttributeValueMemberS{Value: v} }

var tableCfg = dyndb.TableConfig{TableName: "stark-data"}

func roles() *schema.Entity {
	return &schema.Entity{
		Name:      "STARK_User_Roles",
		PKField:   "Role_Name",
		Partition: "STARK|role",
		Fields: []schema.Field{
			{Name: "Role_Name", Type: schema.TypeString, Attribute: "pk"},
			{Name: "Description", Type: schema.TypeString},
			{Name: "Level", Type: schema.TypeNumber},
		},
	}
}

func seed(client *dyndb.MemoryClient, n int) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Role%02d", i)
		client.Seed(dyndb.Item{
			"pk":                s(name),
			"sk":                s("STARK|role"),
			"STARK-ListView-sk": s(name),
			"Description":       s("desc " + name),
			"Level":             &types.AttributeValueMemberN{Value: fmt.Sprint(i)},
		})
	}
}

func TestExecute_PaginatesTenTenFive(t *testing.T) {
	t.Parallel()

	client := dyndb.NewMemoryClient(tableCfg)
	seed(client, 25)
	exec := NewExecutor(dyndb.New(client, tableCfg), Options{PageLimit: 10})

	var (
		sizes []int
		req   = Request{Entity: roles()}
	)
	for {
		page, err := exec.Execute(context.Background(), req)
		require.NoError(t, err)
		sizes = append(sizes, len(page.Records))
		if len(page.Next) == 0 {
			break
		}
		req.Cursor = page.Next
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)

	calls := client.Queries()
	require.Len(t, calls, 3)
	assert.Nil(t, calls[0].ExclusiveStartKey)
	assert.NotNil(t, calls[1].ExclusiveStartKey)
	assert.Equal(t, "STARK-ListView-Index", aws.ToString(calls[0].IndexName))
	assert.Nil(t, calls[0].FilterExpression)
}

func TestExecute_AppliesFilterExpression(t *testing.T) {
	t.Parallel()

	var got *dynamodb.QueryInput
	client := &dyndb.MockDynamoClient{
		QueryFn: func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			got = in
			return &dynamodb.QueryOutput{Items: []dyndb.Item{{
				"pk":          s("Admin"),
				"sk":          s("STARK|role"),
				"Description": s("administrator"),
			}}}, nil
		},
	}
	exec := NewExecutor(dyndb.New(client, tableCfg), Options{})

	res, err := filter.Aggregate(roles(), map[string]filter.Spec{"Description": {Operator: "contains", Value: "adm"}})
	require.NoError(t, err)

	page, err := exec.Execute(context.Background(), Request{Entity: roles(), Expression: res.Expression})
	require.NoError(t, err)

	require.NotNil(t, got)
	require.NotNil(t, got.FilterExpression)
	assert.Contains(t, *got.FilterExpression, "contains")
	assert.Equal(t, int32(10), aws.ToInt32(got.Limit))

	require.Len(t, page.Records, 1)
	rec := page.Records[0]
	assert.Equal(t, "Admin", rec["Role_Name"])
	assert.Equal(t, "STARK|role", rec["sk"])
	assert.Equal(t, "administrator", rec["Description"])
	assert.Equal(t, "", rec["Level"])
	_, hasPK := rec["pk"]
	assert.False(t, hasPK)
	assert.Empty(t, page.Next)
}

func TestExecute_LimitPrecedence(t *testing.T) {
	t.Parallel()

	var limits []int32
	client := &dyndb.MockDynamoClient{
		QueryFn: func(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			limits = append(limits, aws.ToInt32(in.Limit))
			return &dynamodb.QueryOutput{}, nil
		},
	}
	exec := NewExecutor(dyndb.New(client, tableCfg), Options{PageLimit: 7})

	entity := roles()
	_, _ = exec.Execute(context.Background(), Request{Entity: entity})
	entity.PageLimit = 20
	_, _ = exec.Execute(context.Background(), Request{Entity: entity})
	_, _ = exec.Execute(context.Background(), Request{Entity: entity, Limit: 3})

	assert.Equal(t, []int32{7, 20, 3}, limits)
}

func TestExecute_StorageErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("provisioned throughput exceeded")
	client := &dyndb.MockDynamoClient{
		QueryFn: func(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
			return nil, boom
		},
	}
	rec := &metrics.Recorder{}
	_, err := NewExecutor(dyndb.New(client, tableCfg), Options{Metrics: rec}).Execute(context.Background(), Request{Entity: roles()})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.Find(metrics.QueryErrors), 1)
	assert.Empty(t, rec.Find(metrics.QueryLatency))

	_, err = NewExecutor(dyndb.New(client, tableCfg), Options{}).Execute(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoEntity)
}

func TestExecuteAll(t *testing.T) {
	t.Parallel()

	t.Run("follows cursors until exhausted", func(t *testing.T) {
		client := dyndb.NewMemoryClient(tableCfg)
		seed(client, 25)
		exec := NewExecutor(dyndb.New(client, tableCfg), Options{})

		page, err := exec.ExecuteAll(context.Background(), Request{Entity: roles(), Limit: 10})
		require.NoError(t, err)
		assert.Len(t, page.Records, 25)
		assert.Empty(t, page.Next)
		assert.Len(t, client.Queries(), 3)
	})

	t.Run("unlimited single call", func(t *testing.T) {
		client := dyndb.NewMemoryClient(tableCfg)
		seed(client, 25)
		exec := NewExecutor(dyndb.New(client, tableCfg), Options{PageLimit: 10})

		page, err := exec.ExecuteAll(context.Background(), Request{Entity: roles()})
		require.NoError(t, err)
		assert.Len(t, page.Records, 25)
		assert.Len(t, client.Queries(), 1)
	})

	t.Run("stops at max pages", func(t *testing.T) {
		client := dyndb.NewMemoryClient(tableCfg)
		seed(client, 25)
		exec := NewExecutor(dyndb.New(client, tableCfg), Options{MaxPages: 2})

		page, err := exec.ExecuteAll(context.Background(), Request{Entity: roles(), Limit: 10})
		require.NoError(t, err)
		assert.Len(t, page.Records, 20)
		assert.NotEmpty(t, page.Next)
	})
}

func TestRecord_String(t *testing.T) {
	rec := Record{"a": "x", "b": true, "c": nil, "d": []any{"1", "2"}}
	assert.Equal(t, "x", rec.String("a"))
	assert.Equal(t, "true", rec.String("b"))
	assert.Equal(t, "", rec.String("c"))
	assert.Equal(t, "", rec.String("missing"))
	assert.Equal(t, "[1 2]", rec.String("d"))
}
