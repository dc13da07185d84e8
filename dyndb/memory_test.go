package dyndb_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRoles(client *dyndb.MemoryClient, n int) {
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Role%02d", i)
		client.Seed(dyndb.Item{
			"pk":                s(name),
			"sk":                s("STARK|role"),
			"STARK-ListView-sk": s(name),
		})
	}
	client.Seed(dyndb.Item{"pk": s("jdoe"), "sk": s("STARK|user"), "STARK-ListView-sk": s("jdoe")})
}

func TestMemoryClient_ListViewPagination(t *testing.T) {
	t.Parallel()

	client := dyndb.NewMemoryClient(testConfig())
	seedRoles(client, 25)
	table := dyndb.New(client, testConfig())

	var (
		sizes  []int
		cursor dyndb.Cursor
		seen   []string
	)
	for {
		page, err := table.ListView("STARK|role").Limit(10).StartFrom(cursor).Exec(context.Background())
		require.NoError(t, err)
		sizes = append(sizes, len(page.Items))
		for _, it := range page.Items {
			seen = append(seen, it["pk"].(*types.AttributeValueMemberS).Value)
		}
		if !page.HasMore() {
			break
		}

		token, err := page.Next.Encode()
		require.NoError(t, err)
		cursor, err = dyndb.DecodeCursor(token)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{10, 10, 5}, sizes)
	require.Len(t, seen, 25)
	assert.Equal(t, "Role00", seen[0])
	assert.Equal(t, "Role24", seen[24])
	assert.Len(t, client.Queries(), 3)
}

func TestMemoryClient_FilterAfterLimit(t *testing.T) {
	t.Parallel()

	client := dyndb.NewMemoryClient(testConfig())
	seedRoles(client, 12)
	client.FilterFn = func(it dyndb.Item) bool {
		return it["pk"].(*types.AttributeValueMemberS).Value >= "Role10"
	}

	page, err := dyndb.New(client, testConfig()).ListView("STARK|role").Limit(10).Exec(context.Background())
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int32(10), page.ScannedCount)
	assert.True(t, page.HasMore())
}

func TestMemoryClient_CRUD(t *testing.T) {
	t.Parallel()

	client := dyndb.NewMemoryClient(testConfig())
	table := dyndb.New(client, testConfig())
	ctx := context.Background()
	key := dyndb.Key{PK: "Admin", SK: "STARK|role"}

	require.NoError(t, table.Create(ctx, dyndb.Item{"pk": s("Admin"), "sk": s("STARK|role")}))
	assert.ErrorIs(t, table.Create(ctx, dyndb.Item{"pk": s("Admin"), "sk": s("STARK|role")}), dyndb.ErrAlreadyExists)

	require.NoError(t, table.Update(ctx, key, map[string]any{"Description": "all access", "Level": 3}))
	item, err := table.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, s("all access"), item["Description"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, item["Level"])

	require.NoError(t, table.Delete(ctx, key))
	_, err = table.Get(ctx, key)
	assert.ErrorIs(t, err, dyndb.ErrNotFound)
}
