package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/filter"
	"github.com/raywall/stark-toolkit/pkg/metrics"
	"github.com/raywall/stark-toolkit/pkg/rules"
	"github.com/raywall/stark-toolkit/query"
	"github.com/raywall/stark-toolkit/report"
	"github.com/raywall/stark-toolkit/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tableCfg = dyndb.TableConfig{TableName: "stark-data"}

func roles() *schema.Entity {
	return &schema.Entity{
		Name:       "STARK_User_Roles",
		PKField:    "Role_Name",
		Partition:  "STARK|role",
		SortFields: []string{"Role_Name"},
		Fields: []schema.Field{
			{Name: "Role_Name", Type: schema.TypeString, Attribute: "pk"},
			{Name: "Description", Type: schema.TypeString},
			{Name: "Permissions", Type: schema.TypeString},
			{Name: "Level", Type: schema.TypeNumber},
			{Name: "Active", Type: schema.TypeBool},
		},
	}
}

func users() *schema.Entity {
	return &schema.Entity{
		Name:       "STARK_User",
		PKField:    "Username",
		Partition:  "STARK|user",
		SortFields: []string{"Role", "Username"},
		Fields: []schema.Field{
			{Name: "Username", Type: schema.TypeString, Attribute: "pk"},
			{Name: "Role", Type: schema.TypeString},
		},
	}
}

type memStore struct {
	mu    sync.Mutex
	names []string
}

func (m *memStore) Put(_ context.Context, name string, _ []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	return "stark-reports.s3.us-east-1.amazonaws.com/tmp/" + name, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

type fixture struct {
	client  *dyndb.MemoryClient
	table   *dyndb.Table
	store   *memStore
	cache   *mapCache
	metrics *metrics.Recorder
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := dyndb.NewMemoryClient(tableCfg)
	table := dyndb.New(client, tableCfg)
	rm, err := rules.NewRuleManager()
	require.NoError(t, err)

	f := &fixture{
		client:  client,
		table:   table,
		store:   &memStore{},
		cache:   newMapCache(),
		metrics: &metrics.Recorder{},
	}
	f.deps = Deps{
		Table:    table,
		Executor: query.NewExecutor(table, query.Options{PageLimit: 10}),
		Renderer: report.NewRenderer(f.store),
		Rules:    rm,
		Cache:    f.cache,
		Metrics:  f.metrics,
	}
	return f
}

func rolePayload(name, desc string) Payload {
	return Payload{Values: map[string]string{
		"Role_Name":   name,
		"Description": desc,
		"Permissions": "read",
		"Level":       "3",
		"Active":      "true",
	}}
}

func str(item dyndb.Item, attr string) string {
	if v, ok := item[attr].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func TestService_AddAndDetail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewService(roles(), f.deps)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rolePayload("Admin", "Full access")))

	item, err := f.table.Get(ctx, dyndb.Key{PK: "Admin", SK: "STARK|role"})
	require.NoError(t, err)
	assert.Equal(t, "Admin", str(item, "STARK-ListView-sk"))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, item["Level"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, item["Active"])

	err = svc.Add(ctx, rolePayload("Admin", "again"))
	assert.ErrorIs(t, err, dyndb.ErrAlreadyExists)

	rec, err := svc.Detail(ctx, "Admin", "")
	require.NoError(t, err)
	assert.Equal(t, "Admin", rec.String("Role_Name"))
	assert.Equal(t, "Full access", rec.String("Description"))
	assert.Equal(t, "3", rec.String("Level"))
	assert.Equal(t, 0, f.cache.hits)

	_, err = svc.Detail(ctx, "Admin", "STARK|role")
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits, "segunda leitura deve vir do cache")

	_, err = svc.Detail(ctx, "Nobody", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Validation(t *testing.T) {
	t.Parallel()

	entity := roles()
	entity.Fields[1].Required = true
	entity.Fields[1].Validate = "max=12"
	entity.Fields[2].Rule = `value in ["read", "write"]`
	entity.Fields[3].Rule = `value <= 10`

	tests := []struct {
		name   string
		mutate func(*Payload)
		field  string
		rule   string
	}{
		{name: "missing pk", mutate: func(p *Payload) { p.Values["Role_Name"] = " " }, field: "Role_Name", rule: "required"},
		{name: "required field", mutate: func(p *Payload) { p.Values["Description"] = "" }, field: "Description", rule: "required"},
		{name: "validator tag", mutate: func(p *Payload) { p.Values["Description"] = strings.Repeat("x", 13) }, field: "Description", rule: "max=12"},
		{name: "number type", mutate: func(p *Payload) { p.Values["Level"] = "high" }, field: "Level", rule: "type"},
		{name: "bool type", mutate: func(p *Payload) { p.Values["Active"] = "maybe" }, field: "Active", rule: "type"},
		{name: "cel rule on string", mutate: func(p *Payload) { p.Values["Permissions"] = "root" }, field: "Permissions", rule: "rule"},
		{name: "cel rule on number", mutate: func(p *Payload) { p.Values["Level"] = "11" }, field: "Level", rule: "rule"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			svc := NewService(entity, f.deps)

			p := rolePayload("Admin", "ok")
			tt.mutate(&p)
			err := svc.Add(context.Background(), p)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "erro inesperado: %v", err)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.rule, ve.Rule)
			assert.Empty(t, f.client.Items(), "nada deve ser gravado")
		})
	}

	t.Run("hook", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := NewService(roles(), f.deps)
		boom := errors.New("reserved role")
		svc.RegisterHook(func(_ context.Context, _ *schema.Entity, p *Payload) error {
			if p.Values["Role_Name"] == "root" {
				return boom
			}
			p.Values["Description"] = strings.ToUpper(p.Values["Description"])
			return nil
		})

		assert.ErrorIs(t, svc.Add(context.Background(), rolePayload("root", "x")), boom)
		require.NoError(t, svc.Add(context.Background(), rolePayload("Ops", "operators")))
		rec, err := svc.Detail(context.Background(), "Ops", "")
		require.NoError(t, err)
		assert.Equal(t, "OPERATORS", rec.String("Description"))
	})
}

func TestService_EditInPlace(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewService(roles(), f.deps)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rolePayload("Admin", "Full access")))
	_, err := svc.Detail(ctx, "Admin", "")
	require.NoError(t, err)

	p := rolePayload("Admin", "Changed")
	p.OrigPK = "Admin"
	p.Values["Level"] = "7"
	require.NoError(t, svc.Edit(ctx, p))

	rec, err := svc.Detail(ctx, "Admin", "")
	require.NoError(t, err)
	assert.Equal(t, "Changed", rec.String("Description"), "cache deve ser invalidado na edição")
	assert.Equal(t, "7", rec.String("Level"))
	assert.Len(t, f.client.Items(), 1)
}

func TestService_EditRenameCascades(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	userSvc := NewService(users(), f.deps)

	cascade, err := NewReferenceCascade(userSvc, "Role")
	require.NoError(t, err)
	svc := NewService(roles(), f.deps, cascade)

	require.NoError(t, svc.Add(ctx, rolePayload("Admin", "Full access")))
	for _, u := range []struct{ name, role string }{{"ana", "Admin"}, {"bob", "Admin"}, {"eve", "Viewer"}} {
		f.client.Seed(dyndb.Item{
			"pk":                &types.AttributeValueMemberS{Value: u.name},
			"sk":                &types.AttributeValueMemberS{Value: "STARK|user"},
			"Role":              &types.AttributeValueMemberS{Value: u.role},
			"STARK-ListView-sk": &types.AttributeValueMemberS{Value: u.role + "|" + u.name},
		})
	}
	// aquece o cache de Detail do filho
	cached, err := userSvc.Detail(ctx, "ana", "")
	require.NoError(t, err)
	assert.Equal(t, "Admin", cached.String("Role"))

	// emula o FilterExpression Role = "Admin" do cascade
	f.client.FilterFn = func(it dyndb.Item) bool { return str(it, "Role") == "Admin" }

	p := rolePayload("Administrator", "Full access")
	p.OrigPK = "Admin"
	require.NoError(t, svc.Edit(ctx, p))

	_, err = f.table.Get(ctx, dyndb.Key{PK: "Admin", SK: "STARK|role"})
	assert.ErrorIs(t, err, dyndb.ErrNotFound)
	renamed, err := f.table.Get(ctx, dyndb.Key{PK: "Administrator", SK: "STARK|role"})
	require.NoError(t, err)
	assert.Equal(t, "Administrator", str(renamed, "STARK-ListView-sk"))

	for _, name := range []string{"ana", "bob"} {
		u, err := f.table.Get(ctx, dyndb.Key{PK: name, SK: "STARK|user"})
		require.NoError(t, err)
		assert.Equal(t, "Administrator", str(u, "Role"))
		assert.Equal(t, "Administrator|"+name, str(u, "STARK-ListView-sk"))
	}
	eve, err := f.table.Get(ctx, dyndb.Key{PK: "eve", SK: "STARK|user"})
	require.NoError(t, err)
	assert.Equal(t, "Viewer", str(eve, "Role"))

	fresh, err := userSvc.Detail(ctx, "ana", "")
	require.NoError(t, err)
	assert.Equal(t, "Administrator", fresh.String("Role"))
}

func TestService_Delete(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewService(roles(), f.deps)
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, rolePayload("Admin", "Full access")))
	require.NoError(t, svc.Delete(ctx, Payload{Values: map[string]string{"Role_Name": "Admin"}}))
	assert.Empty(t, f.client.Items())

	var ve *ValidationError
	assert.True(t, errors.As(svc.Delete(ctx, Payload{}), &ve))
}

func TestService_List(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	svc := NewService(roles(), f.deps)
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		require.NoError(t, svc.Add(ctx, rolePayload(fmt.Sprintf("Role%02d", i), "d")))
	}

	first, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, "Role00", first.Items[0].String("Role_Name"))
	require.NotEmpty(t, first.Next)

	second, err := svc.List(ctx, first.Next)
	require.NoError(t, err)
	assert.Len(t, second.Items, 5)
	assert.Equal(t, "Role10", second.Items[0].String("Role_Name"))
	assert.Empty(t, second.Next)

	_, err = svc.List(ctx, "%%%not-a-token")
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestService_Report(t *testing.T) {
	t.Parallel()

	t.Run("filters, renders and stores", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := NewService(roles(), f.deps)
		ctx := context.Background()
		for i := 0; i < 25; i++ {
			require.NoError(t, svc.Add(ctx, rolePayload(fmt.Sprintf("Role%02d", i), "d")))
		}

		res, err := svc.Report(ctx, ReportRequest{
			Fields: []string{"Role Name", "Level"},
			Filters: map[string]filter.Spec{
				"Role_Name":   {Operator: "begins_with", Value: "Role", Type: "S"},
				"Description": {Operator: "", Value: ""},
			},
		})
		require.NoError(t, err)

		assert.Len(t, res.Items, 25, "relatório percorre a partição inteira")
		assert.Empty(t, res.Next)
		require.Len(t, res.Parameters, 1)
		assert.Equal(t, "Begins with Role", res.Parameters[0].Text)
		assert.True(t, strings.HasSuffix(res.Artifacts.CSV, res.Artifacts.ID+".csv"))
		assert.True(t, strings.HasSuffix(res.Artifacts.PDF, res.Artifacts.ID+".pdf"))
		assert.Equal(t, []string{res.Artifacts.ID + ".csv", res.Artifacts.ID + ".pdf"}, f.store.names)

		queries := f.client.Queries()
		require.NotEmpty(t, queries)
		assert.NotNil(t, queries[0].FilterExpression)
		assert.Nil(t, queries[0].Limit)

		assert.Len(t, f.metrics.Find(metrics.ReportRows), 1)
		assert.Len(t, f.metrics.Find(metrics.ReportLatency), 1)
	})

	t.Run("missing operator rejected before storage", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := NewService(roles(), f.deps)

		_, err := svc.Report(context.Background(), ReportRequest{
			Filters: map[string]filter.Spec{"Description": {Value: "x"}},
		})
		assert.ErrorIs(t, err, filter.ErrMissingOperator)
		assert.Empty(t, f.client.Queries())
		assert.Empty(t, f.store.names)
		assert.Len(t, f.metrics.Find(metrics.ReportErrors), 1)
	})

	t.Run("unknown report field rejected before storage", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := NewService(roles(), f.deps)

		_, err := svc.Report(context.Background(), ReportRequest{Fields: []string{"Salary"}})
		assert.ErrorIs(t, err, report.ErrUnknownReportField)
		assert.Empty(t, f.client.Queries())
	})
}
