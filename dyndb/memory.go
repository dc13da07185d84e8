package dyndb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MemoryClient é um DynamoDBClient em memória para testes e para o modo
// local sem AWS. Entende as expressões geradas pelo QueryBuilder e pela
// Table: igualdade em KeyConditionExpression, SET em UpdateExpression e
// attribute_not_exists em ConditionExpression.
//
// FilterExpression não é interpretada; use FilterFn para emular o filtro.
// Assim como no DynamoDB, o filtro roda depois do Limit.
type MemoryClient struct {
	FilterFn func(Item) bool

	mu      sync.Mutex
	cfg     TableConfig
	items   map[string]Item
	queries []*dynamodb.QueryInput
}

func NewMemoryClient(cfg TableConfig) *MemoryClient {
	return &MemoryClient{
		cfg:   cfg.withDefaults(),
		items: make(map[string]Item),
	}
}

// Seed grava itens diretamente, sem passar pela API.
func (m *MemoryClient) Seed(items ...Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[m.id(it)] = clone(it)
	}
}

// Items devolve uma cópia de todos os itens armazenados.
func (m *MemoryClient) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, clone(it))
	}
	return out
}

// Queries devolve os QueryInput recebidos, na ordem.
func (m *MemoryClient) Queries() []*dynamodb.QueryInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*dynamodb.QueryInput(nil), m.queries...)
}

func (m *MemoryClient) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[m.id(params.Key)]; ok {
		return &dynamodb.GetItemOutput{Item: clone(it)}, nil
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *MemoryClient) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id(params.Item)
	if _, exists := m.items[id]; exists && strings.Contains(aws.ToString(params.ConditionExpression), "attribute_not_exists") {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	m.items[id] = clone(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (m *MemoryClient) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expr := strings.TrimSpace(aws.ToString(params.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("memory: unsupported update expression %q", expr)
	}

	id := m.id(params.Key)
	item, ok := m.items[id]
	if !ok {
		item = clone(params.Key)
	}
	for _, assign := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		lhs, rhs, found := strings.Cut(assign, "=")
		if !found {
			return nil, fmt.Errorf("memory: malformed assignment %q", assign)
		}
		name := resolveName(strings.TrimSpace(lhs), params.ExpressionAttributeNames)
		value, ok := params.ExpressionAttributeValues[strings.TrimSpace(rhs)]
		if !ok {
			return nil, fmt.Errorf("memory: missing value %q", rhs)
		}
		item[name] = value
	}
	m.items[id] = item
	return &dynamodb.UpdateItemOutput{}, nil
}

func (m *MemoryClient) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, m.id(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *MemoryClient) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reqs := range params.RequestItems {
		for _, r := range reqs {
			switch {
			case r.PutRequest != nil:
				m.items[m.id(r.PutRequest.Item)] = clone(r.PutRequest.Item)
			case r.DeleteRequest != nil:
				delete(m.items, m.id(r.DeleteRequest.Key))
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (m *MemoryClient) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, params)

	conds, err := parseKeyCondition(params)
	if err != nil {
		return nil, err
	}

	var matched []Item
	for _, it := range m.items {
		ok := true
		for name, want := range conds {
			if scalar(it[name]) != want {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, it)
		}
	}

	onIndex := aws.ToString(params.IndexName) == m.cfg.ListViewIndex
	sortKey := m.cfg.SortKey
	if onIndex {
		sortKey = m.cfg.ListViewSortKey
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := scalar(matched[i][sortKey]), scalar(matched[j][sortKey])
		if a != b {
			return a < b
		}
		return m.id(matched[i]) < m.id(matched[j])
	})
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	start := 0
	if len(params.ExclusiveStartKey) > 0 {
		after := m.id(params.ExclusiveStartKey)
		for i, it := range matched {
			if m.id(it) == after {
				start = i + 1
				break
			}
		}
	}

	end := len(matched)
	limited := params.Limit != nil && *params.Limit > 0
	if limited && start+int(*params.Limit) < end {
		end = start + int(*params.Limit)
	}
	evaluated := matched[start:end]

	out := &dynamodb.QueryOutput{ScannedCount: int32(len(evaluated))}
	for _, it := range evaluated {
		if m.FilterFn == nil || m.FilterFn(it) {
			out.Items = append(out.Items, clone(it))
		}
	}
	out.Count = int32(len(out.Items))

	if limited && len(evaluated) == int(*params.Limit) {
		last := evaluated[len(evaluated)-1]
		lek := Item{
			m.cfg.HashKey: last[m.cfg.HashKey],
			m.cfg.SortKey: last[m.cfg.SortKey],
		}
		if onIndex {
			if v, ok := last[m.cfg.ListViewSortKey]; ok {
				lek[m.cfg.ListViewSortKey] = v
			}
		}
		out.LastEvaluatedKey = lek
	}
	return out, nil
}

func (m *MemoryClient) id(it Item) string {
	return scalar(it[m.cfg.HashKey]) + "\x00" + scalar(it[m.cfg.SortKey])
}

// parseKeyCondition entende "#0 = :0" e "(#0 = :0) AND (#1 = :1)".
func parseKeyCondition(params *dynamodb.QueryInput) (map[string]string, error) {
	expr := aws.ToString(params.KeyConditionExpression)
	conds := make(map[string]string)
	for _, part := range strings.Split(expr, " AND ") {
		part = strings.Trim(strings.TrimSpace(part), "()")
		lhs, rhs, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("memory: unsupported key condition %q", expr)
		}
		name := resolveName(strings.TrimSpace(lhs), params.ExpressionAttributeNames)
		value, ok := params.ExpressionAttributeValues[strings.TrimSpace(rhs)]
		if !ok {
			return nil, fmt.Errorf("memory: missing value %q", rhs)
		}
		conds[name] = scalar(value)
	}
	return conds, nil
}

func resolveName(token string, names map[string]string) string {
	if n, ok := names[token]; ok {
		return n
	}
	return token
}

func scalar(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func clone(it Item) Item {
	out := make(Item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
