// dyndb/query.go
package dyndb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryBuilder — o builder fluente
type QueryBuilder struct {
	table       *Table
	keyCond     *expression.KeyConditionBuilder
	filterCond  *expression.ConditionBuilder
	indexName   *string
	limit       *int32
	startKey    Cursor
	scanForward *bool
}

func (qb *QueryBuilder) Index(name string) *QueryBuilder {
	qb.indexName = aws.String(name)
	return qb
}

func (qb *QueryBuilder) KeyEqual(key string, value any) *QueryBuilder {
	cond := expression.KeyEqual(expression.Key(key), expression.Value(value))
	if qb.keyCond == nil {
		qb.keyCond = &cond
	} else {
		tmp := qb.keyCond.And(cond)
		qb.keyCond = &tmp
	}
	return qb
}

// Filter acrescenta uma condição de filtro (aplicada após o Limit).
func (qb *QueryBuilder) Filter(cond expression.ConditionBuilder) *QueryBuilder {
	if qb.filterCond == nil {
		qb.filterCond = &cond
	} else {
		tmp := qb.filterCond.And(cond)
		qb.filterCond = &tmp
	}
	return qb
}

func (qb *QueryBuilder) FilterEqual(field string, value any) *QueryBuilder {
	return qb.Filter(expression.Equal(expression.Name(field), expression.Value(value)))
}

func (qb *QueryBuilder) Limit(n int32) *QueryBuilder {
	if n > 0 {
		qb.limit = &n
	}
	return qb
}

// StartFrom continua a partir de um cursor devolvido por uma página anterior.
func (qb *QueryBuilder) StartFrom(c Cursor) *QueryBuilder {
	if len(c) > 0 {
		qb.startKey = c
	}
	return qb
}

// Input monta o QueryInput sem executá-lo.
func (qb *QueryBuilder) Input() (*dynamodb.QueryInput, error) {
	if qb.keyCond == nil {
		return nil, fmt.Errorf("dyndb: query without key condition")
	}

	builder := expression.NewBuilder().WithKeyCondition(*qb.keyCond)
	if qb.filterCond != nil {
		builder = builder.WithFilter(*qb.filterCond)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("dyndb: build expression failed: %w", err)
	}

	return &dynamodb.QueryInput{
		TableName:                 aws.String(qb.table.cfg.TableName),
		IndexName:                 qb.indexName,
		Select:                    types.SelectAllAttributes,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     qb.limit,
		ScanIndexForward:          qb.scanForward,
		ExclusiveStartKey:         qb.startKey,
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	}, nil
}

// Exec executa uma única chamada Query e devolve a página.
func (qb *QueryBuilder) Exec(ctx context.Context) (Page, error) {
	input, err := qb.Input()
	if err != nil {
		return Page{}, err
	}

	out, err := qb.table.client.Query(ctx, input)
	if err != nil {
		return Page{}, fmt.Errorf("dyndb: query failed: %w", err)
	}

	page := Page{Items: out.Items, ScannedCount: out.ScannedCount}
	if len(out.LastEvaluatedKey) > 0 {
		page.Next = Cursor(out.LastEvaluatedKey)
	}
	return page, nil
}
