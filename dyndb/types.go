// dyndb/types.go
package dyndb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrNotFound – erro padrão quando o item não existe
var ErrNotFound = errors.New("dyndb: item not found")

// DynamoDBClient interface para abstrair o cliente DynamoDB
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Item é um registro bruto da tabela larga.
type Item = map[string]types.AttributeValue

// Key identifica um registro pela chave composta (pk, sk).
type Key struct {
	PK string
	SK string
}

// TableConfig — configuração da tabela larga e do índice de listagem
type TableConfig struct {
	TableName       string `env:"DYNAMODB_TABLE_NAME" validate:"required"`
	HashKey         string `env:"DYNAMODB_HASH_KEY" envDefault:"pk"`
	SortKey         string `env:"DYNAMODB_SORT_KEY" envDefault:"sk"`
	ListViewIndex   string `env:"DYNAMODB_LISTVIEW_INDEX" envDefault:"STARK-ListView-Index"`
	ListViewSortKey string `env:"DYNAMODB_LISTVIEW_SORT_KEY" envDefault:"STARK-ListView-sk"`
}

func (c TableConfig) withDefaults() TableConfig {
	if c.HashKey == "" {
		c.HashKey = "pk"
	}
	if c.SortKey == "" {
		c.SortKey = "sk"
	}
	if c.ListViewIndex == "" {
		c.ListViewIndex = "STARK-ListView-Index"
	}
	if c.ListViewSortKey == "" {
		c.ListViewSortKey = "STARK-ListView-sk"
	}
	return c
}

// Page é uma página de resultados de Query.
type Page struct {
	Items        []Item
	Next         Cursor
	ScannedCount int32
}

// HasMore indica se existe continuação.
func (p Page) HasMore() bool {
	return len(p.Next) > 0
}
