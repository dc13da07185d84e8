// dyndb/store.go
package dyndb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/envloader"
)

// ErrAlreadyExists é retornado por Create quando a chave já está ocupada.
var ErrAlreadyExists = errors.New("dyndb: item already exists")

// batchLimit é o máximo de operações por BatchWriteItem.
const batchLimit = 25

// Table opera sobre a tabela larga (pk, sk) e seu índice de listagem.
type Table struct {
	client DynamoDBClient
	cfg    TableConfig
}

// New cria uma Table reutilizável
func New(client DynamoDBClient, cfg TableConfig) *Table {
	return &Table{
		client: client,
		cfg:    cfg.withDefaults(),
	}
}

// NewFromEnv cria a Table com a configuração lida das variáveis DYNAMODB_*.
func NewFromEnv(client DynamoDBClient) (*Table, error) {
	var cfg TableConfig
	if err := envloader.Load(&cfg); err != nil {
		return nil, fmt.Errorf("dyndb: load table config: %w", err)
	}
	if cfg.TableName == "" {
		return nil, fmt.Errorf("dyndb: load table config: %w",
			&envloader.MissingRequiredError{FieldName: "TableName", EnvVar: "DYNAMODB_TABLE_NAME"})
	}
	return New(client, cfg), nil
}

// Config retorna a configuração efetiva da tabela.
func (t *Table) Config() TableConfig {
	return t.cfg
}

func (t *Table) key(k Key) Item {
	return Item{
		t.cfg.HashKey: &types.AttributeValueMemberS{Value: k.PK},
		t.cfg.SortKey: &types.AttributeValueMemberS{Value: k.SK},
	}
}

// Get item por chave primária
func (t *Table) Get(ctx context.Context, k Key) (Item, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.cfg.TableName),
		Key:            t.key(k),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dyndb: get failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	return out.Item, nil
}

// Create grava o item somente se a chave ainda não existir.
func (t *Table) Create(ctx context.Context, item Item) error {
	cond := expression.AttributeNotExists(expression.Name(t.cfg.HashKey))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("dyndb: build condition failed: %w", err)
	}

	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(t.cfg.TableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("dyndb: create failed: %w", err)
	}
	return nil
}

// Update aplica SET nos atributos informados.
func (t *Table) Update(ctx context.Context, k Key, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	var update expression.UpdateBuilder
	for name, v := range values {
		update = update.Set(expression.Name(name), expression.Value(v))
	}
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("dyndb: build update failed: %w", err)
	}

	_, err = t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.cfg.TableName),
		Key:                       t.key(k),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("dyndb: update failed: %w", err)
	}
	return nil
}

// Delete item
func (t *Table) Delete(ctx context.Context, k Key) error {
	_, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(t.cfg.TableName),
		Key:       t.key(k),
	})
	if err != nil {
		return fmt.Errorf("dyndb: delete failed: %w", err)
	}
	return nil
}

// BatchWrite — puts + deletes em lotes de 25, reenviando itens não processados
func (t *Table) BatchWrite(ctx context.Context, puts []Item, deletes []Key) error {
	requests := make([]types.WriteRequest, 0, len(puts)+len(deletes))
	for _, item := range puts {
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}
	for _, k := range deletes {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: t.key(k)},
		})
	}

	for i := 0; i < len(requests); i += batchLimit {
		end := i + batchLimit
		if end > len(requests) {
			end = len(requests)
		}
		if err := t.writeChunk(ctx, requests[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) writeChunk(ctx context.Context, chunk []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{t.cfg.TableName: chunk}
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt < 5; attempt++ {
		out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: pending,
		})
		if err != nil {
			return fmt.Errorf("dyndb: batchwrite failed: %w", err)
		}
		if len(out.UnprocessedItems) == 0 {
			return nil
		}
		pending = out.UnprocessedItems

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("dyndb: batchwrite left %d unprocessed items", len(pending[t.cfg.TableName]))
}

// Query inicia uma Query na tabela base.
func (t *Table) Query() *QueryBuilder {
	return &QueryBuilder{
		table:       t,
		scanForward: aws.Bool(true),
	}
}

// ListView inicia uma Query no índice de listagem restrita a uma partição
// de entidade (sk = partition), ordenada por STARK-ListView-sk.
func (t *Table) ListView(partition string) *QueryBuilder {
	return t.Query().
		Index(t.cfg.ListViewIndex).
		KeyEqual(t.cfg.SortKey, partition)
}
