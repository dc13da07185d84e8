package query

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/schema"
)

// SortKeyField é a chave com que o sk do registro aparece no Record.
const SortKeyField = "sk"

// Record é um item normalizado pelo schema: a PK aparece sob o nome do
// campo declarado, sk é preservado e cada campo declarado está presente
// (string vazia quando ausente no armazenamento).
type Record map[string]any

// String devolve o valor de um campo formatado para exibição.
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

// Normalize converte um item bruto em Record seguindo a entidade.
func Normalize(entity *schema.Entity, item dyndb.Item, hashKey, sortKey string) Record {
	rec := make(Record, len(entity.Fields)+1)
	for _, f := range entity.Fields {
		attr := f.Attr()
		if f.Name == entity.PKField {
			attr = hashKey
		}
		rec[f.Name] = value(item[attr])
	}
	rec[SortKeyField] = value(item[sortKey])
	return rec
}

// value mantém números como texto para não perder precisão na exibição.
func value(av types.AttributeValue) any {
	switch v := av.(type) {
	case nil:
		return ""
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return ""
	}
	var out any
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return ""
	}
	return out
}
