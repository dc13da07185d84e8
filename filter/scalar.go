package filter

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/raywall/stark-toolkit/schema"
)

// Scalar é um valor de parâmetro já tipado. Implementa
// attributevalue.Marshaler, então pode ser passado direto para
// expression.Value sem perder a tag de tipo.
type Scalar struct {
	Type  schema.FieldType
	Value string
}

func newScalar(t schema.FieldType, raw string) (Scalar, error) {
	switch t {
	case schema.TypeNumber:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return Scalar{}, fmt.Errorf("%q is not a number", raw)
		}
	case schema.TypeBool:
		if _, err := strconv.ParseBool(raw); err != nil {
			return Scalar{}, fmt.Errorf("%q is not a boolean", raw)
		}
	}
	return Scalar{Type: t, Value: raw}, nil
}

// AttributeValue converte para o tipo do SDK.
func (s Scalar) AttributeValue() types.AttributeValue {
	switch s.Type {
	case schema.TypeNumber:
		return &types.AttributeValueMemberN{Value: s.Value}
	case schema.TypeBool:
		b, _ := strconv.ParseBool(s.Value)
		return &types.AttributeValueMemberBOOL{Value: b}
	default:
		return &types.AttributeValueMemberS{Value: s.Value}
	}
}

// MarshalDynamoDBAttributeValue satisfaz attributevalue.Marshaler.
func (s Scalar) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return s.AttributeValue(), nil
}

func (s Scalar) String() string {
	return s.Value
}
