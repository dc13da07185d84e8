package dyndb

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrInvalidCursor indica um token de continuação que não pôde ser decodificado.
var ErrInvalidCursor = errors.New("dyndb: invalid cursor")

// Cursor é a LastEvaluatedKey devolvida pelo DynamoDB, opaca para o cliente.
type Cursor map[string]types.AttributeValue

// cursorValue preserva a tag de tipo de cada atributo da chave.
type cursorValue struct {
	S *string `json:"S,omitempty"`
	N *string `json:"N,omitempty"`
	B []byte  `json:"B,omitempty"`
}

// Encode serializa o cursor como JSON tipado em base64 URL-safe.
// Cursor vazio vira string vazia.
func (c Cursor) Encode() (string, error) {
	if len(c) == 0 {
		return "", nil
	}
	raw := make(map[string]cursorValue, len(c))
	for name, av := range c {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			raw[name] = cursorValue{S: &v.Value}
		case *types.AttributeValueMemberN:
			raw[name] = cursorValue{N: &v.Value}
		case *types.AttributeValueMemberB:
			raw[name] = cursorValue{B: v.Value}
		default:
			return "", fmt.Errorf("%w: unsupported key type %T for %q", ErrInvalidCursor, av, name)
		}
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// String devolve o token ou vazio em caso de erro.
func (c Cursor) String() string {
	s, _ := c.Encode()
	return s
}

// DecodeCursor faz o caminho inverso de Encode. Token vazio devolve cursor nil.
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var raw map[string]cursorValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidCursor)
	}

	cursor := make(Cursor, len(raw))
	for name, v := range raw {
		switch {
		case v.S != nil:
			cursor[name] = &types.AttributeValueMemberS{Value: *v.S}
		case v.N != nil:
			cursor[name] = &types.AttributeValueMemberN{Value: *v.N}
		case v.B != nil:
			cursor[name] = &types.AttributeValueMemberB{Value: v.B}
		default:
			return nil, fmt.Errorf("%w: untyped value for %q", ErrInvalidCursor, name)
		}
	}
	return cursor, nil
}
