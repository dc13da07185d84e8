package filter

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// Param é um parâmetro vinculado a uma condição.
type Param struct {
	ID    string
	Value Scalar
}

// Condition é um nó da expressão: atributo, operador e parâmetros.
// Nenhum texto de consulta é montado aqui; a renderização acontece em
// String (forma canônica) ou em Builder (fronteira com o DynamoDB).
type Condition struct {
	Field    string
	Operator Operator
	Params   []Param
}

// String renderiza a condição na sintaxe nativa do DynamoDB.
func (c Condition) String() string {
	ids := make([]string, len(c.Params))
	for i, p := range c.Params {
		ids[i] = p.ID
	}

	switch c.Operator {
	case OpIn:
		return fmt.Sprintf("%s IN (%s)", c.Field, strings.Join(ids, ", "))
	case OpContains, OpBeginsWith:
		return fmt.Sprintf("%s(%s, %s)", c.Operator, c.Field, ids[0])
	case OpBetween:
		return fmt.Sprintf("(%s BETWEEN %s AND %s)", c.Field, ids[0], ids[1])
	default:
		return fmt.Sprintf("%s %s %s", c.Field, c.Operator.symbol(), ids[0])
	}
}

// Builder converte a condição para o expression builder do SDK, que
// escapa nomes de atributos (#0) e valores (:0).
func (c Condition) Builder() expression.ConditionBuilder {
	name := expression.Name(c.Field)
	value := func(i int) expression.ValueBuilder {
		return expression.Value(c.Params[i].Value)
	}

	switch c.Operator {
	case OpIn:
		others := make([]expression.OperandBuilder, 0, len(c.Params)-1)
		for i := 1; i < len(c.Params); i++ {
			others = append(others, value(i))
		}
		return name.In(value(0), others...)
	case OpContains:
		return expression.Contains(name, c.Params[0].Value.Value)
	case OpBeginsWith:
		return expression.BeginsWith(name, c.Params[0].Value.Value)
	case OpBetween:
		return name.Between(value(0), value(1))
	case OpGreater:
		return name.GreaterThan(value(0))
	case OpGreaterEqual:
		return name.GreaterThanEqual(value(0))
	case OpLess:
		return name.LessThan(value(0))
	case OpLessEqual:
		return name.LessThanEqual(value(0))
	case OpNotEqual:
		return name.NotEqual(value(0))
	default:
		return name.Equal(value(0))
	}
}

// Expression é a conjunção ordenada das condições. O valor zero representa
// a listagem incondicional da partição.
type Expression struct {
	conditions []Condition
}

// And devolve uma nova expressão com a condição anexada ao final.
func (e Expression) And(c Condition) Expression {
	next := make([]Condition, len(e.conditions), len(e.conditions)+1)
	copy(next, e.conditions)
	return Expression{conditions: append(next, c)}
}

func (e Expression) Empty() bool {
	return len(e.conditions) == 0
}

func (e Expression) Conditions() []Condition {
	return e.conditions
}

// String junta as condições com um único AND, sem conjunção sobrando.
func (e Expression) String() string {
	parts := make([]string, len(e.conditions))
	for i, c := range e.conditions {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// Params retorna todos os parâmetros vinculados, indexados pelo id.
func (e Expression) Params() map[string]Scalar {
	params := make(map[string]Scalar)
	for _, c := range e.conditions {
		for _, p := range c.Params {
			params[p.ID] = p.Value
		}
	}
	return params
}

// Condition monta o ConditionBuilder do SDK. ok é false para a expressão vazia.
func (e Expression) Condition() (cond expression.ConditionBuilder, ok bool) {
	switch len(e.conditions) {
	case 0:
		return expression.ConditionBuilder{}, false
	case 1:
		return e.conditions[0].Builder(), true
	}
	rest := make([]expression.ConditionBuilder, 0, len(e.conditions)-2)
	for _, c := range e.conditions[2:] {
		rest = append(rest, c.Builder())
	}
	return expression.And(e.conditions[0].Builder(), e.conditions[1].Builder(), rest...), true
}
