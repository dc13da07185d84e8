package filter

import "strings"

// Operator é o operador de um filtro de relatório.
type Operator string

const (
	OpIn           Operator = "IN"
	OpContains     Operator = "contains"
	OpBeginsWith   Operator = "begins_with"
	OpBetween      Operator = "between"
	OpEqual        Operator = "="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpNotEqual     Operator = "!="
)

var comparisonPhrases = map[Operator]string{
	OpEqual:        "Is equal to",
	OpGreater:      "Is greater than",
	OpGreaterEqual: "Is greater than or equal to",
	OpLess:         "Is less than",
	OpLessEqual:    "Is less than or equal to",
	OpNotEqual:     "Is not equal to",
}

// ParseOperator normaliza o operador recebido do cliente. "<>" é aceito
// como sinônimo de "!=".
func ParseOperator(raw string) (Operator, bool) {
	op := Operator(strings.TrimSpace(raw))
	if op == "<>" {
		return OpNotEqual, true
	}
	switch op {
	case OpIn, OpContains, OpBeginsWith, OpBetween:
		return op, true
	}
	if _, ok := comparisonPhrases[op]; ok {
		return op, true
	}
	return op, false
}

// IsComparison indica operadores binários simples.
func (o Operator) IsComparison() bool {
	_, ok := comparisonPhrases[o]
	return ok
}

// symbol é a grafia nativa do DynamoDB.
func (o Operator) symbol() string {
	if o == OpNotEqual {
		return "<>"
	}
	return string(o)
}

// phrase retorna a descrição em linguagem natural do operador, sem o valor.
func (o Operator) phrase() string {
	switch o {
	case OpContains, OpBeginsWith:
		s := strings.ReplaceAll(string(o), "_", " ")
		return strings.ToUpper(s[:1]) + s[1:]
	case OpIn:
		return "Is in"
	case OpBetween:
		return "Between"
	}
	if p, ok := comparisonPhrases[o]; ok {
		return p
	}
	return "Invalid operator"
}
