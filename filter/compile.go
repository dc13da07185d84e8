package filter

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/raywall/stark-toolkit/schema"
)

// Spec é o filtro enviado pelo cliente para um campo.
type Spec struct {
	Operator string `json:"operator"`
	Value    string `json:"value"`
	Type     string `json:"type"`
}

// UnmarshalJSON aceita value como string ou como literal JSON (número, bool).
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw struct {
		Operator string          `json:"operator"`
		Value    json.RawMessage `json:"value"`
		Type     string          `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Operator, s.Type, s.Value = raw.Operator, raw.Type, ""

	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}
	var str string
	if err := json.Unmarshal(raw.Value, &str); err == nil {
		s.Value = str
		return nil
	}
	s.Value = string(raw.Value)
	return nil
}

// Active indica se o filtro deve ser aplicado.
func (s Spec) Active() bool {
	return strings.TrimSpace(s.Value) != ""
}

// Description é a descrição legível de um filtro aplicado, usada no
// bloco de parâmetros do relatório.
type Description struct {
	Field string
	Label string
	Text  string
}

// Compile transforma o filtro de um campo em uma condição parametrizada e
// na sua descrição. Não faz I/O.
func Compile(field schema.Field, spec Spec) (Condition, Description, error) {
	name := field.Name
	if !spec.Active() {
		return Condition{}, Description{}, fieldErr(name, ErrMalformedFilterValue, "empty value")
	}
	if strings.TrimSpace(spec.Operator) == "" {
		return Condition{}, Description{}, fieldErr(name, ErrMissingOperator, "")
	}

	op, known := ParseOperator(spec.Operator)
	if !known {
		return Condition{}, Description{}, fieldErr(name, ErrUnsupportedOperator, "%q", spec.Operator)
	}
	if !field.Allows(string(op)) {
		return Condition{}, Description{}, fieldErr(name, ErrUnsupportedOperator, "%q not allowed", spec.Operator)
	}

	typ := field.Type
	if spec.Type != "" {
		t, err := schema.ParseFieldType(spec.Type)
		if err != nil {
			return Condition{}, Description{}, fieldErr(name, ErrMalformedFilterValue, "unknown type %q", spec.Type)
		}
		typ = t
	}
	if typ == "" {
		typ = schema.TypeString
	}
	if (op == OpContains || op == OpBeginsWith) && typ != schema.TypeString {
		return Condition{}, Description{}, fieldErr(name, ErrUnsupportedOperator, "%s requires a string value, got %s", op, typ)
	}

	bind := func(id, raw string) (Param, error) {
		v, err := newScalar(typ, raw)
		if err != nil {
			return Param{}, fieldErr(name, ErrMalformedFilterValue, "%v", err)
		}
		return Param{ID: id, Value: v}, nil
	}

	cond := Condition{Field: field.Attr(), Operator: op}
	desc := Description{Field: name, Label: field.DisplayName()}
	value := strings.TrimSpace(spec.Value)

	switch op {
	case OpIn:
		tokens := strings.Split(spec.Value, ",")
		for i, tok := range tokens {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				return Condition{}, Description{}, fieldErr(name, ErrMalformedFilterValue, "empty item in IN list")
			}
			p, err := bind(":"+name+strconv.Itoa(i+1), tok)
			if err != nil {
				return Condition{}, Description{}, err
			}
			cond.Params = append(cond.Params, p)
		}
		desc.Text = op.phrase() + " " + spec.Value

	case OpBetween:
		from, to, found := strings.Cut(spec.Value, ",")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !found || from == "" || to == "" {
			return Condition{}, Description{}, fieldErr(name, ErrMalformedFilterValue, "between expects \"from,to\"")
		}
		lo, err := bind(":from"+name, from)
		if err != nil {
			return Condition{}, Description{}, err
		}
		hi, err := bind(":to"+name, to)
		if err != nil {
			return Condition{}, Description{}, err
		}
		cond.Params = []Param{lo, hi}
		desc.Text = "Between " + from + " and " + to

	default:
		p, err := bind(":"+name, value)
		if err != nil {
			return Condition{}, Description{}, err
		}
		cond.Params = []Param{p}
		desc.Text = op.phrase() + " " + value
	}

	return cond, desc, nil
}
