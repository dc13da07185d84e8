package schema

import (
	"fmt"
	"strings"
)

// FieldType é a tag de tipo escalar do DynamoDB usada ao vincular parâmetros.
type FieldType string

const (
	TypeString FieldType = "S"
	TypeNumber FieldType = "N"
	TypeBool   FieldType = "BOOL"
)

// ParseFieldType aceita as tags do DynamoDB (S, N, BOOL) e os apelidos
// usados pelo front-end (string, number, boolean).
func ParseFieldType(raw string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s", "string":
		return TypeString, nil
	case "n", "number":
		return TypeNumber, nil
	case "bool", "boolean":
		return TypeBool, nil
	default:
		return "", fmt.Errorf("schema: unknown field type %q", raw)
	}
}

// Field declara um atributo de uma entidade.
type Field struct {
	Name      string    `yaml:"name" json:"name" validate:"required"`
	Label     string    `yaml:"label" json:"label,omitempty"`
	Type      FieldType `yaml:"type" json:"type" validate:"omitempty,oneof=S N BOOL"`
	Attribute string    `yaml:"attribute" json:"attribute,omitempty"`
	Operators []string  `yaml:"operators" json:"operators,omitempty" validate:"dive,oneof=IN contains begins_with between = > >= < <= !="`
	Required  bool      `yaml:"required" json:"required,omitempty"`
	Validate  string    `yaml:"validate" json:"validate,omitempty"`
	Rule      string    `yaml:"rule" json:"rule,omitempty"`
}

// Attr retorna o nome do atributo no armazenamento.
func (f Field) Attr() string {
	if f.Attribute != "" {
		return f.Attribute
	}
	return f.Name
}

// DisplayName é o rótulo legível (underscores viram espaços).
func (f Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return Humanize(f.Name)
}

// Allows informa se o operador é permitido para o campo. Lista vazia libera todos.
func (f Field) Allows(op string) bool {
	if len(f.Operators) == 0 {
		return true
	}
	for _, allowed := range f.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}

// Entity descreve uma entidade armazenada na tabela larga.
//
// Partition é o valor fixo de sk usado pelo índice de listagem
// (ex: "STARK|role"); Fields segue a ordem declarada, que também é a ordem
// de composição dos filtros e das colunas do relatório.
type Entity struct {
	Name       string   `yaml:"name" json:"name" validate:"required"`
	Title      string   `yaml:"title" json:"title"`
	PKField    string   `yaml:"pk_field" json:"pk_field" validate:"required"`
	Partition  string   `yaml:"partition" json:"partition" validate:"required"`
	SortFields []string `yaml:"sort_fields" json:"sort_fields,omitempty"`
	PageLimit  int32    `yaml:"page_limit" json:"page_limit,omitempty" validate:"gte=0"`
	Fields     []Field  `yaml:"fields" json:"fields" validate:"required,min=1,dive"`
}

// Field busca um campo declarado pelo nome ou pelo rótulo.
func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range e.Fields {
		if f.DisplayName() == name || Humanize(f.Name) == name {
			return f, true
		}
	}
	return Field{}, false
}

// PK retorna o campo que mapeia para a chave de partição "pk".
func (e *Entity) PK() Field {
	f, _ := e.Field(e.PKField)
	return f
}

// ReportTitle é o título impresso no documento do relatório.
func (e *Entity) ReportTitle() string {
	title := e.Title
	if title == "" {
		title = Humanize(strings.TrimPrefix(e.Name, "STARK_"))
	}
	return title + " Report"
}

// Labels retorna os rótulos de todos os campos na ordem declarada.
func (e *Entity) Labels() []string {
	labels := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		labels = append(labels, f.DisplayName())
	}
	return labels
}

// normalize preenche defaults derivados da declaração.
func (e *Entity) normalize() {
	for i := range e.Fields {
		f := &e.Fields[i]
		if f.Type == "" {
			f.Type = TypeString
		}
		if f.Name == e.PKField && f.Attribute == "" {
			f.Attribute = "pk"
		}
	}
	if len(e.SortFields) == 0 {
		e.SortFields = []string{e.PKField}
	}
}

// Humanize troca underscores por espaços.
func Humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
