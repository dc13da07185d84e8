package report

import (
	"errors"
	"fmt"

	"github.com/raywall/stark-toolkit/query"
	"github.com/raywall/stark-toolkit/schema"
)

// ErrUnknownReportField indica um campo selecionado que a entidade não declara.
var ErrUnknownReportField = errors.New("report: unknown report field")

// Table é a projeção tabular comum aos dois formatos.
type Table struct {
	Header []string
	Rows   [][]string
}

// BuildTable projeta os registros nas colunas selecionadas (por nome ou
// rótulo). Sem seleção, usa todos os campos declarados. sk e atributos
// fora do cabeçalho nunca aparecem.
func BuildTable(entity *schema.Entity, selected []string, records []query.Record) (Table, error) {
	fields := entity.Fields
	if len(selected) > 0 {
		fields = make([]schema.Field, 0, len(selected))
		for _, name := range selected {
			f, ok := entity.Field(name)
			if !ok {
				return Table{}, fmt.Errorf("%w: %q", ErrUnknownReportField, name)
			}
			fields = append(fields, f)
		}
	}

	t := Table{
		Header: make([]string, len(fields)),
		Rows:   make([][]string, 0, len(records)),
	}
	for i, f := range fields {
		t.Header[i] = f.DisplayName()
	}
	for _, rec := range records {
		row := make([]string, len(fields))
		for i, f := range fields {
			row[i] = rec.String(f.Name)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
