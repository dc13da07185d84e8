package filter

import (
	"strconv"
	"strings"

	"github.com/raywall/stark-toolkit/schema"
)

// Chaves do payload de relatório que não são atributos filtráveis.
const (
	KeyIsReport     = "STARK_isReport"
	KeyReportFields = "STARK_report_fields"
	KeyUploadedKeys = "STARK_uploaded_s3_keys"
)

// IsReserved indica chaves de metadados do relatório.
func IsReserved(key string) bool {
	switch key {
	case KeyIsReport, KeyReportFields, KeyUploadedKeys:
		return true
	}
	return false
}

// Result agrupa a expressão composta, os parâmetros e as descrições.
type Result struct {
	Expression   Expression
	Params       map[string]Scalar
	Descriptions []Description
}

// Unconditional indica que nenhum filtro foi aplicado.
func (r Result) Unconditional() bool {
	return r.Expression.Empty()
}

// lookup resolve o filtro de um campo; a PK também pode vir como "pk".
func lookup(entity *schema.Entity, field schema.Field, specs map[string]Spec) (Spec, bool) {
	if spec, ok := specs[field.Name]; ok {
		return spec, true
	}
	if field.Name == entity.PKField {
		spec, ok := specs["pk"]
		return spec, ok
	}
	return Spec{}, false
}

// Validate rejeita filtros com valor e sem operador. Deve rodar antes de
// qualquer chamada ao armazenamento.
func Validate(entity *schema.Entity, specs map[string]Spec) error {
	for _, field := range entity.Fields {
		spec, ok := lookup(entity, field, specs)
		if !ok || !spec.Active() {
			continue
		}
		if strings.TrimSpace(spec.Operator) == "" {
			return &FieldError{Field: field.Name, Err: ErrMissingOperator}
		}
	}
	return nil
}

// Aggregate compila os filtros ativos na ordem declarada dos campos da
// entidade e os junta em uma conjunção. Filtros de campos não declarados e
// chaves reservadas são ignorados.
func Aggregate(entity *schema.Entity, specs map[string]Spec) (Result, error) {
	if err := Validate(entity, specs); err != nil {
		return Result{}, err
	}

	res := Result{Params: make(map[string]Scalar)}
	for _, field := range entity.Fields {
		if IsReserved(field.Name) {
			continue
		}
		spec, ok := lookup(entity, field, specs)
		if !ok || !spec.Active() {
			continue
		}

		cond, desc, err := Compile(field, spec)
		if err != nil {
			return Result{}, err
		}
		for i := range cond.Params {
			cond.Params[i].ID = uniqueID(res.Params, cond.Params[i].ID)
			res.Params[cond.Params[i].ID] = cond.Params[i].Value
		}
		res.Expression = res.Expression.And(cond)
		res.Descriptions = append(res.Descriptions, desc)
	}
	return res, nil
}

// uniqueID devolve id se ainda não foi vinculado; senão acrescenta o menor
// sufixo _N livre. Campos como Level (IN) e Level1 geram o mesmo id.
func uniqueID(bound map[string]Scalar, id string) string {
	if _, taken := bound[id]; !taken {
		return id
	}
	for n := 2; ; n++ {
		candidate := id + "_" + strconv.Itoa(n)
		if _, taken := bound[candidate]; !taken {
			return candidate
		}
	}
}
