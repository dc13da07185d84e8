package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raywall/stark-toolkit/filter"
	"github.com/raywall/stark-toolkit/schema"
)

// Payload é o conteúdo do objeto {"<Entidade>": {...}} enviado pelo cliente.
type Payload struct {
	// Values traz o texto de cada campo declarado, pelo nome do campo.
	Values     map[string]string
	SK         string
	OrigPK     string
	ListViewSK string

	IsReport     bool
	ReportFields []string
	Filters      map[string]filter.Spec
}

// PK retorna o valor do campo chave da entidade.
func (p Payload) PK(e *schema.Entity) string {
	return p.Values[e.PKField]
}

// DecodePayload lê o corpo da requisição para a entidade. Corpo sem a chave
// da entidade (ou com valor vazio) resulta em ErrPayloadMissing.
func DecodePayload(e *schema.Entity, body []byte) (Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Payload{}, ErrPayloadMissing
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	raw, ok := envelope[e.Name]
	if !ok || isBlank(raw) {
		return Payload{}, ErrPayloadMissing
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Payload{}, fmt.Errorf("%w: %s must be an object", ErrInvalidPayload, e.Name)
	}

	p := Payload{Values: make(map[string]string)}
	if v, ok := fields[filter.KeyIsReport]; ok && !isBlank(v) {
		if err := json.Unmarshal(v, &p.IsReport); err != nil {
			return Payload{}, fmt.Errorf("%w: %s must be a boolean", ErrInvalidPayload, filter.KeyIsReport)
		}
	}

	if p.IsReport {
		return decodeReport(p, fields)
	}

	for _, f := range e.Fields {
		p.Values[f.Name] = text(fields[f.Name])
	}
	if _, ok := fields[e.PKField]; !ok {
		p.Values[e.PKField] = text(fields["pk"])
	}
	p.SK = text(fields["sk"])
	p.OrigPK = text(fields["orig_"+e.PKField])
	p.ListViewSK = text(fields["STARK-ListView-sk"])
	return p, nil
}

func decodeReport(p Payload, fields map[string]json.RawMessage) (Payload, error) {
	p.Filters = make(map[string]filter.Spec)

	if raw, ok := fields[filter.KeyReportFields]; ok && !isBlank(raw) {
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			return Payload{}, fmt.Errorf("%w: %s must be a list", ErrInvalidPayload, filter.KeyReportFields)
		}
		for _, entry := range entries {
			name, err := reportField(entry)
			if err != nil {
				return Payload{}, err
			}
			p.ReportFields = append(p.ReportFields, name)
		}
	}

	for key, raw := range fields {
		if filter.IsReserved(key) {
			continue
		}
		// Só objetos {"operator", "value", "type"} são filtros
		if t := bytes.TrimSpace(raw); len(t) == 0 || t[0] != '{' {
			continue
		}
		var spec filter.Spec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return Payload{}, fmt.Errorf("%w: filter %s: %v", ErrInvalidPayload, key, err)
		}
		p.Filters[key] = spec
	}
	return p, nil
}

// reportField aceita {"label": "Role Name"} ou "Role Name".
func reportField(raw json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, nil
	}
	var obj struct {
		Label string `json:"label"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: invalid report field %s", ErrInvalidPayload, raw)
	}
	if obj.Label != "" {
		return obj.Label, nil
	}
	if obj.Field != "" {
		return obj.Field, nil
	}
	return "", fmt.Errorf("%w: report field without label", ErrInvalidPayload)
}

// text converte um valor JSON escalar em texto; null e ausente viram "".
func text(raw json.RawMessage) string {
	if isBlank(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func isBlank(raw json.RawMessage) bool {
	t := string(bytes.TrimSpace(raw))
	return t == "" || t == "null" || t == `""`
}
