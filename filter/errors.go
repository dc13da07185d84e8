package filter

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOperator indica valor preenchido sem operador.
	ErrMissingOperator = errors.New("filter: missing operator")
	// ErrMalformedFilterValue indica valor que não respeita o formato do operador
	// (ex: between sem vírgula) ou o tipo declarado.
	ErrMalformedFilterValue = errors.New("filter: malformed filter value")
	// ErrUnsupportedOperator indica operador desconhecido ou não permitido no campo.
	ErrUnsupportedOperator = errors.New("filter: unsupported operator")
)

// FieldError associa um erro de filtro ao campo que o originou.
type FieldError struct {
	// Field é o nome declarado do campo (ex: "Role_Name").
	Field string
	// Reason detalha o problema quando há mais contexto que o sentinel.
	Reason string
	// Err é um dos sentinels do pacote.
	Err error
}

func (e *FieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: field %s: %s", e.Err, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: field %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field string, err error, reason string, args ...any) *FieldError {
	return &FieldError{Field: field, Err: err, Reason: fmt.Sprintf(reason, args...)}
}
