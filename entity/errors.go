package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrPayloadMissing indica corpo sem o objeto da entidade.
	ErrPayloadMissing = errors.New("entity: client payload missing")
	// ErrInvalidPayload indica payload malformado ou que falhou na validação.
	ErrInvalidPayload = errors.New("entity: invalid payload")
	// ErrNotFound indica registro inexistente para a chave informada.
	ErrNotFound = errors.New("entity: record not found")
	// ErrUnknownEntity indica entidade não declarada no catálogo.
	ErrUnknownEntity = errors.New("entity: unknown entity")
)

// ValidationError descreve a regra de campo que rejeitou o payload.
type ValidationError struct {
	Field string
	Rule  string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: field %s failed %s: %v", ErrInvalidPayload, e.Field, e.Rule, e.Err)
	}
	return fmt.Sprintf("%v: field %s failed %s", ErrInvalidPayload, e.Field, e.Rule)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPayload
}
