package logger

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CorrelationHeader é o header usado para propagar o id de correlação.
const CorrelationHeader = "x-correlation-id"

// CorrelationID lê o header de correlação (sem diferenciar maiúsculas) ou gera um novo id.
func CorrelationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, CorrelationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return uuid.NewString()
}

// WithRequest devolve um contexto carregando um logger derivado de base com
// o id de correlação e os campos adicionais (pares chave/valor).
func WithRequest(ctx context.Context, base zerolog.Logger, correlationID string, fields ...string) context.Context {
	lc := base.With().Str("correlation_id", correlationID)
	for i := 0; i+1 < len(fields); i += 2 {
		lc = lc.Str(fields[i], fields[i+1])
	}
	l := lc.Logger()
	return l.WithContext(ctx)
}
