package transport

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/raywall/stark-toolkit/pkg/metrics"
	"github.com/raywall/stark-toolkit/pkg/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SQSClient define a interface necessária para o reloader (permite Mocking)
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Reloader recarrega o catálogo de entidades.
type Reloader interface {
	Reload(ctx context.Context) error
}

// SQSReloader escuta a fila de alterações do catálogo e dispara o Reload.
type SQSReloader struct {
	client     SQSClient
	queueURL   string
	reloader   Reloader
	metrics    metrics.Provider
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewSQSReloader(client SQSClient, queueURL string, reloader Reloader, provider metrics.Provider) *SQSReloader {
	if provider == nil {
		provider = &observability.NoopProvider{}
	}
	return &SQSReloader{
		client:     client,
		queueURL:   queueURL,
		reloader:   reloader,
		metrics:    provider,
		retryDelay: 5 * time.Second,
		logger:     log.With().Str("component", "sqs_reloader").Logger(),
	}
}

// Start inicia o monitoramento (bloqueante)
func (s *SQSReloader) Start(ctx context.Context) {
	if s.queueURL == "" {
		s.logger.Warn().Msg("URL da fila SQS não configurada. Hot Reload desativado.")
		return
	}

	s.logger.Info().Str("queue", s.queueURL).Msg("Monitorando fila SQS para Hot Reload")

	for {
		err := s.poll(ctx)
		if ctx.Err() != nil {
			s.logger.Info().Msg("Parando monitoramento SQS")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("Erro no SQS")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
		}
	}
}

// poll faz uma leitura com long polling. Um lote com mensagens gera um único
// Reload; as mensagens são removidas mesmo se o Reload falhar, já que a
// próxima alteração publica um novo evento.
func (s *SQSReloader) poll(ctx context.Context) error {
	out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return err
	}
	if len(out.Messages) == 0 {
		return nil
	}

	s.logger.Info().Int("messages", len(out.Messages)).Msg("Evento de alteração do catálogo recebido")

	status := "ok"
	if err := s.reloader.Reload(ctx); err != nil {
		status = "error"
		s.logger.Error().Err(err).Msg("Falha no reload do catálogo")
	}
	_ = s.metrics.Count(metrics.CatalogReloads, 1, []string{"status:" + status})

	for _, msg := range out.Messages {
		if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(s.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		}); err != nil {
			s.logger.Warn().Err(err).Msg("Falha ao remover mensagem")
		}
	}
	return nil
}
