package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/raywall/stark-toolkit/envloader"
)

type ConfigValidator struct {
	validate *validator.Validate
}

// NewValidator cria uma nova instância do validador
func NewValidator() *ConfigValidator {
	return &ConfigValidator{
		validate: validator.New(),
	}
}

// Validate realiza validações estruturais (tags) e semânticas (lógica)
func (cv *ConfigValidator) Validate(cfg *AppConfig) error {
	// 1. Validação Estrutural (Tags do struct: required, oneof, etc)
	if err := cv.validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMsgs []string
			for _, e := range validationErrors {
				errMsgs = append(errMsgs, fmt.Sprintf("Campo '%s' falhou na regra '%s'", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("erros de validação estrutural:\n- %s", strings.Join(errMsgs, "\n- "))
		}
		return fmt.Errorf("erro de validação estrutural: %w", err)
	}

	// 2. Validação Semântica (Regras de negócio da configuração)
	if err := cv.validateSemantics(cfg); err != nil {
		return fmt.Errorf("erro de validação semântica: %w", err)
	}

	return nil
}

func (cv *ConfigValidator) validateSemantics(cfg *AppConfig) error {
	if p := cfg.Storage.Prefix; p != "" && !strings.HasSuffix(p, "/") {
		return fmt.Errorf("prefixo de relatórios deve terminar com '/': '%s'", p)
	}

	// o catálogo mapeia o campo PK de toda entidade para o atributo "pk"
	if hk := cfg.Table.HashKey; hk != "" && hk != "pk" {
		return fmt.Errorf("hash key da tabela deve ser 'pk': '%s'", hk)
	}

	if strings.HasPrefix(cfg.Catalog.Source, "s3://") {
		rest := strings.TrimPrefix(cfg.Catalog.Source, "s3://")
		if i := strings.Index(rest, "/"); i <= 0 || i == len(rest)-1 {
			return fmt.Errorf("origem de catálogo S3 inválida: '%s'", cfg.Catalog.Source)
		}
	}

	if cfg.Catalog.ReloadQueue != "" && !strings.HasPrefix(cfg.Catalog.ReloadQueue, "https://") {
		return fmt.Errorf("fila de recarga deve ser uma URL SQS: '%s'", cfg.Catalog.ReloadQueue)
	}

	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		return fmt.Errorf("ttl do cache deve ser positivo quando o cache está habilitado")
	}

	return nil
}

// Resolver interpola referências ${env.X}, ${ssm.X} e ${secret.X} na configuração.
type Resolver interface {
	Inject(ctx context.Context, target interface{}) error
}

// Load lê a configuração do ambiente, resolve referências externas (quando
// um Resolver é informado) e valida o resultado.
func Load(ctx context.Context, resolver Resolver) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envloader.Load(cfg); err != nil {
		return nil, fmt.Errorf("erro ao carregar variáveis de ambiente: %w", err)
	}

	if resolver != nil {
		if err := resolver.Inject(ctx, cfg); err != nil {
			return nil, fmt.Errorf("erro ao resolver referências da configuração: %w", err)
		}
	}

	if err := NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
