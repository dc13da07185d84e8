package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/entity"
	"github.com/raywall/stark-toolkit/pkg/cache"
	"github.com/raywall/stark-toolkit/pkg/config"
	"github.com/raywall/stark-toolkit/pkg/config/injector"
	"github.com/raywall/stark-toolkit/pkg/logger"
	"github.com/raywall/stark-toolkit/pkg/metrics"
	"github.com/raywall/stark-toolkit/pkg/observability"
	"github.com/raywall/stark-toolkit/pkg/rules"
	"github.com/raywall/stark-toolkit/pkg/storage"
	"github.com/raywall/stark-toolkit/pkg/transport"
	"github.com/raywall/stark-toolkit/query"
	"github.com/raywall/stark-toolkit/report"
	"github.com/raywall/stark-toolkit/schema"
	"github.com/rs/zerolog/log"
)

var (
	// Variáveis injetáveis para mocking
	serverStarter = transport.ListenAndServe
	lambdaStarter = lambda.Start
	setupMetrics  = observability.SetupMetrics
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("FATAL")
	}
}

// run contém a lógica principal testável
func run(ctx context.Context) error {
	// 1. AWS e segredos: o injetor precisa dos clientes antes da config final
	awsCfg, err := config.LoadAWS(ctx, os.Getenv("AWS_REGION"))
	if err != nil {
		return fmt.Errorf("falha ao carregar config AWS: %w", err)
	}
	inj := injector.New(ssm.NewFromConfig(awsCfg), secretsmanager.NewFromConfig(awsCfg))

	cfg, err := config.Load(ctx, inj)
	if err != nil {
		return err
	}

	base := logger.Configure(cfg.Logging, cfg.Service.Name)
	log.Logger = base
	ctx = base.WithContext(ctx)

	provider, err := setupMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	if closer, ok := provider.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	// 2. Monta o registro de entidades a partir do catálogo
	registry, reloader, err := buildRegistry(ctx, cfg, awsCfg, provider)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("service", cfg.Service.Name).
		Strs("entities", registry.Names()).
		Msg("catálogo carregado")

	handler := transport.NewHandler(registry, transport.Options{
		Timeout: cfg.Service.Timeout,
		Metrics: provider,
		Logger:  &base,
	})

	// 3. Hot reload do catálogo via SQS
	if cfg.Catalog.ReloadQueue != "" {
		sqsReloader := transport.NewSQSReloader(sqs.NewFromConfig(awsCfg), cfg.Catalog.ReloadQueue, reloader, provider)
		go sqsReloader.Start(ctx)
	}

	// 4. Seleciona Runtime Strategy
	switch cfg.Service.Runtime {
	case "local":
		return serverStarter(ctx, cfg.Service.Port, transport.NewRouter(handler))
	case "lambda":
		lambdaStarter(transport.NewLambdaHandler(handler).Handle)
		return nil
	default:
		return fmt.Errorf("runtime desconhecido: %s", cfg.Service.Runtime)
	}
}

func buildRegistry(ctx context.Context, cfg *config.AppConfig, awsCfg aws.Config, provider metrics.Provider) (*entity.Registry, *entity.SourceReloader, error) {
	s3Client := s3.NewFromConfig(awsCfg)
	loader := schema.NewLoader(s3Client)
	cat, err := loader.Load(ctx, cfg.Catalog.Source)
	if err != nil {
		return nil, nil, err
	}

	rm, err := rules.NewRuleManager()
	if err != nil {
		return nil, nil, err
	}

	table := dyndb.New(dynamodb.NewFromConfig(awsCfg), cfg.Table)
	deps := entity.Deps{
		Table: table,
		Executor: query.NewExecutor(table, query.Options{
			PageLimit: cfg.Query.PageLimit,
			MaxPages:  cfg.Query.MaxReportPages,
			Metrics:   provider,
		}),
		Renderer: report.NewRenderer(storage.NewS3Store(s3Client, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Prefix)),
		Rules:    rm,
		Metrics:  provider,
		CacheTTL: cfg.Cache.TTL,
	}
	if cfg.Cache.Enabled {
		deps.Cache = cache.NewRedisCache(cfg.Cache.Addr, cfg.Cache.Password, cfg.Cache.DB, cfg.Cache.Prefix)
	}

	registry, err := entity.NewRegistry(deps, cat)
	if err != nil {
		return nil, nil, err
	}
	return registry, &entity.SourceReloader{Registry: registry, Loader: loader, Source: cfg.Catalog.Source}, nil
}
