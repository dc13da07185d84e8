package config

import (
	"time"

	"github.com/raywall/stark-toolkit/dyndb"
)

// AppConfig representa a configuração raiz do serviço, carregada do ambiente.
type AppConfig struct {
	Service ServiceDetails
	Table   dyndb.TableConfig
	Storage StorageConf
	Catalog CatalogConf
	Query   QueryConf
	Logging LoggingConf
	Metrics MetricsConf
	Cache   CacheConf
}

// ServiceDetails contém os metadados e configurações de runtime do serviço.
type ServiceDetails struct {
	Name    string        `env:"STARK_SERVICE_NAME" envDefault:"stark-api" validate:"required,hostname_rfc1123"`
	Runtime string        `env:"STARK_RUNTIME" envDefault:"lambda" validate:"required,oneof=local lambda"`
	Port    int           `env:"APP_PORT" envDefault:"8080" validate:"required_if=Runtime local"` // Obrigatório apenas se local
	Timeout time.Duration `env:"STARK_REQUEST_TIMEOUT" envDefault:"30s" validate:"gt=0"`
}

// StorageConf aponta o bucket onde os relatórios são gravados.
type StorageConf struct {
	Bucket string `env:"STARK_BUCKET_NAME" validate:"required"`
	Region string `env:"AWS_REGION" envDefault:"us-east-1" validate:"required"`
	Prefix string `env:"STARK_REPORT_PREFIX" envDefault:"tmp/"`
}

type CatalogConf struct {
	Source      string `env:"STARK_CATALOG_SOURCE" envDefault:"catalog.yaml" validate:"required"` // caminho local ou s3://bucket/key
	ReloadQueue string `env:"STARK_CATALOG_RELOAD_QUEUE"`
}

type QueryConf struct {
	PageLimit      int32 `env:"STARK_PAGE_LIMIT" envDefault:"10" validate:"gt=0"`
	MaxReportPages int   `env:"STARK_MAX_REPORT_PAGES" envDefault:"100" validate:"gt=0"`
}

type LoggingConf struct {
	Enabled bool   `env:"LOG_ENABLED" envDefault:"true"`
	Level   string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format  string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`
}

type MetricsConf struct {
	Datadog DatadogConf
}

type DatadogConf struct {
	Enabled   bool     `env:"DD_ENABLED"`
	Addr      string   `env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string   `env:"DD_NAMESPACE" envDefault:"stark."`
	Tags      []string `env:"DD_TAGS"`
}

type CacheConf struct {
	Enabled  bool          `env:"STARK_CACHE_ENABLED"`
	Addr     string        `env:"REDIS_ADDR" validate:"required_if=Enabled true"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	TTL      time.Duration `env:"STARK_CACHE_TTL" envDefault:"5m"`
	Prefix   string        `env:"STARK_CACHE_PREFIX" envDefault:"stark:"`
}

// IsLocal indica se o serviço deve subir o servidor HTTP em vez do handler Lambda.
func (s ServiceDetails) IsLocal() bool {
	return s.Runtime == "local"
}
