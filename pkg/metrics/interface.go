package metrics

// Provider define o contrato para envio de métricas.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// Nomes das métricas emitidas pelo serviço. O namespace é aplicado pelo provider.
const (
	QueryLatency   = "query.latency_ms"
	QueryErrors    = "query.errors"
	ReportRows     = "report.rows"
	ReportLatency  = "report.latency_ms"
	ReportErrors   = "report.errors"
	RequestCount   = "request.count"
	RequestErrors  = "request.errors"
	CatalogReloads = "catalog.reloads"
)

// MetricType define os tipos suportados.
type MetricType string

const (
	TypeCount     MetricType = "count"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)
