package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/entity"
	"github.com/raywall/stark-toolkit/filter"
	"github.com/raywall/stark-toolkit/pkg/logger"
	"github.com/raywall/stark-toolkit/pkg/metrics"
	"github.com/raywall/stark-toolkit/pkg/observability"
	"github.com/raywall/stark-toolkit/query"
	"github.com/raywall/stark-toolkit/report"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	HeaderCorrelationID = logger.CorrelationHeader
	HeaderLatency       = "x-latency-ms"
)

// Mensagens devolvidas ao cliente, compatíveis com o front-end gerado.
const (
	MsgPayloadMissing   = "Client payload missing"
	MsgMissingOperators = "Missing operators"
	MsgUnhandledRequest = "Could not handle API request"
	MsgUnknownGetType   = "Could not handle GET request - unknown request type"
	MsgUnknownEntity    = "Unknown entity"
	MsgInternalError    = "Internal server error"
	MsgOK               = "OK"
)

// Services resolve o serviço de uma entidade pelo nome.
type Services interface {
	Lookup(name string) (*entity.Service, bool)
}

// Request é a forma neutra de uma chamada, montada pelo adaptador Lambda ou HTTP.
type Request struct {
	Method  string
	Entity  string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
}

// Response é o resultado serializado da chamada.
type Response struct {
	StatusCode    int
	Body          []byte
	CorrelationID string
}

// ListResponse é o corpo de rt=all.
type ListResponse struct {
	NextToken string         `json:"Next_Token"`
	Items     []query.Record `json:"Items"`
}

// ReportResponse é o corpo de um relatório.
type ReportResponse struct {
	NextToken  string         `json:"Next_Token"`
	Items      []query.Record `json:"Items"`
	ReportID   string         `json:"Report_ID"`
	CSV        string         `json:"CSV"`
	PDF        string         `json:"PDF"`
	Parameters []string       `json:"Parameters"`
}

// Options configura o Handler.
type Options struct {
	Timeout time.Duration
	Metrics metrics.Provider
	Logger  *zerolog.Logger
}

// Handler roteia uma Request para o serviço da entidade e traduz erros em
// status HTTP.
type Handler struct {
	services Services
	opts     Options
}

func NewHandler(services Services, opts Options) *Handler {
	if opts.Metrics == nil {
		opts.Metrics = &observability.NoopProvider{}
	}
	if opts.Logger == nil {
		l := log.Logger
		opts.Logger = &l
	}
	return &Handler{services: services, opts: opts}
}

// Serve executa a requisição com correlation id, timeout e log de conclusão.
func (h *Handler) Serve(ctx context.Context, req Request) Response {
	start := time.Now()
	corrID := logger.CorrelationID(req.Headers)
	ctx = logger.WithRequest(ctx, *h.opts.Logger, corrID, "entity", req.Entity)

	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}

	status, body := h.dispatch(ctx, req)
	raw, err := json.Marshal(body)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to encode response")
		status, raw = http.StatusInternalServerError, []byte(strconv.Quote(MsgInternalError))
	}

	tags := []string{"entity:" + req.Entity, "method:" + req.Method, "status:" + strconv.Itoa(status)}
	_ = h.opts.Metrics.Count(metrics.RequestCount, 1, tags)
	if status >= http.StatusInternalServerError {
		_ = h.opts.Metrics.Count(metrics.RequestErrors, 1, tags)
	}

	log.Ctx(ctx).Info().
		Str("method", req.Method).
		Str("rt", req.Query["rt"]).
		Int("status", status).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("request completed")

	return Response{StatusCode: status, Body: raw, CorrelationID: corrID}
}

func (h *Handler) dispatch(ctx context.Context, req Request) (int, interface{}) {
	svc, ok := h.services.Lookup(req.Entity)
	if !ok {
		return http.StatusNotFound, MsgUnknownEntity
	}

	switch rt := req.Query["rt"]; rt {
	case "":
		return h.handleWrite(ctx, svc, req)
	case "all":
		res, err := svc.List(ctx, req.Query["nt"])
		if err != nil {
			return h.fail(ctx, err)
		}
		return http.StatusOK, ListResponse{NextToken: res.Next, Items: nonNil(res.Items)}
	case "detail":
		pk := req.Query[svc.Entity().PKField]
		if pk == "" {
			pk = req.Query["pk"]
		}
		rec, err := svc.Detail(ctx, pk, req.Query["sk"])
		if errors.Is(err, entity.ErrNotFound) {
			return http.StatusOK, []query.Record{}
		}
		if err != nil {
			return h.fail(ctx, err)
		}
		return http.StatusOK, []query.Record{rec}
	case "report":
		return h.report(ctx, svc, entity.ReportRequest{})
	default:
		return http.StatusBadRequest, MsgUnknownGetType
	}
}

func (h *Handler) handleWrite(ctx context.Context, svc *entity.Service, req Request) (int, interface{}) {
	p, err := entity.DecodePayload(svc.Entity(), req.Body)
	if err != nil {
		return h.fail(ctx, err)
	}

	switch req.Method {
	case http.MethodDelete:
		err = svc.Delete(ctx, p)
	case http.MethodPut:
		err = svc.Edit(ctx, p)
	case http.MethodPost:
		if p.IsReport {
			return h.report(ctx, svc, entity.ReportRequest{Fields: p.ReportFields, Filters: p.Filters})
		}
		err = svc.Add(ctx, p)
	default:
		return http.StatusBadRequest, MsgUnhandledRequest
	}

	if err != nil {
		return h.fail(ctx, err)
	}
	return http.StatusOK, MsgOK
}

func (h *Handler) report(ctx context.Context, svc *entity.Service, req entity.ReportRequest) (int, interface{}) {
	res, err := svc.Report(ctx, req)
	if err != nil {
		return h.fail(ctx, err)
	}

	params := make([]string, 0, len(res.Parameters))
	for _, p := range res.Parameters {
		params = append(params, p.Label+": "+p.Text)
	}
	return http.StatusOK, ReportResponse{
		NextToken:  res.Next,
		Items:      nonNil(res.Items),
		ReportID:   res.Artifacts.ID,
		CSV:        res.Artifacts.CSV,
		PDF:        res.Artifacts.PDF,
		Parameters: params,
	}
}

// fail traduz erros de validação em 4xx; o resto vira 500 e é logado.
func (h *Handler) fail(ctx context.Context, err error) (int, interface{}) {
	switch {
	case errors.Is(err, entity.ErrPayloadMissing):
		return http.StatusBadRequest, MsgPayloadMissing
	case errors.Is(err, filter.ErrMissingOperator):
		return http.StatusBadRequest, MsgMissingOperators
	case errors.Is(err, filter.ErrMalformedFilterValue),
		errors.Is(err, filter.ErrUnsupportedOperator),
		errors.Is(err, report.ErrUnknownReportField),
		errors.Is(err, entity.ErrInvalidPayload):
		log.Ctx(ctx).Warn().Err(err).Msg("request rejected")
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, dyndb.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	}

	log.Ctx(ctx).Error().Err(err).Msg("request failed")
	return http.StatusInternalServerError, MsgInternalError
}

func nonNil(items []query.Record) []query.Record {
	if items == nil {
		return []query.Record{}
	}
	return items
}
