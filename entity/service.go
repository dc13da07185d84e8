package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-playground/validator/v10"
	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/filter"
	"github.com/raywall/stark-toolkit/pkg/cache"
	"github.com/raywall/stark-toolkit/pkg/metrics"
	"github.com/raywall/stark-toolkit/pkg/observability"
	"github.com/raywall/stark-toolkit/pkg/rules"
	"github.com/raywall/stark-toolkit/query"
	"github.com/raywall/stark-toolkit/report"
	"github.com/raywall/stark-toolkit/schema"
	"github.com/rs/zerolog/log"
)

// Deps agrupa os colaboradores compartilhados por todas as entidades.
type Deps struct {
	Table    *dyndb.Table
	Executor *query.Executor
	Renderer *report.Renderer
	Rules    *rules.RuleManager
	Cache    cache.Cache
	CacheTTL time.Duration
	Metrics  metrics.Provider
}

// BeforeSaveHook permite validações e transformações customizadas antes
// de gravar um payload (add e edit).
type BeforeSaveHook func(ctx context.Context, e *schema.Entity, p *Payload) error

// Service implementa as operações do handler de uma entidade: listagem,
// detalhe, inclusão, edição (com troca de PK), exclusão e relatório.
type Service struct {
	entity   *schema.Entity
	deps     Deps
	valid    *validator.Validate
	cascades []RenameCascader
	hooks    []BeforeSaveHook
}

// NewService cria o serviço da entidade. Cache e Metrics nulos são
// substituídos por implementações vazias.
func NewService(e *schema.Entity, deps Deps, cascades ...RenameCascader) *Service {
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = &observability.NoopProvider{}
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 5 * time.Minute
	}
	return &Service{
		entity:   e,
		deps:     deps,
		valid:    validator.New(),
		cascades: cascades,
	}
}

func (s *Service) Entity() *schema.Entity {
	return s.entity
}

// RegisterHook adiciona um hook executado depois das regras declaradas.
func (s *Service) RegisterHook(fn BeforeSaveHook) {
	s.hooks = append(s.hooks, fn)
}

// RegisterValidation permite usar tags customizadas no campo validate do catálogo.
func (s *Service) RegisterValidation(name string, fn validator.Func) error {
	return s.valid.RegisterValidation(name, fn)
}

// ListResult é uma página da listagem. Next vazio indica fim.
type ListResult struct {
	Items []query.Record
	Next  string
}

// List retorna uma página do índice de listagem a partir do token informado.
func (s *Service) List(ctx context.Context, token string) (ListResult, error) {
	cursor, err := dyndb.DecodeCursor(token)
	if err != nil {
		return ListResult{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	page, err := s.deps.Executor.Execute(ctx, query.Request{Entity: s.entity, Cursor: cursor})
	if err != nil {
		return ListResult{}, err
	}
	next, err := page.Next.Encode()
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: page.Records, Next: next}, nil
}

// Detail busca um registro por pk e sk (default: partição da entidade).
func (s *Service) Detail(ctx context.Context, pk, sk string) (query.Record, error) {
	k := s.key(pk, sk)
	ck := s.cacheKey(k)

	if raw, ok, err := s.deps.Cache.Get(ctx, ck); err == nil && ok {
		var rec query.Record
		if json.Unmarshal(raw, &rec) == nil {
			return rec, nil
		}
	} else if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("component", "entity").Msg("cache read failed")
	}

	item, err := s.deps.Table.Get(ctx, k)
	if errors.Is(err, dyndb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg := s.deps.Table.Config()
	rec := query.Normalize(s.entity, item, cfg.HashKey, cfg.SortKey)
	if raw, err := json.Marshal(rec); err == nil {
		if err := s.deps.Cache.Set(ctx, ck, raw, s.deps.CacheTTL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("component", "entity").Msg("cache write failed")
		}
	}
	return rec, nil
}

// Add valida e grava um novo registro. Chave existente resulta em dyndb.ErrAlreadyExists.
func (s *Service) Add(ctx context.Context, p Payload) error {
	if err := s.validate(ctx, &p); err != nil {
		return err
	}
	if err := s.deps.Table.Create(ctx, s.item(p)); err != nil {
		return err
	}
	s.invalidate(ctx, s.key(p.PK(s.entity), p.SK))
	return nil
}

// Edit atualiza o registro. Quando orig_<pk> difere da PK nova o registro
// é recriado com a nova chave, as dependências são propagadas e a chave
// antiga é removida.
func (s *Service) Edit(ctx context.Context, p Payload) error {
	if err := s.validate(ctx, &p); err != nil {
		return err
	}

	pk := p.PK(s.entity)
	if p.OrigPK == "" || p.OrigPK == pk {
		k := s.key(pk, p.SK)
		if err := s.deps.Table.Update(ctx, k, s.updateValues(p)); err != nil {
			return err
		}
		s.invalidate(ctx, k)
		return nil
	}

	if err := s.deps.Table.Create(ctx, s.item(p)); err != nil {
		return err
	}
	for _, c := range s.cascades {
		n, err := c.CascadeRename(ctx, p.OrigPK, pk)
		if err != nil {
			return fmt.Errorf("entity %s: cascade rename: %w", s.entity.Name, err)
		}
		log.Ctx(ctx).Info().
			Str("component", "entity").
			Str("entity", s.entity.Name).
			Int("records", n).
			Msg("rename cascaded")
	}

	old := s.key(p.OrigPK, p.SK)
	if err := s.deps.Table.Delete(ctx, old); err != nil {
		return err
	}
	s.invalidate(ctx, old, s.key(pk, p.SK))
	return nil
}

// Delete remove o registro identificado no payload.
func (s *Service) Delete(ctx context.Context, p Payload) error {
	pk := p.PK(s.entity)
	if strings.TrimSpace(pk) == "" {
		return &ValidationError{Field: s.entity.PKField, Rule: "required"}
	}
	k := s.key(pk, p.SK)
	if err := s.deps.Table.Delete(ctx, k); err != nil {
		return err
	}
	s.invalidate(ctx, k)
	return nil
}

// ReportRequest seleciona colunas e filtros do relatório.
type ReportRequest struct {
	Fields  []string
	Filters map[string]filter.Spec
}

// ReportResult traz os registros filtrados e as localizações dos artefatos.
type ReportResult struct {
	Items      []query.Record
	Next       string
	Artifacts  report.Artifacts
	Parameters []filter.Description
}

// Report compila os filtros, consulta a partição inteira da entidade e
// gera os artefatos CSV e PDF. Erros de filtro acontecem antes de qualquer I/O.
func (s *Service) Report(ctx context.Context, req ReportRequest) (ReportResult, error) {
	start := time.Now()
	tags := []string{"entity:" + s.entity.Name}

	res, err := s.report(ctx, req)
	if err != nil {
		_ = s.deps.Metrics.Count(metrics.ReportErrors, 1, tags)
		return ReportResult{}, err
	}
	_ = s.deps.Metrics.Gauge(metrics.ReportRows, float64(len(res.Items)), tags)
	_ = s.deps.Metrics.Histogram(metrics.ReportLatency, float64(time.Since(start).Milliseconds()), tags)
	return res, nil
}

func (s *Service) report(ctx context.Context, req ReportRequest) (ReportResult, error) {
	agg, err := filter.Aggregate(s.entity, req.Filters)
	if err != nil {
		return ReportResult{}, err
	}
	if _, err := report.BuildTable(s.entity, req.Fields, nil); err != nil {
		return ReportResult{}, err
	}

	page, err := s.deps.Executor.ExecuteAll(ctx, query.Request{Entity: s.entity, Expression: agg.Expression})
	if err != nil {
		return ReportResult{}, err
	}

	art, err := s.deps.Renderer.Render(ctx, report.Input{
		Entity:     s.entity,
		Records:    page.Records,
		Fields:     req.Fields,
		Parameters: agg.Descriptions,
	})
	if err != nil {
		return ReportResult{}, err
	}

	next, err := page.Next.Encode()
	if err != nil {
		return ReportResult{}, err
	}
	return ReportResult{Items: page.Records, Next: next, Artifacts: art, Parameters: agg.Descriptions}, nil
}

// validate aplica as regras declaradas no catálogo: obrigatoriedade, tipo,
// tag do validator e expressão CEL, nessa ordem; depois os hooks.
func (s *Service) validate(ctx context.Context, p *Payload) error {
	if strings.TrimSpace(p.PK(s.entity)) == "" {
		return &ValidationError{Field: s.entity.PKField, Rule: "required"}
	}

	record := make(map[string]interface{}, len(s.entity.Fields))
	for _, f := range s.entity.Fields {
		record[f.Name] = typed(f, p.Values[f.Name])
	}

	for _, f := range s.entity.Fields {
		v := p.Values[f.Name]
		if f.Required && strings.TrimSpace(v) == "" {
			return &ValidationError{Field: f.Name, Rule: "required"}
		}
		if err := checkType(f, v); err != nil {
			return &ValidationError{Field: f.Name, Rule: "type", Err: err}
		}
		if f.Validate != "" {
			if err := s.valid.VarCtx(ctx, v, f.Validate); err != nil {
				return &ValidationError{Field: f.Name, Rule: f.Validate}
			}
		}
		if f.Rule != "" && s.deps.Rules != nil {
			ok, err := s.deps.Rules.EvaluateBool(f.Rule, map[string]interface{}{
				"value":  record[f.Name],
				"record": record,
				"entity": s.entity.Name,
			})
			if err != nil {
				return &ValidationError{Field: f.Name, Rule: "rule", Err: err}
			}
			if !ok {
				return &ValidationError{Field: f.Name, Rule: "rule"}
			}
		}
	}

	for _, hook := range s.hooks {
		if err := hook(ctx, s.entity, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) key(pk, sk string) dyndb.Key {
	if sk == "" {
		sk = s.entity.Partition
	}
	return dyndb.Key{PK: pk, SK: sk}
}

func (s *Service) cacheKey(k dyndb.Key) string {
	return s.entity.Name + "|" + k.PK + "|" + k.SK
}

func (s *Service) invalidate(ctx context.Context, keys ...dyndb.Key) {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, s.cacheKey(k))
	}
	if err := s.deps.Cache.Delete(ctx, names...); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("component", "entity").Msg("cache invalidation failed")
	}
}

// listViewValue é o valor de STARK-ListView-sk: campos de ordenação unidos por "|".
func (s *Service) listViewValue(p Payload) string {
	if p.ListViewSK != "" {
		return p.ListViewSK
	}
	values := make([]string, 0, len(s.entity.SortFields))
	for _, name := range s.entity.SortFields {
		values = append(values, p.Values[name])
	}
	return strings.Join(values, "|")
}

func (s *Service) item(p Payload) dyndb.Item {
	cfg := s.deps.Table.Config()
	k := s.key(p.PK(s.entity), p.SK)

	item := dyndb.Item{
		cfg.HashKey:         &types.AttributeValueMemberS{Value: k.PK},
		cfg.SortKey:         &types.AttributeValueMemberS{Value: k.SK},
		cfg.ListViewSortKey: &types.AttributeValueMemberS{Value: s.listViewValue(p)},
	}
	for _, f := range s.entity.Fields {
		if f.Name == s.entity.PKField {
			continue
		}
		if av, ok := attributeValue(f, p.Values[f.Name]); ok {
			item[f.Attr()] = av
		}
	}
	return item
}

func (s *Service) updateValues(p Payload) map[string]any {
	cfg := s.deps.Table.Config()
	values := map[string]any{cfg.ListViewSortKey: s.listViewValue(p)}
	for _, f := range s.entity.Fields {
		if f.Name == s.entity.PKField {
			continue
		}
		v := p.Values[f.Name]
		if f.Type != schema.TypeString && strings.TrimSpace(v) == "" {
			continue
		}
		values[f.Attr()] = typed(f, v)
	}
	return values
}

func attributeValue(f schema.Field, v string) (types.AttributeValue, bool) {
	switch f.Type {
	case schema.TypeNumber:
		if strings.TrimSpace(v) == "" {
			return nil, false
		}
		return &types.AttributeValueMemberN{Value: strings.TrimSpace(v)}, true
	case schema.TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, false
		}
		return &types.AttributeValueMemberBOOL{Value: b}, true
	}
	return &types.AttributeValueMemberS{Value: v}, true
}

// typed converte o texto para o tipo declarado; texto inválido é mantido.
func typed(f schema.Field, v string) interface{} {
	t := strings.TrimSpace(v)
	switch f.Type {
	case schema.TypeNumber:
		if i, err := strconv.ParseInt(t, 10, 64); err == nil {
			return i
		}
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return n
		}
	case schema.TypeBool:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
	}
	return v
}

func checkType(f schema.Field, v string) error {
	t := strings.TrimSpace(v)
	if t == "" {
		return nil
	}
	switch f.Type {
	case schema.TypeNumber:
		_, err := strconv.ParseFloat(t, 64)
		return err
	case schema.TypeBool:
		_, err := strconv.ParseBool(t)
		return err
	}
	return nil
}
