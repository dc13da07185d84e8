package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raywall/stark-toolkit/dyndb"
	"github.com/raywall/stark-toolkit/filter"
	"github.com/raywall/stark-toolkit/pkg/metrics"
	"github.com/raywall/stark-toolkit/schema"
	"github.com/rs/zerolog/log"
)

// ErrNoEntity indica um Request sem entidade.
var ErrNoEntity = errors.New("query: entity is required")

// Request descreve uma consulta ao índice de listagem de uma entidade.
type Request struct {
	Entity     *schema.Entity
	Expression filter.Expression
	// Limit limita os itens avaliados pelo DynamoDB (antes do filtro).
	// Zero usa o page_limit da entidade ou o default do Executor.
	Limit  int32
	Cursor dyndb.Cursor
}

// Page é o resultado de uma chamada. Next vazio significa fim da listagem.
type Page struct {
	Records []Record
	Next    dyndb.Cursor
	Scanned int32
}

// Options configura o Executor.
type Options struct {
	PageLimit int32
	MaxPages  int
	Metrics   metrics.Provider
}

// Executor executa consultas no índice de listagem da tabela larga.
type Executor struct {
	table *dyndb.Table
	opts  Options
}

func NewExecutor(table *dyndb.Table, opts Options) *Executor {
	if opts.PageLimit <= 0 {
		opts.PageLimit = 10
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	return &Executor{table: table, opts: opts}
}

func (e *Executor) limit(req Request) int32 {
	switch {
	case req.Limit > 0:
		return req.Limit
	case req.Entity.PageLimit > 0:
		return req.Entity.PageLimit
	}
	return e.opts.PageLimit
}

// Execute faz uma única chamada Query: sk = partição da entidade no índice
// de listagem, com o filtro quando a expressão não é vazia.
func (e *Executor) Execute(ctx context.Context, req Request) (Page, error) {
	return e.execute(ctx, req, e.limit(req))
}

func (e *Executor) execute(ctx context.Context, req Request, limit int32) (Page, error) {
	if req.Entity == nil {
		return Page{}, ErrNoEntity
	}

	qb := e.table.ListView(req.Entity.Partition).
		Limit(limit).
		StartFrom(req.Cursor)
	if cond, ok := req.Expression.Condition(); ok {
		qb = qb.Filter(cond)
	}

	start := time.Now()
	out, err := qb.Exec(ctx)
	e.observe(req.Entity.Name, start, err)
	if err != nil {
		return Page{}, fmt.Errorf("query %s: %w", req.Entity.Name, err)
	}

	cfg := e.table.Config()
	page := Page{
		Records: make([]Record, 0, len(out.Items)),
		Next:    out.Next,
		Scanned: out.ScannedCount,
	}
	for _, item := range out.Items {
		page.Records = append(page.Records, Normalize(req.Entity, item, cfg.HashKey, cfg.SortKey))
	}

	log.Ctx(ctx).Debug().
		Str("component", "query").
		Str("entity", req.Entity.Name).
		Str("filter", req.Expression.String()).
		Int("records", len(page.Records)).
		Int32("scanned", page.Scanned).
		Bool("has_more", len(page.Next) > 0).
		Msg("list view query executed")

	return page, nil
}

// ExecuteAll segue os cursores até o fim da listagem ou até MaxPages
// chamadas. Quando o limite de páginas é atingido, Page.Next aponta para a
// continuação. Sem Limit explícito cada chamada avalia a partição sem
// limite de itens.
func (e *Executor) ExecuteAll(ctx context.Context, req Request) (Page, error) {
	var all Page
	cursor := req.Cursor

	for pages := 0; pages < e.opts.MaxPages; pages++ {
		next := req
		next.Cursor = cursor
		page, err := e.execute(ctx, next, req.Limit)
		if err != nil {
			return Page{}, err
		}
		all.Records = append(all.Records, page.Records...)
		all.Scanned += page.Scanned
		all.Next = page.Next

		if len(page.Next) == 0 {
			return all, nil
		}
		cursor = page.Next
	}

	log.Ctx(ctx).Warn().
		Str("component", "query").
		Str("entity", req.Entity.Name).
		Int("max_pages", e.opts.MaxPages).
		Msg("list view truncated at page limit")
	return all, nil
}

func (e *Executor) observe(entity string, start time.Time, err error) {
	if e.opts.Metrics == nil {
		return
	}
	tags := []string{"entity:" + entity}
	if err != nil {
		_ = e.opts.Metrics.Count(metrics.QueryErrors, 1, tags)
		return
	}
	_ = e.opts.Metrics.Histogram(metrics.QueryLatency, float64(time.Since(start).Milliseconds()), tags)
}
