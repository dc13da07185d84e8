package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/raywall/stark-toolkit/filter"
	"github.com/raywall/stark-toolkit/query"
	"github.com/raywall/stark-toolkit/schema"
	"github.com/rs/zerolog/log"
)

const (
	ContentTypeCSV = "text/csv"
	ContentTypePDF = "application/pdf"
)

// ArtifactStore persiste um artefato e devolve sua localização pública.
type ArtifactStore interface {
	Put(ctx context.Context, name string, body []byte, contentType string) (string, error)
}

// Input agrupa o que o relatório precisa: registros já normalizados,
// campos selecionados e as descrições dos filtros aplicados.
type Input struct {
	Entity     *schema.Entity
	Records    []query.Record
	Fields     []string
	Parameters []filter.Description
}

// Artifacts são as localizações dos arquivos gerados. CSV e PDF
// compartilham o mesmo ID.
type Artifacts struct {
	ID  string
	CSV string
	PDF string
}

// Renderer gera o CSV e o PDF de um relatório e os persiste.
type Renderer struct {
	store ArtifactStore
	newID func() string
}

func NewRenderer(store ArtifactStore) *Renderer {
	return &Renderer{store: store, newID: uuid.NewString}
}

// Render gera os dois formatos antes de qualquer escrita; só então grava o
// CSV e depois o PDF. Em caso de falha nenhum artefato é retornado.
func (r *Renderer) Render(ctx context.Context, in Input) (Artifacts, error) {
	table, err := BuildTable(in.Entity, in.Fields, in.Records)
	if err != nil {
		return Artifacts{}, err
	}

	csvBody, err := EncodeCSV(table)
	if err != nil {
		return Artifacts{}, fmt.Errorf("report: encode csv: %w", err)
	}
	pdfBody, lay, err := renderPDF(in.Entity.ReportTitle(), in.Parameters, table)
	if err != nil {
		return Artifacts{}, fmt.Errorf("report: render pdf: %w", err)
	}

	id := r.newID()
	csvLoc, err := r.store.Put(ctx, id+".csv", csvBody, ContentTypeCSV)
	if err != nil {
		return Artifacts{}, fmt.Errorf("report: persist csv: %w", err)
	}
	pdfLoc, err := r.store.Put(ctx, id+".pdf", pdfBody, ContentTypePDF)
	if err != nil {
		return Artifacts{}, fmt.Errorf("report: persist pdf: %w", err)
	}

	log.Ctx(ctx).Info().
		Str("component", "report").
		Str("entity", in.Entity.Name).
		Str("report_id", id).
		Int("rows", len(table.Rows)).
		Int("pages", lay.pages).
		Msg("report artifacts stored")

	return Artifacts{ID: id, CSV: csvLoc, PDF: pdfLoc}, nil
}
