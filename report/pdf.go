package report

import (
	"bytes"
	"math"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/raywall/stark-toolkit/filter"
)

const (
	fontFamily     = "Helvetica"
	bodyFontSize   = 10.0
	titleFontSize  = 14.0
	paramsFontSize = 12.0
	paramLabelW    = 30.0
	maxRowHeight   = 120.0
	pageMargin     = 10.0
	bottomMargin   = 20.0
)

type rgb struct{ r, g, b int }

var (
	headerFill = rgb{52, 58, 64}
	headerText = rgb{255, 255, 255}
	zebraFill  = [2]rgb{{222, 226, 230}, {255, 255, 255}}
)

// layout registra as decisões de paginação tomadas durante a renderização.
type layout struct {
	pages      int
	headerRows int
	rowPages   []int
	rowFills   []rgb
	rowHeights []float64
}

type pdfDoc struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	epw        float64
	lineHeight float64
	fontMM     float64
	colWidth   float64
	header     []string
	out        layout
}

// renderPDF gera o documento paginado: título, bloco de parâmetros,
// cabeçalho da tabela e linhas com fundo alternado. Em cada quebra de
// página só o cabeçalho da tabela é repetido.
func renderPDF(title string, params []filter.Description, t Table) ([]byte, layout, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, bottomMargin)
	pdf.AddPage()
	pdf.SetFont(fontFamily, "", bodyFontSize)

	w, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	_, fontMM := pdf.GetFontSize()

	d := &pdfDoc{
		pdf:        pdf,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		epw:        w - left - right,
		lineHeight: fontMM * 2.5,
		fontMM:     fontMM,
		header:     t.Header,
	}
	cols := len(t.Header)
	if cols == 0 {
		cols = 1
	}
	d.colWidth = d.epw / float64(cols)

	d.pageHeader(title, params)
	d.tableHeader()
	for i, row := range t.Rows {
		d.row(i, row)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, layout{}, err
	}
	d.out.pages = pdf.PageNo()
	return buf.Bytes(), d.out, nil
}

func (d *pdfDoc) pageHeader(title string, params []filter.Description) {
	pdf := d.pdf

	pdf.SetFont(fontFamily, "B", titleFontSize)
	pdf.CellFormat(0, d.lineHeight, d.tr(title), "", 1, "C", false, 0, "")

	pdf.SetFont(fontFamily, "B", paramsFontSize)
	pdf.CellFormat(0, d.lineHeight, "Report Parameters:", "", 1, "L", false, 0, "")

	pdf.SetFont(fontFamily, "", bodyFontSize)
	if len(params) == 0 {
		pdf.CellFormat(paramLabelW, d.lineHeight, "N/A", "", 1, "L", false, 0, "")
	}
	for i, p := range params {
		pdf.CellFormat(paramLabelW, d.lineHeight, d.tr(p.Label), "", 0, "L", false, 0, "")
		pdf.CellFormat(d.epw/4, d.lineHeight, d.tr(p.Text), "", 0, "L", false, 0, "")
		if i%2 == 1 || i == len(params)-1 {
			pdf.Ln(d.lineHeight)
		}
	}
	pdf.Ln(d.fontMM)
}

func (d *pdfDoc) tableHeader() {
	pdf := d.pdf
	height := d.lineHeight * 1.5

	pdf.SetFont(fontFamily, "B", bodyFontSize)
	pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
	pdf.SetTextColor(headerText.r, headerText.g, headerText.b)

	left, _, _, _ := pdf.GetMargins()
	y := pdf.GetY()
	for i, label := range d.header {
		d.cell(left+float64(i)*d.colWidth, y, height, label, "C", true)
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(left, y, left+d.epw, y)
	pdf.Line(left, y+height, left+d.epw, y+height)
	pdf.SetXY(left, y+height)

	pdf.SetFont(fontFamily, "", bodyFontSize)
	pdf.SetTextColor(0, 0, 0)
	d.out.headerRows++
}

func (d *pdfDoc) row(index int, row []string) {
	pdf := d.pdf
	height := d.rowHeight(row)

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageH-bottom {
		pdf.AddPage()
		d.tableHeader()
	}

	fill := zebraFill[index%2]
	pdf.SetFillColor(fill.r, fill.g, fill.b)

	left, _, _, _ := pdf.GetMargins()
	y := pdf.GetY()
	for i, text := range row {
		d.cell(left+float64(i)*d.colWidth, y, height, text, "L", true)
	}
	pdf.SetXY(left, y+height)

	d.out.rowPages = append(d.out.rowPages, pdf.PageNo())
	d.out.rowFills = append(d.out.rowFills, fill)
	d.out.rowHeights = append(d.out.rowHeights, height)
}

// rowHeight estima as linhas necessárias pela célula mais longa,
// assumindo que um caractere tem ~0.6 da altura da fonte.
func (d *pdfDoc) rowHeight(row []string) float64 {
	longest := 0
	for _, text := range row {
		if n := utf8.RuneCountInString(text); n > longest {
			longest = n
		}
	}
	charWidth := bodyFontSize * 0.33 * 0.6
	lines := math.Ceil(float64(longest) * charWidth / d.colWidth)

	height := d.fontMM * lines
	switch {
	case height < d.lineHeight:
		height = d.lineHeight
	case height > maxRowHeight:
		height = maxRowHeight
	}
	return height
}

// cell desenha uma célula de altura fixa com texto quebrado e centralizado
// verticalmente, recortando o que exceder a altura.
func (d *pdfDoc) cell(x, y, h float64, text, align string, fill bool) {
	pdf := d.pdf
	text = d.tr(text)

	if fill {
		pdf.Rect(x, y, d.colWidth, h, "F")
	}

	lines := len(pdf.SplitText(text, d.colWidth))
	offset := (h - float64(lines)*d.fontMM) / 2
	if offset < 0 {
		offset = 0
	}

	pdf.ClipRect(x, y, d.colWidth, h, false)
	pdf.SetXY(x, y+offset)
	pdf.MultiCell(d.colWidth, d.fontMM, text, "", align, false)
	pdf.ClipEnd()
	pdf.SetXY(x+d.colWidth, y)
}
