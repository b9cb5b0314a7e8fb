package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// Renderer draws a laid out document.
type Renderer interface {
	TextMeasurer
	Render(doc Document, w io.Writer) error
}

// PDFRenderer draws documents with fpdf core fonts. Text is translated
// from UTF-8 to cp1252; characters outside it are lost.
type PDFRenderer struct {
	mu      sync.Mutex
	measure *fpdf.Fpdf
	tr      func(string) string
}

func NewPDFRenderer() *PDFRenderer {
	m := fpdf.New("P", "mm", "A4", "")
	m.SetCellMargin(cellPadding)
	return &PDFRenderer{measure: m, tr: m.UnicodeTranslatorFromDescriptor("")}
}

// Wrap breaks text with the real font metrics, the same way MultiCell
// does when drawing. Lines come back as UTF-8.
func (r *PDFRenderer) Wrap(text string, width, fontSize float64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measure.SetFont(fontFamily, "", fontSize)
	var widths [256]int
	for c := range widths {
		widths[c] = r.measure.GetStringSymbolWidth(string([]byte{byte(c)}))
	}
	wmax := int(math.Ceil((width - 2*cellPadding) * 1000 / fontSize))

	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		out = append(out, wrapPara([]rune(para), []byte(r.tr(para)), widths, wmax)...)
	}
	return out
}

// wrapPara breaks one paragraph at spaces, or mid-word when a word is wider
// than wmax. enc is the single byte encoding of src used for widths.
func wrapPara(src []rune, enc []byte, widths [256]int, wmax int) []string {
	if len(src) == 0 {
		return []string{""}
	}
	if len(enc) != len(src) {
		src = []rune(string(enc))
	}
	var lines []string
	sep, i, j, l := -1, 0, 0, 0
	for i < len(enc) {
		c := enc[i]
		l += widths[c]
		if c == ' ' || c == '\t' {
			sep = i
		}
		if l <= wmax {
			i++
			continue
		}
		if sep == -1 {
			if i == j {
				i++
			}
			sep = i
		} else {
			i = sep + 1
		}
		lines = append(lines, string(src[j:sep]))
		sep, j, l = -1, i, 0
	}
	if i != j {
		lines = append(lines, string(src[j:i]))
	}
	if len(lines) == 0 {
		lines = append(lines, "")
	}
	return lines
}

func (r *PDFRenderer) Lines(text string, width, fontSize float64) int {
	return len(r.Wrap(text, width, fontSize))
}

func (r *PDFRenderer) Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(MarginX, TopY, MarginX)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCellMargin(cellPadding)
	pdf.SetTitle(Title, true)
	pdf.SetCreator("ward", true)

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, b := range page.Blocks {
			switch {
			case b.Text != nil:
				r.drawText(pdf, *b.Text)
			case b.Table != nil:
				r.drawTable(pdf, *b.Table)
			}
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderBytes renders doc into memory.
func (r *PDFRenderer) RenderBytes(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(doc, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) drawText(pdf *fpdf.Fpdf, t Text) {
	style := ""
	if t.Bold {
		style = "B"
	}
	pdf.SetFont(fontFamily, style, t.Size)
	pdf.SetTextColor(0, 0, 0)
	s := r.tr(t.Value)
	x := t.X
	if t.Align == AlignCenter {
		x -= pdf.GetStringWidth(s) / 2
	}
	pdf.Text(x, t.Y, s)
}

func (r *PDFRenderer) drawTable(pdf *fpdf.Fpdf, t Table) {
	lineH := lineHeight(t.FontSize)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)

	pdf.SetFont(fontFamily, "B", t.FontSize)
	pdf.SetFillColor(HeaderFill[0], HeaderFill[1], HeaderFill[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(t.X, t.Y)
	for i, h := range t.Header {
		pdf.CellFormat(t.Widths[i], t.HeaderHeight, r.tr(h), "1", 0, "L", true, 0, "")
	}

	pdf.SetFont(fontFamily, "", t.FontSize)
	pdf.SetTextColor(0, 0, 0)
	y := t.Y + t.HeaderHeight
	for ri, row := range t.Rows {
		h := t.RowHeights[ri]
		striped := ri%2 == 1
		if striped {
			pdf.SetFillColor(245, 245, 245)
		}
		x := t.X
		for ci, cell := range row {
			style := "D"
			if striped {
				style = "FD"
			}
			pdf.Rect(x, y, t.Widths[ci], h, style)
			pdf.SetXY(x, y+cellPadding)
			pdf.MultiCell(t.Widths[ci], lineH, r.tr(cell), "", "L", false)
			x += t.Widths[ci]
		}
		y += h
	}
}
