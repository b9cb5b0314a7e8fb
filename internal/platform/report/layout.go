// Package report lays out and renders the long-stay patient report. Layout
// is pure: it turns rows, notes and a clock into positioned pages that a
// Renderer draws. All measurements are millimetres on an A4 portrait page.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	PageWidth    = 210.0
	PageHeight   = 297.0
	MarginX      = 14.0
	TopY         = 15.0
	BottomMargin = 20.0

	Title        = "Long Stay Patient Report"
	EmptyMessage = "No long stay patients found."
	NotAssigned  = "Not assigned"

	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"

	ptToMM      = 25.4 / 72
	lineSpacing = 1.15
	cellPadding = 1.5
)

// HeaderFill is the RGB fill of table header rows.
var HeaderFill = [3]int{79, 70, 229}

var (
	patientColumns = []string{"Patient Name", "MRN", "Department", "Attending Doctor", "Admission Date", "Stay Duration"}
	patientWidths  = []float64{40, 24, 30, 38, 26, 24}
	noteColumns    = []string{"Date", "Author", "Note"}
	noteWidths     = []float64{30, 40, PageWidth - 2*MarginX - 70}
)

// Entry is one patient row. Callers pass only patients with an admission.
type Entry struct {
	PatientID     int64
	Name          string
	MRN           string
	Department    string
	Doctor        string
	AdmissionDate time.Time
}

type Note struct {
	CreatedAt time.Time
	Author    string
	Content   string
}

// NoteLookup returns the notes to print under a patient, oldest first.
type NoteLookup func(patientID int64) []Note

// Options describe how the rows were selected. Only Specialty is printed.
type Options struct {
	Specialty string
	DoctorID  int64
	From      *time.Time
	To        *time.Time
}

type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Text is a single line drawn with its baseline at Y.
type Text struct {
	X, Y  float64
	Size  float64
	Bold  bool
	Align Align
	Value string
}

// Table is the part of a table that fits on one page. A table that spans
// pages is split into one Table per page, each repeating the header.
type Table struct {
	X, Y         float64
	FontSize     float64
	Widths       []float64
	Header       []string
	HeaderHeight float64
	Rows         [][]string
	RowHeights   []float64
}

func (t Table) Height() float64 {
	h := t.HeaderHeight
	for _, rh := range t.RowHeights {
		h += rh
	}
	return h
}

// Block holds exactly one of Text or Table.
type Block struct {
	Text  *Text
	Table *Table
}

type Page struct {
	Blocks []Block
}

type Document struct {
	Pages []Page
}

// Texts returns every text value in drawing order.
func (d Document) Texts() []string {
	var out []string
	for _, p := range d.Pages {
		for _, b := range p.Blocks {
			if b.Text != nil {
				out = append(out, b.Text.Value)
			}
		}
	}
	return out
}

// Tables returns every table fragment in drawing order.
func (d Document) Tables() []Table {
	var out []Table
	for _, p := range d.Pages {
		for _, b := range p.Blocks {
			if b.Table != nil {
				out = append(out, *b.Table)
			}
		}
	}
	return out
}

// TextMeasurer wraps text into the lines it occupies in a cell of the
// given width at the given font size in points. Paragraph breaks are kept
// and an empty paragraph is one empty line.
type TextMeasurer interface {
	Wrap(text string, width, fontSize float64) []string
}

// StayDays counts started days between admitted and now.
func StayDays(now, admitted time.Time) int {
	d := now.Sub(admitted)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// FileName is the download name of a report generated at now.
func FileName(now time.Time) string {
	return "long-stay-report-" + now.Format("02-01-2006-1504") + ".pdf"
}

func lineHeight(fontSize float64) float64 {
	return fontSize * ptToMM * lineSpacing
}

type layout struct {
	m     TextMeasurer
	doc   Document
	y     float64
	limit float64
}

func (l *layout) page() *Page {
	return &l.doc.Pages[len(l.doc.Pages)-1]
}

func (l *layout) newPage() {
	l.doc.Pages = append(l.doc.Pages, Page{})
	l.y = TopY
}

func (l *layout) text(t Text) {
	p := l.page()
	p.Blocks = append(p.Blocks, Block{Text: &t})
}

func rowHeight(lines int, fontSize float64) float64 {
	return float64(max(1, lines))*lineHeight(fontSize) + 2*cellPadding
}

func headerHeight(fontSize float64) float64 {
	return lineHeight(fontSize) + 2*cellPadding
}

func (l *layout) wrapRow(row []string, widths []float64, fontSize float64) [][]string {
	cells := make([][]string, len(row))
	for i, cell := range row {
		cells[i] = l.m.Wrap(cell, widths[i], fontSize)
	}
	return cells
}

func rowLines(cells [][]string) int {
	n := 1
	for _, c := range cells {
		n = max(n, len(c))
	}
	return n
}

// rowRoom is the height left for rows on a page once the header is drawn.
func (l *layout) rowRoom(headerH float64) float64 {
	return l.limit - TopY - headerH
}

// startsAt reports whether a table placed at y keeps its first row on the
// same page, either whole or as the first part of a split row.
func (l *layout) startsAt(y float64, first [][]string, fontSize float64) bool {
	headerH := headerHeight(fontSize)
	h := rowHeight(rowLines(first), fontSize)
	if y+headerH+h <= l.limit {
		return true
	}
	if h <= l.rowRoom(headerH) {
		return false
	}
	return y+headerH+rowHeight(1, fontSize) <= l.limit
}

// table places rows starting at the cursor, breaking onto new pages when
// the next row would cross the bottom margin, and leaves the cursor at the
// bottom of the last fragment. A row too tall for a whole page is split
// between its wrapped lines into continuation rows.
func (l *layout) table(header []string, widths []float64, rows [][]string, fontSize float64) {
	lh := lineHeight(fontSize)
	headerH := headerHeight(fontSize)
	room := l.rowRoom(headerH)

	var cur *Table
	var bottom float64
	start := func() {
		cur = &Table{X: MarginX, Y: l.y, FontSize: fontSize, Widths: widths, Header: header, HeaderHeight: headerH}
		bottom = l.y + headerH
	}
	breakPage := func() {
		if len(cur.Rows) > 0 {
			l.page().Blocks = append(l.page().Blocks, Block{Table: cur})
		}
		l.newPage()
		start()
	}
	add := func(row []string, h float64) {
		cur.Rows = append(cur.Rows, row)
		cur.RowHeights = append(cur.RowHeights, h)
		bottom += h
	}

	start()
	for _, r := range rows {
		cells := l.wrapRow(r, widths, fontSize)
		whole := true
		for {
			h := rowHeight(rowLines(cells), fontSize)
			if bottom+h <= l.limit {
				if whole {
					add(r, h)
				} else {
					add(joinCells(cells), h)
				}
				break
			}
			atTop := len(cur.Rows) == 0 && cur.Y <= TopY
			if h <= room && !atTop {
				breakPage()
				continue
			}
			fit := int((l.limit - bottom - 2*cellPadding) / lh)
			if fit < 1 {
				if !atTop {
					breakPage()
					continue
				}
				fit = 1
			}
			head, rest := splitCells(cells, fit)
			add(joinCells(head), rowHeight(fit, fontSize))
			cells, whole = rest, false
			breakPage()
		}
	}
	if len(cur.Rows) > 0 || len(rows) == 0 {
		l.page().Blocks = append(l.page().Blocks, Block{Table: cur})
	}
	l.y = bottom
}

// splitCells cuts every cell after its first n lines.
func splitCells(cells [][]string, n int) (head, rest [][]string) {
	head = make([][]string, len(cells))
	rest = make([][]string, len(cells))
	for i, c := range cells {
		k := min(n, len(c))
		head[i], rest[i] = c[:k], c[k:]
	}
	return head, rest
}

func joinCells(cells [][]string) []string {
	row := make([]string, len(cells))
	for i, c := range cells {
		row[i] = strings.Join(c, "\n")
	}
	return row
}

// Layout builds the report for entries as of now.
func Layout(entries []Entry, opts Options, notes NoteLookup, m TextMeasurer, now time.Time) Document {
	l := &layout{m: m, limit: PageHeight - BottomMargin}
	l.newPage()

	l.text(Text{X: PageWidth / 2, Y: l.y, Size: 20, Align: AlignCenter, Value: Title})
	l.y += 10
	l.text(Text{X: PageWidth / 2, Y: l.y, Size: 12, Align: AlignCenter, Value: "Generated on: " + now.Format(dateTimeLayout)})
	if opts.Specialty != "" {
		l.y += 7
		l.text(Text{X: PageWidth / 2, Y: l.y, Size: 12, Align: AlignCenter, Value: "Specialty: " + opts.Specialty})
	}
	l.y += 15

	if len(entries) == 0 {
		l.text(Text{X: MarginX, Y: l.y, Size: 12, Value: EmptyMessage})
		return l.doc
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		doctor := e.Doctor
		if doctor == "" {
			doctor = NotAssigned
		}
		rows[i] = []string{
			e.Name,
			e.MRN,
			e.Department,
			doctor,
			e.AdmissionDate.Format(dateLayout),
			fmt.Sprintf("%d days", StayDays(now, e.AdmissionDate)),
		}
	}
	l.table(patientColumns, patientWidths, rows, 10)
	l.y += 15

	if notes == nil {
		return l.doc
	}
	for _, e := range entries {
		ns := notes(e.PatientID)
		if len(ns) == 0 {
			continue
		}
		noteRows := make([][]string, len(ns))
		for i, n := range ns {
			noteRows[i] = []string{n.CreatedAt.Format(dateTimeLayout), n.Author, n.Content}
		}
		first := l.wrapRow(noteRows[0], noteWidths, 9)
		if l.y > TopY && !l.startsAt(l.y+10, first, 9) {
			l.newPage()
		}
		l.text(Text{X: MarginX, Y: l.y, Size: 12, Bold: true, Value: fmt.Sprintf("Notes for %s (MRN: %s)", e.Name, e.MRN)})
		l.y += 10
		l.table(noteColumns, noteWidths, noteRows, 9)
		l.y += 15
		if l.y > l.limit {
			l.newPage()
		}
	}
	return l.doc
}
