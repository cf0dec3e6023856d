package quote

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/vbonduro/measureiq/internal/money"
)

var (
	greyText   = &props.Color{Red: 80, Green: 80, Blue: 80}
	headerBg   = &props.Color{Red: 33, Green: 37, Blue: 41}
	lineBg     = &props.Color{Red: 245, Green: 245, Blue: 245}
	totalsBg   = &props.Color{Red: 240, Green: 240, Blue: 240}
	whiteColor = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ExportPDF renders the quote as an A4 portrait document.
func ExportPDF(v View) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)
	addLetterhead(m, v)
	addMeta(m, v)
	addRoomTable(m, v)
	addTotals(m, v)
	addNotes(m, v.Notes)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addLetterhead(m core.Maroto, v View) {
	title := "Quote"
	if v.Business.BusinessName != "" {
		title = v.Business.BusinessName
	}
	m.AddRows(row.New(12).Add(col.New(12).Add(
		text.New(title, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
	)))
	for _, l := range addressLines(v.Business) {
		m.AddRows(row.New(5).Add(col.New(12).Add(
			text.New(l, props.Text{Size: 9, Color: greyText}),
		)))
	}
	m.AddRows(row.New(6))
}

func addMeta(m core.Maroto, v View) {
	left := props.Text{Size: 10, Align: align.Left}
	right := props.Text{Size: 10, Align: align.Right}

	ref := ""
	if v.JobRef != "" {
		ref = "Job ref: " + v.JobRef
	}
	m.AddRows(row.New(7).Add(
		col.New(8).Add(text.New("Quote for: "+v.CustomerName, props.Text{Size: 11, Style: fontstyle.Bold})),
		col.New(4).Add(text.New("Date: "+v.Date, right)),
	))
	m.AddRows(row.New(6).Add(
		col.New(8).Add(text.New(ref, left)),
		col.New(4).Add(text.New(quoteNoLabel(v.QuoteNumber), right)),
	))
	m.AddRows(row.New(6))
}

func quoteNoLabel(n string) string {
	if n == "" {
		return ""
	}
	return "Quote no: " + n
}

func addRoomTable(m core.Maroto, v View) {
	head := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Center, Color: whiteColor}
	headLeft := head
	headLeft.Align = align.Left
	headerCell := &props.Cell{BackgroundColor: headerBg}

	m.AddRows(row.New(8).Add(
		col.New(6).Add(text.New("Room / item", headLeft)).WithStyle(headerCell),
		col.New(3).Add(text.New("Quantity", head)).WithStyle(headerCell),
		col.New(3).Add(text.New("Total (ex VAT)", head)).WithStyle(headerCell),
	))

	if !v.HasRooms() {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("No priced rooms yet.", props.Text{Size: 9, Top: 2}),
		)))
		return
	}

	roomText := props.Text{Size: 9, Style: fontstyle.Bold, Top: 1.5}
	roomRight := roomText
	roomRight.Align = align.Right
	lineText := props.Text{Size: 8, Top: 1.5}
	lineRight := lineText
	lineRight.Align = align.Right
	lineCell := &props.Cell{BackgroundColor: lineBg}

	for _, r := range v.Rooms {
		m.AddRows(row.New(7).Add(
			col.New(6).Add(text.New(r.Name, roomText)),
			col.New(3).Add(text.New(money.Fixed(r.Area)+" m²", roomRight)),
			col.New(3).Add(text.New(money.Format(r.Total), roomRight)),
		))
		for _, l := range visibleLines(r.Lines) {
			qty := fmt.Sprintf("%s %s @ %s", money.Fixed(l.Qty), l.Unit.Display(), money.Format(l.UnitPrice))
			m.AddRows(row.New(6).Add(
				col.New(6).Add(text.New("  "+l.Label, lineText)).WithStyle(lineCell),
				col.New(3).Add(text.New(qty, lineRight)).WithStyle(lineCell),
				col.New(3).Add(text.New(money.Format(l.Total), lineRight)).WithStyle(lineCell),
			))
		}
	}
}

func addTotals(m core.Maroto, v View) {
	m.AddRows(row.New(6))
	label := props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right, Top: 1.5}
	cell := &props.Cell{BackgroundColor: totalsBg}

	rows := []struct {
		label string
		value float64
	}{
		{"Project total (ex VAT)", v.TotalExVAT},
		{"VAT @ " + money.Percent(v.VATRate), v.VAT},
		{"Grand total (inc VAT)", v.GrandTotal},
	}
	for _, t := range rows {
		m.AddRows(row.New(8).Add(
			col.New(9).Add(text.New(t.label, label)).WithStyle(cell),
			col.New(3).Add(text.New(money.Format(t.value), label)).WithStyle(cell),
		))
	}
}

func addNotes(m core.Maroto, notes string) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return
	}
	m.AddRows(row.New(8))
	m.AddRows(row.New(6).Add(col.New(12).Add(
		text.New("Notes", props.Text{Size: 10, Style: fontstyle.Bold}),
	)))
	for _, line := range strings.Split(strings.ReplaceAll(notes, "\r\n", "\n"), "\n") {
		m.AddRows(row.New(5).Add(col.New(12).Add(
			text.New(line, props.Text{Size: 9}),
		)))
	}
}
