package quote

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/measureiq/internal/money"
)

const sheetName = "Quote"

// ExportXLSX writes the quote as a single-sheet workbook.
func ExportXLSX(v View) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E"}
	lastCol := columns[len(columns)-1]
	widths := []float64{36, 12, 10, 14, 16}
	for i, c := range columns {
		if err := f.SetColWidth(sheetName, c, c, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	roomStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 10}, Border: thinBorders()})
	if err != nil {
		return nil, fmt.Errorf("create room style: %w", err)
	}
	lineStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 10}, Border: thinBorders()})
	if err != nil {
		return nil, fmt.Errorf("create line style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	row := 1
	cell := func(col string) string { return fmt.Sprintf("%s%d", col, row) }

	if err := f.MergeCell(sheetName, cell("A"), cell(lastCol)); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	title := "Quote"
	if v.Business.BusinessName != "" {
		title = v.Business.BusinessName + " Quote"
	}
	f.SetCellValue(sheetName, cell("A"), sanitizeExcelCell(title))
	f.SetCellStyle(sheetName, cell("A"), cell(lastCol), titleStyle)
	row++

	for _, l := range addressLines(v.Business) {
		f.SetCellValue(sheetName, cell("A"), sanitizeExcelCell(l))
		row++
	}
	row++

	meta := [][2]string{{"Quote for", v.CustomerName}}
	if v.JobRef != "" {
		meta = append(meta, [2]string{"Job ref", v.JobRef})
	}
	if v.QuoteNumber != "" {
		meta = append(meta, [2]string{"Quote no", v.QuoteNumber})
	}
	meta = append(meta, [2]string{"Date", v.Date})
	for _, m := range meta {
		f.SetCellValue(sheetName, cell("A"), m[0]+":")
		f.SetCellValue(sheetName, cell("B"), sanitizeExcelCell(m[1]))
		row++
	}
	row++

	headers := []string{"Room / item", "Qty", "Unit", "Unit price", "Total (ex VAT)"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(columns[i]), h)
	}
	f.SetCellStyle(sheetName, cell("A"), cell(lastCol), headerStyle)
	row++

	for _, r := range v.Rooms {
		f.SetCellValue(sheetName, cell("A"), sanitizeExcelCell(r.Name))
		f.SetCellValue(sheetName, cell("B"), money.Round2(r.Area))
		f.SetCellValue(sheetName, cell("C"), "m²")
		f.SetCellValue(sheetName, cell("E"), money.Round2(r.Total))
		f.SetCellStyle(sheetName, cell("A"), cell(lastCol), roomStyle)
		row++
		for _, l := range visibleLines(r.Lines) {
			f.SetCellValue(sheetName, cell("A"), "  "+sanitizeExcelCell(l.Label))
			f.SetCellValue(sheetName, cell("B"), money.Round2(l.Qty))
			f.SetCellValue(sheetName, cell("C"), l.Unit.Display())
			f.SetCellValue(sheetName, cell("D"), money.Round2(l.UnitPrice))
			f.SetCellValue(sheetName, cell("E"), money.Round2(l.Total))
			f.SetCellStyle(sheetName, cell("A"), cell(lastCol), lineStyle)
			row++
		}
	}
	row++

	totals := []struct {
		label string
		value float64
	}{
		{"Project total (ex VAT):", v.TotalExVAT},
		{"VAT @ " + money.Percent(v.VATRate) + ":", v.VAT},
		{"Grand total (inc VAT):", v.GrandTotal},
	}
	for _, t := range totals {
		f.SetCellValue(sheetName, cell("D"), t.label)
		f.SetCellValue(sheetName, cell("E"), money.Format(t.value))
		f.SetCellStyle(sheetName, cell("D"), cell("E"), totalStyle)
		row++
	}

	if notes := strings.TrimSpace(v.Notes); notes != "" {
		row++
		f.SetCellValue(sheetName, cell("A"), "Notes:")
		row++
		for _, line := range strings.Split(strings.ReplaceAll(notes, "\r\n", "\n"), "\n") {
			f.SetCellValue(sheetName, cell("A"), sanitizeExcelCell(line))
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell prefixes formula-leading characters with a quote so a
// customer name such as "=HYPERLINK(...)" stays text.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
