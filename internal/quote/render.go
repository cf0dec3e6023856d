package quote

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/money"
)

var funcs = template.FuncMap{
	"money":   money.Format,
	"fixed":   money.Fixed,
	"percent": money.Percent,
	"notes":   notesHTML,
	"visible": visibleLines,
}

var quoteTmpl = template.Must(template.New("quote").Funcs(funcs).Parse(`<div class="quote-block">
{{- with .Business}}
<div class="quote-business">
{{- if .BusinessName}}<strong>{{.BusinessName}}</strong><br>{{end}}
{{- if .ContactName}}{{.ContactName}}<br>{{end}}
{{- if .Address1}}{{.Address1}}<br>{{end}}
{{- if .Address2}}{{.Address2}}<br>{{end}}
{{- if .Town}}{{.Town}}<br>{{end}}
{{- if .Postcode}}{{.Postcode}}<br>{{end}}
{{- if .Phone}}Tel: {{.Phone}}<br>{{end}}
{{- if .Email}}{{.Email}}<br>{{end}}
{{- if .Website}}{{.Website}}<br>{{end}}
{{- if .VATNumber}}VAT No: {{.VATNumber}}<br>{{end}}
</div>
{{- end}}
<div class="quote-meta">
<strong>Quote for:</strong> {{.CustomerName}}<br>
{{- if .JobRef}}
<strong>Job ref:</strong> {{.JobRef}}<br>
{{- end}}
{{- if .QuoteNumber}}
<strong>Quote no:</strong> {{.QuoteNumber}}<br>
{{- end}}
<strong>Date:</strong> {{.Date}}
</div>
{{- if .HasRooms}}
<table class="quote-table">
<thead><tr><th>Room</th><th>Area</th><th>Total (ex VAT)</th></tr></thead>
<tbody>
{{- range .Rooms}}
<tr><td>{{.Name}}</td><td>{{fixed .Area}} m²</td><td>{{money .Total}}</td></tr>
{{- range visible .Lines}}
<tr class="quote-line"><td colspan="2">{{.Label}} ({{fixed .Qty}} {{.Unit.Display}} @ {{money .UnitPrice}})</td><td>{{money .Total}}</td></tr>
{{- end}}
{{- end}}
</tbody>
</table>
{{- else}}
<p>No priced rooms yet.</p>
{{- end}}
<div class="quote-totals">
Project total (ex VAT): {{money .TotalExVAT}}<br>
VAT @ {{percent .VATRate}}: {{money .VAT}}<br>
<strong>Grand total (inc VAT): {{money .GrandTotal}}</strong>
</div>
{{- if .Notes}}
<div class="quote-notes"><strong>Notes:</strong><br>{{notes .Notes}}</div>
{{- end}}
</div>`))

// RenderHTML renders the customer-facing quote block. Every user-supplied
// string is escaped; notes keep their line breaks.
func RenderHTML(v View) (string, error) {
	var buf bytes.Buffer
	if err := quoteTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("failed to render quote: %w", err)
	}
	return buf.String(), nil
}

func notesHTML(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = template.HTMLEscapeString(p)
	}
	return template.HTML(strings.Join(parts, "<br>"))
}

// visibleLines drops zero-cost rows, which only the flooring line can be.
func visibleLines(lines []LineRow) []LineRow {
	out := make([]LineRow, 0, len(lines))
	for _, l := range lines {
		if l.Total > 0 {
			out = append(out, l)
		}
	}
	return out
}

// addressLines is the letterhead below the business name as plain text, for
// the file exports.
func addressLines(p domain.BusinessProfile) []string {
	var lines []string
	add := func(prefix, s string) {
		if s = strings.TrimSpace(s); s != "" {
			lines = append(lines, prefix+s)
		}
	}
	add("", p.ContactName)
	add("", p.Address1)
	add("", p.Address2)
	add("", p.Town)
	add("", p.Postcode)
	add("Tel: ", p.Phone)
	add("", p.Email)
	add("", p.Website)
	add("VAT No: ", p.VATNumber)
	return lines
}
