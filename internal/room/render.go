package room

import (
	"bytes"
	"html/template"
	"log/slog"

	"github.com/vbonduro/measureiq/internal/money"
)

var resultTmpl = template.Must(template.New("result").Funcs(template.FuncMap{
	"money": money.Format,
	"fixed": money.Fixed,
}).Parse(`<div class="cost-block">
<strong>{{.RoomName}} Summary</strong><br>
Room area: {{fixed .RoomArea}} m²<br><br>
{{- if .Lines}}
{{- range $i, $l := .Lines}}{{if $i}}<br>{{end}}
{{$l.Label}}: {{money $l.Cost}} ({{fixed $l.Qty}} {{$l.Unit.Display}} @ {{money $l.UnitPrice}})
{{- end}}
{{- else}}
No items selected
{{- end}}<br><br>
<strong>Room total (ex VAT): {{money .LineTotal}}</strong>
</div>`))

// renderResult produces the cached summary block stored on the room.
func renderResult(res Result) string {
	var buf bytes.Buffer
	if err := resultTmpl.Execute(&buf, res); err != nil {
		slog.Error("failed to render room summary", "room", res.RoomName, "error", err)
		return ""
	}
	return buf.String()
}
