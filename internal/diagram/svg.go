package diagram

import (
	"bytes"
	_ "embed"
	"encoding/xml"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/rendis/nfstudio/pkg/schema"
)

//go:embed templates/diagram.svg.tmpl
var svgTmplText string

var svgTmpl = template.Must(template.New("diagram.svg").Funcs(template.FuncMap{
	"num":     svgNum,
	"xml":     xmlEscape,
	"fill":    kindFill,
	"join":    func(ids []string) string { return strings.Join(ids, ", ") },
	"centerX": func(n *Node) float64 { return n.X + n.Width/2 },
	"centerY": func(n *Node) float64 { return n.Y + n.Height/2 },
}).Parse(svgTmplText))

// RenderSVG draws the layout geometry as-is: one rect per node and one
// quadratic path (M start Q control end) per edge.
func RenderSVG(model *DiagramModel) (string, error) {
	var buf bytes.Buffer
	if err := svgTmpl.Execute(&buf, model); err != nil {
		return "", schema.NewError(schema.ErrCodeRender, "render svg").WithCause(err)
	}
	return buf.String(), nil
}

// svgNum formats a coordinate with at most two decimals.
func svgNum(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func kindFill(k NodeKind) string {
	switch k {
	case NodeKindSource:
		return "#1a5276"
	case NodeKindSink:
		return "#b7791a"
	case NodeKindIsolated:
		return "#6b6b6b"
	default:
		return "#2d6a2d"
	}
}
