package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// HTMLOptions controls preview markup.
type HTMLOptions struct {
	// Title of the browser tab
	Title string
	// Interactive adds per-section edit affordances. Capture output omits them.
	Interactive bool
	// EditEndpoint returns the URL that accepts section edit operations.
	// Required when Interactive is set.
	EditEndpoint func(sectionID string) string
	// PageIndex, when positive, renders only that page; the Chrome
	// rasterizer captures pages one at a time this way.
	PageIndex int
}

type htmlPage struct {
	Page
	Interactive bool
	Edit        func(string) string
}

var previewTemplate = template.Must(template.New("preview").Funcs(template.FuncMap{
	"px":     func(v float64) string { return fmt.Sprintf("%.2fpx", v) },
	"imgsrc": imageURL,
	"style":  cssStyle,
	"join":   strings.Join,
	"edit": func(p htmlPage, id string) string {
		if p.Edit == nil {
			return ""
		}
		return p.Edit(id)
	},
}).Parse(previewHTML))

// HTML renders pages as a standalone document. Each page is a fixed
// PageWidth x PageHeight box; regions are absolutely positioned.
func HTML(pages []Page, opts HTMLOptions) (string, error) {
	if opts.Interactive && opts.EditEndpoint == nil {
		return "", fmt.Errorf("interactive preview needs an edit endpoint")
	}
	selected := pages
	if opts.PageIndex > 0 {
		if opts.PageIndex > len(pages) {
			return "", fmt.Errorf("page %d out of range (%d pages)", opts.PageIndex, len(pages))
		}
		selected = pages[opts.PageIndex-1 : opts.PageIndex]
	}

	data := struct {
		Title       string
		Interactive bool
		Capture     bool
		Width       int
		Height      int
		FontFaces   template.CSS
		Pages       []htmlPage
	}{
		Title:       opts.Title,
		Interactive: opts.Interactive,
		Capture:     opts.PageIndex > 0,
		Width:       PageWidth,
		Height:      PageHeight,
		FontFaces:   fontFaces(),
	}
	for _, p := range selected {
		data.Pages = append(data.Pages, htmlPage{Page: p, Interactive: opts.Interactive, Edit: opts.EditEndpoint})
	}

	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// imageURL passes through the sources the editor accepts and blanks
// everything else.
func imageURL(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"),
		strings.HasPrefix(src, "https://"),
		strings.HasPrefix(src, "http://"):
		return template.URL(src)
	default:
		return ""
	}
}

var (
	fontFacesOnce sync.Once
	fontFacesCSS  template.CSS
)

// fontFaces embeds the Go fonts so the browser sets text with the same
// metrics layout measured with.
func fontFaces() template.CSS {
	fontFacesOnce.Do(func() {
		var sb strings.Builder
		face := func(family string, weight int, ttf []byte) {
			fmt.Fprintf(&sb, "@font-face{font-family:'%s';font-weight:%d;src:url(data:font/ttf;base64,%s) format('truetype');}\n",
				family, weight, base64.StdEncoding.EncodeToString(ttf))
		}
		face("Go", 400, goregular.TTF)
		face("Go", 700, gobold.TTF)
		face("Go Mono", 400, gomono.TTF)
		fontFacesCSS = template.CSS(sb.String())
	})
	return fontFacesCSS
}

func cssStyle(s TextStyle) template.CSS {
	var sb strings.Builder
	fmt.Fprintf(&sb, "font-size:%.2fpx;line-height:%.2fpx;", s.Size, s.Size*s.LineHeight)
	if s.Bold {
		sb.WriteString("font-weight:700;")
	}
	if s.Mono {
		sb.WriteString("font-family:'Go Mono',ui-monospace,monospace;")
	}
	if s.Color != "" && strings.HasPrefix(s.Color, "#") {
		sb.WriteString("color:" + s.Color + ";")
	}
	if s.Align != "" {
		sb.WriteString("text-align:" + string(s.Align) + ";")
	}
	return template.CSS(sb.String())
}

const previewHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
{{.FontFaces}}
  * { box-sizing: border-box; margin: 0; padding: 0; }
  body { background: {{if .Capture}}#ffffff{{else}}#e5e7eb{{end}}; font-family: 'Go', system-ui, -apple-system, 'Segoe UI', Roboto, sans-serif; color: #1f2328; }
  .page { position: relative; width: {{.Width}}px; height: {{.Height}}px; background: #fff; overflow: hidden; {{if not .Capture}}margin: 24px auto; box-shadow: 0 1px 4px rgba(0,0,0,.2);{{end}} }
  .region { position: absolute; overflow: hidden; white-space: pre; }
  .rule { background: #d1d5db; }
  .image img { width: 100%; height: 100%; object-fit: contain; }
  table { border-collapse: collapse; table-layout: fixed; width: 100%; }
  td, th { border: 1px solid #d1d5db; padding: 6px; vertical-align: top; text-align: left; white-space: pre; overflow: hidden; }
  th { background: #f3f4f6; }
  .list div { white-space: pre; }
  .edit { position: absolute; transform: translateX(-110%); font-size: 12px; padding: 2px 8px; border: 1px solid #9ca3af; border-radius: 4px; background: #fff; cursor: pointer; }
  dialog { margin: auto; padding: 16px; width: 560px; }
  dialog textarea { width: 100%; height: 220px; font-family: ui-monospace, monospace; font-size: 12px; }
  dialog .actions { margin-top: 8px; text-align: right; }
  #error { color: #b91c1c; font-size: 12px; margin-top: 8px; }
</style>
</head>
<body>
{{range $p := .Pages}}<div class="page page-{{$p.Kind}}" data-page="{{$p.Number}}">
{{range $p.Regions}}{{if eq .Kind "rule"}}<div class="region rule" style="left:{{px .Box.X}};top:{{px .Box.Y}};width:{{px .Box.W}};height:{{px .Box.H}}"></div>
{{else if eq .Kind "image"}}<div class="region image" style="left:{{px .Box.X}};top:{{px .Box.Y}};width:{{px .Box.W}};height:{{px .Box.H}}"><img src="{{imgsrc .Src}}" alt=""></div>
{{else if eq .Kind "table"}}<div class="region" style="left:{{px .Box.X}};top:{{px .Box.Y}};width:{{px .Box.W}};height:{{px .Box.H}};{{style .Style}}"><table>
<tr>{{range index .Table.Cells 0}}<th>{{join . "\n"}}</th>{{end}}</tr>
{{range $r, $row := .Table.Cells}}{{if $r}}<tr>{{range $row}}<td>{{join . "\n"}}</td>{{end}}</tr>{{end}}{{end}}
</table></div>
{{else if eq .Kind "list"}}<div class="region list" style="left:{{px .Box.X}};top:{{px .Box.Y}};width:{{px .Box.W}};height:{{px .Box.H}};{{style .Style}}">{{range .Items}}<div>{{join . "\n"}}</div>{{end}}</div>
{{else}}<div class="region {{.Kind}}" style="left:{{px .Box.X}};top:{{px .Box.Y}};width:{{px .Box.W}};height:{{px .Box.H}};{{style .Style}}">{{join .Lines "\n"}}</div>
{{end}}{{if and $p.Interactive .Editable}}<button class="edit" style="top:{{px .Box.Y}};left:{{px .Box.X}}" data-endpoint="{{edit $p .SectionID}}">Edit</button>
{{end}}{{end}}</div>
{{end}}
{{if .Interactive}}<dialog id="editor">
  <form method="dialog">
    <p>Operations (JSON array), applied together:</p>
    <textarea id="ops">[{"op": "set_title", "value": ""}]</textarea>
    <div id="error"></div>
    <div class="actions"><button value="cancel">Cancel</button> <button id="apply" value="apply">Apply</button></div>
  </form>
</dialog>
<script>
(function () {
  var dialog = document.getElementById('editor');
  var endpoint = '';
  document.querySelectorAll('button.edit').forEach(function (b) {
    b.addEventListener('click', function () {
      endpoint = b.dataset.endpoint;
      document.getElementById('error').textContent = '';
      dialog.showModal();
    });
  });
  document.getElementById('apply').addEventListener('click', function (ev) {
    ev.preventDefault();
    var body;
    try { body = JSON.parse(document.getElementById('ops').value); } catch (e) {
      document.getElementById('error').textContent = e.message; return;
    }
    fetch(endpoint, { method: 'PATCH', headers: { 'Content-Type': 'application/json' }, body: JSON.stringify({ ops: body }) })
      .then(function (r) { return r.ok ? location.reload() : r.json().then(function (j) { document.getElementById('error').textContent = j.message || r.statusText; }); });
  });
})();
</script>
{{end}}
</body>
</html>
`
