package export

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"storyloom/internal/model"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		// Raw HTML in node content is not passed through.
		html.WithHardWraps(),
	),
)

// MarkdownHTML converts a markdown fragment (node content) to HTML.
func MarkdownHTML(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return template.HTML("")
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(src) + "</pre>")
	}
	// Safe only because raw HTML is disabled above.
	return template.HTML(b.String())
}

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

var pageTmpl = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
hr { border: 0; border-top: 1px solid #ddd; }
</style>
{{- if .LiveURL}}
<script type="module" src="{{.Script}}"></script>
{{- end}}
</head>
<body>
<main id="story-preview"{{if .LiveURL}} data-init="@get('{{.LiveURL}}')"{{end}}>
{{.Body}}
</main>
</body>
</html>
`))

// HTML renders the markdown export as a standalone page.
func HTML(doc *model.Story, opt Options) (string, error) {
	var out bytes.Buffer
	err := pageTmpl.Execute(&out, struct {
		Title   string
		Body    template.HTML
		LiveURL string
		Script  string
	}{
		Title:   orDefault(doc.Title, "Story"),
		Body:    MarkdownHTML(Markdown(doc, opt)),
		LiveURL: opt.LiveURL,
		Script:  datastarScript,
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
