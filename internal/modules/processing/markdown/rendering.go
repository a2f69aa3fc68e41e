package markdown

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

const defaultDocumentTitle = "Trendjack report"

// DocumentOptions controls the HTML shell around rendered markdown.
type DocumentOptions struct {
	Title  string
	Info   string
	Footer string
}

var converter = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Typographer),
	goldmark.WithRendererOptions(htmlrenderer.WithHardWraps(), htmlrenderer.WithXHTML()),
)

var documentTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1.0" />
<meta name="referrer" content="no-referrer" />
<title>{{.Title}}</title>
<style>
body { max-width: 860px; margin: 0 auto; padding: 2em 1em; font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; line-height: 1.6; color: #222; }
h1, h2, h3, h4 { color: #0a3d62; }
blockquote { border-left: 4px solid #0077b5; margin: 1em 0; padding: 0.5em 1em; background: #f3f6f8; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #d0d7de; padding: 6px 10px; text-align: left; vertical-align: top; }
code { background: #eef3f7; padding: 2px 4px; border-radius: 4px; }
.info { text-align: center; opacity: 0.8; }
footer { text-align: right; padding: 2em 0; font-size: 0.8em; }
</style>
</head>
<body>
{{if .Info}}<p class="info">{{.Info}}</p>
{{end}}<article>
{{.Body}}</article>
{{if .Footer}}<footer>{{.Footer}}</footer>
{{end}}</body>
</html>
`))

type documentView struct {
	Title  string
	Info   string
	Footer string
	Body   template.HTML
}

// RenderContent converts markdown to an HTML fragment. Raw HTML in the
// input is dropped by the renderer.
func RenderContent(markdownText string) string {
	text := strings.TrimSpace(markdownText)
	if text == "" {
		return ""
	}
	var out bytes.Buffer
	if err := converter.Convert([]byte(text), &out); err != nil {
		return "<pre>" + template.HTMLEscapeString(text) + "</pre>"
	}
	return out.String()
}

// RenderHTML renders markdown as a standalone HTML document. Front matter is
// not shown.
func RenderHTML(markdownText string, options DocumentOptions) string {
	view := documentView{
		Title:  strings.TrimSpace(options.Title),
		Info:   strings.TrimSpace(options.Info),
		Footer: strings.TrimSpace(options.Footer),
		Body:   template.HTML(RenderContent(stripFrontMatter(markdownText))),
	}
	if view.Title == "" {
		view.Title = defaultDocumentTitle
	}
	var out bytes.Buffer
	if err := documentTemplate.Execute(&out, view); err != nil {
		return "<pre>" + template.HTMLEscapeString(markdownText) + "</pre>"
	}
	return out.String()
}
