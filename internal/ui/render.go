package ui

import (
	"io"
	"text/template"
	"time"

	"github.com/UkralStul/postboard/internal/domain"
	"github.com/UkralStul/postboard/internal/posts"
)

const stampLayout = "2006-01-02 15:04:05"

const pageTemplate = `{{if .Form.Target}}Edit post {{.Form.Target}}{{else}}Create a post{{end}}
  author:  {{.Form.Draft.Author}}
  content: {{.Form.Draft.Content}}
  image:   {{.Form.Draft.ImageURL}}
{{- if .Form.Saving}}
  Saving...
{{- end}}
{{- if .Form.Err}}
  ! {{.Form.Err}}
{{- end}}

Posts
{{- if .State.Loading}}
Loading...
{{- end}}
{{- if .State.Err}}
error: {{.State.Err}}
{{- end}}
{{- if and (not .State.Loading) (not .State.Posts)}}
No posts yet.
{{- end}}
{{- range .State.Posts}}

[{{.ID}}] {{.DisplayAuthor}}
  Created:  {{stamp .CreatedAt}}
  Modified: {{stamp .ModifiedAt}}
  {{.Content}}
{{- if .ImageURL}}
  image: {{.ImageURL}}
{{- end}}
{{- end}}
`

// Renderer writes the page as plain text.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer formats timestamps in loc.
func NewRenderer(loc *time.Location) *Renderer {
	funcs := template.FuncMap{
		"stamp": func(ts domain.Timestamp) string {
			if ts == "" {
				return "-"
			}
			t, ok := ts.Time()
			if !ok {
				return string(ts)
			}
			return t.In(loc).Format(stampLayout)
		},
	}
	return &Renderer{tmpl: template.Must(template.New("page").Funcs(funcs).Parse(pageTemplate))}
}

// Render writes state and the current form to w.
func (r *Renderer) Render(w io.Writer, state posts.State, form Form) error {
	return r.tmpl.Execute(w, struct {
		State posts.State
		Form  Form
	}{state, form})
}

var defaultRenderer = NewRenderer(time.Local)

// Render uses the local time zone.
func Render(w io.Writer, state posts.State, form Form) error {
	return defaultRenderer.Render(w, state, form)
}
