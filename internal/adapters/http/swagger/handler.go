// Package swagger serves the embedded OpenAPI document and a plain HTML
// index of its operations.
package swagger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Error constants.
var (
	ErrServe = errors.New("swagger serve failed")
	ErrParse = errors.New("openapi document invalid")
)

// Operation is one method on one path.
type Operation struct {
	Method  string
	Path    string
	Summary string
}

type document struct {
	Info struct {
		Title   string `yaml:"title"`
		Version string `yaml:"version"`
	} `yaml:"info"`
	Paths map[string]map[string]struct {
		Summary string `yaml:"summary"`
	} `yaml:"paths"`
}

// Operations lists the operations of doc sorted by path, then method.
func Operations(doc []byte) (title string, ops []Operation, err error) {
	var d document
	if err := yaml.Unmarshal(doc, &d); err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	for path, methods := range d.Paths {
		for method, op := range methods {
			ops = append(ops, Operation{Method: strings.ToUpper(method), Path: path, Summary: op.Summary})
		}
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path != ops[j].Path {
			return ops[i].Path < ops[j].Path
		}
		return ops[i].Method < ops[j].Method
	})
	return strings.TrimSpace(d.Info.Title + " " + d.Info.Version), ops, nil
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
  </head>
  <body>
    <h1>{{.Title}}</h1>
    <p><a href="/openapi.yaml">openapi.yaml</a></p>
    <table>
      {{- range .Ops}}
      <tr><td><code>{{.Method}}</code></td><td><code>{{.Path}}</code></td><td>{{.Summary}}</td></tr>
      {{- end}}
    </table>
  </body>
</html>
`))

func render(doc []byte) ([]byte, error) {
	title, ops, err := Operations(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, struct {
		Title string
		Ops   []Operation
	}{title, ops}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServe, err)
	}
	return buf.Bytes(), nil
}

// Register attaches the API docs routes to mux.
//
//	GET /api-docs      -> HTML index of operations
//	GET /openapi.yaml  -> embedded OpenAPI document
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	index, err := render(OpenAPI)

	mux.HandleFunc("GET /api-docs", func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(index)
	})

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
}
