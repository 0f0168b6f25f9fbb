// Package web is the front-end app. Its single page renders the result of
// MyQuery, fetched from the gateway through the generated typed document.
package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tordrt/autogql/internal/client"
	"github.com/tordrt/autogql/internal/server"
	"github.com/tordrt/autogql/internal/web/gql"
)

var myQuery = client.Document(`
  query MyQuery {
    users(first: 10) {
      nodes {
        id
        name
        email
      }
    }
  }
`)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>autogql</title>
<style>
pre.fetching { color: #666; }
pre.error { color: #b00020; border-left: 4px solid #b00020; padding-left: 8px; }
</style>
</head>
<body>
<h1>Hello World</h1>
{{- if eq .State "error"}}
<p class="error">The query failed: {{.Message}}</p>
{{- end}}
<pre class="{{.State}}">{{.JSON}}</pre>
</body>
</html>
`))

type view struct {
	State   string
	Message string
	JSON    string
}

// Page serves the front-end root
type Page struct {
	client *client.Client
	logger *zap.Logger
}

// NewPage binds the page to a gateway client. It fails when the generated
// document no longer matches the source literal.
func NewPage(c *client.Client, logger *zap.Logger) (*Page, error) {
	if gql.MyQueryDocument.Source != myQuery {
		return nil, errors.New("generated MyQuery document is stale, run autogql codegen")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Page{client: c, logger: logger}, nil
}

func (p *Page) Routes() []server.Route {
	return []server.Route{{Pattern: "GET /{$}", Handler: http.HandlerFunc(p.serve)}}
}

func (p *Page) serve(w http.ResponseWriter, r *http.Request) {
	// each request owns its query so concurrent visitors never supersede each other
	query := client.NewQuery(p.client, gql.MyQueryDocument)
	res, ok := <-query.Run(r.Context(), gql.MyQueryVariables{})
	if !ok {
		res = query.Result()
	}

	v, err := render(res)
	if err != nil {
		p.logger.Error("failed to encode query result", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if v.State == "error" {
		p.logger.Warn("MyQuery failed", zap.Error(res.Error))
		status = http.StatusBadGateway
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, v); err != nil {
		p.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func render(res client.Result[gql.MyQueryData]) (view, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return view{}, errors.Wrap(err, "failed to encode result")
	}

	v := view{State: "data", JSON: string(data)}
	switch {
	case res.Error != nil:
		v.State = "error"
		v.Message = res.Error.Error()
	case res.Fetching:
		v.State = "fetching"
	}
	return v, nil
}
