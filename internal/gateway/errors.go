package gateway

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/pkg/errors"

	"github.com/tordrt/autogql/internal/db"
)

// Response is the body of one GraphQL response. It always carries data or errors.
type Response struct {
	Data   interface{}              `json:"data,omitempty"`
	Errors []map[string]interface{} `json:"errors,omitempty"`
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// shape converts a graphql-go result into a Response using the configured error options
func (g *Gateway) shape(res *graphql.Result) *Response {
	out := &Response{Data: res.Data}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, g.shapeError(e))
	}
	if out.Data == nil && len(out.Errors) == 0 {
		out.Errors = append(out.Errors, map[string]interface{}{"message": "the operation produced no result"})
	}
	return out
}

// errorResponse wraps a request-level failure that never reached execution
func (g *Gateway) errorResponse(err error) *Response {
	return &Response{Errors: []map[string]interface{}{
		g.shapeError(gqlerrors.FormatError(err)),
	}}
}

func (g *Gateway) shapeError(e gqlerrors.FormattedError) map[string]interface{} {
	obj := map[string]interface{}{"message": e.Message}
	if len(e.Locations) > 0 {
		obj["locations"] = e.Locations
	}
	if len(e.Path) > 0 {
		obj["path"] = e.Path
	}

	ext := map[string]interface{}{}
	for k, v := range e.Extensions {
		ext[k] = v
	}
	var stack []string
	if s, ok := ext["stack"].([]string); ok {
		stack = s
	}
	delete(ext, "stack")

	if orig := e.OriginalError(); orig != nil {
		var dbErr *db.Error
		if stderrors.As(orig, &dbErr) {
			for k, v := range dbErr.Extensions() {
				if k == "stack" {
					continue
				}
				ext[k] = v
			}
			if stack == nil {
				stack = dbErr.Stack()
			}
		}
		if stack == nil {
			stack = stackOf(orig)
		}
	}

	for _, name := range g.opts.ExtendedErrors {
		if v, ok := ext[name]; ok {
			obj[name] = v
		}
	}
	if len(ext) > 0 {
		obj["extensions"] = ext
	}

	if len(stack) > 0 {
		switch g.opts.ShowErrorStack {
		case StackString:
			obj["stack"] = strings.Join(stack, "\n")
		case StackJSON:
			obj["stack"] = stack
		}
	}
	return obj
}

func stackOf(err error) []string {
	var st stackTracer
	if !stderrors.As(err, &st) {
		return nil
	}
	frames := st.StackTrace()
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, fmt.Sprintf("%n (%s:%d)", f, f, f))
	}
	return out
}
