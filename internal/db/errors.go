package db

import (
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Error is a store error carrying the driver's code, hint and detail.
// It satisfies graphql-go's ExtendedError so resolvers can return it directly.
type Error struct {
	Message string
	Code    string
	Hint    string
	Detail  string

	cause error
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WrapError converts a driver error into an *Error with a stack attached.
// Nil stays nil and an existing *Error is returned unchanged.
func WrapError(err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if stderrors.As(err, &existing) {
		return err
	}

	e := &Error{Message: err.Error(), cause: errors.WithStack(err)}

	var pgErr *pgconn.PgError
	var myErr *mysql.MySQLError
	var liteErr sqlite3.Error
	switch {
	case stderrors.As(err, &pgErr):
		e.Message = pgErr.Message
		e.Code = pgErr.Code
		e.Hint = pgErr.Hint
		e.Detail = pgErr.Detail
	case stderrors.As(err, &myErr):
		e.Message = myErr.Message
		e.Code = strconv.Itoa(int(myErr.Number))
	case stderrors.As(err, &liteErr):
		e.Code = strconv.Itoa(int(liteErr.ExtendedCode))
		e.Detail = liteErr.Code.Error()
	}
	return e
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Cause returns the wrapped driver error
func (e *Error) Cause() error {
	return errors.Cause(e.cause)
}

// Stack renders the captured frames, innermost first
func (e *Error) Stack() []string {
	st, ok := e.cause.(stackTracer)
	if !ok {
		return nil
	}
	frames := st.StackTrace()
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		out = append(out, fmt.Sprintf("%n (%s:%d)", f, f, f))
	}
	return out
}

// Extensions is read by graphql-go when formatting the error
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{}
	if e.Code != "" {
		ext["errcode"] = e.Code
	}
	if e.Hint != "" {
		ext["hint"] = e.Hint
	}
	if e.Detail != "" {
		ext["detail"] = e.Detail
	}
	if stack := e.Stack(); len(stack) > 0 {
		ext["stack"] = stack
	}
	return ext
}
