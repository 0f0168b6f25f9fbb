package exec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// Scalar names shared with the derivation step
const (
	BigInt   = "BigInt"
	BigFloat = "BigFloat"
	Cursor   = "Cursor"
	Datetime = "Datetime"
	Date     = "Date"
	Time     = "Time"
	UUID     = "UUID"
	JSON     = "JSON"
)

// CustomScalars lists the scalars derived schemas may declare, in declaration order
var CustomScalars = []string{BigFloat, BigInt, Cursor, Date, Datetime, JSON, Time, UUID}

func newScalars(opts Options) map[string]*graphql.Scalar {
	return map[string]*graphql.Scalar{
		BigInt: graphql.NewScalar(graphql.ScalarConfig{
			Name:         BigInt,
			Description:  "A signed eight-byte integer, transported as a string.",
			Serialize:    numericString,
			ParseValue:   numericString,
			ParseLiteral: literalNumericString,
		}),
		BigFloat: graphql.NewScalar(graphql.ScalarConfig{
			Name:         BigFloat,
			Description:  "An arbitrary precision decimal, transported as a string.",
			Serialize:    numericString,
			ParseValue:   numericString,
			ParseLiteral: literalNumericString,
		}),
		Cursor: graphql.NewScalar(graphql.ScalarConfig{
			Name:         Cursor,
			Description:  "An opaque pagination cursor.",
			Serialize:    stringValue,
			ParseValue:   stringValue,
			ParseLiteral: literalString,
		}),
		Datetime: graphql.NewScalar(graphql.ScalarConfig{
			Name:         Datetime,
			Description:  "A point in time as described by ISO 8601.",
			Serialize:    timeFormatter(time.RFC3339Nano),
			ParseValue:   stringValue,
			ParseLiteral: literalString,
		}),
		Date: graphql.NewScalar(graphql.ScalarConfig{
			Name:         Date,
			Description:  "A calendar date in YYYY-MM-DD format.",
			Serialize:    timeFormatter(time.DateOnly),
			ParseValue:   stringValue,
			ParseLiteral: literalString,
		}),
		Time: graphql.NewScalar(graphql.ScalarConfig{
			Name:         Time,
			Description:  "A time of day in HH:MM:SS format.",
			Serialize:    timeFormatter(time.TimeOnly),
			ParseValue:   stringValue,
			ParseLiteral: literalString,
		}),
		UUID: graphql.NewScalar(graphql.ScalarConfig{
			Name:         UUID,
			Description:  "A universally unique identifier as defined by RFC 4122.",
			Serialize:    stringValue,
			ParseValue:   parseUUID,
			ParseLiteral: func(v ast.Value) interface{} { return parseUUID(literalString(v)) },
		}),
		JSON: newJSONScalar(opts.DynamicJSON),
	}
}

func stringValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return nil
	}
}

func numericString(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return nil
		}
		return val
	case []byte:
		return numericString(string(val))
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return nil
	}
}

func timeFormatter(layout string) func(interface{}) interface{} {
	return func(v interface{}) interface{} {
		if t, ok := v.(time.Time); ok {
			return t.Format(layout)
		}
		return stringValue(v)
	}
}

func parseUUID(v interface{}) interface{} {
	s, ok := stringValue(v).(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return id.String()
}

func literalString(v ast.Value) interface{} {
	if s, ok := v.(*ast.StringValue); ok {
		return s.Value
	}
	return nil
}

func literalNumericString(v ast.Value) interface{} {
	switch val := v.(type) {
	case *ast.StringValue:
		return numericString(val.Value)
	case *ast.IntValue:
		return val.Value
	case *ast.FloatValue:
		return val.Value
	default:
		return nil
	}
}

// literalValue converts an inline literal into plain Go values
func literalValue(v ast.Value) interface{} {
	switch val := v.(type) {
	case *ast.StringValue:
		return val.Value
	case *ast.IntValue:
		n, err := strconv.ParseInt(val.Value, 10, 64)
		if err != nil {
			return val.Value
		}
		return n
	case *ast.FloatValue:
		f, err := strconv.ParseFloat(val.Value, 64)
		if err != nil {
			return val.Value
		}
		return f
	case *ast.BooleanValue:
		return val.Value
	case *ast.EnumValue:
		return val.Value
	case *ast.ListValue:
		out := make([]interface{}, 0, len(val.Values))
		for _, item := range val.Values {
			out = append(out, literalValue(item))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(val.Fields))
		for _, field := range val.Fields {
			out[field.Name.Value] = literalValue(field.Value)
		}
		return out
	default:
		return nil
	}
}

// newJSONScalar serializes JSON columns either as structured values or as
// their encoded text. Inputs always reach the store as encoded text.
func newJSONScalar(dynamic bool) *graphql.Scalar {
	encode := func(v interface{}) interface{} {
		if s, ok := v.(string); ok && !dynamic {
			return s
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return string(b)
	}

	cfg := graphql.ScalarConfig{
		Name: JSON,
		ParseLiteral: func(v ast.Value) interface{} {
			if !dynamic {
				return literalString(v)
			}
			return encode(literalValue(v))
		},
	}

	if dynamic {
		cfg.Description = "A JSON value, sent and received as structured data."
		cfg.Serialize = func(v interface{}) interface{} {
			switch val := v.(type) {
			case string:
				return decodeJSON([]byte(val))
			case []byte:
				return decodeJSON(val)
			default:
				return v
			}
		}
		cfg.ParseValue = encode
	} else {
		cfg.Description = "A JSON value, sent and received as its encoded string."
		cfg.Serialize = encode
		cfg.ParseValue = stringValue
	}

	return graphql.NewScalar(cfg)
}

func decodeJSON(b []byte) interface{} {
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return string(b)
	}
	return out
}
