// Package inflect names the GraphQL types and fields derived from tables and columns.
package inflect

import (
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// Inflector maps relational names to GraphQL names
type Inflector interface {
	// Types
	TableType(table string) string
	ConnectionType(table string) string
	EdgeType(table string) string
	OrderByType(table string) string
	ConditionType(table string) string
	PatchType(table string) string
	InputType(table string) string
	EnumType(name string) string
	AggregatesType(table string, kind string) string

	// Fields and values
	Column(column string) string
	EnumValue(value string) string
	OrderByValue(column string, desc bool) string
	AllRows(table string) string
	RowByUniqueKey(table string, keys []string, primary bool) string
	SingleRelation(foreignTable string, keys []string) string
	SingleRelationBackward(table, foreignTable string, keys []string) string
	ManyRelation(table, foreignTable string, keys []string) string
	ManyToMany(rightTable, junction string, leftKeys, rightKeys []string) string
	Function(name string) string

	// Mutations
	CreateField(table string) string
	CreateInputType(table string) string
	CreatePayloadType(table string) string
	UpdateField(table string, keys []string, primary bool) string
	UpdateInputType(table string, keys []string, primary bool) string
	UpdatePayloadType(table string) string
	DeleteField(table string, keys []string, primary bool) string
	DeleteInputType(table string, keys []string, primary bool) string
	DeletePayloadType(table string) string
	PatchField(table string) string
	RowField(table string) string
}

// Singular returns the singular form of a snake_case table name
func Singular(name string) string {
	return inflection.Singular(name)
}

// Plural returns the plural form of a snake_case table name
func Plural(name string) string {
	return inflection.Plural(name)
}

// camel joins the parts with underscores and lower-camel-cases the result
func camel(parts ...string) string {
	return strcase.ToLowerCamel(strings.Join(parts, "_"))
}

// pascal joins the parts with underscores and upper-camel-cases the result
func pascal(parts ...string) string {
	return strcase.ToCamel(strings.Join(parts, "_"))
}

// byKeys renders "a_and_b" for a key column list
func byKeys(keys []string) string {
	return strings.Join(keys, "_and_")
}

// Name sanitizes s into a valid GraphQL name
func Name(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || unicode.IsDigit(rune(out[0])) {
		out = "_" + out
	}
	return out
}
