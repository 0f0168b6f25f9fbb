package exec

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
scalar BigInt
scalar Datetime
scalar JSON
scalar UUID

enum Color { RED GREEN }

type Thing {
  id: BigInt!
  name: String
  color: Color
  createdAt: Datetime
  meta: JSON
  old: String @deprecated(reason: "use name")
}

input ThingFilter {
  color: Color
}

type Query {
  things(order: [Color!] = [RED], filter: ThingFilter): [Thing!]!
  echoUuid(id: UUID!): UUID
}
`

type row map[string]any

func loadTestSchema(t *testing.T) *ast.Schema {
	t.Helper()
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "test.graphql", Input: testSDL})
	require.NoError(t, err)
	return s
}

func TestCompileAndExecute(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var gotOrder []interface{}

	bindings := Bindings{
		Resolvers: map[string]FieldResolver{
			"Query.things": {Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				gotOrder, _ = p.Args["order"].([]interface{})
				return []any{
					row{"id": int64(9007199254740993), "name": "a", "color": "r", "createdAt": created, "meta": `{"k":[1,2]}`},
				}, nil
			}},
			"Query.echoUuid": {Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Args["id"], nil
			}},
		},
		EnumValues: map[string]map[string]any{"Color": {"RED": "r", "GREEN": "g"}},
	}

	schema, err := Compile(loadTestSchema(t), bindings, Options{DynamicJSON: true})
	require.NoError(t, err)

	res := graphql.Do(graphql.Params{
		Schema:        *schema,
		Context:       context.Background(),
		RequestString: `{ things { id name color createdAt meta } echoUuid(id: "0B6C7E3E-1F40-4A4F-9D0E-6F1F0E6A8C11") }`,
	})
	require.Empty(t, res.Errors)

	data := res.Data.(map[string]interface{})
	things := data["things"].([]interface{})
	require.Len(t, things, 1)
	thing := things[0].(map[string]interface{})
	assert.Equal(t, "9007199254740993", thing["id"])
	assert.Equal(t, "RED", thing["color"])
	assert.Equal(t, "2024-05-01T12:00:00Z", thing["createdAt"])
	assert.Equal(t, map[string]interface{}{"k": []interface{}{float64(1), float64(2)}}, thing["meta"])
	assert.Equal(t, "0b6c7e3e-1f40-4a4f-9d0e-6f1f0e6a8c11", data["echoUuid"])

	assert.Equal(t, []interface{}{"r"}, gotOrder, "enum default maps to its internal value")
}

func TestOpaqueJSON(t *testing.T) {
	bindings := Bindings{Resolvers: map[string]FieldResolver{
		"Query.things": {Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return []any{row{"id": "1", "meta": map[string]any{"k": true}}}, nil
		}},
	}}

	schema, err := Compile(loadTestSchema(t), bindings, Options{})
	require.NoError(t, err)

	res := graphql.Do(graphql.Params{Schema: *schema, RequestString: `{ things { meta } }`})
	require.Empty(t, res.Errors)
	thing := res.Data.(map[string]interface{})["things"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, `{"k":true}`, thing["meta"])
}

func TestInvalidUUIDIsRejected(t *testing.T) {
	schema, err := Compile(loadTestSchema(t), Bindings{}, Options{})
	require.NoError(t, err)

	res := graphql.Do(graphql.Params{Schema: *schema, RequestString: `{ echoUuid(id: "nope") }`})
	assert.NotEmpty(t, res.Errors)
}

func TestDeprecationIsCarried(t *testing.T) {
	schema, err := Compile(loadTestSchema(t), Bindings{}, Options{})
	require.NoError(t, err)

	thing := schema.Type("Thing").(*graphql.Object)
	assert.Equal(t, "use name", thing.Fields()["old"].DeprecationReason)
}

func TestCompileRejectsUnknownScalar(t *testing.T) {
	s, err := gqlparser.LoadSchema(&ast.Source{Input: `scalar Money type Query { price: Money }`})
	require.NoError(t, err)

	_, err = Compile(s, Bindings{}, Options{})
	require.Error(t, err)
	assert.Contains(t, fmt.Sprintf("%+v", err), "compile.go", "compile errors carry a stack trace")
}

func TestCompileRequiresQueryRoot(t *testing.T) {
	_, err := Compile(&ast.Schema{Types: map[string]*ast.Definition{}}, Bindings{}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query root")
	assert.Contains(t, fmt.Sprintf("%+v", err), "exec.Compile")
}
