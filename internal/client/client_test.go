package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/autogql/internal/db"
	"github.com/tordrt/autogql/internal/gateway"
	"github.com/tordrt/autogql/internal/testutil"
)

type usersData struct {
	Users *struct {
		Nodes []struct {
			ID    int     `json:"id"`
			Name  string  `json:"name"`
			Email *string `json:"email"`
		} `json:"nodes"`
	} `json:"users"`
}

type usersVars struct {
	First *int `json:"first,omitempty"`
}

var usersDocument = TypedDocument[usersData, usersVars]{
	Source:        Document(`query Users($first: Int) { users(first: $first) { nodes { id name email } } }`),
	OperationName: "Users",
}

func newGatewayServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, testutil.NewBlogDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	opts := gateway.DefaultOptions()
	opts.ExportSchemaPath = ""
	opts.WatchSchema = false
	gw, err := gateway.New(ctx, conn, "", opts, nil, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteTyped(t *testing.T) {
	srv := newGatewayServer(t)
	c := New(srv.URL)

	first := 2
	data, err := Execute(context.Background(), c, usersDocument, usersVars{First: &first})
	require.NoError(t, err)
	require.NotNil(t, data.Users)
	require.Len(t, data.Users.Nodes, 2)
	assert.Equal(t, "Ada", data.Users.Nodes[0].Name)
	assert.Equal(t, "ada@example.com", *data.Users.Nodes[0].Email)
	assert.Nil(t, data.Users.Nodes[1].Email)
}

func TestExecuteGraphQLErrors(t *testing.T) {
	srv := newGatewayServer(t)
	c := New(srv.URL)

	doc := TypedDocument[map[string]any, map[string]any]{Source: `{ nope }`}
	_, err := Execute(context.Background(), c, doc, nil)
	require.Error(t, err)

	var gqlErrs Errors
	require.ErrorAs(t, err, &gqlErrs)
	assert.Contains(t, gqlErrs[0].Message, "nope")
}

func TestBatch(t *testing.T) {
	srv := newGatewayServer(t)
	c := New(srv.URL)

	resps, err := c.Batch(context.Background(), []Request{
		{Query: `{ user(id: 3) { name } }`},
		{Query: `{ user(id: 1) { name } }`},
	})
	require.NoError(t, err)
	require.Len(t, resps, 2)
	assert.JSONEq(t, `{"user":{"name":"Grace"}}`, string(resps[0].Data))
	assert.JSONEq(t, `{"user":{"name":"Ada"}}`, string(resps[1].Data))
}

func TestTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithHeader("Authorization", "secret")).Do(context.Background(), Request{Query: "{ a }"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

// blockingServer answers every request with its variables echoed back, but
// holds requests whose "first" variable is 1 until release is closed
func blockingServer(t *testing.T, release <-chan struct{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Variables struct {
				First int `json:"first"`
			} `json:"variables"`
		}
		_ = json.Unmarshal(body, &req)
		if req.Variables.First == 1 {
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
		}
		nodes := strings.Repeat(`{"id":1,"name":"Ada","email":null},`, req.Variables.First)
		_, _ = io.WriteString(w, `{"data":{"users":{"nodes":[`+strings.TrimSuffix(nodes, ",")+`]}}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryLatestWins(t *testing.T) {
	release := make(chan struct{})
	srv := blockingServer(t, release)
	q := NewQuery(New(srv.URL), usersDocument)

	one, two := 1, 2
	stale := q.Run(context.Background(), usersVars{First: &one})
	assert.True(t, q.Result().Fetching)

	latest := q.Run(context.Background(), usersVars{First: &two})
	select {
	case res := <-latest:
		require.NoError(t, res.Error)
		require.Len(t, res.Data.Users.Nodes, 2)
	case <-time.After(5 * time.Second):
		t.Fatal("latest run did not settle")
	}
	close(release)

	select {
	case res, ok := <-stale:
		assert.False(t, ok, "superseded run published %+v", res)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded run did not settle")
	}

	current := q.Result()
	assert.False(t, current.Fetching)
	require.NotNil(t, current.Data)
	assert.Len(t, current.Data.Users.Nodes, 2)
}

func TestResultJSON(t *testing.T) {
	out, err := json.Marshal(Result[usersData]{Fetching: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fetching":true,"data":null,"error":null}`, string(out))

	out, err = json.Marshal(Result[usersData]{Error: Errors{{Message: "boom", Path: []any{"users"}}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"fetching":false,"data":null,"error":"users: boom","errors":[{"message":"boom","path":["users"]}]}`, string(out))
}
