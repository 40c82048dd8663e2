package solr

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndCommit(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/solr/osf/update", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		_, _ = io.WriteString(w, `{"responseHeader":{"status":0}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/solr", "osf", 0, slog.Default())
	doc := Document{}
	doc.Add("uri", "http://ex.org/r1")
	doc.Add("prefLabel_en", "Alice")

	require.NoError(t, c.Add(context.Background(), []Document{doc}))
	require.NoError(t, c.Commit(context.Background()))
	require.Len(t, bodies, 2)

	var docs []map[string][]any
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &docs))
	assert.Equal(t, []any{"Alice"}, docs[0]["prefLabel_en"])
	assert.JSONEq(t, `{"commit":{}}`, bodies[1])
}

func TestAddEmptyIsNoop(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/solr", "osf", 0, slog.Default())
	assert.NoError(t, c.Add(context.Background(), nil))
	assert.NoError(t, c.DeleteByID(context.Background(), nil))
}

func TestRejectionCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"responseHeader":{"status":400},"error":{"msg":"ERROR: [doc=abc] unknown field 'foo'","code":400}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "osf", 0, slog.Default())
	err := c.Add(context.Background(), []Document{{"foo": {"bar"}}})
	require.Error(t, err)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
	assert.Equal(t, "ERROR: [doc=abc] unknown field 'foo'", serr.Msg)
}

func TestFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/osf/schema/fields":
			_, _ = io.WriteString(w, `{"fields":[{"name":"uri"},{"name":"type"}]}`)
		case "/osf/schema/dynamicfields":
			_, _ = io.WriteString(w, `{"dynamicFields":[{"name":"*_attr_date"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "osf", 0, slog.Default())
	fields, err := c.Fields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"uri", "type", "*_attr_date"}, fields)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/osf/admin/ping", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"OK"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "osf", 0, slog.Default())
	assert.NoError(t, c.Ping(context.Background()))
}
