package sparql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		QueryURL:      srv.URL + "/sparql",
		GraphStoreURL: srv.URL + "/graph",
	}, slog.Default())
}

func TestSelect(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotQuery = r.PostForm.Get("query")
		assert.Equal(t, "application/sparql-results+json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = io.WriteString(w, `{
			"head": {"vars": ["s", "label"]},
			"results": {"bindings": [
				{"s": {"type": "uri", "value": "urn:a"}, "label": {"type": "literal", "value": "A", "xml:lang": "en"}},
				{"s": {"type": "bnode", "value": "b0"}}
			]}
		}`)
	})

	rows, err := c.Select(context.Background(), "SELECT ?s ?label WHERE { ?s ?p ?label }")
	require.NoError(t, err)
	assert.Equal(t, "SELECT ?s ?label WHERE { ?s ?p ?label }", gotQuery)
	require.Len(t, rows, 2)

	assert.Equal(t, "urn:a", rows[0].Get("s"))
	assert.Equal(t, rdf.LangLiteral("A", "en"), rows[0]["label"].RDF())
	assert.Equal(t, rdf.Blank("b0"), rows[1]["s"].RDF())
	assert.Equal(t, "", rows[1].Get("label"))
}

func TestAsk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"head": {}, "boolean": true}`)
	})
	ok, err := c.Ask(context.Background(), "ASK {}")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestUpdate(t *testing.T) {
	var form url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.WriteHeader(http.StatusOK)
	})

	err := c.Update(context.Background(), "CLEAR SILENT GRAPH <urn:g>")
	require.NoError(t, err)
	assert.Equal(t, "CLEAR SILENT GRAPH <urn:g>", form.Get("update"))
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		forbidden bool
	}{
		{"forbidden", http.StatusForbidden, true},
		{"server error", http.StatusInternalServerError, false},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, "SP031: syntax error\n")
			})

			err := c.Update(context.Background(), "bogus")
			require.Error(t, err)

			var serr *Error
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.status, serr.StatusCode)
			assert.Equal(t, "SP031: syntax error", serr.Body)
			assert.Equal(t, tt.forbidden, errors.Is(err, ErrForbidden))
		})
	}
}

func TestLoad(t *testing.T) {
	var graph, ctype, body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graph", r.URL.Path)
		graph = r.URL.Query().Get("graph")
		ctype = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	err := c.Load(context.Background(), "urn:g", []byte("<urn:a> <urn:p> <urn:b> ."))
	require.NoError(t, err)
	assert.Equal(t, "urn:g", graph)
	assert.Equal(t, "text/turtle", ctype)
	assert.Equal(t, "<urn:a> <urn:p> <urn:b> .", body)
}

func TestTerms(t *testing.T) {
	assert.Equal(t, "<urn:x>", IRI("urn:x"))
	assert.Equal(t, `"a \"b\""`, Literal(`a "b"`))
	assert.Equal(t, "VALUES ?s { <urn:a> <urn:b> }", Values("s", []string{"urn:a", "urn:b"}))
}
