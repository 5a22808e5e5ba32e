package search

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// request is one call received by fakeEngine.
type request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeEngine is an httptest server that answers like Elasticsearch.
type fakeEngine struct {
	mu       sync.Mutex
	requests []request
	respond  func(r request) (int, string)
	server   *httptest.Server
}

func newFakeEngine(t *testing.T, respond func(r request) (int, string)) *fakeEngine {
	t.Helper()
	f := &fakeEngine{respond: respond}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		req := request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)}
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.mu.Unlock()

		status, resp := f.respond(req)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeEngine) calls() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func (f *fakeEngine) client(t *testing.T, cache bool) *Client {
	t.Helper()
	c, err := NewClient(Options{
		Endpoint:     f.server.URL,
		IndexPrefix:  "telegram_index_",
		Schema:       Schema{IndexAnalyzer: "ik_max_word", SearchAnalyzer: "ik_smart", SenderUsername: true},
		CacheEnsured: cache,
	}, nil)
	require.NoError(t, err)
	return c
}

const (
	createdBody       = `{"acknowledged":true,"shards_acknowledged":true,"index":"telegram_index_-1001"}`
	alreadyExistsBody = `{"error":{"root_cause":[{"type":"resource_already_exists_exception","reason":"index [telegram_index_-1001/abc] already exists"}],"type":"resource_already_exists_exception"},"status":400}`
	indexedBody       = `{"_index":"telegram_index_-1001","_id":"42","_version":1,"result":"created"}`
	indexNotFoundBody = `{"error":{"root_cause":[{"type":"index_not_found_exception","reason":"no such index [telegram_index_-1009]"}],"type":"index_not_found_exception"},"status":404}`
	emptyResultBody   = `{"took":1,"timed_out":false,"_shards":{"total":1,"successful":1,"skipped":0,"failed":0},"hits":{"total":{"value":0,"relation":"eq"},"max_score":null,"hits":[]}}`
)

// okEngine answers every request successfully.
func okEngine(r request) (int, string) {
	switch {
	case r.Method == http.MethodPut && !strings.Contains(r.Path, "/_doc/"):
		return http.StatusOK, createdBody
	case r.Method == http.MethodPut:
		return http.StatusCreated, indexedBody
	default:
		return http.StatusOK, emptyResultBody
	}
}
