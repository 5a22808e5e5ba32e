package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Operations reported in EngineError.Op.
const (
	OpPing   = "ping"
	OpEnsure = "ensure index"
	OpIndex  = "index"
	OpSearch = "search"
	OpDecode = "decode"
)

// EngineError is a failed engine call. Status is 0 when the request never
// got an HTTP response.
type EngineError struct {
	Op     string
	Index  string
	Status int
	Body   string
	Err    error
}

func (e *EngineError) Error() string {
	target := e.Op
	if e.Index != "" {
		target += " " + e.Index
	}
	if e.Err != nil {
		return fmt.Sprintf("elasticsearch %s: %v", target, e.Err)
	}
	return fmt.Sprintf("elasticsearch %s: [%d] %s", target, e.Status, e.Body)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Unreachable reports whether the engine could not be reached at all.
func (e *EngineError) Unreachable() bool {
	return e.Status == 0 && e.Op != OpDecode
}

// Options configures a Client.
type Options struct {
	Endpoint    string
	IndexPrefix string
	Schema      Schema
	// CacheEnsured skips the create-index call for indices this process has
	// already created or seen as existing.
	CacheEnsured bool
	// Transport replaces the default HTTP transport.
	Transport http.RoundTripper
}

// Client is the shared, concurrency-safe handle to the search engine.
type Client struct {
	es      *elasticsearch.Client
	prefix  string
	schema  Schema
	cache   bool
	ensured sync.Map
	logger  *zap.Logger
}

// NewClient creates a client for a single engine endpoint. No request is
// made until the first call.
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	if opts.Endpoint == "" {
		return nil, errors.New("search: endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{opts.Endpoint},
		Transport:    opts.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search: create client: %w", err)
	}
	return &Client{
		es:     es,
		prefix: opts.IndexPrefix,
		schema: opts.Schema,
		cache:  opts.CacheEnsured,
		logger: logger,
	}, nil
}

// IndexName returns the index holding chatID's messages.
func (c *Client) IndexName(chatID int64) string {
	return IndexName(c.prefix, chatID)
}

// Ping checks that the endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return &EngineError{Op: OpPing, Err: err}
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return &EngineError{Op: OpPing, Status: res.StatusCode, Body: res.Status()}
	}
	return nil
}

// EnsureIndex creates index with the configured mapping. An index that
// already exists counts as success.
func (c *Client) EnsureIndex(ctx context.Context, index string) error {
	if c.cache {
		if _, ok := c.ensured.Load(index); ok {
			return nil
		}
	}

	body, err := json.Marshal(c.schema.MappingBody())
	if err != nil {
		return &EngineError{Op: OpEnsure, Index: index, Err: err}
	}
	res, err := c.es.Indices.Create(index,
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return &EngineError{Op: OpEnsure, Index: index, Err: err}
	}
	raw, err := c.drain(OpEnsure, index, res)
	if err != nil {
		return err
	}
	if res.IsError() && !alreadyExists(res.StatusCode, raw) {
		return &EngineError{Op: OpEnsure, Index: index, Status: res.StatusCode, Body: string(raw)}
	}

	if c.cache {
		c.ensured.Store(index, struct{}{})
	}
	return nil
}

// Put writes doc into index under its message id, replacing any previous
// version.
func (c *Client) Put(ctx context.Context, index string, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return &EngineError{Op: OpIndex, Index: index, Err: err}
	}
	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(DocumentID(doc.ID)),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return &EngineError{Op: OpIndex, Index: index, Err: err}
	}
	raw, err := c.drain(OpIndex, index, res)
	if err != nil {
		return err
	}
	if res.IsError() {
		return &EngineError{Op: OpIndex, Index: index, Status: res.StatusCode, Body: string(raw)}
	}
	return nil
}

// drain reads and closes the response body, logging it at debug level.
func (c *Client) drain(op, index string, res *esapi.Response) ([]byte, error) {
	defer func() { _ = res.Body.Close() }()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &EngineError{Op: op, Index: index, Status: res.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug("elasticsearch response",
		zap.String("op", op),
		zap.String("index", index),
		zap.Int("status", res.StatusCode),
		zap.ByteString("body", raw),
	)
	return raw, nil
}

func alreadyExists(status int, body []byte) bool {
	return status == http.StatusBadRequest && bytes.Contains(body, []byte("resource_already_exists_exception"))
}
