package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
)

// Search runs keyword against chatID's index and returns the hits in engine
// order. Callers must not pass an empty keyword. Engine and decode failures
// are returned as *EngineError.
//
// A chat that has never been indexed has no index yet; the request sets
// ignore_unavailable so that case yields zero hits rather than a 404, and
// the chat gets "No results found." instead of a search failure. Any other
// 404 is still returned as an error.
func (c *Client) Search(ctx context.Context, chatID int64, keyword string) (*Result, error) {
	index := c.IndexName(chatID)

	body, err := json.Marshal(c.schema.QueryBody(keyword))
	if err != nil {
		return nil, &EngineError{Op: OpSearch, Index: index, Err: err}
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(index),
		c.es.Search.WithBody(bytes.NewReader(body)),
		c.es.Search.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return nil, &EngineError{Op: OpSearch, Index: index, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, &EngineError{Op: OpSearch, Index: index, Status: res.StatusCode, Body: string(raw)}
	}

	var result Result
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, &EngineError{Op: OpDecode, Index: index, Status: res.StatusCode, Err: err}
	}
	return &result, nil
}
