package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEmptyResult(t *testing.T) {
	var r Result
	require.NoError(t, json.Unmarshal([]byte(emptyResultBody), &r))
	assert.True(t, r.Empty())
	assert.NotNil(t, r.Hits.Hits)
	assert.Equal(t, Total{Value: 0, Relation: "eq"}, r.Hits.Total)
	assert.Nil(t, r.Hits.MaxScore)
}

func TestDecodeResultWithHits(t *testing.T) {
	body := `{
		"took": 5,
		"timed_out": false,
		"_shards": {"total": 1, "successful": 1, "skipped": 0, "failed": 0},
		"hits": {
			"total": {"value": 10000, "relation": "gte"},
			"max_score": 2.5,
			"hits": [
				{
					"_index": "telegram_index_-1001",
					"_id": "42",
					"_score": 2.5,
					"_source": {"id": 42, "chatId": -1001, "senderId": 7, "senderName": "Ann",
						"senderUsername": "ann", "date": "2024-03-01T12:30:00Z", "message": "a needle here"},
					"highlight": {"message": ["a <b>needle</b> here"]}
				},
				{
					"_index": "telegram_index_-1001",
					"_id": "7",
					"_score": 1.1,
					"_source": {"id": 7, "chatId": -1001, "senderId": 8, "senderName": "Bob",
						"senderUsername": null, "date": "2024-03-01T12:00:00Z", "message": "needle again"}
				}
			]
		}
	}`
	var r Result
	require.NoError(t, json.Unmarshal([]byte(body), &r))

	assert.Equal(t, int64(5), r.Took)
	assert.Equal(t, Shards{Total: 1, Successful: 1}, r.Shards)
	assert.Equal(t, Total{Value: 10000, Relation: "gte"}, r.Hits.Total)
	require.Len(t, r.Hits.Hits, 2)

	first := r.Hits.Hits[0]
	assert.Equal(t, "42", first.ID)
	assert.Equal(t, "telegram_index_-1001", first.Index)
	assert.Equal(t, uint32(42), first.Source.ID)
	assert.Equal(t, "ann", *first.Source.SenderUsername)
	text, highlighted := first.Fragment()
	assert.True(t, highlighted)
	assert.Equal(t, "a <b>needle</b> here", text)

	second := r.Hits.Hits[1]
	assert.Equal(t, "7", second.ID, "engine order must be kept")
	assert.Nil(t, second.Highlight)
	assert.Nil(t, second.Source.SenderUsername)
	text, highlighted = second.Fragment()
	assert.False(t, highlighted)
	assert.Equal(t, "needle again", text)
}

func TestFragmentUsesFirstHighlight(t *testing.T) {
	h := Hit{
		Source:    Document{Message: "raw"},
		Highlight: &Highlight{Message: []string{"<b>one</b>", "<b>two</b>"}},
	}
	text, _ := h.Fragment()
	assert.Equal(t, "<b>one</b>", text)
}

func TestFragmentEmptyHighlightFallsBack(t *testing.T) {
	h := Hit{Source: Document{Message: "raw"}, Highlight: &Highlight{}}
	text, highlighted := h.Fragment()
	assert.False(t, highlighted)
	assert.Equal(t, "raw", text)
}

func TestDocIDPrefersEngineID(t *testing.T) {
	h := Hit{ID: "77", Source: Document{ID: 42}}
	assert.Equal(t, "77", h.DocID())

	h.ID = ""
	assert.Equal(t, "42", h.DocID())
}
