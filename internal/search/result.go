package search

// Result mirrors the Elasticsearch search response.
type Result struct {
	Took     int64  `json:"took"`
	TimedOut bool   `json:"timed_out"`
	Shards   Shards `json:"_shards"`
	Hits     Hits   `json:"hits"`
}

// Shards reports how many shards answered the query.
type Shards struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Skipped    int64 `json:"skipped"`
	Failed     int64 `json:"failed"`
}

// Hits holds the matched documents in engine order (relevance descending).
type Hits struct {
	Total    Total    `json:"total"`
	MaxScore *float64 `json:"max_score"`
	Hits     []Hit    `json:"hits"`
}

// Total is the hit count; Relation is "eq" or "gte".
type Total struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// Hit is one matched document.
type Hit struct {
	Index     string     `json:"_index"`
	ID        string     `json:"_id"`
	Score     *float64   `json:"_score"`
	Source    Document   `json:"_source"`
	Highlight *Highlight `json:"highlight,omitempty"`
}

// Highlight holds marked-up fragments of the message field.
type Highlight struct {
	Message []string `json:"message"`
}

// Empty reports whether the query matched nothing.
func (r *Result) Empty() bool {
	return len(r.Hits.Hits) == 0
}

// DocID returns the engine's _id for the hit, falling back to the id stored
// in the source when the response omits it.
func (h *Hit) DocID() string {
	if h.ID != "" {
		return h.ID
	}
	return DocumentID(h.Source.ID)
}

// Fragment returns the first highlighted fragment, or the raw message when
// the engine returned no highlight. highlighted tells which one it is.
func (h *Hit) Fragment() (text string, highlighted bool) {
	if h.Highlight != nil && len(h.Highlight.Message) > 0 {
		return h.Highlight.Message[0], true
	}
	return h.Source.Message, false
}
