package search

// Highlight markup wrapped around each matched fragment.
const (
	HighlightPreTag  = "<b>"
	HighlightPostTag = "</b>"
)

// SearchFields are the fields a keyword query runs against.
var SearchFields = []string{"message", "senderName", "senderUsername"}

// Schema configures the index mapping and query analyzers.
type Schema struct {
	// IndexAnalyzer segments text at index time (maximal segmentation).
	IndexAnalyzer string
	// SearchAnalyzer segments query text (smart segmentation).
	SearchAnalyzer string
	// SenderUsername maps senderUsername as an exact-match keyword.
	SenderUsername bool
}

func (s Schema) analyzedText() map[string]any {
	return map[string]any{
		"type":            "text",
		"analyzer":        s.IndexAnalyzer,
		"search_analyzer": s.SearchAnalyzer,
	}
}

// MappingBody is the create-index request body.
func (s Schema) MappingBody() map[string]any {
	props := map[string]any{
		"message":    s.analyzedText(),
		"senderName": s.analyzedText(),
		"date":       map[string]any{"type": "date"},
		"chatId":     map[string]any{"type": "long"},
		"id":         map[string]any{"type": "integer"},
		"senderId":   map[string]any{"type": "long"},
	}
	if s.SenderUsername {
		props["senderUsername"] = map[string]any{"type": "keyword"}
	}
	return map[string]any{
		"mappings": map[string]any{
			"properties": props,
		},
	}
}

// QueryBody is the search request body for keyword.
func (s Schema) QueryBody(keyword string) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"simple_query_string": map[string]any{
				"query":            keyword,
				"fields":           SearchFields,
				"default_operator": "and",
				"analyzer":         s.SearchAnalyzer,
			},
		},
		"highlight": map[string]any{
			"pre_tags":  []string{HighlightPreTag},
			"post_tags": []string{HighlightPostTag},
			"fields": map[string]any{
				"message": map[string]any{},
			},
		},
	}
}
