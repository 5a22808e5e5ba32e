package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingBody(t *testing.T) {
	s := Schema{IndexAnalyzer: "ik_max_word", SearchAnalyzer: "ik_smart", SenderUsername: true}
	raw, err := json.Marshal(s.MappingBody())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"mappings": {
			"properties": {
				"message":        {"type": "text", "analyzer": "ik_max_word", "search_analyzer": "ik_smart"},
				"senderName":     {"type": "text", "analyzer": "ik_max_word", "search_analyzer": "ik_smart"},
				"senderUsername": {"type": "keyword"},
				"date":           {"type": "date"},
				"chatId":         {"type": "long"},
				"id":             {"type": "integer"},
				"senderId":       {"type": "long"}
			}
		}
	}`, string(raw))
}

func TestMappingBodyWithoutSenderUsername(t *testing.T) {
	s := Schema{IndexAnalyzer: "standard", SearchAnalyzer: "standard"}
	props := s.MappingBody()["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.NotContains(t, props, "senderUsername")
	assert.Contains(t, props, "message")
}

func TestQueryBody(t *testing.T) {
	s := Schema{IndexAnalyzer: "ik_max_word", SearchAnalyzer: "ik_smart"}
	raw, err := json.Marshal(s.QueryBody(`golang "generic types"`))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"query": {
			"simple_query_string": {
				"query": "golang \"generic types\"",
				"fields": ["message", "senderName", "senderUsername"],
				"default_operator": "and",
				"analyzer": "ik_smart"
			}
		},
		"highlight": {
			"pre_tags": ["<b>"],
			"post_tags": ["</b>"],
			"fields": {"message": {}}
		}
	}`, string(raw))
}
