package search

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func TestBodyFallsBackToCaption(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		caption string
		want    string
	}{
		{"text wins", "hello", "caption", "hello"},
		{"caption fallback", "", "photo caption", "photo caption"},
		{"neither", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ChatMessage{Text: tt.text, Caption: tt.caption}
			assert.Equal(t, tt.want, m.Body())
		})
	}
}

func TestNewDocumentSkipsEmptyMessages(t *testing.T) {
	_, ok := NewDocument(&ChatMessage{ChatID: -1001, ID: 1, From: &User{ID: 7, FirstName: "Ann"}})
	assert.False(t, ok)
}

func TestSenderChatResolution(t *testing.T) {
	tests := []struct {
		name     string
		chat     *Chat
		wantName string
		wantUser *string
	}{
		{"title", &Chat{ID: -1009, Title: "Announcements", FirstName: "ignored", Username: "news"}, "Announcements", ptr("news")},
		{"first name fallback", &Chat{ID: -1009, FirstName: "Private"}, "Private", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &ChatMessage{
				ChatID:     -1001,
				ID:         5,
				From:       &User{ID: 777000, FirstName: "Telegram", Username: "telegram"},
				SenderChat: tt.chat,
				Text:       "hi",
				Date:       testDate,
			}
			doc, ok := NewDocument(m)
			require.True(t, ok)
			assert.Equal(t, tt.chat.ID, doc.SenderID)
			assert.Equal(t, tt.wantName, doc.SenderName)
			assert.Equal(t, tt.wantUser, doc.SenderUsername)
		})
	}
}

func TestHumanSenderResolution(t *testing.T) {
	m := &ChatMessage{
		ChatID: -1001,
		ID:     42,
		From:   &User{ID: 1234, FirstName: "Ann", Username: "ann"},
		Text:   "needle in a haystack",
		Date:   testDate,
	}
	doc, ok := NewDocument(m)
	require.True(t, ok)
	assert.Equal(t, Document{
		ID:             42,
		ChatID:         -1001,
		SenderID:       1234,
		SenderName:     "Ann",
		SenderUsername: ptr("ann"),
		Date:           "2024-03-01T12:30:00Z",
		Message:        "needle in a haystack",
	}, doc)
}

func TestNoSenderDefaultsToZero(t *testing.T) {
	doc, ok := NewDocument(&ChatMessage{ChatID: -1001, ID: 3, Text: "orphan", Date: testDate})
	require.True(t, ok)
	assert.Zero(t, doc.SenderID)
	assert.Empty(t, doc.SenderName)
	assert.Nil(t, doc.SenderUsername)
}

func TestDocumentJSONFieldNames(t *testing.T) {
	doc := Document{ID: 42, ChatID: -1001, SenderID: 7, SenderName: "Ann", Date: "2024-03-01T12:30:00Z", Message: "hi"}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 42,
		"chatId": -1001,
		"senderId": 7,
		"senderName": "Ann",
		"senderUsername": null,
		"date": "2024-03-01T12:30:00Z",
		"message": "hi"
	}`, string(raw))
}

func TestDateKeepsOffset(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	doc, ok := NewDocument(&ChatMessage{ID: 1, Text: "x", Date: time.Date(2024, 3, 1, 20, 0, 0, 0, loc)})
	require.True(t, ok)
	assert.Equal(t, "2024-03-01T20:00:00+08:00", doc.Date)
}

func TestIndexNameIsPure(t *testing.T) {
	assert.Equal(t, "telegram_index_-1001234567890", IndexName("telegram_index_", -1001234567890))
	assert.Equal(t, IndexName("p_", 99), IndexName("p_", 99))
	assert.NotEqual(t, IndexName("p_", 99), IndexName("p_", 98))
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "42", DocumentID(42))
	assert.Equal(t, "4294967295", DocumentID(4294967295))
}

func ptr(s string) *string { return &s }
