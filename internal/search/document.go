// Package search bridges chat messages and Elasticsearch: it derives one
// document per message into a per-chat index and runs highlighted keyword
// queries against that index.
package search

import (
	"strconv"
	"time"
)

// User is the human author of a message.
type User struct {
	ID        int64
	FirstName string
	Username  string
}

// Chat is a chat posting on its own behalf (anonymous admins, linked
// channels).
type Chat struct {
	ID        int64
	Title     string
	FirstName string
	Username  string
}

// ChatMessage is a normalized inbound message.
type ChatMessage struct {
	ChatID     int64
	ID         uint32
	From       *User
	SenderChat *Chat
	Text       string
	Caption    string
	Date       time.Time
}

// Body returns the text to index: the message text, else its caption.
// Empty means the message carries nothing searchable.
func (m *ChatMessage) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// SenderID returns the chat-sender id, else the user id, else 0.
func (m *ChatMessage) SenderID() int64 {
	switch {
	case m.SenderChat != nil:
		return m.SenderChat.ID
	case m.From != nil:
		return m.From.ID
	default:
		return 0
	}
}

// SenderName returns the display name: the sender chat's title (or its first
// name when untitled), else the user's first name.
func (m *ChatMessage) SenderName() string {
	switch {
	case m.SenderChat != nil:
		if m.SenderChat.Title != "" {
			return m.SenderChat.Title
		}
		return m.SenderChat.FirstName
	case m.From != nil:
		return m.From.FirstName
	default:
		return ""
	}
}

// SenderUsername returns the handle of whoever SenderName names, or nil.
func (m *ChatMessage) SenderUsername() *string {
	var handle string
	switch {
	case m.SenderChat != nil:
		handle = m.SenderChat.Username
	case m.From != nil:
		handle = m.From.Username
	}
	if handle == "" {
		return nil
	}
	return &handle
}

// Document is the indexed form of a ChatMessage. Field names are part of the
// index mapping.
type Document struct {
	ID             uint32  `json:"id"`
	ChatID         int64   `json:"chatId"`
	SenderID       int64   `json:"senderId"`
	SenderName     string  `json:"senderName"`
	SenderUsername *string `json:"senderUsername"`
	Date           string  `json:"date"`
	Message        string  `json:"message"`
}

// NewDocument derives the document for m. ok is false when the message has
// no text or caption and must not be indexed.
func NewDocument(m *ChatMessage) (doc Document, ok bool) {
	body := m.Body()
	if body == "" {
		return Document{}, false
	}
	return Document{
		ID:             m.ID,
		ChatID:         m.ChatID,
		SenderID:       m.SenderID(),
		SenderName:     m.SenderName(),
		SenderUsername: m.SenderUsername(),
		Date:           m.Date.Format(time.RFC3339),
		Message:        body,
	}, true
}

// DocumentID is the engine document id for a message id.
func DocumentID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

// IndexName returns the per-chat index name. It depends only on its inputs.
func IndexName(prefix string, chatID int64) string {
	return prefix + strconv.FormatInt(chatID, 10)
}
