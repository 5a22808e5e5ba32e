// Package model holds the browser's state between daemon calls.
package model

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/matheus3301/tgsearch/internal/reply"
	"github.com/matheus3301/tgsearch/internal/rpc"
)

// ErrNoChat is returned by Search before a chat is chosen.
var ErrNoChat = errors.New("no chat selected, use :chat <id>")

// ErrEmptyKeyword is returned by Search for a blank keyword.
var ErrEmptyKeyword = errors.New(reply.UsageHint)

// Backend is the daemon surface the browser uses.
type Backend interface {
	Status(ctx context.Context) (*rpc.StatusInfo, error)
	Search(ctx context.Context, chatID int64, keyword string) (*rpc.SearchResponse, error)
}

// Browser caches the last status and search. Safe for concurrent use.
type Browser struct {
	mu      sync.RWMutex
	backend Backend
	chatID  int64
	status  *rpc.StatusInfo
	keyword string
	results *rpc.SearchResponse
}

// NewBrowser creates a browser over backend scoped to chatID. A zero chatID
// means none is chosen yet.
func NewBrowser(backend Backend, chatID int64) *Browser {
	return &Browser{backend: backend, chatID: chatID}
}

// ChatID returns the current chat.
func (b *Browser) ChatID() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.chatID
}

// SetChat switches chat and drops results from the previous one.
func (b *Browser) SetChat(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if chatID != b.chatID {
		b.results = nil
		b.keyword = ""
	}
	b.chatID = chatID
}

// RefreshStatus fetches daemon status. On failure the cached status is
// cleared so the header shows the daemon as unreachable.
func (b *Browser) RefreshStatus(ctx context.Context) error {
	st, err := b.backend.Status(ctx)
	b.mu.Lock()
	b.status = st
	b.mu.Unlock()
	return err
}

// Status returns the last fetched status, or nil.
func (b *Browser) Status() *rpc.StatusInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Search runs keyword against the current chat and caches the response.
// Failed searches keep the previous results.
func (b *Browser) Search(ctx context.Context, keyword string) (*rpc.SearchResponse, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}
	chatID := b.ChatID()
	if chatID == 0 {
		return nil, ErrNoChat
	}

	resp, err := b.backend.Search(ctx, chatID, keyword)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.chatID == chatID {
		b.keyword = keyword
		b.results = resp
	}
	return resp, nil
}

// Results returns the cached keyword and response.
func (b *Browser) Results() (string, *rpc.SearchResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.keyword, b.results
}
