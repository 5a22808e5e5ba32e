package search

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// IndexStats counts Indexer outcomes since start.
type IndexStats struct {
	Indexed int64
	Skipped int64
	Failed  int64
}

// Indexer writes chat messages into their chat's index on a best-effort
// basis: failures are logged and counted, never returned.
type Indexer struct {
	client *Client
	logger *zap.Logger

	indexed atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// NewIndexer creates an indexer backed by client.
func NewIndexer(client *Client, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{client: client, logger: logger}
}

// Index ensures the chat's index exists, then upserts msg unless it has no
// text or caption.
func (ix *Indexer) Index(ctx context.Context, msg *ChatMessage) {
	index := ix.client.IndexName(msg.ChatID)

	// A failed ensure is not fatal: the write below may still succeed
	// against an index created by an earlier call.
	if err := ix.client.EnsureIndex(ctx, index); err != nil {
		ix.logger.Warn("ensure index failed", zap.String("index", index), zap.Error(err))
	}

	doc, ok := NewDocument(msg)
	if !ok {
		ix.skipped.Add(1)
		ix.logger.Debug("message has no text, not indexed",
			zap.Int64("chat_id", msg.ChatID), zap.Uint32("msg_id", msg.ID))
		return
	}

	if err := ix.client.Put(ctx, index, doc); err != nil {
		ix.failed.Add(1)
		ix.logger.Warn("index message failed",
			zap.String("index", index), zap.Uint32("msg_id", msg.ID), zap.Error(err))
		return
	}
	ix.indexed.Add(1)
}

// Stats returns a snapshot of the outcome counters.
func (ix *Indexer) Stats() IndexStats {
	return IndexStats{
		Indexed: ix.indexed.Load(),
		Skipped: ix.skipped.Load(),
		Failed:  ix.failed.Load(),
	}
}
