package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/matheus3301/tgsearch/internal/bus"
	"go.uber.org/zap"
)

// EventHandler turns Telegram updates into bus events. It does NOT call the
// indexer or the search engine; the dispatcher subscribes to the bus
// independently.
type EventHandler struct {
	bus        *bus.Bus
	botName    string
	indexEdits bool
	logger     *zap.Logger
}

// NewEventHandler creates a handler for the bot named botName.
func NewEventHandler(b *bus.Bus, botName string, indexEdits bool, logger *zap.Logger) *EventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHandler{
		bus:        b,
		botName:    botName,
		indexEdits: indexEdits,
		logger:     logger,
	}
}

// Handle processes one update.
func (h *EventHandler) Handle(u tgbotapi.Update) {
	switch {
	case u.Message != nil:
		h.handleMessage(u.Message)
	case u.EditedMessage != nil:
		h.handleEdit(u.EditedMessage)
	}
}

func (h *EventHandler) handleMessage(m *tgbotapi.Message) {
	if cmd, ok := ParseCommand(m, h.botName); ok {
		h.logger.Debug("command received",
			zap.String("command", cmd.Name), zap.Int64("chat_id", cmd.ChatID))
		h.bus.Publish(bus.Event{Kind: bus.KindCommand, Timestamp: time.Now(), Payload: cmd})
		return
	}
	h.publishMessage(m)
}

func (h *EventHandler) handleEdit(m *tgbotapi.Message) {
	if !h.indexEdits {
		return
	}
	// Editing a command must not answer it twice.
	if _, ok := ParseCommand(m, h.botName); ok {
		return
	}
	h.publishMessage(m)
}

func (h *EventHandler) publishMessage(m *tgbotapi.Message) {
	msg := ParseMessage(m)
	if msg == nil {
		return
	}
	h.bus.Publish(bus.Event{Kind: bus.KindMessage, Timestamp: time.Now(), Payload: msg})
}
