package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/matheus3301/tgsearch/internal/search"
)

// Commands the bot answers. Anything else is indexed like a normal message.
const (
	CmdHelp   = "help"
	CmdStart  = "start"
	CmdSearch = "search"
)

// Command is a parsed bot command addressed to this bot.
type Command struct {
	Name      string
	Args      string
	ChatID    int64
	MessageID int
}

// ParseMessage normalizes a Telegram message. Returns nil when the message
// has no chat.
func ParseMessage(m *tgbotapi.Message) *search.ChatMessage {
	if m == nil || m.Chat == nil {
		return nil
	}
	msg := &search.ChatMessage{
		ChatID:  m.Chat.ID,
		ID:      uint32(m.MessageID),
		Text:    m.Text,
		Caption: m.Caption,
		Date:    m.Time().UTC(),
	}
	if m.From != nil {
		msg.From = &search.User{
			ID:        m.From.ID,
			FirstName: m.From.FirstName,
			Username:  m.From.UserName,
		}
	}
	if m.SenderChat != nil {
		msg.SenderChat = &search.Chat{
			ID:        m.SenderChat.ID,
			Title:     m.SenderChat.Title,
			FirstName: m.SenderChat.FirstName,
			Username:  m.SenderChat.UserName,
		}
	}
	return msg
}

// ParseCommand returns the command in m if it is one this bot answers.
// A command suffixed with another bot's username is not ours.
func ParseCommand(m *tgbotapi.Message, botName string) (*Command, bool) {
	if m == nil || m.Chat == nil || !m.IsCommand() {
		return nil, false
	}
	if _, target, found := strings.Cut(m.CommandWithAt(), "@"); found {
		if botName == "" || !strings.EqualFold(target, botName) {
			return nil, false
		}
	}

	name := strings.ToLower(m.Command())
	switch name {
	case CmdHelp, CmdStart, CmdSearch:
	default:
		return nil, false
	}
	return &Command{
		Name:      name,
		Args:      strings.TrimSpace(m.CommandArguments()),
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
	}, true
}
