// Package telegram connects the bot to Telegram: it receives updates by long
// polling or webhook, publishes them on the bus and sends replies.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/matheus3301/tgsearch/internal/bus"
	"github.com/matheus3301/tgsearch/internal/config"
	"github.com/matheus3301/tgsearch/internal/reply"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by calls made before Connect.
var ErrNotConnected = errors.New("telegram: not connected")

// Options configures an Adapter.
type Options struct {
	Token       string
	Mode        string
	PollTimeout int
	WebhookURL  string
	IndexEdits  bool
	Debug       bool
	// APIEndpoint overrides tgbotapi.APIEndpoint.
	APIEndpoint string
	HTTPClient  *http.Client
}

// OptionsFromConfig maps the telegram config section.
func OptionsFromConfig(c config.TelegramConfig) Options {
	return Options{
		Token:       c.Token,
		Mode:        c.Mode,
		PollTimeout: c.PollTimeout,
		WebhookURL:  c.WebhookURL,
		IndexEdits:  c.IndexEdits,
		Debug:       c.Debug,
	}
}

// Adapter wraps the Bot API client and manages update delivery.
type Adapter struct {
	opts   Options
	bus    *bus.Bus
	logger *zap.Logger

	mu      sync.RWMutex
	bot     *tgbotapi.BotAPI
	handler *EventHandler
	done    chan struct{}
}

// NewAdapter creates an adapter. No request is made until Connect.
func NewAdapter(opts Options, b *bus.Bus, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Adapter{opts: opts, bus: b, logger: logger}
}

// Connect authenticates the token and learns the bot's username.
func (a *Adapter) Connect() error {
	a.logger.Info("connecting to Telegram", zap.String("mode", a.opts.Mode))
	bot, err := tgbotapi.NewBotAPIWithClient(a.opts.Token, a.opts.APIEndpoint, a.opts.HTTPClient)
	if err != nil {
		return fmt.Errorf("connect bot: %w", err)
	}
	bot.Debug = a.opts.Debug

	a.mu.Lock()
	a.bot = bot
	a.handler = NewEventHandler(a.bus, bot.Self.UserName, a.opts.IndexEdits, a.logger)
	a.mu.Unlock()

	a.logger.Info("connected to Telegram", zap.String("username", bot.Self.UserName))
	return nil
}

// Username returns the bot's username, or empty before Connect.
func (a *Adapter) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.bot == nil {
		return ""
	}
	return a.bot.Self.UserName
}

func (a *Adapter) client() (*tgbotapi.BotAPI, *EventHandler, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.bot == nil {
		return nil, nil, ErrNotConnected
	}
	return a.bot, a.handler, nil
}

// StartPolling starts long polling in the background. Updates are handed to
// the event handler in arrival order.
func (a *Adapter) StartPolling() error {
	bot, handler, err := a.client()
	if err != nil {
		return err
	}
	// Polling fails while a webhook is registered.
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		a.logger.Warn("delete webhook before polling failed", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.opts.PollTimeout
	updates := bot.GetUpdatesChan(u)

	done := make(chan struct{})
	a.mu.Lock()
	a.done = done
	a.mu.Unlock()

	go func() {
		defer close(done)
		for update := range updates {
			handler.Handle(update)
		}
	}()
	a.logger.Info("long polling started", zap.Int("timeout", u.Timeout))
	return nil
}

// StopPolling stops long polling and waits for the receive loop to exit or
// ctx to end. A pending long poll finishes before the loop notices.
func (a *Adapter) StopPolling(ctx context.Context) {
	bot, _, err := a.client()
	if err != nil {
		return
	}
	a.mu.Lock()
	done := a.done
	a.done = nil
	a.mu.Unlock()
	if done == nil {
		return
	}
	bot.StopReceivingUpdates()
	select {
	case <-done:
		a.logger.Info("long polling stopped")
	case <-ctx.Done():
		a.logger.Warn("long polling still draining at shutdown", zap.Error(ctx.Err()))
	}
}

// SetWebhook registers the configured webhook URL with Telegram.
func (a *Adapter) SetWebhook() error {
	bot, _, err := a.client()
	if err != nil {
		return err
	}
	wh, err := tgbotapi.NewWebhook(a.opts.WebhookURL)
	if err != nil {
		return fmt.Errorf("webhook url: %w", err)
	}
	if _, err := bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	a.logger.Info("webhook registered", zap.String("url", a.opts.WebhookURL))
	return nil
}

// RemoveWebhook unregisters the webhook.
func (a *Adapter) RemoveWebhook() error {
	bot, _, err := a.client()
	if err != nil {
		return err
	}
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	a.logger.Info("webhook removed")
	return nil
}

// HandleWebhook decodes an update delivered to the webhook endpoint and
// hands it to the event handler.
func (a *Adapter) HandleWebhook(r *http.Request) error {
	bot, handler, err := a.client()
	if err != nil {
		return err
	}
	update, err := bot.HandleUpdate(r)
	if err != nil {
		return err
	}
	handler.Handle(*update)
	return nil
}

// Send delivers a reply.
func (a *Adapter) Send(_ context.Context, m reply.Message) error {
	bot, _, err := a.client()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.ReplyTo
	msg.DisableWebPagePreview = true
	if m.HTML {
		msg.ParseMode = tgbotapi.ModeHTML
	}
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
