// Package bot routes Telegram events: messages go to the indexer, commands
// are answered with help text or search results.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/tgsearch/internal/bus"
	"github.com/matheus3301/tgsearch/internal/reply"
	"github.com/matheus3301/tgsearch/internal/search"
	"github.com/matheus3301/tgsearch/internal/status"
	"github.com/matheus3301/tgsearch/internal/telegram"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrEmptyKeyword is returned by Search for a blank keyword. The engine is
// not called.
var ErrEmptyKeyword = errors.New("empty keyword")

// Indexer stores chat messages.
type Indexer interface {
	Index(ctx context.Context, msg *search.ChatMessage)
}

// Searcher runs keyword queries against a chat's messages.
type Searcher interface {
	Search(ctx context.Context, chatID int64, keyword string) (*search.Result, error)
}

// Sender delivers replies to the chat.
type Sender interface {
	Send(ctx context.Context, m reply.Message) error
}

// Dispatcher subscribes to "tg." events on the bus and handles each one as an
// independent task on a worker pool.
type Dispatcher struct {
	bus      *bus.Bus
	indexer  Indexer
	searcher Searcher
	sender   Sender
	machine  *status.Machine
	pool     *ants.Pool
	logger   *zap.Logger

	stopLoop    context.CancelFunc
	cancelTasks context.CancelFunc
	wg          sync.WaitGroup
}

// Deps are the Dispatcher's collaborators. Machine may be nil.
type Deps struct {
	Bus      *bus.Bus
	Indexer  Indexer
	Searcher Searcher
	Sender   Sender
	Machine  *status.Machine
	Logger   *zap.Logger
}

// NewDispatcher creates a dispatcher running at most workers tasks at once;
// workers <= 0 means no limit.
func NewDispatcher(d Deps, workers int) (*Dispatcher, error) {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p any) {
		logger.Error("event task panicked", zap.Any("panic", p))
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Dispatcher{
		bus:      d.Bus,
		indexer:  d.Indexer,
		searcher: d.Searcher,
		sender:   d.Sender,
		machine:  d.Machine,
		pool:     pool,
		logger:   logger,
	}, nil
}

// Start subscribes to inbound Telegram events on the bus. The subscription
// never drops events: when every worker is busy, publishers wait.
func (d *Dispatcher) Start(ctx context.Context) {
	loopCtx, stopLoop := context.WithCancel(ctx)
	taskCtx, cancelTasks := context.WithCancel(context.WithoutCancel(ctx))
	d.stopLoop, d.cancelTasks = stopLoop, cancelTasks
	ch, unsub := d.bus.SubscribeBlocking("tg.", 256)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case evt := <-ch:
				d.submit(taskCtx, evt)
			case <-loopCtx.Done():
				unsub()
				for {
					select {
					case evt := <-ch:
						d.submit(taskCtx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop stops receiving events and waits up to timeout for queued and running
// tasks. Their context is cancelled only after that.
func (d *Dispatcher) Stop(timeout time.Duration) {
	if d.stopLoop != nil {
		d.stopLoop()
	}
	d.wg.Wait()
	if err := d.pool.ReleaseTimeout(timeout); err != nil {
		d.logger.Warn("worker pool release", zap.Error(err))
	}
	if d.cancelTasks != nil {
		d.cancelTasks()
	}
}

func (d *Dispatcher) submit(ctx context.Context, evt bus.Event) {
	if err := d.pool.Submit(func() { d.HandleEvent(ctx, evt) }); err != nil {
		d.logger.Error("submit event task failed", zap.String("kind", evt.Kind), zap.Error(err))
	}
}

// HandleEvent processes one bus event synchronously.
func (d *Dispatcher) HandleEvent(ctx context.Context, evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessage:
		msg, ok := evt.Payload.(*search.ChatMessage)
		if !ok {
			return
		}
		d.indexer.Index(ctx, msg)
	case bus.KindCommand:
		cmd, ok := evt.Payload.(*telegram.Command)
		if !ok {
			return
		}
		d.HandleCommand(ctx, cmd)
	}
}

// HandleCommand answers cmd in its chat, replying to the command message.
func (d *Dispatcher) HandleCommand(ctx context.Context, cmd *telegram.Command) {
	var out reply.Message
	switch cmd.Name {
	case telegram.CmdHelp, telegram.CmdStart:
		out = reply.Message{ChatID: cmd.ChatID, ReplyTo: cmd.MessageID, Text: reply.Help()}
	case telegram.CmdSearch:
		res, err := d.Search(ctx, cmd.ChatID, cmd.Args)
		switch {
		case errors.Is(err, ErrEmptyKeyword):
			out = reply.Message{ChatID: cmd.ChatID, ReplyTo: cmd.MessageID, Text: reply.UsageHint}
		default:
			out = reply.ForSearch(cmd.ChatID, cmd.MessageID, res, err)
		}
	default:
		return
	}

	if err := d.sender.Send(ctx, out); err != nil {
		d.logger.Warn("send reply failed",
			zap.String("command", cmd.Name), zap.Int64("chat_id", cmd.ChatID), zap.Error(err))
	}
}

// Search runs keyword in chatID and records the engine outcome on the state
// machine: a failure degrades a ready daemon, a success restores it.
func (d *Dispatcher) Search(ctx context.Context, chatID int64, keyword string) (*search.Result, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	res, err := d.searcher.Search(ctx, chatID, keyword)
	if err != nil {
		d.logger.Warn("search failed", zap.Int64("chat_id", chatID), zap.Error(err))
		d.observe(status.Ready, status.Degraded)
		return nil, err
	}
	d.logger.Debug("search done",
		zap.Int64("chat_id", chatID), zap.Int("hits", len(res.Hits.Hits)), zap.Int64("took_ms", res.Took))
	d.observe(status.Degraded, status.Ready)
	return res, nil
}

func (d *Dispatcher) observe(from, to status.State) {
	if d.machine == nil {
		return
	}
	if d.machine.TransitionIf(from, to) {
		d.logger.Info("engine health changed", zap.String("state", string(to)))
	}
}
