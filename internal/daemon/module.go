package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/tgsearch/internal/bot"
	"github.com/matheus3301/tgsearch/internal/bus"
	"github.com/matheus3301/tgsearch/internal/config"
	"github.com/matheus3301/tgsearch/internal/instance"
	"github.com/matheus3301/tgsearch/internal/lock"
	"github.com/matheus3301/tgsearch/internal/logging"
	"github.com/matheus3301/tgsearch/internal/rpc"
	"github.com/matheus3301/tgsearch/internal/search"
	"github.com/matheus3301/tgsearch/internal/status"
	"github.com/matheus3301/tgsearch/internal/telegram"
	"github.com/matheus3301/tgsearch/internal/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved instance configuration passed to the fx module.
type Params struct {
	Instance string
	Config   *config.Config
	// Optional overrides for testing; empty = use defaults.
	SocketPath  string
	APIEndpoint string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideSearchClient,
			provideIndexer,
			provideAdapter,
			provideDispatcher,
			provideControlService,
			provideHealth,
			provideRPCServer,
			provideWebhookServer,
		),
		fx.Invoke(registerControlPlane, registerIntake),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	c := p.Config.Log
	return logging.New(logging.Options{
		Path:       instance.LogPath(p.Instance),
		Instance:   p.Instance,
		Level:      c.Level,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	})
}

func provideBus(logger *zap.Logger) *bus.Bus {
	log := logger.Named("bus")
	b := bus.New()
	b.OnDrop(func(namespace string, evt bus.Event) {
		fields := []zap.Field{
			zap.String("subscriber", namespace),
			zap.String("kind", evt.Kind),
			zap.String("event_id", evt.ID),
		}
		switch p := evt.Payload.(type) {
		case *search.ChatMessage:
			fields = append(fields, zap.Int64("chat_id", p.ChatID), zap.Uint32("message_id", p.ID))
		case *telegram.Command:
			fields = append(fields, zap.Int64("chat_id", p.ChatID), zap.Int("message_id", p.MessageID))
		}
		log.Warn("bus event dropped", fields...)
	})
	return b
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := instance.EnsureDir(p.Instance); err != nil {
		return nil, err
	}
	logger.Info("acquiring instance lock", zap.String("instance", p.Instance))
	l, err := lock.Acquire(instance.Dir(p.Instance))
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired")
	return l, nil
}

func provideSearchClient(p Params, logger *zap.Logger) (*search.Client, error) {
	c := p.Config.Elastic
	return search.NewClient(search.Options{
		Endpoint:    c.Endpoint,
		IndexPrefix: c.IndexPrefix,
		Schema: search.Schema{
			IndexAnalyzer:  c.IndexAnalyzer,
			SearchAnalyzer: c.SearchAnalyzer,
			SenderUsername: c.SenderUsernameField,
		},
		CacheEnsured: c.CacheEnsuredIndices,
	}, logger.Named("search"))
}

func provideIndexer(client *search.Client, logger *zap.Logger) *search.Indexer {
	return search.NewIndexer(client, logger.Named("indexer"))
}

func provideAdapter(p Params, b *bus.Bus, logger *zap.Logger) *telegram.Adapter {
	opts := telegram.OptionsFromConfig(p.Config.Telegram)
	opts.APIEndpoint = p.APIEndpoint
	return telegram.NewAdapter(opts, b, logger.Named("telegram"))
}

func provideDispatcher(p Params, b *bus.Bus, indexer *search.Indexer, client *search.Client, adapter *telegram.Adapter, machine *status.Machine, logger *zap.Logger) (*bot.Dispatcher, error) {
	return bot.NewDispatcher(bot.Deps{
		Bus:      b,
		Indexer:  indexer,
		Searcher: client,
		Sender:   adapter,
		Machine:  machine,
		Logger:   logger.Named("bot"),
	}, p.Config.Workers)
}

func provideControlService(p Params, machine *status.Machine, dispatcher *bot.Dispatcher, indexer *search.Indexer, adapter *telegram.Adapter) *rpc.ControlService {
	return rpc.NewControlService(p.Instance, machine, dispatcher, indexer, adapter)
}

func provideHealth(machine *status.Machine, b *bus.Bus) *rpc.HealthReporter {
	return rpc.NewHealthReporter(machine, b)
}

func provideRPCServer(p Params, logger *zap.Logger, control *rpc.ControlService, health *rpc.HealthReporter) (*rpc.Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = instance.SocketPath(p.Instance)
	}
	return rpc.NewServer(socketPath, logger.Named("rpc"), control, health)
}

// provideWebhookServer returns nil in polling mode.
func provideWebhookServer(p Params, adapter *telegram.Adapter, machine *status.Machine, logger *zap.Logger) (*webhook.Server, error) {
	c := p.Config.Telegram
	if c.Mode != config.ModeWebhook {
		return nil, nil
	}
	path, err := webhook.PathFromURL(c.WebhookURL)
	if err != nil {
		return nil, fmt.Errorf("webhook url: %w", err)
	}
	router := webhook.NewRouter(path, adapter, machine.Serving, logger.Named("webhook"))
	return webhook.NewServer(c.WebhookListen, router, logger.Named("webhook"))
}

// registerControlPlane starts the socket server first and stops it last, so
// status stays queryable while intake starts and if it fails.
func registerControlPlane(lc fx.Lifecycle, srv *rpc.Server, health *rpc.HealthReporter, lk *lock.Lock, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			health.Start(context.Background())
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopping)
			health.Stop()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// registerIntake checks the engine, connects the bot and starts receiving
// updates. Any failure aborts startup.
func registerIntake(lc fx.Lifecycle, p Params, client *search.Client, adapter *telegram.Adapter, dispatcher *bot.Dispatcher, wh *webhook.Server, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			fail := func(err error) error {
				if wh != nil {
					_ = wh.Stop(ctx)
				}
				_ = machine.Transition(status.Error)
				logger.Error("startup failed", zap.Error(err))
				return err
			}

			_ = machine.Transition(status.Connecting)

			pingCtx, cancel := context.WithTimeout(ctx, p.Config.Elastic.PingTimeout)
			defer cancel()
			if err := client.Ping(pingCtx); err != nil {
				return fail(fmt.Errorf("search engine unreachable: %w", err))
			}
			logger.Info("search engine reachable", zap.String("endpoint", p.Config.Elastic.Endpoint))

			if err := adapter.Connect(); err != nil {
				return fail(err)
			}

			dispatcher.Start(context.Background())

			if wh != nil {
				if err := adapter.SetWebhook(); err != nil {
					dispatcher.Stop(time.Second)
					return fail(err)
				}
				go func() {
					if err := wh.Start(); err != nil {
						logger.Error("webhook server error", zap.Error(err))
					}
				}()
			} else if err := adapter.StartPolling(); err != nil {
				dispatcher.Stop(time.Second)
				return fail(err)
			}

			_ = machine.Transition(status.Ready)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopping)
			if wh != nil {
				if err := wh.Stop(ctx); err != nil {
					logger.Warn("webhook server shutdown", zap.Error(err))
				}
				if err := adapter.RemoveWebhook(); err != nil {
					logger.Warn("remove webhook", zap.Error(err))
				}
			} else {
				adapter.StopPolling(ctx)
			}
			dispatcher.Stop(remaining(ctx, 5*time.Second))
			return nil
		},
	})
}

func remaining(ctx context.Context, fallback time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return fallback
}
