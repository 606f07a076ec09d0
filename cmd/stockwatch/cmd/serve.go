package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/stockwatch/bot"
	"github.com/rustyeddy/stockwatch/metrics"
	"github.com/rustyeddy/stockwatch/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and the health server",
	Long: `Log in to Telegram with TOKEN and answer chats until interrupted.

Updates are long-polled unless WEBHOOK_URL is set, in which case Telegram
pushes them to the health server. The server also answers / and /healthz
and exposes Prometheus metrics on /metrics.

Examples:
  TOKEN=123:abc stockwatch serve
  stockwatch serve --config stockwatch.yaml --env-file prod.env`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// throttleIdle is how long a quiet chat keeps its rate limiter.
const throttleIdle = 10 * time.Minute

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Bot.Token == "" {
		return fmt.Errorf("TOKEN is not set")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	stack, err := newDataStack(cfg, log, m)
	if err != nil {
		return err
	}

	api, err := bot.Connect(ctx, cfg.Bot.Token, log.Named("telegram"))
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}

	every, err := cfg.Bot.Throttle()
	if err != nil {
		return err
	}
	interval, err := cfg.Server.KeepAliveInterval()
	if err != nil {
		return err
	}
	handler := bot.NewHandler(api, stack.engine, bot.Options{
		Representatives:  cfg.Bot.Representatives,
		TradesPerRequest: cfg.Bot.TradesPerRequest,
		Throttle:         bot.NewThrottle(every, cfg.Bot.ThrottleBurst, throttleIdle),
		Logger:           log.Named("bot"),
		Metrics:          m,
	})

	g, gctx := errgroup.WithContext(ctx)

	opts := server.Options{
		Cache:   stack.cache,
		Metrics: m.Handler(),
		Logger:  log.Named("http"),
	}
	if cfg.Bot.WebhookURL != "" {
		opts.WebhookPath = bot.WebhookPath(cfg.Bot.Token)
		opts.Webhook = bot.WebhookHandler(gctx, handler.Handle, log.Named("webhook"))
	}
	srv := server.New(":"+cfg.Server.Port, server.NewRouter(opts))

	g.Go(func() error {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if cfg.Bot.WebhookURL != "" {
		if err := bot.RegisterWebhook(api, cfg.Bot.WebhookURL, opts.WebhookPath); err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		log.Info("receiving updates by webhook", zap.String("base", cfg.Bot.WebhookURL))
	} else {
		if err := bot.DeleteWebhook(api); err != nil {
			log.Warn("could not clear webhook", zap.Error(err))
		}
		poller := bot.NewPoller(api, handler.Handle,
			bot.WithPollTimeout(cfg.Bot.PollTimeout),
			bot.WithPollerLogger(log.Named("poller")),
		)
		g.Go(func() error {
			return poller.Run(gctx)
		})
	}

	if interval > 0 {
		g.Go(func() error {
			server.KeepAlive(gctx, nil, cfg.Server.PublicURL, interval, log.Named("keepalive"))
			return nil
		})
	}

	log.Info("bot started",
		zap.Strings("representatives", cfg.Bot.Representatives),
		zap.String("policy", stack.engine.Policy().String()),
		zap.Duration("cache_ttl", stack.cache.TTL()),
	)

	if err := g.Wait(); err != nil {
		log.Error("bot stopped", zap.Error(err))
		return err
	}
	log.Info("bot stopped")
	return nil
}
