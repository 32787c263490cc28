package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/iliyamo/wave-plaza-bot/internal/catalog"
	"github.com/iliyamo/wave-plaza-bot/internal/chat"
	"github.com/iliyamo/wave-plaza-bot/internal/config"
	"github.com/iliyamo/wave-plaza-bot/internal/conversation"
	"github.com/iliyamo/wave-plaza-bot/internal/database"
	"github.com/iliyamo/wave-plaza-bot/internal/dispatcher"
	"github.com/iliyamo/wave-plaza-bot/internal/handler"
	"github.com/iliyamo/wave-plaza-bot/internal/model"
	"github.com/iliyamo/wave-plaza-bot/internal/notifier"
	"github.com/iliyamo/wave-plaza-bot/internal/queue"
	"github.com/iliyamo/wave-plaza-bot/internal/repository"
	"github.com/iliyamo/wave-plaza-bot/internal/router"
	queue_publisher "github.com/iliyamo/wave-plaza-bot/internal/service"
	"github.com/iliyamo/wave-plaza-bot/internal/session"
	"github.com/iliyamo/wave-plaza-bot/internal/telemetry"
)

// The Bot API client must outlive a 30s getUpdates long poll.
const telegramClientTimeout = time.Minute

func newServeCmd() *cobra.Command {
	var migrateUp bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the status consumer and the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, migrateUp)
		},
	}
	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply database migrations before starting")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

func serve(ctx context.Context, cfg config.Config, migrateUp bool) error {
	shutdownTracing, err := telemetry.Setup(ctx, "wavebot", cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("telemetry: shutdown: %v", err)
		}
	}()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if migrateUp {
		n, err := database.Migrate(ctx, db)
		if err != nil {
			return err
		}
		log.Printf("migrate: %d migration(s) applied", n)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Printf("redis: %s unreachable; rate limiting disabled", cfg.Redis.Address())
	}
	store := newSessionStore(cfg, rdb)

	cat := catalog.MustLoad()
	adminLang, ok := catalog.ParseLanguage(cfg.AdminLanguage)
	if !ok {
		adminLang = catalog.DefaultLanguage
	}
	engine := conversation.NewEngine(cat, conversation.Config{AdminChatID: cfg.AdminChatID, AdminLanguage: adminLang})

	bot, err := chat.NewTelegram(cfg.BotToken, telegramClientTimeout)
	if err != nil {
		return err
	}
	reservations := repository.NewReservationRepo(db)

	d := dispatcher.New(engine, store, reservations, bot, dispatcher.Config{
		QueueSize:         cfg.DispatchQueue,
		RepositoryTimeout: cfg.RepositoryTimeout,
		SendTimeout:       cfg.SendTimeout,
	})
	d.Start(ctx)

	n := notifier.New(cat, store, bot, cfg.SendTimeout)
	consumer := queue.NewStatusConsumer(cfg.RabbitURL, cfg.StatusQueue)
	go func() {
		err := consumer.Subscribe(ctx, func(ctx context.Context, userID int64, status model.ReservationStatus) {
			n.Handle(ctx, userID, status)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("status-consumer: stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb})
	router.RegisterAdmin(e,
		handler.NewAuthHandler(cfg.AdminPasswordHash, cfg.JWTSecret, cfg.AccessTTL()),
		handler.NewAdminReservationHandler(reservations, queue_publisher.NewStatusPublisher(cfg.RabbitURL, cfg.StatusQueue)),
		cfg.JWTSecret, cfg.RateLimit, rdb)

	if cfg.BotMode == config.ModeWebhook {
		router.RegisterWebhook(e, &handler.TelegramWebhook{
			Secret: cfg.WebhookSecret,
			Handle: func(ctx context.Context, u tgbotapi.Update) error {
				return bot.HandleUpdate(ctx, u, d)
			},
		})
		log.Printf("telegram: webhook mode, expecting updates on /telegram/webhook")
	} else {
		go bot.Poll(ctx, d)
	}

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, mode=%s)", addr, cfg.Env, cfg.BotMode)
	errc := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	log.Printf("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil && runErr == nil {
		runErr = err
	}
	// Accepted events finish before the session store and database close.
	if err := d.Stop(sctx); err != nil {
		log.Printf("dispatcher: %v", err)
	}
	return runErr
}

// newSessionStore picks the configured backend.  Without a reachable
// Redis the bot keeps sessions in process memory.
func newSessionStore(cfg config.Config, rdb *redis.Client) session.Store {
	if cfg.SessionBackend == config.BackendRedis && rdb != nil {
		return session.NewRedisStore(rdb, session.RedisOptions{
			Prefix:   cfg.SessionPrefix,
			TTL:      cfg.SessionTTL,
			LockTTL:  cfg.SessionLockTTL,
			LockWait: cfg.SessionLockWait,
		})
	}
	if cfg.SessionBackend == config.BackendRedis {
		log.Printf("session: redis unavailable, falling back to memory")
	}
	return session.NewMemoryStore()
}
