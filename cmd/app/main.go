package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Rk13termux/KaliRootBot-sub000/internal/application"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/catalog"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/config"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/domain/ports/adapter"
	aiAdapters "github.com/Rk13termux/KaliRootBot-sub000/internal/infra/adapters/ai"
	payAdapters "github.com/Rk13termux/KaliRootBot-sub000/internal/infra/adapters/payment"
	tele "github.com/Rk13termux/KaliRootBot-sub000/internal/infra/adapters/telegram"
	pg "github.com/Rk13termux/KaliRootBot-sub000/internal/infra/db/postgres"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/logging"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/metrics"
	red "github.com/Rk13termux/KaliRootBot-sub000/internal/infra/redis"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/sched"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/web"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/webhook"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/infra/worker"
	"github.com/Rk13termux/KaliRootBot-sub000/internal/usecase"
)

const expirySweepInterval = time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.Log)
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.StoreDSN(), 10)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrations")
	}

	// ---- Redis (optional) ----
	var limiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	} else {
		log.Warn().Msg("REDIS_URL not set; per-user rate limiting disabled")
	}

	// ---- Catalog ----
	products, err := catalog.Load(cfg.Credits.SubscriptionDays, cfg.Credits.SubscriptionBonus)
	if err != nil {
		log.Fatal().Err(err).Msg("product catalog")
	}

	// ---- Repositories ----
	ledgerRepo := pg.NewLedgerRepo(pool, cfg.Credits.DefaultOnRegister, log)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	registry := pg.NewIdempotencyRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Adapters ----
	var ai adapter.AIServiceAdapter
	if cfg.AI.GroqKey != "" {
		ai, err = aiAdapters.NewGroqAdapter(cfg.AI.GroqKey, cfg.AI.Model, "", log)
		if err != nil {
			log.Fatal().Err(err).Msg("groq adapter")
		}
		log.Info().Str("model", cfg.AI.Model).Msg("AI adapter: groq")
	} else {
		ai = aiAdapters.NewNoopAIAdapter(log)
		log.Warn().Msg("GROQ_API_KEY not set; using noop AI adapter")
	}

	var gateway adapter.PaymentGateway
	if cfg.Payment.APIKey != "" {
		gateway, err = payAdapters.NewNOWPaymentsGateway(cfg.Payment.APIKey, "", log)
		if err != nil {
			log.Fatal().Err(err).Msg("payment gateway")
		}
	} else {
		gateway = payAdapters.NewNoopGateway(log)
		log.Warn().Msg("PAYMENT_API_KEY not set; using noop payment gateway")
	}

	var bot adapter.TelegramBotAdapter
	if cfg.Bot.Token != "" {
		bot, err = tele.NewRealBotAdapter(cfg.Bot.Token, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram")
		}
	} else {
		bot = tele.NewNoopBotAdapter(log)
		log.Warn().Msg("CHAT_BOT_TOKEN not set; using noop telegram adapter")
	}

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(ledgerRepo, cfg.Credits.DefaultOnRegister, log)
	creditUC := usecase.NewCreditUseCase(ledgerRepo, log)
	subUC := usecase.NewSubscriptionUseCase(ledgerRepo, creditUC, gateway, products.Subscription, log)
	payUC := usecase.NewPaymentUseCase(ledgerRepo, purchaseRepo, registry, subUC, creditUC, gateway, txManager, log)
	statsUC := usecase.NewStatsUseCase(ledgerRepo, purchaseRepo, log)

	// ---- Facade + ingress ----
	facade := application.NewBotFacade(
		userUC, creditUC, subUC, payUC, ai, bot, limiter, products,
		cfg.Server.RateLimitPerMinute, log,
	)

	updatePool := worker.NewPool(8, log)
	updatePool.Start(ctx)
	defer updatePool.Stop()

	admin := web.NewServer(statsUC, web.NewAuthManager(cfg.Admin.APIKey, cfg.Admin.JWTSecret, 30*time.Minute), log)

	srv := webhook.NewServer(
		facade,
		payUC,
		updatePool,
		webhook.NewSecretTokenVerifier(cfg.Bot.WebhookSecret),
		webhook.NewIPNVerifier(cfg.Payment.IPNSecret),
		admin,
		func(ctx context.Context) bool { return pool.Ping(ctx) == nil },
		log,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ---- Webhook registration ----
	if cfg.Bot.WebhookURL != "" {
		regCtx, regCancel := context.WithTimeout(ctx, 15*time.Second)
		if err := bot.SetWebhook(regCtx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
			regCancel()
			log.Fatal().Err(err).Msg("set webhook")
		}
		regCancel()
	}

	// ---- Expiry sweeper ----
	sweeper := sched.NewExpiryWorker(expirySweepInterval, subUC, log)
	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("expiry worker stopped")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-errCh:
		log.Error().Err(err).Msg("webhook server failed")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer shutdownCancel()

	if cfg.Bot.WebhookURL != "" && !cfg.Bot.PersistWebhook {
		if err := bot.DeleteWebhook(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("delete webhook")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("bye")
}
