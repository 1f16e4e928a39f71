package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/suPer8Hu/chat-relay/internal/ai"
	"github.com/suPer8Hu/chat-relay/internal/chat"
	"github.com/suPer8Hu/chat-relay/internal/config"
	"github.com/suPer8Hu/chat-relay/internal/httpapi"
	"github.com/suPer8Hu/chat-relay/internal/httpapi/handlers"
	"github.com/suPer8Hu/chat-relay/internal/i18n"
	"github.com/suPer8Hu/chat-relay/internal/logging"
	"github.com/suPer8Hu/chat-relay/internal/metrics"
	"github.com/suPer8Hu/chat-relay/internal/ratelimit"
	"github.com/suPer8Hu/chat-relay/internal/store/rabbitmq"
	"github.com/suPer8Hu/chat-relay/internal/store/redisstore"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: os.Stdout,
		Pretty: cfg.LogPretty,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := i18n.Load(cfg.DefaultLocale)
	if err != nil {
		logging.Fatal().Err(err).Msg("load locales")
	}

	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rds.Close()
	if err := retry(ctx, "redis", func() error { return rds.Ping(ctx) }); err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable")
	}

	// Both backends share one outbound budget.
	throttle := ai.NewThrottle(cfg.GatewayRPS, cfg.GatewayBurst)
	reg := ai.NewRegistry()
	reg.Register(string(chat.ModelChatGPT), func(_ context.Context, model string) (ai.Provider, error) {
		if model == "" {
			model = cfg.OpenAIModel
		}
		return throttle.Wrap(ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model)), nil
	})
	reg.Register(string(chat.ModelGemini), func(_ context.Context, model string) (ai.Provider, error) {
		if model == "" {
			model = cfg.GeminiModel
		}
		return throttle.Wrap(ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, model)), nil
	})

	limiter := ratelimit.NewWindow(cfg.RateLimitCount, cfg.RateLimitPeriod)
	deps := chat.Deps{
		Repo:         chat.NewRepo(rds, cfg.ContextTTL),
		Limiter:      limiter,
		Gateway:      reg,
		Translator:   catalog,
		SystemPrompt: cfg.OpenAISystemPrompt,
	}

	if cfg.ArchiveEnabled {
		var pub *rabbitmq.Publisher
		err := retry(ctx, "rabbitmq", func() (err error) {
			pub, err = rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
			return err
		})
		if err != nil {
			logging.Warn().Err(err).Msg("archive disabled: rabbitmq unreachable")
		} else {
			defer pub.Close()
			deps.Archiver = pub
		}
	}

	svc := chat.NewService(deps)
	metrics.RegisterGauge("relay_connections", "Open client connections.", func() float64 {
		return float64(svc.Hub().Len())
	})
	metrics.RegisterGauge("relay_rate_limit_identities", "Identities tracked by the rate limiter.", func() float64 {
		return float64(limiter.Len())
	})

	h := handlers.NewHandler(cfg, rds, svc)
	r := httpapi.NewRouter(cfg, h)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// sessions end when the process is asked to stop
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logging.Info().Int("port", cfg.Port).Strs("locales", catalog.Locales()).Msg("chat relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown")
	}
}

// retry runs op with exponential backoff for up to 30s.
func retry(ctx context.Context, what string, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logging.Warn().Err(err).Str("dependency", what).Dur("retry_in", wait).Msg("not ready")
	})
}
