package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/whenfree/libs/config"
	"github.com/md-rashed-zaman/whenfree/libs/db"
	"github.com/md-rashed-zaman/whenfree/libs/httpx"
	"github.com/md-rashed-zaman/whenfree/libs/kafkax"
	otelx "github.com/md-rashed-zaman/whenfree/libs/otel"
	"github.com/md-rashed-zaman/whenfree/libs/runtime"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/cache"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/consumer"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/handlers"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/inbox"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/model"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/outbox"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/schedule"
	"github.com/md-rashed-zaman/whenfree/services/freetime-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type importedCalendar struct {
	GroupID       string              `json:"group_id"`
	ParticipantID string              `json:"participant_id"`
	Date          string              `json:"date"`
	Events        []schedule.RawEvent `json:"events"`
}

func main() {
	service := config.String("SERVICE_NAME", "freetime-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	repo := storage.NewCalendarRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	var rateLimitMW httpx.Middleware
	var results *cache.Results
	limitPerMinute := 60
	if v, err := strconv.Atoi(config.String("RATE_LIMIT_PER_MINUTE", "60")); err == nil && v > 0 {
		limitPerMinute = v
	}
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		cacheTTL := 60 * time.Second
		if v, err := strconv.Atoi(config.String("RESULT_CACHE_TTL_SECONDS", "60")); err == nil && v > 0 {
			cacheTTL = time.Duration(v) * time.Second
		}
		results = cache.New(rdb, cacheTTL)

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("redis enabled (rate limit + result cache)", "addr", addr)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	if topic := strings.TrimSpace(config.String("KAFKA_CONSUME_TOPIC", "calendar.events.imported.v1")); topic != "" && config.String("KAFKA_BROKERS", "") != "" {
		inboxRepo := inbox.NewRepository(pool)
		consumerCfg := consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "freetime-service"),
			Topic:   topic,
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
			return applyImportedCalendar(ctx, logger, repo, results, msg)
		})
		go eventConsumer.Run(ctx)
	}

	freeTimeHandler := handlers.NewFreeTimeHandler(repo, outboxRepo, results, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/free-time", freeTimeHandler.GroupFreeTime)
	mux.HandleFunc("/api/v1/free-time/preview", freeTimeHandler.Preview)
	mux.HandleFunc("/api/v1/calendars", freeTimeHandler.Calendars)

	bodyLimit := int64(1 << 20) // 1MB
	if v, err := strconv.Atoi(config.String("REQUEST_BODY_LIMIT_BYTES", "1048576")); err == nil && v > 0 {
		bodyLimit = int64(v)
	}
	requestTimeout := 10 * time.Second
	if v, err := strconv.Atoi(config.String("REQUEST_TIMEOUT_SECONDS", "10")); err == nil && v > 0 {
		requestTimeout = time.Duration(v) * time.Second
	}

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
		rateLimitMW,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "freetime")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// applyImportedCalendar upserts a calendar pushed by an external sync
// feed. Malformed payloads are logged and skipped rather than retried;
// they will never become valid.
func applyImportedCalendar(ctx context.Context, logger *slog.Logger, repo *storage.CalendarRepository, results *cache.Results, msg kafka.Message) error {
	var payload importedCalendar
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
		return nil
	}
	payload.GroupID = strings.TrimSpace(payload.GroupID)
	payload.ParticipantID = strings.TrimSpace(payload.ParticipantID)
	if payload.GroupID == "" || payload.ParticipantID == "" {
		logger.Error("missing required event fields", "topic", msg.Topic)
		return nil
	}

	day, err := time.ParseInLocation("2006-01-02", payload.Date, time.UTC)
	if err != nil {
		logger.Error("invalid event date", "err", err, "date", payload.Date)
		return nil
	}

	events := make([]model.BusyEvent, 0, len(payload.Events))
	for _, ev := range payload.Events {
		start, err := schedule.ParseClock(ev.Start)
		if err != nil {
			logger.Error("invalid event time", "participant", payload.ParticipantID, "value", ev.Start)
			return nil
		}
		end, err := schedule.ParseClock(ev.End)
		if err != nil {
			logger.Error("invalid event time", "participant", payload.ParticipantID, "value", ev.End)
			return nil
		}
		events = append(events, model.BusyEvent{
			ID:            uuid.NewString(),
			GroupID:       payload.GroupID,
			ParticipantID: payload.ParticipantID,
			Day:           day,
			StartMinute:   start.Minutes(),
			EndMinute:     end.Minutes(),
		})
	}

	tx, err := repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := repo.ReplaceParticipantDay(ctx, tx, payload.GroupID, payload.ParticipantID, day, events); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if results != nil {
		if err := results.BumpVersion(ctx, payload.GroupID, payload.Date); err != nil {
			logger.Warn("cache invalidation failed", "err", err, "group_id", payload.GroupID)
		}
	}
	return nil
}
