package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/toto1384/doors-sub001/libs/config"
	"github.com/toto1384/doors-sub001/libs/db"
	"github.com/toto1384/doors-sub001/libs/httpx"
	"github.com/toto1384/doors-sub001/libs/kafkax"
	otelx "github.com/toto1384/doors-sub001/libs/otel"
	"github.com/toto1384/doors-sub001/libs/runtime"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/consumer"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/handlers"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/inbox"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/outbox"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/scheduling"
	"github.com/toto1384/doors-sub001/services/viewing-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "viewing-service")
	port, err := config.Port("PORT", "8084")
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
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)
	store := storage.NewStore(pool, outboxRepo)
	svc := scheduling.New(store, logger)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	// Credit grants from billing land in the local balance table.
	type creditsGranted struct {
		BuyerID string `json:"buyer_id"`
		Amount  int    `json:"amount"`
	}
	creditsConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: kafkaBrokers,
		GroupID: config.String("KAFKA_GROUP_ID", "viewing-service"),
		Topic:   config.String("KAFKA_CREDITS_TOPIC", "billing.viewing_credits.granted.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload creditsGranted
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid credits grant payload", "err", err)
			return nil
		}
		if payload.BuyerID == "" || payload.Amount <= 0 {
			logger.Error("credits grant missing fields", "buyer_id", payload.BuyerID, "amount", payload.Amount)
			return nil
		}
		return store.GrantCredits(ctx, payload.BuyerID, payload.Amount)
	})
	go creditsConsumer.Run(ctx)

	// Catalog upserts keep the property projection current.
	type propertyUpserted struct {
		PropertyID string `json:"property_id"`
		SellerID   string `json:"seller_id"`
		Title      string `json:"title"`
		Location   string `json:"location"`
		ImageURL   string `json:"image_url"`
	}
	catalogConsumer := consumer.New(logger, inboxRepo, consumer.Config{
		Brokers: kafkaBrokers,
		GroupID: config.String("KAFKA_GROUP_ID", "viewing-service"),
		Topic:   config.String("KAFKA_CATALOG_TOPIC", "catalog.property.upserted.v1"),
	}, func(ctx context.Context, msg kafka.Message) error {
		var payload propertyUpserted
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid property payload", "err", err)
			return nil
		}
		if payload.PropertyID == "" || payload.SellerID == "" {
			logger.Error("property upsert missing fields", "property_id", payload.PropertyID)
			return nil
		}
		return store.UpsertProperty(ctx, scheduling.PropertySummary{
			ID:       payload.PropertyID,
			SellerID: payload.SellerID,
			Title:    payload.Title,
			Location: payload.Location,
			ImageURL: payload.ImageURL,
		})
	})
	go catalogConsumer.Run(ctx)

	viewingHandler := handlers.NewViewingHandler(svc, logger)
	requireAuth := handlers.RequireAuth(jwtSecret)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	)
	// Slot browsing is public (rate limited below); everything that books or
	// mutates requires a token.
	mux.Handle("/api/v1/public/viewings/slots", http.HandlerFunc(viewingHandler.Slots))
	mux.Handle("/api/v1/viewings/status", requireAuth(http.HandlerFunc(viewingHandler.UpdateStatus)))
	mux.Handle("/api/v1/viewings", requireAuth(http.HandlerFunc(viewingHandler.Route)))
	mux.Handle("/api/v1/availability", requireAuth(http.HandlerFunc(viewingHandler.DeclareAvailability)))
	mux.Handle("/api/v1/credits", requireAuth(http.HandlerFunc(viewingHandler.Credits)))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitCSV(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         10 * time.Minute,
		}),
		rateLimitMiddleware(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "viewing")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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

// rateLimitMiddleware picks the Redis fixed-window limiter when REDIS_ADDR is
// configured (multi-instance deployments) and the in-process one otherwise.
func rateLimitMiddleware(logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return httpx.NewRedisRateLimiter(rdb, limit, time.Minute, "viewing").Middleware(logger, true)
	}
	return httpx.NewRateLimiter(limit, time.Minute).Middleware()
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
