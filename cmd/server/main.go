package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/text-analysis/web/internal/analysis"
	"github.com/ayush/text-analysis/web/internal/analysisapi"
	"github.com/ayush/text-analysis/web/internal/config"
	"github.com/ayush/text-analysis/web/internal/i18n"
	"github.com/ayush/text-analysis/web/internal/middleware"
	"github.com/ayush/text-analysis/web/internal/session"
	"github.com/ayush/text-analysis/web/internal/store"
	"github.com/ayush/text-analysis/web/internal/web/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	// ── Dataset records: PostgreSQL, or SQLite without a DSN ──
	var datasets analysis.DatasetStore
	if cfg.PostgresDSN != "" {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres connect: %v", err)
		}
		defer pgPool.Close()
		pgStore := store.NewPostgresStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatalf("postgres migrate: %v", err)
		}
		datasets = pgStore
	} else {
		sqliteStore, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite open: %v", err)
		}
		defer sqliteStore.Close()
		if err := sqliteStore.Migrate(ctx); err != nil {
			log.Fatalf("sqlite migrate: %v", err)
		}
		datasets = sqliteStore
		log.Printf("POSTGRES_DSN not set, recording datasets in %s", cfg.SQLitePath)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	sessions := session.NewStore(rdb, cfg.SessionTTL)

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Analysis service ─────────────────────────────────────
	api := analysisapi.NewClient(cfg.AnalysisAPIURL, analysisapi.WithTimeout(cfg.AnalysisAPITimeout))

	// ── Pages ────────────────────────────────────────────────
	bundle, err := i18n.LoadEmbedded()
	if err != nil {
		log.Fatalf("locales: %v", err)
	}
	renderer, err := render.New(bundle)
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	handler := analysis.NewHandler(api, datasets, mongoStore, minioStore, sessions, renderer, analysis.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		SecureCookies:  cfg.SecureCookies,
		HistoryLimit:   store.DefaultHistoryLimit,
	})

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(bundle.Middleware)

	r.Get("/health", handler.Health)
	r.NotFound(handler.NotFound)

	// Workflow pages need a session.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Sessions(sessions, cfg.SecureCookies))
		handler.Routes(r)
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: cfg.AnalysisAPITimeout + 30*time.Second,
	}

	go func() {
		log.Printf("Text analysis web listening on :%s (analysis API %s)", cfg.Port, cfg.AnalysisAPIURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
