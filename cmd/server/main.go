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
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/marekbraun/golinks/internal/analytics"
	"github.com/marekbraun/golinks/internal/auth"
	"github.com/marekbraun/golinks/internal/cache"
	"github.com/marekbraun/golinks/internal/clientip"
	"github.com/marekbraun/golinks/internal/config"
	"github.com/marekbraun/golinks/internal/db"
	"github.com/marekbraun/golinks/internal/geo"
	"github.com/marekbraun/golinks/internal/handlers"
	"github.com/marekbraun/golinks/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer database.Close()

	geoReader, err := geo.Open(cfg.GeoIPPath)
	if err != nil {
		logger.Warn("geo lookups disabled", zap.Error(err))
		geoReader, _ = geo.Open("")
	}
	defer geoReader.Close()

	linkCache, err := cache.New(cfg.CacheSize)
	if err != nil {
		logger.Fatal("link cache", zap.Error(err))
	}

	sessions := auth.NewSessions(cfg.JWTSecret, cfg.IsProduction())
	oauthHandler := auth.NewOAuthHandler(
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL,
		sessions, cfg.IsProduction(), logger,
	)

	linkHandler := &handlers.LinkHandler{
		DB:    database,
		Cfg:   cfg,
		Cache: linkCache,
		Log:   logger,
	}
	redirectHandler := &handlers.RedirectHandler{
		DB:       database,
		Cache:    linkCache,
		Enricher: analytics.NewEnricher(geoReader),
		IPs:      clientip.NewResolver(cfg.IPLookupURL, cfg.IPLookupTimeout),
		Log:      logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/auth/google/login", oauthHandler.Login)
	r.Get("/auth/google/callback", oauthHandler.Callback)
	r.Get("/auth/logout", oauthHandler.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(sessions.RequireOwner)
		r.Get("/links", linkHandler.List)
		r.Post("/links", linkHandler.Create)
		r.Patch("/links/{id}", linkHandler.Update)
		r.Delete("/links/{id}", linkHandler.Delete)
		r.Get("/links/{id}/analytics", linkHandler.Analytics)
		r.Get("/links/{id}/qr", linkHandler.QRCode)
	})

	r.Get("/go/{slug}", redirectHandler.ServeHTTP)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("golinks listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
