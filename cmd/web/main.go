package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aura.app/internal/config"
	"aura.app/internal/obs"
	"aura.app/internal/session"
	"aura.app/internal/web"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal("load config", zap.Error(err))
	}

	obs.InitLogger(cfg.Debug)
	log := obs.Logger()
	defer func() { _ = log.Sync() }()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	jar, err := session.NewCookieJar(cfg.SessionSecret, cfg.SecureCookies)
	if err != nil {
		log.Fatal("cookie jar", zap.Error(err))
	}
	if cfg.SessionSecret == "" {
		log.Warn("AURA_SESSION_SECRET not set; sessions end when the process restarts")
	}

	console, err := web.New(web.Options{
		APIBase:      cfg.APIBase,
		Client:       &http.Client{},
		Jar:          jar,
		Version:      version,
		APITimeout:   cfg.APITimeout,
		RateBurst:    cfg.RateBurst,
		RatePerSec:   cfg.RatePerSec,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})
	if err != nil {
		log.Fatal("init console", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           console.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// scans run synchronously inside the POST that starts them
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("starting aura console",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("api_base", cfg.APIBase))

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
	log.Info("stopped")
}
