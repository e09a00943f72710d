package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhofmann/membersite/internal/config"
	"github.com/mhofmann/membersite/internal/db"
	httpx "github.com/mhofmann/membersite/internal/http"
	"github.com/mhofmann/membersite/internal/http/handlers"
	"github.com/mhofmann/membersite/internal/observability"
	"github.com/mhofmann/membersite/internal/queue/redisclient"
	"github.com/mhofmann/membersite/internal/session"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(context.Background(), "membersite-api", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)

	if err := db.EnsureAdminUser(seedCtx, pool, cfg, log); err != nil {
		log.Error("admin seed failed", "err", err)
	}
	cancelSeed()

	redisCli := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer redisCli.Close()

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	sessions := session.NewManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLMinutes)*time.Minute)

	router := httpx.NewRouter(httpx.Deps{
		Cfg:      cfg,
		Log:      log,
		Pool:     pool,
		Prom:     prom,
		Registry: registry,
		Sessions: sessions,
		Nudger:   redisCli,
		Probes: map[string]handlers.PingFunc{
			"redis": redisCli.Ping,
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
