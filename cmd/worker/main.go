package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mhofmann/membersite/internal/config"
	"github.com/mhofmann/membersite/internal/db"
	"github.com/mhofmann/membersite/internal/mail"
	"github.com/mhofmann/membersite/internal/observability"
	"github.com/mhofmann/membersite/internal/queue/redisclient"
	"github.com/mhofmann/membersite/internal/queue/worker"
	"github.com/mhofmann/membersite/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "membersite-worker", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				sctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(sctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	redisCli := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	defer redisCli.Close()

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	jobsRepo := postgres.NewJobsRepo(pool, prom)

	var mailer mail.Mailer

	if cfg.MailDriver == "smtp" {
		mailer = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		})
	} else {
		mailer = mail.NewLogMailer(log)
	}

	// Fail fast while the provider is down; retries stay in the outbox.
	mailer = mail.NewProtectedMailer(mailer, mail.ProtectedMailerConfig{
		Timeout:          10 * time.Second,
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
		HalfOpenMaxCalls: 1,
	})

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval: 5 * time.Second,
		WorkerID:     workerID,
		BaseURL:      cfg.AppBaseURL,
		LockTTL:      30 * time.Second,
	}, jobsRepo, mailer, redisCli, prom, log)

	// Side port for liveness, readiness and metrics.
	healthMux := http.NewServeMux()
	healthMux.Handle("/", w.HealthHandler())
	healthMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	healthSrv := &http.Server{
		Addr:              ":9090",
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker started", "worker_id", workerID, "mail_driver", cfg.MailDriver)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
