package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"funrun-registration/internal/config"
	"funrun-registration/internal/form"
	"funrun-registration/internal/intake"
	"funrun-registration/internal/logger"
	"funrun-registration/internal/metrics"
	"funrun-registration/internal/server"
	"funrun-registration/internal/submit"
	"funrun-registration/internal/tgbot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	log := logger.Setup(cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	if err != nil {
		log.Fatalw("config", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, err := intake.NewSink(ctx, cfg)
	if err != nil {
		log.Fatalw("intake sink", "sink", cfg.IntakeSink, "error", err)
	}
	if h, ok := sink.(interface{ EnsureHeader(context.Context) error }); ok {
		if err := h.EnsureHeader(ctx); err != nil {
			log.Fatalw("sheet header", "error", err)
		}
	}

	rec := metrics.New(prometheus.DefaultRegisterer)
	httpSrv := server.New(cfg, sink, log, rec)

	// Start HTTP server
	go func() {
		log.Infow("http listening", "addr", cfg.HTTPAddr, "sink", sink.Name())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server", "error", err)
		}
	}()

	// Start Telegram
	if cfg.TelegramToken != "" {
		newController := func() *submit.Controller {
			return submit.New(
				submit.Settings{Endpoint: cfg.Endpoint(), Secret: cfg.FormSecret},
				form.NewStore(), sink,
				submit.WithLogger(log), submit.WithRecorder(rec),
			)
		}
		botApp, err := tgbot.New(cfg.TelegramToken, cfg.EventTitle, newController, log)
		if err != nil {
			log.Fatalw("telegram", "error", err)
		}
		go func() {
			if err := botApp.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("bot stopped", "error", err)
			}
		}()
	}

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infow("shutting down")

	cancel()
	ctxTimeout, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(ctxTimeout)

	log.Infow("bye")
}
