package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsrelay/internal/account"
	"newsrelay/internal/auth"
	"newsrelay/internal/batch"
	"newsrelay/internal/config"
	"newsrelay/internal/database"
	"newsrelay/internal/httpclient"
	"newsrelay/internal/news"
	"newsrelay/internal/server"
	"newsrelay/internal/summarizer"

	"github.com/gin-gonic/gin"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	start := time.Now()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	db, err := database.New(ctx, database.Config{
		Driver:          cfg.DB.Driver,
		DSN:             cfg.DB.DSN,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"driver", cfg.DB.Driver)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"driver", cfg.DB.Driver)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"driver", cfg.DB.Driver)

	httpClient := httpclient.NewRestyClient(max(cfg.News.Timeout, cfg.Summarizer.Timeout))

	fetcher := news.NewFetcher(initNewsSource(ctx, cfg.News, httpClient, log), news.Config{
		DefaultCountry:  cfg.News.DefaultCountry,
		DefaultCategory: cfg.News.DefaultCategory,
		PageSize:        cfg.News.PageSize,
		Timeout:         cfg.News.Timeout,
	}, log)

	summ, err := summarizer.New(cfg.Summarizer.Provider, summarizer.Config{
		APIKey:          cfg.Summarizer.APIKey,
		Model:           cfg.Summarizer.Model,
		BaseURL:         cfg.Summarizer.BaseURL,
		Language:        cfg.Summarizer.Language,
		Temperature:     cfg.Summarizer.Temperature,
		MaxOutputTokens: cfg.Summarizer.MaxOutputTokens,
		TopP:            cfg.Summarizer.TopP,
		TopK:            cfg.Summarizer.TopK,
		Timeout:         cfg.Summarizer.Timeout,
	}, httpClient)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize summarizer",
			"error", err,
			"provider", cfg.Summarizer.Provider)

		return
	}
	log.InfoContext(ctx, "Summarizer is initialized",
		"provider", cfg.Summarizer.Provider,
		"model", cfg.Summarizer.Model)

	orchestrator := batch.New(summ, batch.Config{
		Limit:   cfg.BatchSize,
		Timeout: cfg.Summarizer.Timeout,
	}, log)

	accounts := account.NewService(db, auth.NewIssuer(cfg.JWT.Secret), log)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: net.JoinHostPort("", cfg.Port),
		Handler: server.New(fetcher, orchestrator, accounts, db, server.Config{
			AllowedOrigins: cfg.AllowedOrigins,
		}, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.InfoContext(ctx, "Server is started",
		"addr", srv.Addr,
		"newsProvider", cfg.News.Provider,
		"batchSize", cfg.BatchSize)

	select {
	case err = <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server failed",
				"error", err,
				"addr", srv.Addr)
		}
		return
	case <-ctx.Done():
		log.InfoContext(ctx, "Shutdown signal is received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(shutdownCtx, "Failed to shut down server gracefully",
			"error", err)
	}

	log.InfoContext(shutdownCtx, "Server is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

func initNewsSource(
	ctx context.Context,
	cfg config.News,
	client httpclient.Client,
	log *slog.Logger,
) news.Source {
	if cfg.Provider == "rss" {
		log.InfoContext(ctx, "RSS news source is initialized",
			"provider", cfg.Provider)

		return news.NewRSS(cfg.BaseURL, cfg.Timeout)
	}

	log.InfoContext(ctx, "NewsAPI source is initialized",
		"provider", cfg.Provider)

	return news.NewNewsAPI(client, cfg.BaseURL, cfg.APIKey)
}
