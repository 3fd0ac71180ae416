// Package main is the entry point for the membership HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/admbtski/miglee-sub001/internal/app"
	"github.com/admbtski/miglee-sub001/internal/config"
	internaldb "github.com/admbtski/miglee-sub001/internal/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// writeDB: single-connection pool for serialized writes (WAL + txlock=immediate).
	// readDB:  multi-connection pool for listings.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.DBPath, internaldb.Options{})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer readDB.Close()  //nolint:errcheck
	defer writeDB.Close() //nolint:errcheck

	if err := internaldb.RunMigrations(ctx, writeDB); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	version, _ := internaldb.SchemaVersion(ctx, writeDB)
	logger.Info("database ready", "path", cfg.DBPath, "schema_version", version)

	application, err := app.New(ctx, app.Deps{
		Cfg:     cfg,
		WriteDB: writeDB,
		ReadDB:  readDB,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("wire application: %w", err)
	}
	defer application.Close() //nolint:errcheck

	if err := application.Relay.Start(ctx); err != nil {
		return fmt.Errorf("start outbox relay: %w", err)
	}
	defer application.Relay.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           application.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("membership API listening", "addr", cfg.ListenAddr, "notify_sink", cfg.Notify.Sink)
	logger.Info("try: curl -H 'Authorization: Bearer <jwt>' http://" + curlHostForListenAddr(cfg.ListenAddr) + "/v1/groups/<id>/members")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// curlHostForListenAddr turns a listen address into a host:port a local
// client can dial.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
