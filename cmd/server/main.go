// Package main initializes and starts the issue tracker API server,
// setting up configuration, logging, the database, repositories,
// services, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/issuetracker/internal/certgen"
	"github.com/atinyakov/issuetracker/internal/config"
	"github.com/atinyakov/issuetracker/internal/db"
	"github.com/atinyakov/issuetracker/internal/logger"
	"github.com/atinyakov/issuetracker/internal/repository"
	"github.com/atinyakov/issuetracker/internal/server/handler/http"
	"github.com/atinyakov/issuetracker/internal/service"
	"github.com/atinyakov/issuetracker/internal/token"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := db.Open(options.DatabaseDriver, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer conn.Close()

	// Drop revocation entries once their tokens would have expired anyway.
	db.StartRevokedTokenCleaner(ctx, conn, dialect, time.Duration(options.SweepInterval), zapLogger)

	secret := []byte(options.TokenSecret)
	if len(secret) == 0 {
		secret, err = token.RandomSecret()
		if err != nil {
			zapLogger.Fatal("cannot generate token secret", zap.Error(err))
		}
		zapLogger.Warn("no token secret configured; tokens will not survive a restart")
	}
	tokens, err := token.NewManager(secret, time.Duration(options.TokenTTL))
	if err != nil {
		zapLogger.Fatal("cannot init token manager", zap.Error(err))
	}

	// Initialize repositories and business-logic services.
	authRepo := repository.NewSQLAuthRepository(conn, dialect)
	issueRepo := repository.NewSQLIssueRepository(conn, dialect)
	authService := service.NewAuthService(authRepo, tokens, service.WithLogger(zapLogger))
	issueService := service.NewIssueService(issueRepo)

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService, Log: zapLogger},
		&http.IssueHandler{IssueService: issueService, Log: zapLogger},
		&http.HealthHandler{DB: conn},
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if options.TLSEnabled() {
		created, err := certgen.EnsureSelfSigned(options.TLSCert, options.TLSKey, certgen.HostsFor(options.Port))
		if err != nil {
			zapLogger.Fatal("failed to prepare TLS cert/key", zap.Error(err))
		}
		if created {
			zapLogger.Warn("generated self-signed certificate",
				zap.String("cert", options.TLSCert), zap.String("key", options.TLSKey))
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting server",
		zap.String("addr", options.Port),
		zap.String("driver", dialect.String()),
		zap.Bool("tls", options.TLSEnabled()),
	)
	if options.TLSEnabled() {
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
