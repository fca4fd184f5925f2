// Copyright 2026 TeamTrait Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/teamtrait/identity-service/internal/config"
	"github.com/teamtrait/identity-service/internal/db"
	"github.com/teamtrait/identity-service/internal/logging"
	"github.com/teamtrait/identity-service/internal/mailer"
	"github.com/teamtrait/identity-service/internal/monitoring/prometheus"
	"github.com/teamtrait/identity-service/internal/storage"
	"github.com/teamtrait/identity-service/internal/tracing"
	"github.com/teamtrait/identity-service/internal/types"
	"github.com/teamtrait/identity-service/pkg/audit"
	"github.com/teamtrait/identity-service/pkg/auth"
	"github.com/teamtrait/identity-service/pkg/authentication"
	"github.com/teamtrait/identity-service/pkg/authorization"
	"github.com/teamtrait/identity-service/pkg/identity"
	"github.com/teamtrait/identity-service/pkg/invitation"
	"github.com/teamtrait/identity-service/pkg/tenant"
	"github.com/teamtrait/identity-service/pkg/token"
	"github.com/teamtrait/identity-service/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the web server",
	Long:  `Launch the web application, list of environment variables is available in the readme`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := serve(); err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	specs := new(config.EnvSpec)
	if err := envconfig.Process("", specs); err != nil {
		panic(fmt.Errorf("issues with environment sourcing: %s", err))
	}

	logger := logging.NewLogger(specs.LogLevel)
	defer logger.Sync()

	monitor := prometheus.NewMonitor("identity-service", logger)
	tracer := tracing.NewTracer(tracing.NewConfig(specs.TracingEnabled, specs.OtelGRPCEndpoint, specs.OtelHTTPEndpoint, logger))

	dbConfig := db.Config{
		DSN:             specs.DSN,
		MaxConns:        specs.DBMaxConns,
		MinConns:        specs.DBMinConns,
		MaxConnLifetime: specs.DBMaxConnLifetime,
		MaxConnIdleTime: specs.DBMaxConnIdleTime,
		TracingEnabled:  specs.TracingEnabled,
	}
	dbClient, err := db.NewDBClient(dbConfig, tracer, monitor, logger)
	if err != nil {
		return fmt.Errorf("failed to create database client: %v", err)
	}
	defer dbClient.Close()
	s := storage.NewStorage(dbClient, tracer, monitor, logger)

	tokenManager, err := token.NewManager(
		[]byte(specs.AccessTokenSecret),
		[]byte(specs.RefreshTokenSecret),
		specs.AccessTokenTTL,
		specs.RefreshTokenTTL,
		specs.TokenIssuer,
	)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %v", err)
	}

	var mailClient mailer.MailerInterface
	if specs.MailerURL != "" {
		mailClient = mailer.NewClient(specs.MailerURL, specs.MailerAPIKey, tracer, monitor, logger)
	} else {
		logger.Info("No mailer configured, invitation mails will be dropped")
		mailClient = mailer.NewNoopClient(logger)
	}

	providers := make([]identity.ProviderInterface, 0)
	if specs.GoogleClientID != "" {
		google, err := identity.NewOIDCProvider(
			context.Background(),
			types.ProviderGoogle,
			specs.GoogleIssuer,
			specs.GoogleClientID,
			specs.GoogleClientSecret,
			specs.BaseURL+"/api/v0/auth/google/callback",
		)
		if err != nil {
			return fmt.Errorf("failed to set up google provider: %v", err)
		}
		providers = append(providers, google)
	}

	resolver := identity.NewResolver(s, tracer, monitor, logger)
	authService := auth.NewService(s, tokenManager, auth.NewHasher(), resolver, providers, tracer, monitor, logger)

	limiter := auth.NewRateLimiter(specs.LoginRatePerMinute, specs.LoginRateBurst)
	defer limiter.Stop()

	auditor := audit.NewRecorder(s, tracer, monitor, logger)
	defer auditor.Flush()

	invitationService := invitation.NewService(s, mailClient, specs.InvitationLifetime, specs.BaseURL, tracer, monitor, logger)
	tenantService := tenant.NewService(s, tracer, monitor, logger)

	apis := web.APIs{
		Auth:       auth.NewAPI(authService, limiter, auditor, dbClient, specs.BaseURL, tracer, monitor, logger),
		Invitation: invitation.NewAPI(invitationService, auditor, tracer, monitor, logger),
		Tenant:     tenant.NewAPI(tenantService, auditor, tracer, monitor, logger),
		Audit:      audit.NewAPI(auditor, tracer, monitor, logger),
	}

	router := web.NewRouter(
		apis,
		authentication.NewMiddleware(tokenManager, s, tracer, monitor, logger),
		authorization.NewAuthorizer(tracer, monitor, logger),
		dbClient,
		specs.CORSAllowedOrigins,
		tracer,
		monitor,
		logger,
	)
	logger.Infof("Starting HTTP server on port %v", specs.Port)

	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%v", specs.Port),
		WriteTimeout: time.Second * 60,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	var serverError error
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Security().SystemStartup()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError = fmt.Errorf("server error: %w", err)
			c <- os.Interrupt
		}
	}()

	<-c

	// Create a deadline to wait for.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Security().SystemShutdown()
	if err := srv.Shutdown(ctx); err != nil {
		serverError = fmt.Errorf("server shutdown error: %w", err)
	}

	return serverError
}
