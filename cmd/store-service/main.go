package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/auth"
	"github.com/vasiliy-maslov/store-market/internal/cart"
	"github.com/vasiliy-maslov/store-market/internal/catalog"
	"github.com/vasiliy-maslov/store-market/internal/config"
	"github.com/vasiliy-maslov/store-market/internal/confirmation"
	"github.com/vasiliy-maslov/store-market/internal/db"
	storeHttp "github.com/vasiliy-maslov/store-market/internal/handler/http"
	"github.com/vasiliy-maslov/store-market/internal/mailer"
	"github.com/vasiliy-maslov/store-market/internal/order"
	"github.com/vasiliy-maslov/store-market/internal/user"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (CONFIG_PATH by default)")
	createStaff := flag.Bool("create-staff", false, "create a staff user and exit")
	staffUsername := flag.String("username", "", "staff username for -create-staff")
	staffEmail := flag.String("email", "", "staff email for -create-staff")
	staffPassword := flag.String("password", "", "staff password for -create-staff")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogger(cfg.App)
	log.Info().Msg("Store service starting...")

	ctx := context.Background()

	if err := db.Migrate(db.MigrationURL(cfg.Postgres)); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	dbConn, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	sqlDB := stdlib.OpenDBFromPool(dbConn.Pool)
	defer sqlDB.Close()

	userRepo := user.NewRepository(dbConn.Pool)
	confirmationSvc := confirmation.NewService(
		confirmation.NewRepository(dbConn.Pool),
		userRepo,
		mailer.New(cfg.SMTP),
		confirmation.Options{
			TTL:        cfg.Confirmation.TTL,
			DomainName: cfg.App.DomainName,
			From:       cfg.SMTP.From,
		},
	)
	userSvc := user.NewService(userRepo, confirmationSvc)

	if *createStaff {
		if *staffUsername == "" || *staffEmail == "" || *staffPassword == "" {
			log.Fatal().Msg("-create-staff requires -username, -email and -password")
		}
		staff, err := userSvc.Register(ctx, user.Registration{
			Username: *staffUsername,
			Email:    *staffEmail,
			Password: *staffPassword,
			Staff:    true,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create staff user")
		}
		log.Info().Int64("user_id", staff.ID).Str("username", staff.Username).Msg("Staff user created")
		return
	}

	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	router := storeHttp.NewRouter(issuer,
		storeHttp.NewCatalogHandler(catalog.NewService(catalog.NewRepository(sqlDB), cfg.Catalog.PageSize)),
		storeHttp.NewCartHandler(cart.NewService(cart.NewRepository(dbConn.Pool))),
		storeHttp.NewOrderHandler(order.NewService(order.NewRepository(dbConn.Pool))),
		storeHttp.NewUserHandler(userSvc, confirmationSvc, issuer),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Store service stopped gracefully")
}

func setupLogger(app config.AppConfig) {
	level, err := zerolog.ParseLevel(app.LogLevel)
	if err != nil || app.LogLevel == "" {
		level = zerolog.InfoLevel
		if !app.IsProduction() {
			level = zerolog.DebugLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	if !app.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "store-service").Logger()
}
