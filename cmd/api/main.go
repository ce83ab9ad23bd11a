package main

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	_ "health-record-portal/docs"
	"health-record-portal/internal/adapters/auth/jwtauth"
	"health-record-portal/internal/adapters/auth/remote"
	pg "health-record-portal/internal/adapters/storage/postgres"
	"health-record-portal/internal/config"
	"health-record-portal/internal/middleware"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/ports/auth"
	"health-record-portal/internal/router"
)

//go:generate swag init -g cmd/api/main.go -d ../../ -o ../../docs

// @title Health Record Portal API
// @version 1.0
// @description Patient and doctor portal: profiles, assignments, consent-based record access, vitals, records, messages and appointments.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:   "health-record-portal",
		Short: "Patient and doctor health record portal",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			if err := pg.MigrateUp(url); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Println("Migrations applied.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			if err := pg.MigrateDown(url); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Println("Rolled back one migration.")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := databaseURL()
			if err != nil {
				return err
			}
			v, dirty, err := pg.MigrationVersion(url)
			if err != nil {
				return err
			}
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
			return nil
		},
	})

	return cmd
}

// tokenCmd mints a bearer token for an existing account, for local testing.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			role, _ := cmd.Flags().GetString("role")
			email, _ := cmd.Flags().GetString("email")
			if strings.TrimSpace(userID) == "" {
				return errors.New("--user is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.JWTSecret) == 0 {
				return errors.New("JWT_SECRET is not set")
			}
			tokens, err := jwtauth.New(jwtauth.Config{
				Secret: []byte(cfg.JWTSecret),
				Issuer: cfg.JWTIssuer,
				TTL:    cfg.TokenTTL,
			})
			if err != nil {
				return err
			}

			tok, err := tokens.Issue(cmd.Context(), auth.Claims{
				UserID: userID,
				Email:  email,
				Role:   strings.ToUpper(role),
			})
			if err != nil {
				return err
			}
			fmt.Println(tok.Value)
			return nil
		},
	}
	cmd.Flags().String("user", "", "User id (subject)")
	cmd.Flags().String("role", "PATIENT", "Role hint: PATIENT or DOCTOR")
	cmd.Flags().String("email", "", "Email claim")
	return cmd
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	// Database (optional)
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		if cfg.AutoMigrate {
			if err := pg.MigrateUp(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			log.Info("migrations applied", nil)
		}
		db, err = pg.Open(cfg.DatabaseURL, cfg.DBMaxOpenConns)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		log.Info("connected to database", nil)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage", nil)
	}

	opts, err := authOptions(cfg, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts.DB = db
	opts.Logger = log
	opts.Registry = reg
	opts.RateLimit = middleware.RateLimitConfig{
		RPS:   cfg.RateLimitRPS,
		Burst: cfg.RateLimitBurst,
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "auth_mode": cfg.AuthMode})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	log.Info("shutting down server", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("server stopped", nil)
	return nil
}

func authOptions(cfg *config.Config, log logger.Logger) (router.Options, error) {
	switch cfg.AuthMode {
	case config.AuthModeRemote:
		client, err := remote.NewClient(remote.Config{
			BaseURL: cfg.IAMBaseURL,
			APIKey:  cfg.IAMAPIKey,
			Timeout: 5 * time.Second,
		})
		if err != nil {
			return router.Options{}, err
		}
		return router.Options{Verifier: remote.NewVerifier(client), Provision: true}, nil

	case config.AuthModeDev:
		// Accounts can still register; requests authenticate with X-Debug-User-ID.
		tokens, err := localTokens(cfg, log)
		if err != nil {
			return router.Options{}, err
		}
		log.Warn("dev auth mode: X-Debug-User-ID is trusted", nil)
		return router.Options{Issuer: tokens}, nil

	default:
		tokens, err := localTokens(cfg, log)
		if err != nil {
			return router.Options{}, err
		}
		return router.Options{Verifier: tokens, Issuer: tokens}, nil
	}
}

func localTokens(cfg *config.Config, log logger.Logger) (*jwtauth.Service, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) < 32 && cfg.IsDev() {
		secret = make([]byte, 32)
		if _, err := cryptorand.Read(secret); err != nil {
			return nil, err
		}
		log.Warn("JWT_SECRET unset or short, using an ephemeral secret", nil)
	}
	return jwtauth.New(jwtauth.Config{
		Secret: secret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.TokenTTL,
	})
}

func databaseURL() (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", errors.New("DATABASE_URL is not set")
	}
	return cfg.DatabaseURL, nil
}
