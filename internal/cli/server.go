package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/auth"
	"company-quiz-service/internal/config"
	"company-quiz-service/internal/jobs"
	rediscache "company-quiz-service/internal/infra/redis"
	transport "company-quiz-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP API, the notification socket and the reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	secret, err := cfg.AuthSecret()
	if err != nil {
		return err
	}
	finalPort := resolvePort(portFlag, cfg)

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	ctx, cancelRelay := context.WithCancel(ctx)
	defer cancelRelay()
	if b.redis != nil {
		relay := rediscache.NewRelay(b.redis, b.hub)
		go func() {
			if err := relay.Run(ctx, nil); err != nil {
				log.Printf("[ERROR] notification relay stopped: %v", err)
			}
		}()
	}

	notifier := b.notifier()
	events := app.NewEventBus()
	events.Subscribe(notifier.HandleEvent)

	tokens := auth.NewTokens(secret, config.TTLDuration(cfg.Auth.TokenTTL, 72*time.Hour))
	router := transport.NewRouter(transport.Services{
		Users:     app.NewUserService(b.store, tokens),
		Companies: app.NewCompanyService(b.store),
		Quizzes:   app.NewQuizService(b.store, b.keys, b.answers, events),
		Analytics: app.NewAnalyticsService(b.store, b.analytics),
		Hub:       b.hub,
		Tokens:    tokens,
	})

	var reminders *jobs.Reminders
	if cfg.Reminders.Schedule != "" {
		reminders, err = jobs.NewReminders(cfg.Reminders.Schedule, notifier)
		if err != nil {
			return err
		}
		reminders.Start()
		log.Printf("[STARTUP] reminder sweep scheduled %q", cfg.Reminders.Schedule)
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("[STARTUP] company quiz service listening on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("[SHUTDOWN] shutting down server...")
	case <-ctx.Done():
		log.Println("[SHUTDOWN] context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if reminders != nil {
		reminders.Stop(shutdownCtx)
	}
	return server.Shutdown(shutdownCtx)
}

// resolvePort prefers the --port flag, then server.port (which PORT overrides), then 8080.
func resolvePort(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.Server.Port != "" {
		return cfg.Server.Port
	}
	return "8080"
}
