package cli

import (
	"context"
	"log"

	"company-quiz-service/internal/config"
	"github.com/spf13/cobra"
)

// NewSweepCmd runs the quiz reminder sweep once and exits.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Send reminders for quizzes not retaken within their frequency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), *configPath)
		},
	}
}

func runSweep(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	sent, err := b.notifier().SweepReminders(ctx)
	if err != nil {
		return err
	}
	log.Printf("[JOBS] reminder sweep sent %d notifications", sent)
	return nil
}
