package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"motorent/internal/config"
	"motorent/internal/notify"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Send queued notification emails",
	Long: `Consume the Redis notification queue filled by "motorent serve" and send the emails.

Several workers may run against the same REDIS_URL; every event is sent by exactly one of them.

Examples:
  motorent serve --no-worker     # API replicas only enqueue
  motorent worker                # one or more mail senders`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required for the notification worker")
	}

	mailer, err := notify.NewMailer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer client.Close()

	notify.RunWorker(ctx, notify.RedisQueue{Client: client, Key: notify.QueueKey}, mailer)
	return nil
}
