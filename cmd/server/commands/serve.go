package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"motorent/internal/database"
	"motorent/internal/notify"
	"motorent/internal/server"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

var (
	autoMigrate bool
	noWorker    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on HTTP_PORT.

With REDIS_URL set, notifications are queued in a Redis list and a worker in the same process
sends them. Pass --no-worker when "motorent worker" runs separately; queued events wait for it.
Without REDIS_URL, mail is sent inline and failures are logged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Run migrations before serving")
	serveCmd.Flags().BoolVar(&noWorker, "no-worker", false, "Do not start the notification worker (run \"motorent worker\" instead)")
}

func runServe() error {
	cfg, err := connect()
	if err != nil {
		return err
	}
	defer database.Close()

	if autoMigrate {
		if err := database.Migrate(database.DB); err != nil {
			return err
		}
	}

	mailer, err := notify.NewMailer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dispatcher notify.Dispatcher = notify.InlineDispatcher{Mailer: mailer}
	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		queue := notify.RedisQueue{Client: client, Key: notify.QueueKey}
		dispatcher = notify.QueueDispatcher{Queue: queue}
		if !noWorker {
			go notify.RunWorker(ctx, queue, mailer)
		}
	}

	app := server.New(cfg, dispatcher)

	errCh := make(chan error, 1)
	go func() {
		log.Infof("motorent listening on :%s", cfg.HTTPPort)
		errCh <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
