package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/bingo-backend/internal/client"
)

type WatchOptions struct {
	URLs          []string
	SessionID     string
	MaxRetries    uint64
	RetryInterval time.Duration
}

// RunWatcher prints bingo announcements of other sessions until interrupted
// or until the real-time channel is lost for good.
func RunWatcher(ctx context.Context, logger *slog.Logger, out io.Writer, options WatchOptions) error {
	log := logger.With("component", "watcher")

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	notifier := client.NewNotifier(logger, client.NotifierOptions{
		URLs:          options.URLs,
		SessionID:     options.SessionID,
		MaxRetries:    options.MaxRetries,
		RetryInterval: options.RetryInterval,
	})

	if err := notifier.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	defer func() {
		if err := notifier.Close(); err != nil {
			log.Error("could not close notifier", "error", err)
		}
	}()

	for event := range notifier.Events() {
		at := time.UnixMilli(event.Timestamp).Format(time.TimeOnly)
		if _, err := fmt.Fprintf(out, "%s  BINGO  %s (%s)\n", at, event.Name, event.SessionID); err != nil {
			return fmt.Errorf("failed to print event: %w", err)
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	return notifier.Err()
}
