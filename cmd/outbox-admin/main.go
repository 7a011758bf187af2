// Command outbox-admin inspects and repairs the event outbox: it lists dead
// letters, requeues one for publishing, and reports the pending backlog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	"github.com/angelmondragon/kitchenledger-backend/pkg/db"
	"github.com/angelmondragon/kitchenledger-backend/pkg/enums"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
	"github.com/angelmondragon/kitchenledger-backend/pkg/outbox"
)

type command struct {
	name    string
	reason  string
	eventID string
	limit   int
}

func main() {
	_ = godotenv.Load()

	var cmd command
	flag.StringVar(&cmd.name, "cmd", "pending", "command: pending|dead-letters|requeue")
	flag.StringVar(&cmd.reason, "reason", "", "dead-letters: only this error reason (max_attempts|non_retryable)")
	flag.StringVar(&cmd.eventID, "event", "", "requeue: outbox event id")
	flag.IntVar(&cmd.limit, "limit", 50, "dead-letters: max rows")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithField(context.Background(), "cmd", cmd.name)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fail("bootstrap database: %v", err)
	}
	defer dbClient.Close()

	if err := execute(ctx, cmd, cfg.Outbox, dbClient, logg, os.Stdout); err != nil {
		logg.Error(ctx, "outbox-admin command failed", err)
		dbClient.Close()
		os.Exit(1)
	}
}

type txRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

func execute(ctx context.Context, cmd command, cfg config.OutboxConfig, client txRunner, logg *logger.Logger, out io.Writer) error {
	repo := outbox.NewRepository(client.DB())

	switch cmd.name {
	case "pending":
		count, err := repo.CountPending(ctx, cfg.MaxAttempts)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"pending": count})

	case "dead-letters":
		var reason *enums.OutboxDLQErrorReason
		if cmd.reason != "" {
			parsed, err := enums.ParseOutboxDLQErrorReason(strings.TrimSpace(cmd.reason))
			if err != nil {
				return err
			}
			reason = &parsed
		}
		rows, err := outbox.NewDLQRepository(client.DB()).List(ctx, reason, cmd.limit)
		if err != nil {
			return err
		}
		return writeJSON(out, rows)

	case "requeue":
		id, err := uuid.Parse(strings.TrimSpace(cmd.eventID))
		if err != nil {
			return fmt.Errorf("invalid -event: %w", err)
		}
		svc := outbox.NewService(repo, logg)
		if err := client.WithTx(ctx, func(tx *gorm.DB) error {
			return svc.Requeue(ctx, tx, id)
		}); err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"requeued": id})
	}
	return fmt.Errorf("unknown -cmd value %q", cmd.name)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
