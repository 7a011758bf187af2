package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/kitchenledger-backend/pkg/config"
	"github.com/angelmondragon/kitchenledger-backend/pkg/logger"
)

const (
	defaultOutboxRetentionDays = 30
	defaultDLQRetentionDays    = 90
	defaultOutboxMaxAttempts   = 5
	day                        = 24 * time.Hour
)

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqPurger interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPurger
	DLQ        dlqPurger
	Config     config.OutboxConfig
}

// NewOutboxRetentionJob purges delivered and parked outbox rows past the
// retention window, and dead letters past their own, longer window.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository required")
	}
	cfg := params.Config
	return &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		events:      params.Repository,
		deadLetters: params.DLQ,
		eventsTTL:   time.Duration(orDefault(cfg.RetentionDays, defaultOutboxRetentionDays)) * day,
		dlqTTL:      time.Duration(orDefault(cfg.DLQRetentionDays, defaultDLQRetentionDays)) * day,
		maxAttempts: orDefault(cfg.MaxAttempts, defaultOutboxMaxAttempts),
		now:         time.Now,
	}, nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	events      outboxPurger
	deadLetters dlqPurger
	eventsTTL   time.Duration
	dlqTTL      time.Duration
	maxAttempts int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run purges each table in its own transaction; a failure on one does not
// keep the other from being trimmed.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var events, letters int64
	var errs error

	eventsCutoff := now.Add(-j.eventsTTL)
	errs = multierr.Append(errs, j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		events, err = j.events.DeletePublishedBefore(ctx, tx, eventsCutoff, j.maxAttempts)
		if err != nil {
			return fmt.Errorf("purge outbox events: %w", err)
		}
		return nil
	}))

	dlqCutoff := now.Add(-j.dlqTTL)
	errs = multierr.Append(errs, j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		letters, err = j.deadLetters.DeleteFailedBefore(ctx, tx, dlqCutoff)
		if err != nil {
			return fmt.Errorf("purge dead letters: %w", err)
		}
		return nil
	}))

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"events_cutoff":       eventsCutoff,
		"dlq_cutoff":          dlqCutoff,
		"max_attempts":        j.maxAttempts,
		"events_purged":       events,
		"dead_letters_purged": letters,
	}), "outbox retention complete")
	return errs
}
