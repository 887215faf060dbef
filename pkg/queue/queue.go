// Package queue configures the asynq client, server and scheduler shared by
// the API and the worker.
package queue

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/hugh/lexvault/pkg/config"
	"github.com/hugh/lexvault/pkg/metrics"
)

// Queue names. Reprocess requests come from users and are served ahead of
// scheduled maintenance sweeps.
const (
	Reprocess   = "reprocess"
	Maintenance = "maintenance"
)

var priorities = map[string]int{
	Reprocess:   3,
	Maintenance: 1,
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
	}
}

func NewClient(cfg *config.RedisConfig) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

// NewServer returns a worker server consuming both queues. Failed attempts
// are logged and counted.
func NewServer(cfg *config.RedisConfig, concurrency int, logger *slog.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency:  concurrency,
			Queues:       priorities,
			ErrorHandler: failureHandler(logger),
		},
	)
}

func failureHandler(logger *slog.Logger) asynq.ErrorHandlerFunc {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		final := retried >= maxRetry

		metrics.TaskFailuresTotal.WithLabelValues(task.Type(), strconv.FormatBool(final)).Inc()
		logger.Warn("task attempt failed",
			"type", task.Type(),
			"retried", retried,
			"max_retry", maxRetry,
			"final", final,
			"error", err,
		)
	}
}

// NewScheduler returns a periodic task scheduler using UTC cron schedules.
func NewScheduler(cfg *config.RedisConfig) *asynq.Scheduler {
	return asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{})
}
