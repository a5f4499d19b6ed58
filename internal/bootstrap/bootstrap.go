// Package bootstrap builds the engine from configuration. Both the worker
// manager and leadctl start here.
package bootstrap

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadflow-workers/internal/common/config"
	"leadflow-workers/internal/common/database"
	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/timeutil"
	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
	"leadflow-workers/internal/rollup"
	"leadflow-workers/internal/store/elastic"
	"leadflow-workers/internal/store/postgres"
)

type Engine struct {
	Store    *postgres.Store
	Selector *distribution.Selector
	Rollup   *rollup.Job
	// Records is nil when Elasticsearch is disabled.
	Records  *elastic.RecordIndex
	Calendar *timeutil.Calendar
}

// NewEngine wires the stores, selector and rollup job. rdb and es may be nil.
func NewEngine(cfg *config.Config, db *sql.DB, rdb *redis.Client, es *database.ElasticsearchClient, log logger.Logger) (*Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres handle is required")
	}

	opts := []postgres.Option{
		postgres.WithDefaultGoal(models.Goal{
			DailyGoal:   cfg.Distribution.DefaultDailyGoal,
			WeeklyGoal:  cfg.Distribution.DefaultWeeklyGoal,
			MonthlyGoal: cfg.Distribution.DefaultMonthlyGoal,
		}),
		postgres.WithGoalTTL(time.Duration(cfg.Distribution.GoalCacheTTL) * time.Second),
		postgres.WithReportTTL(time.Duration(cfg.Reporting.CacheTTL) * time.Second),
	}
	if rdb != nil {
		opts = append(opts, postgres.WithCache(rdb))
	}
	store := postgres.New(db, log, opts...)

	e := &Engine{
		Store:    store,
		Selector: distribution.NewSelector(store, store, store, store, log),
		Calendar: timeutil.NewCalendar(cfg.Location(), nil),
	}

	jobOpts := []rollup.Option{rollup.WithConcurrency(cfg.Rollup.Concurrency)}
	if es != nil {
		idx, err := elastic.NewRecordIndex(es, cfg.Database.Elasticsearch.DailyRecordIndex)
		if err != nil {
			return nil, fmt.Errorf("daily record index: %w", err)
		}
		e.Records = idx
		jobOpts = append(jobOpts, rollup.WithIndexer(idx))
	}
	e.Rollup = rollup.NewJob(store, log, jobOpts...)

	return e, nil
}

// Retry runs operation until it succeeds, doubling the delay after each failure.
func Retry(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(operationName+" failed, retrying", map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
