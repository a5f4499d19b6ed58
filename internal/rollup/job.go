// Package rollup aggregates a server's day into its daily record.
package rollup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/metrics"
	"leadflow-workers/internal/common/validation"
	"leadflow-workers/internal/models"
)

type Request struct {
	ServerID string
	Date     string
	// Finalize freezes the record; a frozen record is never recomputed.
	// Callers set it for days that are over.
	Finalize bool
}

type Job struct {
	store       Store
	indexer     Indexer
	logger      logger.Logger
	concurrency int
	now         func() time.Time
}

type Option func(*Job)

// WithIndexer publishes every written record. Index failures are logged only.
func WithIndexer(idx Indexer) Option {
	return func(j *Job) { j.indexer = idx }
}

func WithConcurrency(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

func NewJob(store Store, log logger.Logger, opts ...Option) *Job {
	j := &Job{
		store:       store,
		logger:      log.WithFields(map[string]interface{}{"component": "daily-rollup"}),
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run computes and upserts the record for (server, date) in one transaction.
// Running it again without new facts yields the same row. A failure leaves the
// previous record untouched.
func (j *Job) Run(ctx context.Context, req Request) (models.DailyRecord, error) {
	if strings.TrimSpace(req.ServerID) == "" {
		return models.DailyRecord{}, fmt.Errorf("%w: server id is required", ErrInvalidInput)
	}
	if err := validation.ValidateDate(req.Date); err != nil {
		return models.DailyRecord{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var (
		out  models.DailyRecord
		kept bool
	)
	err := j.store.InTx(ctx, func(tx Tx) error {
		ok, err := tx.ServerExists(ctx, req.ServerID)
		if err != nil {
			return fmt.Errorf("look up server %s: %w", req.ServerID, err)
		}
		if !ok {
			return fmt.Errorf("server %s: %w", req.ServerID, ErrUnknownServer)
		}

		existing, found, err := tx.Existing(ctx, req.ServerID, req.Date)
		if err != nil {
			return fmt.Errorf("load record %s/%s: %w", req.ServerID, req.Date, err)
		}
		if found && existing.Finalized {
			out, kept = existing, true
			return nil
		}

		totals, err := tx.Totals(ctx, req.ServerID, req.Date)
		if err != nil {
			return fmt.Errorf("totals %s/%s: %w", req.ServerID, req.Date, err)
		}
		ratios := ComputeRatios(totals)

		rec := models.DailyRecord{
			ID:                uuid.NewString(),
			ServerID:          req.ServerID,
			Date:              req.Date,
			TotalLeads:        totals.Leads,
			TotalConversions:  totals.Conversions,
			TotalSpent:        totals.Spent,
			ConversionRate:    ratios.ConversionRate,
			CostPerLead:       ratios.CostPerLead,
			CostPerConversion: ratios.CostPerConversion,
			Finalized:         req.Finalize,
			UpdatedAt:         j.now().UTC(),
		}
		if found {
			rec.ID = existing.ID
		}

		out, err = tx.Upsert(ctx, rec)
		if err != nil {
			return fmt.Errorf("upsert record %s/%s: %w", req.ServerID, req.Date, err)
		}
		return nil
	})
	if err != nil {
		metrics.DailyRollups.WithLabelValues("failed").Inc()
		return models.DailyRecord{}, err
	}

	if kept {
		metrics.DailyRollups.WithLabelValues("finalized_kept").Inc()
		j.logger.Info("daily record already finalized", map[string]interface{}{
			"serverId": req.ServerID,
			"date":     req.Date,
			"recordId": out.ID,
		})
		return out, nil
	}

	metrics.DailyRollups.WithLabelValues("updated").Inc()
	j.logger.Info("daily record written", map[string]interface{}{
		"serverId":    req.ServerID,
		"date":        req.Date,
		"recordId":    out.ID,
		"leads":       out.TotalLeads,
		"conversions": out.TotalConversions,
		"finalized":   out.Finalized,
	})

	if j.indexer != nil {
		if err := j.indexer.IndexDailyRecord(ctx, out); err != nil {
			j.logger.Warn("failed to index daily record", map[string]interface{}{
				"serverId": req.ServerID,
				"date":     req.Date,
				"error":    err.Error(),
			})
		}
	}
	return out, nil
}

// Summary reports a RunAll batch.
type Summary struct {
	Processed       int      `json:"serversProcessed"`
	Failed          int      `json:"serversFailed"`
	FailedServerIDs []string `json:"failedServerIds"`
}

// RunAll rolls up every active server for date. One server's failure does not
// stop the others; only failing to list servers is returned as an error.
func (j *Job) RunAll(ctx context.Context, date string, finalize bool) (Summary, error) {
	if err := validation.ValidateDate(date); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	servers, err := j.store.ActiveServers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list active servers: %w", err)
	}

	var (
		processed int64
		mu        sync.Mutex
		failed    []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			if _, err := j.Run(gctx, Request{ServerID: srv.ID, Date: date, Finalize: finalize}); err != nil {
				j.logger.Error("rollup failed", map[string]interface{}{
					"serverId": srv.ID,
					"date":     date,
					"error":    err.Error(),
				})
				mu.Lock()
				failed = append(failed, srv.ID)
				mu.Unlock()
				return nil
			}
			atomic.AddInt64(&processed, 1)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(failed)
	summary := Summary{
		Processed:       int(processed),
		Failed:          len(failed),
		FailedServerIDs: failed,
	}
	if summary.FailedServerIDs == nil {
		summary.FailedServerIDs = []string{}
	}
	return summary, ctx.Err()
}
