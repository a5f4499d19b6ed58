package rollup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/models"
)

const day = "2024-03-01"

type key struct{ server, date string }

// memStore applies a transaction's writes only when fn succeeds.
type memStore struct {
	mu        sync.Mutex
	servers   map[string]models.Server
	totals    map[key]Totals
	records   map[key]models.DailyRecord
	totalsErr map[string]error
}

func newMemStore(serverIDs ...string) *memStore {
	m := &memStore{
		servers:   map[string]models.Server{},
		totals:    map[key]Totals{},
		records:   map[key]models.DailyRecord{},
		totalsErr: map[string]error{},
	}
	for _, id := range serverIDs {
		m.servers[id] = models.Server{ID: id, Name: id, IsActive: true}
	}
	return m
}

type memTx struct {
	store  *memStore
	writes map[key]models.DailyRecord
}

func (m *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m, writes: map[key]models.DailyRecord{}}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.writes {
		m.records[k] = v
	}
	return nil
}

func (m *memStore) ActiveServers(context.Context) ([]models.Server, error) {
	var out []models.Server
	for _, s := range m.servers {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (t *memTx) ServerExists(_ context.Context, id string) (bool, error) {
	_, ok := t.store.servers[id]
	return ok, nil
}

func (t *memTx) Totals(_ context.Context, server, date string) (Totals, error) {
	if err := t.store.totalsErr[server]; err != nil {
		return Totals{}, err
	}
	return t.store.totals[key{server, date}], nil
}

func (t *memTx) Existing(_ context.Context, server, date string) (models.DailyRecord, bool, error) {
	rec, ok := t.store.records[key{server, date}]
	return rec, ok, nil
}

func (t *memTx) Upsert(_ context.Context, rec models.DailyRecord) (models.DailyRecord, error) {
	k := key{rec.ServerID, rec.Date}
	if existing, ok := t.store.records[k]; ok {
		rec.ID = existing.ID
	}
	t.writes[k] = rec
	return rec, nil
}

type recordingIndexer struct {
	mu   sync.Mutex
	docs []models.DailyRecord
	err  error
}

func (r *recordingIndexer) IndexDailyRecord(_ context.Context, rec models.DailyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, rec)
	return r.err
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC) }
}

func newTestJob(t *testing.T, store Store, opts ...Option) *Job {
	return NewJob(store, logger.NewTestLogger(t), append([]Option{WithClock(fixedClock())}, opts...)...)
}

func TestRun_Idempotent(t *testing.T) {
	store := newMemStore("srv-1")
	store.totals[key{"srv-1", day}] = Totals{Leads: 4, Conversions: 1, Spent: 100}
	job := newTestJob(t, store)

	first, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	require.NoError(t, err)
	second, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.records, 1)
	assert.Equal(t, 4, second.TotalLeads)
	assert.InDelta(t, 25.0, second.ConversionRate, 1e-9)
	assert.InDelta(t, 25.0, second.CostPerLead, 1e-9)
	assert.InDelta(t, 100.0, second.CostPerConversion, 1e-9)
}

func TestRun_ZeroGuards(t *testing.T) {
	store := newMemStore("srv-1")
	rec, err := newTestJob(t, store).Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	require.NoError(t, err)

	assert.Zero(t, rec.TotalLeads)
	assert.Zero(t, rec.ConversionRate)
	assert.Zero(t, rec.CostPerLead)
	assert.Zero(t, rec.CostPerConversion)
}

func TestRun_RerunOverwritesOpenDay(t *testing.T) {
	store := newMemStore("srv-1")
	store.totals[key{"srv-1", day}] = Totals{Leads: 2}
	job := newTestJob(t, store)

	first, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	require.NoError(t, err)

	store.totals[key{"srv-1", day}] = Totals{Leads: 5, Conversions: 2, Spent: 50}
	second, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.TotalLeads)
	assert.InDelta(t, 40.0, second.ConversionRate, 1e-9)
}

func TestRun_FinalizedRecordIsKept(t *testing.T) {
	store := newMemStore("srv-1")
	store.totals[key{"srv-1", day}] = Totals{Leads: 3, Conversions: 1, Spent: 30}
	job := newTestJob(t, store)

	final, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day, Finalize: true})
	require.NoError(t, err)
	assert.True(t, final.Finalized)

	store.totals[key{"srv-1", day}] = Totals{Leads: 99}
	again, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day, Finalize: true})
	require.NoError(t, err)
	assert.Equal(t, final, again)
}

func TestRun_FailureLeavesPreviousRecord(t *testing.T) {
	store := newMemStore("srv-1")
	store.totals[key{"srv-1", day}] = Totals{Leads: 3}
	job := newTestJob(t, store)

	before, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	require.NoError(t, err)

	boom := errors.New("connection reset by peer")
	store.totalsErr["srv-1"] = boom
	store.totals[key{"srv-1", day}] = Totals{Leads: 10}

	_, err = job.Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "srv-1/"+day)
	assert.Equal(t, before, store.records[key{"srv-1", day}])
}

func TestRun_Validation(t *testing.T) {
	job := newTestJob(t, newMemStore("srv-1"))

	_, err := job.Run(context.Background(), Request{ServerID: "", Date: day})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = job.Run(context.Background(), Request{ServerID: "srv-1", Date: "2024/03/01"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = job.Run(context.Background(), Request{ServerID: "ghost", Date: day})
	assert.ErrorIs(t, err, ErrUnknownServer)
}

func TestRun_IndexesWrittenRecords(t *testing.T) {
	store := newMemStore("srv-1")
	idx := &recordingIndexer{err: errors.New("cluster red")}
	job := newTestJob(t, store, WithIndexer(idx))

	rec, err := job.Run(context.Background(), Request{ServerID: "srv-1", Date: day})
	require.NoError(t, err, "index failures must not fail the rollup")
	require.Len(t, idx.docs, 1)
	assert.Equal(t, rec.ID, idx.docs[0].ID)
}

func TestRunAll_CollectsFailures(t *testing.T) {
	store := newMemStore("srv-1", "srv-2", "srv-3")
	store.totalsErr["srv-2"] = errors.New("timeout")
	job := newTestJob(t, store, WithConcurrency(2))

	summary, err := job.RunAll(context.Background(), day, true)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"srv-2"}, summary.FailedServerIDs)
	assert.True(t, store.records[key{"srv-1", day}].Finalized)
}

func TestRunAll_NoServers(t *testing.T) {
	summary, err := newTestJob(t, newMemStore()).RunAll(context.Background(), day, false)
	require.NoError(t, err)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, []string{}, summary.FailedServerIDs)

	_, err = newTestJob(t, newMemStore()).RunAll(context.Background(), "bad", false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
