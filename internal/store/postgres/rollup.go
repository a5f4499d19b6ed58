package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leadflow-workers/internal/models"
	"leadflow-workers/internal/rollup"
)

const (
	selectLeadTotals = `
	SELECT COUNT(*), COUNT(*) FILTER (WHERE converted)
	FROM lead_assignments
	WHERE server_id = $1 AND assignment_date = $2`

	selectSpendTotal = `
	SELECT COALESCE(SUM(amount), 0)
	FROM spend_records
	WHERE server_id = $1 AND spend_date = $2`

	dailyRecordColumns = `id, server_id, to_char(record_date, 'YYYY-MM-DD'), total_leads, total_conversions,
	       total_spent, conversion_rate, cost_per_lead, cost_per_conversion, finalized, updated_at`

	selectDailyRecord = `
	SELECT ` + dailyRecordColumns + `
	FROM server_daily_records
	WHERE server_id = $1 AND record_date = $2`

	// A finalized row is left alone even if a concurrent run got past the
	// locked read; RETURNING then yields no row.
	upsertDailyRecord = `
	INSERT INTO server_daily_records
		(id, server_id, record_date, total_leads, total_conversions, total_spent,
		 conversion_rate, cost_per_lead, cost_per_conversion, finalized, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (server_id, record_date) DO UPDATE SET
		total_leads = EXCLUDED.total_leads,
		total_conversions = EXCLUDED.total_conversions,
		total_spent = EXCLUDED.total_spent,
		conversion_rate = EXCLUDED.conversion_rate,
		cost_per_lead = EXCLUDED.cost_per_lead,
		cost_per_conversion = EXCLUDED.cost_per_conversion,
		finalized = EXCLUDED.finalized,
		updated_at = EXCLUDED.updated_at
	WHERE NOT server_daily_records.finalized
	RETURNING ` + dailyRecordColumns
)

// InTx runs one rollup in a single transaction.
func (s *Store) InTx(ctx context.Context, fn func(rollup.Tx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&rollupTx{tx: tx})
	})
}

func (s *Store) ActiveServers(ctx context.Context) ([]models.Server, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, is_active, default_franchise_id
		FROM servers
		WHERE is_active
		ORDER BY id`)
	if err != nil {
		return nil, transient("query servers", err)
	}
	defer rows.Close()

	var servers []models.Server
	for rows.Next() {
		var (
			srv models.Server
			def sql.NullString
		)
		if err := rows.Scan(&srv.ID, &srv.Name, &srv.IsActive, &def); err != nil {
			return nil, transient("scan server", err)
		}
		if def.Valid {
			id := def.String
			srv.DefaultFranchiseID = &id
		}
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("iterate servers", err)
	}
	return servers, nil
}

// DailyRecord reads the stored record for (server, date).
func (s *Store) DailyRecord(ctx context.Context, serverID, date string) (models.DailyRecord, bool, error) {
	return scanDailyRecord(s.db.QueryRowContext(ctx, selectDailyRecord, serverID, date))
}

type rollupTx struct {
	tx *sql.Tx
}

func (t *rollupTx) ServerExists(ctx context.Context, serverID string) (bool, error) {
	var ok bool
	err := t.tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM servers WHERE id = $1)`, serverID).Scan(&ok)
	if err != nil {
		return false, transient("check server", err)
	}
	return ok, nil
}

func (t *rollupTx) Totals(ctx context.Context, serverID, date string) (rollup.Totals, error) {
	var tot rollup.Totals
	if err := t.tx.QueryRowContext(ctx, selectLeadTotals, serverID, date).Scan(&tot.Leads, &tot.Conversions); err != nil {
		return rollup.Totals{}, transient("count leads", err)
	}
	if err := t.tx.QueryRowContext(ctx, selectSpendTotal, serverID, date).Scan(&tot.Spent); err != nil {
		return rollup.Totals{}, transient("sum spend", err)
	}
	return tot, nil
}

func (t *rollupTx) Existing(ctx context.Context, serverID, date string) (models.DailyRecord, bool, error) {
	return scanDailyRecord(t.tx.QueryRowContext(ctx, selectDailyRecord+` FOR UPDATE`, serverID, date))
}

func (t *rollupTx) Upsert(ctx context.Context, rec models.DailyRecord) (models.DailyRecord, error) {
	out, ok, err := scanDailyRecord(t.tx.QueryRowContext(ctx, upsertDailyRecord,
		rec.ID, rec.ServerID, rec.Date, rec.TotalLeads, rec.TotalConversions, rec.TotalSpent,
		rec.ConversionRate, rec.CostPerLead, rec.CostPerConversion, rec.Finalized, rec.UpdatedAt,
	))
	if err != nil {
		return models.DailyRecord{}, err
	}
	if ok {
		return out, nil
	}

	out, ok, err = scanDailyRecord(t.tx.QueryRowContext(ctx, selectDailyRecord, rec.ServerID, rec.Date))
	if err != nil {
		return models.DailyRecord{}, err
	}
	if !ok {
		return models.DailyRecord{}, transient("upsert daily record",
			fmt.Errorf("record %s/%s vanished", rec.ServerID, rec.Date))
	}
	return out, nil
}

func scanDailyRecord(row *sql.Row) (models.DailyRecord, bool, error) {
	var r models.DailyRecord
	err := row.Scan(
		&r.ID, &r.ServerID, &r.Date, &r.TotalLeads, &r.TotalConversions,
		&r.TotalSpent, &r.ConversionRate, &r.CostPerLead, &r.CostPerConversion, &r.Finalized, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DailyRecord{}, false, nil
	}
	if err != nil {
		return models.DailyRecord{}, false, transient("load daily record", err)
	}
	return r, true, nil
}
