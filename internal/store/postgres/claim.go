package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
)

const (
	lockFranchise = `SELECT pg_advisory_xact_lock(hashtext($1))`

	// One round trip for every active phone, its goal and its usage on the day.
	selectCandidates = `
	SELECT p.id, p.franchise_id, p.phone_number, p.order_number, p.is_active,
	       g.daily_goal, g.weekly_goal, g.monthly_goal,
	       COUNT(a.id)
	FROM franchise_phones p
	LEFT JOIN phone_goals g ON g.phone_id = p.id
	LEFT JOIN lead_assignments a ON a.phone_id = p.id AND a.assignment_date = $2
	WHERE p.franchise_id = $1 AND p.is_active
	GROUP BY p.id, g.phone_id
	ORDER BY p.order_number, p.id`
)

// Claim selects a phone and records the lead in one transaction. Claims for the
// same franchise are serialized by a transaction-scoped advisory lock, so no
// two of them can both see a phone under its goal.
func (s *Store) Claim(ctx context.Context, req distribution.ClaimRequest, choose distribution.ChooseFunc) (distribution.ClaimResult, error) {
	var out distribution.ClaimResult

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, lockFranchise, req.FranchiseID); err != nil {
			return transient("lock franchise", err)
		}

		existing, found, err := assignmentByLead(ctx, tx, req.LeadID)
		if err != nil {
			return err
		}
		if found {
			out, err = s.duplicateClaim(ctx, tx, existing)
			return err
		}

		candidates, err := s.candidates(ctx, tx, req.FranchiseID, req.Date)
		if err != nil {
			return err
		}
		sel, ok := choose(candidates)
		if !ok {
			return fmt.Errorf("franchise %s on %s: %w", req.FranchiseID, req.Date, distribution.ErrNotFound)
		}

		a := models.Assignment{
			ID:            req.AssignmentID,
			LeadID:        req.LeadID,
			FranchiseID:   req.FranchiseID,
			PhoneID:       sel.Phone.ID,
			ServerID:      req.ServerID,
			Date:          req.Date,
			SelectionPass: sel.Pass,
			CreatedAt:     s.now().UTC(),
		}
		inserted, err := insertOnce(ctx, tx, a)
		if err != nil {
			return err
		}
		if !inserted {
			// Same lead claimed concurrently under another franchise's lock.
			existing, found, err := assignmentByLead(ctx, tx, req.LeadID)
			if err != nil {
				return err
			}
			if !found {
				return phoneNotInFranchise(a)
			}
			out, err = s.duplicateClaim(ctx, tx, existing)
			return err
		}

		out = distribution.ClaimResult{Selection: sel, Assignment: a}
		return nil
	})
	if err != nil {
		return distribution.ClaimResult{}, err
	}
	return out, nil
}

func (s *Store) candidates(ctx context.Context, q querier, franchiseID, date string) ([]distribution.Candidate, error) {
	rows, err := q.QueryContext(ctx, selectCandidates, franchiseID, date)
	if err != nil {
		return nil, transient("query candidates", err)
	}
	defer rows.Close()

	var out []distribution.Candidate
	for rows.Next() {
		var (
			c                      distribution.Candidate
			daily, weekly, monthly sql.NullInt64
		)
		if err := rows.Scan(
			&c.Phone.ID, &c.Phone.FranchiseID, &c.Phone.PhoneNumber, &c.Phone.OrderNumber, &c.Phone.IsActive,
			&daily, &weekly, &monthly, &c.Usage,
		); err != nil {
			return nil, transient("scan candidate", err)
		}

		c.Goal = models.Goal{
			PhoneID:     c.Phone.ID,
			DailyGoal:   int(daily.Int64),
			WeeklyGoal:  int(weekly.Int64),
			MonthlyGoal: int(monthly.Int64),
		}
		if !daily.Valid || !c.Goal.Valid() {
			c.Goal = s.defaultGoalFor(c.Phone.ID)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("iterate candidates", err)
	}
	return out, nil
}

func (s *Store) duplicateClaim(ctx context.Context, q querier, a models.Assignment) (distribution.ClaimResult, error) {
	phone, err := s.phoneByID(ctx, q, a.PhoneID)
	if err != nil {
		return distribution.ClaimResult{}, err
	}
	used, err := countOn(ctx, q, a.PhoneID, a.Date)
	if err != nil {
		return distribution.ClaimResult{}, err
	}
	goal, err := loadGoal(ctx, q, a.PhoneID)
	if err != nil || !goal.Valid() {
		goal = s.defaultGoalFor(a.PhoneID)
	}
	return distribution.ClaimResult{
		Selection: distribution.Selection{
			Phone:      phone,
			Pass:       a.SelectionPass,
			UsageCount: used,
			DailyGoal:  goal.DailyGoal,
		},
		Assignment: a,
		Duplicate:  true,
	}, nil
}
