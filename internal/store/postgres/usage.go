package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
)

const (
	countAssignments = `
	SELECT COUNT(*)
	FROM lead_assignments
	WHERE phone_id = $1 AND assignment_date = $2`

	// Writes nothing unless the phone belongs to the franchise.
	insertAssignment = `
	INSERT INTO lead_assignments
		(id, lead_id, franchise_id, phone_id, server_id, assignment_date, selection_pass, converted, created_at)
	SELECT $1, $2, p.franchise_id, p.id, NULLIF($5, ''), $6, NULLIF($7, ''), false, $8
	FROM franchise_phones p
	WHERE p.id = $4 AND p.franchise_id = $3
	ON CONFLICT (lead_id) DO NOTHING`

	selectAssignmentByLead = `
	SELECT id, lead_id, franchise_id, phone_id, COALESCE(server_id, ''),
	       to_char(assignment_date, 'YYYY-MM-DD'), COALESCE(selection_pass, ''), converted, created_at
	FROM lead_assignments
	WHERE lead_id = $1`
)

// CountOn counts the phone's assignments on date. Nothing is stored per phone;
// the log is the counter.
func (s *Store) CountOn(ctx context.Context, phoneID, date string) (int, error) {
	return countOn(ctx, s.db, phoneID, date)
}

func countOn(ctx context.Context, q querier, phoneID, date string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, countAssignments, phoneID, date).Scan(&n); err != nil {
		return 0, transient("count assignments", err)
	}
	return n, nil
}

// Record appends the assignment. A lead that already has one keeps it and
// inserted is false. A phone outside the assignment's franchise is ErrInvalidInput.
func (s *Store) Record(ctx context.Context, a models.Assignment) (models.Assignment, bool, error) {
	inserted, err := insertOnce(ctx, s.db, a)
	if err != nil {
		return models.Assignment{}, false, err
	}
	if inserted {
		return a, true, nil
	}

	existing, found, err := assignmentByLead(ctx, s.db, a.LeadID)
	if err != nil {
		return models.Assignment{}, false, err
	}
	if !found {
		return models.Assignment{}, false, phoneNotInFranchise(a)
	}
	return existing, false, nil
}

func phoneNotInFranchise(a models.Assignment) error {
	return fmt.Errorf("%w: phone %s does not belong to franchise %s", distribution.ErrInvalidInput, a.PhoneID, a.FranchiseID)
}

func insertOnce(ctx context.Context, q querier, a models.Assignment) (bool, error) {
	res, err := q.ExecContext(ctx, insertAssignment,
		a.ID, a.LeadID, a.FranchiseID, a.PhoneID, a.ServerID, a.Date, a.SelectionPass, a.CreatedAt)
	if isForeignKeyViolation(err) {
		return false, fmt.Errorf("%w: unknown server %q", distribution.ErrInvalidInput, a.ServerID)
	}
	if err != nil {
		return false, transient("insert assignment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, transient("insert assignment", err)
	}
	return n == 1, nil
}

func assignmentByLead(ctx context.Context, q querier, leadID string) (models.Assignment, bool, error) {
	var a models.Assignment
	err := q.QueryRowContext(ctx, selectAssignmentByLead, leadID).Scan(
		&a.ID, &a.LeadID, &a.FranchiseID, &a.PhoneID, &a.ServerID,
		&a.Date, &a.SelectionPass, &a.Converted, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Assignment{}, false, nil
	}
	if err != nil {
		return models.Assignment{}, false, transient("load assignment", err)
	}
	return a, true, nil
}

// MarkConverted flags the lead's assignment. It reports false for an unknown lead.
func (s *Store) MarkConverted(ctx context.Context, leadID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE lead_assignments SET converted = true WHERE lead_id = $1`, leadID)
	if err != nil {
		return false, transient("mark converted", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, transient("mark converted", err)
	}
	return n > 0, nil
}
