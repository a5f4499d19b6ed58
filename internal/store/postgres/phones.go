package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
)

const listActivePhones = `
	SELECT id, franchise_id, phone_number, order_number, is_active
	FROM franchise_phones
	WHERE franchise_id = $1 AND is_active
	ORDER BY order_number, id`

func (s *Store) ListActivePhones(ctx context.Context, franchiseID string) ([]models.Phone, error) {
	rows, err := s.db.QueryContext(ctx, listActivePhones, franchiseID)
	if err != nil {
		return nil, transient("query active phones", err)
	}
	defer rows.Close()

	var phones []models.Phone
	for rows.Next() {
		var p models.Phone
		if err := rows.Scan(&p.ID, &p.FranchiseID, &p.PhoneNumber, &p.OrderNumber, &p.IsActive); err != nil {
			return nil, transient("scan phone", err)
		}
		phones = append(phones, p)
	}
	if err := rows.Err(); err != nil {
		return nil, transient("iterate phones", err)
	}
	return phones, nil
}

func (s *Store) phoneByID(ctx context.Context, q querier, phoneID string) (models.Phone, error) {
	var p models.Phone
	err := q.QueryRowContext(ctx, `
		SELECT id, franchise_id, phone_number, order_number, is_active
		FROM franchise_phones
		WHERE id = $1`, phoneID).Scan(&p.ID, &p.FranchiseID, &p.PhoneNumber, &p.OrderNumber, &p.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Phone{}, fmt.Errorf("phone %s: %w", phoneID, distribution.ErrNotFound)
	}
	if err != nil {
		return models.Phone{}, transient("load phone", err)
	}
	return p, nil
}

// DefaultFranchise follows the server's default franchise reference.
func (s *Store) DefaultFranchise(ctx context.Context, serverID string) (string, error) {
	var id sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT default_franchise_id FROM servers WHERE id = $1`, serverID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("server %s: %w", serverID, distribution.ErrNotFound)
	}
	if err != nil {
		return "", transient("load server", err)
	}
	if !id.Valid || id.String == "" {
		return "", fmt.Errorf("server %s has no default franchise: %w", serverID, distribution.ErrNotFound)
	}
	return id.String, nil
}

// SetPhoneActive soft-enables or soft-disables a phone.
func (s *Store) SetPhoneActive(ctx context.Context, phoneID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE franchise_phones SET is_active = $2, updated_at = now() WHERE id = $1`, phoneID, active)
	if err != nil {
		return transient("update phone", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return transient("update phone", err)
	}
	if n == 0 {
		return fmt.Errorf("phone %s: %w", phoneID, distribution.ErrNotFound)
	}
	return nil
}
