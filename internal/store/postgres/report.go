package postgres

import (
	"context"
	"encoding/json"

	"leadflow-workers/internal/models"
)

const selectDistribution = `
	SELECT f.id, f.name, COUNT(a.id)
	FROM lead_assignments a
	JOIN franchises f ON f.id = a.franchise_id
	WHERE a.assignment_date = $1
	GROUP BY f.id, f.name
	ORDER BY COUNT(a.id) DESC, f.id`

func reportKey(date string) string {
	return "report:distribution:" + date
}

// DistributionReport spreads the day's assignments across franchises.
func (s *Store) DistributionReport(ctx context.Context, date string) (models.DistributionReport, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, reportKey(date)).Result(); err == nil {
			var r models.DistributionReport
			if err := json.Unmarshal([]byte(val), &r); err == nil {
				return r, nil
			}
		}
	}

	rows, err := s.db.QueryContext(ctx, selectDistribution, date)
	if err != nil {
		return models.DistributionReport{}, transient("query distribution", err)
	}
	defer rows.Close()

	report := models.DistributionReport{Date: date, Franchises: []models.FranchiseShare{}}
	for rows.Next() {
		var f models.FranchiseShare
		if err := rows.Scan(&f.FranchiseID, &f.FranchiseName, &f.Assignments); err != nil {
			return models.DistributionReport{}, transient("scan distribution", err)
		}
		report.TotalAssignments += f.Assignments
		report.Franchises = append(report.Franchises, f)
	}
	if err := rows.Err(); err != nil {
		return models.DistributionReport{}, transient("iterate distribution", err)
	}

	for i := range report.Franchises {
		report.Franchises[i].Percentage = Share(report.Franchises[i].Assignments, report.TotalAssignments)
	}

	if s.cache != nil {
		data, _ := json.Marshal(report)
		s.cache.Set(ctx, reportKey(date), data, s.reportTTL)
	}
	return report, nil
}

// Share is part as a percentage of total, or 0 when total is 0.
func Share(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
