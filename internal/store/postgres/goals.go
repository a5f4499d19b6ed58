package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"leadflow-workers/internal/distribution"
	"leadflow-workers/internal/models"
)

func goalKey(phoneID string) string {
	return "phone:goal:" + phoneID
}

// GoalFor returns the phone's goal, reading through the cache. Missing rows,
// rows with non-positive quotas and store errors all give the default goal.
func (s *Store) GoalFor(ctx context.Context, phoneID string) models.Goal {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, goalKey(phoneID)).Result(); err == nil {
			var g models.Goal
			if err := json.Unmarshal([]byte(val), &g); err == nil && g.Valid() {
				return g
			}
		}
	}

	g, err := loadGoal(ctx, s.db, phoneID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		g = s.defaultGoalFor(phoneID)
	case err != nil:
		s.logger.Warn("goal lookup failed, using default", map[string]interface{}{
			"phoneId": phoneID,
			"error":   err.Error(),
		})
		return s.defaultGoalFor(phoneID)
	case !g.Valid():
		s.logger.Warn("invalid goal row, using default", map[string]interface{}{
			"phoneId":     phoneID,
			"dailyGoal":   g.DailyGoal,
			"weeklyGoal":  g.WeeklyGoal,
			"monthlyGoal": g.MonthlyGoal,
		})
		g = s.defaultGoalFor(phoneID)
	}

	if s.cache != nil {
		data, _ := json.Marshal(g)
		s.cache.Set(ctx, goalKey(phoneID), data, s.goalTTL)
	}
	return g
}

func loadGoal(ctx context.Context, q querier, phoneID string) (models.Goal, error) {
	g := models.Goal{PhoneID: phoneID}
	err := q.QueryRowContext(ctx, `
		SELECT daily_goal, weekly_goal, monthly_goal
		FROM phone_goals
		WHERE phone_id = $1`, phoneID).Scan(&g.DailyGoal, &g.WeeklyGoal, &g.MonthlyGoal)
	return g, err
}

func (s *Store) defaultGoalFor(phoneID string) models.Goal {
	g := s.defaultGoal
	g.PhoneID = phoneID
	return g
}

// SetGoal upserts a phone's goal and drops the cached copy.
func (s *Store) SetGoal(ctx context.Context, g models.Goal) error {
	if g.PhoneID == "" {
		return fmt.Errorf("%w: phone id is required", distribution.ErrInvalidInput)
	}
	if !g.Valid() {
		return fmt.Errorf("%w: goals must be positive (daily=%d weekly=%d monthly=%d)",
			distribution.ErrInvalidInput, g.DailyGoal, g.WeeklyGoal, g.MonthlyGoal)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO phone_goals (phone_id, daily_goal, weekly_goal, monthly_goal, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (phone_id) DO UPDATE SET
			daily_goal = EXCLUDED.daily_goal,
			weekly_goal = EXCLUDED.weekly_goal,
			monthly_goal = EXCLUDED.monthly_goal,
			updated_at = EXCLUDED.updated_at`,
		g.PhoneID, g.DailyGoal, g.WeeklyGoal, g.MonthlyGoal)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("phone %s: %w", g.PhoneID, distribution.ErrNotFound)
	}
	if err != nil {
		return transient("upsert goal", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, goalKey(g.PhoneID)).Err(); err != nil {
			s.logger.Warn("failed to evict cached goal", map[string]interface{}{
				"phoneId": g.PhoneID,
				"error":   err.Error(),
			})
		}
	}
	return nil
}
