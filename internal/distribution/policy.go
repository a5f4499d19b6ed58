package distribution

import (
	"sort"

	"leadflow-workers/internal/models"
)

// Candidate is an active phone with its usage for the selection date.
type Candidate struct {
	Phone models.Phone
	Usage int
	Goal  models.Goal
}

type Selection struct {
	Phone      models.Phone `json:"phone"`
	Pass       string       `json:"pass"`
	UsageCount int          `json:"usageCount"`
	DailyGoal  int          `json:"dailyGoal"`
}

func dailyGoalOf(c Candidate) int {
	if c.Goal.DailyGoal > 0 {
		return c.Goal.DailyGoal
	}
	return models.DefaultGoal.DailyGoal
}

// Choose applies the two-pass policy: the first phone under its daily goal in
// priority order, otherwise the highest-priority phone. Inactive candidates are
// ignored. The result depends only on the candidate set, not its order.
func Choose(candidates []Candidate) (Selection, bool) {
	active := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Phone.IsActive {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return Selection{}, false
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Phone.OrderNumber != active[j].Phone.OrderNumber {
			return active[i].Phone.OrderNumber < active[j].Phone.OrderNumber
		}
		return active[i].Phone.ID < active[j].Phone.ID
	})

	for _, c := range active {
		goal := dailyGoalOf(c)
		if c.Usage < goal {
			return Selection{Phone: c.Phone, Pass: models.PassPrimary, UsageCount: c.Usage, DailyGoal: goal}, true
		}
	}

	first := active[0]
	return Selection{Phone: first.Phone, Pass: models.PassFallback, UsageCount: first.Usage, DailyGoal: dailyGoalOf(first)}, true
}

// GoalOvershoot reports whether a primary-pass assignment left its phone above
// the daily goal. Only concurrent, non-atomic select+record can cause this.
func GoalOvershoot(pass string, usageAfter, dailyGoal int) bool {
	return pass == models.PassPrimary && usageAfter > dailyGoal
}
