package distribution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadflow-workers/internal/models"
)

func cand(id string, order, usage, dailyGoal int) Candidate {
	return Candidate{
		Phone: models.Phone{ID: id, OrderNumber: order, IsActive: true},
		Usage: usage,
		Goal:  models.Goal{DailyGoal: dailyGoal},
	}
}

func TestChoose(t *testing.T) {
	tests := []struct {
		name      string
		in        []Candidate
		wantID    string
		wantPass  string
		wantFound bool
	}{
		{"empty", nil, "", "", false},
		{"first under goal", []Candidate{cand("a", 1, 0, 2), cand("b", 2, 0, 2)}, "a", models.PassPrimary, true},
		{"skips phone at goal", []Candidate{cand("a", 1, 2, 2), cand("b", 2, 1, 2)}, "b", models.PassPrimary, true},
		{"fallback to lowest order", []Candidate{cand("b", 2, 9, 2), cand("a", 1, 7, 2)}, "a", models.PassFallback, true},
		{"zero goal uses default", []Candidate{cand("a", 1, 4, 0)}, "a", models.PassPrimary, true},
		{"order ties broken by id", []Candidate{cand("z", 1, 0, 5), cand("m", 1, 0, 5)}, "m", models.PassPrimary, true},
		{
			"inactive ignored",
			[]Candidate{{Phone: models.Phone{ID: "off", OrderNumber: 0}}, cand("on", 3, 0, 5)},
			"on", models.PassPrimary, true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, ok := Choose(tt.in)
			assert.Equal(t, tt.wantFound, ok)
			assert.Equal(t, tt.wantID, sel.Phone.ID)
			assert.Equal(t, tt.wantPass, sel.Pass)
		})
	}
}

func TestChoose_InputOrderIrrelevant(t *testing.T) {
	a := []Candidate{cand("p1", 1, 2, 2), cand("p2", 2, 3, 5), cand("p3", 3, 0, 5)}
	b := []Candidate{a[2], a[0], a[1]}

	s1, _ := Choose(a)
	s2, _ := Choose(b)
	assert.Equal(t, s1, s2)
	assert.Equal(t, "p2", s1.Phone.ID)
}

func TestGoalOvershoot(t *testing.T) {
	assert.True(t, GoalOvershoot(models.PassPrimary, 3, 2))
	assert.False(t, GoalOvershoot(models.PassPrimary, 2, 2))
	assert.False(t, GoalOvershoot(models.PassFallback, 9, 2))
}
