// internal/models/franchise.go
package models

type Franchise struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Phone is a routing destination. Phones are deactivated, never deleted, so
// past assignments keep pointing at a real row.
type Phone struct {
	ID          string `json:"id"`
	FranchiseID string `json:"franchiseId"`
	PhoneNumber string `json:"phoneNumber"`
	OrderNumber int    `json:"orderNumber"`
	IsActive    bool   `json:"isActive"`
}

// Goal is the lead quota of one phone.
type Goal struct {
	PhoneID     string `json:"phoneId,omitempty"`
	DailyGoal   int    `json:"dailyGoal"`
	WeeklyGoal  int    `json:"weeklyGoal"`
	MonthlyGoal int    `json:"monthlyGoal"`
}

// Valid reports whether every quota is positive.
func (g Goal) Valid() bool {
	return g.DailyGoal > 0 && g.WeeklyGoal > 0 && g.MonthlyGoal > 0
}

// DefaultGoal is used for phones without a goal row.
var DefaultGoal = Goal{DailyGoal: 5, WeeklyGoal: 30, MonthlyGoal: 120}

type Server struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	// DefaultFranchiseID is a weak reference used for default routing.
	DefaultFranchiseID *string `json:"defaultFranchiseId,omitempty"`
}
