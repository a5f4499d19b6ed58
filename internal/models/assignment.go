// internal/models/assignment.go
package models

import "time"

// Selection passes.
const (
	PassPrimary  = "primary"
	PassFallback = "fallback"
)

// Assignment is the immutable fact "lead L went to phone P of franchise F on day D".
// Usage counts are derived from these rows; nothing else is incremented.
type Assignment struct {
	ID            string    `json:"id"`
	LeadID        string    `json:"leadId"`
	FranchiseID   string    `json:"franchiseId"`
	PhoneID       string    `json:"phoneId"`
	ServerID      string    `json:"serverId,omitempty"`
	Date          string    `json:"date"`
	SelectionPass string    `json:"selectionPass,omitempty"`
	Converted     bool      `json:"converted"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SpendRecord is one upstream ad spend fact for a server and day.
type SpendRecord struct {
	ServerID string  `json:"serverId"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	Source   string  `json:"source"`
}

// DailyRecord is the per-server, per-day rollup.
type DailyRecord struct {
	ID                string    `json:"id"`
	ServerID          string    `json:"serverId"`
	Date              string    `json:"date"`
	TotalLeads        int       `json:"totalLeads"`
	TotalConversions  int       `json:"totalConversions"`
	TotalSpent        float64   `json:"totalSpent"`
	ConversionRate    float64   `json:"conversionRate"`
	CostPerLead       float64   `json:"costPerLead"`
	CostPerConversion float64   `json:"costPerConversion"`
	Finalized         bool      `json:"finalized"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FranchiseShare is one row of the daily distribution report.
type FranchiseShare struct {
	FranchiseID   string  `json:"franchiseId"`
	FranchiseName string  `json:"franchiseName"`
	Assignments   int     `json:"assignments"`
	Percentage    float64 `json:"percentage"`
}

// DistributionReport is how the day's assignments spread across franchises.
type DistributionReport struct {
	Date             string           `json:"date"`
	TotalAssignments int              `json:"totalAssignments"`
	Franchises       []FranchiseShare `json:"franchises"`
}
