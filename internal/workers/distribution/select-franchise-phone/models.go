package selectfranchisephone

type Input struct {
	FranchiseID string `json:"franchiseId,omitempty"`
	// ServerID routes to the server's default franchise when FranchiseID is empty.
	ServerID string `json:"serverId,omitempty"`
	Date     string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	LeadID   string `json:"leadId,omitempty"`
	Claim    *bool  `json:"claim,omitempty"`
}

type Output struct {
	Found         bool   `json:"found"`
	Reason        string `json:"reason,omitempty"`
	FranchiseID   string `json:"franchiseId,omitempty"`
	PhoneID       string `json:"phoneId,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	SelectionPass string `json:"selectionPass,omitempty"` // "primary" or "fallback"
	UsageCount    int    `json:"usageCount"`
	DailyGoal     int    `json:"dailyGoal"`
	Date          string `json:"date"`
	AssignmentID  string `json:"assignmentId,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}

// Reasons for found=false.
const (
	ReasonNoEligiblePhone    = "no_eligible_phone"
	ReasonNoDefaultFranchise = "no_default_franchise"
)
