package recordphoneassignment

type Input struct {
	LeadID        string `json:"leadId"`
	FranchiseID   string `json:"franchiseId"`
	PhoneID       string `json:"phoneId"`
	ServerID      string `json:"serverId,omitempty"`
	Date          string `json:"date,omitempty"`
	SelectionPass string `json:"selectionPass,omitempty"`
}

// Output reports Recorded=false when the lead already had an assignment.
// Warning carries the consistency warning code when the daily goal was exceeded.
type Output struct {
	AssignmentID  string `json:"assignmentId"`
	Recorded      bool   `json:"recorded"`
	PhoneID       string `json:"phoneId"`
	UsageCount    int    `json:"usageCount"`
	DailyGoal     int    `json:"dailyGoal"`
	GoalOvershoot bool   `json:"goalOvershoot"`
	Date          string `json:"date"`
	Warning       string `json:"warning,omitempty"`
}
