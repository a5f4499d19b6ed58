// internal/models/notification.go
package models

// Alert types raised to operators.
const (
	AlertNoEligiblePhone = "no_eligible_phone"
	AlertGoalOvershoot   = "goal_overshoot"
	AlertRollupFailed    = "rollup_failed"
	AlertRollupCompleted = "rollup_completed"
)

type Notification struct {
	ID          string                 `json:"id"`
	AlertType   string                 `json:"alertType"`
	Severity    string                 `json:"severity"` // "low", "medium", "high", "critical"
	Channels    []string               `json:"channels"` // "email", "sms"
	Status      string                 `json:"status"`   // "sent", "partial", "disabled"
	FranchiseID string                 `json:"franchiseId,omitempty"`
	ServerID    string                 `json:"serverId,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	SentAt      string                 `json:"sentAt"`
}
