package notifyoperators

import "leadflow-workers/internal/models"

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

var severityRank = map[string]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type Input struct {
	AlertType   string                 `json:"alertType"`
	Severity    string                 `json:"severity"`
	FranchiseID string                 `json:"franchiseId,omitempty"`
	ServerID    string                 `json:"serverId,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"`
}

type template struct {
	subject string
	body    string
}

var templates = map[string]template{
	models.AlertNoEligiblePhone: {
		subject: "[{{severity}}] No eligible phone for franchise {{franchiseId}}",
		body:    "Lead routing found no active phone for franchise {{franchiseId}} (server {{serverId}}). {{details}}",
	},
	models.AlertGoalOvershoot: {
		subject: "[{{severity}}] Phone over daily goal in franchise {{franchiseId}}",
		body:    "A primary-pass assignment pushed a phone of franchise {{franchiseId}} above its daily goal. {{details}}",
	},
	models.AlertRollupFailed: {
		subject: "[{{severity}}] Daily rollup failed",
		body:    "The daily rollup failed for server {{serverId}}. {{details}}",
	},
	models.AlertRollupCompleted: {
		subject: "Daily rollup completed",
		body:    "The daily rollup completed. {{details}}",
	},
}
