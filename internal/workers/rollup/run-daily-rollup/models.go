package rundailyrollup

type Input struct {
	ServerID string `json:"serverId"`
	Date     string `json:"date,omitempty"`
}

type Output struct {
	DailyRecordID     string  `json:"dailyRecordId"`
	ServerID          string  `json:"serverId"`
	Date              string  `json:"date"`
	TotalLeads        int     `json:"totalLeads"`
	TotalConversions  int     `json:"totalConversions"`
	TotalSpent        float64 `json:"totalSpent"`
	ConversionRate    float64 `json:"conversionRate"`
	CostPerLead       float64 `json:"costPerLead"`
	CostPerConversion float64 `json:"costPerConversion"`
	Finalized         bool    `json:"finalized"`
}
