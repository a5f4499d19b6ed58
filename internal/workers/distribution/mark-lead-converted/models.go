package markleadconverted

type Input struct {
	LeadID string `json:"leadId"`
}

type Output struct {
	LeadID    string `json:"leadId"`
	Converted bool   `json:"converted"`
}
