package rollup

// Totals are the raw day facts for one server.
type Totals struct {
	Leads       int
	Conversions int
	Spent       float64
}

type Ratios struct {
	ConversionRate    float64
	CostPerLead       float64
	CostPerConversion float64
}

// ComputeRatios derives the record ratios. Every ratio is 0 when its
// denominator is 0; the conversion rate is a percentage of leads.
func ComputeRatios(t Totals) Ratios {
	var r Ratios
	if t.Leads > 0 {
		r.ConversionRate = float64(t.Conversions) / float64(t.Leads) * 100
		r.CostPerLead = t.Spent / float64(t.Leads)
	}
	if t.Conversions > 0 {
		r.CostPerConversion = t.Spent / float64(t.Conversions)
	}
	return r
}
