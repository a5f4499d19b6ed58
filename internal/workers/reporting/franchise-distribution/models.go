package franchisedistribution

import "leadflow-workers/internal/models"

type Input struct {
	Date string `json:"date,omitempty"`
}

// Output is the report itself so processes can read franchises[] directly.
type Output = models.DistributionReport
