// pkg/registry/schema.go
package registry

import "time"

// ActivityRegistry lists every task type the worker manager can serve.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one task type: its job variable contract and the
// timeout and retry budget its worker is deployed with.
type Activity struct {
	ID                   string                 `json:"id"`
	TaskType             string                 `json:"taskType"`
	Category             string                 `json:"category"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Version              string                 `json:"version"`
	ImplementationStatus string                 `json:"implementationStatus"`
	Timeout              string                 `json:"timeout,omitempty"`
	Retries              int                    `json:"retries"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema,omitempty"`
}

// TimeoutDuration parses Timeout. An empty timeout yields fallback.
func (a Activity) TimeoutDuration(fallback time.Duration) (time.Duration, error) {
	if a.Timeout == "" {
		return fallback, nil
	}
	return time.ParseDuration(a.Timeout)
}
