// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

var taskTypePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// TaskTypes returns the registered task types in file order.
func (r *ActivityRegistry) TaskTypes() []string {
	out := make([]string, 0, len(r.Activities))
	for _, a := range r.Activities {
		out = append(out, a.TaskType)
	}
	return out
}

// Validate reports structural problems: duplicate or malformed task types,
// unparsable timeouts and missing input schemas.
func (r *ActivityRegistry) Validate() []error {
	var errs []error
	seen := make(map[string]bool)

	for _, a := range r.Activities {
		if !taskTypePattern.MatchString(a.TaskType) {
			errs = append(errs, fmt.Errorf("activity %q: task type %q must be kebab-case", a.ID, a.TaskType))
		}
		if seen[a.TaskType] {
			errs = append(errs, fmt.Errorf("activity %q: duplicate task type %q", a.ID, a.TaskType))
		}
		seen[a.TaskType] = true

		if d, err := a.TimeoutDuration(time.Second); err != nil {
			errs = append(errs, fmt.Errorf("activity %q: timeout %q: %w", a.ID, a.Timeout, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("activity %q: timeout must be positive", a.ID))
		}
		if a.InputSchema == nil {
			errs = append(errs, fmt.Errorf("activity %q: inputSchema is required", a.ID))
		}
		if a.Retries < 0 {
			errs = append(errs, fmt.Errorf("activity %q: retries must not be negative", a.ID))
		}
	}
	return errs
}
