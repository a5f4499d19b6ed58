// Package distribution routes leads to franchise phones.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadflow-workers/internal/common/logger"
	"leadflow-workers/internal/common/metrics"
	"leadflow-workers/internal/common/validation"
	"leadflow-workers/internal/models"
)

// Selector picks phones and records assignments.
//
// Select followed by Record is not atomic: two concurrent callers can both see
// the same phone under its goal and push it past the goal by a small margin.
// Claim closes that window when the store provides a Claimer.
type Selector struct {
	registry PhoneRegistry
	usage    UsageCounter
	goals    GoalStore
	claimer  Claimer
	logger   logger.Logger
	now      func() time.Time
}

func NewSelector(registry PhoneRegistry, usage UsageCounter, goals GoalStore, claimer Claimer, log logger.Logger) *Selector {
	return &Selector{
		registry: registry,
		usage:    usage,
		goals:    goals,
		claimer:  claimer,
		logger:   log.WithFields(map[string]interface{}{"component": "phone-selector"}),
		now:      time.Now,
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func checkDate(date string) error {
	if err := validation.ValidateDate(date); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// ResolveFranchise returns franchiseID, or the server's default franchise when
// only a server is given.
func (s *Selector) ResolveFranchise(ctx context.Context, franchiseID, serverID string) (string, error) {
	if id := strings.TrimSpace(franchiseID); id != "" {
		return id, nil
	}
	if strings.TrimSpace(serverID) == "" {
		return "", invalid("franchise id is required")
	}

	id, err := s.registry.DefaultFranchise(ctx, serverID)
	if err != nil {
		return "", fmt.Errorf("default franchise for server %s: %w", serverID, err)
	}
	return id, nil
}

// Select returns the phone the next lead for franchiseID should go to on date.
// A franchise without active phones yields ErrNotFound.
func (s *Selector) Select(ctx context.Context, franchiseID, date string) (Selection, error) {
	if strings.TrimSpace(franchiseID) == "" {
		return Selection{}, invalid("franchise id is required")
	}
	if err := checkDate(date); err != nil {
		return Selection{}, err
	}

	phones, err := s.registry.ListActivePhones(ctx, franchiseID)
	if err != nil {
		return Selection{}, fmt.Errorf("list active phones for franchise %s: %w", franchiseID, err)
	}

	candidates := make([]Candidate, 0, len(phones))
	for _, p := range phones {
		used, err := s.usage.CountOn(ctx, p.ID, date)
		if err != nil {
			return Selection{}, fmt.Errorf("usage of phone %s on %s: %w", p.ID, date, err)
		}
		candidates = append(candidates, Candidate{Phone: p, Usage: used, Goal: s.goals.GoalFor(ctx, p.ID)})
	}

	sel, ok := Choose(candidates)
	if !ok {
		metrics.PhoneSelectionNotFound.Inc()
		return Selection{}, fmt.Errorf("franchise %s on %s: %w", franchiseID, date, ErrNotFound)
	}

	metrics.PhoneSelections.WithLabelValues(sel.Pass).Inc()
	s.logger.Debug("phone selected", map[string]interface{}{
		"franchiseId": franchiseID,
		"phoneId":     sel.Phone.ID,
		"pass":        sel.Pass,
		"usage":       sel.UsageCount,
		"dailyGoal":   sel.DailyGoal,
		"date":        date,
	})
	return sel, nil
}

// RecordResult describes a stored assignment and the phone's standing after it.
type RecordResult struct {
	Assignment    models.Assignment
	Inserted      bool
	UsageCount    int
	DailyGoal     int
	GoalOvershoot bool
}

// Record stores the assignment chosen by an earlier Select. Recording the same
// lead twice returns the first assignment.
func (s *Selector) Record(ctx context.Context, a models.Assignment) (RecordResult, error) {
	switch {
	case strings.TrimSpace(a.LeadID) == "":
		return RecordResult{}, invalid("lead id is required")
	case strings.TrimSpace(a.FranchiseID) == "":
		return RecordResult{}, invalid("franchise id is required")
	case strings.TrimSpace(a.PhoneID) == "":
		return RecordResult{}, invalid("phone id is required")
	}
	if err := checkDate(a.Date); err != nil {
		return RecordResult{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}

	stored, inserted, err := s.usage.Record(ctx, a)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record lead %s on phone %s: %w", a.LeadID, a.PhoneID, err)
	}
	if inserted {
		metrics.AssignmentsRecorded.WithLabelValues("inserted").Inc()
	} else {
		metrics.AssignmentsRecorded.WithLabelValues("duplicate").Inc()
	}

	used, err := s.usage.CountOn(ctx, stored.PhoneID, stored.Date)
	if err != nil {
		return RecordResult{}, fmt.Errorf("usage of phone %s on %s: %w", stored.PhoneID, stored.Date, err)
	}
	goal := s.goals.GoalFor(ctx, stored.PhoneID)

	res := RecordResult{
		Assignment: stored,
		Inserted:   inserted,
		UsageCount: used,
		DailyGoal:  goal.DailyGoal,
	}
	if inserted && GoalOvershoot(a.SelectionPass, used, goal.DailyGoal) {
		res.GoalOvershoot = true
		metrics.GoalOvershoot.Inc()
		s.logger.Warn("primary-pass assignment exceeded daily goal", map[string]interface{}{
			"franchiseId": stored.FranchiseID,
			"phoneId":     stored.PhoneID,
			"leadId":      stored.LeadID,
			"usage":       used,
			"dailyGoal":   goal.DailyGoal,
			"date":        stored.Date,
		})
	}
	return res, nil
}

// Claim selects and records in one serialized step per franchise.
func (s *Selector) Claim(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	if s.claimer == nil {
		return ClaimResult{}, errors.New("atomic claim is not available for this store")
	}
	switch {
	case strings.TrimSpace(req.FranchiseID) == "":
		return ClaimResult{}, invalid("franchise id is required")
	case strings.TrimSpace(req.LeadID) == "":
		return ClaimResult{}, invalid("lead id is required")
	}
	if err := checkDate(req.Date); err != nil {
		return ClaimResult{}, err
	}
	if req.AssignmentID == "" {
		req.AssignmentID = uuid.NewString()
	}

	res, err := s.claimer.Claim(ctx, req, Choose)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.PhoneSelectionNotFound.Inc()
		}
		return ClaimResult{}, fmt.Errorf("claim for lead %s in franchise %s: %w", req.LeadID, req.FranchiseID, err)
	}

	if res.Duplicate {
		metrics.AssignmentsRecorded.WithLabelValues("duplicate").Inc()
	} else {
		metrics.PhoneSelections.WithLabelValues(res.Selection.Pass).Inc()
		metrics.AssignmentsRecorded.WithLabelValues("inserted").Inc()
	}
	return res, nil
}

// MarkConverted flags the lead's assignment as converted. Unknown leads yield ErrNotFound.
func (s *Selector) MarkConverted(ctx context.Context, leadID string) error {
	if strings.TrimSpace(leadID) == "" {
		return invalid("lead id is required")
	}
	ok, err := s.usage.MarkConverted(ctx, leadID)
	if err != nil {
		return fmt.Errorf("mark lead %s converted: %w", leadID, err)
	}
	if !ok {
		return fmt.Errorf("lead %s: %w", leadID, ErrNotFound)
	}
	return nil
}
