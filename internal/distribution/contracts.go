package distribution

import (
	"context"

	"leadflow-workers/internal/models"
)

// GoalStore resolves a phone's quota. It never fails: unknown phones,
// unreadable rows and store outages all resolve to the default goal.
type GoalStore interface {
	GoalFor(ctx context.Context, phoneID string) models.Goal
}

// PhoneRegistry lists routing destinations.
type PhoneRegistry interface {
	// ListActivePhones returns active phones ordered by order_number, then id.
	// The list is recomputed on every call.
	ListActivePhones(ctx context.Context, franchiseID string) ([]models.Phone, error)
	// DefaultFranchise returns the server's default franchise, or ErrNotFound.
	DefaultFranchise(ctx context.Context, serverID string) (string, error)
}

// UsageCounter derives usage from the assignment log.
type UsageCounter interface {
	CountOn(ctx context.Context, phoneID, date string) (int, error)
	// Record stores an assignment once per lead. A repeated lead returns the
	// stored assignment and inserted=false.
	Record(ctx context.Context, a models.Assignment) (stored models.Assignment, inserted bool, err error)
	MarkConverted(ctx context.Context, leadID string) (bool, error)
}

// Claimer runs selection and recording as one unit, serialized per franchise.
type Claimer interface {
	Claim(ctx context.Context, req ClaimRequest, choose ChooseFunc) (ClaimResult, error)
}

// ChooseFunc is the selection policy handed to a Claimer.
type ChooseFunc func([]Candidate) (Selection, bool)

type ClaimRequest struct {
	FranchiseID  string
	LeadID       string
	ServerID     string
	Date         string
	AssignmentID string
}

type ClaimResult struct {
	Selection  Selection         `json:"selection"`
	Assignment models.Assignment `json:"assignment"`
	// Duplicate is set when the lead already had an assignment; Selection then
	// describes the stored phone and no new row was written.
	Duplicate bool `json:"duplicate"`
}
