package models

import (
	"time"

	"github.com/google/uuid"
)

// Evidence is the supporting data attached to an opportunity by whatever
// detected it. Every field is optional; an absent field means "no evidence
// of that kind", not an error.
type Evidence struct {
	Trigger    string   `json:"trigger,omitempty"`
	Source     string   `json:"source,omitempty"`
	Signals    []string `json:"signals,omitempty"`
	DataPoints int      `json:"data_points,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	BasedOn    []string `json:"based_on,omitempty"`
	Drivers    []string `json:"drivers,omitempty"`
	Steps      []string `json:"steps,omitempty"`
	ActionPlan []string `json:"action_plan,omitempty"`
}

type Opportunity struct {
	ID          uuid.UUID  `json:"id"`
	BusinessID  uuid.UUID  `json:"business_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Source      string     `json:"source"` // "reviews", "sales", "operations", "social", "traffic", "ai" or empty
	Evidence    Evidence   `json:"evidence"`
	ImpactScore int        `json:"impact_score"` // 1-10
	EffortScore int        `json:"effort_score"` // 1-10; impact and effort both exactly 5 means "not yet evaluated"
	IsConverted bool       `json:"is_converted"`
	DismissedAt *time.Time `json:"dismissed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// QualityGate is attached by the radar engine when the opportunity is
	// evaluated. It is derived per request, never stored as ground truth.
	QualityGate *QualityGateResult `json:"quality_gate,omitempty"`
}

// GateCheck is the verdict of a single quality gate.
type GateCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// QualityGateResult is the full verdict for one opportunity. Gates always
// holds all six checks in evaluation order, even when earlier ones fail.
type QualityGateResult struct {
	Passed        bool        `json:"passed"`
	Score         int         `json:"score"` // 0-100, share of gates passed
	Gates         []GateCheck `json:"gates"`
	Confidence    int         `json:"confidence"` // 0-100, independent of gate outcomes
	PriorityScore float64     `json:"priority_score"`
}

// BusinessContext is the evaluation context the radar engine receives. It is
// assembled from the business row plus a live active-mission count.
type BusinessContext struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Category            string    `json:"category,omitempty"`
	Country             string    `json:"country,omitempty"`
	CurrentFocus        string    `json:"current_focus,omitempty"` // one of FocusAreas or empty
	ActiveMissionsCount int       `json:"active_missions_count"`
	MaxParallelMissions int       `json:"max_parallel_missions"` // 2 free tier, 10 pro
	IsPro               bool      `json:"is_pro"`
	Integrations        []string  `json:"integrations,omitempty"`
	HasReviews          bool      `json:"has_reviews"`
	HasSales            bool      `json:"has_sales"`
}

// FocusAreas are the valid values for BusinessContext.CurrentFocus.
var FocusAreas = []string{"ventas", "reputacion", "marketing", "operaciones", "equipo", "producto"}
