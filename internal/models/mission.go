package models

import (
	"time"

	"github.com/google/uuid"
)

// Mission is an action plan created from a converted opportunity.
type Mission struct {
	ID            uuid.UUID  `json:"id"`
	BusinessID    uuid.UUID  `json:"business_id"`
	OpportunityID *uuid.UUID `json:"opportunity_id,omitempty"`
	Title         string     `json:"title"`
	Objective     string     `json:"objective"`
	Steps         []string   `json:"steps"`
	Status        string     `json:"status"` // "active", "completed", "abandoned"
	TimeEstimate  string     `json:"time_estimate"`
	Drivers       []string   `json:"drivers"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type Business struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Country      string    `json:"country"`
	CurrentFocus string    `json:"current_focus"`
	IsPro        bool      `json:"is_pro"`
	Integrations []string  `json:"integrations"`
	HasReviews   bool      `json:"has_reviews"`
	HasSales     bool      `json:"has_sales"`
	CreatedAt    time.Time `json:"created_at"`
}

type User struct {
	ID           uuid.UUID `json:"id"`
	BusinessID   uuid.UUID `json:"business_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Signal is a single data point ingested from an external source (a review,
// a sales record, a menu item) that radar detection feeds on.
type Signal struct {
	ID         uuid.UUID `json:"id"`
	BusinessID uuid.UUID `json:"business_id"`
	SourceID   string    `json:"source_id"` // registry id, e.g. "google-reviews"
	Kind       string    `json:"kind"`      // "review", "sale", "menu_item"
	Text       string    `json:"text"`
	Rating     float64   `json:"rating,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// HealthSnapshot is the scored result of a diagnostic questionnaire.
type HealthSnapshot struct {
	BusinessID     uuid.UUID      `json:"business_id"`
	Overall        int            `json:"overall"` // 0-100
	Dimensions     map[string]int `json:"dimensions"`
	WeakestArea    string         `json:"weakest_area"`
	SuggestedFocus string         `json:"suggested_focus"`
	AnsweredAt     time.Time      `json:"answered_at"`
}
