// Package health scores diagnostic questionnaires into a business health
// snapshot: one 0-100 score per dimension, an overall score, and a suggested
// focus area derived from the weakest dimension.
package health

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

// Dimensions are the scored business areas, in presentation order. They map
// 1:1 onto the focus areas the radar engine understands.
var Dimensions = []string{"ventas", "reputacion", "marketing", "operaciones", "equipo", "producto"}

// Answer is a single questionnaire response on a 1-5 scale.
type Answer struct {
	Dimension string `json:"dimension"`
	Value     int    `json:"value"`
}

// Score aggregates questionnaire answers into a HealthSnapshot. Answers for
// unknown dimensions are ignored; a dimension with no answers scores 0 and
// is excluded from the overall average so a partial questionnaire does not
// read as a failing business.
func Score(businessID uuid.UUID, answers []Answer, now time.Time) models.HealthSnapshot {
	sums := make(map[string]int)
	counts := make(map[string]int)
	known := make(map[string]bool, len(Dimensions))
	for _, d := range Dimensions {
		known[d] = true
	}

	for _, a := range answers {
		if !known[a.Dimension] {
			continue
		}
		v := a.Value
		if v < 1 {
			v = 1
		}
		if v > 5 {
			v = 5
		}
		sums[a.Dimension] += v
		counts[a.Dimension]++
	}

	dims := make(map[string]int, len(Dimensions))
	total := 0
	answered := 0
	weakest := ""
	weakestScore := 101

	for _, d := range Dimensions {
		if counts[d] == 0 {
			dims[d] = 0
			continue
		}
		// 1-5 average rescaled to 0-100.
		avg := float64(sums[d]) / float64(counts[d])
		score := int(math.Round((avg - 1) / 4 * 100))
		dims[d] = score
		total += score
		answered++
		if score < weakestScore {
			weakestScore = score
			weakest = d
		}
	}

	overall := 0
	if answered > 0 {
		overall = int(math.Round(float64(total) / float64(answered)))
	}

	return models.HealthSnapshot{
		BusinessID:     businessID,
		Overall:        overall,
		Dimensions:     dims,
		WeakestArea:    weakest,
		SuggestedFocus: weakest,
		AnsweredAt:     now.UTC(),
	}
}
