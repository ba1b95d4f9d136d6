package radar

import (
	"math"
	"strings"

	"github.com/vistaceo/vistaceo-server/internal/models"
)

// focusKeywords maps a business focus area to the terms that mark an
// opportunity as aligned with it. Matched against title+description+source,
// lower-cased.
var focusKeywords = map[string][]string{
	"ventas":      {"ventas", "sales", "revenue", "ingresos", "ticket"},
	"reputacion":  {"reseña", "reseñas", "reputación", "rating", "estrellas", "reviews"},
	"marketing":   {"marketing", "redes", "social", "instagram", "visibilidad", "alcance"},
	"operaciones": {"operación", "operaciones", "eficiencia", "procesos", "costos", "tiempo"},
	"equipo":      {"equipo", "personal", "staff", "capacitación", "rotación"},
	"producto":    {"producto", "menú", "carta", "platos", "recetas"},
}

// CalculateConfidence scores how well supported an opportunity is by data,
// independently of whether it passes the gates. Base 40, additive bonuses,
// clamped to [0,100].
func CalculateConfidence(opp models.Opportunity, biz models.BusinessContext) int {
	confidence := 40

	switch {
	case opp.Evidence.DataPoints >= 50:
		confidence += 20
	case opp.Evidence.DataPoints >= 20:
		confidence += 10
	}

	switch {
	case len(opp.Evidence.Signals) >= 3:
		confidence += 15
	case len(opp.Evidence.Signals) >= 2:
		confidence += 10
	}

	if len(opp.Evidence.Sources) >= 2 {
		confidence += 10
	}
	if len(biz.Integrations) >= 2 {
		confidence += 10
	}
	if biz.HasReviews {
		confidence += 5
	}
	if biz.HasSales {
		confidence += 5
	}
	if opp.ImpactScore-opp.EffortScore >= 3 {
		confidence += 5
	}

	if confidence > 100 {
		confidence = 100
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

// CalculatePriorityScore computes the ranking heuristic used to order
// passing opportunities: expected impact per unit of effort, boosted when
// the opportunity aligns with the current focus or is a quick win. Never
// comparable across businesses.
func CalculatePriorityScore(opp models.Opportunity, biz models.BusinessContext) float64 {
	probability := float64(CalculateConfidence(opp, biz)) / 100

	effort := opp.EffortScore
	if effort < 1 {
		effort = 1
	}

	score := float64(opp.ImpactScore) * probability / float64(effort)

	if matchesFocus(opp, biz.CurrentFocus) {
		score *= 1.3
	}
	if opp.ImpactScore >= 7 && opp.EffortScore <= 4 {
		score *= 1.2 // quick win
	}

	return math.Round(score*100) / 100
}

func matchesFocus(opp models.Opportunity, focus string) bool {
	keywords, ok := focusKeywords[focus]
	if !ok {
		return false
	}

	text := strings.ToLower(opp.Title + " " + opp.Description + " " + opp.Source)
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
