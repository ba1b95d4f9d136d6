package radar

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/vistaceo/vistaceo-server/internal/models"
)

// blockedPhrases are generic, unfalsifiable suggestion titles. A title that
// equals or contains any of them fails the hard-fit gate — matched against
// the lower-cased title only, never the description.
var blockedPhrases = []string{
	"mejorar ventas",
	"aumentar clientes",
	"optimizar operaciones",
	"mejorar servicio",
	"incrementar ingresos",
	"aumentar ganancias",
	"mejorar negocio",
	"hacer crecer",
	"optimizar procesos",
	"mejorar rendimiento",
	"aumentar ventas",
	"mejorar calidad",
}

const minDescriptionLen = 30

// RunQualityGates evaluates one opportunity against the six radar quality
// gates. All gates run unconditionally — a failing gate never short-circuits
// the rest, so the caller always gets all six reasons. existing is the
// duplication universe: every opportunity under consideration in the same
// batch, historical or not.
func RunQualityGates(opp models.Opportunity, biz models.BusinessContext, existing []models.Opportunity) models.QualityGateResult {
	gates := []models.GateCheck{
		gateHardFit(opp),
		gateTriggerSignal(opp),
		gateMinimumEvidence(opp),
		gateActionability(opp),
		gateNoDuplication(opp, existing),
		gateOperationalCapacity(opp, biz),
	}

	passedCount := 0
	for _, g := range gates {
		if g.Passed {
			passedCount++
		}
	}

	return models.QualityGateResult{
		Passed:        passedCount == len(gates),
		Score:         int(math.Round(float64(passedCount) / float64(len(gates)) * 100)),
		Gates:         gates,
		Confidence:    CalculateConfidence(opp, biz),
		PriorityScore: CalculatePriorityScore(opp, biz),
	}
}

// Gate 1: reject vague or underspecified suggestions.
func gateHardFit(opp models.Opportunity) models.GateCheck {
	check := models.GateCheck{Name: "Fit duro"}

	if strings.TrimSpace(opp.Title) == "" || strings.TrimSpace(opp.Description) == "" {
		check.Reason = "Falta título o descripción"
		return check
	}
	if utf8.RuneCountInString(opp.Description) < minDescriptionLen {
		check.Reason = "Descripción demasiado corta"
		return check
	}

	title := strings.ToLower(opp.Title)
	for _, phrase := range blockedPhrases {
		if strings.Contains(title, phrase) {
			check.Reason = "Título genérico: " + phrase
			return check
		}
	}

	check.Passed = true
	check.Reason = "Específica y verificable"
	return check
}

// Gate 2: the opportunity must point at something that actually fired.
func gateTriggerSignal(opp models.Opportunity) models.GateCheck {
	check := models.GateCheck{Name: "Señal de disparo"}

	hasSignal := opp.Evidence.Trigger != "" ||
		opp.Evidence.Source != "" ||
		opp.Source != "" ||
		len(opp.Evidence.Signals) > 0

	if !hasSignal {
		check.Reason = "Sin señal de origen identificable"
		return check
	}

	check.Passed = true
	if opp.Evidence.Trigger != "" {
		check.Reason = opp.Evidence.Trigger
		return check
	}
	source := opp.Source
	if source == "" {
		source = opp.Evidence.Source
	}
	if source == "" {
		source = "diagnóstico"
	}
	check.Reason = "Detectado via " + source
	return check
}

// Gate 3: weighted evidence count must reach 2.
func gateMinimumEvidence(opp models.Opportunity) models.GateCheck {
	check := models.GateCheck{Name: "Evidencia mínima"}

	count := len(opp.Evidence.Signals)
	if opp.Evidence.DataPoints > 0 {
		count++
	}
	count += len(opp.Evidence.Sources)
	count += len(opp.Evidence.BasedOn)
	if opp.Source != "" {
		count++
	}

	check.Passed = count >= 2
	if check.Passed {
		check.Reason = fmt.Sprintf("%d señales de evidencia", count)
	} else {
		check.Reason = fmt.Sprintf("Solo %d señal(es) de evidencia", count)
	}
	return check
}

// Gate 4: an explicit action plan is optional, but an unscored opportunity
// (impact and effort both at the 5,5 sentinel) is not actionable yet.
func gateActionability(opp models.Opportunity) models.GateCheck {
	check := models.GateCheck{Name: "Accionabilidad"}

	if opp.ImpactScore == 5 && opp.EffortScore == 5 {
		check.Reason = "Impacto y esfuerzo no evaluados"
		return check
	}

	check.Passed = true
	if len(opp.Evidence.Steps) > 0 || len(opp.Evidence.ActionPlan) > 0 {
		check.Reason = "Plan de acción definido"
	} else {
		check.Reason = "Convertible a misión"
	}
	return check
}

// Gate 5: bag-of-words overlap against every other opportunity in the batch.
// Two titles sharing 3 or more tokens longer than 3 chars are duplicates.
// Deliberately a cheap heuristic; keep it that way.
func gateNoDuplication(opp models.Opportunity, existing []models.Opportunity) models.GateCheck {
	check := models.GateCheck{Name: "Sin duplicados"}

	for _, other := range existing {
		if other.ID == opp.ID {
			continue
		}
		if sharedTitleTokens(opp.Title, other.Title) >= 3 {
			check.Reason = "Similar a otra oportunidad existente"
			return check
		}
	}

	check.Passed = true
	check.Reason = "Sin duplicados detectados"
	return check
}

func sharedTitleTokens(a, b string) int {
	tokensA := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(a)) {
		if len(tok) > 3 {
			tokensA[tok] = true
		}
	}

	shared := 0
	seen := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(b)) {
		if len(tok) > 3 && tokensA[tok] && !seen[tok] {
			shared++
			seen[tok] = true
		}
	}
	return shared
}

// Gate 6: backpressure against the mission backlog. As active missions
// approach the tier limit, only increasingly high-impact opportunities are
// admitted.
func gateOperationalCapacity(opp models.Opportunity, biz models.BusinessContext) models.GateCheck {
	check := models.GateCheck{Name: "Capacidad operativa"}

	active := biz.ActiveMissionsCount
	max := 2
	if biz.IsPro {
		max = 10
	}

	switch {
	case active >= max:
		if opp.ImpactScore >= 8 {
			check.Passed = true
			check.Reason = "Alta prioridad - misiones al máximo"
		} else {
			check.Reason = fmt.Sprintf("Ya tienes %d misiones activas", active)
		}
	case active >= max-1:
		if opp.ImpactScore >= 6 {
			check.Passed = true
			check.Reason = "Prioridad media-alta"
		} else {
			check.Reason = "Mejor enfocarse en misiones actuales"
		}
	default:
		check.Passed = true
		check.Reason = "Capacidad disponible"
	}
	return check
}
