package radar

import (
	"testing"

	"github.com/google/uuid"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

func gateByName(t *testing.T, result models.QualityGateResult, name string) models.GateCheck {
	t.Helper()
	for _, g := range result.Gates {
		if g.Name == name {
			return g
		}
	}
	t.Fatalf("gate %q not found in result", name)
	return models.GateCheck{}
}

func solidOpportunity() models.Opportunity {
	return models.Opportunity{
		ID:          uuid.New(),
		Title:       "Reducir tiempo de espera del Combo Estudiantil",
		Description: "Los clientes esperan más de 20 minutos en horario pico, afectando la rotación de mesas y las ventas del mediodía.",
		Source:      "operations",
		Evidence: models.Evidence{
			Trigger:    "Tiempo de espera promedio detectado: 22 min",
			Signals:    []string{"encuesta_clientes", "observacion_directa"},
			DataPoints: 30,
		},
		ImpactScore: 8,
		EffortScore: 3,
	}
}

func TestRunQualityGates_AllGatesAlwaysReported(t *testing.T) {
	// Empty opportunity fails several gates; all six must still be present.
	result := RunQualityGates(models.Opportunity{}, models.BusinessContext{}, nil)

	if len(result.Gates) != 6 {
		t.Fatalf("expected 6 gates, got %d", len(result.Gates))
	}
	if result.Passed {
		t.Fatal("expected aggregate fail")
	}

	passedCount := 0
	for _, g := range result.Gates {
		if g.Passed {
			passedCount++
		}
		if g.Reason == "" {
			t.Fatalf("gate %q has empty reason", g.Name)
		}
	}
	expectedScore := passedCount * 100 / 6
	if diff := result.Score - expectedScore; diff < -1 || diff > 1 {
		t.Fatalf("score %d inconsistent with %d passed gates", result.Score, passedCount)
	}
}

func TestRunQualityGates_BlocklistedTitleFailsHardFit(t *testing.T) {
	opp := solidOpportunity()
	opp.Title = "Mejorar Ventas"

	result := RunQualityGates(opp, models.BusinessContext{}, nil)
	fit := gateByName(t, result, "Fit duro")
	if fit.Passed {
		t.Fatalf("expected hard fit failure, got pass with reason %q", fit.Reason)
	}
	if result.Passed {
		t.Fatal("aggregate must fail when a gate fails")
	}
}

func TestRunQualityGates_ShortDescriptionFailsHardFit(t *testing.T) {
	opp := solidOpportunity()
	opp.Description = "Muy corta"

	result := RunQualityGates(opp, models.BusinessContext{}, nil)
	if gateByName(t, result, "Fit duro").Passed {
		t.Fatal("expected hard fit failure for short description")
	}
}

func TestRunQualityGates_DescriptionLengthCountsRunesNotBytes(t *testing.T) {
	opp := solidOpportunity()
	// 25 characters but over 30 bytes once the accents are UTF-8 encoded.
	opp.Description = "áéíóú12345678901234567890"

	result := RunQualityGates(opp, models.BusinessContext{}, nil)
	fit := gateByName(t, result, "Fit duro")
	if fit.Passed {
		t.Fatalf("expected hard fit failure for 25-character description, got pass with reason %q", fit.Reason)
	}
	if fit.Reason != "Descripción demasiado corta" {
		t.Fatalf("unexpected reason %q", fit.Reason)
	}

	// Exactly 30 characters of accented text must pass the length check.
	opp.Description = "áéíóúáéíóú12345678901234567890"
	result = RunQualityGates(opp, models.BusinessContext{}, nil)
	if fit := gateByName(t, result, "Fit duro"); !fit.Passed {
		t.Fatalf("expected pass at 30 characters, got failure with reason %q", fit.Reason)
	}
}

func TestRunQualityGates_TriggerReasonUsesTriggerText(t *testing.T) {
	opp := solidOpportunity()
	result := RunQualityGates(opp, models.BusinessContext{}, nil)

	trigger := gateByName(t, result, "Señal de disparo")
	if !trigger.Passed {
		t.Fatal("expected trigger gate to pass")
	}
	if trigger.Reason != "Tiempo de espera promedio detectado: 22 min" {
		t.Fatalf("unexpected trigger reason: %q", trigger.Reason)
	}
}

func TestRunQualityGates_TriggerFallsBackToSource(t *testing.T) {
	opp := solidOpportunity()
	opp.Evidence.Trigger = ""

	result := RunQualityGates(opp, models.BusinessContext{}, nil)
	trigger := gateByName(t, result, "Señal de disparo")
	if trigger.Reason != "Detectado via operations" {
		t.Fatalf("unexpected fallback reason: %q", trigger.Reason)
	}
}

func TestRunQualityGates_EvidenceThresholdBoundary(t *testing.T) {
	base := models.Opportunity{
		ID:          uuid.New(),
		Title:       "Responder reseñas negativas recientes del local",
		Description: "Tres reseñas de una estrella de la última semana siguen sin respuesta pública.",
		ImpactScore: 7,
		EffortScore: 2,
	}

	base.Evidence = models.Evidence{Signals: []string{"reseña_1", "reseña_2"}}
	result := RunQualityGates(base, models.BusinessContext{}, nil)
	if !gateByName(t, result, "Evidencia mínima").Passed {
		t.Fatal("two signals alone must satisfy the evidence gate")
	}

	base.Evidence = models.Evidence{Signals: []string{"reseña_1"}}
	result = RunQualityGates(base, models.BusinessContext{}, nil)
	if gateByName(t, result, "Evidencia mínima").Passed {
		t.Fatal("a single signal must not satisfy the evidence gate")
	}
}

func TestRunQualityGates_UnscoredSentinelFailsActionability(t *testing.T) {
	opp := solidOpportunity()
	opp.ImpactScore = 5
	opp.EffortScore = 5

	result := RunQualityGates(opp, models.BusinessContext{}, nil)
	action := gateByName(t, result, "Accionabilidad")
	if action.Passed {
		t.Fatal("impact=effort=5 sentinel must fail actionability")
	}
	if action.Reason != "Impacto y esfuerzo no evaluados" {
		t.Fatalf("unexpected reason: %q", action.Reason)
	}

	opp.EffortScore = 4
	result = RunQualityGates(opp, models.BusinessContext{}, nil)
	if !gateByName(t, result, "Accionabilidad").Passed {
		t.Fatal("impact=5 effort=4 must pass actionability")
	}
}

func TestRunQualityGates_DuplicationIsSymmetric(t *testing.T) {
	a := solidOpportunity()
	a.Title = "Mejorar tiempo de espera en cocina"
	b := solidOpportunity()
	b.ID = uuid.New()
	b.Title = "Reducir tiempo de espera cocina"

	batch := []models.Opportunity{a, b}

	resultA := RunQualityGates(a, models.BusinessContext{}, batch)
	resultB := RunQualityGates(b, models.BusinessContext{}, batch)

	if gateByName(t, resultA, "Sin duplicados").Passed {
		t.Fatal("expected a to be flagged as duplicate of b")
	}
	if gateByName(t, resultB, "Sin duplicados").Passed {
		t.Fatal("expected b to be flagged as duplicate of a")
	}
}

func TestRunQualityGates_SelfIsNotADuplicate(t *testing.T) {
	opp := solidOpportunity()
	result := RunQualityGates(opp, models.BusinessContext{}, []models.Opportunity{opp})
	if !gateByName(t, result, "Sin duplicados").Passed {
		t.Fatal("an opportunity must not be flagged as a duplicate of itself")
	}
}

func TestRunQualityGates_CapacityBackpressure(t *testing.T) {
	biz := models.BusinessContext{IsPro: false, ActiveMissionsCount: 2}

	opp := solidOpportunity()
	opp.ImpactScore = 7
	result := RunQualityGates(opp, biz, nil)
	if gateByName(t, result, "Capacidad operativa").Passed {
		t.Fatal("impact 7 at full free-tier capacity must fail")
	}

	opp.ImpactScore = 8
	result = RunQualityGates(opp, biz, nil)
	if !gateByName(t, result, "Capacidad operativa").Passed {
		t.Fatal("impact 8 at full free-tier capacity must pass")
	}
}

func TestRunQualityGates_NearCapacityAdmitsMediumHighImpact(t *testing.T) {
	biz := models.BusinessContext{IsPro: false, ActiveMissionsCount: 1}

	opp := solidOpportunity()
	opp.ImpactScore = 5
	opp.EffortScore = 3
	result := RunQualityGates(opp, biz, nil)
	if gateByName(t, result, "Capacidad operativa").Passed {
		t.Fatal("impact 5 near capacity must fail")
	}

	opp.ImpactScore = 6
	result = RunQualityGates(opp, biz, nil)
	capacity := gateByName(t, result, "Capacidad operativa")
	if !capacity.Passed {
		t.Fatal("impact 6 near capacity must pass")
	}
	if capacity.Reason != "Prioridad media-alta" {
		t.Fatalf("unexpected reason: %q", capacity.Reason)
	}
}

func TestRunQualityGates_ProTierHasMoreHeadroom(t *testing.T) {
	biz := models.BusinessContext{IsPro: true, ActiveMissionsCount: 5}

	opp := solidOpportunity()
	opp.ImpactScore = 4
	result := RunQualityGates(opp, biz, nil)
	capacity := gateByName(t, result, "Capacidad operativa")
	if !capacity.Passed {
		t.Fatal("5 active missions is well under the pro limit of 10")
	}
	if capacity.Reason != "Capacidad disponible" {
		t.Fatalf("unexpected reason: %q", capacity.Reason)
	}
}

func TestRunQualityGates_EndToEndScenario(t *testing.T) {
	biz := models.BusinessContext{
		IsPro:               false,
		ActiveMissionsCount: 0,
		CurrentFocus:        "ventas",
	}
	opp := solidOpportunity()

	result := RunQualityGates(opp, biz, []models.Opportunity{opp})

	if !result.Passed {
		for _, g := range result.Gates {
			if !g.Passed {
				t.Logf("failed gate %s: %s", g.Name, g.Reason)
			}
		}
		t.Fatal("expected all gates to pass")
	}
	if result.Score != 100 {
		t.Fatalf("expected score 100, got %d", result.Score)
	}

	// 40 base + 10 (30 data points) + 10 (2 signals) + 5 (impact-effort gap).
	if result.Confidence != 65 {
		t.Fatalf("expected confidence 65, got %d", result.Confidence)
	}

	// (8 × 0.65 / 3) × 1.3 focus ("ventas" appears in the description) × 1.2
	// quick win, rounded to 2 decimals.
	if result.PriorityScore != 2.7 {
		t.Fatalf("expected priority 2.70, got %v", result.PriorityScore)
	}
}
