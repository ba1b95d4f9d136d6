package ai

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

func TestParseDetectedOpportunities(t *testing.T) {
	resp := `{
		"opportunities": [
			{
				"title": "Reducir espera en caja los sábados",
				"description": "Varias reseñas mencionan filas largas de más de 15 minutos los sábados al mediodía.",
				"source": "reviews",
				"trigger": "4 reseñas mencionan filas largas",
				"signals": ["reseña_102", "reseña_118"],
				"impact_score": 7,
				"effort_score": 3
			},
			{
				"title": "  ",
				"description": "sin título, debe descartarse",
				"source": "reviews"
			}
		]
	}`

	bizID := uuid.New()
	opps, err := parseDetectedOpportunities(resp, bizID, 24)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity (blank title dropped), got %d", len(opps))
	}

	opp := opps[0]
	if opp.BusinessID != bizID {
		t.Fatal("business id not propagated")
	}
	if opp.Evidence.DataPoints != 24 {
		t.Fatalf("expected signal count as data points, got %d", opp.Evidence.DataPoints)
	}
	if len(opp.Evidence.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(opp.Evidence.Signals))
	}
	if opp.ImpactScore != 7 || opp.EffortScore != 3 {
		t.Fatalf("scores not propagated: %d/%d", opp.ImpactScore, opp.EffortScore)
	}
}

func TestParseDetectedOpportunities_InvalidJSON(t *testing.T) {
	if _, err := parseDetectedOpportunities("ranking: none", uuid.New(), 0); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestNormalizeSource(t *testing.T) {
	if got := normalizeSource(" Reviews "); got != "reviews" {
		t.Fatalf("expected reviews, got %q", got)
	}
	if got := normalizeSource("vibras"); got != "ai" {
		t.Fatalf("hallucinated source must fall back to ai, got %q", got)
	}
	if got := normalizeSource(""); got != "ai" {
		t.Fatalf("empty source must fall back to ai, got %q", got)
	}
}

func TestBuildDetectionPrompt_CapsSignals(t *testing.T) {
	biz := models.BusinessContext{Name: "La Esquina"}
	var signals []models.Signal
	for i := 0; i < maxSignalsPerPrompt+20; i++ {
		signals = append(signals, models.Signal{SourceID: "google-reviews", Kind: "review", Text: "demasiado lento"})
	}

	prompt := buildDetectionPrompt(biz, signals)
	if got := strings.Count(prompt, "demasiado lento"); got != maxSignalsPerPrompt {
		t.Fatalf("expected %d signals in prompt, got %d", maxSignalsPerPrompt, got)
	}
}
