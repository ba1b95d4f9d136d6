package radar

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

// distinctTitles share no three long tokens pairwise, keeping the
// duplication gate quiet across generated batches.
var distinctTitles = []string{
	"Responder reseñas negativas pendientes",
	"Acelerar despacho en horario pico",
	"Lanzar promoción para turno valle",
	"Renovar fotos del menú digital",
	"Capacitar anfitriones del salón",
	"Negociar insumos con proveedor mayorista",
	"Activar recordatorios de reservas",
	"Medir mermas de cocina semanales",
	"Publicar especiales en redes locales",
	"Ajustar precios del delivery nocturno",
}

// passingOpportunity builds an opportunity that clears all six gates on its
// own.
func passingOpportunity(n, impact, effort int) models.Opportunity {
	return models.Opportunity{
		ID:          uuid.New(),
		Title:       distinctTitles[n%len(distinctTitles)],
		Description: fmt.Sprintf("Descripción suficientemente larga con detalle concreto del caso %d.", n),
		Source:      "reviews",
		Evidence: models.Evidence{
			Trigger: fmt.Sprintf("Señal %d", n),
			Signals: []string{"s1", "s2"},
		},
		ImpactScore: impact,
		EffortScore: effort,
	}
}

func TestFilterAndRank_PublishedSortedByPriorityDesc(t *testing.T) {
	opps := []models.Opportunity{
		passingOpportunity(1, 4, 6),
		passingOpportunity(2, 9, 2),
		passingOpportunity(3, 7, 3),
	}
	biz := models.BusinessContext{}

	ranked := FilterAndRankOpportunities(opps, biz, 8)

	if len(ranked.Published) != 3 {
		t.Fatalf("expected 3 published, got %d (candidates: %d)", len(ranked.Published), len(ranked.Candidates))
	}
	for i := 1; i < len(ranked.Published); i++ {
		prev := ranked.Published[i-1].QualityGate.PriorityScore
		cur := ranked.Published[i].QualityGate.PriorityScore
		if prev < cur {
			t.Fatalf("published not sorted: %v before %v", prev, cur)
		}
	}
	if ranked.Published[0].ImpactScore != 9 {
		t.Fatalf("expected the 9/2 opportunity first, got impact %d", ranked.Published[0].ImpactScore)
	}
}

func TestFilterAndRank_WeeklyLimitCapsPublished(t *testing.T) {
	var opps []models.Opportunity
	for i := 0; i < 5; i++ {
		opps = append(opps, passingOpportunity(i, 6+i%3, 3))
	}

	ranked := FilterAndRankOpportunities(opps, models.BusinessContext{}, 2)

	if len(ranked.Published) != 2 {
		t.Fatalf("expected 2 published, got %d", len(ranked.Published))
	}
	if len(ranked.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(ranked.Candidates))
	}
	for _, c := range ranked.Candidates {
		if c.QualityGate == nil {
			t.Fatal("candidates must carry their quality gate result")
		}
		if !c.QualityGate.Passed {
			t.Fatal("queued candidates beyond the cap should still be passing items")
		}
	}
}

func TestFilterAndRank_FailedItemsGoAfterQueued(t *testing.T) {
	good := passingOpportunity(1, 8, 3)
	bad := passingOpportunity(2, 8, 3)
	bad.Title = "Mejorar ventas" // blocklisted

	ranked := FilterAndRankOpportunities([]models.Opportunity{bad, good}, models.BusinessContext{}, 8)

	if len(ranked.Published) != 1 || ranked.Published[0].ID != good.ID {
		t.Fatal("expected only the clean opportunity to be published")
	}
	if len(ranked.Candidates) != 1 || ranked.Candidates[0].ID != bad.ID {
		t.Fatal("expected the failed opportunity among candidates")
	}
	if ranked.Candidates[0].QualityGate.Passed {
		t.Fatal("failed candidate must carry a failing gate result")
	}
}

func TestFilterAndRank_TiesPreserveInputOrder(t *testing.T) {
	a := passingOpportunity(1, 6, 3)
	b := passingOpportunity(2, 6, 3)

	ranked := FilterAndRankOpportunities([]models.Opportunity{a, b}, models.BusinessContext{}, 8)

	if len(ranked.Published) != 2 {
		t.Fatalf("expected 2 published, got %d", len(ranked.Published))
	}
	if ranked.Published[0].ID != a.ID || ranked.Published[1].ID != b.ID {
		t.Fatal("equal priority scores must keep input order")
	}
}

func TestFilterAndRank_BatchGlobalDuplicationKnocksOutBothTwins(t *testing.T) {
	a := passingOpportunity(1, 8, 3)
	a.Title = "Mejorar tiempo de espera en cocina"
	b := passingOpportunity(2, 8, 3)
	b.Title = "Reducir tiempo de espera cocina"

	ranked := FilterAndRankOpportunities([]models.Opportunity{a, b}, models.BusinessContext{}, 8)

	if len(ranked.Published) != 0 {
		t.Fatalf("near-identical same-batch candidates must both fail, published=%d", len(ranked.Published))
	}
	if len(ranked.Candidates) != 2 {
		t.Fatalf("expected both twins among candidates, got %d", len(ranked.Candidates))
	}
}

func TestFilterAndRank_ZeroLimitUsesDefault(t *testing.T) {
	var opps []models.Opportunity
	for i := 0; i < 10; i++ {
		opps = append(opps, passingOpportunity(i, 7, 3))
	}

	ranked := FilterAndRankOpportunities(opps, models.BusinessContext{}, 0)
	if len(ranked.Published) != DefaultWeeklyLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultWeeklyLimit, len(ranked.Published))
	}
}

func TestFilterAndRank_EmptyInput(t *testing.T) {
	ranked := FilterAndRankOpportunities(nil, models.BusinessContext{}, 8)
	if len(ranked.Published) != 0 || len(ranked.Candidates) != 0 {
		t.Fatal("empty input must produce empty partitions")
	}
}
