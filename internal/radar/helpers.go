package radar

import (
	"strings"

	"github.com/vistaceo/vistaceo-server/internal/models"
)

// driverKeywords maps a business driver label to the terms that imply it.
// Evaluated in fixed order so inferred driver lists are deterministic.
var driverKeywords = []struct {
	Label    string
	Keywords []string
}{
	{"Reputación", []string{"reseña", "rating", "opinión"}},
	{"Ventas", []string{"venta", "revenue", "ticket"}},
	{"Marketing", []string{"marketing", "social", "visibilidad"}},
	{"Operaciones", []string{"operación", "tiempo", "eficiencia"}},
	{"Equipo", []string{"equipo", "personal", "staff"}},
	{"Producto", []string{"producto", "menú", "carta"}},
	{"Retención", []string{"cliente", "retención", "fidelización"}},
}

// TimeEstimate maps an effort score to a human execution-time range.
func TimeEstimate(effortScore int) string {
	switch {
	case effortScore <= 2:
		return "30 min - 1 hora"
	case effortScore <= 4:
		return "1-2 horas"
	case effortScore <= 6:
		return "2-4 horas"
	case effortScore <= 8:
		return "1-3 días"
	default:
		return "1-2 semanas"
	}
}

// ImpactedDrivers returns the business drivers an opportunity touches. When
// the detector already tagged drivers they are returned verbatim; otherwise
// they are inferred from the opportunity text, falling back to "General".
func ImpactedDrivers(opp models.Opportunity) []string {
	if len(opp.Evidence.Drivers) > 0 {
		return opp.Evidence.Drivers
	}

	text := strings.ToLower(opp.Source + " " + opp.Title + " " + opp.Description)

	var drivers []string
	for _, group := range driverKeywords {
		for _, kw := range group.Keywords {
			if strings.Contains(text, kw) {
				drivers = append(drivers, group.Label)
				break
			}
		}
	}

	if len(drivers) == 0 {
		return []string{"General"}
	}
	return drivers
}
