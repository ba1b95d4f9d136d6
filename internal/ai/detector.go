package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

// maxSignalsPerPrompt keeps the detection prompt within a sane context size.
const maxSignalsPerPrompt = 40

// validSources are the origin tags the detector is allowed to emit.
var validSources = []string{"reviews", "sales", "operations", "social", "traffic", "ai"}

type detectedOpportunity struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Trigger     string   `json:"trigger"`
	Signals     []string `json:"signals"`
	ImpactScore int      `json:"impact_score"`
	EffortScore int      `json:"effort_score"`
}

type detectionPayload struct {
	Opportunities []detectedOpportunity `json:"opportunities"`
}

// DetectOpportunities asks the gateway to turn recent signals into candidate
// opportunities for one business. Candidates come back unranked; the radar
// engine decides what gets published.
func DetectOpportunities(ctx context.Context, client Completer, biz models.BusinessContext, signals []models.Signal) ([]models.Opportunity, error) {
	prompt := buildDetectionPrompt(biz, signals)

	resp, err := client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	return parseDetectedOpportunities(resp, biz.ID, len(signals))
}

func buildDetectionPrompt(biz models.BusinessContext, signals []models.Signal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Eres el radar de oportunidades de VistaCEO para negocios gastronómicos.

NEGOCIO: %s (%s, %s)
FOCO ACTUAL: %s

SEÑALES RECIENTES:
`, biz.Name, orUnknown(biz.Category), orUnknown(biz.Country), orUnknown(biz.CurrentFocus))

	limit := len(signals)
	if limit > maxSignalsPerPrompt {
		limit = maxSignalsPerPrompt
	}
	for _, sig := range signals[:limit] {
		fmt.Fprintf(&sb, "- [%s/%s] %s\n", sig.SourceID, sig.Kind, sig.Text)
	}

	sb.WriteString(`
Detecta oportunidades de mejora CONCRETAS y verificables a partir de las señales.
Evita títulos genéricos como "mejorar ventas" o "aumentar clientes".

Responde SOLO con JSON en este formato:
{
  "opportunities": [
    {
      "title": "...",
      "description": "... (mínimo 30 caracteres, con el dato que la sustenta)",
      "source": "reviews|sales|operations|social|traffic|ai",
      "trigger": "qué señal concreta la disparó",
      "signals": ["señal_1", "señal_2"],
      "impact_score": 1-10,
      "effort_score": 1-10
    }
  ]
}`)
	return sb.String()
}

func parseDetectedOpportunities(resp string, businessID uuid.UUID, dataPoints int) ([]models.Opportunity, error) {
	var payload detectionPayload
	if err := json.Unmarshal([]byte(resp), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse detection json: %w. Response: %s", err, resp)
	}

	now := time.Now().UTC()
	opps := make([]models.Opportunity, 0, len(payload.Opportunities))
	for _, d := range payload.Opportunities {
		if strings.TrimSpace(d.Title) == "" {
			continue
		}
		opps = append(opps, models.Opportunity{
			ID:          uuid.New(),
			BusinessID:  businessID,
			Title:       strings.TrimSpace(d.Title),
			Description: strings.TrimSpace(d.Description),
			Source:      normalizeSource(d.Source),
			Evidence: models.Evidence{
				Trigger:    strings.TrimSpace(d.Trigger),
				Signals:    d.Signals,
				DataPoints: dataPoints,
			},
			ImpactScore: d.ImpactScore,
			EffortScore: d.EffortScore,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return opps, nil
}

// normalizeSource maps model output onto the known source tags, dropping
// hallucinated values so scoring heuristics stay predictable.
func normalizeSource(source string) string {
	source = strings.ToLower(strings.TrimSpace(source))
	for _, valid := range validSources {
		if source == valid {
			return source
		}
	}
	return "ai"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "sin definir"
	}
	return s
}
