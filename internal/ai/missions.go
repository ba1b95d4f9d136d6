package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vistaceo/vistaceo-server/internal/models"
	"github.com/vistaceo/vistaceo-server/internal/radar"
)

type missionPayload struct {
	Title     string   `json:"title"`
	Objective string   `json:"objective"`
	Steps     []string `json:"steps"`
}

// GenerateMissionPlan turns a converted opportunity into an executable
// mission. The gateway drafts the plan; time estimate and impacted drivers
// come from the deterministic radar helpers, not from the model.
func GenerateMissionPlan(ctx context.Context, client Completer, biz models.BusinessContext, opp models.Opportunity) (*models.Mission, error) {
	prompt := buildMissionPrompt(biz, opp)

	resp, err := client.GenerateCompletion(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	var payload missionPayload
	if err := json.Unmarshal([]byte(resp), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse mission json: %w. Response: %s", err, resp)
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		title = opp.Title
	}

	steps := payload.Steps
	if len(steps) == 0 {
		// The opportunity may already carry an action plan from detection.
		steps = opp.Evidence.Steps
		if len(steps) == 0 {
			steps = opp.Evidence.ActionPlan
		}
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("mission plan came back without steps for opportunity %s", opp.ID)
	}

	oppID := opp.ID
	return &models.Mission{
		ID:            uuid.New(),
		BusinessID:    biz.ID,
		OpportunityID: &oppID,
		Title:         title,
		Objective:     strings.TrimSpace(payload.Objective),
		Steps:         steps,
		Status:        "active",
		TimeEstimate:  radar.TimeEstimate(opp.EffortScore),
		Drivers:       radar.ImpactedDrivers(opp),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func buildMissionPrompt(biz models.BusinessContext, opp models.Opportunity) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `Eres el planificador de misiones de VistaCEO.

NEGOCIO: %s (%s)
OPORTUNIDAD: %s
DETALLE: %s
IMPACTO: %d/10  ESFUERZO: %d/10
`, biz.Name, orUnknown(biz.Category), opp.Title, opp.Description, opp.ImpactScore, opp.EffortScore)

	if opp.Evidence.Trigger != "" {
		fmt.Fprintf(&sb, "SEÑAL: %s\n", opp.Evidence.Trigger)
	}

	sb.WriteString(`
Convierte la oportunidad en una misión ejecutable por el dueño del negocio
esta misma semana. Entre 3 y 6 pasos, cada uno empezando con un verbo.

Responde SOLO con JSON:
{
  "title": "...",
  "objective": "qué resultado medible se busca",
  "steps": ["paso 1", "paso 2", "paso 3"]
}`)
	return sb.String()
}
