package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

// maxHistoryTurns bounds how much conversation is replayed into the prompt.
const maxHistoryTurns = 10

var chatSanitizer = bluemonday.StrictPolicy()

// ChatTurn is one prior exchange in an assistant conversation.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Answer produces an assistant reply grounded in the business context and
// its current radar. User-supplied text is stripped of any HTML before it
// reaches the prompt.
func Answer(ctx context.Context, client Completer, biz models.BusinessContext, published []models.Opportunity, history []ChatTurn, question string) (string, error) {
	question = strings.TrimSpace(chatSanitizer.Sanitize(question))
	if question == "" {
		return "", fmt.Errorf("empty question")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `Eres el asistente de negocio de VistaCEO. Asesoras al dueño de %s,
un negocio gastronómico (%s, %s). Responde en español, directo y accionable.

FOCO ACTUAL: %s
MISIONES ACTIVAS: %d

OPORTUNIDADES DETECTADAS POR EL RADAR:
`, biz.Name, orUnknown(biz.Category), orUnknown(biz.Country), orUnknown(biz.CurrentFocus), biz.ActiveMissionsCount)

	if len(published) == 0 {
		sb.WriteString("(ninguna por ahora)\n")
	}
	for _, opp := range published {
		fmt.Fprintf(&sb, "- %s (impacto %d/10)\n", opp.Title, opp.ImpactScore)
	}

	start := 0
	if len(history) > maxHistoryTurns {
		start = len(history) - maxHistoryTurns
	}
	if start < len(history) {
		sb.WriteString("\nCONVERSACIÓN PREVIA:\n")
		for _, turn := range history[start:] {
			content := strings.TrimSpace(chatSanitizer.Sanitize(turn.Content))
			if content == "" {
				continue
			}
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, content)
		}
	}

	fmt.Fprintf(&sb, "\nPREGUNTA: %s\n\nRESPUESTA:", question)

	return client.GenerateCompletion(ctx, sb.String(), false)
}
