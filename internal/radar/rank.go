package radar

import (
	"sort"

	"github.com/vistaceo/vistaceo-server/internal/models"
)

// DefaultWeeklyLimit caps how many passing opportunities are surfaced per
// ranking batch.
const DefaultWeeklyLimit = 8

// RankedRadar is the output of a full ranking pass. Published holds at most
// weeklyLimit passing opportunities in descending priority order; Candidates
// holds queued passing items beyond the cap followed by every failed item.
type RankedRadar struct {
	Published  []models.Opportunity `json:"published"`
	Candidates []models.Opportunity `json:"candidates"`
}

// FilterAndRankOpportunities runs the quality gates over the whole batch and
// partitions it. The duplication universe is the entire input list, so two
// near-identical candidates submitted together will flag each other. A
// weeklyLimit of 0 or less falls back to DefaultWeeklyLimit.
func FilterAndRankOpportunities(opps []models.Opportunity, biz models.BusinessContext, weeklyLimit int) RankedRadar {
	if weeklyLimit <= 0 {
		weeklyLimit = DefaultWeeklyLimit
	}

	passed := make([]models.Opportunity, 0, len(opps))
	failed := make([]models.Opportunity, 0)

	for _, opp := range opps {
		result := RunQualityGates(opp, biz, opps)
		opp.QualityGate = &result
		if result.Passed {
			passed = append(passed, opp)
		} else {
			failed = append(failed, opp)
		}
	}

	// Stable: ties keep their original relative order.
	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].QualityGate.PriorityScore > passed[j].QualityGate.PriorityScore
	})

	cut := weeklyLimit
	if cut > len(passed) {
		cut = len(passed)
	}

	published := passed[:cut]
	candidates := append(passed[cut:], failed...)

	return RankedRadar{Published: published, Candidates: candidates}
}
