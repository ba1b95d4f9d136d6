package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/vistaceo/vistaceo-server/internal/db"
	"github.com/vistaceo/vistaceo-server/internal/radar"
)

// radar_preview prints the ranked radar for a business exactly as the API
// would publish it, including the gate verdicts for queued candidates.
func main() {
	businessFlag := flag.String("business", "", "business UUID")
	limitFlag := flag.Int("limit", 0, "weekly publish limit (0 = default)")
	flag.Parse()

	businessID, err := uuid.Parse(*businessFlag)
	if err != nil {
		log.Fatalf("-business must be a valid UUID: %v", err)
	}

	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	store := db.NewStore(pool)

	biz, err := store.GetBusinessContext(ctx, businessID)
	if err != nil {
		log.Fatal(err)
	}
	opps, err := store.ListActiveOpportunities(ctx, businessID)
	if err != nil {
		log.Fatal(err)
	}

	ranked := radar.FilterAndRankOpportunities(opps, *biz, *limitFlag)

	fmt.Printf("Radar for %s (focus: %s, active missions: %d/%d)\n\n",
		biz.Name, biz.CurrentFocus, biz.ActiveMissionsCount, biz.MaxParallelMissions)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"", "Title", "Priority", "Confidence", "Impact", "Effort", "Estimate"})
	for i, opp := range ranked.Published {
		t.AppendRow(table.Row{
			i + 1,
			opp.Title,
			fmt.Sprintf("%.2f", opp.QualityGate.PriorityScore),
			opp.QualityGate.Confidence,
			opp.ImpactScore,
			opp.EffortScore,
			radar.TimeEstimate(opp.EffortScore),
		})
	}
	t.Render()

	if len(ranked.Candidates) == 0 {
		return
	}

	fmt.Println("\nCandidates held back:")
	ct := table.NewWriter()
	ct.SetOutputMirror(os.Stdout)
	ct.AppendHeader(table.Row{"Title", "Score", "First failed gate"})
	for _, opp := range ranked.Candidates {
		failed := "-"
		for _, gate := range opp.QualityGate.Gates {
			if !gate.Passed {
				failed = gate.Name + ": " + gate.Reason
				break
			}
		}
		ct.AppendRow(table.Row{opp.Title, opp.QualityGate.Score, failed})
	}
	ct.Render()
}
