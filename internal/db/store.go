package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/vistaceo/vistaceo-server/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const opportunityCols = `id, business_id, title, description, source, evidence,
	impact_score, effort_score, is_converted, dismissed_at, created_at, updated_at`

func scanOpportunity(scan func(dest ...interface{}) error) (models.Opportunity, error) {
	var o models.Opportunity
	var description, source *string
	var evidenceRaw []byte

	err := scan(
		&o.ID, &o.BusinessID, &o.Title, &description, &source, &evidenceRaw,
		&o.ImpactScore, &o.EffortScore, &o.IsConverted, &o.DismissedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}

	if description != nil {
		o.Description = *description
	}
	if source != nil {
		o.Source = *source
	}
	if len(evidenceRaw) > 0 {
		_ = json.Unmarshal(evidenceRaw, &o.Evidence)
	}

	return o, nil
}

// ListActiveOpportunities returns every non-dismissed, non-converted
// opportunity for a business, oldest first. This is the candidate universe
// the radar engine ranks.
func (s *Store) ListActiveOpportunities(ctx context.Context, businessID uuid.UUID) ([]models.Opportunity, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM opportunities
		WHERE business_id = $1 AND dismissed_at IS NULL AND is_converted = FALSE
		ORDER BY created_at ASC
	`, opportunityCols)

	rows, err := s.pool.Query(ctx, sql, businessID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if opps == nil {
		opps = []models.Opportunity{}
	}
	return opps, nil
}

func (s *Store) GetOpportunity(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	sql := fmt.Sprintf("SELECT %s FROM opportunities WHERE id = $1", opportunityCols)
	row := s.pool.QueryRow(ctx, sql, id)

	o, err := scanOpportunity(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity failed: %w", err)
	}
	return &o, nil
}

func (s *Store) InsertOpportunity(ctx context.Context, o models.Opportunity) error {
	evidence, err := json.Marshal(o.Evidence)
	if err != nil {
		return fmt.Errorf("failed to encode evidence: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO opportunities (id, business_id, title, description, source, evidence,
			impact_score, effort_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.BusinessID, o.Title, o.Description, o.Source, evidence,
		o.ImpactScore, o.EffortScore, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}
	return nil
}

func (s *Store) DismissOpportunity(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE opportunities SET dismissed_at = $2, updated_at = NOW() WHERE id = $1 AND dismissed_at IS NULL",
		id, at.UTC())
	if err != nil {
		return fmt.Errorf("dismiss failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkOpportunityConverted(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE opportunities SET is_converted = TRUE, updated_at = NOW() WHERE id = $1 AND is_converted = FALSE",
		id)
	if err != nil {
		return fmt.Errorf("convert failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetOpportunityEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE opportunities SET embedding = $2 WHERE id = $1",
		id, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("embedding update failed: %w", err)
	}
	return nil
}

// SearchOpportunities orders a business's opportunities by embedding
// similarity to the query vector. Rows without an embedding sort last.
func (s *Store) SearchOpportunities(ctx context.Context, businessID uuid.UUID, queryEmbedding []float32, limit int) ([]models.Opportunity, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	sql := fmt.Sprintf(`
		SELECT %s FROM opportunities
		WHERE business_id = $1 AND dismissed_at IS NULL
		ORDER BY
			CASE WHEN embedding IS NULL THEN 1 ELSE 0 END ASC,
			COALESCE(1 - (embedding <=> $2), -1) DESC,
			created_at DESC
		LIMIT $3
	`, opportunityCols)

	rows, err := s.pool.Query(ctx, sql, businessID, pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var opps []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		opps = append(opps, o)
	}
	return opps, rows.Err()
}

func (s *Store) CreateBusiness(ctx context.Context, name, category, country string) (*models.Business, error) {
	var b models.Business
	err := s.pool.QueryRow(ctx, `
		INSERT INTO businesses (name, category, country)
		VALUES ($1, $2, $3)
		RETURNING id, name, COALESCE(category, ''), COALESCE(country, ''), COALESCE(current_focus, ''),
			is_pro, integrations, has_reviews, has_sales, created_at
	`, name, category, country).Scan(
		&b.ID, &b.Name, &b.Category, &b.Country, &b.CurrentFocus,
		&b.IsPro, &b.Integrations, &b.HasReviews, &b.HasSales, &b.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert business failed: %w", err)
	}
	return &b, nil
}

// GetBusinessContext assembles the evaluation context the radar engine
// needs: the business row plus a live active-mission count.
func (s *Store) GetBusinessContext(ctx context.Context, businessID uuid.UUID) (*models.BusinessContext, error) {
	var bc models.BusinessContext
	err := s.pool.QueryRow(ctx, `
		SELECT b.id, b.name, COALESCE(b.category, ''), COALESCE(b.country, ''), COALESCE(b.current_focus, ''),
			b.is_pro, b.integrations, b.has_reviews, b.has_sales,
			(SELECT COUNT(*) FROM missions m WHERE m.business_id = b.id AND m.status = 'active')
		FROM businesses b
		WHERE b.id = $1
	`, businessID).Scan(
		&bc.ID, &bc.Name, &bc.Category, &bc.Country, &bc.CurrentFocus,
		&bc.IsPro, &bc.Integrations, &bc.HasReviews, &bc.HasSales,
		&bc.ActiveMissionsCount,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get business failed: %w", err)
	}

	bc.MaxParallelMissions = 2
	if bc.IsPro {
		bc.MaxParallelMissions = 10
	}
	return &bc, nil
}

func (s *Store) UpdateBusinessFocus(ctx context.Context, businessID uuid.UUID, focus string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE businesses SET current_focus = $2 WHERE id = $1",
		businessID, focus)
	if err != nil {
		return fmt.Errorf("focus update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateBusinessDataFlags(ctx context.Context, businessID uuid.UUID, hasReviews, hasSales bool) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE businesses SET has_reviews = has_reviews OR $2, has_sales = has_sales OR $3 WHERE id = $1",
		businessID, hasReviews, hasSales)
	if err != nil {
		return fmt.Errorf("data flags update failed: %w", err)
	}
	return nil
}

func (s *Store) InsertMission(ctx context.Context, m models.Mission) error {
	steps, err := json.Marshal(m.Steps)
	if err != nil {
		return fmt.Errorf("failed to encode steps: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO missions (id, business_id, opportunity_id, title, objective, steps,
			status, time_estimate, drivers, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.BusinessID, m.OpportunityID, m.Title, m.Objective, steps,
		m.Status, m.TimeEstimate, m.Drivers, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert mission failed: %w", err)
	}
	return nil
}

func (s *Store) ListMissions(ctx context.Context, businessID uuid.UUID, status string) ([]models.Mission, error) {
	sql := `
		SELECT id, business_id, opportunity_id, title, COALESCE(objective, ''), steps,
			status, COALESCE(time_estimate, ''), drivers, created_at, completed_at
		FROM missions WHERE business_id = $1`
	args := []interface{}{businessID}
	if status != "" {
		sql += " AND status = $2"
		args = append(args, status)
	}
	sql += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var missions []models.Mission
	for rows.Next() {
		var m models.Mission
		var stepsRaw []byte
		if err := rows.Scan(
			&m.ID, &m.BusinessID, &m.OpportunityID, &m.Title, &m.Objective, &stepsRaw,
			&m.Status, &m.TimeEstimate, &m.Drivers, &m.CreatedAt, &m.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if len(stepsRaw) > 0 {
			_ = json.Unmarshal(stepsRaw, &m.Steps)
		}
		missions = append(missions, m)
	}

	if missions == nil {
		missions = []models.Mission{}
	}
	return missions, rows.Err()
}

func (s *Store) CountActiveMissions(ctx context.Context, businessID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM missions WHERE business_id = $1 AND status = 'active'",
		businessID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateMissionStatus(ctx context.Context, id uuid.UUID, status string) error {
	var completedAt *time.Time
	if status == "completed" {
		now := time.Now().UTC()
		completedAt = &now
	}

	tag, err := s.pool.Exec(ctx,
		"UPDATE missions SET status = $2, completed_at = $3 WHERE id = $1",
		id, status, completedAt)
	if err != nil {
		return fmt.Errorf("mission update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) InsertSignals(ctx context.Context, sigs []models.Signal) error {
	for _, sig := range sigs {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO signals (id, business_id, source_id, kind, text, rating, occurred_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, sig.ID, sig.BusinessID, sig.SourceID, sig.Kind, sig.Text, sig.Rating, sig.OccurredAt, sig.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert signal failed: %w", err)
		}
	}
	return nil
}

func (s *Store) ListRecentSignals(ctx context.Context, businessID uuid.UUID, limit int) ([]models.Signal, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, business_id, source_id, kind, text, COALESCE(rating, 0), occurred_at, created_at
		FROM signals WHERE business_id = $1
		ORDER BY occurred_at DESC LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var sigs []models.Signal
	for rows.Next() {
		var sig models.Signal
		if err := rows.Scan(&sig.ID, &sig.BusinessID, &sig.SourceID, &sig.Kind, &sig.Text, &sig.Rating, &sig.OccurredAt, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, rows.Err()
}
