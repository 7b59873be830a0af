// Package repository persists leads in Postgres.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"presales_backend/internal/leads/domain"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, session_id, client_name, contact_info, project_type, use_case,
	requirements_summary, timeline, budget_range, summary,
	follow_up_status, created_at, updated_at`

// Create inserts a new lead and returns its generated ID.
func (r *Repository) Create(ctx context.Context, lead domain.Lead) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leads (
			id, session_id, client_name, contact_info, project_type, use_case,
			requirements_summary, timeline, budget_range, summary, follow_up_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, lead.SessionID, lead.ClientName, lead.ContactInfo, lead.ProjectType,
		lead.UseCase, lead.RequirementsSummary, lead.Timeline, lead.BudgetRange,
		lead.Summary, domain.StatusPending)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// List returns leads ordered newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// Count returns the total number of leads.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&total)
	return total, err
}

// GetByID returns a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+leadColumns+`
		FROM leads
		WHERE id = $1
	`, id)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateStatus changes the follow-up status of a lead.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FollowUpStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET follow_up_status = $2, updated_at = now()
		WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.SessionID, &lead.ClientName, &lead.ContactInfo,
		&lead.ProjectType, &lead.UseCase, &lead.RequirementsSummary,
		&lead.Timeline, &lead.BudgetRange, &lead.Summary,
		&lead.FollowUpStatus, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}
