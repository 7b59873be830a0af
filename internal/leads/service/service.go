// Package service contains the lead management use cases.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"presales_backend/internal/leads/domain"
	"presales_backend/internal/leads/repository"
	"presales_backend/platform/apperr"
	"presales_backend/platform/logger"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, lead domain.Lead) (uuid.UUID, error)
	List(ctx context.Context, limit, offset int) ([]domain.Lead, error)
	Count(ctx context.Context) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FollowUpStatus) error
}

type Service struct {
	repo Store
	log  *logger.Logger
}

func New(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create persists a new lead in the pending follow-up status.
func (s *Service) Create(ctx context.Context, lead domain.Lead) (uuid.UUID, error) {
	id, err := s.repo.Create(ctx, lead)
	if err != nil {
		s.log.DatabaseError("create lead", err)
		return uuid.Nil, apperr.Internal("could not store lead")
	}
	s.log.Info("lead stored", "lead_id", id.String(), "session_id", lead.SessionID)
	return id, nil
}

// ListResult bundles a page of leads with the total count.
type ListResult struct {
	Leads []domain.Lead
	Total int
}

// List returns a page of leads, newest first. Limit is clamped to 1..100.
func (s *Service) List(ctx context.Context, limit, offset int) (ListResult, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	leads, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.log.DatabaseError("list leads", err)
		return ListResult{}, apperr.Internal("could not list leads")
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		s.log.DatabaseError("count leads", err)
		return ListResult{}, apperr.Internal("could not list leads")
	}
	return ListResult{Leads: leads, Total: total}, nil
}

// GetByID returns a single lead.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.DatabaseError("get lead", err)
		return domain.Lead{}, apperr.Internal("could not load lead")
	}
	return lead, nil
}

// UpdateStatus changes a lead's follow-up status.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.FollowUpStatus) (domain.Lead, error) {
	if !status.Valid() {
		return domain.Lead{}, apperr.Validation("invalid follow-up status")
	}

	err := s.repo.UpdateStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.DatabaseError("update lead status", err)
		return domain.Lead{}, apperr.Internal("could not update lead")
	}
	return s.GetByID(ctx, id)
}
