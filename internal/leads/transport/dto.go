// Package transport defines the request and response shapes of the leads API.
package transport

import (
	"presales_backend/internal/leads/domain"
)

// UpdateStatusRequest is the body of PUT /leads/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending contacted qualified won lost"`
}

// ListResponse is a page of leads.
type ListResponse struct {
	Leads  []domain.Lead `json:"leads"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
