// Package service exposes captured leads to the tenant's dashboard.
package service

import (
	"context"

	"leadbot_backend/internal/leads/repository"
	"leadbot_backend/internal/leads/transport"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RequirementLister reads requirement rows of one tenant.
type RequirementLister interface {
	ListRequirements(ctx context.Context, params repository.ListRequirementsParams) ([]repository.Requirement, int, error)
}

type Service struct {
	repo RequirementLister
}

func New(repo RequirementLister) *Service {
	return &Service{repo: repo}
}

// ListRequirements pages through the tenant's requirements, newest first.
func (s *Service) ListRequirements(ctx context.Context, tenantID uuid.UUID, req transport.ListRequirementsRequest) (transport.RequirementListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	rows, total, err := s.repo.ListRequirements(ctx, repository.ListRequirementsParams{
		TenantID: tenantID,
		Status:   string(req.Status),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	})
	if err != nil {
		return transport.RequirementListResponse{}, err
	}

	items := make([]transport.RequirementResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toRequirementResponse(row))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.RequirementListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func toRequirementResponse(r repository.Requirement) transport.RequirementResponse {
	return transport.RequirementResponse{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		ContactID:      r.ContactID,
		Phone:          r.Phone,
		Category:       r.Category,
		Details:        r.Details,
		State:          r.State,
		Status:         transport.RequirementStatus(r.Status),
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}
