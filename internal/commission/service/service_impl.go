package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/commission/domain"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("commission.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	policyType, err := domain.ParsePolicyType(strings.TrimSpace(req.Type))
	if err != nil {
		return nil, err
	}

	scope, err := domain.ParseScope(strings.TrimSpace(req.Scope))
	if err != nil {
		return nil, err
	}

	policy := &domain.Policy{
		ID:       s.genID.Generate(),
		OrgID:    orgID,
		Type:     policyType,
		Scope:    scope,
		Priority: 100,
		Active:   true,
	}

	switch policyType {
	case domain.PolicyTypePercentage:
		if req.RateBasisPoints <= 0 || req.RateBasisPoints > 10000 {
			return nil, domain.ErrInvalidRate
		}
		policy.RateBasisPoints = req.RateBasisPoints
	case domain.PolicyTypeFixed:
		if req.FixedAmountCents <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		policy.FixedAmountCents = req.FixedAmountCents
	}

	switch scope {
	case domain.ScopeCategory:
		category := strings.TrimSpace(req.CategoryCode)
		if category == "" {
			return nil, domain.ErrInvalidScope
		}
		policy.CategoryCode = category
	case domain.ScopeProduct:
		productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		policy.ProductID = productID
	}

	if req.Priority != nil {
		policy.Priority = *req.Priority
	}

	now := time.Now().UTC()
	policy.CreatedAt = now
	policy.UpdatedAt = now

	if err := s.repo.Create(ctx, s.db, policy); err != nil {
		return nil, err
	}

	resp := s.toResponse(policy)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	policyID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, policyID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	// Rate changes are forbidden once a finalized settlement references the
	// policy; the historical terms must stay resolvable for audit.
	if req.RateBasisPoints != nil || req.FixedAmountCents != nil {
		refs, err := s.repo.CountSettlementRefs(ctx, s.db, orgID, policyID)
		if err != nil {
			return nil, err
		}
		if refs > 0 {
			return nil, domain.ErrPolicyImmutable
		}
	}

	if req.RateBasisPoints != nil {
		if item.Type != domain.PolicyTypePercentage || *req.RateBasisPoints <= 0 || *req.RateBasisPoints > 10000 {
			return nil, domain.ErrInvalidRate
		}
		item.RateBasisPoints = *req.RateBasisPoints
	}
	if req.FixedAmountCents != nil {
		if item.Type != domain.PolicyTypeFixed || *req.FixedAmountCents <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		item.FixedAmountCents = *req.FixedAmountCents
	}
	if req.Priority != nil {
		item.Priority = *req.Priority
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.Response, error) {
	inactive := false
	return s.Update(ctx, domain.UpdateRequest{ID: id, Active: &inactive})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	policyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, policyID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{Active: req.Active}
	if raw := strings.TrimSpace(req.Scope); raw != "" {
		scope, err := domain.ParseScope(raw)
		if err != nil {
			return nil, err
		}
		filter.Scope = scope
	}

	items, err := s.repo.List(ctx, s.db, orgID, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) Simulate(ctx context.Context, req domain.SimulateRequest) (*domain.SimulateResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	if req.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var productID snowflake.ID
	if raw := strings.TrimSpace(req.ProductID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		productID = parsed
	}

	policies, err := s.repo.FindActive(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	commission, winner := domain.SelectAndCompute(policies, domain.Context{
		Category:    strings.TrimSpace(req.Category),
		ProductID:   productID,
		AmountCents: req.AmountCents,
	})

	resp := &domain.SimulateResponse{CommissionCents: commission}
	if winner != nil {
		id := winner.ID.String()
		resp.PolicyID = &id
	}
	return resp, nil
}

func (s *Service) toResponse(p *domain.Policy) domain.Response {
	resp := domain.Response{
		ID:               p.ID.String(),
		OrganizationID:   p.OrgID.String(),
		Type:             p.Type,
		RateBasisPoints:  p.RateBasisPoints,
		FixedAmountCents: p.FixedAmountCents,
		Scope:            p.Scope,
		CategoryCode:     p.CategoryCode,
		Priority:         p.Priority,
		Active:           p.Active,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.ProductID != 0 {
		id := p.ProductID.String()
		resp.ProductID = &id
	}
	return resp
}
