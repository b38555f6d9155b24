package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/extension"
	"github.com/smallbiznis/relaygrid/internal/metrics"
	"github.com/smallbiznis/relaygrid/internal/offer/domain"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	"github.com/smallbiznis/relaygrid/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	Participants participantdomain.Service
	Registry     *extension.Registry
	Metrics      *metrics.Metrics
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	genID        *snowflake.Node
	participants participantdomain.Service
	registry     *extension.Registry
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("offer.service"),
		repo:         p.Repo,
		genID:        p.GenID,
		participants: p.Participants,
		registry:     p.Registry,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	supplierID, err := snowflake.ParseString(strings.TrimSpace(req.SupplierID))
	if err != nil {
		return nil, domain.ErrInvalidSupplier
	}
	sellerID, err := snowflake.ParseString(strings.TrimSpace(req.SellerID))
	if err != nil {
		return nil, domain.ErrInvalidSeller
	}

	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, domain.ErrInvalidSKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.PriceCents <= 0 {
		return nil, domain.ErrInvalidPrice
	}

	if err := s.participants.Eligible(ctx, supplierID); err != nil {
		return nil, err
	}
	if err := s.participants.Eligible(ctx, sellerID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	offer := &domain.Offer{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		SupplierID: supplierID,
		SellerID:   sellerID,
		SKU:        sku,
		Name:       name,
		Category:   strings.TrimSpace(req.Category),
		PriceCents: req.PriceCents,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Metadata != nil {
		offer.Metadata = datatypes.JSONMap(req.Metadata)
	}

	hookCtx := extension.HookContext{
		Kind:  extension.KindOffer,
		Event: extension.EventCreate,
		After: offerSnapshot(offer),
	}
	if err := s.registry.DispatchBefore(ctx, hookCtx); err != nil {
		var veto *extension.VetoError
		if errors.As(err, &veto) {
			s.metrics.HookVetoes.WithLabelValues(string(veto.Extension)).Inc()
		}
		return nil, err
	}

	if err := s.repo.Create(ctx, s.db, offer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSKU
		}
		return nil, err
	}

	s.registry.DispatchAfter(ctx, hookCtx)

	resp := s.toResponse(offer)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	offerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, offerID)
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

	filter := domain.ListFilter{
		Category: strings.TrimSpace(req.Category),
		Active:   req.Active,
	}
	if raw := strings.TrimSpace(req.SupplierID); raw != "" {
		supplierID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidSupplier
		}
		filter.SupplierID = supplierID
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

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	offerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, offerID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	item.Active = false
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) toResponse(o *domain.Offer) domain.Response {
	resp := domain.Response{
		ID:             o.ID.String(),
		OrganizationID: o.OrgID.String(),
		SupplierID:     o.SupplierID.String(),
		SellerID:       o.SellerID.String(),
		SKU:            o.SKU,
		Name:           o.Name,
		Category:       o.Category,
		PriceCents:     o.PriceCents,
		Active:         o.Active,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if len(o.Metadata) > 0 {
		resp.Metadata = map[string]any(o.Metadata)
	}
	return resp
}

// offerSnapshot is the immutable view hooks receive. Identity fields are
// copies; hooks cannot reach the offer row itself.
func offerSnapshot(o *domain.Offer) map[string]any {
	return map[string]any{
		"id":          o.ID.String(),
		"supplier_id": o.SupplierID.String(),
		"seller_id":   o.SellerID.String(),
		"sku":         o.SKU,
		"name":        o.Name,
		"category":    o.Category,
		"price_cents": o.PriceCents,
		"active":      o.Active,
	}
}
