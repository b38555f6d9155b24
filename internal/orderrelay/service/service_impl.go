package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/extension"
	"github.com/smallbiznis/relaygrid/internal/metrics"
	offerdomain "github.com/smallbiznis/relaygrid/internal/offer/domain"
	"github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
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
	OfferRepo    offerdomain.Repository
	Participants participantdomain.Service
	Registry     *extension.Registry
	Metrics      *metrics.Metrics
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	offers       offerdomain.Repository
	genID        *snowflake.Node
	participants participantdomain.Service
	registry     *extension.Registry
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("orderrelay.service"),
		repo:         p.Repo,
		offers:       p.OfferRepo,
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

	orderRef := strings.TrimSpace(req.OrderRef)
	if orderRef == "" {
		return nil, domain.ErrInvalidOrderRef
	}
	if req.AmountCents <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	sellerID, err := snowflake.ParseString(strings.TrimSpace(req.SellerID))
	if err != nil {
		return nil, domain.ErrInvalidSeller
	}
	offerID, err := snowflake.ParseString(strings.TrimSpace(req.OfferID))
	if err != nil {
		return nil, domain.ErrInvalidOffer
	}

	var partnerID *snowflake.ID
	if req.PartnerID != nil && strings.TrimSpace(*req.PartnerID) != "" {
		parsed, err := snowflake.ParseString(strings.TrimSpace(*req.PartnerID))
		if err != nil {
			return nil, domain.ErrInvalidPartner
		}
		partnerID = &parsed
	}

	offer, err := s.offers.FindByID(ctx, s.db, orgID, offerID)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, domain.ErrOfferNotFound
	}
	if !offer.Active {
		return nil, domain.ErrOfferInactive
	}

	if err := s.participants.Eligible(ctx, sellerID); err != nil {
		return nil, err
	}
	if err := s.participants.Eligible(ctx, offer.SupplierID); err != nil {
		return nil, err
	}
	if partnerID != nil {
		if err := s.participants.Eligible(ctx, *partnerID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		OrderRef:    orderRef,
		BuyerRef:    strings.TrimSpace(req.BuyerRef),
		SellerID:    sellerID,
		SupplierID:  offer.SupplierID,
		PartnerID:   partnerID,
		OfferID:     offerID,
		AmountCents: req.AmountCents,
		Category:    offer.Category,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Metadata != nil {
		order.Metadata = datatypes.JSONMap(req.Metadata)
	}

	hookCtx := extension.HookContext{
		Kind:  extension.KindOrder,
		Event: extension.EventCreate,
		After: orderSnapshot(order),
	}
	if err := s.registry.DispatchBefore(ctx, hookCtx); err != nil {
		s.countVeto(err)
		return nil, err
	}

	if err := s.repo.Create(ctx, s.db, order); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Concurrent dispatch of the same buyer order; return the
			// winner's row.
			existing, findErr := s.repo.FindByOrderRef(ctx, s.db, orgID, orderRef)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				resp, err := s.toResponse(existing)
				if err != nil {
					return nil, err
				}
				return &resp, nil
			}
		}
		return nil, err
	}

	s.registry.DispatchAfter(ctx, hookCtx)

	resp, err := s.toResponse(order)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Relay is idempotent: an order already at or past RELAYED is returned
// unchanged, because retries of a dispatch call must be safe.
func (s *Service) Relay(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.Relayed() {
		resp, err := s.toResponse(order)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}
	return s.transition(ctx, order, domain.TransitionUpdate{To: domain.StatusRelayed}, true)
}

func (s *Service) Confirm(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, domain.TransitionUpdate{To: domain.StatusConfirmed}, false)
}

func (s *Service) Ship(ctx context.Context, req domain.ShipRequest) (*domain.Response, error) {
	order, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, domain.TransitionUpdate{
		To:             domain.StatusShipped,
		Carrier:        trimPtr(req.Carrier),
		TrackingNumber: trimPtr(req.TrackingNumber),
	}, false)
}

func (s *Service) Deliver(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, domain.TransitionUpdate{To: domain.StatusDelivered}, false)
}

func (s *Service) Cancel(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, domain.TransitionUpdate{To: domain.StatusCancelled}, false)
}

// Refund moves a delivered order to REFUNDED. Refunded orders are
// permanently excluded from settlement even if otherwise unsettled.
func (s *Service) Refund(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, domain.TransitionUpdate{To: domain.StatusRefunded}, false)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := s.toResponse(order)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	filter := domain.ListFilter{}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(req.SellerID); raw != "" {
		sellerID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidSeller
		}
		filter.SellerID = sellerID
	}
	if raw := strings.TrimSpace(req.SupplierID); raw != "" {
		supplierID, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		filter.SupplierID = supplierID
	}

	items, err := s.repo.List(ctx, s.db, orgID, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		r, err := s.toResponse(&item)
		if err != nil {
			return nil, err
		}
		resp = append(resp, r)
	}
	return resp, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Order, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, s.db, orgID, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if _, err := domain.ParseStatus(string(order.Status)); err != nil {
		return nil, err
	}
	return order, nil
}

// transition runs the shared lifecycle pipeline: guard the move, dispatch
// before hooks, apply the status-guarded update, then dispatch after hooks.
// relayIdempotent marks the relay path, where losing the guarded update to a
// concurrent relay is success as long as the winner relayed the order.
func (s *Service) transition(ctx context.Context, order *domain.Order, update domain.TransitionUpdate, relayIdempotent bool) (*domain.Response, error) {
	from := order.Status
	if !domain.CanTransition(from, update.To) {
		return nil, domain.ErrInvalidTransition
	}

	update.At = time.Now().UTC()

	after := orderSnapshot(order)
	after["status"] = string(update.To)
	if update.Carrier != nil {
		after["carrier"] = *update.Carrier
	}
	if update.TrackingNumber != nil {
		after["tracking_number"] = *update.TrackingNumber
	}
	hookCtx := extension.HookContext{
		Kind:   extension.KindOrder,
		Event:  extension.EventStatusChange,
		Before: orderSnapshot(order),
		After:  after,
	}
	if err := s.registry.DispatchBefore(ctx, hookCtx); err != nil {
		s.countVeto(err)
		return nil, err
	}

	rows, err := s.repo.Transition(ctx, s.db, order.OrgID, order.ID, from, update)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, err := s.repo.FindByID(ctx, s.db, order.OrgID, order.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, domain.ErrNotFound
		}
		if relayIdempotent && current.Status.Relayed() {
			resp, err := s.toResponse(current)
			if err != nil {
				return nil, err
			}
			return &resp, nil
		}
		return nil, domain.ErrInvalidTransition
	}

	s.metrics.RelayTransitions.WithLabelValues(string(from), string(update.To)).Inc()
	s.log.Info("order transitioned",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(update.To)),
	)

	s.registry.DispatchAfter(ctx, hookCtx)

	order.Status = update.To
	order.UpdatedAt = update.At
	switch update.To {
	case domain.StatusRelayed:
		order.RelayedAt = &update.At
	case domain.StatusConfirmed:
		order.ConfirmedAt = &update.At
	case domain.StatusShipped:
		order.ShippedAt = &update.At
		if update.Carrier != nil {
			order.Carrier = update.Carrier
		}
		if update.TrackingNumber != nil {
			order.TrackingNumber = update.TrackingNumber
		}
	case domain.StatusDelivered:
		order.DeliveredAt = &update.At
	case domain.StatusCancelled:
		order.CancelledAt = &update.At
	case domain.StatusRefunded:
		order.RefundedAt = &update.At
	}

	resp, err := s.toResponse(order)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Service) toResponse(o *domain.Order) (domain.Response, error) {
	status, err := domain.ParseStatus(string(o.Status))
	if err != nil {
		return domain.Response{}, err
	}

	resp := domain.Response{
		ID:             o.ID.String(),
		OrganizationID: o.OrgID.String(),
		OrderRef:       o.OrderRef,
		BuyerRef:       o.BuyerRef,
		SellerID:       o.SellerID.String(),
		SupplierID:     o.SupplierID.String(),
		OfferID:        o.OfferID.String(),
		AmountCents:    o.AmountCents,
		Category:       o.Category,
		Status:         status,
		Carrier:        o.Carrier,
		TrackingNumber: o.TrackingNumber,
		RelayedAt:      o.RelayedAt,
		ConfirmedAt:    o.ConfirmedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		RefundedAt:     o.RefundedAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.PartnerID != nil {
		id := o.PartnerID.String()
		resp.PartnerID = &id
	}
	if o.SettlementID != nil {
		id := o.SettlementID.String()
		resp.SettlementID = &id
	}
	if len(o.Metadata) > 0 {
		resp.Metadata = map[string]any(o.Metadata)
	}
	return resp, nil
}

func orderSnapshot(o *domain.Order) map[string]any {
	snap := map[string]any{
		"id":           o.ID.String(),
		"order_ref":    o.OrderRef,
		"buyer_ref":    o.BuyerRef,
		"seller_id":    o.SellerID.String(),
		"supplier_id":  o.SupplierID.String(),
		"offer_id":     o.OfferID.String(),
		"amount_cents": o.AmountCents,
		"category":     o.Category,
		"status":       string(o.Status),
	}
	if o.PartnerID != nil {
		snap["partner_id"] = o.PartnerID.String()
	}
	return snap
}

func (s *Service) countVeto(err error) {
	var veto *extension.VetoError
	if errors.As(err, &veto) {
		s.metrics.HookVetoes.WithLabelValues(string(veto.Extension)).Inc()
	}
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
