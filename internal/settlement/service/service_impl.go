package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/clock"
	commissiondomain "github.com/smallbiznis/relaygrid/internal/commission/domain"
	"github.com/smallbiznis/relaygrid/internal/metrics"
	orderdomain "github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	"github.com/smallbiznis/relaygrid/internal/settlement/domain"
	"github.com/smallbiznis/relaygrid/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            domain.Repository
	ParticipantRepo participantdomain.Repository
	PolicyRepo      commissiondomain.Repository
	Metrics         *metrics.Metrics
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	participants participantdomain.Repository
	policies     commissiondomain.Repository
	genID        *snowflake.Node
	clock        clock.Clock
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("settlement.service"),
		repo:         p.Repo,
		participants: p.ParticipantRepo,
		policies:     p.PolicyRepo,
		genID:        p.GenID,
		clock:        p.Clock,
		metrics:      p.Metrics,
	}
}

type computedLine struct {
	order      orderdomain.Order
	commission int64
	policyID   *snowflake.ID
}

// selectAndPrice reads the participant's unsettled delivered orders in the
// period and prices commission for each. Preview and Finalize share it so
// both see the same selection.
func (s *Service) selectAndPrice(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, req domain.PeriodRequest) (snowflake.ID, []computedLine, error) {
	if !req.PeriodStart.Before(req.PeriodEnd) {
		return 0, nil, domain.ErrInvalidPeriod
	}

	participantID, err := snowflake.ParseString(strings.TrimSpace(req.ParticipantID))
	if err != nil {
		return 0, nil, domain.ErrInvalidParticipant
	}

	participant, err := s.participants.FindByID(ctx, tx, orgID, participantID)
	if err != nil {
		return 0, nil, err
	}
	if participant == nil {
		return 0, nil, participantdomain.ErrNotFound
	}

	orders, err := s.repo.FindUnsettledDelivered(ctx, tx, orgID, participant.Type, participantID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return 0, nil, err
	}

	policies, err := s.policies.FindActive(ctx, tx, orgID)
	if err != nil {
		return 0, nil, err
	}

	lines := make([]computedLine, 0, len(orders))
	for _, order := range orders {
		commission, winner := commissiondomain.SelectAndCompute(policies, commissiondomain.Context{
			Category:    order.Category,
			ProductID:   order.OfferID,
			AmountCents: order.AmountCents,
		})
		line := computedLine{order: order, commission: commission}
		if winner != nil {
			id := winner.ID
			line.policyID = &id
		}
		lines = append(lines, line)
	}
	return participantID, lines, nil
}

func (s *Service) Preview(ctx context.Context, req domain.PeriodRequest) (*domain.PreviewResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	participantID, lines, err := s.selectAndPrice(ctx, s.db, orgID, req)
	if err != nil {
		return nil, err
	}

	resp := &domain.PreviewResponse{
		ParticipantID: participantID.String(),
		PeriodStart:   req.PeriodStart,
		PeriodEnd:     req.PeriodEnd,
		OrderCount:    len(lines),
		Lines:         make([]domain.LineResponse, 0, len(lines)),
	}
	for _, line := range lines {
		resp.TotalAmountCents += line.order.AmountCents
		resp.TotalCommissionCents += line.commission
		resp.Lines = append(resp.Lines, toLineResponse(line))
	}
	resp.NetPayableCents = resp.TotalAmountCents - resp.TotalCommissionCents
	return resp, nil
}

func (s *Service) Finalize(ctx context.Context, req domain.PeriodRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var settlement *domain.Settlement
	var lineResponses []domain.LineResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participantID, lines, err := s.selectAndPrice(ctx, tx, orgID, req)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		settlement = &domain.Settlement{
			ID:            s.genID.Generate(),
			OrgID:         orgID,
			ParticipantID: participantID,
			PeriodStart:   req.PeriodStart,
			PeriodEnd:     req.PeriodEnd,
			OrderCount:    len(lines),
			Status:        domain.StatusFinalized,
			CreatedAt:     now,
		}

		records := make([]domain.Line, 0, len(lines))
		orderIDs := make([]snowflake.ID, 0, len(lines))
		lineResponses = make([]domain.LineResponse, 0, len(lines))
		for _, line := range lines {
			settlement.TotalAmount += line.order.AmountCents
			settlement.TotalComm += line.commission
			records = append(records, domain.Line{
				ID:           s.genID.Generate(),
				OrgID:        orgID,
				SettlementID: settlement.ID,
				OrderID:      line.order.ID,
				AmountCents:  line.order.AmountCents,
				Commission:   line.commission,
				PolicyID:     line.policyID,
				CreatedAt:    now,
			})
			orderIDs = append(orderIDs, line.order.ID)
			lineResponses = append(lineResponses, toLineResponse(line))
		}
		settlement.NetPayable = settlement.TotalAmount - settlement.TotalComm

		if err := s.repo.CreateSettlement(ctx, tx, settlement); err != nil {
			return err
		}
		if err := s.repo.CreateLines(ctx, tx, records); err != nil {
			if db.IsDuplicateKeyErr(err) {
				// Another settlement already claimed one of the orders.
				return domain.ErrConflict
			}
			return err
		}

		stamped, err := s.repo.StampOrders(ctx, tx, orgID, settlement.ID, orderIDs)
		if err != nil {
			return err
		}
		if stamped != int64(len(orderIDs)) {
			// A concurrent finalize claimed one of our orders between the
			// select and the stamp. Roll everything back.
			return domain.ErrConflict
		}
		return nil
	})
	if err != nil {
		if err == domain.ErrConflict {
			s.metrics.SettlementConflicts.Inc()
		}
		return nil, err
	}

	s.metrics.SettlementsFinalized.Inc()
	s.log.Info("settlement finalized",
		zap.String("settlement_id", settlement.ID.String()),
		zap.String("participant_id", settlement.ParticipantID.String()),
		zap.Int("order_count", settlement.OrderCount),
		zap.Int64("net_payable_cents", settlement.NetPayable),
	)

	resp := s.toResponse(settlement)
	resp.Lines = lineResponses
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	settlementID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, settlementID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	lines, err := s.repo.FindLines(ctx, s.db, orgID, settlementID)
	if err != nil {
		return nil, err
	}

	resp := s.toResponse(item)
	resp.Lines = make([]domain.LineResponse, 0, len(lines))
	for _, line := range lines {
		lr := domain.LineResponse{
			OrderID:         line.OrderID.String(),
			AmountCents:     line.AmountCents,
			CommissionCents: line.Commission,
		}
		if line.PolicyID != nil {
			id := line.PolicyID.String()
			lr.PolicyID = &id
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return &resp, nil
}

func (s *Service) List(ctx context.Context, participantID string) ([]domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var pid snowflake.ID
	if raw := strings.TrimSpace(participantID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidParticipant
		}
		pid = parsed
	}

	items, err := s.repo.List(ctx, s.db, orgID, pid)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, s.toResponse(&item))
	}
	return resp, nil
}

func (s *Service) toResponse(settlement *domain.Settlement) domain.Response {
	return domain.Response{
		ID:                   settlement.ID.String(),
		OrganizationID:       settlement.OrgID.String(),
		ParticipantID:        settlement.ParticipantID.String(),
		PeriodStart:          settlement.PeriodStart,
		PeriodEnd:            settlement.PeriodEnd,
		TotalAmountCents:     settlement.TotalAmount,
		TotalCommissionCents: settlement.TotalComm,
		NetPayableCents:      settlement.NetPayable,
		OrderCount:           settlement.OrderCount,
		Status:               settlement.Status,
		CreatedAt:            settlement.CreatedAt,
	}
}

func toLineResponse(line computedLine) domain.LineResponse {
	lr := domain.LineResponse{
		OrderID:         line.order.ID.String(),
		AmountCents:     line.order.AmountCents,
		CommissionCents: line.commission,
	}
	if line.policyID != nil {
		id := line.policyID.String()
		lr.PolicyID = &id
	}
	return lr
}
