package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/config"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
	"github.com/smallbiznis/relaygrid/internal/participant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg   config.Config
	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	enforced bool
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		enforced: p.Cfg.AuthorizationEnforced,
		db:       p.DB,
		log:      p.Log.Named("participant.service"),
		repo:     p.Repo,
		genID:    p.GenID,
	}
}

func (s *Service) Apply(ctx context.Context, req domain.ApplyRequest) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	participantType, err := domain.ParseType(strings.TrimSpace(req.Type))
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var emailPtr *string
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			emailPtr = &email
		}
	}

	now := time.Now().UTC()
	p := &domain.Participant{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Type:      participantType,
		Name:      name,
		Email:     emailPtr,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, p); err != nil {
		return nil, err
	}

	resp := s.toResponse(p)
	return &resp, nil
}

func (s *Service) Act(ctx context.Context, req domain.ActionRequest) (*domain.Response, error) {
	if !s.enforced {
		return nil, domain.ErrNotEnabled
	}

	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	actorID, err := snowflake.ParseString(strings.TrimSpace(req.ActorID))
	if err != nil {
		return nil, domain.ErrInvalidActor
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if _, err := domain.ParseStatus(string(item.Status)); err != nil {
		return nil, err
	}

	target, err := domain.Transition(req.Action, item.Status)
	if err != nil {
		return nil, err
	}

	var reasonPtr *string
	if req.Reason != nil {
		reason := strings.TrimSpace(*req.Reason)
		if reason != "" {
			reasonPtr = &reason
		}
	}

	from := item.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.UpdateStatus(ctx, tx, orgID, id, from, target)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Another actor moved the participant first.
			return domain.ErrInvalidTransition
		}
		return s.repo.AppendStatusChange(ctx, tx, &domain.StatusChange{
			ID:            s.genID.Generate(),
			OrgID:         orgID,
			ParticipantID: id,
			FromStatus:    from,
			ToStatus:      target,
			ActorID:       actorID,
			Reason:        reasonPtr,
			CreatedAt:     time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("participant status changed",
		zap.String("participant_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor_id", actorID.String()),
	)

	item.Status = target
	item.UpdatedAt = time.Now().UTC()
	resp := s.toResponse(item)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	participantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, participantID)
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

	filter := domain.ListFilter{}
	if raw := strings.TrimSpace(req.Type); raw != "" {
		participantType, err := domain.ParseType(raw)
		if err != nil {
			return nil, err
		}
		filter.Type = participantType
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, err := domain.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		filter.Status = status
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

func (s *Service) History(ctx context.Context, id string) ([]domain.ChangeResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	participantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	changes, err := s.repo.FindStatusChanges(ctx, s.db, orgID, participantID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.ChangeResponse, 0, len(changes))
	for _, change := range changes {
		resp = append(resp, domain.ChangeResponse{
			ID:         change.ID.String(),
			FromStatus: change.FromStatus,
			ToStatus:   change.ToStatus,
			ActorID:    change.ActorID.String(),
			Reason:     change.Reason,
			CreatedAt:  change.CreatedAt,
		})
	}
	return resp, nil
}

func (s *Service) Eligible(ctx context.Context, id snowflake.ID) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	if !s.enforced {
		return nil
	}
	if item.Status != domain.StatusActive {
		return domain.ErrNotEligible
	}
	return nil
}

func (s *Service) toResponse(p *domain.Participant) domain.Response {
	return domain.Response{
		ID:             p.ID.String(),
		OrganizationID: p.OrgID.String(),
		Type:           p.Type,
		Name:           p.Name,
		Email:          p.Email,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
