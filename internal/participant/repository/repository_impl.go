package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/participant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, p *domain.Participant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO participants (id, org_id, type, name, email, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OrgID,
		p.Type,
		p.Name,
		p.Email,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Participant, error) {
	var p domain.Participant
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, type, name, email, status, created_at, updated_at
		 FROM participants WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Participant, error) {
	var items []domain.Participant
	stmt := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("org_id = ?", orgID)

	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	if err := stmt.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from, to domain.Status) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE participants SET status = ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = ?`,
		to,
		time.Now().UTC(),
		orgID,
		id,
		from,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) AppendStatusChange(ctx context.Context, db *gorm.DB, change *domain.StatusChange) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO participant_status_changes (id, org_id, participant_id, from_status, to_status, actor_id, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		change.ID,
		change.OrgID,
		change.ParticipantID,
		change.FromStatus,
		change.ToStatus,
		change.ActorID,
		change.Reason,
		change.CreatedAt,
	).Error
}

func (r *repo) FindStatusChanges(ctx context.Context, db *gorm.DB, orgID, participantID snowflake.ID) ([]domain.StatusChange, error) {
	var items []domain.StatusChange
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, participant_id, from_status, to_status, actor_id, reason, created_at
		 FROM participant_status_changes WHERE org_id = ? AND participant_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		participantID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
