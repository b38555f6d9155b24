package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/commission/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, policy *domain.Policy) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO commission_policies (id, org_id, type, rate_basis_points, fixed_amount_cents, scope, category_code, product_id, priority, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		policy.ID,
		policy.OrgID,
		policy.Type,
		policy.RateBasisPoints,
		policy.FixedAmountCents,
		policy.Scope,
		policy.CategoryCode,
		policy.ProductID,
		policy.Priority,
		policy.Active,
		policy.CreatedAt,
		policy.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Policy, error) {
	var p domain.Policy
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, type, rate_basis_points, fixed_amount_cents, scope, category_code, product_id, priority, active, created_at, updated_at
		 FROM commission_policies WHERE org_id = ? AND id = ?`,
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

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Policy, error) {
	var items []domain.Policy
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, type, rate_basis_points, fixed_amount_cents, scope, category_code, product_id, priority, active, created_at, updated_at
		 FROM commission_policies WHERE org_id = ? AND active = ?
		 ORDER BY priority ASC, created_at DESC, id DESC`,
		orgID,
		true,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Policy, error) {
	var items []domain.Policy
	stmt := db.WithContext(ctx).
		Model(&domain.Policy{}).
		Where("org_id = ?", orgID)

	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.Scope != "" {
		stmt = stmt.Where("scope = ?", filter.Scope)
	}

	if err := stmt.Order("priority ASC, created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, policy *domain.Policy) error {
	return db.WithContext(ctx).Exec(
		`UPDATE commission_policies
		 SET rate_basis_points = ?, fixed_amount_cents = ?, priority = ?, active = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		policy.RateBasisPoints,
		policy.FixedAmountCents,
		policy.Priority,
		policy.Active,
		policy.UpdatedAt,
		policy.OrgID,
		policy.ID,
	).Error
}

func (r *repo) CountSettlementRefs(ctx context.Context, db *gorm.DB, orgID, policyID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM settlement_lines WHERE org_id = ? AND policy_id = ?`,
		orgID,
		policyID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
