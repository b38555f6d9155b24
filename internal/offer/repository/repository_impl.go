package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/offer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO offers (id, org_id, supplier_id, seller_id, sku, name, category, price_cents, active, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		offer.ID,
		offer.OrgID,
		offer.SupplierID,
		offer.SellerID,
		offer.SKU,
		offer.Name,
		offer.Category,
		offer.PriceCents,
		offer.Active,
		offer.Metadata,
		offer.CreatedAt,
		offer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Offer, error) {
	var o domain.Offer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, supplier_id, seller_id, sku, name, category, price_cents, active, metadata, created_at, updated_at
		 FROM offers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Offer, error) {
	var items []domain.Offer
	stmt := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("org_id = ?", orgID)

	if filter.SupplierID != 0 {
		stmt = stmt.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	if err := stmt.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Exec(
		`UPDATE offers
		 SET name = ?, category = ?, price_cents = ?, active = ?, metadata = ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		offer.Name,
		offer.Category,
		offer.PriceCents,
		offer.Active,
		offer.Metadata,
		offer.UpdatedAt,
		offer.OrgID,
		offer.ID,
	).Error
}
