package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_relays (id, org_id, order_ref, buyer_ref, seller_id, supplier_id, partner_id, offer_id, amount_cents, category, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.OrgID,
		order.OrderRef,
		order.BuyerRef,
		order.SellerID,
		order.SupplierID,
		order.PartnerID,
		order.OfferID,
		order.AmountCents,
		order.Category,
		order.Status,
		order.Metadata,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Scan(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) FindByOrderRef(ctx context.Context, db *gorm.DB, orgID snowflake.ID, orderRef string) (*domain.Order, error) {
	var o domain.Order
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("org_id = ? AND order_ref = ?", orgID, orderRef).
		Limit(1).
		Scan(&o).Error
	if err != nil {
		return nil, err
	}
	if o.ID == 0 {
		return nil, nil
	}
	return &o, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListFilter) ([]domain.Order, error) {
	var items []domain.Order
	stmt := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("org_id = ?", orgID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.SellerID != 0 {
		stmt = stmt.Where("seller_id = ?", filter.SellerID)
	}
	if filter.SupplierID != 0 {
		stmt = stmt.Where("supplier_id = ?", filter.SupplierID)
	}
	if filter.Unsettled {
		stmt = stmt.Where("settlement_id IS NULL")
	}

	if err := stmt.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// timestamp column stamped per target status.
var transitionColumns = map[domain.Status]string{
	domain.StatusRelayed:   "relayed_at",
	domain.StatusConfirmed: "confirmed_at",
	domain.StatusShipped:   "shipped_at",
	domain.StatusDelivered: "delivered_at",
	domain.StatusCancelled: "cancelled_at",
	domain.StatusRefunded:  "refunded_at",
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from domain.Status, update domain.TransitionUpdate) (int64, error) {
	column, ok := transitionColumns[update.To]
	if !ok {
		return 0, fmt.Errorf("no transition column for status %q", update.To)
	}

	values := map[string]any{
		"status":     update.To,
		column:       update.At,
		"updated_at": update.At,
	}
	if update.Carrier != nil {
		values["carrier"] = *update.Carrier
	}
	if update.TrackingNumber != nil {
		values["tracking_number"] = *update.TrackingNumber
	}

	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("org_id = ? AND id = ? AND status = ?", orgID, id, from).
		Updates(values)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
