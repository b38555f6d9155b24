package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	"github.com/smallbiznis/relaygrid/internal/settlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func participantColumn(participantType participantdomain.Type) (string, error) {
	switch participantType {
	case participantdomain.TypeSeller:
		return "seller_id", nil
	case participantdomain.TypeSupplier:
		return "supplier_id", nil
	case participantdomain.TypePartner:
		return "partner_id", nil
	default:
		return "", fmt.Errorf("unknown participant type %q", participantType)
	}
}

func (r *repo) FindUnsettledDelivered(ctx context.Context, db *gorm.DB, orgID snowflake.ID, participantType participantdomain.Type, participantID snowflake.ID, start, end time.Time) ([]orderdomain.Order, error) {
	column, err := participantColumn(participantType)
	if err != nil {
		return nil, err
	}

	var items []orderdomain.Order
	err = db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("org_id = ?", orgID).
		Where(column+" = ?", participantID).
		Where("status = ?", orderdomain.StatusDelivered).
		Where("settlement_id IS NULL").
		Where("delivered_at >= ? AND delivered_at < ?", start, end).
		Order("delivered_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CreateSettlement(ctx context.Context, db *gorm.DB, settlement *domain.Settlement) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO settlements (id, org_id, participant_id, period_start, period_end, total_amount_cents, total_commission_cents, net_payable_cents, order_count, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID,
		settlement.OrgID,
		settlement.ParticipantID,
		settlement.PeriodStart,
		settlement.PeriodEnd,
		settlement.TotalAmount,
		settlement.TotalComm,
		settlement.NetPayable,
		settlement.OrderCount,
		settlement.Status,
		settlement.CreatedAt,
	).Error
}

func (r *repo) CreateLines(ctx context.Context, db *gorm.DB, lines []domain.Line) error {
	for i := range lines {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO settlement_lines (id, org_id, settlement_id, order_id, amount_cents, commission_cents, policy_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			lines[i].ID,
			lines[i].OrgID,
			lines[i].SettlementID,
			lines[i].OrderID,
			lines[i].AmountCents,
			lines[i].Commission,
			lines[i].PolicyID,
			lines[i].CreatedAt,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) StampOrders(ctx context.Context, db *gorm.DB, orgID, settlementID snowflake.ID, orderIDs []snowflake.ID) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).
		Model(&orderdomain.Order{}).
		Where("org_id = ? AND id IN ?", orgID, orderIDs).
		Where("settlement_id IS NULL").
		Where("status = ?", orderdomain.StatusDelivered).
		Updates(map[string]any{
			"settlement_id": settlementID,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Settlement, error) {
	var s domain.Settlement
	err := db.WithContext(ctx).
		Model(&domain.Settlement{}).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) FindLines(ctx context.Context, db *gorm.DB, orgID, settlementID snowflake.ID) ([]domain.Line, error) {
	var items []domain.Line
	err := db.WithContext(ctx).
		Model(&domain.Line{}).
		Where("org_id = ? AND settlement_id = ?", orgID, settlementID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID, participantID snowflake.ID) ([]domain.Settlement, error) {
	var items []domain.Settlement
	stmt := db.WithContext(ctx).
		Model(&domain.Settlement{}).
		Where("org_id = ?", orgID)
	if participantID != 0 {
		stmt = stmt.Where("participant_id = ?", participantID)
	}
	if err := stmt.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
