package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	"gorm.io/gorm"
)

type Repository interface {
	// FindUnsettledDelivered returns the DELIVERED, unsettled orders the
	// participant is party to, delivered inside [start, end).
	FindUnsettledDelivered(ctx context.Context, db *gorm.DB, orgID snowflake.ID, participantType participantdomain.Type, participantID snowflake.ID, start, end time.Time) ([]orderdomain.Order, error)
	CreateSettlement(ctx context.Context, db *gorm.DB, settlement *Settlement) error
	CreateLines(ctx context.Context, db *gorm.DB, lines []Line) error
	// StampOrders marks the orders as settled, guarded so an order already
	// claimed by another settlement is not re-stamped. Returns rows matched.
	StampOrders(ctx context.Context, db *gorm.DB, orgID, settlementID snowflake.ID, orderIDs []snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Settlement, error)
	FindLines(ctx context.Context, db *gorm.DB, orgID, settlementID snowflake.ID) ([]Line, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, participantID snowflake.ID) ([]Settlement, error)
}
