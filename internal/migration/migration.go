package migration

import (
	commissiondomain "github.com/smallbiznis/relaygrid/internal/commission/domain"
	offerdomain "github.com/smallbiznis/relaygrid/internal/offer/domain"
	orderdomain "github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	settlementdomain "github.com/smallbiznis/relaygrid/internal/settlement/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Models lists every persisted entity, in creation order.
func Models() []any {
	return []any{
		&participantdomain.Participant{},
		&participantdomain.StatusChange{},
		&offerdomain.Offer{},
		&commissiondomain.Policy{},
		&orderdomain.Order{},
		&settlementdomain.Settlement{},
		&settlementdomain.Line{},
	}
}

// Run creates the schema so the service works out of the box for local and
// self-hosted environments.
func Run(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)
