package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/relaygrid/internal/config"
	"github.com/smallbiznis/relaygrid/internal/extension"
	"github.com/smallbiznis/relaygrid/internal/extension/categoryblock"
	"github.com/smallbiznis/relaygrid/internal/metrics"
	"github.com/smallbiznis/relaygrid/internal/migration"
	"github.com/smallbiznis/relaygrid/internal/offer/domain"
	"github.com/smallbiznis/relaygrid/internal/offer/repository"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	participantrepository "github.com/smallbiznis/relaygrid/internal/participant/repository"
	participantservice "github.com/smallbiznis/relaygrid/internal/participant/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID int64 = 6001

type env struct {
	db       *gorm.DB
	node     *snowflake.Node
	registry *extension.Registry
	svc      domain.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	participants := participantservice.New(participantservice.Params{
		Cfg:   config.Config{AuthorizationEnforced: true},
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  participantrepository.Provide(),
	})

	registry := extension.NewRegistry(zap.NewNop())
	svc := New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         repository.Provide(),
		Participants: participants,
		Registry:     registry,
		Metrics:      metrics.New(),
	})
	return &env{db: conn, node: node, registry: registry, svc: svc}
}

func testCtx() context.Context {
	return orgcontext.WithOrgID(context.Background(), testOrgID)
}

func (e *env) participant(t *testing.T, participantType participantdomain.Type, status participantdomain.Status) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	p := &participantdomain.Participant{
		ID:        e.node.Generate(),
		OrgID:     snowflake.ID(testOrgID),
		Type:      participantType,
		Name:      fmt.Sprintf("%s-%s", participantType, status),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, participantrepository.Provide().Create(testCtx(), e.db, p))
	return p.ID
}

func TestCreateOffer(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)

	resp, err := e.svc.Create(testCtx(), domain.CreateRequest{
		SupplierID: supplier.String(),
		SellerID:   seller.String(),
		SKU:        "WDG-1",
		Name:       "Widget",
		Category:   "electronics",
		PriceCents: 10000,
	})
	require.NoError(t, err)
	assert.True(t, resp.Active)
	assert.Equal(t, "electronics", resp.Category)

	// Same SKU within the org is rejected.
	_, err = e.svc.Create(testCtx(), domain.CreateRequest{
		SupplierID: supplier.String(),
		SellerID:   seller.String(),
		SKU:        "WDG-1",
		Name:       "Widget again",
		PriceCents: 9000,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestCreateOfferRequiresEligibleParticipants(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusSuspended)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)

	_, err := e.svc.Create(testCtx(), domain.CreateRequest{
		SupplierID: supplier.String(),
		SellerID:   seller.String(),
		SKU:        "WDG-2",
		Name:       "Widget",
		PriceCents: 10000,
	})
	assert.ErrorIs(t, err, participantdomain.ErrNotEligible)
}

func TestCategoryBlockVetoesOfferCreation(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.registry.Register(categoryblock.New("block-pharmaceutical", []string{"pharmaceutical"})))

	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)

	_, err := e.svc.Create(testCtx(), domain.CreateRequest{
		SupplierID: supplier.String(),
		SellerID:   seller.String(),
		SKU:        "RX-1",
		Name:       "Aspirin",
		Category:   "Pharmaceutical",
		PriceCents: 500,
	})
	assert.ErrorIs(t, err, extension.ErrVetoed)

	// Nothing was persisted.
	items, err := e.svc.List(testCtx(), domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, items)

	// Other categories pass the same registry.
	_, err = e.svc.Create(testCtx(), domain.CreateRequest{
		SupplierID: supplier.String(),
		SellerID:   seller.String(),
		SKU:        "TOY-1",
		Name:       "Kite",
		Category:   "toys",
		PriceCents: 1500,
	})
	assert.NoError(t, err)
}

func TestDeactivateOffer(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)

	created, err := e.svc.Create(testCtx(), domain.CreateRequest{
		SupplierID: supplier.String(),
		SellerID:   seller.String(),
		SKU:        "WDG-3",
		Name:       "Widget",
		PriceCents: 10000,
	})
	require.NoError(t, err)

	deactivated, err := e.svc.Deactivate(testCtx(), created.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	active := true
	items, err := e.svc.List(testCtx(), domain.ListRequest{Active: &active})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateOfferValidations(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)

	_, err := e.svc.Create(testCtx(), domain.CreateRequest{SupplierID: "nope", SellerID: seller.String(), SKU: "X", Name: "X", PriceCents: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidSupplier)

	_, err = e.svc.Create(testCtx(), domain.CreateRequest{SupplierID: supplier.String(), SellerID: seller.String(), SKU: "", Name: "X", PriceCents: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidSKU)

	_, err = e.svc.Create(testCtx(), domain.CreateRequest{SupplierID: supplier.String(), SellerID: seller.String(), SKU: "X", Name: "X", PriceCents: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}
