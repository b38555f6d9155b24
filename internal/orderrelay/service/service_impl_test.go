package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/relaygrid/internal/config"
	"github.com/smallbiznis/relaygrid/internal/extension"
	"github.com/smallbiznis/relaygrid/internal/metrics"
	"github.com/smallbiznis/relaygrid/internal/migration"
	offerdomain "github.com/smallbiznis/relaygrid/internal/offer/domain"
	offerrepository "github.com/smallbiznis/relaygrid/internal/offer/repository"
	"github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	"github.com/smallbiznis/relaygrid/internal/orderrelay/repository"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	participantrepository "github.com/smallbiznis/relaygrid/internal/participant/repository"
	participantservice "github.com/smallbiznis/relaygrid/internal/participant/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID int64 = 8001

type env struct {
	db       *gorm.DB
	node     *snowflake.Node
	registry *extension.Registry
	repo     domain.Repository
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
	repo := repository.Provide()

	svc := New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         repo,
		OfferRepo:    offerrepository.Provide(),
		Participants: participants,
		Registry:     registry,
		Metrics:      metrics.New(),
	})
	return &env{db: conn, node: node, registry: registry, repo: repo, svc: svc}
}

func newEnvWithRepo(t *testing.T, wrap func(domain.Repository) domain.Repository) *env {
	t.Helper()
	e := newEnv(t)
	e.repo = wrap(e.repo)

	participants := participantservice.New(participantservice.Params{
		Cfg:   config.Config{AuthorizationEnforced: true},
		DB:    e.db,
		Log:   zap.NewNop(),
		GenID: e.node,
		Repo:  participantrepository.Provide(),
	})
	e.svc = New(Params{
		DB:           e.db,
		Log:          zap.NewNop(),
		GenID:        e.node,
		Repo:         e.repo,
		OfferRepo:    offerrepository.Provide(),
		Participants: participants,
		Registry:     e.registry,
		Metrics:      metrics.New(),
	})
	return e
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

func (e *env) offer(t *testing.T, supplierID, sellerID snowflake.ID, category string, priceCents int64, active bool) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	o := &offerdomain.Offer{
		ID:         e.node.Generate(),
		OrgID:      snowflake.ID(testOrgID),
		SupplierID: supplierID,
		SellerID:   sellerID,
		SKU:        fmt.Sprintf("SKU-%d", e.node.Generate()),
		Name:       "Widget",
		Category:   category,
		PriceCents: priceCents,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, offerrepository.Provide().Create(testCtx(), e.db, o))
	return o.ID
}

func (e *env) createOrder(t *testing.T, offerID, sellerID snowflake.ID, ref string, amountCents int64) *domain.Response {
	t.Helper()
	resp, err := e.svc.Create(testCtx(), domain.CreateRequest{
		OrderRef:    ref,
		BuyerRef:    "buyer-1",
		SellerID:    sellerID.String(),
		OfferID:     offerID.String(),
		AmountCents: amountCents,
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, resp.Status)
	return resp
}

func TestFullLifecycle(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "electronics", 10000, true)

	order := e.createOrder(t, offerID, seller, "ORD-1001", 10000)

	relayed, err := e.svc.Relay(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRelayed, relayed.Status)
	require.NotNil(t, relayed.RelayedAt)

	confirmed, err := e.svc.Confirm(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	carrier := "DHL"
	tracking := "TRK1"
	shipped, err := e.svc.Ship(testCtx(), domain.ShipRequest{ID: order.ID, Carrier: &carrier, TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, shipped.Status)
	require.NotNil(t, shipped.TrackingNumber)
	assert.Equal(t, "TRK1", *shipped.TrackingNumber)

	delivered, err := e.svc.Deliver(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// Re-read confirms persistence, including the shipping details.
	got, err := e.svc.Get(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, got.Status)
	require.NotNil(t, got.Carrier)
	assert.Equal(t, "DHL", *got.Carrier)
	require.NotNil(t, got.TrackingNumber)
	assert.Equal(t, "TRK1", *got.TrackingNumber)
	assert.NotNil(t, got.RelayedAt)
	assert.NotNil(t, got.ConfirmedAt)
	assert.NotNil(t, got.ShippedAt)
	assert.NotNil(t, got.DeliveredAt)
}

func TestRelayIdempotent(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "", 5000, true)

	order := e.createOrder(t, offerID, seller, "ORD-2001", 5000)

	first, err := e.svc.Relay(testCtx(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, first.RelayedAt)

	second, err := e.svc.Relay(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRelayed, second.Status)
	require.NotNil(t, second.RelayedAt)
	assert.WithinDuration(t, *first.RelayedAt, *second.RelayedAt, time.Second)

	// Relay keeps succeeding further down the main path.
	_, err = e.svc.Confirm(testCtx(), order.ID)
	require.NoError(t, err)
	third, err := e.svc.Relay(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, third.Status)
}

type raceRepo struct {
	domain.Repository
	once    sync.Once
	compete func()
}

func (r *raceRepo) Transition(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from domain.Status, update domain.TransitionUpdate) (int64, error) {
	r.once.Do(r.compete)
	return r.Repository.Transition(ctx, db, orgID, id, from, update)
}

func TestRelayLostRaceIsSuccess(t *testing.T) {
	var race *raceRepo
	e := newEnvWithRepo(t, func(inner domain.Repository) domain.Repository {
		race = &raceRepo{Repository: inner}
		return race
	})
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "", 5000, true)

	order := e.createOrder(t, offerID, seller, "ORD-2002", 5000)
	orderID, err := snowflake.ParseString(order.ID)
	require.NoError(t, err)

	// A competing relay lands between our read and our guarded update.
	race.compete = func() {
		rows, err := repository.Provide().Transition(testCtx(), e.db, snowflake.ID(testOrgID), orderID,
			domain.StatusPending, domain.TransitionUpdate{To: domain.StatusRelayed, At: time.Now().UTC()})
		require.NoError(t, err)
		require.EqualValues(t, 1, rows)
	}

	resp, err := e.svc.Relay(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRelayed, resp.Status)
}

func TestIllegalTransitions(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "", 5000, true)

	order := e.createOrder(t, offerID, seller, "ORD-3001", 5000)

	_, err := e.svc.Confirm(testCtx(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = e.svc.Deliver(testCtx(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = e.svc.Refund(testCtx(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Failed transitions leave the order untouched.
	got, err := e.svc.Get(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.DeliveredAt)
}

func TestCancelledOrderIsTerminalForRelay(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "", 5000, true)

	order := e.createOrder(t, offerID, seller, "ORD-3002", 5000)

	cancelled, err := e.svc.Cancel(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = e.svc.Relay(testCtx(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRefundAfterDelivery(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "", 5000, true)

	order := e.createOrder(t, offerID, seller, "ORD-3003", 5000)
	for _, step := range []func(context.Context, string) (*domain.Response, error){
		e.svc.Relay, e.svc.Confirm,
	} {
		_, err := step(testCtx(), order.ID)
		require.NoError(t, err)
	}
	_, err := e.svc.Ship(testCtx(), domain.ShipRequest{ID: order.ID})
	require.NoError(t, err)
	_, err = e.svc.Deliver(testCtx(), order.ID)
	require.NoError(t, err)

	refunded, err := e.svc.Refund(testCtx(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAt)

	// Refund is terminal.
	_, err = e.svc.Refund(testCtx(), order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCreateVetoedByHook(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.registry.Register(extension.Extension{
		Name: "fraud-screen",
		Kind: extension.KindOrder,
		BeforeCreate: func(ctx context.Context, hc extension.HookContext) error {
			if amount, ok := hc.After["amount_cents"].(int64); ok && amount > 100000 {
				return errors.New("amount exceeds screening threshold")
			}
			return nil
		},
	}))

	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "", 5000, true)

	_, err := e.svc.Create(testCtx(), domain.CreateRequest{
		OrderRef:    "ORD-4001",
		SellerID:    seller.String(),
		OfferID:     offerID.String(),
		AmountCents: 200000,
	})
	assert.ErrorIs(t, err, extension.ErrVetoed)

	// The veto happens before any write.
	orders, err := e.svc.List(testCtx(), domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, orders)

	// Under the threshold the same request goes through.
	e.createOrder(t, offerID, seller, "ORD-4001", 5000)
}

func TestCreateValidations(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	pendingSeller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusPending)
	offerID := e.offer(t, supplier, seller, "", 5000, true)
	inactiveOffer := e.offer(t, supplier, seller, "", 5000, false)

	_, err := e.svc.Create(testCtx(), domain.CreateRequest{OrderRef: "", SellerID: seller.String(), OfferID: offerID.String(), AmountCents: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidOrderRef)

	_, err = e.svc.Create(testCtx(), domain.CreateRequest{OrderRef: "ORD-5001", SellerID: seller.String(), OfferID: offerID.String(), AmountCents: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = e.svc.Create(testCtx(), domain.CreateRequest{OrderRef: "ORD-5002", SellerID: seller.String(), OfferID: inactiveOffer.String(), AmountCents: 100})
	assert.ErrorIs(t, err, domain.ErrOfferInactive)

	_, err = e.svc.Create(testCtx(), domain.CreateRequest{OrderRef: "ORD-5003", SellerID: pendingSeller.String(), OfferID: offerID.String(), AmountCents: 100})
	assert.ErrorIs(t, err, participantdomain.ErrNotEligible)

	_, err = e.svc.Create(testCtx(), domain.CreateRequest{OrderRef: "ORD-5004", SellerID: seller.String(), OfferID: "999999", AmountCents: 100})
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)
}

func TestCreateDuplicateOrderRefReturnsExisting(t *testing.T) {
	e := newEnv(t)
	supplier := e.participant(t, participantdomain.TypeSupplier, participantdomain.StatusActive)
	seller := e.participant(t, participantdomain.TypeSeller, participantdomain.StatusActive)
	offerID := e.offer(t, supplier, seller, "", 5000, true)

	first := e.createOrder(t, offerID, seller, "ORD-6001", 5000)

	second, err := e.svc.Create(testCtx(), domain.CreateRequest{
		OrderRef:    "ORD-6001",
		BuyerRef:    "buyer-1",
		SellerID:    seller.String(),
		OfferID:     offerID.String(),
		AmountCents: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	orders, err := e.svc.List(testCtx(), domain.ListRequest{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
