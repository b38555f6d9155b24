package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/relaygrid/internal/clock"
	commissiondomain "github.com/smallbiznis/relaygrid/internal/commission/domain"
	commissionrepository "github.com/smallbiznis/relaygrid/internal/commission/repository"
	"github.com/smallbiznis/relaygrid/internal/metrics"
	"github.com/smallbiznis/relaygrid/internal/migration"
	orderdomain "github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	participantrepository "github.com/smallbiznis/relaygrid/internal/participant/repository"
	"github.com/smallbiznis/relaygrid/internal/settlement/domain"
	"github.com/smallbiznis/relaygrid/internal/settlement/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testOrgID int64 = 9001

var (
	periodStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
)

type env struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(migration.Models()...))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	e := &env{db: conn, node: node, clock: fake}
	e.svc = New(Params{
		DB:              conn,
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           fake,
		Repo:            repository.Provide(),
		ParticipantRepo: participantrepository.Provide(),
		PolicyRepo:      commissionrepository.Provide(),
		Metrics:         metrics.New(),
	})
	return e
}

func (e *env) withRepo(t *testing.T, repo domain.Repository) domain.Service {
	t.Helper()
	return New(Params{
		DB:              e.db,
		Log:             zap.NewNop(),
		GenID:           e.node,
		Clock:           e.clock,
		Repo:            repo,
		ParticipantRepo: participantrepository.Provide(),
		PolicyRepo:      commissionrepository.Provide(),
		Metrics:         metrics.New(),
	})
}

func testCtx() context.Context {
	return orgcontext.WithOrgID(context.Background(), testOrgID)
}

func (e *env) seller(t *testing.T) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	p := &participantdomain.Participant{
		ID:        e.node.Generate(),
		OrgID:     snowflake.ID(testOrgID),
		Type:      participantdomain.TypeSeller,
		Name:      "Settled Shop",
		Status:    participantdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, participantrepository.Provide().Create(testCtx(), e.db, p))
	return p.ID
}

func (e *env) order(t *testing.T, sellerID snowflake.ID, amountCents int64, status orderdomain.Status, deliveredAt *time.Time, category string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	o := &orderdomain.Order{
		ID:          e.node.Generate(),
		OrgID:       snowflake.ID(testOrgID),
		OrderRef:    fmt.Sprintf("ORD-%d", e.node.Generate()),
		SellerID:    sellerID,
		SupplierID:  e.node.Generate(),
		OfferID:     e.node.Generate(),
		AmountCents: amountCents,
		Category:    category,
		Status:      status,
		DeliveredAt: deliveredAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, e.db.Create(o).Error)
	return o.ID
}

func (e *env) globalPolicy(t *testing.T, bps int64) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	p := &commissiondomain.Policy{
		ID:              e.node.Generate(),
		OrgID:           snowflake.ID(testOrgID),
		Type:            commissiondomain.PolicyTypePercentage,
		RateBasisPoints: bps,
		Scope:           commissiondomain.ScopeGlobal,
		Priority:        100,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, commissionrepository.Provide().Create(testCtx(), e.db, p))
	return p.ID
}

func deliveredOn(day int) *time.Time {
	ts := time.Date(2026, 1, day, 10, 0, 0, 0, time.UTC)
	return &ts
}

func TestPreviewAndFinalize(t *testing.T) {
	e := newEnv(t)
	sellerID := e.seller(t)
	policyID := e.globalPolicy(t, 1000)

	e.order(t, sellerID, 10000, orderdomain.StatusDelivered, deliveredOn(10), "")
	e.order(t, sellerID, 5000, orderdomain.StatusDelivered, deliveredOn(20), "")

	// Outside the period, refunded, and not yet delivered: all excluded.
	febDelivery := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	e.order(t, sellerID, 9999, orderdomain.StatusDelivered, &febDelivery, "")
	e.order(t, sellerID, 7000, orderdomain.StatusRefunded, deliveredOn(20), "")
	e.order(t, sellerID, 3000, orderdomain.StatusPending, nil, "")

	req := domain.PeriodRequest{ParticipantID: sellerID.String(), PeriodStart: periodStart, PeriodEnd: periodEnd}

	preview, err := e.svc.Preview(testCtx(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), preview.TotalAmountCents)
	assert.Equal(t, int64(1500), preview.TotalCommissionCents)
	assert.Equal(t, int64(13500), preview.NetPayableCents)
	assert.Equal(t, 2, preview.OrderCount)

	// Preview persists nothing.
	settlements, err := e.svc.List(testCtx(), sellerID.String())
	require.NoError(t, err)
	assert.Empty(t, settlements)

	finalized, err := e.svc.Finalize(testCtx(), req)
	require.NoError(t, err)
	assert.Equal(t, preview.TotalAmountCents, finalized.TotalAmountCents)
	assert.Equal(t, preview.TotalCommissionCents, finalized.TotalCommissionCents)
	assert.Equal(t, preview.NetPayableCents, finalized.NetPayableCents)
	assert.Equal(t, domain.StatusFinalized, finalized.Status)
	require.Len(t, finalized.Lines, 2)
	for _, line := range finalized.Lines {
		require.NotNil(t, line.PolicyID)
		assert.Equal(t, policyID.String(), *line.PolicyID)
	}

	// The settled orders carry the settlement id.
	settlementID, err := snowflake.ParseString(finalized.ID)
	require.NoError(t, err)
	var stamped int64
	require.NoError(t, e.db.Model(&orderdomain.Order{}).
		Where("settlement_id = ?", settlementID).Count(&stamped).Error)
	assert.EqualValues(t, 2, stamped)

	got, err := e.svc.Get(testCtx(), finalized.ID)
	require.NoError(t, err)
	assert.Equal(t, finalized.NetPayableCents, got.NetPayableCents)
	assert.Len(t, got.Lines, 2)
}

func TestSecondFinalizeIsEmpty(t *testing.T) {
	e := newEnv(t)
	sellerID := e.seller(t)
	e.globalPolicy(t, 1000)

	e.order(t, sellerID, 10000, orderdomain.StatusDelivered, deliveredOn(10), "")

	req := domain.PeriodRequest{ParticipantID: sellerID.String(), PeriodStart: periodStart, PeriodEnd: periodEnd}

	first, err := e.svc.Finalize(testCtx(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.OrderCount)

	// Everything in the period is settled now; a re-run settles nothing.
	second, err := e.svc.Finalize(testCtx(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.OrderCount)
	assert.Zero(t, second.TotalAmountCents)
	assert.Zero(t, second.NetPayableCents)
	assert.NotEqual(t, first.ID, second.ID)
}

// staleRepo replays an order selection captured before a competing
// settlement landed, reproducing the select/stamp race window.
type staleRepo struct {
	domain.Repository
	stale []orderdomain.Order
}

func (r *staleRepo) FindUnsettledDelivered(ctx context.Context, db *gorm.DB, orgID snowflake.ID, participantType participantdomain.Type, participantID snowflake.ID, start, end time.Time) ([]orderdomain.Order, error) {
	return r.stale, nil
}

func TestConcurrentFinalizeLoserConflicts(t *testing.T) {
	e := newEnv(t)
	sellerID := e.seller(t)
	e.globalPolicy(t, 1000)

	e.order(t, sellerID, 10000, orderdomain.StatusDelivered, deliveredOn(10), "")
	e.order(t, sellerID, 5000, orderdomain.StatusDelivered, deliveredOn(20), "")

	stale, err := repository.Provide().FindUnsettledDelivered(testCtx(), e.db, snowflake.ID(testOrgID),
		participantdomain.TypeSeller, sellerID, periodStart, periodEnd)
	require.NoError(t, err)
	require.Len(t, stale, 2)

	req := domain.PeriodRequest{ParticipantID: sellerID.String(), PeriodStart: periodStart, PeriodEnd: periodEnd}

	winner, err := e.svc.Finalize(testCtx(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, winner.OrderCount)

	loser := e.withRepo(t, &staleRepo{Repository: repository.Provide(), stale: stale})
	_, err = loser.Finalize(testCtx(), req)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// The losing attempt left nothing behind.
	settlements, err := e.svc.List(testCtx(), sellerID.String())
	require.NoError(t, err)
	assert.Len(t, settlements, 1)

	var lines int64
	require.NoError(t, e.db.Model(&domain.Line{}).Count(&lines).Error)
	assert.EqualValues(t, 2, lines)
}

func TestStampOrdersGuard(t *testing.T) {
	e := newEnv(t)
	sellerID := e.seller(t)

	o1 := e.order(t, sellerID, 10000, orderdomain.StatusDelivered, deliveredOn(10), "")
	o2 := e.order(t, sellerID, 5000, orderdomain.StatusDelivered, deliveredOn(20), "")

	repo := repository.Provide()
	first := e.node.Generate()
	rows, err := repo.StampOrders(testCtx(), e.db, snowflake.ID(testOrgID), first, []snowflake.ID{o1, o2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, rows)

	// A later settlement cannot re-claim already stamped orders.
	rows, err = repo.StampOrders(testCtx(), e.db, snowflake.ID(testOrgID), e.node.Generate(), []snowflake.ID{o1, o2})
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestFinalizeValidations(t *testing.T) {
	e := newEnv(t)
	sellerID := e.seller(t)

	_, err := e.svc.Finalize(testCtx(), domain.PeriodRequest{
		ParticipantID: sellerID.String(),
		PeriodStart:   periodEnd,
		PeriodEnd:     periodStart,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = e.svc.Preview(testCtx(), domain.PeriodRequest{
		ParticipantID: "999999",
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
	})
	assert.ErrorIs(t, err, participantdomain.ErrNotFound)
}

func TestCommissionUsesCategoryPolicy(t *testing.T) {
	e := newEnv(t)
	sellerID := e.seller(t)
	e.globalPolicy(t, 1000)

	now := time.Now().UTC()
	category := &commissiondomain.Policy{
		ID:              e.node.Generate(),
		OrgID:           snowflake.ID(testOrgID),
		Type:            commissiondomain.PolicyTypePercentage,
		RateBasisPoints: 1500,
		Scope:           commissiondomain.ScopeCategory,
		CategoryCode:    "electronics",
		Priority:        10,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, commissionrepository.Provide().Create(testCtx(), e.db, category))

	e.order(t, sellerID, 10000, orderdomain.StatusDelivered, deliveredOn(10), "electronics")

	preview, err := e.svc.Preview(testCtx(), domain.PeriodRequest{
		ParticipantID: sellerID.String(),
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1500), preview.TotalCommissionCents)
	require.Len(t, preview.Lines, 1)
	require.NotNil(t, preview.Lines[0].PolicyID)
	assert.Equal(t, category.ID.String(), *preview.Lines[0].PolicyID)
}
