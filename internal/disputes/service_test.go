package disputes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubDisputesRepo struct {
	byID map[uuid.UUID]*models.Dispute
}

func newStubDisputesRepo() *stubDisputesRepo {
	return &stubDisputesRepo{byID: make(map[uuid.UUID]*models.Dispute)}
}

func (s *stubDisputesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubDisputesRepo) Create(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	s.byID[dispute.ID] = dispute
	return dispute, nil
}

func (s *stubDisputesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	if dispute, ok := s.byID[id]; ok {
		return dispute, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubDisputesRepo) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Dispute, int64, error) {
	var out []models.Dispute
	for _, dispute := range s.byID {
		if filter.UserID != nil && dispute.UserID != *filter.UserID {
			continue
		}
		if filter.StoreID != nil && dispute.StoreID != *filter.StoreID {
			continue
		}
		if filter.Status != nil && dispute.Status != *filter.Status {
			continue
		}
		out = append(out, *dispute)
	}
	return out, int64(len(out)), nil
}

func (s *stubDisputesRepo) Save(ctx context.Context, dispute *models.Dispute) error {
	s.byID[dispute.ID] = dispute
	return nil
}

type stubOrderLookup struct {
	orders.Repository
	byID map[uuid.UUID]*models.Order
}

func (s *stubOrderLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if order, ok := s.byID[id]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubStoreLookup struct {
	stores.Repository
	byID map[uuid.UUID]*models.Store
}

func (s *stubStoreLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if store, ok := s.byID[id]; ok {
		return store, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubRefunder struct {
	refunded map[uuid.UUID]string
}

func (s *stubRefunder) RefundForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	s.refunded[orderID] = reason
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type disputesFixture struct {
	svc      Service
	repo     *stubDisputesRepo
	refunder *stubRefunder
	customer *models.User
	store    *models.Store
	order    *models.Order
	adminID  uuid.UUID
}

func newDisputesFixture(t *testing.T) *disputesFixture {
	t.Helper()

	customer := &models.User{ID: uuid.New(), Role: enums.UserRoleCustomer}
	store := &models.Store{ID: uuid.New(), OwnerID: uuid.New(), Name: "Deli", Status: enums.StoreStatusApproved}
	order := &models.Order{
		ID:      uuid.New(),
		UserID:  customer.ID,
		StoreID: store.ID,
		Status:  enums.OrderStatusDelivered,
	}

	repo := newStubDisputesRepo()
	ordersRepo := &stubOrderLookup{byID: map[uuid.UUID]*models.Order{order.ID: order}}
	storesRepo := &stubStoreLookup{byID: map[uuid.UUID]*models.Store{store.ID: store}}
	refunder := &stubRefunder{refunded: make(map[uuid.UUID]string)}

	svc, err := NewService(repo, ordersRepo, storesRepo, refunder, stubTxRunner{})
	require.NoError(t, err)

	return &disputesFixture{
		svc:      svc,
		repo:     repo,
		refunder: refunder,
		customer: customer,
		store:    store,
		order:    order,
		adminID:  uuid.New(),
	}
}

func (f *disputesFixture) file(t *testing.T) *models.Dispute {
	t.Helper()
	dispute, err := f.svc.Create(context.Background(), CreateInput{
		UserID:      f.customer.ID,
		OrderID:     f.order.ID,
		Subject:     "Cold food",
		Description: "The whole order arrived cold.",
	})
	require.NoError(t, err)
	return dispute
}

func TestCreateOpensWithTimelineEntry(t *testing.T) {
	f := newDisputesFixture(t)

	dispute := f.file(t)

	require.Equal(t, enums.DisputeStatusOpen, dispute.Status)
	require.Equal(t, f.order.StoreID, dispute.StoreID)
	require.Len(t, dispute.Timeline, 1)
	require.Equal(t, "opened", dispute.Timeline[0].Action)
}

func TestCreateRequiresOrderOwnership(t *testing.T) {
	f := newDisputesFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		UserID:      uuid.New(),
		OrderID:     f.order.ID,
		Subject:     "Cold food",
		Description: "Arrived cold.",
	})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestAddCommentAppendsTimeline(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)

	actor := Actor{UserID: f.customer.ID, Role: enums.UserRoleCustomer}
	updated, err := f.svc.AddComment(context.Background(), actor, dispute.ID, "Any update?")
	require.NoError(t, err)
	require.Len(t, updated.Timeline, 2)
	require.Equal(t, "comment", updated.Timeline[1].Action)
	require.Equal(t, "customer", updated.Timeline[1].Actor)
}

func TestAddCommentOnSettledDisputeRejected(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)

	_, err := f.svc.Resolve(context.Background(), ResolveInput{
		AdminID:    f.adminID,
		DisputeID:  dispute.ID,
		Resolution: enums.DisputeResolutionNoAction,
	})
	require.NoError(t, err)

	actor := Actor{UserID: f.customer.ID, Role: enums.UserRoleCustomer}
	_, err = f.svc.AddComment(context.Background(), actor, dispute.ID, "Any update?")
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestUpdateStatusFollowsTriageFlow(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)
	ctx := context.Background()

	updated, err := f.svc.UpdateStatus(ctx, f.adminID, dispute.ID, enums.DisputeStatusUnderReview)
	require.NoError(t, err)
	require.Equal(t, enums.DisputeStatusUnderReview, updated.Status)
	require.Equal(t, "status_changed", updated.Timeline[len(updated.Timeline)-1].Action)

	// No way back to open.
	_, err = f.svc.UpdateStatus(ctx, f.adminID, dispute.ID, enums.DisputeStatusOpen)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	// Resolved is reserved for Resolve.
	_, err = f.svc.UpdateStatus(ctx, f.adminID, dispute.ID, enums.DisputeStatusResolved)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestResolveFullRefundTriggersPaymentRefund(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)

	resolved, err := f.svc.Resolve(context.Background(), ResolveInput{
		AdminID:    f.adminID,
		DisputeID:  dispute.ID,
		Resolution: enums.DisputeResolutionRefundFull,
		Notes:      "store at fault",
	})
	require.NoError(t, err)

	require.Equal(t, enums.DisputeStatusResolved, resolved.Status)
	require.Equal(t, enums.DisputeResolutionRefundFull, *resolved.Resolution)
	require.Equal(t, f.adminID, *resolved.ResolvedBy)
	require.NotNil(t, resolved.ResolvedAt)
	require.Equal(t, "store at fault", *resolved.ResolutionNotes)
	require.Equal(t, "dispute refund_full", f.refunder.refunded[f.order.ID])
}

func TestResolveNoActionSkipsRefund(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)

	_, err := f.svc.Resolve(context.Background(), ResolveInput{
		AdminID:    f.adminID,
		DisputeID:  dispute.ID,
		Resolution: enums.DisputeResolutionNoAction,
	})
	require.NoError(t, err)
	require.Empty(t, f.refunder.refunded)
}

func TestResolvePartialRefundNeedsAmount(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)

	_, err := f.svc.Resolve(context.Background(), ResolveInput{
		AdminID:    f.adminID,
		DisputeID:  dispute.ID,
		Resolution: enums.DisputeResolutionRefundPartial,
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	amount := int64(5000)
	resolved, err := f.svc.Resolve(context.Background(), ResolveInput{
		AdminID:           f.adminID,
		DisputeID:         dispute.ID,
		Resolution:        enums.DisputeResolutionRefundPartial,
		RefundAmountCents: &amount,
	})
	require.NoError(t, err)
	require.EqualValues(t, 5000, *resolved.RefundAmountCents)
	require.Equal(t, "dispute refund_partial", f.refunder.refunded[f.order.ID])
}

func TestResolveTwiceRejected(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)

	input := ResolveInput{
		AdminID:    f.adminID,
		DisputeID:  dispute.ID,
		Resolution: enums.DisputeResolutionNoAction,
	}
	_, err := f.svc.Resolve(context.Background(), input)
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), input)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestGetScopesToOwnerAndAdmin(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, Actor{UserID: f.customer.ID, Role: enums.UserRoleCustomer}, dispute.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}, dispute.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}, dispute.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestGetAllowsOwnerOfDisputedStore(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, Actor{UserID: f.store.OwnerID, Role: enums.UserRoleStoreOwner}, dispute.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.UserRoleStoreOwner}, dispute.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestListForStoreOwnershipEnforced(t *testing.T) {
	f := newDisputesFixture(t)
	dispute := f.file(t)
	ctx := context.Background()

	disputes, page, err := f.svc.ListForStore(ctx, f.store.OwnerID, f.store.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, disputes, 1)
	require.Equal(t, dispute.ID, disputes[0].ID)
	require.EqualValues(t, 1, page.Total)

	_, _, err = f.svc.ListForStore(ctx, uuid.New(), f.store.ID, pagination.Params{})
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, _, err = f.svc.ListForStore(ctx, f.store.OwnerID, uuid.New(), pagination.Params{})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
