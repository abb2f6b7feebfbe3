package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/payments"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubPayoutsRepo struct {
	byID map[uuid.UUID]*models.Payout
}

func newStubPayoutsRepo() *stubPayoutsRepo {
	return &stubPayoutsRepo{byID: make(map[uuid.UUID]*models.Payout)}
}

func (s *stubPayoutsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPayoutsRepo) Create(ctx context.Context, payout *models.Payout) (*models.Payout, error) {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	s.byID[payout.ID] = payout
	return payout, nil
}

func (s *stubPayoutsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	if payout, ok := s.byID[id]; ok {
		return payout, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPayoutsRepo) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payout, int64, error) {
	var out []models.Payout
	for _, payout := range s.byID {
		if filter.StoreID != nil && payout.StoreID != *filter.StoreID {
			continue
		}
		if filter.Status != nil && payout.Status != *filter.Status {
			continue
		}
		out = append(out, *payout)
	}
	return out, int64(len(out)), nil
}

func (s *stubPayoutsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	payout, ok := s.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.PayoutStatus); ok {
		payout.Status = status
	}
	if adminID, ok := updates["approved_by"].(uuid.UUID); ok {
		payout.ApprovedBy = &adminID
	}
	if at, ok := updates["approved_at"].(time.Time); ok {
		payout.ApprovedAt = &at
	}
	if transferID, ok := updates["transfer_id"].(string); ok {
		payout.TransferID = &transferID
	}
	if at, ok := updates["completed_at"].(time.Time); ok {
		payout.CompletedAt = &at
	}
	if reason, ok := updates["failure_reason"].(string); ok {
		payout.FailureReason = &reason
	}
	return nil
}

func (s *stubPayoutsRepo) FindLastForStore(ctx context.Context, storeID uuid.UUID) (*models.Payout, error) {
	var last *models.Payout
	for _, payout := range s.byID {
		if payout.StoreID != storeID {
			continue
		}
		if last == nil || payout.PeriodEnd.After(last.PeriodEnd) {
			last = payout
		}
	}
	if last == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return last, nil
}

func (s *stubPayoutsRepo) EarningsByStore(ctx context.Context, storeID uuid.UUID) (int64, int64, error) {
	var paidOut, inPayouts int64
	for _, payout := range s.byID {
		if payout.StoreID != storeID {
			continue
		}
		switch payout.Status {
		case enums.PayoutStatusCompleted:
			paidOut += payout.NetCents
		case enums.PayoutStatusPending, enums.PayoutStatusApproved:
			inPayouts += payout.NetCents
		}
	}
	return paidOut, inPayouts, nil
}

type stubPaymentsLookup struct {
	payments.Repository
	byID map[uuid.UUID]*models.Payment
}

func newStubPaymentsLookup() *stubPaymentsLookup {
	return &stubPaymentsLookup{byID: make(map[uuid.UUID]*models.Payment)}
}

func (s *stubPaymentsLookup) WithTx(tx *gorm.DB) payments.Repository { return s }

func (s *stubPaymentsLookup) FindEligibleForPayout(ctx context.Context, storeID uuid.UUID, start, end time.Time) ([]models.Payment, error) {
	var out []models.Payment
	for _, payment := range s.byID {
		if payment.StoreID != storeID {
			continue
		}
		if payment.Status != enums.PaymentStatusCompleted || payment.PayoutStatus != enums.PaymentPayoutStatusEligible {
			continue
		}
		if payment.CreatedAt.Before(start) || payment.CreatedAt.After(end) {
			continue
		}
		out = append(out, *payment)
	}
	return out, nil
}

func (s *stubPaymentsLookup) MarkPayoutStatus(ctx context.Context, paymentIDs []uuid.UUID, status enums.PaymentPayoutStatus, updates map[string]any) error {
	for _, id := range paymentIDs {
		payment, ok := s.byID[id]
		if !ok {
			continue
		}
		payment.PayoutStatus = status
		if payoutID, ok := updates["payout_id"].(uuid.UUID); ok {
			payment.PayoutID = &payoutID
		}
		if date, ok := updates["payout_date"].(time.Time); ok {
			payment.PayoutDate = &date
		}
	}
	return nil
}

func (s *stubPaymentsLookup) Totals(ctx context.Context, filter payments.ListFilter) (*payments.Totals, error) {
	totals := &payments.Totals{}
	for _, payment := range s.byID {
		if filter.StoreID != nil && payment.StoreID != *filter.StoreID {
			continue
		}
		if filter.PayoutStatus != nil && payment.PayoutStatus != *filter.PayoutStatus {
			continue
		}
		totals.Count++
		totals.AmountCents += payment.AmountCents
		totals.CommissionCents += payment.CommissionCents
		totals.PayoutCents += payment.PayoutCents
	}
	return totals, nil
}

type stubStoresLookup struct {
	stores.Repository
	byID map[uuid.UUID]*models.Store
}

func (s *stubStoresLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if store, ok := s.byID[id]; ok {
		return store, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type payoutsFixture struct {
	svc          Service
	repo         *stubPayoutsRepo
	paymentsRepo *stubPaymentsLookup
	store        *models.Store
	adminID      uuid.UUID
}

func newPayoutsFixture(t *testing.T) *payoutsFixture {
	t.Helper()

	store := &models.Store{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Name:    "Corner Deli",
		Status:  enums.StoreStatusApproved,
	}
	repo := newStubPayoutsRepo()
	paymentsRepo := newStubPaymentsLookup()
	storesRepo := &stubStoresLookup{byID: map[uuid.UUID]*models.Store{store.ID: store}}

	svc, err := NewService(repo, paymentsRepo, storesRepo, stubTxRunner{}, config.PayoutConfig{
		DefaultCommissionRate: "10",
		EarlyRequestLookback:  168 * time.Hour,
	})
	require.NoError(t, err)

	return &payoutsFixture{
		svc:          svc,
		repo:         repo,
		paymentsRepo: paymentsRepo,
		store:        store,
		adminID:      uuid.New(),
	}
}

func (f *payoutsFixture) seedEligiblePayment(amount, commission int64, createdAt time.Time) *models.Payment {
	payment := &models.Payment{
		ID:              uuid.New(),
		OrderID:         uuid.New(),
		UserID:          uuid.New(),
		StoreID:         f.store.ID,
		AmountCents:     amount,
		CommissionCents: commission,
		PayoutCents:     amount - commission,
		Status:          enums.PaymentStatusCompleted,
		PayoutStatus:    enums.PaymentPayoutStatusEligible,
		CreatedAt:       createdAt,
	}
	f.paymentsRepo.byID[payment.ID] = payment
	return payment
}

func (f *payoutsFixture) generate(t *testing.T) *models.Payout {
	t.Helper()
	now := time.Now().UTC()
	payout, err := f.svc.Generate(context.Background(), GenerateInput{
		AdminID:     f.adminID,
		StoreID:     f.store.ID,
		PeriodStart: now.Add(-time.Hour),
		PeriodEnd:   now.Add(time.Hour),
	})
	require.NoError(t, err)
	return payout
}

func TestGenerateSnapshotsTotals(t *testing.T) {
	f := newPayoutsFixture(t)
	now := time.Now().UTC()

	f.seedEligiblePayment(10000, 1000, now)
	f.seedEligiblePayment(20000, 2000, now)
	f.seedEligiblePayment(30000, 3000, now)

	payout := f.generate(t)

	require.EqualValues(t, 60000, payout.GrossCents)
	require.EqualValues(t, 6000, payout.CommissionCents)
	require.EqualValues(t, 54000, payout.NetCents)
	require.Equal(t, payout.NetCents, payout.GrossCents-payout.CommissionCents)
	require.Len(t, payout.PaymentIDs, 3)
	require.Equal(t, enums.PayoutStatusPending, payout.Status)
	require.Nil(t, payout.RequestedBy)

	for _, payment := range f.paymentsRepo.byID {
		require.Equal(t, enums.PaymentPayoutStatusProcessing, payment.PayoutStatus)
	}
}

func TestGenerateEmptyPeriodRejected(t *testing.T) {
	f := newPayoutsFixture(t)
	now := time.Now().UTC()

	_, err := f.svc.Generate(context.Background(), GenerateInput{
		AdminID:     f.adminID,
		StoreID:     f.store.ID,
		PeriodStart: now.Add(-time.Hour),
		PeriodEnd:   now,
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	require.Empty(t, f.repo.byID)
}

func TestGenerateInvalidPeriodRejected(t *testing.T) {
	f := newPayoutsFixture(t)
	now := time.Now().UTC()

	_, err := f.svc.Generate(context.Background(), GenerateInput{
		AdminID:     f.adminID,
		StoreID:     f.store.ID,
		PeriodStart: now,
		PeriodEnd:   now.Add(-time.Hour),
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestGenerateSkipsAlreadyBatchedPayments(t *testing.T) {
	f := newPayoutsFixture(t)
	now := time.Now().UTC()

	f.seedEligiblePayment(10000, 1000, now)
	first := f.generate(t)
	require.Len(t, first.PaymentIDs, 1)

	// The payment now sits in a processing batch and must not be picked
	// up again.
	_, err := f.svc.Generate(context.Background(), GenerateInput{
		AdminID:     f.adminID,
		StoreID:     f.store.ID,
		PeriodStart: now.Add(-time.Hour),
		PeriodEnd:   now.Add(time.Hour),
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestApproveOnlyFromPending(t *testing.T) {
	f := newPayoutsFixture(t)
	f.seedEligiblePayment(10000, 1000, time.Now().UTC())
	payout := f.generate(t)

	approved, err := f.svc.Approve(context.Background(), f.adminID, payout.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusApproved, approved.Status)
	require.Equal(t, f.adminID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)

	_, err = f.svc.Approve(context.Background(), f.adminID, payout.ID)
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestCompleteSettlesReferencedPayments(t *testing.T) {
	f := newPayoutsFixture(t)
	payment := f.seedEligiblePayment(10000, 1000, time.Now().UTC())
	payout := f.generate(t)

	_, err := f.svc.Approve(context.Background(), f.adminID, payout.ID)
	require.NoError(t, err)

	completed, err := f.svc.Complete(context.Background(), CompleteInput{
		PayoutID:   payout.ID,
		TransferID: "tr_789",
	})
	require.NoError(t, err)

	require.Equal(t, enums.PayoutStatusCompleted, completed.Status)
	require.Equal(t, "tr_789", *completed.TransferID)
	require.NotNil(t, completed.CompletedAt)

	settled := f.paymentsRepo.byID[payment.ID]
	require.Equal(t, enums.PaymentPayoutStatusCompleted, settled.PayoutStatus)
	require.Equal(t, payout.ID, *settled.PayoutID)
	require.NotNil(t, settled.PayoutDate)
}

func TestCompleteRequiresApprovalAndTransferID(t *testing.T) {
	f := newPayoutsFixture(t)
	f.seedEligiblePayment(10000, 1000, time.Now().UTC())
	payout := f.generate(t)

	_, err := f.svc.Complete(context.Background(), CompleteInput{PayoutID: payout.ID, TransferID: "tr_1"})
	require.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	_, err = f.svc.Approve(context.Background(), f.adminID, payout.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), CompleteInput{PayoutID: payout.ID, TransferID: "  "})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestFailReleasesPaymentsBackToEligible(t *testing.T) {
	f := newPayoutsFixture(t)
	payment := f.seedEligiblePayment(10000, 1000, time.Now().UTC())
	payout := f.generate(t)

	failed, err := f.svc.Fail(context.Background(), payout.ID, "bank rejected transfer")
	require.NoError(t, err)
	require.Equal(t, enums.PayoutStatusFailed, failed.Status)
	require.Equal(t, "bank rejected transfer", *failed.FailureReason)
	require.Equal(t, enums.PaymentPayoutStatusEligible, f.paymentsRepo.byID[payment.ID].PayoutStatus)

	// Released payments can be batched again.
	again := f.generate(t)
	require.Len(t, again.PaymentIDs, 1)
}

func TestRequestEarlyStartsAfterLastPayout(t *testing.T) {
	f := newPayoutsFixture(t)
	now := time.Now().UTC()

	f.seedEligiblePayment(10000, 1000, now.Add(-2*time.Hour))
	first, err := f.svc.Generate(context.Background(), GenerateInput{
		AdminID:     f.adminID,
		StoreID:     f.store.ID,
		PeriodStart: now.Add(-4 * time.Hour),
		PeriodEnd:   now.Add(-time.Hour),
	})
	require.NoError(t, err)

	f.seedEligiblePayment(20000, 2000, now.Add(-30*time.Minute))
	payout, err := f.svc.RequestEarly(context.Background(), f.store.OwnerID, f.store.ID)
	require.NoError(t, err)

	require.Equal(t, first.PeriodEnd, payout.PeriodStart)
	require.Equal(t, f.store.OwnerID, *payout.RequestedBy)
	require.Len(t, payout.PaymentIDs, 1)
}

func TestRequestEarlyFallsBackToLookback(t *testing.T) {
	f := newPayoutsFixture(t)

	// Settled three days ago, inside the 7 day lookback window.
	f.seedEligiblePayment(10000, 1000, time.Now().UTC().Add(-72*time.Hour))

	payout, err := f.svc.RequestEarly(context.Background(), f.store.OwnerID, f.store.ID)
	require.NoError(t, err)
	require.Len(t, payout.PaymentIDs, 1)
}

func TestRequestEarlyRequiresOwnership(t *testing.T) {
	f := newPayoutsFixture(t)

	_, err := f.svc.RequestEarly(context.Background(), uuid.New(), f.store.ID)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestListForStoreEarningsSummary(t *testing.T) {
	f := newPayoutsFixture(t)
	now := time.Now().UTC()

	f.seedEligiblePayment(10000, 1000, now)
	payout := f.generate(t)

	// Settled after the batch, awaiting the next one.
	f.seedEligiblePayment(20000, 2000, now)

	payouts, summary, page, err := f.svc.ListForStore(context.Background(), f.store.OwnerID, f.store.ID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	require.Equal(t, payout.ID, payouts[0].ID)
	require.EqualValues(t, 1, page.Total)

	require.EqualValues(t, 0, summary.PaidOutCents)
	require.EqualValues(t, 9000, summary.InPayoutsCents)
	require.EqualValues(t, 18000, summary.EligibleCents)
	require.EqualValues(t, 1, summary.EligibleCount)
}
