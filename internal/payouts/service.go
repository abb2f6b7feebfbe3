package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/payments"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	dbtypes "github.com/mealmesh/mealmesh-backend/pkg/db/types"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// GenerateInput defines the batch an admin wants to settle.
type GenerateInput struct {
	AdminID     uuid.UUID
	StoreID     uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// CompleteInput records the executed transfer.
type CompleteInput struct {
	PayoutID   uuid.UUID
	TransferID string
}

type service struct {
	repo         Repository
	paymentsRepo payments.Repository
	storesRepo   stores.Repository
	tx           txRunner
	lookback     time.Duration
	now          func() time.Time
}

// NewService builds the payouts service.
func NewService(
	repo Repository,
	paymentsRepo payments.Repository,
	storesRepo stores.Repository,
	tx txRunner,
	payoutCfg config.PayoutConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if paymentsRepo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if storesRepo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:         repo,
		paymentsRepo: paymentsRepo,
		storesRepo:   storesRepo,
		tx:           tx,
		lookback:     payoutCfg.EarlyRequestLookback,
		now:          time.Now,
	}, nil
}

func (s *service) Generate(ctx context.Context, input GenerateInput) (*models.Payout, error) {
	if !input.PeriodEnd.After(input.PeriodStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period end must be after period start")
	}
	if _, err := s.loadStore(ctx, input.StoreID); err != nil {
		return nil, err
	}
	return s.generate(ctx, input.StoreID, input.PeriodStart, input.PeriodEnd, nil)
}

// RequestEarly opens a payout batch ahead of schedule for the store owner.
// The period picks up where the last payout ended.
func (s *service) RequestEarly(ctx context.Context, ownerID, storeID uuid.UUID) (*models.Payout, error) {
	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}

	end := s.now().UTC()
	start := end.Add(-s.lookback)
	last, err := s.repo.FindLastForStore(ctx, storeID)
	switch {
	case err == nil:
		start = last.PeriodEnd
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading last payout")
	}

	return s.generate(ctx, storeID, start, end, &ownerID)
}

// generate snapshots the eligible payments into a pending batch. Flipping
// them to payout processing inside the same transaction keeps a payment out
// of two batches.
func (s *service) generate(ctx context.Context, storeID uuid.UUID, start, end time.Time, requestedBy *uuid.UUID) (*models.Payout, error) {
	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentsRepo := s.paymentsRepo.WithTx(tx)
		eligible, err := paymentsRepo.FindEligibleForPayout(ctx, storeID, start, end)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "selecting eligible payments")
		}
		if len(eligible) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no eligible payments in period")
		}

		var gross, commission int64
		paymentIDs := make(dbtypes.UUIDArray, 0, len(eligible))
		for _, payment := range eligible {
			gross += payment.AmountCents
			commission += payment.CommissionCents
			paymentIDs = append(paymentIDs, payment.ID)
		}

		payout, err = s.repo.WithTx(tx).Create(ctx, &models.Payout{
			StoreID:         storeID,
			PeriodStart:     start,
			PeriodEnd:       end,
			GrossCents:      gross,
			CommissionCents: commission,
			NetCents:        gross - commission,
			PaymentIDs:      paymentIDs,
			Status:          enums.PayoutStatusPending,
			RequestedBy:     requestedBy,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating payout")
		}

		if err := paymentsRepo.MarkPayoutStatus(ctx, paymentIDs, enums.PaymentPayoutStatusProcessing, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking payments processing")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	return s.load(ctx, id)
}

func (s *service) Approve(ctx context.Context, adminID, payoutID uuid.UUID) (*models.Payout, error) {
	payout, err := s.load(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payouts in status %s cannot be approved", payout.Status))
	}
	updates := map[string]any{
		"status":      enums.PayoutStatusApproved,
		"approved_by": adminID,
		"approved_at": s.now().UTC(),
	}
	if err := s.repo.Update(ctx, payout.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approving payout")
	}
	return s.load(ctx, payout.ID)
}

// Complete records the transfer and settles the referenced payments
// atomically.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Payout, error) {
	payout, err := s.load(ctx, input.PayoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only approved payouts can be completed")
	}
	transferID := strings.TrimSpace(input.TransferID)
	if transferID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id required")
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":       enums.PayoutStatusCompleted,
			"transfer_id":  transferID,
			"completed_at": now,
		}
		if err := s.repo.WithTx(tx).Update(ctx, payout.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing payout")
		}
		err := s.paymentsRepo.WithTx(tx).MarkPayoutStatus(ctx, payout.PaymentIDs, enums.PaymentPayoutStatusCompleted, map[string]any{
			"payout_id":   payout.ID,
			"payout_date": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settling payments")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, payout.ID)
}

// Fail abandons the batch and releases its payments back to eligible so a
// later batch can pick them up.
func (s *service) Fail(ctx context.Context, payoutID uuid.UUID, reason string) (*models.Payout, error) {
	payout, err := s.load(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != enums.PayoutStatusPending && payout.Status != enums.PayoutStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payouts in status %s cannot fail", payout.Status))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":         enums.PayoutStatusFailed,
			"failure_reason": strings.TrimSpace(reason),
		}
		if err := s.repo.WithTx(tx).Update(ctx, payout.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failing payout")
		}
		err := s.paymentsRepo.WithTx(tx).MarkPayoutStatus(ctx, payout.PaymentIDs, enums.PaymentPayoutStatusEligible, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "releasing payments")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, payout.ID)
}

func (s *service) ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, page pagination.Params) ([]models.Payout, *EarningsSummary, *pagination.Page, error) {
	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, nil, nil, err
	}
	if store.OwnerID != ownerID {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}

	page = page.Normalize()
	payouts, total, err := s.repo.List(ctx, ListFilter{StoreID: &storeID}, page)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payouts")
	}

	summary, err := s.earnings(ctx, storeID)
	if err != nil {
		return nil, nil, nil, err
	}
	meta := pagination.NewPage(page, total)
	return payouts, summary, &meta, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payout, *pagination.Page, error) {
	page = page.Normalize()
	payouts, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payouts")
	}
	meta := pagination.NewPage(page, total)
	return payouts, &meta, nil
}

func (s *service) earnings(ctx context.Context, storeID uuid.UUID) (*EarningsSummary, error) {
	paidOut, inPayouts, err := s.repo.EarningsByStore(ctx, storeID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing payouts")
	}

	eligibleStatus := enums.PaymentPayoutStatusEligible
	totals, err := s.paymentsRepo.Totals(ctx, payments.ListFilter{
		StoreID:      &storeID,
		PayoutStatus: &eligibleStatus,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing eligible payments")
	}

	return &EarningsSummary{
		PaidOutCents:   paidOut,
		InPayoutsCents: inPayouts,
		EligibleCents:  totals.PayoutCents,
		EligibleCount:  totals.Count,
	}, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payout")
	}
	return payout, nil
}

func (s *service) loadStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	store, err := s.storesRepo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	return store, nil
}
