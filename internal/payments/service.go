package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/money"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateInput opens the settlement record for an order.
type CreateInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Method  enums.PaymentMethod
}

// CompleteInput marks a payment settled by the gateway.
type CompleteInput struct {
	PaymentID      uuid.UUID
	TransactionID  *string
	GatewayOrderID *string
}

// RefundInput reverses a completed payment.
type RefundInput struct {
	PaymentID   uuid.UUID
	AmountCents *int64
	Reason      string
}

type service struct {
	repo        Repository
	ordersRepo  orders.Repository
	storesRepo  stores.Repository
	tx          txRunner
	defaultRate decimal.Decimal
	now         func() time.Time
}

// NewService builds the payments service.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	storesRepo stores.Repository,
	tx txRunner,
	payoutCfg config.PayoutConfig,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if storesRepo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	defaultRate, err := decimal.NewFromString(payoutCfg.DefaultCommissionRate)
	if err != nil {
		return nil, fmt.Errorf("parsing default commission rate: %w", err)
	}
	return &service{
		repo:        repo,
		ordersRepo:  ordersRepo,
		storesRepo:  storesRepo,
		tx:          tx,
		defaultRate: defaultRate,
		now:         time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Payment, error) {
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	order, err := s.ordersRepo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status == enums.OrderStatusCancelled || order.Status == enums.OrderStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not payable")
	}

	if _, err := s.repo.FindByOrder(ctx, order.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has a payment")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking existing payment")
	}

	store, err := s.storesRepo.FindByID(ctx, order.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	rate := store.EffectiveCommissionRate(s.defaultRate)
	commission, payout := money.SplitCommission(order.TotalCents, rate)

	status := enums.PaymentStatusProcessing
	if input.Method == enums.PaymentMethodCashOnDelivery {
		status = enums.PaymentStatusPending
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		UserID:          order.UserID,
		StoreID:         order.StoreID,
		AmountCents:     order.TotalCents,
		CommissionRate:  rate,
		CommissionCents: commission,
		PayoutCents:     payout,
		Status:          status,
		Method:          input.Method,
		PayoutStatus:    enums.PaymentPayoutStatusPending,
	}
	created, err := s.repo.Create(ctx, payment)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has a payment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating payment")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.load(ctx, id)
}

// Complete settles the payment and confirms its order atomically.
func (s *service) Complete(ctx context.Context, input CompleteInput) (*models.Payment, error) {
	payment, err := s.load(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending && payment.Status != enums.PaymentStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payments in status %s cannot be completed", payment.Status))
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":        enums.PaymentStatusCompleted,
			"payout_status": enums.PaymentPayoutStatusEligible,
			"completed_at":  now,
		}
		if input.TransactionID != nil {
			updates["transaction_id"] = *input.TransactionID
		}
		if input.GatewayOrderID != nil {
			updates["gateway_order_id"] = *input.GatewayOrderID
		}
		if err := s.repo.WithTx(tx).Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing payment")
		}

		// Confirm the order if it is still pending; a store owner may
		// already have confirmed it.
		if _, err := s.ordersRepo.WithTx(tx).UpdateStatusFrom(ctx, payment.OrderID,
			enums.OrderStatusPending, enums.OrderStatusConfirmed,
			map[string]any{"confirmed_at": now}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirming order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, payment.ID)
}

func (s *service) Fail(ctx context.Context, paymentID uuid.UUID, reason string) (*models.Payment, error) {
	payment, err := s.load(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending && payment.Status != enums.PaymentStatusProcessing {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payments in status %s cannot fail", payment.Status))
	}
	updates := map[string]any{
		"status":         enums.PaymentStatusFailed,
		"failure_reason": strings.TrimSpace(reason),
	}
	if err := s.repo.Update(ctx, payment.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failing payment")
	}
	return s.load(ctx, payment.ID)
}

// Refund reverses a completed payment and cancels its order in one
// transaction.
func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	payment, err := s.load(ctx, input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed payments can be refunded")
	}
	amount := payment.AmountCents
	if input.AmountCents != nil {
		if *input.AmountCents <= 0 || *input.AmountCents > payment.AmountCents {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount out of range")
		}
		amount = *input.AmountCents
	}

	now := s.now().UTC()
	reason := strings.TrimSpace(input.Reason)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.markRefunded(ctx, tx, payment, amount, reason, now); err != nil {
			return err
		}
		orderUpdates := map[string]any{
			"status":              enums.OrderStatusCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        now,
		}
		if err := s.ordersRepo.WithTx(tx).Update(ctx, payment.OrderID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, payment.ID)
}

// RefundForOrderInTx reverses the order's payment inside the caller's
// transaction. Orders without a payment, or with one that never settled,
// need no refund.
func (s *service) RefundForOrderInTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
	}

	now := s.now().UTC()
	switch payment.Status {
	case enums.PaymentStatusCompleted:
		return s.markRefunded(ctx, tx, payment, payment.AmountCents, reason, now)
	case enums.PaymentStatusPending, enums.PaymentStatusProcessing:
		updates := map[string]any{
			"status":        enums.PaymentStatusCancelled,
			"payout_status": enums.PaymentPayoutStatusCancelled,
		}
		if err := repo.Update(ctx, payment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling payment")
		}
		return nil
	default:
		return nil
	}
}

func (s *service) markRefunded(ctx context.Context, tx *gorm.DB, payment *models.Payment, amount int64, reason string, at time.Time) error {
	updates := map[string]any{
		"status":              enums.PaymentStatusRefunded,
		"payout_status":       enums.PaymentPayoutStatusCancelled,
		"refund_amount_cents": amount,
		"refund_reason":       reason,
		"refunded_at":         at,
	}
	if err := s.repo.WithTx(tx).Update(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refunding payment")
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Payment, *pagination.Page, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	page = page.Normalize()
	payments, total, err := s.repo.List(ctx, ListFilter{UserID: &userID}, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payments")
	}
	meta := pagination.NewPage(page, total)
	return payments, &meta, nil
}

func (s *service) ListForStore(ctx context.Context, ownerID, storeID uuid.UUID, page pagination.Params) ([]models.Payment, *Totals, *pagination.Page, error) {
	store, err := s.storesRepo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	if store.OwnerID != ownerID {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}

	page = page.Normalize()
	filter := ListFilter{StoreID: &storeID}
	payments, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payments")
	}
	totals, err := s.repo.Totals(ctx, filter)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "totalling payments")
	}
	meta := pagination.NewPage(page, total)
	return payments, totals, &meta, nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payment, *pagination.Page, error) {
	page = page.Normalize()
	payments, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing payments")
	}
	meta := pagination.NewPage(page, total)
	return payments, &meta, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading payment")
	}
	return payment, nil
}
