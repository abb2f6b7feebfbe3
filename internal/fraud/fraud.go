package fraud

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/config"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"gorm.io/gorm"
)

// Flags attached to orders that trip a medium-severity check.
const (
	FlagAbnormalValue  = "abnormal_order_value"
	FlagRejectedOrders = "frequent_rejected_orders"
)

// Repository reads the order history the checks run against.
type Repository interface {
	CountByStatusSince(ctx context.Context, userID uuid.UUID, status enums.OrderStatus, since time.Time) (int64, error)
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	AverageOrderCents(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

// Checker runs the synchronous fraud gate at order creation.
type Checker interface {
	Evaluate(ctx context.Context, input Input) ([]string, error)
}

// Input is the order-in-flight view the gate evaluates.
type Input struct {
	UserID        uuid.UUID
	AccountStatus enums.AccountStatus
	AmountCents   int64
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the order-history reader for the fraud gate.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountByStatusSince(ctx context.Context, userID uuid.UUID, status enums.OrderStatus, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, status, since).
		Count(&count).Error
	return count, err
}

func (r *repository) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// AverageOrderCents returns the user's mean order total and whether any
// history exists at all.
func (r *repository) AverageOrderCents(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	var result struct {
		Avg   *float64
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("AVG(total_cents) AS avg, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Scan(&result).Error
	if err != nil {
		return 0, false, err
	}
	if result.Count == 0 || result.Avg == nil {
		return 0, false, nil
	}
	return int64(*result.Avg), true, nil
}

type checker struct {
	repo Repository
	cfg  config.FraudConfig
	now  func() time.Time
}

// NewChecker builds the fraud gate.
func NewChecker(repo Repository, cfg config.FraudConfig) (Checker, error) {
	if repo == nil {
		return nil, fmt.Errorf("fraud repository required")
	}
	return &checker{repo: repo, cfg: cfg, now: time.Now}, nil
}

// Evaluate blocks high-severity signals with Forbidden and returns
// medium-severity signals as flags for the caller to persist on the order.
func (c *checker) Evaluate(ctx context.Context, input Input) ([]string, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AccountStatus == enums.AccountStatusSuspended {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account suspended")
	}
	now := c.now().UTC()

	cancelled, err := c.repo.CountByStatusSince(ctx, input.UserID, enums.OrderStatusCancelled, now.Add(-c.cfg.CancelledWindow))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting cancelled orders")
	}
	if cancelled > int64(c.cfg.MaxCancelled24h) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "too many recently cancelled orders")
	}

	recent, err := c.repo.CountSince(ctx, input.UserID, now.Add(-c.cfg.VelocityWindow))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting recent orders")
	}
	if recent > int64(c.cfg.MaxOrders1h) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order velocity too high")
	}

	var flags []string

	average, hasHistory, err := c.repo.AverageOrderCents(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "averaging order history")
	}
	if hasHistory && input.AmountCents > average*int64(c.cfg.AbnormalValueFactor) {
		flags = append(flags, FlagAbnormalValue)
	}

	rejected, err := c.repo.CountByStatusSince(ctx, input.UserID, enums.OrderStatusRejected, now.Add(-c.cfg.RejectedWindow))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting rejected orders")
	}
	if rejected > int64(c.cfg.MaxRejected7d) {
		flags = append(flags, FlagRejectedOrders)
	}

	return flags, nil
}
