package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) applyFilter(query *gorm.DB, filter ListFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PayoutStatus != nil {
		query = query.Where("payout_status = ?", *filter.PayoutStatus)
	}
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	return query
}

func (r *repository) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payment, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.Payment{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []models.Payment
	err := query.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *repository) Totals(ctx context.Context, filter ListFilter) (*Totals, error) {
	var totals Totals
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.Payment{}), filter).
		Select(`COUNT(*) AS count,
			COALESCE(SUM(amount_cents), 0) AS amount_cents,
			COALESCE(SUM(commission_cents), 0) AS commission_cents,
			COALESCE(SUM(payout_cents), 0) AS payout_cents`).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindEligibleForPayout(ctx context.Context, storeID uuid.UUID, start, end time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND status = ? AND payout_status = ? AND created_at >= ? AND created_at <= ?",
			storeID, enums.PaymentStatusCompleted, enums.PaymentPayoutStatusEligible, start, end).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) MarkPayoutStatus(ctx context.Context, paymentIDs []uuid.UUID, status enums.PaymentPayoutStatus, updates map[string]any) error {
	if len(paymentIDs) == 0 {
		return nil
	}
	merged := map[string]any{"payout_status": status}
	for column, value := range updates {
		merged[column] = value
	}
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id IN ?", paymentIDs).
		Updates(merged).Error
}
