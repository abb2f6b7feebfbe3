package payouts

import (
	"context"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payout *models.Payout) (*models.Payout, error) {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(payout).Error; err != nil {
		return nil, err
	}
	return payout, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Payout, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payout{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payouts []models.Payout
	err := query.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&payouts).Error
	if err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) FindLastForStore(ctx context.Context, storeID uuid.UUID) (*models.Payout, error) {
	var payout models.Payout
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("period_end DESC").
		First(&payout).Error
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repository) EarningsByStore(ctx context.Context, storeID uuid.UUID) (int64, int64, error) {
	var rows []struct {
		Status   enums.PayoutStatus
		NetCents int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Payout{}).
		Select("status, COALESCE(SUM(net_cents), 0) AS net_cents").
		Where("store_id = ?", storeID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var paidOut, inPayouts int64
	for _, row := range rows {
		switch row.Status {
		case enums.PayoutStatusCompleted:
			paidOut += row.NetCents
		case enums.PayoutStatusPending, enums.PayoutStatusApproved:
			inPayouts += row.NetCents
		}
	}
	return paidOut, inPayouts, nil
}
