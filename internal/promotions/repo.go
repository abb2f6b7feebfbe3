package promotions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a promotions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, promo *models.Promotion) (*models.Promotion, error) {
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promo models.Promotion
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var promo models.Promotion
	err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) ListActive(ctx context.Context, page pagination.Params) ([]models.Promotion, int64, error) {
	now := time.Now().UTC()
	query := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("is_active = ? AND starts_at <= ? AND ends_at >= ?", true, now, now)
	return r.paginate(query, page)
}

func (r *repository) ListAll(ctx context.Context, page pagination.Params) ([]models.Promotion, int64, error) {
	return r.paginate(r.db.WithContext(ctx).Model(&models.Promotion{}), page)
}

func (r *repository) paginate(query *gorm.DB, page pagination.Params) ([]models.Promotion, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var promos []models.Promotion
	err := query.
		Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&promos).Error
	if err != nil {
		return nil, 0, err
	}
	return promos, total, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Promotion{}).Error
}

// ConsumeUse bumps used_count with the global cap enforced in the UPDATE
// itself, so two concurrent redemptions of the last use cannot both win.
func (r *repository) ConsumeUse(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", id).
		Update("used_count", gorm.Expr("used_count + 1"))
	return result.RowsAffected, result.Error
}

func (r *repository) CountUsesByUser(ctx context.Context, promoID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PromotionUsage{}).
		Where("promotion_id = ? AND user_id = ?", promoID, userID).
		Count(&count).Error
	return count, err
}

func (r *repository) RecordUsage(ctx context.Context, usage *models.PromotionUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(usage).Error
}
