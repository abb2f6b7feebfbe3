package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/internal/orders"
	"github.com/mealmesh/mealmesh-backend/internal/stores"
	"github.com/mealmesh/mealmesh-backend/pkg/db"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	pkgerrors "github.com/mealmesh/mealmesh-backend/pkg/errors"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"gorm.io/gorm"
)

// CreateInput is a customer's feedback on a delivered order.
type CreateInput struct {
	UserID  uuid.UUID
	OrderID uuid.UUID
	Rating  int
	Comment string
}

type service struct {
	repo       Repository
	ordersRepo orders.Repository
	storesRepo stores.Repository
	tx         txRunner
}

// NewService builds the reviews service.
func NewService(repo Repository, ordersRepo orders.Repository, storesRepo stores.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
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
	return &service{repo: repo, ordersRepo: ordersRepo, storesRepo: storesRepo, tx: tx}, nil
}

// Create stores the review and folds the rating into the store aggregate in
// one transaction.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
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
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered orders can be reviewed")
	}

	if _, err := s.repo.FindByOrder(ctx, order.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking existing review")
	}

	review := &models.Review{
		OrderID: order.ID,
		UserID:  order.UserID,
		StoreID: order.StoreID,
		Rating:  input.Rating,
		Status:  enums.ReviewStatusVisible,
	}
	if comment := strings.TrimSpace(input.Comment); comment != "" {
		review.Comment = &comment
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.WithTx(tx).Create(ctx, review)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating review")
		}
		review = created
		if err := s.storesRepo.WithTx(tx).AddRating(ctx, order.StoreID, input.Rating); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating store rating")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id required")
	}
	review, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading review")
	}
	return review, nil
}

// ListForStore returns only visible reviews, the public view.
func (s *service) ListForStore(ctx context.Context, storeID uuid.UUID, page pagination.Params) ([]models.Review, *pagination.Page, error) {
	if storeID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	page = page.Normalize()
	visible := enums.ReviewStatusVisible
	reviews, total, err := s.repo.List(ctx, ListFilter{StoreID: &storeID, Status: &visible}, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing reviews")
	}
	meta := pagination.NewPage(page, total)
	return reviews, &meta, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]models.Review, *pagination.Page, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	page = page.Normalize()
	reviews, total, err := s.repo.List(ctx, ListFilter{UserID: &userID}, page)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing reviews")
	}
	meta := pagination.NewPage(page, total)
	return reviews, &meta, nil
}

// AddStoreResponse records the store owner's public reply to a review.
func (s *service) AddStoreResponse(ctx context.Context, ownerID, reviewID uuid.UUID, response string) (*models.Review, error) {
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "response required")
	}

	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	store, err := s.storesRepo.FindByID(ctx, review.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	if store.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "store not owned by caller")
	}

	updates := map[string]any{
		"store_response": response,
		"responded_at":   time.Now().UTC(),
	}
	if err := s.repo.Update(ctx, review.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving store response")
	}
	return s.Get(ctx, review.ID)
}

func (s *service) Moderate(ctx context.Context, reviewID uuid.UUID, status enums.ReviewStatus) (*models.Review, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review status")
	}
	review, err := s.Get(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, review.ID, map[string]any{"status": status}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "moderating review")
	}
	return s.Get(ctx, review.ID)
}
