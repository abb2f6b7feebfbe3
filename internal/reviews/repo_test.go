package reviews

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReviewsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:reviews_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS reviews (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  rating INTEGER NOT NULL,
  comment TEXT,
  status TEXT NOT NULL DEFAULT 'visible',
  store_response TEXT,
  responded_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedDBReview(t *testing.T, repo Repository, storeID uuid.UUID, rating int, status enums.ReviewStatus) *models.Review {
	t.Helper()
	review, err := repo.Create(context.Background(), &models.Review{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		StoreID: storeID,
		Rating:  rating,
		Status:  status,
	})
	require.NoError(t, err)
	return review
}

func TestRepositoryOneReviewPerOrder(t *testing.T) {
	repo := NewRepository(setupReviewsTestDB(t))
	ctx := context.Background()

	first := seedDBReview(t, repo, uuid.New(), 5, enums.ReviewStatusVisible)

	_, err := repo.Create(ctx, &models.Review{
		OrderID: first.OrderID,
		UserID:  uuid.New(),
		StoreID: first.StoreID,
		Rating:  1,
		Status:  enums.ReviewStatusVisible,
	})
	require.Error(t, err)

	found, err := repo.FindByOrder(ctx, first.OrderID)
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)
}

func TestRepositoryListByStatus(t *testing.T) {
	repo := NewRepository(setupReviewsTestDB(t))
	storeID := uuid.New()

	visible := seedDBReview(t, repo, storeID, 4, enums.ReviewStatusVisible)
	seedDBReview(t, repo, storeID, 1, enums.ReviewStatusHidden)

	status := enums.ReviewStatusVisible
	listed, total, err := repo.List(context.Background(), ListFilter{StoreID: &storeID, Status: &status}, pagination.Params{}.Normalize())
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, visible.ID, listed[0].ID)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	repo := NewRepository(setupReviewsTestDB(t))
	ctx := context.Background()

	review := seedDBReview(t, repo, uuid.New(), 3, enums.ReviewStatusVisible)
	require.NoError(t, repo.Update(ctx, review.ID, map[string]any{"status": enums.ReviewStatusFlagged}))

	found, err := repo.FindByID(ctx, review.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ReviewStatusFlagged, found.Status)
}
