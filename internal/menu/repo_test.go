package menu

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupMenuTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:menu_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS menu_items (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  category TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  is_available INTEGER NOT NULL DEFAULT 1,
  stock_quantity INTEGER,
  created_at DATETIME,
  updated_at DATETIME,
  deleted_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestRepositoryCreateListAndSoftDelete(t *testing.T) {
	repo := NewRepository(setupMenuTestDB(t))
	ctx := context.Background()

	storeID := uuid.New()
	item, err := repo.Create(ctx, &models.MenuItem{StoreID: storeID, Name: "Bagel", Category: "bakery", PriceCents: 350, IsAvailable: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.MenuItem{StoreID: storeID, Name: "Coffee", Category: "drinks", PriceCents: 250, IsAvailable: true})
	require.NoError(t, err)

	items, total, err := repo.ListByStore(ctx, storeID, ListFilter{}, pagination.Params{}.Normalize())
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, items, 2)

	require.NoError(t, repo.SoftDelete(ctx, item.ID))

	_, err = repo.FindByID(ctx, item.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	items, total, err = repo.ListByStore(ctx, storeID, ListFilter{}, pagination.Params{}.Normalize())
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Coffee", items[0].Name)
}

func TestRepositoryCategoryFilter(t *testing.T) {
	repo := NewRepository(setupMenuTestDB(t))
	ctx := context.Background()

	storeID := uuid.New()
	_, err := repo.Create(ctx, &models.MenuItem{StoreID: storeID, Name: "Bagel", Category: "bakery", PriceCents: 350, IsAvailable: true})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.MenuItem{StoreID: storeID, Name: "Coffee", Category: "drinks", PriceCents: 250, IsAvailable: true})
	require.NoError(t, err)

	category := "bakery"
	items, total, err := repo.ListByStore(ctx, storeID, ListFilter{Category: &category}, pagination.Params{}.Normalize())
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "Bagel", items[0].Name)
}

func TestRepositoryDecrementStock(t *testing.T) {
	repo := NewRepository(setupMenuTestDB(t))
	ctx := context.Background()

	stock := 5
	tracked, err := repo.Create(ctx, &models.MenuItem{StoreID: uuid.New(), Name: "Bagel", Category: "bakery", PriceCents: 350, IsAvailable: true, StockQuantity: &stock})
	require.NoError(t, err)
	untracked, err := repo.Create(ctx, &models.MenuItem{StoreID: uuid.New(), Name: "Coffee", Category: "drinks", PriceCents: 250, IsAvailable: true})
	require.NoError(t, err)

	require.NoError(t, repo.DecrementStock(ctx, tracked.ID, 3))
	found, err := repo.FindByID(ctx, tracked.ID)
	require.NoError(t, err)
	require.NotNil(t, found.StockQuantity)
	require.Equal(t, 2, *found.StockQuantity)

	// Floors at zero rather than going negative.
	require.NoError(t, repo.DecrementStock(ctx, tracked.ID, 10))
	found, err = repo.FindByID(ctx, tracked.ID)
	require.NoError(t, err)
	require.Equal(t, 0, *found.StockQuantity)

	require.NoError(t, repo.DecrementStock(ctx, untracked.ID, 1))
	found, err = repo.FindByID(ctx, untracked.ID)
	require.NoError(t, err)
	require.Nil(t, found.StockQuantity)
}
