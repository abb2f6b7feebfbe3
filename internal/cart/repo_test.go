package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  store_id TEXT,
  items_total_cents INTEGER NOT NULL DEFAULT 0,
  delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  final_amount_cents INTEGER NOT NULL DEFAULT 0,
  promo_code TEXT,
  promotion_id TEXT,
  delivery_address TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  menu_item_id TEXT NOT NULL,
  name_snapshot TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  quantity INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func TestRepositoryCreateAndPreloadItems(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()

	userID := uuid.New()
	cart, err := repo.Create(ctx, &models.Cart{UserID: userID})
	require.NoError(t, err)

	require.NoError(t, repo.AddItem(ctx, &models.CartItem{
		CartID:         cart.ID,
		MenuItemID:     uuid.New(),
		NameSnapshot:   "Burger",
		UnitPriceCents: 15000,
		Quantity:       2,
		LineTotalCents: 30000,
	}))

	found, err := repo.FindByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	require.Equal(t, "Burger", found.Items[0].NameSnapshot)
}

func TestRepositoryOneCartPerUser(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()

	userID := uuid.New()
	_, err := repo.Create(ctx, &models.Cart{UserID: userID})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Cart{UserID: userID})
	require.Error(t, err)
}

func TestRepositoryRemoveAndClearItems(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()

	cart, err := repo.Create(ctx, &models.Cart{UserID: uuid.New()})
	require.NoError(t, err)

	first := &models.CartItem{CartID: cart.ID, MenuItemID: uuid.New(), NameSnapshot: "A", UnitPriceCents: 100, Quantity: 1, LineTotalCents: 100}
	second := &models.CartItem{CartID: cart.ID, MenuItemID: uuid.New(), NameSnapshot: "B", UnitPriceCents: 200, Quantity: 1, LineTotalCents: 200}
	require.NoError(t, repo.AddItem(ctx, first))
	require.NoError(t, repo.AddItem(ctx, second))

	require.NoError(t, repo.RemoveItem(ctx, cart.ID, first.ID))
	found, err := repo.FindByUser(ctx, cart.UserID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)

	require.NoError(t, repo.ClearItems(ctx, cart.ID))
	found, err = repo.FindByUser(ctx, cart.UserID)
	require.NoError(t, err)
	require.Empty(t, found.Items)
}

func TestRepositorySaveTotals(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))
	ctx := context.Background()

	cart, err := repo.Create(ctx, &models.Cart{UserID: uuid.New()})
	require.NoError(t, err)

	storeID := uuid.New()
	promoCode := "WELCOME10"
	cart.StoreID = &storeID
	cart.ItemsTotalCents = 30000
	cart.DiscountCents = 3000
	cart.FinalAmountCents = 27000
	cart.PromoCode = &promoCode
	require.NoError(t, repo.Save(ctx, cart))

	found, err := repo.FindByUser(ctx, cart.UserID)
	require.NoError(t, err)
	require.EqualValues(t, 27000, found.FinalAmountCents)
	require.NotNil(t, found.PromoCode)
	require.Equal(t, "WELCOME10", *found.PromoCode)
	require.NotNil(t, found.StoreID)
	require.Equal(t, storeID, *found.StoreID)
}
