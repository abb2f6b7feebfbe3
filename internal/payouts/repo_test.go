package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mealmesh/mealmesh-backend/pkg/db/models"
	dbtypes "github.com/mealmesh/mealmesh-backend/pkg/db/types"
	"github.com/mealmesh/mealmesh-backend/pkg/enums"
	"github.com/mealmesh/mealmesh-backend/pkg/pagination"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPayoutsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:payouts_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS payouts (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  period_start DATETIME NOT NULL,
  period_end DATETIME NOT NULL,
  gross_cents INTEGER NOT NULL,
  commission_cents INTEGER NOT NULL,
  net_cents INTEGER NOT NULL,
  payment_ids TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  requested_by TEXT,
  approved_by TEXT,
  approved_at DATETIME,
  transfer_id TEXT,
  completed_at DATETIME,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedDBPayout(t *testing.T, repo Repository, storeID uuid.UUID, net int64, status enums.PayoutStatus, periodEnd time.Time) *models.Payout {
	t.Helper()
	payout, err := repo.Create(context.Background(), &models.Payout{
		StoreID:         storeID,
		PeriodStart:     periodEnd.Add(-24 * time.Hour),
		PeriodEnd:       periodEnd,
		GrossCents:      net + net/9,
		CommissionCents: net / 9,
		NetCents:        net,
		PaymentIDs:      dbtypes.UUIDArray{uuid.New(), uuid.New()},
		Status:          status,
	})
	require.NoError(t, err)
	return payout
}

func TestRepositoryPaymentIDsRoundTrip(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	ctx := context.Background()

	created := seedDBPayout(t, repo, uuid.New(), 54000, enums.PayoutStatusPending, time.Now().UTC())

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, found.PaymentIDs, 2)
	require.True(t, found.PaymentIDs.Contains(created.PaymentIDs[0]))
	require.True(t, found.PaymentIDs.Contains(created.PaymentIDs[1]))
}

func TestRepositoryFindLastForStore(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	ctx := context.Background()
	storeID := uuid.New()
	now := time.Now().UTC()

	seedDBPayout(t, repo, storeID, 10000, enums.PayoutStatusCompleted, now.Add(-48*time.Hour))
	latest := seedDBPayout(t, repo, storeID, 20000, enums.PayoutStatusCompleted, now)
	seedDBPayout(t, repo, uuid.New(), 30000, enums.PayoutStatusCompleted, now.Add(24*time.Hour))

	found, err := repo.FindLastForStore(ctx, storeID)
	require.NoError(t, err)
	require.Equal(t, latest.ID, found.ID)

	_, err = repo.FindLastForStore(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryEarningsByStore(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	storeID := uuid.New()
	now := time.Now().UTC()

	seedDBPayout(t, repo, storeID, 54000, enums.PayoutStatusCompleted, now.Add(-72*time.Hour))
	seedDBPayout(t, repo, storeID, 9000, enums.PayoutStatusPending, now.Add(-48*time.Hour))
	seedDBPayout(t, repo, storeID, 4500, enums.PayoutStatusApproved, now.Add(-24*time.Hour))
	seedDBPayout(t, repo, storeID, 70000, enums.PayoutStatusFailed, now)

	paidOut, inPayouts, err := repo.EarningsByStore(context.Background(), storeID)
	require.NoError(t, err)
	require.EqualValues(t, 54000, paidOut)
	require.EqualValues(t, 13500, inPayouts)
}

func TestRepositoryListFilters(t *testing.T) {
	repo := NewRepository(setupPayoutsTestDB(t))
	ctx := context.Background()
	storeID := uuid.New()
	now := time.Now().UTC()

	pending := seedDBPayout(t, repo, storeID, 10000, enums.PayoutStatusPending, now)
	seedDBPayout(t, repo, storeID, 20000, enums.PayoutStatusCompleted, now)

	status := enums.PayoutStatusPending
	listed, total, err := repo.List(ctx, ListFilter{Status: &status, StoreID: &storeID}, pagination.Params{}.Normalize())
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, pending.ID, listed[0].ID)
}
