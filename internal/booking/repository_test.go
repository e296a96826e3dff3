package booking

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/hotel-booking-backend/internal/auth"
	"github.com/nekogravitycat/hotel-booking-backend/internal/db"
	"github.com/nekogravitycat/hotel-booking-backend/internal/idempotency"
	"github.com/nekogravitycat/hotel-booking-backend/internal/pricing"
	"github.com/nekogravitycat/hotel-booking-backend/internal/room"
)

// openTestPool connects to TEST_DB_DSN, applies the schema and empties the
// booking tables. Tests skip when no database is configured.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE TABLE public.bookings, public.rooms RESTART IDENTITY CASCADE")
	require.NoError(t, err)
	return pool
}

func createRoom(t *testing.T, pool *pgxpool.Pool) *room.Room {
	t.Helper()
	rm := &room.Room{
		Name: "101", Type: "standard", NightlyRate: decimal.NewFromInt(179),
		MaxAdults: 2, MaxChildren: 1, BedCount: 1, IsActive: true, IsAvailable: true,
	}
	require.NoError(t, room.NewPgxRepository(pool).Create(context.Background(), rm))
	return rm
}

func TestPgxRepository_CreateAndQuery(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewPgxRepository(pool)
	rm := createRoom(t, pool)

	b := &Booking{
		RoomID: rm.ID, Guest: Guest{Name: "Walk In"}, Adults: 2,
		CheckIn: day(2030, 6, 12), CheckOut: day(2030, 6, 14),
		NightlyRate: decimal.NewFromInt(179), Subtotal: decimal.NewFromInt(358),
		Tax: decimal.RequireFromString("42.96"), Total: decimal.RequireFromString("400.96"),
		Status: StatusPending, Source: SourceStaff,
	}
	require.NoError(t, repo.Create(ctx, b))
	assert.NotZero(t, b.ID)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, rm.Name, got.RoomName)
	assert.Nil(t, got.Guest.UserID)
	assert.Equal(t, day(2030, 6, 12), got.CheckIn)
	assert.Equal(t, "400.96", got.Total.StringFixed(2))
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, SourceStaff, got.Source)

	held, err := repo.ListHolding(ctx, rm.ID, stay(day(2030, 6, 13), day(2030, 6, 15)))
	require.NoError(t, err)
	assert.Len(t, held, 1)

	held, err = repo.ListHolding(ctx, rm.ID, stay(day(2030, 6, 14), day(2030, 6, 15)))
	require.NoError(t, err)
	assert.Empty(t, held, "boundary-touching stays do not overlap")

	got.Status = StatusCancelled
	require.NoError(t, repo.Update(ctx, got))

	held, err = repo.ListHoldingInRange(ctx, stay(day(2030, 6, 12), day(2030, 6, 14)))
	require.NoError(t, err)
	assert.Empty(t, held)

	list, total, err := repo.List(ctx, Filter{RoomID: rm.ID, Status: StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	_, err = repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgxRepository_ExclusionConstraint(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewPgxRepository(pool)
	rm := createRoom(t, pool)

	mk := func(in, out int) *Booking {
		return &Booking{
			RoomID: rm.ID, Guest: Guest{Name: "G"}, Adults: 1,
			CheckIn: day(2030, 7, in), CheckOut: day(2030, 7, out),
			NightlyRate: decimal.Zero, Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero,
			Status: StatusConfirmed, Source: SourceStaff,
		}
	}

	require.NoError(t, repo.Create(ctx, mk(1, 3)))
	// Writing around the service must still be stopped by storage.
	assert.ErrorIs(t, repo.Create(ctx, mk(2, 4)), ErrRoomUnavailable)
	assert.NoError(t, repo.Create(ctx, mk(3, 5)))
}

func TestPgxRepository_InRoomTxRollsBack(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	repo := NewPgxRepository(pool)
	rm := createRoom(t, pool)

	err := repo.InRoomTx(ctx, rm.ID, func(tx Repository) error {
		b := &Booking{
			RoomID: rm.ID, Guest: Guest{Name: "G"}, Adults: 1,
			CheckIn: day(2030, 8, 1), CheckOut: day(2030, 8, 2),
			NightlyRate: decimal.Zero, Subtotal: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero,
			Status: StatusPending, Source: SourceGuest,
		}
		require.NoError(t, tx.Create(ctx, b))
		return ErrRoomUnavailable
	})
	assert.ErrorIs(t, err, ErrRoomUnavailable)

	held, err := repo.ListHolding(ctx, rm.ID, stay(day(2030, 8, 1), day(2030, 8, 2)))
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestPgxService_ConcurrentCreates(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	rm := createRoom(t, pool)

	svc := NewService(
		NewPgxRepository(pool),
		room.NewService(room.NewPgxRepository(pool)),
		pricing.NewCalculator(pricing.DefaultTaxRate),
		idempotency.NopStore{},
		zap.NewNop(),
		Options{Now: func() time.Time { return day(2030, 1, 1) }},
	)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, staff, CreateRequest{
				RoomID: rm.ID, CheckIn: day(2030, 9, 10), CheckOut: day(2030, 9, 12),
				Adults: 1, Guest: Guest{Name: "Racer"},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrRoomUnavailable)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)

	_, total, err := svc.List(ctx, auth.Actor{UserID: staff.UserID, Role: auth.RoleAdmin}, Filter{RoomID: rm.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
