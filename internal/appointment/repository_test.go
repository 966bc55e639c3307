package appointment_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	"github.com/gracefellowship/church-admin-backend/internal/db"
)

// testPool connects to TEST_DB_DSN and resets the bookings table.
// Tests are skipped when no database is configured.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE TABLE public.bookings")
	require.NoError(t, err)
	return pool
}

func newBooking(slot time.Time, email string) *appointment.Booking {
	return &appointment.Booking{
		FullName:     "Requester",
		Phone:        "+12127365000",
		Email:        email,
		SlotStartUTC: slot,
		Medium:       appointment.MediumInPerson,
		Status:       appointment.StatusPending,
		CancelToken:  uuid.NewString(),
	}
}

func TestPgxRepository_CreateIfAvailable(t *testing.T) {
	repo := appointment.NewPgxRepository(testPool(t))
	ctx := context.Background()
	slot := time.Date(2030, 1, 7, 19, 0, 0, 0, time.UTC)

	first := newBooking(slot, "first@example.org")
	require.NoError(t, repo.CreateIfAvailable(ctx, first, time.Hour))
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	err := repo.CreateIfAvailable(ctx, newBooking(slot, "same@example.org"), time.Hour)
	assert.ErrorIs(t, err, appointment.ErrSlotConflict)

	err = repo.CreateIfAvailable(ctx, newBooking(slot.Add(30*time.Minute), "near@example.org"), time.Hour)
	assert.ErrorIs(t, err, appointment.ErrSlotConflict)

	require.NoError(t, repo.CreateIfAvailable(ctx, newBooking(slot.Add(time.Hour), "edge@example.org"), time.Hour))

	// Zero buffer still forbids the identical instant.
	err = repo.CreateIfAvailable(ctx, newBooking(slot, "zero@example.org"), 0)
	assert.ErrorIs(t, err, appointment.ErrSlotConflict)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, slot, got.SlotStartUTC)
	assert.Equal(t, first.CancelToken, got.CancelToken)
}

func TestPgxRepository_ConcurrentCreate(t *testing.T) {
	repo := appointment.NewPgxRepository(testPool(t))
	slot := time.Date(2030, 1, 7, 20, 0, 0, 0, time.UTC)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.CreateIfAvailable(context.Background(), newBooking(slot, "race@example.org"), time.Hour)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, appointment.ErrSlotConflict)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, succeeded)
}

func TestPgxRepository_CancelledSlotCanBeRebooked(t *testing.T) {
	repo := appointment.NewPgxRepository(testPool(t))
	ctx := context.Background()
	slot := time.Date(2030, 1, 14, 19, 0, 0, 0, time.UTC)

	b := newBooking(slot, "gone@example.org")
	require.NoError(t, repo.CreateIfAvailable(ctx, b, time.Hour))
	b.Status = appointment.StatusCancelled
	require.NoError(t, repo.Update(ctx, b, appointment.StatusPending))

	require.NoError(t, repo.CreateIfAvailable(ctx, newBooking(slot, "again@example.org"), time.Hour))
}

func TestPgxRepository_UpdateIsGuarded(t *testing.T) {
	repo := appointment.NewPgxRepository(testPool(t))
	ctx := context.Background()

	b := newBooking(time.Date(2030, 1, 21, 19, 0, 0, 0, time.UTC), "guard@example.org")
	require.NoError(t, repo.CreateIfAvailable(ctx, b, time.Hour))

	confirmed := *b
	confirmed.Status = appointment.StatusConfirmed
	require.NoError(t, repo.Update(ctx, &confirmed, appointment.StatusPending))

	// A second writer still believing the booking is pending loses.
	stale := *b
	stale.Status = appointment.StatusCancelled
	err := repo.Update(ctx, &stale, appointment.StatusPending)
	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusConfirmed, got.Status)

	missing := *b
	missing.ID = uuid.NewString()
	err = repo.Update(ctx, &missing, appointment.StatusPending)
	assert.ErrorIs(t, err, appointment.ErrNotFound)
}

func TestPgxRepository_QueryFilters(t *testing.T) {
	repo := appointment.NewPgxRepository(testPool(t))
	ctx := context.Background()
	base := time.Date(2030, 2, 4, 19, 0, 0, 0, time.UTC)

	for i, email := range []string{"a@example.org", "B@example.org", "c@example.org"} {
		require.NoError(t, repo.CreateIfAvailable(ctx, newBooking(base.Add(time.Duration(i)*2*time.Hour), email), time.Hour))
	}

	to := base.Add(4 * time.Hour)
	items, total, err := repo.Query(ctx, appointment.Filter{From: &base, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, base, items[0].SlotStartUTC)

	items, total, err = repo.Query(ctx, appointment.Filter{Email: "b@EXAMPLE.org"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)

	items, total, err = repo.Query(ctx, appointment.Filter{Page: 2, PageSize: 2, SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, base, items[0].SlotStartUTC)
}

func TestPgxRepository_ClaimReminder(t *testing.T) {
	repo := appointment.NewPgxRepository(testPool(t))
	ctx := context.Background()
	pending := []appointment.Status{appointment.StatusPending}

	b := newBooking(time.Date(2030, 3, 4, 19, 0, 0, 0, time.UTC), "remind@example.org")
	require.NoError(t, repo.CreateIfAvailable(ctx, b, time.Hour))

	sendErr := errors.New("relay down")
	claimed, err := repo.ClaimReminder(ctx, b.ID, pending, func(*appointment.Booking) error { return sendErr })
	assert.False(t, claimed)
	assert.ErrorIs(t, err, sendErr)

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.ReminderSent)

	now := time.Date(2030, 3, 3, 19, 0, 0, 0, time.UTC)
	claimed, err = repo.ClaimReminder(ctx, b.ID, pending, func(locked *appointment.Booking) error {
		appointment.MarkReminderSent(locked, now)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err = repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)
	require.NotNil(t, got.LastReminderSentAt)
	assert.True(t, now.Equal(*got.LastReminderSentAt))

	calls := 0
	claimed, err = repo.ClaimReminder(ctx, b.ID, pending, func(*appointment.Booking) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Zero(t, calls)
}
