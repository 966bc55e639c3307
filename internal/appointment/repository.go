package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the only writer of booking records.
type Repository interface {
	Query(ctx context.Context, filter Filter) ([]*Booking, int, error)
	GetByID(ctx context.Context, id string) (*Booking, error)

	// CreateIfAvailable inserts b only if no active booking starts strictly within
	// buffer of b.SlotStartUTC. The check and the insert are atomic.
	CreateIfAvailable(ctx context.Context, b *Booking, buffer time.Duration) error

	// Update persists status, remark and meeting link, provided the stored status is
	// still from. A concurrent change surfaces as ErrInvalidTransition.
	Update(ctx context.Context, b *Booking, from Status) error

	// ClaimReminder locks an unreminded booking in one of statuses and runs fn on it.
	// When fn succeeds the reminder fields fn set are persisted. It reports false
	// without calling fn when the booking is already reminded, ineligible, or held
	// by a concurrent pass. The row lock and its pooled connection are held while
	// fn runs, so ctx must carry a deadline covering the send.
	ClaimReminder(ctx context.Context, id string, statuses []Status, fn func(b *Booking) error) (bool, error)
}

// bookingLockKey serializes booking inserts through pg_advisory_xact_lock.
const bookingLockKey int64 = 0x43484150454c // "CHAPEL"

var bookingColumns = []string{
	"id", "full_name", "phone", "email", "slot_start_utc", "medium", "status",
	"remark", "meeting_link", "cancel_token", "reminder_sent", "last_reminder_sent_at",
	"created_at", "updated_at",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.FullName, &b.Phone, &b.Email, &b.SlotStartUTC, &b.Medium, &b.Status,
		&b.Remark, &b.MeetingLink, &b.CancelToken, &b.ReminderSent, &b.LastReminderSentAt,
		&b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.SlotStartUTC = b.SlotStartUTC.UTC()
	return &b, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *pgxRepository) Query(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql().Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings")

	if len(filter.StatusIn) > 0 {
		query = query.Where(squirrel.Eq{"status": statusStrings(filter.StatusIn)})
	}
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"slot_start_utc": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"slot_start_utc": *filter.To})
	}
	if filter.Email != "" {
		query = query.Where(squirrel.Eq{"lower(email)": strings.ToLower(filter.Email)})
	}
	if filter.ReminderSent != nil {
		query = query.Where(squirrel.Eq{"reminder_sent": *filter.ReminderSent})
	}

	orderDir := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		orderDir = "DESC"
	}
	query = query.OrderBy("slot_start_utc " + orderDir)

	// Internal callers leave PageSize at zero to read the whole range.
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Limit(uint64(filter.PageSize)).Offset(uint64((page - 1) * filter.PageSize))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query bookings failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, storeError("query bookings", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, storeError("scan booking", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError("query bookings", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	sql, args, err := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeError("get booking", err)
	}
	return b, nil
}

func (r *pgxRepository) CreateIfAvailable(ctx context.Context, b *Booking, buffer time.Duration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storeError("begin create booking", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// All inserts queue here, so the conflict check below sees every committed booking.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", bookingLockKey); err != nil {
		return storeError("lock booking calendar", err)
	}

	slot := b.SlotStartUTC
	check, args, err := psql().Select("1").
		From("public.bookings").
		Where(squirrel.NotEq{"status": string(StatusCancelled)}).
		Where(squirrel.Or{
			squirrel.Eq{"slot_start_utc": slot},
			squirrel.And{
				squirrel.Gt{"slot_start_utc": slot.Add(-buffer)},
				squirrel.Lt{"slot_start_utc": slot.Add(buffer)},
			},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build conflict check query failed: %w", err)
	}

	var taken bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS ("+check+")", args...).Scan(&taken); err != nil {
		return storeError("check slot conflict", err)
	}
	if taken {
		return ErrSlotConflict
	}

	insert, args, err := psql().Insert("public.bookings").
		Columns("full_name", "phone", "email", "slot_start_utc", "medium", "status", "remark", "meeting_link", "cancel_token").
		Values(b.FullName, b.Phone, b.Email, slot, string(b.Medium), string(b.Status), b.Remark, b.MeetingLink, b.CancelToken).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, insert, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlotConflict
		}
		return storeError("insert booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrSlotConflict
		}
		return storeError("commit booking", err)
	}
	return nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking, from Status) error {
	sql, args, err := psql().Update("public.bookings").
		Set("status", string(b.Status)).
		Set("remark", b.Remark).
		Set("meeting_link", b.MeetingLink).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID, "status": string(from)}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&b.UpdatedAt); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return storeError("update booking", err)
		}
		// Either the booking is gone or its status moved underneath us.
		if _, getErr := r.GetByID(ctx, b.ID); getErr != nil {
			return getErr
		}
		return ErrInvalidTransition
	}
	return nil
}

func (r *pgxRepository) ClaimReminder(ctx context.Context, id string, statuses []Status, fn func(b *Booking) error) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, storeError("begin reminder claim", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sql, args, err := psql().Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id, "reminder_sent": false, "status": statusStrings(statuses)}).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build reminder claim query failed: %w", err)
	}

	b, err := scanBooking(tx.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, storeError("claim reminder", err)
	}

	if err := fn(b); err != nil {
		return false, err
	}

	mark, args, err := psql().Update("public.bookings").
		Set("reminder_sent", b.ReminderSent).
		Set("last_reminder_sent_at", b.LastReminderSentAt).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build reminder mark query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, mark, args...); err != nil {
		return false, storeError("mark reminder sent", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, storeError("commit reminder", err)
	}
	return true, nil
}
