package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/hotel-booking-backend/internal/calendar"
	"github.com/nekogravitycat/hotel-booking-backend/internal/db"
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, b *Booking) error

	// ListHolding returns the inventory-holding bookings of a room whose
	// stay overlaps rng.
	ListHolding(ctx context.Context, roomID int64, rng calendar.Range) ([]*Booking, error)
	// ListHoldingInRange is ListHolding across every room.
	ListHoldingInRange(ctx context.Context, rng calendar.Range) ([]*Booking, error)

	// InRoomTx runs fn in one transaction holding the room's reservation
	// lock. The Repository passed to fn is bound to that transaction.
	InRoomTx(ctx context.Context, roomID int64, fn func(Repository) error) error
}

// roomLockClass namespaces booking advisory locks from any other
// pg_advisory lock users of the database.
const roomLockClass int32 = 0x424b

var holdingStatuses = []string{string(StatusPending), string(StatusConfirmed), string(StatusCheckedIn)}

type pgxRepository struct {
	pool *pgxpool.Pool
	q    db.Querier
	tx   pgx.Tx
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool, q: pool}
}

var bookingColumns = []string{
	"b.id", "b.room_id", "r.name", "b.user_id", "b.guest_name", "b.guest_email", "b.guest_phone",
	"b.adults", "b.children", "b.check_in", "b.check_out",
	"b.nightly_rate", "b.subtotal", "b.tax", "b.total",
	"b.status", "b.source", "b.special_requests", "b.created_at", "b.updated_at",
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	var status, source string
	dest := []any{
		&b.ID, &b.RoomID, &b.RoomName, &b.Guest.UserID, &b.Guest.Name, &b.Guest.Email, &b.Guest.Phone,
		&b.Adults, &b.Children, &b.CheckIn, &b.CheckOut,
		&b.NightlyRate, &b.Subtotal, &b.Tax, &b.Total,
		&status, &source, &b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	b.Source = Source(source)
	b.CheckIn = calendar.Day(b.CheckIn)
	b.CheckOut = calendar.Day(b.CheckOut)
	return &b, nil
}

func selectBookings() squirrel.SelectBuilder {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.rooms r ON b.room_id = r.id")
}

func (r *pgxRepository) queryBookings(ctx context.Context, query squirrel.SelectBuilder) ([]*Booking, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var result []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings failed: %w", err)
	}
	return result, nil
}

// mapWriteError turns constraint violations into domain errors.
func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ExclusionViolation:
			return ErrRoomUnavailable
		case pgerrcode.ForeignKeyViolation:
			return ErrRoomNotFound
		case pgerrcode.CheckViolation:
			return ErrInvalidInput
		}
	}
	return fmt.Errorf("%s booking failed: %w", op, err)
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"room_id", "user_id", "guest_name", "guest_email", "guest_phone",
			"adults", "children", "check_in", "check_out",
			"nightly_rate", "subtotal", "tax", "total",
			"status", "source", "special_requests",
		).
		Values(
			b.RoomID, b.Guest.UserID, b.Guest.Name, b.Guest.Email, b.Guest.Phone,
			b.Adults, b.Children, b.CheckIn, b.CheckOut,
			b.NightlyRate, b.Subtotal, b.Tax, b.Total,
			squirrel.Expr("?::booking_status", string(b.Status)),
			squirrel.Expr("?::booking_source", string(b.Source)),
			b.SpecialRequests,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapWriteError(err, "create")
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	query, args, err := selectBookings().
		Where(squirrel.Eq{"b.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := selectBookings().Column("count(*) OVER() as total_count")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.RoomID != 0 {
		query = query.Where(squirrel.Eq{"b.room_id": filter.RoomID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status::text": string(filter.Status)})
	}
	// Date window filtering (intersection logic)
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"b.check_out": calendar.Day(*filter.From)})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"b.check_in": calendar.Day(*filter.To)})
	}

	// Sorting
	orderBy := "b.check_in"
	if filter.SortBy != "" {
		orderBy = "b." + filter.SortBy
	}
	orderDir := "DESC"
	if filter.SortOrder != "" {
		orderDir = filter.SortOrder
	}
	query = query.OrderBy(orderBy+" "+orderDir, "b.id "+orderDir)

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, b *Booking) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("adults", b.Adults).
		Set("children", b.Children).
		Set("check_in", b.CheckIn).
		Set("check_out", b.CheckOut).
		Set("subtotal", b.Subtotal).
		Set("tax", b.Tax).
		Set("total", b.Total).
		Set("status", squirrel.Expr("?::booking_status", string(b.Status))).
		Set("special_requests", b.SpecialRequests).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError(err, "update")
	}
	return nil
}

func holdingOverlap(rng calendar.Range) squirrel.Sqlizer {
	// Half-open overlap: existing.check_in < rng.CheckOut AND rng.CheckIn < existing.check_out
	return squirrel.And{
		squirrel.Eq{"b.status::text": holdingStatuses},
		squirrel.Lt{"b.check_in": rng.CheckOut},
		squirrel.Gt{"b.check_out": rng.CheckIn},
	}
}

func (r *pgxRepository) ListHolding(ctx context.Context, roomID int64, rng calendar.Range) ([]*Booking, error) {
	return r.queryBookings(ctx, selectBookings().
		Where(squirrel.Eq{"b.room_id": roomID}).
		Where(holdingOverlap(rng)).
		OrderBy("b.check_in ASC"))
}

func (r *pgxRepository) ListHoldingInRange(ctx context.Context, rng calendar.Range) ([]*Booking, error) {
	return r.queryBookings(ctx, selectBookings().
		Where(holdingOverlap(rng)).
		OrderBy("b.room_id ASC", "b.check_in ASC"))
}

func (r *pgxRepository) InRoomTx(ctx context.Context, roomID int64, fn func(Repository) error) error {
	// Already inside a transaction: take the lock on it and reuse it.
	if r.tx != nil {
		if err := lockRoom(ctx, r.tx, roomID); err != nil {
			return err
		}
		return fn(r)
	}

	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockRoom(ctx, tx, roomID); err != nil {
			return err
		}
		return fn(&pgxRepository{pool: r.pool, q: tx, tx: tx})
	})
}

// lockRoom serializes writers of one room's reservation set until the
// transaction ends. Two rooms sharing the low 32 bits of their id only
// serialize more than needed.
func lockRoom(ctx context.Context, tx pgx.Tx, roomID int64) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", roomLockClass, int32(roomID)); err != nil {
		return fmt.Errorf("lock room %d failed: %w", roomID, err)
	}
	return nil
}
