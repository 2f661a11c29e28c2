package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const roomColumns = `id, name, description, total_units, capacity, price_per_night_cents, active, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var r domain.Room
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &r.TotalUnits, &r.Capacity, &r.PricePerNightCents, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *pgQueries) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := scanRoom(q.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	return room, err
}

func (q *pgQueries) ListRooms(ctx context.Context, activeOnly bool) ([]domain.Room, error) {
	rows, err := q.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms WHERE ($1 = false OR active) ORDER BY price_per_night_cents, id`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

func (q *pgQueries) CreateRoom(ctx context.Context, room *domain.Room) error {
	err := q.db.QueryRow(ctx, `INSERT INTO rooms (name, description, total_units, capacity, price_per_night_cents, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		room.Name, room.Description, room.TotalUnits, room.Capacity, room.PricePerNightCents, room.Active).
		Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	return mapError(err)
}

func (q *pgQueries) UpdateRoom(ctx context.Context, room *domain.Room) error {
	err := q.db.QueryRow(ctx, `UPDATE rooms
		SET name=$2, description=$3, total_units=$4, capacity=$5, price_per_night_cents=$6, active=$7, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		room.ID, room.Name, room.Description, room.TotalUnits, room.Capacity, room.PricePerNightCents, room.Active).
		Scan(&room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRoomNotFound
	}
	return mapError(err)
}

func (q *pgQueries) DeleteRoom(ctx context.Context, id int64) error {
	cmd, err := q.db.Exec(ctx, `DELETE FROM rooms WHERE id=$1`, id)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (q *pgQueries) ListOverrides(ctx context.Context, roomID int64, from, to time.Time) ([]domain.AvailabilityOverride, error) {
	rows, err := q.db.Query(ctx, `SELECT room_id, date, available_units, updated_at FROM availability_overrides
		WHERE room_id=$1 AND date >= $2 AND date < $3 ORDER BY date`, roomID, domain.Night(from), domain.Night(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AvailabilityOverride
	for rows.Next() {
		var o domain.AvailabilityOverride
		if err := rows.Scan(&o.RoomID, &o.Date, &o.AvailableUnits, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *pgQueries) UpsertOverride(ctx context.Context, o *domain.AvailabilityOverride) error {
	err := q.db.QueryRow(ctx, `INSERT INTO availability_overrides (room_id, date, available_units)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, date) DO UPDATE SET available_units=EXCLUDED.available_units, updated_at=now()
		RETURNING updated_at`, o.RoomID, domain.Night(o.Date), o.AvailableUnits).Scan(&o.UpdatedAt)
	return mapError(err)
}

func (q *pgQueries) DeleteOverride(ctx context.Context, roomID int64, date time.Time) error {
	_, err := q.db.Exec(ctx, `DELETE FROM availability_overrides WHERE room_id=$1 AND date=$2`, roomID, domain.Night(date))
	return err
}

func (q *pgQueries) ListBlockedDates(ctx context.Context, roomID int64, from, to time.Time) ([]domain.BlockedDate, error) {
	rows, err := q.db.Query(ctx, `SELECT room_id, date, units_blocked, reason, updated_at FROM blocked_dates
		WHERE room_id=$1 AND date >= $2 AND date < $3 ORDER BY date`, roomID, domain.Night(from), domain.Night(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BlockedDate
	for rows.Next() {
		var b domain.BlockedDate
		if err := rows.Scan(&b.RoomID, &b.Date, &b.UnitsBlocked, &b.Reason, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *pgQueries) UpsertBlockedDate(ctx context.Context, b *domain.BlockedDate) error {
	err := q.db.QueryRow(ctx, `INSERT INTO blocked_dates (room_id, date, units_blocked, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id, date) DO UPDATE SET units_blocked=EXCLUDED.units_blocked, reason=EXCLUDED.reason, updated_at=now()
		RETURNING updated_at`, b.RoomID, domain.Night(b.Date), b.UnitsBlocked, b.Reason).Scan(&b.UpdatedAt)
	return mapError(err)
}

func (q *pgQueries) DeleteBlockedDate(ctx context.Context, roomID int64, date time.Time) error {
	_, err := q.db.Exec(ctx, `DELETE FROM blocked_dates WHERE room_id=$1 AND date=$2`, roomID, domain.Night(date))
	return err
}
