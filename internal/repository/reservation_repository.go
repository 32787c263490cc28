package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/jmoiron/sqlx"

    "github.com/iliyamo/wave-plaza-bot/internal/model"
)

// ReservationRepo stores table reservations made through the bot.  All
// timestamp fields are assumed to be stored in UTC.
type ReservationRepo struct {
    db *sqlx.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
    return &ReservationRepo{db: sqlx.NewDb(db, "mysql")}
}

// reservationRecord mirrors the schema of the reservations table.
type reservationRecord struct {
    ID          uint64         `db:"id"`
    UserID      int64          `db:"user_id"`
    Username    sql.NullString `db:"username"`
    PhoneNumber string         `db:"phone_number"`
    Zone        string         `db:"zone"`
    TableNumber string         `db:"table_number"`
    Date        string         `db:"date"`
    Time        string         `db:"time"`
    Status      string         `db:"status"`
    CreatedAt   time.Time      `db:"created_at"`
    UpdatedAt   time.Time      `db:"updated_at"`
}

func (rec reservationRecord) toModel() model.Reservation {
    r := model.Reservation{
        ID:        rec.ID,
        UserID:    rec.UserID,
        Phone:     rec.PhoneNumber,
        Zone:      rec.Zone,
        Table:     rec.TableNumber,
        Date:      rec.Date,
        Time:      rec.Time,
        Status:    model.ReservationStatus(rec.Status),
        CreatedAt: rec.CreatedAt,
        UpdatedAt: rec.UpdatedAt,
    }
    if rec.Username.Valid {
        u := rec.Username.String
        r.Username = &u
    }
    return r
}

const selectReservation = `SELECT id, user_id, username, phone_number, zone, table_number, date, time, status, created_at, updated_at FROM reservations`

// Create inserts res as a new pending reservation and fills in the
// generated ID and timestamps.  The insert and the read-back share one
// transaction, so either the whole row is visible afterwards or nothing is.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    if res.Status == "" {
        res.Status = model.StatusPending
    }
    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return fmt.Errorf("begin: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var username sql.NullString
    if res.Username != nil && *res.Username != "" {
        username = sql.NullString{String: *res.Username, Valid: true}
    }
    const q = `INSERT INTO reservations (user_id, username, phone_number, zone, table_number, date, time, status) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
    result, err := tx.ExecContext(ctx, q, res.UserID, username, res.Phone, res.Zone, res.Table, res.Date, res.Time, string(res.Status))
    if err != nil {
        return fmt.Errorf("insert reservation: %w", err)
    }
    id, err := result.LastInsertId()
    if err != nil {
        return fmt.Errorf("insert reservation: %w", err)
    }
    // Query back the full row to populate timestamps and defaults
    var rec reservationRecord
    if err := tx.GetContext(ctx, &rec, selectReservation+` WHERE id = ?`, id); err != nil {
        return fmt.Errorf("read back reservation %d: %w", id, err)
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit: %w", err)
    }
    committed = true
    *res = rec.toModel()
    return nil
}

// GetByID returns the reservation with the given ID or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    var rec reservationRecord
    if err := r.db.GetContext(ctx, &rec, selectReservation+` WHERE id = ?`, id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    res := rec.toModel()
    return &res, nil
}

// List returns the newest reservations first, optionally filtered by
// status.  A limit outside 1..200 falls back to 50.
func (r *ReservationRepo) List(ctx context.Context, status model.ReservationStatus, limit int) ([]model.Reservation, error) {
    if limit <= 0 || limit > 200 {
        limit = 50
    }
    var (
        recs []reservationRecord
        err  error
    )
    if status == "" {
        err = r.db.SelectContext(ctx, &recs, selectReservation+` ORDER BY id DESC LIMIT ?`, limit)
    } else {
        err = r.db.SelectContext(ctx, &recs, selectReservation+` WHERE status = ? ORDER BY id DESC LIMIT ?`, string(status), limit)
    }
    if err != nil {
        return nil, err
    }
    out := make([]model.Reservation, 0, len(recs))
    for _, rec := range recs {
        out = append(out, rec.toModel())
    }
    return out, nil
}

// UpdateStatus moves a pending reservation to status to and returns the
// updated row.  It returns ErrNotFound when no such reservation exists
// and ErrConflict when it has already left pending.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, to model.ReservationStatus) (*model.Reservation, error) {
    if to != model.StatusApproved && to != model.StatusCanceled {
        return nil, fmt.Errorf("%w: cannot move to %q", ErrConflict, to)
    }
    tx, err := r.db.BeginTxx(ctx, nil)
    if err != nil {
        return nil, fmt.Errorf("begin: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const q = `UPDATE reservations SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`
    result, err := tx.ExecContext(ctx, q, string(to), id, string(model.StatusPending))
    if err != nil {
        return nil, fmt.Errorf("update status: %w", err)
    }
    n, err := result.RowsAffected()
    if err != nil {
        return nil, fmt.Errorf("update status: %w", err)
    }

    var rec reservationRecord
    if err := tx.GetContext(ctx, &rec, selectReservation+` WHERE id = ?`, id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrNotFound
        }
        return nil, err
    }
    if n == 0 {
        return nil, fmt.Errorf("%w: reservation %d is %s", ErrConflict, id, rec.Status)
    }
    if err := tx.Commit(); err != nil {
        return nil, fmt.Errorf("commit: %w", err)
    }
    committed = true
    res := rec.toModel()
    return &res, nil
}
