package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/booking"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
)

const bookingColumns = `id, org_name, store_name, customer_name, customer_phone_number, guests_count,
	start_time, end_time, notes, status, created_by, updated_by, created_at, updated_at`

type bookingRow struct {
	ID                  string         `db:"id"`
	OrgName             string         `db:"org_name"`
	StoreName           string         `db:"store_name"`
	CustomerName        string         `db:"customer_name"`
	CustomerPhoneNumber string         `db:"customer_phone_number"`
	GuestsCount         int            `db:"guests_count"`
	StartTime           time.Time      `db:"start_time"`
	EndTime             time.Time      `db:"end_time"`
	Notes               sql.NullString `db:"notes"`
	Status              string         `db:"status"`
	CreatedBy           string         `db:"created_by"`
	UpdatedBy           sql.NullString `db:"updated_by"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID: r.ID, OrgName: r.OrgName, StoreName: r.StoreName,
		CustomerName: r.CustomerName, CustomerPhoneNumber: r.CustomerPhoneNumber,
		GuestsCount: r.GuestsCount,
		StartTime:   r.StartTime.UTC(), EndTime: r.EndTime.UTC(),
		Notes:  r.Notes.String,
		Status: booking.Status(r.Status),
		CreatedBy: r.CreatedBy, UpdatedBy: r.UpdatedBy.String,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO bookings (org_name, store_name, customer_name, customer_phone_number, guests_count,
			start_time, end_time, notes, status, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	if err := sqlTx.QueryRowContext(ctx, query,
		b.OrgName, b.StoreName, b.CustomerName, b.CustomerPhoneNumber, b.GuestsCount,
		b.StartTime, b.EndTime, b.Notes, string(b.Status), b.CreatedBy, b.UpdatedBy, b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	return r.get(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlTx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) get(ctx context.Context, q sqlx.QueryerContext, query, id string) (*booking.Booking, error) {
	var row bookingRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	query := `UPDATE bookings SET customer_name = $1, customer_phone_number = $2, guests_count = $3,
			start_time = $4, end_time = $5, notes = $6, status = $7, updated_by = $8, updated_at = $9
		WHERE id = $10`
	result, err := sqlTx.ExecContext(ctx, query,
		b.CustomerName, b.CustomerPhoneNumber, b.GuestsCount, b.StartTime, b.EndTime,
		b.Notes, string(b.Status), b.UpdatedBy, b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) ListByStore(ctx context.Context, orgName, storeName string, limit, offset int) ([]*booking.Booking, error) {
	var rows []bookingRow
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE org_name = $1 AND store_name = $2 AND status <> 'cancelled'
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	if err := r.db.SelectContext(ctx, &rows, query, orgName, storeName, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*booking.Booking, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
