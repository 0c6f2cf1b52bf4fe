package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/slot"
	"github.com/sanosuguru/go-restaurant-booking/internal/domain/transaction"
)

const slotColumns = `id, org_name, store_name, slot_start, slot_minutes, reserved_count, created_at, updated_at`

type slotReservationRow struct {
	ID            string    `db:"id"`
	OrgName       string    `db:"org_name"`
	StoreName     string    `db:"store_name"`
	SlotStart     time.Time `db:"slot_start"`
	SlotMinutes   int       `db:"slot_minutes"`
	ReservedCount int       `db:"reserved_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *slotReservationRow) toEntity() *slot.Reservation {
	return &slot.Reservation{
		ID: r.ID, OrgName: r.OrgName, StoreName: r.StoreName,
		SlotStart: r.SlotStart.UTC(), SlotMinutes: r.SlotMinutes,
		ReservedCount: r.ReservedCount,
		CreatedAt:     r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type driftRow struct {
	ID            string    `db:"id"`
	OrgName       string    `db:"org_name"`
	StoreName     string    `db:"store_name"`
	SlotStart     time.Time `db:"slot_start"`
	ReservedCount int       `db:"reserved_count"`
	LedgerSum     int       `db:"ledger_sum"`
}

// SlotReservationRepository は slot_reservations と履歴テーブルを扱う
type SlotReservationRepository struct{ db *sqlx.DB }

func NewSlotReservationRepository(db *sqlx.DB) *SlotReservationRepository {
	return &SlotReservationRepository{db: db}
}

// timestampArray は timestamptz[] に渡すための文字列配列を作る
func timestampArray(starts []time.Time) interface{} {
	values := make([]string, len(starts))
	for i, s := range starts {
		values[i] = s.UTC().Format(time.RFC3339Nano)
	}
	return pq.Array(values)
}

func (r *SlotReservationRepository) EnsureExist(ctx context.Context, tx transaction.Tx, orgName, storeName string, starts []time.Time, slotMinutes int) error {
	// 昇順に揃えて挿入し、同時実行時の一意インデックス待ちの順序を固定する
	starts = slot.Union(starts)
	if len(starts) == 0 {
		return nil
	}
	query := `INSERT INTO slot_reservations (org_name, store_name, slot_start, slot_minutes, reserved_count)
		SELECT $1, $2, s, $3, 0 FROM unnest($4::timestamptz[]) AS s ORDER BY s
		ON CONFLICT (org_name, store_name, slot_start, slot_minutes) DO NOTHING`
	if _, err := extFor(r.db, tx).ExecContext(ctx, query, orgName, storeName, slotMinutes, timestampArray(starts)); err != nil {
		return fmt.Errorf("枠予約行の作成に失敗: %w", err)
	}
	return nil
}

func (r *SlotReservationRepository) LockAndRead(ctx context.Context, tx transaction.Tx, orgName, storeName string, starts []time.Time, slotMinutes int) ([]*slot.Reservation, error) {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	starts = slot.Union(starts)
	if len(starts) == 0 {
		return nil, nil
	}
	var rows []slotReservationRow
	query := `SELECT ` + slotColumns + ` FROM slot_reservations
		WHERE org_name = $1 AND store_name = $2 AND slot_minutes = $3 AND slot_start = ANY($4::timestamptz[])
		ORDER BY slot_start
		FOR UPDATE`
	if err := sqlTx.SelectContext(ctx, &rows, query, orgName, storeName, slotMinutes, timestampArray(starts)); err != nil {
		return nil, fmt.Errorf("枠予約行のロック取得に失敗: %w", err)
	}
	if len(rows) != len(starts) {
		return nil, fmt.Errorf("%w: want=%d got=%d", slot.ErrSlotRowMissing, len(starts), len(rows))
	}
	result := make([]*slot.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *SlotReservationRepository) Adjust(ctx context.Context, tx transaction.Tx, slotReservationID string, delta int, bookingID, note string) error {
	sqlTx, err := requireTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlTx.ExecContext(ctx,
		`UPDATE slot_reservations SET reserved_count = GREATEST(0, reserved_count + $1), updated_at = NOW() WHERE id = $2`,
		delta, slotReservationID)
	if err != nil {
		return fmt.Errorf("枠予約数の更新に失敗: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return slot.ErrSlotRowMissing
	}
	if _, err := sqlTx.ExecContext(ctx,
		`INSERT INTO slot_reservation_history (slot_reservation_id, booking_id, delta, note) VALUES ($1, $2, $3, $4)`,
		slotReservationID, bookingID, delta, note); err != nil {
		return fmt.Errorf("枠予約履歴の追加に失敗: %w", err)
	}
	return nil
}

func (r *SlotReservationRepository) ListRange(ctx context.Context, orgName, storeName string, from, to time.Time, slotMinutes int) ([]*slot.Reservation, error) {
	var rows []slotReservationRow
	query := `SELECT ` + slotColumns + ` FROM slot_reservations
		WHERE org_name = $1 AND store_name = $2 AND slot_minutes = $3 AND slot_start >= $4 AND slot_start < $5
		ORDER BY slot_start`
	if err := r.db.SelectContext(ctx, &rows, query, orgName, storeName, slotMinutes, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("枠予約一覧取得に失敗: %w", err)
	}
	result := make([]*slot.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *SlotReservationRepository) FindDrift(ctx context.Context) ([]*slot.Drift, error) {
	var rows []driftRow
	query := `SELECT sr.id, sr.org_name, sr.store_name, sr.slot_start, sr.reserved_count,
			COALESCE(SUM(h.delta), 0) AS ledger_sum
		FROM slot_reservations sr
		LEFT JOIN slot_reservation_history h ON h.slot_reservation_id = sr.id
		GROUP BY sr.id
		HAVING sr.reserved_count <> GREATEST(0, COALESCE(SUM(h.delta), 0))
		ORDER BY sr.org_name, sr.store_name, sr.slot_start`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("枠予約の整合性確認に失敗: %w", err)
	}
	result := make([]*slot.Drift, len(rows))
	for i, row := range rows {
		result[i] = &slot.Drift{
			SlotReservationID: row.ID, OrgName: row.OrgName, StoreName: row.StoreName,
			SlotStart: row.SlotStart.UTC(), ReservedCount: row.ReservedCount, LedgerSum: row.LedgerSum,
		}
	}
	return result, nil
}

var _ slot.Repository = (*SlotReservationRepository)(nil)
