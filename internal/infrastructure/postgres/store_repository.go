package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-restaurant-booking/internal/domain/store"
)

type storeRow struct {
	ID                  string         `db:"id"`
	OrgName             string         `db:"org_name"`
	StoreName           string         `db:"store_name"`
	Timezone            sql.NullString `db:"timezone"`
	StoreHour           []byte         `db:"store_hour"`
	DineInCapacity      sql.NullInt64  `db:"dinein_capacity"`
	SlotDurationMinutes sql.NullInt64  `db:"slot_duration_minutes"`
	IsActive            bool           `db:"is_active"`
}

// StoreRepository は店舗設定を読み取る（書き込みは行わない）
type StoreRepository struct{ db *sqlx.DB }

func NewStoreRepository(db *sqlx.DB) *StoreRepository { return &StoreRepository{db: db} }

func (r *StoreRepository) GetByName(ctx context.Context, orgName, storeName string) (*store.Store, error) {
	var row storeRow
	query := `SELECT id, org_name, store_name, timezone, store_hour, dinein_capacity, slot_duration_minutes, is_active
		FROM stores WHERE org_name = $1 AND store_name = $2 AND is_deleted = false`
	if err := r.db.GetContext(ctx, &row, query, orgName, storeName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStoreNotFound
		}
		return nil, fmt.Errorf("店舗取得に失敗: %w", err)
	}
	hours, err := store.ParseHours(row.StoreHour)
	if err != nil {
		return nil, err
	}
	// 容量・枠幅の欠損は 0 として扱い、Validate で設定不正にする
	return &store.Store{
		ID: row.ID, OrgName: row.OrgName, StoreName: row.StoreName,
		Timezone:            row.Timezone.String,
		Hours:               hours,
		DineInCapacity:      int(row.DineInCapacity.Int64),
		SlotDurationMinutes: int(row.SlotDurationMinutes.Int64),
		IsActive:            row.IsActive,
	}, nil
}

var _ store.Repository = (*StoreRepository)(nil)
