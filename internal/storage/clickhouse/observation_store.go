package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// ObservationStore implements storage.ObservationStore using ClickHouse.
type ObservationStore struct {
	conn *Conn
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(conn *Conn) *ObservationStore {
	return &ObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// Append adds one observation row.
func (s *ObservationStore) Append(ctx context.Context, o *domain.Observation) error {
	if o == nil || o.ChainID == "" || o.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO asset_observations (
			chain_id, token_address, price_usd, volume_usd, liquidity_usd, ts
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		o.ChainID,
		o.TokenAddress,
		o.PriceUSD.String(),
		o.VolumeUSD.String(),
		o.LiquidityUSD.String(),
		o.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves observations within [start, end] inclusive,
// ordered by timestamp ASC.
func (s *ObservationStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Observation, error) {
	query := `
		SELECT chain_id, token_address, price_usd, volume_usd, liquidity_usd, ts
		FROM asset_observations
		WHERE ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get observations by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.Observation
	for rows.Next() {
		var o domain.Observation
		var price, vol, liq string
		var ts time.Time

		if err := rows.Scan(&o.ChainID, &o.TokenAddress, &price, &vol, &liq, &ts); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		if o.PriceUSD, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price_usd %q: %w", price, err)
		}
		if o.VolumeUSD, err = decimal.NewFromString(vol); err != nil {
			return nil, fmt.Errorf("parse volume_usd %q: %w", vol, err)
		}
		if o.LiquidityUSD, err = decimal.NewFromString(liq); err != nil {
			return nil, fmt.Errorf("parse liquidity_usd %q: %w", liq, err)
		}
		o.Timestamp = ts
		result = append(result, &o)
	}
	return result, rows.Err()
}
