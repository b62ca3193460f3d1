package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// Append adds one observation row.
func (s *ObservationStore) Append(ctx context.Context, o *domain.Observation) error {
	if o == nil || o.ChainID == "" || o.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO asset_observations (
			chain_id, token_address, price_usd, volume_usd, liquidity_usd, ts
		) VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		o.ChainID,
		o.TokenAddress,
		o.PriceUSD.String(),
		o.VolumeUSD.String(),
		o.LiquidityUSD.String(),
		o.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves observations within [start, end] inclusive,
// ordered by timestamp ASC.
func (s *ObservationStore) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Observation, error) {
	query := `
		SELECT chain_id, token_address, price_usd::text, volume_usd::text, liquidity_usd::text, ts
		FROM asset_observations
		WHERE ts >= $1 AND ts <= $2
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get observations by time range: %w", err)
	}
	defer rows.Close()

	var result []*domain.Observation
	for rows.Next() {
		var o domain.Observation
		var price, vol, liq string

		if err := rows.Scan(&o.ChainID, &o.TokenAddress, &price, &vol, &liq, &o.Timestamp); err != nil {
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
		result = append(result, &o)
	}
	return result, rows.Err()
}
