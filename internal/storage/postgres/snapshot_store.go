package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const snapshotColumns = `
	chain_id, token_address, token_name, token_symbol,
	dexscreener_url, icon_url, header_url, open_graph_url, description,
	links, price_usd::text, liquidity_usd::text, volume_usd::text,
	risk_data, ts
`

// Upsert writes the snapshot keyed by (chain_id, token_address).
// Returns true when a new row was inserted. The insert-vs-update
// distinction comes from xmax: freshly inserted rows have xmax = 0.
func (s *SnapshotStore) Upsert(ctx context.Context, snap *domain.AssetSnapshot) (bool, error) {
	if snap == nil || snap.ChainID == "" || snap.TokenAddress == "" {
		return false, storage.ErrInvalidInput
	}

	links, err := marshalLinks(snap.Links)
	if err != nil {
		return false, fmt.Errorf("marshal links: %w", err)
	}
	risk, err := marshalRisk(snap.Risk)
	if err != nil {
		return false, fmt.Errorf("marshal risk data: %w", err)
	}

	query := `
		INSERT INTO asset_snapshots (
			chain_id, token_address, token_name, token_symbol,
			dexscreener_url, icon_url, header_url, open_graph_url, description,
			links, price_usd, liquidity_usd, volume_usd, risk_data, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12::numeric, $13::numeric, $14, $15)
		ON CONFLICT (chain_id, token_address) DO UPDATE SET
			token_name = EXCLUDED.token_name,
			token_symbol = EXCLUDED.token_symbol,
			dexscreener_url = EXCLUDED.dexscreener_url,
			icon_url = EXCLUDED.icon_url,
			header_url = EXCLUDED.header_url,
			open_graph_url = EXCLUDED.open_graph_url,
			description = EXCLUDED.description,
			links = EXCLUDED.links,
			price_usd = EXCLUDED.price_usd,
			liquidity_usd = EXCLUDED.liquidity_usd,
			volume_usd = EXCLUDED.volume_usd,
			risk_data = EXCLUDED.risk_data,
			ts = EXCLUDED.ts
		RETURNING (xmax = 0)
	`

	var inserted bool
	err = s.pool.QueryRow(ctx, query,
		snap.ChainID,
		snap.TokenAddress,
		snap.TokenName,
		snap.TokenSymbol,
		snap.DexscreenerURL,
		snap.IconURL,
		snap.HeaderURL,
		snap.OpenGraphURL,
		snap.Description,
		links,
		snap.PriceUSD.String(),
		snap.LiquidityUSD.String(),
		snap.VolumeUSD.String(),
		risk,
		snap.Timestamp,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert snapshot: %w", err)
	}
	return inserted, nil
}

// GetByKey retrieves the live row. Returns ErrNotFound if absent.
func (s *SnapshotStore) GetByKey(ctx context.Context, key domain.AssetKey) (*domain.AssetSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM asset_snapshots
		WHERE chain_id = $1 AND token_address = $2
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, key.ChainID, key.TokenAddress))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot by key: %w", err)
	}
	return snap, nil
}

// GetRecent retrieves up to limit rows, newest write first.
func (s *SnapshotStore) GetRecent(ctx context.Context, limit int) ([]*domain.AssetSnapshot, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + snapshotColumns + `
		FROM asset_snapshots
		ORDER BY ts DESC, chain_id ASC, token_address ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent snapshots: %w", err)
	}
	defer rows.Close()

	var result []*domain.AssetSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		result = append(result, snap)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*domain.AssetSnapshot, error) {
	var snap domain.AssetSnapshot
	var links, risk []byte
	var price, liq, vol string
	var ts time.Time

	err := row.Scan(
		&snap.ChainID,
		&snap.TokenAddress,
		&snap.TokenName,
		&snap.TokenSymbol,
		&snap.DexscreenerURL,
		&snap.IconURL,
		&snap.HeaderURL,
		&snap.OpenGraphURL,
		&snap.Description,
		&links,
		&price,
		&liq,
		&vol,
		&risk,
		&ts,
	)
	if err != nil {
		return nil, err
	}

	if snap.PriceUSD, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price_usd %q: %w", price, err)
	}
	if snap.LiquidityUSD, err = decimal.NewFromString(liq); err != nil {
		return nil, fmt.Errorf("parse liquidity_usd %q: %w", liq, err)
	}
	if snap.VolumeUSD, err = decimal.NewFromString(vol); err != nil {
		return nil, fmt.Errorf("parse volume_usd %q: %w", vol, err)
	}

	if len(links) > 0 {
		if err := json.Unmarshal(links, &snap.Links); err != nil {
			return nil, fmt.Errorf("unmarshal links: %w", err)
		}
	}
	if len(risk) > 0 {
		snap.Risk = &domain.RiskReport{}
		if err := json.Unmarshal(risk, snap.Risk); err != nil {
			return nil, fmt.Errorf("unmarshal risk data: %w", err)
		}
	}

	snap.Timestamp = ts
	return &snap, nil
}

func marshalLinks(links []domain.ProfileLink) ([]byte, error) {
	if links == nil {
		return nil, nil
	}
	return json.Marshal(links)
}

func marshalRisk(risk *domain.RiskReport) ([]byte, error) {
	if risk == nil {
		return nil, nil
	}
	return json.Marshal(risk)
}
