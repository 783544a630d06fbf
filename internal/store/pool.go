package store

import (
	"fmt"

	"github.com/russross/meddler"
)

// GetPool loads one liquidity pool row.
func (s *Store) GetPool(contractID string) (*Pool, error) {
	p := new(Pool)
	if err := s.getOne(p, `SELECT * FROM pools WHERE contract_id = ?`, contractID); err != nil {
		return nil, err
	}
	return p, nil
}

// PutPool seeds a pool row if absent.
func (s *Store) PutPool(p *Pool) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO pools
			(contract_id, creator, create_round, last_sync_round, provider,
			 tok_a, tok_b, decimals_a, decimals_b, balance_a, balance_b, tvl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ContractID, p.Creator, p.CreateRound, p.LastSyncRound, p.Provider,
		p.TokA, p.TokB, p.DecimalsA, p.DecimalsB, p.BalanceA, p.BalanceB, p.TVL)
	if err != nil {
		return fmt.Errorf("failed to insert pool %s: %w", p.ContractID, err)
	}
	return nil
}

// UpdatePoolSync advances a pool's checkpoint.
func (s *Store) UpdatePoolSync(contractID string, round uint64) error {
	return s.updateSync("pools", contractID, round)
}

// UpdatePoolBalances overwrites a pool's sides with the absolute post-state
// amounts carried by the event, plus the recomputed locked-value figure.
func (s *Store) UpdatePoolBalances(contractID, balanceA, balanceB string, tvl float64) error {
	_, err := s.q.Exec(`
		UPDATE pools SET balance_a = ?, balance_b = ?, tvl = ?
		WHERE contract_id = ?`,
		balanceA, balanceB, tvl, contractID)
	if err != nil {
		return fmt.Errorf("failed to update pool %s balances: %w", contractID, err)
	}
	return nil
}

// GetPrice loads a pool's current derived price.
func (s *Store) GetPrice(contractID string) (*Price, error) {
	p := new(Price)
	if err := s.getOne(p, `SELECT * FROM prices WHERE contract_id = ?`, contractID); err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPrice writes the current derived price. A nil price is stored as NULL
// rather than zero: an empty pool has no price, not a free one.
func (s *Store) UpsertPrice(contractID string, price *float64) error {
	_, err := s.q.Exec(`
		INSERT INTO prices (contract_id, price) VALUES (?, ?)
		ON CONFLICT(contract_id) DO UPDATE SET price = excluded.price`,
		contractID, price)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", contractID, err)
	}
	return nil
}

// InsertPricePointIfAbsent appends one price history row. At most one point
// per (contract, round) survives, so replaying a block cannot duplicate the
// series.
func (s *Store) InsertPricePointIfAbsent(pp *PricePoint) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO price_history
			(contract_id, round, price, balance_a, balance_b)
		VALUES (?, ?, ?, ?, ?)`,
		pp.ContractID, pp.Round, pp.Price, pp.BalanceA, pp.BalanceB)
	if err != nil {
		return fmt.Errorf("failed to insert price point for %s at %d: %w", pp.ContractID, pp.Round, err)
	}
	return nil
}

// GetPriceHistory returns a pool's price series in round order.
func (s *Store) GetPriceHistory(contractID string) ([]*PricePoint, error) {
	var out []*PricePoint
	err := meddler.QueryAll(s.q, &out, `
		SELECT * FROM price_history
		WHERE contract_id = ?
		ORDER BY round ASC`,
		contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history for %s: %w", contractID, err)
	}
	return out, nil
}
