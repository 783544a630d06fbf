package store

import (
	"fmt"

	"github.com/russross/meddler"
)

// GetCollection loads one NFT contract row.
func (s *Store) GetCollection(contractID string) (*Collection, error) {
	c := new(Collection)
	if err := s.getOne(c, `SELECT * FROM collections WHERE contract_id = ?`, contractID); err != nil {
		return nil, err
	}
	return c, nil
}

// PutCollection seeds a collection row if absent; a replayed creation is a
// no-op.
func (s *Store) PutCollection(c *Collection) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO collections
			(contract_id, creator, create_round, last_sync_round, total_supply)
		VALUES (?, ?, ?, ?, ?)`,
		c.ContractID, c.Creator, c.CreateRound, c.LastSyncRound, c.TotalSupply)
	if err != nil {
		return fmt.Errorf("failed to insert collection %s: %w", c.ContractID, err)
	}
	return nil
}

// UpdateCollectionSync advances a collection's per-contract checkpoint. The
// guard keeps it monotonic under replay.
func (s *Store) UpdateCollectionSync(contractID string, round uint64) error {
	return s.updateSync("collections", contractID, round)
}

// UpdateCollectionSupply sets the minted supply counter.
func (s *Store) UpdateCollectionSupply(contractID, totalSupply string) error {
	_, err := s.q.Exec(`UPDATE collections SET total_supply = ? WHERE contract_id = ?`,
		totalSupply, contractID)
	if err != nil {
		return fmt.Errorf("failed to update collection %s supply: %w", contractID, err)
	}
	return nil
}

// GetToken loads one token row.
func (s *Store) GetToken(contractID, tokenID string) (*Token, error) {
	t := new(Token)
	err := s.getOne(t, `SELECT * FROM tokens WHERE contract_id = ? AND token_id = ?`,
		contractID, tokenID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// InsertTokenIfAbsent inserts a freshly minted token. It reports whether the
// row was actually created, so a replayed mint can skip its side effects
// (supply bump, metadata fetch).
func (s *Store) InsertTokenIfAbsent(t *Token) (bool, error) {
	res, err := s.q.Exec(`
		INSERT OR IGNORE INTO tokens
			(contract_id, token_id, token_index, owner, approved, mint_round, metadata_uri, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ContractID, t.TokenID, t.TokenIndex, t.Owner, t.Approved, t.MintRound,
		t.MetadataURI, t.Metadata)
	if err != nil {
		return false, fmt.Errorf("failed to insert token %s/%s: %w", t.ContractID, t.TokenID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateTokenOwner moves a token to its new owner and clears any standing
// approval, which transfer consumes.
func (s *Store) UpdateTokenOwner(contractID, tokenID, owner string) error {
	_, err := s.q.Exec(`
		UPDATE tokens SET owner = ?, approved = ''
		WHERE contract_id = ? AND token_id = ?`,
		owner, contractID, tokenID)
	if err != nil {
		return fmt.Errorf("failed to update token %s/%s owner: %w", contractID, tokenID, err)
	}
	return nil
}

// UpdateTokenApproved sets the approved operator of a token.
func (s *Store) UpdateTokenApproved(contractID, tokenID, approved string) error {
	_, err := s.q.Exec(`
		UPDATE tokens SET approved = ?
		WHERE contract_id = ? AND token_id = ?`,
		approved, contractID, tokenID)
	if err != nil {
		return fmt.Errorf("failed to update token %s/%s approval: %w", contractID, tokenID, err)
	}
	return nil
}

// UpdateTokenMetadata stores the fetched metadata document and its URI.
func (s *Store) UpdateTokenMetadata(contractID, tokenID, uri, metadata string) error {
	_, err := s.q.Exec(`
		UPDATE tokens SET metadata_uri = ?, metadata = ?
		WHERE contract_id = ? AND token_id = ?`,
		uri, metadata, contractID, tokenID)
	if err != nil {
		return fmt.Errorf("failed to update token %s/%s metadata: %w", contractID, tokenID, err)
	}
	return nil
}

// InsertTransferIfAbsent appends one transfer history row, keyed by the
// transaction id.
func (s *Store) InsertTransferIfAbsent(tr *Transfer) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO transfers
			(transaction_id, contract_id, token_id, round, from_addr, to_addr, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tr.TransactionID, tr.ContractID, tr.TokenID, tr.Round, tr.From, tr.To, tr.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert transfer %s: %w", tr.TransactionID, err)
	}
	return nil
}

// GetTransfers returns a token's transfer history in round order.
func (s *Store) GetTransfers(contractID, tokenID string) ([]*Transfer, error) {
	var out []*Transfer
	err := meddler.QueryAll(s.q, &out, `
		SELECT * FROM transfers
		WHERE contract_id = ? AND token_id = ?
		ORDER BY round ASC, transaction_id ASC`,
		contractID, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers for %s/%s: %w", contractID, tokenID, err)
	}
	return out, nil
}

// CountTokens returns the number of stored tokens of a collection.
func (s *Store) CountTokens(contractID string) (uint64, error) {
	var n uint64
	err := s.q.QueryRow(`SELECT COUNT(*) FROM tokens WHERE contract_id = ?`, contractID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens of %s: %w", contractID, err)
	}
	return n, nil
}

func (s *Store) updateSync(table, contractID string, round uint64) error {
	_, err := s.q.Exec(
		fmt.Sprintf(`UPDATE %s SET last_sync_round = ? WHERE contract_id = ? AND last_sync_round < ?`, table),
		round, contractID, round)
	if err != nil {
		return fmt.Errorf("failed to advance %s sync for %s: %w", table, contractID, err)
	}
	return nil
}
