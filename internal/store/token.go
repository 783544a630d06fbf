package store

import (
	"fmt"

	"github.com/russross/meddler"
)

// GetTokenContract loads one fungible token contract row.
func (s *Store) GetTokenContract(contractID string) (*TokenContract, error) {
	tc := new(TokenContract)
	if err := s.getOne(tc, `SELECT * FROM token_contracts WHERE contract_id = ?`, contractID); err != nil {
		return nil, err
	}
	return tc, nil
}

// PutTokenContract seeds a fungible contract row if absent.
func (s *Store) PutTokenContract(tc *TokenContract) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO token_contracts
			(contract_id, creator, create_round, last_sync_round, name, symbol, decimals, total_supply)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.ContractID, tc.Creator, tc.CreateRound, tc.LastSyncRound,
		tc.Name, tc.Symbol, tc.Decimals, tc.TotalSupply)
	if err != nil {
		return fmt.Errorf("failed to insert token contract %s: %w", tc.ContractID, err)
	}
	return nil
}

// UpdateTokenContractSync advances a fungible contract's checkpoint.
func (s *Store) UpdateTokenContractSync(contractID string, round uint64) error {
	return s.updateSync("token_contracts", contractID, round)
}

// UpdateTokenContractSupply refreshes the reported total supply.
func (s *Store) UpdateTokenContractSupply(contractID, totalSupply string) error {
	_, err := s.q.Exec(`UPDATE token_contracts SET total_supply = ? WHERE contract_id = ?`,
		totalSupply, contractID)
	if err != nil {
		return fmt.Errorf("failed to update token contract %s supply: %w", contractID, err)
	}
	return nil
}

// InsertTokenTransferIfAbsent appends one fungible transfer history row.
func (s *Store) InsertTokenTransferIfAbsent(tr *TokenTransfer) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO token_transfers
			(transaction_id, contract_id, amount, round, from_addr, to_addr, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tr.TransactionID, tr.ContractID, tr.Amount, tr.Round, tr.From, tr.To, tr.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert token transfer %s: %w", tr.TransactionID, err)
	}
	return nil
}

// InsertTokenApprovalIfAbsent appends one fungible approval history row.
func (s *Store) InsertTokenApprovalIfAbsent(ap *TokenApproval) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO token_approvals
			(transaction_id, contract_id, owner, spender, amount, round, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ap.TransactionID, ap.ContractID, ap.Owner, ap.Spender, ap.Amount, ap.Round, ap.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert token approval %s: %w", ap.TransactionID, err)
	}
	return nil
}

// GetTokenTransfers returns a fungible contract's transfer history in round
// order.
func (s *Store) GetTokenTransfers(contractID string) ([]*TokenTransfer, error) {
	var out []*TokenTransfer
	err := meddler.QueryAll(s.q, &out, `
		SELECT * FROM token_transfers
		WHERE contract_id = ?
		ORDER BY round ASC, transaction_id ASC`,
		contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query token transfers for %s: %w", contractID, err)
	}
	return out, nil
}
