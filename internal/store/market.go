package store

import (
	"fmt"

	"github.com/russross/meddler"
)

// GetMarket loads one marketplace contract row.
func (s *Store) GetMarket(contractID string) (*Market, error) {
	m := new(Market)
	if err := s.getOne(m, `SELECT * FROM markets WHERE contract_id = ?`, contractID); err != nil {
		return nil, err
	}
	return m, nil
}

// PutMarket seeds a marketplace row if absent.
func (s *Store) PutMarket(m *Market) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO markets
			(contract_id, creator, create_round, last_sync_round, escrow_addr)
		VALUES (?, ?, ?, ?, ?)`,
		m.ContractID, m.Creator, m.CreateRound, m.LastSyncRound, m.EscrowAddr)
	if err != nil {
		return fmt.Errorf("failed to insert market %s: %w", m.ContractID, err)
	}
	return nil
}

// UpdateMarketSync advances a marketplace's checkpoint.
func (s *Store) UpdateMarketSync(contractID string, round uint64) error {
	return s.updateSync("markets", contractID, round)
}

// InsertListingIfAbsent appends one listing, keyed by its creating transaction.
func (s *Store) InsertListingIfAbsent(l *Listing) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO listings
			(transaction_id, mp_contract_id, mp_listing_id, collection_id, token_id,
			 seller, currency, price, round, timestamp, sales_id, delete_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL)`,
		l.TransactionID, l.MpContractID, l.MpListingID, l.CollectionID, l.TokenID,
		l.Seller, l.Currency, l.Price, l.Round, l.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert listing %s: %w", l.TransactionID, err)
	}
	return nil
}

// GetListing loads one listing by its creating transaction id.
func (s *Store) GetListing(txID string) (*Listing, error) {
	l := new(Listing)
	if err := s.getOne(l, `SELECT * FROM listings WHERE transaction_id = ?`, txID); err != nil {
		return nil, err
	}
	return l, nil
}

// GetActiveListing finds the open listing behind a marketplace-scoped listing
// id. Buy and delete events carry only that id, and listing ids get reused
// once closed, so only the row with neither terminal pointer set matches.
func (s *Store) GetActiveListing(mpContractID, mpListingID string) (*Listing, error) {
	l := new(Listing)
	err := s.getOne(l, `
		SELECT * FROM listings
		WHERE mp_contract_id = ? AND mp_listing_id = ?
		  AND sales_id IS NULL AND delete_id IS NULL`,
		mpContractID, mpListingID)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// SetListingSale closes a listing as sold. The null guard makes a replayed
// close idempotent and keeps the two terminal states exclusive.
func (s *Store) SetListingSale(listingTxID, saleTxID string) error {
	_, err := s.q.Exec(`
		UPDATE listings SET sales_id = ?
		WHERE transaction_id = ? AND sales_id IS NULL AND delete_id IS NULL`,
		saleTxID, listingTxID)
	if err != nil {
		return fmt.Errorf("failed to close listing %s as sold: %w", listingTxID, err)
	}
	return nil
}

// SetListingDelete closes a listing as withdrawn.
func (s *Store) SetListingDelete(listingTxID, deleteTxID string) error {
	_, err := s.q.Exec(`
		UPDATE listings SET delete_id = ?
		WHERE transaction_id = ? AND sales_id IS NULL AND delete_id IS NULL`,
		deleteTxID, listingTxID)
	if err != nil {
		return fmt.Errorf("failed to close listing %s as deleted: %w", listingTxID, err)
	}
	return nil
}

// InsertSaleIfAbsent appends one sale history row.
func (s *Store) InsertSaleIfAbsent(sale *Sale) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO sales
			(transaction_id, mp_contract_id, mp_listing_id, listing_txid, collection_id,
			 token_id, seller, buyer, currency, price, round, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.TransactionID, sale.MpContractID, sale.MpListingID, sale.ListingTxID,
		sale.CollectionID, sale.TokenID, sale.Seller, sale.Buyer, sale.Currency,
		sale.Price, sale.Round, sale.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert sale %s: %w", sale.TransactionID, err)
	}
	return nil
}

// InsertListingDeleteIfAbsent appends one delete history row.
func (s *Store) InsertListingDeleteIfAbsent(del *ListingDelete) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO listing_deletes
			(transaction_id, mp_contract_id, mp_listing_id, listing_txid, owner, round, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		del.TransactionID, del.MpContractID, del.MpListingID, del.ListingTxID,
		del.Owner, del.Round, del.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert listing delete %s: %w", del.TransactionID, err)
	}
	return nil
}

// GetSales returns a marketplace's sale history in round order.
func (s *Store) GetSales(mpContractID string) ([]*Sale, error) {
	var out []*Sale
	err := meddler.QueryAll(s.q, &out, `
		SELECT * FROM sales
		WHERE mp_contract_id = ?
		ORDER BY round ASC, transaction_id ASC`,
		mpContractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales for %s: %w", mpContractID, err)
	}
	return out, nil
}
