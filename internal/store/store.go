package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/russross/meddler"
	"github.com/voiscan/appindexor/internal/logger"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("not found")

const syncRoundKey = "syncRound"

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx; it is
// also what meddler's query helpers accept.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store implements the relational snapshot and history over SQLite.
type Store struct {
	db  *sql.DB
	q   queryer
	log *logger.Logger
}

// New creates a Store on an opened database.
func New(db *sql.DB, log *logger.Logger) *Store {
	return &Store{
		db:  db,
		q:   db,
		log: log.WithComponent("store"),
	}
}

// WithTx runs fn with a Store bound to a single transaction, committing on
// success and rolling back on error. Every per-contract sync applies its
// events and checkpoint advance through one WithTx call so a crash can never
// leave applied events without the matching checkpoint.
func (s *Store) WithTx(fn func(*Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStore := &Store{q: tx, log: s.log}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Errorw("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	return tx.Commit()
}

// GetSyncRound returns the global fully-processed round. The second return is
// false when no block has been processed yet.
func (s *Store) GetSyncRound() (uint64, bool, error) {
	var value uint64
	err := s.q.QueryRow(`SELECT value FROM sync_checkpoint WHERE key = ?`, syncRoundKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read sync round: %w", err)
	}
	return value, true, nil
}

// SetSyncRound records the global fully-processed round. The guard keeps the
// checkpoint monotonic even if a stale writer races in.
func (s *Store) SetSyncRound(round uint64) error {
	_, err := s.q.Exec(`
		INSERT INTO sync_checkpoint (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
		WHERE excluded.value > sync_checkpoint.value`,
		syncRoundKey, round)
	if err != nil {
		return fmt.Errorf("failed to set sync round: %w", err)
	}
	return nil
}

// FamilyOf returns the family a known contract was classified into, or
// FamilyUnknown when the contract has never been stored.
func (s *Store) FamilyOf(contractID string) (Family, error) {
	lookups := []struct {
		table  string
		family Family
	}{
		{"collections", FamilyNFT},
		{"token_contracts", FamilyToken},
		{"markets", FamilyMarket},
		{"pools", FamilyPool},
		{"stake_pools", FamilyStaking},
		{"scs_accounts", FamilySCS},
	}

	for _, l := range lookups {
		var one int
		err := s.q.QueryRow(
			fmt.Sprintf(`SELECT 1 FROM %s WHERE contract_id = ?`, l.table), contractID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return FamilyUnknown, fmt.Errorf("failed to probe %s: %w", l.table, err)
		}
		return l.family, nil
	}

	return FamilyUnknown, nil
}

// getOne loads a single row into dst, mapping no-rows to ErrNotFound.
func (s *Store) getOne(dst any, query string, args ...any) error {
	err := meddler.QueryRow(s.q, dst, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
