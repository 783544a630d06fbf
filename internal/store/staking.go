package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/russross/meddler"
)

// GetStakePool loads one staking pool row.
func (s *Store) GetStakePool(contractID string) (*StakePool, error) {
	p := new(StakePool)
	if err := s.getOne(p, `SELECT * FROM stake_pools WHERE contract_id = ?`, contractID); err != nil {
		return nil, err
	}
	return p, nil
}

// HasStakePool reports whether a contract is a known staking pool. The
// classifier consults this before any probing.
func (s *Store) HasStakePool(contractID string) (bool, error) {
	var one int
	err := s.q.QueryRow(`SELECT 1 FROM stake_pools WHERE contract_id = ?`, contractID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe stake pool %s: %w", contractID, err)
	}
	return true, nil
}

// PutStakePool seeds a staking pool row if absent.
func (s *Store) PutStakePool(p *StakePool) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO stake_pools
			(contract_id, creator, create_round, last_sync_round, staked_token_id,
			 pool_staked_amount, start_round, end_round)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ContractID, p.Creator, p.CreateRound, p.LastSyncRound, p.StakedTokenID,
		p.PoolStakedAmount, p.StartRound, p.EndRound)
	if err != nil {
		return fmt.Errorf("failed to insert stake pool %s: %w", p.ContractID, err)
	}
	return nil
}

// UpdateStakePoolSync advances a staking pool's checkpoint.
func (s *Store) UpdateStakePoolSync(contractID string, round uint64) error {
	return s.updateSync("stake_pools", contractID, round)
}

// UpdateStakePoolDetails records the staked token and schedule announced by
// the pool's seeding event.
func (s *Store) UpdateStakePoolDetails(contractID, stakedTokenID string, startRound, endRound uint64) error {
	_, err := s.q.Exec(`
		UPDATE stake_pools SET staked_token_id = ?, start_round = ?, end_round = ?
		WHERE contract_id = ?`,
		stakedTokenID, startRound, endRound, contractID)
	if err != nil {
		return fmt.Errorf("failed to update stake pool %s details: %w", contractID, err)
	}
	return nil
}

// UpdateStakePoolAmount overwrites the pool-wide staked total with the
// absolute post-state amount from the event.
func (s *Store) UpdateStakePoolAmount(contractID, amount string) error {
	_, err := s.q.Exec(`UPDATE stake_pools SET pool_staked_amount = ? WHERE contract_id = ?`,
		amount, contractID)
	if err != nil {
		return fmt.Errorf("failed to update stake pool %s amount: %w", contractID, err)
	}
	return nil
}

// PutStakeReward seeds one reward token row if absent.
func (s *Store) PutStakeReward(r *StakeReward) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO stake_rewards
			(contract_id, reward_token_id, reward_amount, reward_remaining)
		VALUES (?, ?, ?, ?)`,
		r.ContractID, r.RewardTokenID, r.RewardAmount, r.RewardRemaining)
	if err != nil {
		return fmt.Errorf("failed to insert stake reward %s/%s: %w", r.ContractID, r.RewardTokenID, err)
	}
	return nil
}

// UpdateStakeRewardRemaining overwrites the remaining amount of one reward
// token.
func (s *Store) UpdateStakeRewardRemaining(contractID, rewardTokenID, remaining string) error {
	_, err := s.q.Exec(`
		UPDATE stake_rewards SET reward_remaining = ?
		WHERE contract_id = ? AND reward_token_id = ?`,
		remaining, contractID, rewardTokenID)
	if err != nil {
		return fmt.Errorf("failed to update stake reward %s/%s: %w", contractID, rewardTokenID, err)
	}
	return nil
}

// GetStakeRewards returns a pool's reward token rows in announcement order.
// Harvest payloads are ordered like the Pool event's reward list, so the
// rows must come back in insertion order.
func (s *Store) GetStakeRewards(contractID string) ([]*StakeReward, error) {
	var out []*StakeReward
	err := meddler.QueryAll(s.q, &out, `
		SELECT * FROM stake_rewards WHERE contract_id = ? ORDER BY rowid ASC`,
		contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stake rewards for %s: %w", contractID, err)
	}
	return out, nil
}

// GetStakeAccount loads one account position.
func (s *Store) GetStakeAccount(contractID, account string) (*StakeAccount, error) {
	a := new(StakeAccount)
	err := s.getOne(a, `SELECT * FROM stake_accounts WHERE contract_id = ? AND account = ?`,
		contractID, account)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UpsertStakeAccount overwrites an account position with the absolute
// post-state amount from the event.
func (s *Store) UpsertStakeAccount(a *StakeAccount) error {
	_, err := s.q.Exec(`
		INSERT INTO stake_accounts (contract_id, account, stake_amount)
		VALUES (?, ?, ?)
		ON CONFLICT(contract_id, account) DO UPDATE SET stake_amount = excluded.stake_amount`,
		a.ContractID, a.Account, a.StakeAmount)
	if err != nil {
		return fmt.Errorf("failed to upsert stake account %s/%s: %w", a.ContractID, a.Account, err)
	}
	return nil
}

// GetStakeAccountReward loads one account's cumulative reward row.
func (s *Store) GetStakeAccountReward(contractID, account, rewardTokenID string) (*StakeAccountReward, error) {
	r := new(StakeAccountReward)
	err := s.getOne(r, `
		SELECT * FROM stake_account_rewards
		WHERE contract_id = ? AND account = ? AND reward_token_id = ?`,
		contractID, account, rewardTokenID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// UpsertStakeAccountReward overwrites an account's cumulative received amount
// for one reward token.
func (s *Store) UpsertStakeAccountReward(r *StakeAccountReward) error {
	_, err := s.q.Exec(`
		INSERT INTO stake_account_rewards (contract_id, account, reward_token_id, total_received)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(contract_id, account, reward_token_id)
			DO UPDATE SET total_received = excluded.total_received`,
		r.ContractID, r.Account, r.RewardTokenID, r.TotalReceived)
	if err != nil {
		return fmt.Errorf("failed to upsert stake account reward %s/%s/%s: %w",
			r.ContractID, r.Account, r.RewardTokenID, err)
	}
	return nil
}
