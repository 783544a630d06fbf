package store

import (
	"fmt"
	"strings"
)

// GetSCS loads one staking-contract-standard row.
func (s *Store) GetSCS(contractID string) (*SCSAccount, error) {
	a := new(SCSAccount)
	if err := s.getOne(a, `SELECT * FROM scs_accounts WHERE contract_id = ?`, contractID); err != nil {
		return nil, err
	}
	return a, nil
}

// PutSCS seeds a staking-contract-standard row if absent.
func (s *Store) PutSCS(a *SCSAccount) error {
	_, err := s.q.Exec(`
		INSERT OR IGNORE INTO scs_accounts
			(contract_id, creator, create_round, last_sync_round, deleted)
		VALUES (?, ?, ?, ?, 0)`,
		a.ContractID, a.Creator, a.CreateRound, a.LastSyncRound)
	if err != nil {
		return fmt.Errorf("failed to insert scs account %s: %w", a.ContractID, err)
	}
	return nil
}

// UpdateSCSSync advances a staking-contract-standard row's checkpoint.
func (s *Store) UpdateSCSSync(contractID string, round uint64) error {
	return s.updateSync("scs_accounts", contractID, round)
}

// MergeSCS applies a sparse patch: only the patch's non-nil fields are
// written, everything else keeps its value. Re-applying the same patch is a
// no-op, and patches keep merging after the terminal delete marker since late
// method calls still carry state worth recording.
func (s *Store) MergeSCS(contractID string, p *SCSPatch) error {
	sets := make([]string, 0, 17)
	args := make([]any, 0, 18)

	add := func(column string, value *string) {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}

	add("global_funder", p.GlobalFunder)
	add("global_owner", p.GlobalOwner)
	add("global_delegate", p.GlobalDelegate)
	add("global_messenger_id", p.GlobalMessengerID)
	add("global_parent_id", p.GlobalParentID)
	add("global_period", p.GlobalPeriod)
	add("global_total", p.GlobalTotal)
	add("global_funding", p.GlobalFunding)
	add("global_initial", p.GlobalInitial)
	add("global_deadline", p.GlobalDeadline)
	add("global_period_seconds", p.GlobalPeriodSeconds)
	add("global_lockup_delay", p.GlobalLockupDelay)
	add("global_vesting_delay", p.GlobalVestingDelay)
	add("global_period_limit", p.GlobalPeriodLimit)
	add("global_distribution_count", p.GlobalDistributionCount)
	add("global_distribution_seconds", p.GlobalDistributionSeconds)
	if p.Deleted != nil {
		sets = append(sets, "deleted = ?")
		args = append(args, *p.Deleted)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, contractID)
	query := fmt.Sprintf(`UPDATE scs_accounts SET %s WHERE contract_id = ?`, strings.Join(sets, ", "))
	if _, err := s.q.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to merge scs patch for %s: %w", contractID, err)
	}
	return nil
}

// MarkSCSDeleted sets the terminal delete marker.
func (s *Store) MarkSCSDeleted(contractID string) error {
	one := 1
	return s.MergeSCS(contractID, &SCSPatch{Deleted: &one})
}
