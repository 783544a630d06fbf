package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/metrics"
	"github.com/voiscan/appindexor/internal/store"
)

const (
	stakePoolEvent      = "Pool"
	stakeStakeEvent     = "Stake"
	stakeWithdrawEvent  = "Withdraw"
	stakeEmergencyEvent = "EmergencyWithdraw"
	stakeHarvestEvent   = "Harvest"
)

// Stake, Withdraw and EmergencyWithdraw carry absolute post-state totals for
// both the account and the whole pool, never deltas. Harvest carries the
// post-state remaining amounts and the account's cumulative received amounts,
// ordered like the Pool event's reward token list.
var stakingEventSpecs = []chain.EventSpec{
	{
		Name: stakePoolEvent,
		Fields: []chain.FieldDef{
			{Name: "creator", Kind: chain.KindAddress},
			{Name: "stakeTokenId", Kind: chain.KindUint},
			{Name: "rewardTokenIds", Kind: chain.KindUintList},
			{Name: "rewardAmounts", Kind: chain.KindUintList},
			{Name: "poolStart", Kind: chain.KindUint},
			{Name: "poolEnd", Kind: chain.KindUint},
		},
	},
	{
		Name: stakeStakeEvent,
		Fields: []chain.FieldDef{
			{Name: "who", Kind: chain.KindAddress},
			{Name: "accountStake", Kind: chain.KindUint},
			{Name: "poolStaked", Kind: chain.KindUint},
		},
	},
	{
		Name: stakeWithdrawEvent,
		Fields: []chain.FieldDef{
			{Name: "who", Kind: chain.KindAddress},
			{Name: "accountStake", Kind: chain.KindUint},
			{Name: "poolStaked", Kind: chain.KindUint},
		},
	},
	{
		Name: stakeEmergencyEvent,
		Fields: []chain.FieldDef{
			{Name: "who", Kind: chain.KindAddress},
			{Name: "accountStake", Kind: chain.KindUint},
			{Name: "poolStaked", Kind: chain.KindUint},
		},
	},
	{
		Name: stakeHarvestEvent,
		Fields: []chain.FieldDef{
			{Name: "who", Kind: chain.KindAddress},
			{Name: "totalsReceived", Kind: chain.KindUintList},
			{Name: "remainings", Kind: chain.KindUintList},
		},
	},
}

// Staking indexes staking pool contracts: pool aggregates, per-account
// positions and reward bookkeeping.
type Staking struct {
	client chain.Client
	store  *store.Store
	log    *logger.Logger
}

// NewStaking creates the staking pool family indexer.
func NewStaking(client chain.Client, st *store.Store, log *logger.Logger) *Staking {
	return &Staking{
		client: client,
		store:  st,
		log:    log.WithComponent("indexer-staking"),
	}
}

// Family implements FamilyIndexer.
func (x *Staking) Family() store.Family { return store.FamilyStaking }

// Process handles one occurrence of a staking pool contract.
func (x *Staking) Process(ctx context.Context, occ extract.Occurrence) error {
	contractID := occ.AppIDStr()

	p, err := x.store.GetStakePool(contractID)
	if errors.Is(err, store.ErrNotFound) {
		p, err = x.seed(ctx, occ)
	}
	if err != nil {
		return err
	}

	return x.sync(ctx, occ.AppID, contractID, p.LastSyncRound, occ.Round)
}

// Replay re-applies the staking pool's full event history.
func (x *Staking) Replay(ctx context.Context, contractID string, upTo uint64) error {
	p, err := x.store.GetStakePool(contractID)
	if err != nil {
		return err
	}
	appID, err := strconv.ParseUint(contractID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad contract id %q: %w", contractID, err)
	}
	return x.sync(ctx, appID, contractID, p.CreateRound, upTo)
}

// seed stores a bare pool row; the Pool event fills in the token and reward
// details during sync.
func (x *Staking) seed(ctx context.Context, occ extract.Occurrence) (*store.StakePool, error) {
	info, err := x.client.LookupApp(ctx, occ.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed stake pool %d: %w", occ.AppID, err)
	}

	p := &store.StakePool{
		ContractID:       occ.AppIDStr(),
		Creator:          info.Creator,
		CreateRound:      info.CreatedRound,
		LastSyncRound:    occ.Round,
		PoolStakedAmount: "0",
	}
	if err := x.store.PutStakePool(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (x *Staking) sync(ctx context.Context, appID uint64, contractID string, fromRound, toRound uint64) error {
	records, err := fetchRecords(ctx, x.client, appID, stakingEventSpecs, fromRound, toRound)
	if err != nil {
		return err
	}

	err = x.store.WithTx(func(tx *store.Store) error {
		for _, rec := range records {
			if err := x.apply(tx, contractID, rec); err != nil {
				return err
			}
		}
		return tx.UpdateStakePoolSync(contractID, toRound)
	})
	if err != nil {
		return err
	}

	metrics.EventsApplied(string(store.FamilyStaking), len(records))
	return nil
}

func (x *Staking) apply(tx *store.Store, contractID string, rec *chain.Record) error {
	switch rec.Name() {
	case stakePoolEvent:
		if err := tx.UpdateStakePoolDetails(contractID, rec.Uint("stakeTokenId"),
			rec.Uint64("poolStart"), rec.Uint64("poolEnd")); err != nil {
			return err
		}

		tokens := rec.UintList("rewardTokenIds")
		amounts := rec.UintList("rewardAmounts")
		if len(tokens) != len(amounts) {
			return fmt.Errorf("pool event %s: %d reward tokens but %d amounts",
				rec.TxID, len(tokens), len(amounts))
		}
		for i, tokenID := range tokens {
			if err := tx.PutStakeReward(&store.StakeReward{
				ContractID:      contractID,
				RewardTokenID:   tokenID,
				RewardAmount:    amounts[i],
				RewardRemaining: amounts[i],
			}); err != nil {
				return err
			}
		}
		return nil

	case stakeStakeEvent, stakeWithdrawEvent, stakeEmergencyEvent:
		if err := tx.UpdateStakePoolAmount(contractID, rec.Uint("poolStaked")); err != nil {
			return err
		}
		return tx.UpsertStakeAccount(&store.StakeAccount{
			ContractID:  contractID,
			Account:     rec.Addr("who"),
			StakeAmount: rec.Uint("accountStake"),
		})

	case stakeHarvestEvent:
		rewards, err := tx.GetStakeRewards(contractID)
		if err != nil {
			return err
		}
		totals := rec.UintList("totalsReceived")
		remainings := rec.UintList("remainings")
		if len(totals) != len(rewards) || len(remainings) != len(rewards) {
			return fmt.Errorf("harvest event %s: reward arity mismatch (%d rewards, %d totals, %d remainings)",
				rec.TxID, len(rewards), len(totals), len(remainings))
		}

		for i, reward := range rewards {
			if err := tx.UpdateStakeRewardRemaining(contractID, reward.RewardTokenID, remainings[i]); err != nil {
				return err
			}
			if err := tx.UpsertStakeAccountReward(&store.StakeAccountReward{
				ContractID:    contractID,
				Account:       rec.Addr("who"),
				RewardTokenID: reward.RewardTokenID,
				TotalReceived: totals[i],
			}); err != nil {
				return err
			}
		}
		return nil
	}

	return nil
}
