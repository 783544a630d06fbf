package indexer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/metrics"
	"github.com/voiscan/appindexor/internal/store"
)

const (
	poolSwapEvent     = "Swap"
	poolDepositEvent  = "Deposit"
	poolWithdrawEvent = "Withdraw"

	methodPoolIntrospect = "Info()(uint64,uint64,uint64,uint64,uint64)"

	ratioGlobalKey = "ratio"
	tokAGlobalKey  = "tokA"
	tokBGlobalKey  = "tokB"
	balAGlobalKey  = "poolBalA"
	balBGlobalKey  = "poolBalB"

	defaultDecimals = 6
)

// Every pool event payload ends in the two absolute post-state pool balances.
var poolEventSpecs = []chain.EventSpec{
	{
		Name: poolSwapEvent,
		Fields: []chain.FieldDef{
			{Name: "sender", Kind: chain.KindAddress},
			{Name: "amtA", Kind: chain.KindUint},
			{Name: "amtB", Kind: chain.KindUint},
			{Name: "poolBalA", Kind: chain.KindUint},
			{Name: "poolBalB", Kind: chain.KindUint},
		},
	},
	{
		Name: poolDepositEvent,
		Fields: []chain.FieldDef{
			{Name: "sender", Kind: chain.KindAddress},
			{Name: "amtA", Kind: chain.KindUint},
			{Name: "amtB", Kind: chain.KindUint},
			{Name: "lpOut", Kind: chain.KindUint},
			{Name: "poolBalA", Kind: chain.KindUint},
			{Name: "poolBalB", Kind: chain.KindUint},
		},
	},
	{
		Name: poolWithdrawEvent,
		Fields: []chain.FieldDef{
			{Name: "sender", Kind: chain.KindAddress},
			{Name: "lpIn", Kind: chain.KindUint},
			{Name: "amtA", Kind: chain.KindUint},
			{Name: "amtB", Kind: chain.KindUint},
			{Name: "poolBalA", Kind: chain.KindUint},
			{Name: "poolBalB", Kind: chain.KindUint},
		},
	},
}

// Pool indexes liquidity pool contracts: the token pair, running balances,
// derived price and the price time series.
type Pool struct {
	client    chain.Client
	store     *store.Store
	log       *logger.Logger
	numeraire map[string]struct{}
}

// NewPool creates the liquidity pool family indexer. numeraire lists the
// token ids price ratios are oriented toward.
func NewPool(client chain.Client, st *store.Store, numeraire []string, log *logger.Logger) *Pool {
	set := make(map[string]struct{}, len(numeraire))
	for _, id := range numeraire {
		set[id] = struct{}{}
	}
	return &Pool{
		client:    client,
		store:     st,
		log:       log.WithComponent("indexer-pool"),
		numeraire: set,
	}
}

// Family implements FamilyIndexer.
func (x *Pool) Family() store.Family { return store.FamilyPool }

// Process handles one occurrence of a pool contract.
func (x *Pool) Process(ctx context.Context, occ extract.Occurrence) error {
	contractID := occ.AppIDStr()

	p, err := x.store.GetPool(contractID)
	if errors.Is(err, store.ErrNotFound) {
		p, err = x.seed(ctx, occ)
	}
	if err != nil {
		return err
	}

	return x.sync(ctx, occ.AppID, contractID, p.LastSyncRound, occ.Round)
}

// Replay re-applies the pool's full event history.
func (x *Pool) Replay(ctx context.Context, contractID string, upTo uint64) error {
	p, err := x.store.GetPool(contractID)
	if err != nil {
		return err
	}
	appID, err := strconv.ParseUint(contractID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad contract id %q: %w", contractID, err)
	}
	return x.sync(ctx, appID, contractID, p.CreateRound, upTo)
}

// seed determines the token pair and starting balances. Modern AMM builds
// answer the introspection call; legacy LP-token contracts expose the pair
// and balances through global state alongside a ratio key.
func (x *Pool) seed(ctx context.Context, occ extract.Occurrence) (*store.Pool, error) {
	info, err := x.client.LookupApp(ctx, occ.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed pool %d: %w", occ.AppID, err)
	}

	p := &store.Pool{
		ContractID:    occ.AppIDStr(),
		Creator:       info.Creator,
		CreateRound:   info.CreatedRound,
		LastSyncRound: occ.Round,
		BalanceA:      "0",
		BalanceB:      "0",
	}

	if ret, err := x.client.SimulateReadonly(ctx, occ.AppID, methodPoolIntrospect, nil); err == nil && len(ret) >= 32 {
		p.Provider = "amm"
		p.TokA = strconv.FormatUint(binary.BigEndian.Uint64(ret[0:8]), 10)
		p.TokB = strconv.FormatUint(binary.BigEndian.Uint64(ret[8:16]), 10)
		p.BalanceA = strconv.FormatUint(binary.BigEndian.Uint64(ret[16:24]), 10)
		p.BalanceB = strconv.FormatUint(binary.BigEndian.Uint64(ret[24:32]), 10)
	} else if info.HasGlobalKey(ratioGlobalKey) && len(info.Assets) == 0 {
		p.Provider = "lp"
		p.TokA = strconv.FormatUint(info.GlobalUint(tokAGlobalKey), 10)
		p.TokB = strconv.FormatUint(info.GlobalUint(tokBGlobalKey), 10)
		p.BalanceA = strconv.FormatUint(info.GlobalUint(balAGlobalKey), 10)
		p.BalanceB = strconv.FormatUint(info.GlobalUint(balBGlobalKey), 10)
	} else {
		p.Provider = "amm"
	}

	p.DecimalsA = x.lookupDecimals(ctx, p.TokA)
	p.DecimalsB = x.lookupDecimals(ctx, p.TokB)
	p.TVL = deriveTVL(p)

	err = x.store.WithTx(func(tx *store.Store) error {
		if err := tx.PutPool(p); err != nil {
			return err
		}
		price := derivePrice(x.numeraire, p)
		if err := tx.UpsertPrice(p.ContractID, price); err != nil {
			return err
		}
		if price == nil {
			return nil
		}
		// A pool seeded with liquidity opens its time series at creation.
		return tx.InsertPricePointIfAbsent(&store.PricePoint{
			ContractID: p.ContractID,
			Round:      p.CreateRound,
			Price:      price,
			BalanceA:   p.BalanceA,
			BalanceB:   p.BalanceB,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// lookupDecimals resolves a token's decimals. The network token and anything
// that refuses the probe use the network default.
func (x *Pool) lookupDecimals(ctx context.Context, tokenID string) uint64 {
	if tokenID == "" || tokenID == "0" {
		return defaultDecimals
	}
	appID, err := strconv.ParseUint(tokenID, 10, 64)
	if err != nil {
		return defaultDecimals
	}
	ret, err := x.client.SimulateReadonly(ctx, appID, methodTokenDecimals, nil)
	if err != nil || len(ret) == 0 {
		return defaultDecimals
	}
	return uint64(ret[len(ret)-1])
}

func (x *Pool) sync(ctx context.Context, appID uint64, contractID string, fromRound, toRound uint64) error {
	records, err := fetchRecords(ctx, x.client, appID, poolEventSpecs, fromRound, toRound)
	if err != nil {
		return err
	}

	err = x.store.WithTx(func(tx *store.Store) error {
		for _, rec := range records {
			if err := x.apply(tx, contractID, rec); err != nil {
				return err
			}
		}
		return tx.UpdatePoolSync(contractID, toRound)
	})
	if err != nil {
		return err
	}

	metrics.EventsApplied(string(store.FamilyPool), len(records))
	return nil
}

// apply re-derives the pool snapshot from the event's absolute post-state
// balances and appends one price point per round.
func (x *Pool) apply(tx *store.Store, contractID string, rec *chain.Record) error {
	p, err := tx.GetPool(contractID)
	if err != nil {
		return err
	}

	p.BalanceA = rec.Uint("poolBalA")
	p.BalanceB = rec.Uint("poolBalB")
	tvl := deriveTVL(p)

	if err := tx.UpdatePoolBalances(contractID, p.BalanceA, p.BalanceB, tvl); err != nil {
		return err
	}

	price := derivePrice(x.numeraire, p)
	if err := tx.UpsertPrice(contractID, price); err != nil {
		return err
	}

	return tx.InsertPricePointIfAbsent(&store.PricePoint{
		ContractID: contractID,
		Round:      rec.Round,
		Price:      price,
		BalanceA:   p.BalanceA,
		BalanceB:   p.BalanceB,
	})
}

// derivePrice computes the non-numeraire side's price as the ratio of
// human-scaled balances, with the numeraire side on top. An empty or
// unparseable side yields no price rather than zero or infinity.
func derivePrice(numeraire map[string]struct{}, p *store.Pool) *float64 {
	scaledA, okA := scaleBalance(p.BalanceA, p.DecimalsA)
	scaledB, okB := scaleBalance(p.BalanceB, p.DecimalsB)
	if !okA || !okB || scaledA == 0 || scaledB == 0 {
		return nil
	}

	price := scaledA / scaledB
	if _, bIsBase := numeraire[p.TokB]; bIsBase {
		if _, aIsBase := numeraire[p.TokA]; !aIsBase {
			price = scaledB / scaledA
		}
	}

	if math.IsNaN(price) || math.IsInf(price, 0) {
		return nil
	}
	return &price
}

// deriveTVL is twice the lesser side's human-scaled balance. That undercounts
// an imbalanced pool, but downstream consumers depend on the existing figures.
func deriveTVL(p *store.Pool) float64 {
	scaledA, okA := scaleBalance(p.BalanceA, p.DecimalsA)
	scaledB, okB := scaleBalance(p.BalanceB, p.DecimalsB)
	if !okA || !okB {
		return 0
	}
	return 2 * math.Min(scaledA, scaledB)
}

func scaleBalance(balance string, decimals uint64) (float64, bool) {
	v, err := strconv.ParseFloat(balance, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v / math.Pow10(int(decimals)), true
}
