package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/store"
)

func TestDerivePrice(t *testing.T) {
	numeraire := map[string]struct{}{"0": {}}

	t.Run("numeraire side A", func(t *testing.T) {
		p := &store.Pool{
			TokA: "0", TokB: "6779767",
			DecimalsA: 6, DecimalsB: 6,
			BalanceA: "100000000", BalanceB: "50000000",
		}
		price := derivePrice(numeraire, p)
		require.NotNil(t, price)
		assert.InDelta(t, 2.0, *price, 1e-9)
	})

	t.Run("numeraire side B", func(t *testing.T) {
		p := &store.Pool{
			TokA: "6779767", TokB: "0",
			DecimalsA: 6, DecimalsB: 6,
			BalanceA: "50000000", BalanceB: "100000000",
		}
		price := derivePrice(numeraire, p)
		require.NotNil(t, price)
		assert.InDelta(t, 2.0, *price, 1e-9)
	})

	t.Run("mixed decimals", func(t *testing.T) {
		p := &store.Pool{
			TokA: "0", TokB: "6779767",
			DecimalsA: 6, DecimalsB: 8,
			BalanceA: "100000000", BalanceB: "5000000000",
		}
		price := derivePrice(numeraire, p)
		require.NotNil(t, price)
		assert.InDelta(t, 2.0, *price, 1e-9)
	})

	t.Run("empty side has no price", func(t *testing.T) {
		p := &store.Pool{
			TokA: "0", TokB: "6779767",
			DecimalsA: 6, DecimalsB: 6,
			BalanceA: "100000000", BalanceB: "0",
		}
		assert.Nil(t, derivePrice(numeraire, p))
	})

	t.Run("unparseable balance has no price", func(t *testing.T) {
		p := &store.Pool{
			TokA: "0", TokB: "6779767",
			DecimalsA: 6, DecimalsB: 6,
			BalanceA: "not-a-number", BalanceB: "50000000",
		}
		assert.Nil(t, derivePrice(numeraire, p))
	})
}

func TestDeriveTVL(t *testing.T) {
	p := &store.Pool{
		DecimalsA: 6, DecimalsB: 6,
		BalanceA: "100000000", BalanceB: "50000000",
	}
	// Twice the lesser side, by policy.
	assert.InDelta(t, 100.0, deriveTVL(p), 1e-9)
}

func TestPool_SwapUpdatesSnapshotAndHistory(t *testing.T) {
	st := newTestStore(t)
	client := newStubClient()
	client.events[poolSwapEvent] = []chain.Event{
		{TxID: "s1", Round: 40, Timestamp: 4000,
			Raw: []any{aliceAddr, "1000000", "500000", "100000000", "50000000"}},
	}

	require.NoError(t, st.PutPool(&store.Pool{
		ContractID: "60000", Creator: "CREATOR", CreateRound: 1, LastSyncRound: 39,
		Provider: "amm", TokA: "0", TokB: "6779767",
		DecimalsA: 6, DecimalsB: 6, BalanceA: "0", BalanceB: "0",
	}))

	x := NewPool(client, st, []string{"0"}, logger.NewNopLogger())
	require.NoError(t, x.Process(context.Background(), extract.Occurrence{
		AppID: 60000, Round: 40, TxID: "s1",
	}))

	p, err := st.GetPool("60000")
	require.NoError(t, err)
	assert.Equal(t, "100000000", p.BalanceA)
	assert.Equal(t, "50000000", p.BalanceB)
	assert.InDelta(t, 100.0, p.TVL, 1e-9)
	assert.Equal(t, uint64(40), p.LastSyncRound)

	price, err := st.GetPrice("60000")
	require.NoError(t, err)
	require.NotNil(t, price.Price)
	assert.InDelta(t, 2.0, *price.Price, 1e-9)

	history, err := st.GetPriceHistory("60000")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(40), history[0].Round)
}

func TestPool_WithdrawToEmptyRecordsNullPrice(t *testing.T) {
	st := newTestStore(t)
	client := newStubClient()
	client.events[poolWithdrawEvent] = []chain.Event{
		{TxID: "w1", Round: 41, Timestamp: 4100,
			Raw: []any{aliceAddr, "7", "100000000", "50000000", "100000000", "0"}},
	}

	require.NoError(t, st.PutPool(&store.Pool{
		ContractID: "60000", Creator: "CREATOR", CreateRound: 1, LastSyncRound: 40,
		Provider: "amm", TokA: "0", TokB: "6779767",
		DecimalsA: 6, DecimalsB: 6, BalanceA: "100000000", BalanceB: "50000000",
	}))

	x := NewPool(client, st, []string{"0"}, logger.NewNopLogger())
	require.NoError(t, x.Process(context.Background(), extract.Occurrence{
		AppID: 60000, Round: 41, TxID: "w1",
	}))

	price, err := st.GetPrice("60000")
	require.NoError(t, err)
	assert.Nil(t, price.Price, "an emptied side must record an absent price")

	history, err := st.GetPriceHistory("60000")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].Price)
}

func TestPool_SeedLegacyLPFromGlobalState(t *testing.T) {
	st := newTestStore(t)
	client := newStubClient()
	client.apps[60000] = &chain.AppInfo{
		AppID:        60000,
		Creator:      "CREATOR",
		CreatedRound: 3,
		GlobalState: map[string]chain.TealValue{
			ratioGlobalKey: {Uint: 2000000},
			tokAGlobalKey:  {Uint: 0},
			tokBGlobalKey:  {Uint: 6779767},
			balAGlobalKey:  {Uint: 100000000},
			balBGlobalKey:  {Uint: 50000000},
		},
	}

	x := NewPool(client, st, []string{"0"}, logger.NewNopLogger())
	require.NoError(t, x.Process(context.Background(), extract.Occurrence{
		AppID: 60000, Round: 3, TxID: "c", IsCreate: true,
	}))

	p, err := st.GetPool("60000")
	require.NoError(t, err)
	assert.Equal(t, "lp", p.Provider)
	assert.Equal(t, "0", p.TokA)
	assert.Equal(t, "6779767", p.TokB)
	assert.Equal(t, "100000000", p.BalanceA)

	// The initial price is recorded at seed time, and the time series opens
	// with a point at the creation round.
	price, err := st.GetPrice("60000")
	require.NoError(t, err)
	require.NotNil(t, price.Price)
	assert.InDelta(t, 2.0, *price.Price, 1e-9)

	history, err := st.GetPriceHistory("60000")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(3), history[0].Round)
	require.NotNil(t, history[0].Price)
	assert.InDelta(t, 2.0, *history[0].Price, 1e-9)
}

func TestPool_SeedEmptyPoolHasNoPricePoint(t *testing.T) {
	st := newTestStore(t)
	client := newStubClient()

	x := NewPool(client, st, []string{"0"}, logger.NewNopLogger())
	require.NoError(t, x.Process(context.Background(), extract.Occurrence{
		AppID: 60000, Round: 3, TxID: "c", IsCreate: true,
	}))

	history, err := st.GetPriceHistory("60000")
	require.NoError(t, err)
	assert.Empty(t, history, "no liquidity means no price to chart")
}
