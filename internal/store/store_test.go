package store

import (
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiscan/appindexor/internal/db"
	"github.com/voiscan/appindexor/internal/db/migrations"
	"github.com/voiscan/appindexor/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := path.Join(t.TempDir(), "appindexorTest.sqlite")
	require.NoError(t, migrations.RunMigrations(dbPath))

	database, err := db.NewSQLiteDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return New(database, logger.NewNopLogger())
}

func TestSyncRoundCheckpoint(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetSyncRound()
	require.NoError(t, err)
	assert.False(t, ok, "fresh database must have no checkpoint")

	require.NoError(t, s.SetSyncRound(100))
	round, ok, err := s.GetSyncRound()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(100), round)

	// A stale writer cannot move the checkpoint backwards.
	require.NoError(t, s.SetSyncRound(90))
	round, _, err = s.GetSyncRound()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), round)

	require.NoError(t, s.SetSyncRound(101))
	round, _, err = s.GetSyncRound()
	require.NoError(t, err)
	assert.Equal(t, uint64(101), round)
}

func TestCollectionLifecycle(t *testing.T) {
	s := newTestStore(t)

	col := &Collection{
		ContractID:    "40000",
		Creator:       "CREATOR",
		CreateRound:   10,
		LastSyncRound: 10,
		TotalSupply:   "0",
	}
	require.NoError(t, s.PutCollection(col))

	// Replayed creation keeps the original row.
	require.NoError(t, s.PutCollection(&Collection{ContractID: "40000", Creator: "OTHER"}))

	got, err := s.GetCollection("40000")
	require.NoError(t, err)
	assert.Equal(t, "CREATOR", got.Creator)
	assert.Equal(t, uint64(10), got.LastSyncRound)

	require.NoError(t, s.UpdateCollectionSync("40000", 25))
	require.NoError(t, s.UpdateCollectionSync("40000", 20)) // stale, ignored
	got, err = s.GetCollection("40000")
	require.NoError(t, err)
	assert.Equal(t, uint64(25), got.LastSyncRound)

	_, err = s.GetCollection("99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenIdempotentMint(t *testing.T) {
	s := newTestStore(t)

	tok := &Token{
		ContractID: "40000",
		TokenID:    "1",
		TokenIndex: 1,
		Owner:      "ALICE",
		MintRound:  10,
	}

	created, err := s.InsertTokenIfAbsent(tok)
	require.NoError(t, err)
	assert.True(t, created)

	// A replayed mint must not report a fresh row or rewrite mint_round.
	replay := *tok
	replay.MintRound = 99
	created, err = s.InsertTokenIfAbsent(&replay)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetToken("40000", "1")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.MintRound)
	assert.Equal(t, "ALICE", got.Owner)
}

func TestTokenTransferClearsApproval(t *testing.T) {
	s := newTestStore(t)

	_, err := s.InsertTokenIfAbsent(&Token{ContractID: "40000", TokenID: "1", Owner: "ALICE"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateTokenApproved("40000", "1", "OPERATOR"))

	require.NoError(t, s.UpdateTokenOwner("40000", "1", "BOB"))

	got, err := s.GetToken("40000", "1")
	require.NoError(t, err)
	assert.Equal(t, "BOB", got.Owner)
	assert.Empty(t, got.Approved, "transfer must consume the standing approval")
}

func TestTransferHistoryIdempotent(t *testing.T) {
	s := newTestStore(t)

	tr := &Transfer{
		TransactionID: "tx-1",
		ContractID:    "40000",
		TokenID:       "1",
		Round:         10,
		From:          "ALICE",
		To:            "BOB",
	}
	require.NoError(t, s.InsertTransferIfAbsent(tr))
	require.NoError(t, s.InsertTransferIfAbsent(tr))

	history, err := s.GetTransfers("40000", "1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestListingTerminalStatesExclusive(t *testing.T) {
	s := newTestStore(t)

	l := &Listing{
		TransactionID: "tx-list",
		MpContractID:  "50000",
		MpListingID:   "7",
		CollectionID:  "40000",
		TokenID:       "1",
		Seller:        "ALICE",
		Currency:      "0",
		Price:         "1000000",
		Round:         20,
	}
	require.NoError(t, s.InsertListingIfAbsent(l))

	active, err := s.GetActiveListing("50000", "7")
	require.NoError(t, err)
	assert.Equal(t, "tx-list", active.TransactionID)
	assert.True(t, active.Active())

	require.NoError(t, s.SetListingSale("tx-list", "tx-buy"))

	// The delete cannot land on a sold listing.
	require.NoError(t, s.SetListingDelete("tx-list", "tx-del"))

	got, err := s.GetListing("tx-list")
	require.NoError(t, err)
	require.NotNil(t, got.SalesID)
	assert.Equal(t, "tx-buy", *got.SalesID)
	assert.Nil(t, got.DeleteID)

	_, err = s.GetActiveListing("50000", "7")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveListingIgnoresClosedReusedID(t *testing.T) {
	s := newTestStore(t)

	first := &Listing{
		TransactionID: "tx-old", MpContractID: "50000", MpListingID: "7",
		CollectionID: "40000", TokenID: "1", Seller: "ALICE", Price: "100", Round: 20,
	}
	require.NoError(t, s.InsertListingIfAbsent(first))
	require.NoError(t, s.SetListingDelete("tx-old", "tx-del"))

	// The marketplace reused listing id 7 for a new listing.
	second := &Listing{
		TransactionID: "tx-new", MpContractID: "50000", MpListingID: "7",
		CollectionID: "40000", TokenID: "2", Seller: "BOB", Price: "200", Round: 30,
	}
	require.NoError(t, s.InsertListingIfAbsent(second))

	active, err := s.GetActiveListing("50000", "7")
	require.NoError(t, err)
	assert.Equal(t, "tx-new", active.TransactionID)
}

func TestPoolPriceNullable(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutPool(&Pool{
		ContractID: "60000", TokA: "0", TokB: "6779767",
		DecimalsA: 6, DecimalsB: 6, BalanceA: "0", BalanceB: "0",
	}))

	// An empty pool carries no price.
	require.NoError(t, s.UpsertPrice("60000", nil))
	p, err := s.GetPrice("60000")
	require.NoError(t, err)
	assert.Nil(t, p.Price)

	price := 2.0
	require.NoError(t, s.UpsertPrice("60000", &price))
	p, err = s.GetPrice("60000")
	require.NoError(t, err)
	require.NotNil(t, p.Price)
	assert.Equal(t, 2.0, *p.Price)
}

func TestPriceHistoryOnePointPerRound(t *testing.T) {
	s := newTestStore(t)

	price := 2.0
	pp := &PricePoint{ContractID: "60000", Round: 40, Price: &price, BalanceA: "100", BalanceB: "50"}
	require.NoError(t, s.InsertPricePointIfAbsent(pp))
	require.NoError(t, s.InsertPricePointIfAbsent(pp))

	history, err := s.GetPriceHistory("60000")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestStakeAccountAbsoluteAmounts(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.UpsertStakeAccount(&StakeAccount{
		ContractID: "70000", Account: "ALICE", StakeAmount: "500",
	}))
	// Events carry post-state totals: the new value replaces, never adds.
	require.NoError(t, s.UpsertStakeAccount(&StakeAccount{
		ContractID: "70000", Account: "ALICE", StakeAmount: "300",
	}))

	got, err := s.GetStakeAccount("70000", "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "300", got.StakeAmount)
}

func TestSCSPatchMerge(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.PutSCS(&SCSAccount{ContractID: "80000", Creator: "CREATOR", CreateRound: 5}))

	owner := "OWNER-ADDR"
	funding := "1700000000"
	require.NoError(t, s.MergeSCS("80000", &SCSPatch{GlobalOwner: &owner}))
	require.NoError(t, s.MergeSCS("80000", &SCSPatch{GlobalFunding: &funding}))

	got, err := s.GetSCS("80000")
	require.NoError(t, err)
	require.NotNil(t, got.GlobalOwner)
	assert.Equal(t, "OWNER-ADDR", *got.GlobalOwner)
	require.NotNil(t, got.GlobalFunding)
	assert.Equal(t, "1700000000", *got.GlobalFunding)
	assert.Nil(t, got.GlobalDelegate, "unpatched fields stay null")
	assert.Zero(t, got.Deleted)

	// The delete marker is terminal but later patches still merge.
	require.NoError(t, s.MarkSCSDeleted("80000"))
	delegate := "DELEGATE-ADDR"
	require.NoError(t, s.MergeSCS("80000", &SCSPatch{GlobalDelegate: &delegate}))

	got, err = s.GetSCS("80000")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Deleted)
	require.NotNil(t, got.GlobalDelegate)
	assert.Equal(t, "DELEGATE-ADDR", *got.GlobalDelegate)
}

func TestFamilyOf(t *testing.T) {
	s := newTestStore(t)

	family, err := s.FamilyOf("12345")
	require.NoError(t, err)
	assert.Equal(t, FamilyUnknown, family)

	require.NoError(t, s.PutCollection(&Collection{ContractID: "12345"}))
	family, err = s.FamilyOf("12345")
	require.NoError(t, err)
	assert.Equal(t, FamilyNFT, family)

	require.NoError(t, s.PutStakePool(&StakePool{ContractID: "70000"}))
	family, err = s.FamilyOf("70000")
	require.NoError(t, err)
	assert.Equal(t, FamilyStaking, family)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)

	err := s.WithTx(func(tx *Store) error {
		if err := tx.PutCollection(&Collection{ContractID: "40000"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = s.GetCollection("40000")
	assert.ErrorIs(t, err, ErrNotFound)
}
