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
	tokenTransferEvent = "arc200_Transfer"
	tokenApprovalEvent = "arc200_Approval"

	methodTokenName     = "arc200_name()byte[32]"
	methodTokenSymbol   = "arc200_symbol()byte[8]"
	methodTokenDecimals = "arc200_decimals()uint8"
	methodTokenSupply   = "arc200_totalSupply()uint256"
)

var tokenEventSpecs = []chain.EventSpec{
	{
		Name: tokenTransferEvent,
		Fields: []chain.FieldDef{
			{Name: "from", Kind: chain.KindAddress},
			{Name: "to", Kind: chain.KindAddress},
			{Name: "amount", Kind: chain.KindUint},
		},
	},
	{
		Name: tokenApprovalEvent,
		Fields: []chain.FieldDef{
			{Name: "owner", Kind: chain.KindAddress},
			{Name: "spender", Kind: chain.KindAddress},
			{Name: "amount", Kind: chain.KindUint},
		},
	},
}

// Token indexes fungible token contracts: contract attributes, supply and the
// transfer/approval history. Balances are left to external aggregation over
// the history.
type Token struct {
	client chain.Client
	store  *store.Store
	log    *logger.Logger
}

// NewToken creates the fungible token family indexer.
func NewToken(client chain.Client, st *store.Store, log *logger.Logger) *Token {
	return &Token{
		client: client,
		store:  st,
		log:    log.WithComponent("indexer-token"),
	}
}

// Family implements FamilyIndexer.
func (x *Token) Family() store.Family { return store.FamilyToken }

// Process handles one occurrence of a fungible token contract.
func (x *Token) Process(ctx context.Context, occ extract.Occurrence) error {
	contractID := occ.AppIDStr()

	tc, err := x.store.GetTokenContract(contractID)
	if errors.Is(err, store.ErrNotFound) {
		tc, err = x.seed(ctx, occ)
	}
	if err != nil {
		return err
	}

	return x.sync(ctx, occ.AppID, contractID, tc.LastSyncRound, occ.Round)
}

// Replay re-applies the token contract's full event history.
func (x *Token) Replay(ctx context.Context, contractID string, upTo uint64) error {
	tc, err := x.store.GetTokenContract(contractID)
	if err != nil {
		return err
	}
	appID, err := strconv.ParseUint(contractID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad contract id %q: %w", contractID, err)
	}
	return x.sync(ctx, appID, contractID, tc.CreateRound, upTo)
}

// seed captures the contract's static attributes through readonly calls.
// Attribute lookups are tolerant: a contract that hides its symbol still gets
// indexed.
func (x *Token) seed(ctx context.Context, occ extract.Occurrence) (*store.TokenContract, error) {
	info, err := x.client.LookupApp(ctx, occ.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed token contract %d: %w", occ.AppID, err)
	}

	tc := &store.TokenContract{
		ContractID:    occ.AppIDStr(),
		Creator:       info.Creator,
		CreateRound:   info.CreatedRound,
		LastSyncRound: occ.Round,
		TotalSupply:   "0",
	}

	if ret, err := x.client.SimulateReadonly(ctx, occ.AppID, methodTokenName, nil); err == nil {
		tc.Name = stringFromReturn(ret)
	}
	if ret, err := x.client.SimulateReadonly(ctx, occ.AppID, methodTokenSymbol, nil); err == nil {
		tc.Symbol = stringFromReturn(ret)
	}
	if ret, err := x.client.SimulateReadonly(ctx, occ.AppID, methodTokenDecimals, nil); err == nil && len(ret) > 0 {
		tc.Decimals = uint64(ret[len(ret)-1])
	}
	if ret, err := x.client.SimulateReadonly(ctx, occ.AppID, methodTokenSupply, nil); err == nil {
		tc.TotalSupply = uintFromReturn(ret)
	}

	if err := x.store.PutTokenContract(tc); err != nil {
		return nil, err
	}
	return tc, nil
}

func (x *Token) sync(ctx context.Context, appID uint64, contractID string, fromRound, toRound uint64) error {
	records, err := fetchRecords(ctx, x.client, appID, tokenEventSpecs, fromRound, toRound)
	if err != nil {
		return err
	}

	// A mint changes total supply; refresh it once per batch, outside the
	// transaction, and tolerate failure.
	supply := ""
	for _, rec := range records {
		if rec.Name() == tokenTransferEvent && chain.IsZeroAddress(rec.Addr("from")) {
			if ret, err := x.client.SimulateReadonly(ctx, appID, methodTokenSupply, nil); err == nil {
				supply = uintFromReturn(ret)
			}
			break
		}
	}

	err = x.store.WithTx(func(tx *store.Store) error {
		for _, rec := range records {
			if err := x.apply(tx, contractID, rec); err != nil {
				return err
			}
		}
		if supply != "" {
			if err := tx.UpdateTokenContractSupply(contractID, supply); err != nil {
				return err
			}
		}
		return tx.UpdateTokenContractSync(contractID, toRound)
	})
	if err != nil {
		return err
	}

	metrics.EventsApplied(string(store.FamilyToken), len(records))
	return nil
}

func (x *Token) apply(tx *store.Store, contractID string, rec *chain.Record) error {
	switch rec.Name() {
	case tokenTransferEvent:
		return tx.InsertTokenTransferIfAbsent(&store.TokenTransfer{
			TransactionID: rec.TxID,
			ContractID:    contractID,
			Amount:        rec.Uint("amount"),
			Round:         rec.Round,
			From:          rec.Addr("from"),
			To:            rec.Addr("to"),
			Timestamp:     rec.Timestamp,
		})

	case tokenApprovalEvent:
		return tx.InsertTokenApprovalIfAbsent(&store.TokenApproval{
			TransactionID: rec.TxID,
			ContractID:    contractID,
			Owner:         rec.Addr("owner"),
			Spender:       rec.Addr("spender"),
			Amount:        rec.Uint("amount"),
			Round:         rec.Round,
			Timestamp:     rec.Timestamp,
		})
	}

	return nil
}
