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
	marketListEvent   = "e_sale_ListEvent"
	marketBuyEvent    = "e_sale_BuyEvent"
	marketDeleteEvent = "e_sale_DeleteListingEvent"
)

var marketEventSpecs = []chain.EventSpec{
	{
		Name: marketListEvent,
		Fields: []chain.FieldDef{
			{Name: "listingId", Kind: chain.KindUint},
			{Name: "collectionId", Kind: chain.KindUint},
			{Name: "tokenId", Kind: chain.KindUint},
			{Name: "seller", Kind: chain.KindAddress},
			{Name: "currency", Kind: chain.KindUint},
			{Name: "price", Kind: chain.KindUint},
		},
	},
	{
		Name: marketBuyEvent,
		Fields: []chain.FieldDef{
			{Name: "listingId", Kind: chain.KindUint},
			{Name: "buyer", Kind: chain.KindAddress},
		},
	},
	{
		Name: marketDeleteEvent,
		Fields: []chain.FieldDef{
			{Name: "listingId", Kind: chain.KindUint},
			{Name: "owner", Kind: chain.KindAddress},
		},
	},
}

// Market indexes marketplace contracts: the listing book plus sale and delete
// history.
type Market struct {
	client chain.Client
	store  *store.Store
	log    *logger.Logger
}

// NewMarket creates the marketplace family indexer.
func NewMarket(client chain.Client, st *store.Store, log *logger.Logger) *Market {
	return &Market{
		client: client,
		store:  st,
		log:    log.WithComponent("indexer-market"),
	}
}

// Family implements FamilyIndexer.
func (x *Market) Family() store.Family { return store.FamilyMarket }

// Process handles one occurrence of a marketplace contract.
func (x *Market) Process(ctx context.Context, occ extract.Occurrence) error {
	contractID := occ.AppIDStr()

	m, err := x.store.GetMarket(contractID)
	if errors.Is(err, store.ErrNotFound) {
		m, err = x.seed(ctx, occ)
	}
	if err != nil {
		return err
	}

	return x.sync(ctx, occ.AppID, contractID, m.LastSyncRound, occ.Round)
}

// Replay re-applies the marketplace's full event history.
func (x *Market) Replay(ctx context.Context, contractID string, upTo uint64) error {
	m, err := x.store.GetMarket(contractID)
	if err != nil {
		return err
	}
	appID, err := strconv.ParseUint(contractID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad contract id %q: %w", contractID, err)
	}
	return x.sync(ctx, appID, contractID, m.CreateRound, upTo)
}

func (x *Market) seed(ctx context.Context, occ extract.Occurrence) (*store.Market, error) {
	info, err := x.client.LookupApp(ctx, occ.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed market %d: %w", occ.AppID, err)
	}

	m := &store.Market{
		ContractID:    occ.AppIDStr(),
		Creator:       info.Creator,
		CreateRound:   info.CreatedRound,
		LastSyncRound: occ.Round,
		EscrowAddr:    chain.AppAddress(occ.AppID),
	}
	if err := x.store.PutMarket(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (x *Market) sync(ctx context.Context, appID uint64, contractID string, fromRound, toRound uint64) error {
	records, err := fetchRecords(ctx, x.client, appID, marketEventSpecs, fromRound, toRound)
	if err != nil {
		return err
	}

	err = x.store.WithTx(func(tx *store.Store) error {
		for _, rec := range records {
			if err := x.apply(tx, contractID, rec); err != nil {
				return err
			}
		}
		return tx.UpdateMarketSync(contractID, toRound)
	})
	if err != nil {
		return err
	}

	metrics.EventsApplied(string(store.FamilyMarket), len(records))
	return nil
}

func (x *Market) apply(tx *store.Store, contractID string, rec *chain.Record) error {
	switch rec.Name() {
	case marketListEvent:
		return tx.InsertListingIfAbsent(&store.Listing{
			TransactionID: rec.TxID,
			MpContractID:  contractID,
			MpListingID:   rec.Uint("listingId"),
			CollectionID:  rec.Uint("collectionId"),
			TokenID:       rec.Uint("tokenId"),
			Seller:        rec.Addr("seller"),
			Currency:      rec.Uint("currency"),
			Price:         rec.Uint("price"),
			Round:         rec.Round,
			Timestamp:     rec.Timestamp,
		})

	case marketBuyEvent:
		listing, err := tx.GetActiveListing(contractID, rec.Uint("listingId"))
		if errors.Is(err, store.ErrNotFound) {
			// The listing may predate indexer start; a data-consistency
			// warning, not a failure.
			x.log.Warnw("buy for unknown listing",
				"market", contractID, "listingId", rec.Uint("listingId"), "tx", rec.TxID)
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.InsertSaleIfAbsent(&store.Sale{
			TransactionID: rec.TxID,
			MpContractID:  contractID,
			MpListingID:   listing.MpListingID,
			ListingTxID:   listing.TransactionID,
			CollectionID:  listing.CollectionID,
			TokenID:       listing.TokenID,
			Seller:        listing.Seller,
			Buyer:         rec.Addr("buyer"),
			Currency:      listing.Currency,
			Price:         listing.Price,
			Round:         rec.Round,
			Timestamp:     rec.Timestamp,
		}); err != nil {
			return err
		}
		return tx.SetListingSale(listing.TransactionID, rec.TxID)

	case marketDeleteEvent:
		listing, err := tx.GetActiveListing(contractID, rec.Uint("listingId"))
		if errors.Is(err, store.ErrNotFound) {
			x.log.Warnw("delete for unknown listing",
				"market", contractID, "listingId", rec.Uint("listingId"), "tx", rec.TxID)
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.InsertListingDeleteIfAbsent(&store.ListingDelete{
			TransactionID: rec.TxID,
			MpContractID:  contractID,
			MpListingID:   listing.MpListingID,
			ListingTxID:   listing.TransactionID,
			Owner:         rec.Addr("owner"),
			Round:         rec.Round,
			Timestamp:     rec.Timestamp,
		}); err != nil {
			return err
		}
		return tx.SetListingDelete(listing.TransactionID, rec.TxID)
	}

	return nil
}
