package indexer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/metrics"
	"github.com/voiscan/appindexor/internal/store"
)

const (
	nftTransferEvent = "arc72_Transfer"
	nftApprovalEvent = "arc72_Approval"

	methodTokenURI    = "arc72_tokenURI(uint256)byte[256]"
	methodGetApproved = "arc72_getApproved(uint256)address"

	metadataFetchConcurrency = 4
)

var nftEventSpecs = []chain.EventSpec{
	{
		Name: nftTransferEvent,
		Fields: []chain.FieldDef{
			{Name: "from", Kind: chain.KindAddress},
			{Name: "to", Kind: chain.KindAddress},
			{Name: "tokenId", Kind: chain.KindUint},
		},
	},
	{
		Name: nftApprovalEvent,
		Fields: []chain.FieldDef{
			{Name: "owner", Kind: chain.KindAddress},
			{Name: "approved", Kind: chain.KindAddress},
			{Name: "tokenId", Kind: chain.KindUint},
		},
	},
}

// NFT indexes collection contracts: token ownership, approvals, mint metadata
// and the append-only transfer history.
type NFT struct {
	client chain.Client
	store  *store.Store
	log    *logger.Logger
}

// NewNFT creates the NFT family indexer.
func NewNFT(client chain.Client, st *store.Store, log *logger.Logger) *NFT {
	return &NFT{
		client: client,
		store:  st,
		log:    log.WithComponent("indexer-nft"),
	}
}

// Family implements FamilyIndexer.
func (x *NFT) Family() store.Family { return store.FamilyNFT }

// Process handles one occurrence of a collection contract.
func (x *NFT) Process(ctx context.Context, occ extract.Occurrence) error {
	contractID := occ.AppIDStr()

	col, err := x.store.GetCollection(contractID)
	if errors.Is(err, store.ErrNotFound) {
		col, err = x.seed(ctx, occ)
	}
	if err != nil {
		return err
	}

	return x.sync(ctx, occ.AppID, contractID, col.LastSyncRound, occ.Round)
}

// Replay re-applies the collection's full event history.
func (x *NFT) Replay(ctx context.Context, contractID string, upTo uint64) error {
	col, err := x.store.GetCollection(contractID)
	if err != nil {
		return err
	}
	appID, err := strconv.ParseUint(contractID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad contract id %q: %w", contractID, err)
	}
	return x.sync(ctx, appID, contractID, col.CreateRound, upTo)
}

func (x *NFT) seed(ctx context.Context, occ extract.Occurrence) (*store.Collection, error) {
	info, err := x.client.LookupApp(ctx, occ.AppID)
	if err != nil {
		return nil, fmt.Errorf("failed to seed collection %d: %w", occ.AppID, err)
	}

	col := &store.Collection{
		ContractID:    occ.AppIDStr(),
		Creator:       info.Creator,
		CreateRound:   info.CreatedRound,
		LastSyncRound: occ.Round,
		TotalSupply:   "0",
	}
	if err := x.store.PutCollection(col); err != nil {
		return nil, err
	}
	return col, nil
}

func (x *NFT) sync(ctx context.Context, appID uint64, contractID string, fromRound, toRound uint64) error {
	records, err := fetchRecords(ctx, x.client, appID, nftEventSpecs, fromRound, toRound)
	if err != nil {
		return err
	}

	// Metadata and approval lookups hit the network, so they run before the
	// transaction; failures degrade to empty values rather than failing sync.
	metadata := x.prefetchMetadata(ctx, appID, records)
	approvals := x.prefetchApprovals(ctx, appID, records)

	err = x.store.WithTx(func(tx *store.Store) error {
		for _, rec := range records {
			if err := x.apply(tx, contractID, rec, metadata, approvals); err != nil {
				return err
			}
		}
		return tx.UpdateCollectionSync(contractID, toRound)
	})
	if err != nil {
		return err
	}

	metrics.EventsApplied(string(store.FamilyNFT), len(records))
	return nil
}

func (x *NFT) apply(tx *store.Store, contractID string, rec *chain.Record,
	metadata map[string][2]string, approvals map[string]string) error {
	switch rec.Name() {
	case nftTransferEvent:
		tokenID := rec.Uint("tokenId")

		if chain.IsZeroAddress(rec.Addr("from")) {
			meta := metadata[tokenID]
			created, err := tx.InsertTokenIfAbsent(&store.Token{
				ContractID:  contractID,
				TokenID:     tokenID,
				Owner:       rec.Addr("to"),
				MintRound:   rec.Round,
				MetadataURI: meta[0],
				Metadata:    meta[1],
			})
			if err != nil {
				return err
			}
			if created {
				n, err := tx.CountTokens(contractID)
				if err != nil {
					return err
				}
				if err := tx.UpdateCollectionSupply(contractID, strconv.FormatUint(n, 10)); err != nil {
					return err
				}
			}
		} else {
			if err := tx.UpdateTokenOwner(contractID, tokenID, rec.Addr("to")); err != nil {
				return err
			}
			if approved, ok := approvals[tokenID]; ok {
				if err := tx.UpdateTokenApproved(contractID, tokenID, approved); err != nil {
					return err
				}
			}
		}

		return tx.InsertTransferIfAbsent(&store.Transfer{
			TransactionID: rec.TxID,
			ContractID:    contractID,
			TokenID:       tokenID,
			Round:         rec.Round,
			From:          rec.Addr("from"),
			To:            rec.Addr("to"),
			Timestamp:     rec.Timestamp,
		})

	case nftApprovalEvent:
		return tx.UpdateTokenApproved(contractID, rec.Uint("tokenId"), rec.Addr("approved"))
	}

	return nil
}

// prefetchMetadata resolves tokenURI and the document behind it for every
// minted token in the batch.
func (x *NFT) prefetchMetadata(ctx context.Context, appID uint64, records []*chain.Record) map[string][2]string {
	out := make(map[string][2]string)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(metadataFetchConcurrency)

	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.Name() != nftTransferEvent || !chain.IsZeroAddress(rec.Addr("from")) {
			continue
		}
		tokenID := rec.Uint("tokenId")
		if seen[tokenID] {
			continue
		}
		seen[tokenID] = true

		g.Go(func() error {
			ret, err := x.client.SimulateReadonly(ctx, appID, methodTokenURI, [][]byte{uintArg(tokenID)})
			if err != nil {
				x.log.Debugw("tokenURI lookup failed", "appId", appID, "tokenId", tokenID, "error", err)
				mu.Lock()
				out[tokenID] = [2]string{}
				mu.Unlock()
				return nil
			}

			uri := stringFromReturn(ret)
			doc := ""
			if uri != "" {
				if body, err := x.client.FetchURI(ctx, uri); err == nil {
					doc = string(body)
				} else {
					x.log.Debugw("metadata fetch failed", "appId", appID, "uri", uri, "error", err)
				}
			}
			mu.Lock()
			out[tokenID] = [2]string{uri, doc}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// prefetchApprovals re-queries the current approved operator for tokens moved
// by non-mint transfers.
func (x *NFT) prefetchApprovals(ctx context.Context, appID uint64, records []*chain.Record) map[string]string {
	out := make(map[string]string)

	for _, rec := range records {
		if rec.Name() != nftTransferEvent || chain.IsZeroAddress(rec.Addr("from")) {
			continue
		}
		tokenID := rec.Uint("tokenId")

		ret, err := x.client.SimulateReadonly(ctx, appID, methodGetApproved, [][]byte{uintArg(tokenID)})
		if err != nil {
			continue
		}
		out[tokenID] = addrFromReturn(ret)
	}

	return out
}
