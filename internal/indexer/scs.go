package indexer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/metrics"
	"github.com/voiscan/appindexor/internal/store"
)

// scsDecoder turns one recognized method call's arguments into a sparse
// record patch. args excludes the selector itself.
type scsDecoder struct {
	name   string
	decode func(args [][]byte) (*store.SCSPatch, error)
}

// Method selectors of the staking contract standard, keyed by the two-byte
// prefix of the first application argument. Unknown selectors are ignored.
var scsSelectors = map[[2]byte]scsDecoder{
	{0x73, 0x75}: {name: "setup", decode: decodeSCSSetup},
	{0x63, 0x66}: {name: "configure", decode: decodeSCSConfigure},
	{0x66, 0x69}: {name: "fill", decode: decodeSCSFill},
	{0x70, 0x61}: {name: "participate", decode: decodeSCSParticipate},
	{0x73, 0x64}: {name: "set_delegate", decode: decodeSCSSetDelegate},
	{0x74, 0x6f}: {name: "transfer_ownership", decode: decodeSCSTransferOwnership},
	{0x63, 0x6c}: {name: "close", decode: decodeSCSClose},
}

// SCS indexes the generic staking contract standard. Its contracts emit no
// event log; state is reconstructed by decoding recognized method-call
// argument layouts straight off each occurrence.
type SCS struct {
	client chain.Client
	store  *store.Store
	log    *logger.Logger
}

// NewSCS creates the staking-contract-standard family indexer.
func NewSCS(client chain.Client, st *store.Store, log *logger.Logger) *SCS {
	return &SCS{
		client: client,
		store:  st,
		log:    log.WithComponent("indexer-scs"),
	}
}

// Family implements FamilyIndexer.
func (x *SCS) Family() store.Family { return store.FamilySCS }

// Process handles one occurrence of a staking-contract-standard application.
func (x *SCS) Process(ctx context.Context, occ extract.Occurrence) error {
	contractID := occ.AppIDStr()

	_, err := x.store.GetSCS(contractID)
	if errors.Is(err, store.ErrNotFound) {
		err = x.seed(ctx, occ)
	}
	if err != nil {
		return err
	}

	patch, method, err := decodeSCSCall(occ.AppArgs)
	if err != nil {
		return fmt.Errorf("scs %s tx %s: %w", contractID, occ.TxID, err)
	}

	err = x.store.WithTx(func(tx *store.Store) error {
		if patch != nil {
			if err := tx.MergeSCS(contractID, patch); err != nil {
				return err
			}
		}
		return tx.UpdateSCSSync(contractID, occ.Round)
	})
	if err != nil {
		return err
	}

	if patch != nil {
		x.log.Debugw("merged scs call", "contract", contractID, "method", method)
		metrics.EventsApplied(string(store.FamilySCS), 1)
	}
	return nil
}

// Replay cannot re-enumerate method calls from the event log; recovering a
// standard contract's state requires replaying the block range instead.
func (x *SCS) Replay(_ context.Context, contractID string, _ uint64) error {
	x.log.Warnw("scs contracts replay through block processing, not the event log",
		"contract", contractID)
	return nil
}

func (x *SCS) seed(ctx context.Context, occ extract.Occurrence) error {
	info, err := x.client.LookupApp(ctx, occ.AppID)
	if err != nil {
		return fmt.Errorf("failed to seed scs %d: %w", occ.AppID, err)
	}

	return x.store.PutSCS(&store.SCSAccount{
		ContractID:    occ.AppIDStr(),
		Creator:       info.Creator,
		CreateRound:   info.CreatedRound,
		LastSyncRound: occ.Round,
	})
}

// decodeSCSCall dispatches on the selector prefix. A nil patch with a nil
// error means the call is not part of the standard's mutating surface.
func decodeSCSCall(appArgs [][]byte) (*store.SCSPatch, string, error) {
	if len(appArgs) == 0 || len(appArgs[0]) < 2 {
		return nil, "", nil
	}

	var sel [2]byte
	copy(sel[:], appArgs[0][:2])
	dec, ok := scsSelectors[sel]
	if !ok {
		return nil, "", nil
	}

	patch, err := dec.decode(appArgs[1:])
	if err != nil {
		return nil, dec.name, fmt.Errorf("%s: %w", dec.name, err)
	}
	return patch, dec.name, nil
}

func decodeSCSSetup(args [][]byte) (*store.SCSPatch, error) {
	if len(args) < 5 {
		return nil, fmt.Errorf("expected 5 args, got %d", len(args))
	}
	return &store.SCSPatch{
		GlobalOwner:    scsAddrArg(args[0]),
		GlobalFunder:   scsAddrArg(args[1]),
		GlobalTotal:    scsUintArg(args[2]),
		GlobalInitial:  scsUintArg(args[3]),
		GlobalDeadline: scsUintArg(args[4]),
	}, nil
}

func decodeSCSConfigure(args [][]byte) (*store.SCSPatch, error) {
	if len(args) < 5 {
		return nil, fmt.Errorf("expected 5 args, got %d", len(args))
	}
	return &store.SCSPatch{
		GlobalPeriod:        scsUintArg(args[0]),
		GlobalPeriodSeconds: scsUintArg(args[1]),
		GlobalPeriodLimit:   scsUintArg(args[2]),
		GlobalLockupDelay:   scsUintArg(args[3]),
		GlobalVestingDelay:  scsUintArg(args[4]),
	}, nil
}

func decodeSCSFill(args [][]byte) (*store.SCSPatch, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("expected 1 arg, got %d", len(args))
	}
	return &store.SCSPatch{GlobalFunding: scsUintArg(args[0])}, nil
}

func decodeSCSParticipate(args [][]byte) (*store.SCSPatch, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("expected 3 args, got %d", len(args))
	}
	return &store.SCSPatch{
		GlobalMessengerID:         scsUintArg(args[0]),
		GlobalDistributionCount:   scsUintArg(args[1]),
		GlobalDistributionSeconds: scsUintArg(args[2]),
	}, nil
}

func decodeSCSSetDelegate(args [][]byte) (*store.SCSPatch, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("expected 1 arg, got %d", len(args))
	}
	return &store.SCSPatch{GlobalDelegate: scsAddrArg(args[0])}, nil
}

func decodeSCSTransferOwnership(args [][]byte) (*store.SCSPatch, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("expected 1 arg, got %d", len(args))
	}
	return &store.SCSPatch{GlobalOwner: scsAddrArg(args[0])}, nil
}

func decodeSCSClose(_ [][]byte) (*store.SCSPatch, error) {
	deleted := 1
	return &store.SCSPatch{Deleted: &deleted}, nil
}

func scsAddrArg(arg []byte) *string {
	if len(arg) != 32 {
		return nil
	}
	addr := chain.EncodeAddress(arg)
	return &addr
}

func scsUintArg(arg []byte) *string {
	if len(arg) == 0 || len(arg) > 8 {
		return nil
	}
	buf := make([]byte, 8)
	copy(buf[8-len(arg):], arg)
	v := strconv.FormatUint(binary.BigEndian.Uint64(buf), 10)
	return &v
}
