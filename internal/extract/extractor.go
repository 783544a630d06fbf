package extract

import (
	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/common"
)

// Occurrence is one application call found in a block. Inner transactions are
// not carried on the parent: the walk yields every nested application call as
// its own Occurrence, so consumers see a flat stream and no dispatch path has
// to recurse.
type Occurrence struct {
	AppID     uint64
	IsCreate  bool
	Round     uint64
	Timestamp int64
	TxID      string
	Sender    string

	AppArgs          [][]byte
	ApprovalProgram  []byte
	GlobalStateDelta []chain.StateDelta
}

// AppIDStr returns the occurrence's application id in its text key form.
func (o Occurrence) AppIDStr() string {
	return common.FormatAppID(o.AppID)
}

// Occurrences walks a block's transaction list depth-first, flattening inner
// transactions, and yields every application call in transaction order. A
// second call to the same application in one block is kept: callers that only
// need the set of touched applications use AppIDs instead.
func Occurrences(block *chain.Block) []Occurrence {
	var out []Occurrence
	for _, txn := range block.Txns {
		out = appendOccurrences(out, txn, block)
	}
	return out
}

func appendOccurrences(out []Occurrence, txn chain.Transaction, block *chain.Block) []Occurrence {
	if occ, ok := occurrenceOf(txn, block); ok {
		out = append(out, occ)
	}
	for _, inner := range txn.InnerTxns {
		out = appendOccurrences(out, inner, block)
	}
	return out
}

func occurrenceOf(txn chain.Transaction, block *chain.Block) (Occurrence, bool) {
	if txn.Type != chain.TxTypeAppCall {
		return Occurrence{}, false
	}

	appID := txn.ApplicationID
	// The historical representation carries the created id instead of the
	// called id on creation; the streaming representation carries programs.
	isCreate := txn.CreatedApplicationID != 0 ||
		(len(txn.ApprovalProgram) > 0 && len(txn.ClearStateProgram) > 0)
	if appID == 0 {
		appID = txn.CreatedApplicationID
	}
	if appID == 0 {
		return Occurrence{}, false
	}

	return Occurrence{
		AppID:            appID,
		IsCreate:         isCreate,
		Round:            block.Round,
		Timestamp:        block.Timestamp,
		TxID:             txn.ID,
		Sender:           txn.Sender,
		AppArgs:          txn.AppArgs,
		ApprovalProgram:  txn.ApprovalProgram,
		GlobalStateDelta: txn.GlobalStateDelta,
	}, true
}

// AppIDs returns the distinct application ids touched by a block, in first
// occurrence order.
func AppIDs(block *chain.Block) []uint64 {
	seen := make(map[uint64]struct{})
	var out []uint64
	for _, occ := range Occurrences(block) {
		if _, ok := seen[occ.AppID]; ok {
			continue
		}
		seen[occ.AppID] = struct{}{}
		out = append(out, occ.AppID)
	}
	return out
}
