package indexer

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/store"
)

// FamilyIndexer consumes occurrences of one contract family. Process handles
// one occurrence through the create/update and sync states; Replay re-applies
// the full event history of one known contract up to the given round.
// Implementations never cache contract state across invocations: each call
// re-reads the store, applies, and writes back.
type FamilyIndexer interface {
	Family() store.Family
	Process(ctx context.Context, occ extract.Occurrence) error
	Replay(ctx context.Context, contractID string, upTo uint64) error
}

// fetchRecords pulls every named event of one contract in the inclusive round
// range and decodes it into round order. A tuple that does not match its spec
// fails the whole fetch: a malformed event means the shape assumption is
// wrong, and applying the rest of the range around it would corrupt state.
func fetchRecords(ctx context.Context, client chain.Client, appID uint64,
	specs []chain.EventSpec, minRound, maxRound uint64) ([]*chain.Record, error) {
	byName, err := client.GetEvents(ctx, appID, specs, minRound, maxRound)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events for app %d: %w", appID, err)
	}

	var records []*chain.Record
	for _, spec := range specs {
		for _, ev := range byName[spec.Name] {
			rec, err := chain.Decode(spec, ev)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Round != records[j].Round {
			return records[i].Round < records[j].Round
		}
		return records[i].TxID < records[j].TxID
	})

	return records, nil
}

// uintFromReturn reads a simulated return value as a big-endian unsigned
// integer in canonical decimal form.
func uintFromReturn(ret []byte) string {
	if len(ret) == 0 {
		return "0"
	}
	return new(big.Int).SetBytes(ret).String()
}

// stringFromReturn reads a simulated return value as text, dropping padding.
func stringFromReturn(ret []byte) string {
	return strings.TrimRight(strings.TrimLeft(string(ret), "\x00"), "\x00")
}

// addrFromReturn reads a simulated return value as an address. The node hands
// back the raw 32-byte public key.
func addrFromReturn(ret []byte) string {
	if len(ret) != 32 {
		return ""
	}
	return chain.EncodeAddress(ret)
}

// uintArg encodes a canonical decimal string as the 32-byte big-endian
// argument form readonly methods expect.
func uintArg(value string) []byte {
	n, ok := new(big.Int).SetString(value, 10)
	if !ok {
		n = new(big.Int)
	}
	return n.FillBytes(make([]byte, 32))
}
