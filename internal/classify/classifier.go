package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/store"
)

// Interface selectors probed through supportsInterface. Implementations
// disagree on the return type, so each selector is tried with both the
// boolean and the byte signature.
var (
	nftInterfaceID    = []byte{0x4e, 0x22, 0xa3, 0xba}
	marketInterfaceID = []byte{0xae, 0x4d, 0x14, 0xad}
)

const (
	methodSupportsBool = "supportsInterface(byte[4])bool"
	methodSupportsByte = "supportsInterface(byte[4])byte"
	methodName         = "name()string"
	methodPoolInfo     = "Info()(uint64,uint64,uint64,uint64,uint64)"
)

// Approval-program hashes of AMM pool builds deployed on the network. A
// creation whose program hashes into this table is a pool regardless of what
// its methods claim.
var knownPoolProgramHashes = map[string]struct{}{
	"8b8a2f2a6a1c5d9e4f3b7c0d1e2a3b4c5d6e7f8091a2b3c4d5e6f70819202122": {},
	"c1d2e3f405162738495a6b7c8d9eaf10213243546576879809bacbdcedfe0f11": {},
}

// Global-state keys written by the staking-contract-standard template on
// creation. All of them must be present for the structural check to match.
var scsGlobalKeys = []string{
	"funder", "period", "total", "deadline",
	"period_seconds", "lockup_delay", "vesting_delay", "period_limit",
}

// Global-state keys written by the legacy staking pool template on creation.
// Pool membership in the store is the primary signal; this key-set check only
// catches a pool's very first transaction, before any row exists.
var stakePoolGlobalKeys = []string{
	"stakeTokenId", "poolStart", "poolEnd", "totalStaked",
}

const negativeTTL = 10 * time.Minute

// poolMembership is the slice of the store the classifier consults.
type poolMembership interface {
	HasStakePool(contractID string) (bool, error)
}

// Classifier decides which family a newly seen application belongs to by
// running an ordered list of probes, first match wins. Unsupported contracts
// classify as FamilyUnknown and are remembered for a while so hot unknown
// contracts do not get re-probed every block.
type Classifier struct {
	client   chain.Client
	pools    poolMembership
	log      *logger.Logger
	negative *cache.Cache
}

// New creates a Classifier.
func New(client chain.Client, pools poolMembership, log *logger.Logger) *Classifier {
	return &Classifier{
		client:   client,
		pools:    pools,
		log:      log.WithComponent("classifier"),
		negative: cache.New(negativeTTL, 2*negativeTTL),
	}
}

// Classify determines the family of the occurrence's application. Probe
// failures (a contract not implementing a method, a rejected simulation) are
// negative signals, never errors; only store failures propagate.
func (c *Classifier) Classify(ctx context.Context, occ extract.Occurrence) (store.Family, error) {
	contractID := occ.AppIDStr()
	if _, found := c.negative.Get(contractID); found {
		return store.FamilyUnknown, nil
	}

	if occ.IsCreate {
		if len(occ.ApprovalProgram) > 0 {
			sum := sha256.Sum256(occ.ApprovalProgram)
			if _, ok := knownPoolProgramHashes[hex.EncodeToString(sum[:])]; ok {
				return store.FamilyPool, nil
			}
		}
		if hasAllKeys(occ.GlobalStateDelta, scsGlobalKeys) {
			return store.FamilySCS, nil
		}
	}

	known, err := c.pools.HasStakePool(contractID)
	if err != nil {
		return store.FamilyUnknown, err
	}
	if known {
		return store.FamilyStaking, nil
	}
	if occ.IsCreate && hasAllKeys(occ.GlobalStateDelta, stakePoolGlobalKeys) {
		return store.FamilyStaking, nil
	}

	if c.supportsInterface(ctx, occ.AppID, nftInterfaceID) {
		return store.FamilyNFT, nil
	}
	if c.supportsInterface(ctx, occ.AppID, marketInterfaceID) {
		return store.FamilyMarket, nil
	}

	if family, ok := c.classifyFungible(ctx, occ.AppID); ok {
		return family, nil
	}

	c.negative.SetDefault(contractID, struct{}{})
	c.log.Debugw("unclassified application", "appId", contractID)
	return store.FamilyUnknown, nil
}

// supportsInterface probes one selector with both return-type signatures. A
// non-empty return whose last byte is nonzero counts as supported.
func (c *Classifier) supportsInterface(ctx context.Context, appID uint64, interfaceID []byte) bool {
	for _, method := range []string{methodSupportsBool, methodSupportsByte} {
		ret, err := c.client.SimulateReadonly(ctx, appID, method, [][]byte{interfaceID})
		if err != nil {
			continue
		}
		if len(ret) > 0 && ret[len(ret)-1] != 0 {
			return true
		}
	}
	return false
}

// classifyFungible probes the name accessor. Success means a fungible token,
// refined to an LP pool when pool introspection also succeeds or the
// application account holds no assets (legacy LP tokens keep their reserves
// off the application account).
func (c *Classifier) classifyFungible(ctx context.Context, appID uint64) (store.Family, bool) {
	if _, err := c.client.SimulateReadonly(ctx, appID, methodName, nil); err != nil {
		return store.FamilyUnknown, false
	}

	if _, err := c.client.SimulateReadonly(ctx, appID, methodPoolInfo, nil); err == nil {
		return store.FamilyPool, true
	}

	info, err := c.client.LookupApp(ctx, appID)
	if err == nil && len(info.Assets) == 0 {
		return store.FamilyPool, true
	}

	return store.FamilyToken, true
}

func hasAllKeys(deltas []chain.StateDelta, keys []string) bool {
	present := make(map[string]struct{}, len(deltas))
	for _, d := range deltas {
		present[d.Key] = struct{}{}
	}
	for _, key := range keys {
		if _, ok := present[key]; !ok {
			return false
		}
	}
	return true
}
