package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/classify"
	"github.com/voiscan/appindexor/internal/config"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/metrics"
	"github.com/voiscan/appindexor/internal/store"
)

// Driver is the outer sync loop. It advances the global checkpoint one round
// at a time: fetch block, extract occurrences, classify, dispatch to the
// family indexers, then persist the checkpoint only once the whole round has
// been applied.
type Driver struct {
	client     chain.Client
	store      *store.Store
	classifier *classify.Classifier
	indexers   map[store.Family]FamilyIndexer
	cfg        config.SyncConfig
	log        *logger.Logger
}

// NewDriver creates the sync driver over the given family indexers.
func NewDriver(client chain.Client, st *store.Store, classifier *classify.Classifier,
	indexers []FamilyIndexer, cfg config.SyncConfig, log *logger.Logger) *Driver {
	byFamily := make(map[store.Family]FamilyIndexer, len(indexers))
	for _, ix := range indexers {
		byFamily[ix.Family()] = ix
	}

	return &Driver{
		client:     client,
		store:      st,
		classifier: classifier,
		indexers:   byFamily,
		cfg:        cfg,
		log:        log.WithComponent("driver"),
	}
}

// Run streams rounds from the persisted checkpoint (or the configured start
// round on a fresh database) until the context is cancelled. At the chain tip
// it polls and rechecks; a round is never skipped.
func (d *Driver) Run(ctx context.Context) error {
	round, err := d.startRound()
	if err != nil {
		return err
	}
	d.log.Infow("starting sync", "round", round)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		tip, err := d.client.GetChainTip(ctx)
		if err != nil {
			d.log.Warnw("chain tip lookup failed", "error", err)
			if !d.sleep(ctx, d.cfg.RetryDelay.Duration) {
				return ctx.Err()
			}
			continue
		}

		if round > tip {
			if !d.sleep(ctx, d.cfg.TipPollInterval.Duration) {
				return ctx.Err()
			}
			continue
		}

		if err := d.ProcessRound(ctx, round); err != nil {
			return err
		}
		round++
	}
}

// ProcessRound applies one round end to end and persists the global
// checkpoint. The block fetch retries the same round with a fixed delay until
// it succeeds or the context ends.
func (d *Driver) ProcessRound(ctx context.Context, round uint64) error {
	started := time.Now()

	block, err := d.fetchBlock(ctx, round)
	if err != nil {
		return err
	}

	occurrences := extract.Occurrences(block)
	metrics.OccurrencesSeen(len(occurrences))

	for _, occ := range occurrences {
		if err := d.dispatch(ctx, occ); err != nil {
			return err
		}
	}

	if err := d.store.SetSyncRound(round); err != nil {
		return err
	}

	metrics.SyncRoundSet(round)
	metrics.RoundProcessed(time.Since(started))
	d.log.Debugw("round processed", "round", round, "occurrences", len(occurrences))
	return nil
}

// Replay re-applies the full event history of one known contract up to the
// current chain tip, through the same family sync logic the block loop uses.
func (d *Driver) Replay(ctx context.Context, contractID string) error {
	family, err := d.store.FamilyOf(contractID)
	if err != nil {
		return err
	}
	if family == store.FamilyUnknown {
		return fmt.Errorf("contract %s has never been indexed", contractID)
	}

	ix, ok := d.indexers[family]
	if !ok {
		return fmt.Errorf("no indexer for family %s", family)
	}

	tip, err := d.client.GetChainTip(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch chain tip: %w", err)
	}

	d.log.Infow("replaying contract", "contract", contractID, "family", family, "upTo", tip)
	return ix.Replay(ctx, contractID, tip)
}

// dispatch routes one occurrence to its family indexer. Known contracts skip
// classification through the store lookup. A failed per-contract sync is
// logged and abandoned; the unadvanced checkpoint retries it on the
// contract's next occurrence. A store failure is not per-contract: it aborts
// the round so the loop stops rather than sync over a broken database.
func (d *Driver) dispatch(ctx context.Context, occ extract.Occurrence) error {
	contractID := occ.AppIDStr()

	family, err := d.store.FamilyOf(contractID)
	if err != nil {
		return fmt.Errorf("family lookup for contract %s: %w", contractID, err)
	}

	if family == store.FamilyUnknown {
		// Probe rejections classify as unknown; an error here is the
		// classifier's store consultation failing.
		family, err = d.classifier.Classify(ctx, occ)
		if err != nil {
			return fmt.Errorf("classification of contract %s: %w", contractID, err)
		}
		if family == store.FamilyUnknown {
			return nil
		}
		metrics.ClassificationInc(string(family))
		d.log.Infow("classified contract", "contract", contractID, "family", family)
	}

	ix, ok := d.indexers[family]
	if !ok {
		return nil
	}

	if err := ix.Process(ctx, occ); err != nil {
		metrics.ContractSyncFailureInc(string(family))
		d.log.Errorw("contract sync abandoned",
			"contract", contractID, "family", family, "round", occ.Round, "error", err)
	}
	return nil
}

// fetchBlock races the block request against the configured timeout and keeps
// retrying the same round with a fixed delay.
func (d *Driver) fetchBlock(ctx context.Context, round uint64) (*chain.Block, error) {
	var block *chain.Block

	operation := func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.BlockTimeout.Duration)
		defer cancel()

		var err error
		block, err = d.client.GetBlock(fetchCtx, round)
		if err != nil {
			metrics.BlockFetchRetryInc()
			d.log.Warnw("block fetch failed, retrying", "round", round, "error", err)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(d.cfg.RetryDelay.Duration), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("failed to fetch block %d: %w", round, err)
	}
	return block, nil
}

func (d *Driver) startRound() (uint64, error) {
	checkpoint, ok, err := d.store.GetSyncRound()
	if err != nil {
		return 0, err
	}
	if ok {
		return checkpoint + 1, nil
	}
	return d.cfg.StartRound, nil
}

func (d *Driver) sleep(ctx context.Context, dur time.Duration) bool {
	select {
	case <-time.After(dur):
		return true
	case <-ctx.Done():
		return false
	}
}
