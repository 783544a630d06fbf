package chain

import (
	"context"
	"errors"
)

// ErrSimulationFailed marks a readonly simulation the contract rejected or
// does not implement. The classifier treats it as a negative probe signal,
// never as a propagated failure.
var ErrSimulationFailed = errors.New("readonly simulation failed")

// Client is the boundary to the chain node and its historical indexer.
// Everything the core consumes from the network goes through this interface
// so tests can stub it per probe.
type Client interface {
	// GetChainTip returns the latest round the node has seen.
	GetChainTip(ctx context.Context) (uint64, error)

	// GetBlock fetches one block by round.
	GetBlock(ctx context.Context, round uint64) (*Block, error)

	// LookupApp returns creator, creation round, global state and the
	// application account's asset holdings.
	LookupApp(ctx context.Context, appID uint64) (*AppInfo, error)

	// SimulateReadonly performs a readonly method call against the
	// application and returns the raw return value. Contracts that do not
	// implement the method yield ErrSimulationFailed.
	SimulateReadonly(ctx context.Context, appID uint64, method string, args [][]byte) ([]byte, error)

	// GetEvents queries the historical event log of one application for the
	// named events in the inclusive round range, returning decoded positional
	// tuples grouped by event name.
	GetEvents(ctx context.Context, appID uint64, specs []EventSpec, minRound, maxRound uint64) (map[string][]Event, error)

	// FetchURI retrieves the document behind a token metadata URI.
	FetchURI(ctx context.Context, uri string) ([]byte, error)
}
