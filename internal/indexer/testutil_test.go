package indexer

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/db"
	"github.com/voiscan/appindexor/internal/db/migrations"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dbPath := path.Join(t.TempDir(), "appindexorTest.sqlite")
	require.NoError(t, migrations.RunMigrations(dbPath))

	database, err := db.NewSQLiteDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return store.New(database, logger.NewNopLogger())
}

// stubClient serves canned blocks, app info, events and simulations.
type stubClient struct {
	tip    uint64
	blocks map[uint64]*chain.Block
	apps   map[uint64]*chain.AppInfo
	events map[string][]chain.Event
	sims   map[string][]byte
	uris   map[string][]byte

	eventFetches int
}

func newStubClient() *stubClient {
	return &stubClient{
		blocks: make(map[uint64]*chain.Block),
		apps:   make(map[uint64]*chain.AppInfo),
		events: make(map[string][]chain.Event),
		sims:   make(map[string][]byte),
		uris:   make(map[string][]byte),
	}
}

func (s *stubClient) GetChainTip(context.Context) (uint64, error) { return s.tip, nil }

func (s *stubClient) GetBlock(_ context.Context, round uint64) (*chain.Block, error) {
	if b, ok := s.blocks[round]; ok {
		return b, nil
	}
	return &chain.Block{Round: round}, nil
}

func (s *stubClient) LookupApp(_ context.Context, appID uint64) (*chain.AppInfo, error) {
	if info, ok := s.apps[appID]; ok {
		return info, nil
	}
	return &chain.AppInfo{AppID: appID, Creator: "CREATOR", CreatedRound: 1}, nil
}

func (s *stubClient) SimulateReadonly(_ context.Context, _ uint64, method string, _ [][]byte) ([]byte, error) {
	if ret, ok := s.sims[method]; ok {
		return ret, nil
	}
	return nil, chain.ErrSimulationFailed
}

func (s *stubClient) GetEvents(_ context.Context, _ uint64, specs []chain.EventSpec,
	minRound, maxRound uint64) (map[string][]chain.Event, error) {
	s.eventFetches++

	out := make(map[string][]chain.Event)
	for _, spec := range specs {
		for _, ev := range s.events[spec.Name] {
			if ev.Round >= minRound && ev.Round <= maxRound {
				out[spec.Name] = append(out[spec.Name], ev)
			}
		}
	}
	return out, nil
}

func (s *stubClient) FetchURI(_ context.Context, uri string) ([]byte, error) {
	if body, ok := s.uris[uri]; ok {
		return body, nil
	}
	return nil, chain.ErrSimulationFailed
}

var _ chain.Client = (*stubClient)(nil)
