package classify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voiscan/appindexor/internal/chain"
	"github.com/voiscan/appindexor/internal/extract"
	"github.com/voiscan/appindexor/internal/logger"
	"github.com/voiscan/appindexor/internal/store"
)

// stubClient answers simulations from a canned table and counts calls.
type stubClient struct {
	simulations map[string][]byte
	simCalls    int
	appInfo     *chain.AppInfo
}

func (s *stubClient) GetChainTip(context.Context) (uint64, error) { return 0, nil }
func (s *stubClient) GetBlock(context.Context, uint64) (*chain.Block, error) {
	return nil, chain.ErrSimulationFailed
}
func (s *stubClient) FetchURI(context.Context, string) ([]byte, error) { return nil, nil }
func (s *stubClient) GetEvents(context.Context, uint64, []chain.EventSpec, uint64, uint64) (map[string][]chain.Event, error) {
	return nil, nil
}

func (s *stubClient) LookupApp(_ context.Context, appID uint64) (*chain.AppInfo, error) {
	if s.appInfo == nil {
		return &chain.AppInfo{AppID: appID}, nil
	}
	return s.appInfo, nil
}

func (s *stubClient) SimulateReadonly(_ context.Context, _ uint64, method string, _ [][]byte) ([]byte, error) {
	s.simCalls++
	if ret, ok := s.simulations[method]; ok {
		return ret, nil
	}
	return nil, chain.ErrSimulationFailed
}

type stubMembership struct {
	members map[string]bool
}

func (s stubMembership) HasStakePool(contractID string) (bool, error) {
	return s.members[contractID], nil
}

func newTestClassifier(client chain.Client, members map[string]bool) *Classifier {
	return New(client, stubMembership{members: members}, logger.NewNopLogger())
}

func TestClassify_KnownPoolProgramHash(t *testing.T) {
	program := []byte{0x0a, 0x20, 0x01, 0x01}
	sum := sha256.Sum256(program)
	knownPoolProgramHashes[hex.EncodeToString(sum[:])] = struct{}{}
	defer delete(knownPoolProgramHashes, hex.EncodeToString(sum[:]))

	client := &stubClient{}
	c := newTestClassifier(client, nil)

	family, err := c.Classify(context.Background(), extract.Occurrence{
		AppID:           600,
		IsCreate:        true,
		ApprovalProgram: program,
	})
	require.NoError(t, err)
	assert.Equal(t, store.FamilyPool, family)
	assert.Zero(t, client.simCalls, "hash match must short-circuit all probing")
}

func TestClassify_SCSGlobalKeys(t *testing.T) {
	deltas := make([]chain.StateDelta, 0, len(scsGlobalKeys))
	for _, key := range scsGlobalKeys {
		deltas = append(deltas, chain.StateDelta{Key: key})
	}

	c := newTestClassifier(&stubClient{}, nil)

	family, err := c.Classify(context.Background(), extract.Occurrence{
		AppID:            800,
		IsCreate:         true,
		GlobalStateDelta: deltas,
	})
	require.NoError(t, err)
	assert.Equal(t, store.FamilySCS, family)

	// The key-set check only applies to creations.
	family, err = c.Classify(context.Background(), extract.Occurrence{
		AppID:            801,
		GlobalStateDelta: deltas,
	})
	require.NoError(t, err)
	assert.Equal(t, store.FamilyUnknown, family)
}

func TestClassify_StakePoolMembership(t *testing.T) {
	c := newTestClassifier(&stubClient{}, map[string]bool{"700": true})

	family, err := c.Classify(context.Background(), extract.Occurrence{AppID: 700})
	require.NoError(t, err)
	assert.Equal(t, store.FamilyStaking, family)
}

func TestClassify_NFTInterfaceProbe(t *testing.T) {
	t.Run("boolean signature", func(t *testing.T) {
		client := &stubClient{simulations: map[string][]byte{
			methodSupportsBool: {0x80},
		}}
		c := newTestClassifier(client, nil)

		family, err := c.Classify(context.Background(), extract.Occurrence{AppID: 400})
		require.NoError(t, err)
		assert.Equal(t, store.FamilyNFT, family)
	})

	t.Run("byte signature fallback", func(t *testing.T) {
		client := &stubClient{simulations: map[string][]byte{
			methodSupportsByte: {0x01},
		}}
		c := newTestClassifier(client, nil)

		family, err := c.Classify(context.Background(), extract.Occurrence{AppID: 401})
		require.NoError(t, err)
		assert.Equal(t, store.FamilyNFT, family)
	})

	t.Run("zero return is unsupported", func(t *testing.T) {
		client := &stubClient{simulations: map[string][]byte{
			methodSupportsBool: {0x00},
			methodSupportsByte: {0x00},
		}}
		c := newTestClassifier(client, nil)

		family, err := c.Classify(context.Background(), extract.Occurrence{AppID: 402})
		require.NoError(t, err)
		assert.Equal(t, store.FamilyUnknown, family)
	})
}

func TestClassify_FungibleRefinement(t *testing.T) {
	t.Run("plain token with holdings", func(t *testing.T) {
		client := &stubClient{
			simulations: map[string][]byte{methodName: []byte("VIA")},
			appInfo: &chain.AppInfo{
				AppID:  500,
				Assets: []chain.AssetHolding{{AssetID: 1, Amount: 10}},
			},
		}
		c := newTestClassifier(client, nil)

		family, err := c.Classify(context.Background(), extract.Occurrence{AppID: 500})
		require.NoError(t, err)
		assert.Equal(t, store.FamilyToken, family)
	})

	t.Run("pool introspection succeeds", func(t *testing.T) {
		client := &stubClient{simulations: map[string][]byte{
			methodName:     []byte("LP"),
			methodPoolInfo: {0x01},
		}}
		c := newTestClassifier(client, nil)

		family, err := c.Classify(context.Background(), extract.Occurrence{AppID: 501})
		require.NoError(t, err)
		assert.Equal(t, store.FamilyPool, family)
	})

	t.Run("no holdings refines to pool", func(t *testing.T) {
		client := &stubClient{
			simulations: map[string][]byte{methodName: []byte("LP")},
		}
		c := newTestClassifier(client, nil)

		family, err := c.Classify(context.Background(), extract.Occurrence{AppID: 502})
		require.NoError(t, err)
		assert.Equal(t, store.FamilyPool, family)
	})
}

func TestClassify_NegativeCache(t *testing.T) {
	client := &stubClient{}
	c := newTestClassifier(client, nil)

	occ := extract.Occurrence{AppID: 900}
	family, err := c.Classify(context.Background(), occ)
	require.NoError(t, err)
	assert.Equal(t, store.FamilyUnknown, family)

	probed := client.simCalls
	require.NotZero(t, probed)

	// The second sighting is answered from the negative cache.
	family, err = c.Classify(context.Background(), occ)
	require.NoError(t, err)
	assert.Equal(t, store.FamilyUnknown, family)
	assert.Equal(t, probed, client.simCalls)
}
