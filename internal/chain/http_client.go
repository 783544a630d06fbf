package chain

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/voiscan/appindexor/internal/config"
	"github.com/voiscan/appindexor/internal/logger"
)

// Compile-time check to ensure HTTPClient implements the Client interface.
var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the node REST API (status, blocks, readonly calls) and
// the historical indexer REST API (application lookup, event log queries).
type HTTPClient struct {
	algod   *resty.Client
	indexer *resty.Client
	log     *logger.Logger
}

// NewHTTPClient creates a chain client from endpoint configuration.
func NewHTTPClient(cfg config.ChainConfig, log *logger.Logger) *HTTPClient {
	algod := resty.New().
		SetBaseURL(cfg.AlgodURL).
		SetTimeout(cfg.RequestTimeout.Duration)
	if cfg.AlgodToken != "" {
		algod.SetHeader("X-Algo-API-Token", cfg.AlgodToken)
	}

	indexer := resty.New().
		SetBaseURL(cfg.IndexerURL).
		SetTimeout(cfg.RequestTimeout.Duration)
	if cfg.IndexerToken != "" {
		indexer.SetHeader("X-Indexer-API-Token", cfg.IndexerToken)
	}

	return &HTTPClient{
		algod:   algod,
		indexer: indexer,
		log:     log.WithComponent("chain-client"),
	}
}

// GetChainTip returns the latest round from the node status endpoint.
func (c *HTTPClient) GetChainTip(ctx context.Context) (uint64, error) {
	var out struct {
		LastRound uint64 `json:"last-round"`
	}

	resp, err := c.algod.R().SetContext(ctx).SetResult(&out).Get("/v2/status")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch chain status: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("chain status request returned %s", resp.Status())
	}

	return out.LastRound, nil
}

// wire representations of block transactions; both the streaming node fields
// and the historical indexer fields are mapped.
type wireTxn struct {
	ID                   string         `json:"id"`
	Type                 string         `json:"tx-type"`
	Sender               string         `json:"sender"`
	ApplicationID        uint64         `json:"application-id"`
	CreatedApplicationID uint64         `json:"created-application-index"`
	ApprovalProgram      string         `json:"approval-program"`
	ClearStateProgram    string         `json:"clear-state-program"`
	AppArgs              []string       `json:"application-args"`
	GlobalStateDelta     []wireKeyDelta `json:"global-state-delta"`
	InnerTxns            []wireTxn      `json:"inner-txns"`
}

type wireKeyDelta struct {
	Key   string `json:"key"`
	Value struct {
		Bytes string `json:"bytes"`
		Uint  uint64 `json:"uint"`
	} `json:"value"`
}

// GetBlock fetches one block by round.
func (c *HTTPClient) GetBlock(ctx context.Context, round uint64) (*Block, error) {
	var out struct {
		Round     uint64    `json:"round"`
		Timestamp int64     `json:"timestamp"`
		Txns      []wireTxn `json:"transactions"`
	}

	resp, err := c.algod.R().SetContext(ctx).SetResult(&out).
		Get(fmt.Sprintf("/v2/blocks/%d", round))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block %d: %w", round, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("block %d request returned %s", round, resp.Status())
	}

	block := &Block{
		Round:     out.Round,
		Timestamp: out.Timestamp,
		Txns:      make([]Transaction, 0, len(out.Txns)),
	}
	if block.Round == 0 {
		block.Round = round
	}
	for _, txn := range out.Txns {
		block.Txns = append(block.Txns, mapTxn(txn))
	}

	return block, nil
}

func mapTxn(w wireTxn) Transaction {
	txn := Transaction{
		ID:                   w.ID,
		Type:                 w.Type,
		Sender:               w.Sender,
		ApplicationID:        w.ApplicationID,
		CreatedApplicationID: w.CreatedApplicationID,
		ApprovalProgram:      decodeB64(w.ApprovalProgram),
		ClearStateProgram:    decodeB64(w.ClearStateProgram),
	}

	for _, arg := range w.AppArgs {
		txn.AppArgs = append(txn.AppArgs, decodeB64(arg))
	}
	for _, kd := range w.GlobalStateDelta {
		txn.GlobalStateDelta = append(txn.GlobalStateDelta, StateDelta{
			Key:   string(decodeB64(kd.Key)),
			Bytes: decodeB64(kd.Value.Bytes),
			Uint:  kd.Value.Uint,
		})
	}
	for _, inner := range w.InnerTxns {
		txn.InnerTxns = append(txn.InnerTxns, mapTxn(inner))
	}

	return txn
}

// LookupApp returns the application's creator, creation round, decoded global
// state and the application account's asset holdings.
func (c *HTTPClient) LookupApp(ctx context.Context, appID uint64) (*AppInfo, error) {
	var out struct {
		Application struct {
			ID             uint64 `json:"id"`
			CreatedAtRound uint64 `json:"created-at-round"`
			Params         struct {
				Creator     string `json:"creator"`
				GlobalState []struct {
					Key   string `json:"key"`
					Value struct {
						Bytes string `json:"bytes"`
						Uint  uint64 `json:"uint"`
					} `json:"value"`
				} `json:"global-state"`
			} `json:"params"`
		} `json:"application"`
	}

	resp, err := c.indexer.R().SetContext(ctx).SetResult(&out).
		Get(fmt.Sprintf("/v2/applications/%d", appID))
	if err != nil {
		return nil, fmt.Errorf("failed to lookup application %d: %w", appID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("application %d lookup returned %s", appID, resp.Status())
	}

	info := &AppInfo{
		AppID:        appID,
		Creator:      out.Application.Params.Creator,
		CreatedRound: out.Application.CreatedAtRound,
		GlobalState:  make(map[string]TealValue, len(out.Application.Params.GlobalState)),
	}
	for _, kv := range out.Application.Params.GlobalState {
		info.GlobalState[string(decodeB64(kv.Key))] = TealValue{
			Bytes: decodeB64(kv.Value.Bytes),
			Uint:  kv.Value.Uint,
		}
	}

	// The application account's holdings live under the derived escrow
	// address; a missing account simply means no holdings yet.
	var assetsOut struct {
		Assets []struct {
			AssetID uint64 `json:"asset-id"`
			Amount  uint64 `json:"amount"`
		} `json:"assets"`
	}
	resp, err = c.indexer.R().SetContext(ctx).SetResult(&assetsOut).
		Get(fmt.Sprintf("/v2/accounts/%s/assets", AppAddress(appID)))
	if err == nil && resp.IsSuccess() {
		for _, a := range assetsOut.Assets {
			info.Assets = append(info.Assets, AssetHolding{AssetID: a.AssetID, Amount: a.Amount})
		}
	}

	return info, nil
}

// SimulateReadonly performs a readonly method call through the node's
// application call endpoint. A rejected or unimplemented method maps to
// ErrSimulationFailed so the classifier can treat it as a negative signal.
func (c *HTTPClient) SimulateReadonly(ctx context.Context, appID uint64, method string, args [][]byte) ([]byte, error) {
	encodedArgs := make([]string, 0, len(args))
	for _, arg := range args {
		encodedArgs = append(encodedArgs, base64.StdEncoding.EncodeToString(arg))
	}

	var out struct {
		Return string `json:"return"`
		Error  string `json:"error"`
	}

	resp, err := c.algod.R().SetContext(ctx).
		SetBody(map[string]any{"method": method, "args": encodedArgs}).
		SetResult(&out).
		Post(fmt.Sprintf("/v2/applications/%d/call", appID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSimulationFailed, err)
	}
	if resp.IsError() || out.Error != "" {
		return nil, fmt.Errorf("%w: app %d method %s", ErrSimulationFailed, appID, method)
	}

	return decodeB64(out.Return), nil
}

// GetEvents queries the historical event log, one request per event name.
func (c *HTTPClient) GetEvents(ctx context.Context, appID uint64, specs []EventSpec,
	minRound, maxRound uint64) (map[string][]Event, error) {
	result := make(map[string][]Event, len(specs))

	for _, spec := range specs {
		var out struct {
			Events []struct {
				TxID      string `json:"txid"`
				Round     uint64 `json:"round"`
				Timestamp int64  `json:"timestamp"`
				Args      []any  `json:"args"`
			} `json:"events"`
		}

		resp, err := c.indexer.R().SetContext(ctx).SetResult(&out).
			SetQueryParams(map[string]string{
				"name":      spec.Name,
				"min-round": strconv.FormatUint(minRound, 10),
				"max-round": strconv.FormatUint(maxRound, 10),
			}).
			Get(fmt.Sprintf("/v2/applications/%d/events", appID))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s events for app %d: %w", spec.Name, appID, err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			continue
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%s events request for app %d returned %s", spec.Name, appID, resp.Status())
		}

		events := make([]Event, 0, len(out.Events))
		for _, ev := range out.Events {
			events = append(events, Event{
				TxID:      ev.TxID,
				Round:     ev.Round,
				Timestamp: ev.Timestamp,
				Raw:       ev.Args,
			})
		}
		result[spec.Name] = events
	}

	return result, nil
}

// FetchURI retrieves the document behind a token metadata URI.
func (c *HTTPClient) FetchURI(ctx context.Context, uri string) ([]byte, error) {
	resp, err := resty.NewWithClient(c.algod.GetClient()).R().SetContext(ctx).Get(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata %s: %w", uri, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("metadata %s returned %s", uri, resp.Status())
	}
	return resp.Body(), nil
}

func decodeB64(s string) []byte {
	if s == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return data
}
