package common

const (
	ComponentDriver      = "driver"
	ComponentExtractor   = "extractor"
	ComponentClassifier  = "classifier"
	ComponentChainClient = "chain-client"
	ComponentStore       = "store"
	ComponentMetrics     = "metrics"

	ComponentIndexerNFT     = "indexer-nft"
	ComponentIndexerToken   = "indexer-token"
	ComponentIndexerMarket  = "indexer-market"
	ComponentIndexerPool    = "indexer-pool"
	ComponentIndexerStaking = "indexer-staking"
	ComponentIndexerSCS     = "indexer-scs"
)

var AllComponents = map[string]struct{}{
	ComponentDriver:         {},
	ComponentExtractor:      {},
	ComponentClassifier:     {},
	ComponentChainClient:    {},
	ComponentStore:          {},
	ComponentMetrics:        {},
	ComponentIndexerNFT:     {},
	ComponentIndexerToken:   {},
	ComponentIndexerMarket:  {},
	ComponentIndexerPool:    {},
	ComponentIndexerStaking: {},
	ComponentIndexerSCS:     {},
}
