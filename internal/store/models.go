package store

// Family identifies which contract behavior pattern an application
// implements. Families are mutually exclusive; an application keeps its
// family for life.
type Family string

const (
	FamilyUnknown Family = ""
	FamilyNFT     Family = "nft"
	FamilyToken   Family = "token"
	FamilyMarket  Family = "market"
	FamilyPool    Family = "pool"
	FamilyStaking Family = "staking"
	FamilySCS     Family = "scs"
)

// Collection is one NFT contract.
type Collection struct {
	ContractID    string `meddler:"contract_id"`
	Creator       string `meddler:"creator"`
	CreateRound   uint64 `meddler:"create_round"`
	LastSyncRound uint64 `meddler:"last_sync_round"`
	TotalSupply   string `meddler:"total_supply"`
}

// Token is one NFT instance. Owner follows the most recent transfer;
// MintRound is set exactly once by the zero-address transfer.
type Token struct {
	ContractID  string `meddler:"contract_id"`
	TokenID     string `meddler:"token_id"`
	TokenIndex  uint64 `meddler:"token_index"`
	Owner       string `meddler:"owner"`
	Approved    string `meddler:"approved"`
	MintRound   uint64 `meddler:"mint_round"`
	MetadataURI string `meddler:"metadata_uri"`
	Metadata    string `meddler:"metadata"`
}

// Transfer is one append-only NFT transfer history row, keyed by the
// transaction id so re-applying the same event is a no-op.
type Transfer struct {
	TransactionID string `meddler:"transaction_id"`
	ContractID    string `meddler:"contract_id"`
	TokenID       string `meddler:"token_id"`
	Round         uint64 `meddler:"round"`
	From          string `meddler:"from_addr"`
	To            string `meddler:"to_addr"`
	Timestamp     int64  `meddler:"timestamp"`
}

// TokenContract is one fungible token contract.
type TokenContract struct {
	ContractID    string `meddler:"contract_id"`
	Creator       string `meddler:"creator"`
	CreateRound   uint64 `meddler:"create_round"`
	LastSyncRound uint64 `meddler:"last_sync_round"`
	Name          string `meddler:"name"`
	Symbol        string `meddler:"symbol"`
	Decimals      uint64 `meddler:"decimals"`
	TotalSupply   string `meddler:"total_supply"`
}

// TokenTransfer is one fungible transfer history row.
type TokenTransfer struct {
	TransactionID string `meddler:"transaction_id"`
	ContractID    string `meddler:"contract_id"`
	Amount        string `meddler:"amount"`
	Round         uint64 `meddler:"round"`
	From          string `meddler:"from_addr"`
	To            string `meddler:"to_addr"`
	Timestamp     int64  `meddler:"timestamp"`
}

// TokenApproval is one fungible approval history row.
type TokenApproval struct {
	TransactionID string `meddler:"transaction_id"`
	ContractID    string `meddler:"contract_id"`
	Owner         string `meddler:"owner"`
	Spender       string `meddler:"spender"`
	Amount        string `meddler:"amount"`
	Round         uint64 `meddler:"round"`
	Timestamp     int64  `meddler:"timestamp"`
}

// Market is one marketplace contract.
type Market struct {
	ContractID    string `meddler:"contract_id"`
	Creator       string `meddler:"creator"`
	CreateRound   uint64 `meddler:"create_round"`
	LastSyncRound uint64 `meddler:"last_sync_round"`
	EscrowAddr    string `meddler:"escrow_addr"`
}

// Listing is one marketplace listing. It is mutable only through the two
// terminal pointers: a listing is active iff both are null.
type Listing struct {
	TransactionID string  `meddler:"transaction_id"`
	MpContractID  string  `meddler:"mp_contract_id"`
	MpListingID   string  `meddler:"mp_listing_id"`
	CollectionID  string  `meddler:"collection_id"`
	TokenID       string  `meddler:"token_id"`
	Seller        string  `meddler:"seller"`
	Currency      string  `meddler:"currency"`
	Price         string  `meddler:"price"`
	Round         uint64  `meddler:"round"`
	Timestamp     int64   `meddler:"timestamp"`
	SalesID       *string `meddler:"sales_id"`
	DeleteID      *string `meddler:"delete_id"`
}

// Active reports whether neither terminal pointer is set.
func (l *Listing) Active() bool {
	return l.SalesID == nil && l.DeleteID == nil
}

// Sale is one marketplace sale history row.
type Sale struct {
	TransactionID string `meddler:"transaction_id"`
	MpContractID  string `meddler:"mp_contract_id"`
	MpListingID   string `meddler:"mp_listing_id"`
	ListingTxID   string `meddler:"listing_txid"`
	CollectionID  string `meddler:"collection_id"`
	TokenID       string `meddler:"token_id"`
	Seller        string `meddler:"seller"`
	Buyer         string `meddler:"buyer"`
	Currency      string `meddler:"currency"`
	Price         string `meddler:"price"`
	Round         uint64 `meddler:"round"`
	Timestamp     int64  `meddler:"timestamp"`
}

// ListingDelete is one marketplace delete history row.
type ListingDelete struct {
	TransactionID string `meddler:"transaction_id"`
	MpContractID  string `meddler:"mp_contract_id"`
	MpListingID   string `meddler:"mp_listing_id"`
	ListingTxID   string `meddler:"listing_txid"`
	Owner         string `meddler:"owner"`
	Round         uint64 `meddler:"round"`
	Timestamp     int64  `meddler:"timestamp"`
}

// Pool is one liquidity pool contract. TVL is twice the lesser side's
// human-scaled balance, an intentional approximation kept for downstream
// consumers.
type Pool struct {
	ContractID    string  `meddler:"contract_id"`
	Creator       string  `meddler:"creator"`
	CreateRound   uint64  `meddler:"create_round"`
	LastSyncRound uint64  `meddler:"last_sync_round"`
	Provider      string  `meddler:"provider"`
	TokA          string  `meddler:"tok_a"`
	TokB          string  `meddler:"tok_b"`
	DecimalsA     uint64  `meddler:"decimals_a"`
	DecimalsB     uint64  `meddler:"decimals_b"`
	BalanceA      string  `meddler:"balance_a"`
	BalanceB      string  `meddler:"balance_b"`
	TVL           float64 `meddler:"tvl"`
}

// Price is the current derived price of a pool's non-numeraire side. A nil
// price means no price could be derived (an empty side).
type Price struct {
	ContractID string   `meddler:"contract_id"`
	Price      *float64 `meddler:"price"`
}

// PricePoint is one price history row keyed by (contract, round).
type PricePoint struct {
	ContractID string   `meddler:"contract_id"`
	Round      uint64   `meddler:"round"`
	Price      *float64 `meddler:"price"`
	BalanceA   string   `meddler:"balance_a"`
	BalanceB   string   `meddler:"balance_b"`
}

// StakePool is one staking pool contract.
type StakePool struct {
	ContractID       string `meddler:"contract_id"`
	Creator          string `meddler:"creator"`
	CreateRound      uint64 `meddler:"create_round"`
	LastSyncRound    uint64 `meddler:"last_sync_round"`
	StakedTokenID    string `meddler:"staked_token_id"`
	PoolStakedAmount string `meddler:"pool_staked_amount"`
	StartRound       uint64 `meddler:"start_round"`
	EndRound         uint64 `meddler:"end_round"`
}

// StakeReward is one reward token of a staking pool.
type StakeReward struct {
	ContractID      string `meddler:"contract_id"`
	RewardTokenID   string `meddler:"reward_token_id"`
	RewardAmount    string `meddler:"reward_amount"`
	RewardRemaining string `meddler:"reward_remaining"`
}

// StakeAccount is one account's position in a staking pool. Amounts are the
// chain's absolute post-state values, not deltas.
type StakeAccount struct {
	ContractID  string `meddler:"contract_id"`
	Account     string `meddler:"account"`
	StakeAmount string `meddler:"stake_amount"`
}

// StakeAccountReward is one account's cumulative received amount per reward
// token.
type StakeAccountReward struct {
	ContractID    string `meddler:"contract_id"`
	Account       string `meddler:"account"`
	RewardTokenID string `meddler:"reward_token_id"`
	TotalReceived string `meddler:"total_received"`
}

// SCSAccount is one generic staking-contract-standard record. The global_*
// fields fill in incrementally as method-call decodes produce partial
// patches; Deleted is a terminal marker.
type SCSAccount struct {
	ContractID    string `meddler:"contract_id"`
	Creator       string `meddler:"creator"`
	CreateRound   uint64 `meddler:"create_round"`
	LastSyncRound uint64 `meddler:"last_sync_round"`

	GlobalFunder              *string `meddler:"global_funder"`
	GlobalOwner               *string `meddler:"global_owner"`
	GlobalDelegate            *string `meddler:"global_delegate"`
	GlobalMessengerID         *string `meddler:"global_messenger_id"`
	GlobalParentID            *string `meddler:"global_parent_id"`
	GlobalPeriod              *string `meddler:"global_period"`
	GlobalTotal               *string `meddler:"global_total"`
	GlobalFunding             *string `meddler:"global_funding"`
	GlobalInitial             *string `meddler:"global_initial"`
	GlobalDeadline            *string `meddler:"global_deadline"`
	GlobalPeriodSeconds       *string `meddler:"global_period_seconds"`
	GlobalLockupDelay         *string `meddler:"global_lockup_delay"`
	GlobalVestingDelay        *string `meddler:"global_vesting_delay"`
	GlobalPeriodLimit         *string `meddler:"global_period_limit"`
	GlobalDistributionCount   *string `meddler:"global_distribution_count"`
	GlobalDistributionSeconds *string `meddler:"global_distribution_seconds"`

	Deleted int `meddler:"deleted"`
}

// SCSPatch is a sparse update to an SCSAccount: only non-nil fields are
// written. Patches are produced by decoding recognized method-call argument
// layouts.
type SCSPatch struct {
	GlobalFunder              *string
	GlobalOwner               *string
	GlobalDelegate            *string
	GlobalMessengerID         *string
	GlobalParentID            *string
	GlobalPeriod              *string
	GlobalTotal               *string
	GlobalFunding             *string
	GlobalInitial             *string
	GlobalDeadline            *string
	GlobalPeriodSeconds       *string
	GlobalLockupDelay         *string
	GlobalVestingDelay        *string
	GlobalPeriodLimit         *string
	GlobalDistributionCount   *string
	GlobalDistributionSeconds *string
	Deleted                   *int
}
