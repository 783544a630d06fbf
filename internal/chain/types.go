package chain

// Block is one round's worth of transactions, already decoded from the node
// representation into the subset of fields the extractor needs.
type Block struct {
	Round     uint64
	Timestamp int64
	Txns      []Transaction
}

// Transaction is a single transaction, possibly carrying nested inner
// transactions. Two representations reach us: the streaming node form
// (approval/clear programs present on creation) and the historical indexer
// form (created application id present on creation); both are mapped here.
type Transaction struct {
	ID     string
	Type   string
	Sender string

	// ApplicationID is the called application, zero on creation in the
	// streaming representation.
	ApplicationID uint64

	// CreatedApplicationID is set by the historical representation when the
	// transaction created an application.
	CreatedApplicationID uint64

	// ApprovalProgram and ClearStateProgram are present on creation in the
	// streaming representation.
	ApprovalProgram   []byte
	ClearStateProgram []byte

	AppArgs          [][]byte
	GlobalStateDelta []StateDelta
	InnerTxns        []Transaction
}

// TxTypeAppCall is the transaction type tag for application calls.
const TxTypeAppCall = "appl"

// StateDelta is one global-state key mutation carried by a transaction.
type StateDelta struct {
	Key   string
	Bytes []byte
	Uint  uint64
}

// TealValue is one global-state entry of an application.
type TealValue struct {
	Bytes []byte
	Uint  uint64
}

// AssetHolding is one asset balance held by the application account.
type AssetHolding struct {
	AssetID uint64
	Amount  uint64
}

// AppInfo is the application lookup result.
type AppInfo struct {
	AppID        uint64
	Creator      string
	CreatedRound uint64
	GlobalState  map[string]TealValue
	Assets       []AssetHolding
}

// GlobalUint returns the uint value of a global-state key, zero when absent.
func (a *AppInfo) GlobalUint(key string) uint64 {
	if v, ok := a.GlobalState[key]; ok {
		return v.Uint
	}
	return 0
}

// HasGlobalKey reports whether the application declares the global-state key.
func (a *AppInfo) HasGlobalKey(key string) bool {
	_, ok := a.GlobalState[key]
	return ok
}
