package reputation

// StellarFeatures is the normalized view of a Stellar account's on-chain
// activity. Produced once per scoring request and never mutated afterwards.
type StellarFeatures struct {
	AccountAgeDays   int64   `json:"accountAgeDays"`
	TransactionCount int64   `json:"transactionCount"`
	Balance          float64 `json:"balance"`
	AssetDiversity   int     `json:"assetDiversity"`
}

// EmptyStellarFeatures is the fallback record used when the Horizon lookup
// fails for any reason. Scoring always proceeds with some record.
func EmptyStellarFeatures() StellarFeatures {
	return StellarFeatures{}
}

// EthereumFeatures is the normalized view of an Ethereum account's activity.
// FirstTxTimestamp of 0 means unknown or absent.
type EthereumFeatures struct {
	HasHistory       bool    `json:"hasHistory"`
	AccountAgeDays   int64   `json:"accountAgeDays"`
	Balance          float64 `json:"balance"`
	TransactionCount int64   `json:"transactionCount"`
	FirstTxTimestamp int64   `json:"firstTxTimestamp"`
}

// EmptyEthereumFeatures is the canonical record for "no Ethereum address
// supplied" and "Etherscan unreachable" alike. Consumers cannot and should
// not distinguish the two cases.
func EmptyEthereumFeatures() EthereumFeatures {
	return EthereumFeatures{}
}
