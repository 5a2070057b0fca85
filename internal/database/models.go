package database

import (
	"time"

	"github.com/google/uuid"
)

// WalletScore is the persisted reputation record for one Stellar address.
// The feature snapshot columns hold the inputs the scores were derived from,
// so a stored row is self-explaining without refetching the ledgers.
type WalletScore struct {
	ID              string `json:"id" db:"id"`
	StellarAddress  string `json:"stellar_address" db:"stellar_address"`
	EthereumAddress string `json:"ethereum_address,omitempty" db:"ethereum_address"`

	TotalScore    int `json:"total_score" db:"total_score"`
	StellarScore  int `json:"stellar_score" db:"stellar_score"`
	EthereumScore int `json:"ethereum_score" db:"ethereum_score"`
	SocialScore   int `json:"social_score" db:"social_score"`

	AccountAgeDays           int64   `json:"account_age_days" db:"account_age_days"`
	TransactionCount         int64   `json:"transaction_count" db:"transaction_count"`
	StellarBalance           float64 `json:"stellar_balance" db:"stellar_balance"`
	AssetDiversity           int     `json:"asset_diversity" db:"asset_diversity"`
	HasEthereumHistory       bool    `json:"has_ethereum_history" db:"has_ethereum_history"`
	EthereumAgeDays          int64   `json:"ethereum_age_days" db:"ethereum_age_days"`
	EthereumTransactionCount int64   `json:"ethereum_transaction_count" db:"ethereum_transaction_count"`
	EthereumBalance          float64 `json:"ethereum_balance" db:"ethereum_balance"`

	OnChain      bool      `json:"on_chain" db:"on_chain"`
	CalculatedAt time.Time `json:"calculated_at" db:"calculated_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// NewWalletScore creates a fresh record with a generated ID and both
// timestamps set to now. Rewrites of an existing address keep the original
// CalculatedAt; the repository handles that.
func NewWalletScore(stellarAddress, ethereumAddress string) *WalletScore {
	now := time.Now().UTC()
	return &WalletScore{
		ID:              uuid.New().String(),
		StellarAddress:  stellarAddress,
		EthereumAddress: ethereumAddress,
		CalculatedAt:    now,
		UpdatedAt:       now,
	}
}
