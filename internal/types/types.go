package types

import "time"

// CalculateRequest is the body of POST /reputation/calculate. The Ethereum
// address is optional; blank means Stellar-only scoring.
type CalculateRequest struct {
	StellarAddress  string `json:"stellarAddress" binding:"required"`
	EthereumAddress string `json:"ethereumAddress"`
}

// ScoreBreakdown carries the feature inputs the scores were derived from
type ScoreBreakdown struct {
	AccountAgeDays           int64   `json:"accountAgeDays"`
	TransactionCount         int64   `json:"transactionCount"`
	StellarBalance           float64 `json:"stellarBalance"`
	HasEthereumHistory       bool    `json:"hasEthereumHistory"`
	EthereumAgeDays          int64   `json:"ethereumAgeDays"`
	EthereumTransactionCount int64   `json:"ethereumTransactionCount"`
	EthereumBalance          float64 `json:"ethereumBalance"`
}

// ScoreResponse is the API shape for both the calculate and lookup endpoints
type ScoreResponse struct {
	StellarAddress  string         `json:"stellarAddress"`
	EthereumAddress string         `json:"ethereumAddress,omitempty"`
	TotalScore      int            `json:"totalScore"`
	StellarScore    int            `json:"stellarScore"`
	EthereumScore   int            `json:"ethereumScore"`
	SocialScore     int            `json:"socialScore"`
	Breakdown       ScoreBreakdown `json:"breakdown"`
	CalculatedAt    time.Time      `json:"calculatedAt"`
	OnChain         bool           `json:"onChain"`
}
