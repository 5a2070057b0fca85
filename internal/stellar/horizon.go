package stellar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/SenErenn/StellaRep/internal/monitoring"
	"github.com/SenErenn/StellaRep/internal/reputation"
	"github.com/SenErenn/StellaRep/internal/resilience"
)

// transactionPageLimit is the single page Horizon is asked for; accounts
// with more activity than this report a truncated count.
const transactionPageLimit = 200

// HorizonAccount is the subset of a Horizon account record this adapter reads
type HorizonAccount struct {
	AccountID string           `json:"account_id"`
	Balances  []HorizonBalance `json:"balances"`
}

// HorizonBalance is one entry of an account's balances array
type HorizonBalance struct {
	Balance   string `json:"balance"`
	AssetType string `json:"asset_type"`
	AssetCode string `json:"asset_code"`
}

// HorizonTransactionPage is a page of an account's transactions
type HorizonTransactionPage struct {
	Embedded struct {
		Records []HorizonTransaction `json:"records"`
	} `json:"_embedded"`
}

// HorizonTransaction is the subset of a transaction record this adapter reads
type HorizonTransaction struct {
	Hash      string `json:"hash"`
	CreatedAt string `json:"created_at"`
}

// Adapter fetches account activity from a Horizon server
type Adapter struct {
	baseURL string
	pool    *resilience.ConnectionPool
	metrics *monitoring.Metrics
}

// NewAdapter creates a new Horizon adapter with connection pooling
func NewAdapter(baseURL string, metrics *monitoring.Metrics) *Adapter {
	// Registered globally so /health/services can report breaker state
	cb := resilience.GetCircuitBreaker("horizon-api", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})

	pool := resilience.NewConnectionPool(10, 20, 30*time.Second, cb)

	return &Adapter{
		baseURL: baseURL,
		pool:    pool,
		metrics: metrics,
	}
}

// AnalyzeWallet builds the feature record for a Stellar account. Any Horizon
// fault degrades to the empty record; the caller always gets something to
// score.
func (a *Adapter) AnalyzeWallet(ctx context.Context, address string) reputation.StellarFeatures {
	if a.metrics != nil {
		a.metrics.IncrementHorizonCalls()
	}

	account, err := a.fetchAccount(ctx, address)
	if err != nil {
		resilience.RecordError("horizon-api", err)
		return reputation.EmptyStellarFeatures()
	}
	resilience.RecordRequest("horizon-api", true)

	return reputation.StellarFeatures{
		AccountAgeDays:   a.accountAgeDays(ctx, address),
		TransactionCount: a.countTransactions(ctx, address),
		Balance:          nativeBalance(account),
		AssetDiversity:   assetDiversity(account),
	}
}

// fetchAccount fetches the account detail record
func (a *Adapter) fetchAccount(ctx context.Context, address string) (*HorizonAccount, error) {
	url := fmt.Sprintf("%s/accounts/%s", a.baseURL, address)

	resp, err := a.makeRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("horizon API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var account HorizonAccount
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}

	return &account, nil
}

// accountAgeDays derives the account's age from its oldest transaction.
// Unknown age (no transactions, or any fetch error) reads as 0 days.
func (a *Adapter) accountAgeDays(ctx context.Context, address string) int64 {
	page, err := a.fetchTransactions(ctx, address, "asc")
	if err != nil {
		resilience.RecordError("horizon-api", err)
		return 0
	}

	records := page.Embedded.Records
	if len(records) == 0 || records[0].CreatedAt == "" {
		return 0
	}

	firstTxTime, err := time.Parse(time.RFC3339, records[0].CreatedAt)
	if err != nil {
		return 0
	}

	days := int64(time.Since(firstTxTime).Seconds()) / 86400
	if days < 0 {
		days = 0
	}
	return days
}

// countTransactions counts the account's transactions from a single page.
// Accounts past the page limit report the limit itself.
func (a *Adapter) countTransactions(ctx context.Context, address string) int64 {
	page, err := a.fetchTransactions(ctx, address, "desc")
	if err != nil {
		resilience.RecordError("horizon-api", err)
		return 0
	}

	return int64(len(page.Embedded.Records))
}

// fetchTransactions fetches one page of an account's transactions
func (a *Adapter) fetchTransactions(ctx context.Context, address, order string) (*HorizonTransactionPage, error) {
	url := fmt.Sprintf("%s/accounts/%s/transactions?limit=%d&order=%s", a.baseURL, address, transactionPageLimit, order)

	resp, err := a.makeRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("horizon API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var page HorizonTransactionPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}

	return &page, nil
}

// nativeBalance extracts the XLM balance from the account's balances array
func nativeBalance(account *HorizonAccount) float64 {
	for _, balance := range account.Balances {
		if balance.AssetType != "native" {
			continue
		}
		value, err := strconv.ParseFloat(balance.Balance, 64)
		if err != nil {
			return 0
		}
		return value
	}
	return 0
}

// assetDiversity counts the distinct non-native asset codes the account holds
func assetDiversity(account *HorizonAccount) int {
	codes := make(map[string]struct{})
	for _, balance := range account.Balances {
		if balance.AssetType == "native" || balance.AssetCode == "" {
			continue
		}
		codes[balance.AssetCode] = struct{}{}
	}
	return len(codes)
}

// makeRequest makes an HTTP request to Horizon using the connection pool
func (a *Adapter) makeRequest(ctx context.Context, url string) (*http.Response, error) {
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": "StellaRep/1.0",
	}

	var resp *http.Response
	err := resilience.ExecuteWithRetry(ctx, "horizon-api", func() error {
		var reqErr error
		resp, reqErr = a.pool.DoRequest(ctx, "GET", url, headers)
		return reqErr
	})
	return resp, err
}

// GetPoolStats returns connection pool statistics
func (a *Adapter) GetPoolStats() map[string]interface{} {
	return a.pool.GetStats()
}

// Close closes the connection pool
func (a *Adapter) Close() error {
	return a.pool.Close()
}
