package ethereum

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/SenErenn/StellaRep/internal/monitoring"
	"github.com/SenErenn/StellaRep/internal/reputation"
	"github.com/SenErenn/StellaRep/internal/resilience"
)

// weiPerEth is the wei-to-ETH divisor. Balances are truncated to whole ETH
// on purpose; the scoring weights assume it.
var weiPerEth = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Adapter fetches account activity from the Etherscan API.
// Etherscan's `result` field is polymorphic (decimal string, hex string, or
// an array of objects depending on the action), so responses are read with
// gjson instead of typed structs.
type Adapter struct {
	baseURL string
	apiKey  string
	pool    *resilience.ConnectionPool
	metrics *monitoring.Metrics
}

// NewAdapter creates a new Etherscan adapter with connection pooling
func NewAdapter(baseURL, apiKey string, metrics *monitoring.Metrics) *Adapter {
	cb := resilience.GetCircuitBreaker("etherscan-api", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})

	pool := resilience.NewConnectionPool(10, 20, 30*time.Second, cb)

	return &Adapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		pool:    pool,
		metrics: metrics,
	}
}

// AnalyzeWallet builds the feature record for an Ethereum account. A blank
// or malformed address and an unreachable Etherscan both degrade to the
// empty record; the two cases are indistinguishable downstream.
func (a *Adapter) AnalyzeWallet(ctx context.Context, address string) reputation.EthereumFeatures {
	address = strings.TrimSpace(address)
	if address == "" {
		return reputation.EmptyEthereumFeatures()
	}

	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return reputation.EmptyEthereumFeatures()
	}

	if a.metrics != nil {
		a.metrics.IncrementEtherscanCalls()
	}

	balanceBody, err := a.fetch(ctx, fmt.Sprintf(
		"%s?module=account&action=balance&address=%s&tag=latest&apikey=%s",
		a.baseURL, address, a.apiKey))
	if err != nil {
		resilience.RecordError("etherscan-api", err)
		return reputation.EmptyEthereumFeatures()
	}

	txCountBody, err := a.fetch(ctx, fmt.Sprintf(
		"%s?module=proxy&action=eth_getTransactionCount&address=%s&tag=latest&apikey=%s",
		a.baseURL, address, a.apiKey))
	if err != nil {
		resilience.RecordError("etherscan-api", err)
		return reputation.EmptyEthereumFeatures()
	}

	firstTxBody, err := a.fetch(ctx, fmt.Sprintf(
		"%s?module=account&action=txlist&address=%s&startblock=0&endblock=99999999&page=1&offset=1&sort=asc&apikey=%s",
		a.baseURL, address, a.apiKey))
	if err != nil {
		resilience.RecordError("etherscan-api", err)
		return reputation.EmptyEthereumFeatures()
	}
	resilience.RecordRequest("etherscan-api", true)

	firstTxTimestamp := parseFirstTransaction(firstTxBody)

	return reputation.EthereumFeatures{
		HasHistory:       firstTxTimestamp > 0,
		AccountAgeDays:   accountAgeDays(firstTxTimestamp),
		Balance:          parseBalance(balanceBody),
		TransactionCount: parseTransactionCount(txCountBody),
		FirstTxTimestamp: firstTxTimestamp,
	}
}

// fetch performs one Etherscan GET and returns the raw body
func (a *Adapter) fetch(ctx context.Context, url string) (string, error) {
	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": "StellaRep/1.0",
	}

	var resp *http.Response
	err := resilience.ExecuteWithRetry(ctx, "etherscan-api", func() error {
		var reqErr error
		resp, reqErr = a.pool.DoRequest(ctx, "GET", url, headers)
		return reqErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch from etherscan: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read etherscan response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("etherscan API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}

// parseBalance reads a balance response and converts wei to whole ETH
func parseBalance(body string) float64 {
	if gjson.Get(body, "status").String() != "1" {
		return 0
	}

	wei, ok := new(big.Int).SetString(gjson.Get(body, "result").String(), 10)
	if !ok {
		return 0
	}

	eth, _ := new(big.Float).SetInt(new(big.Int).Div(wei, weiPerEth)).Float64()
	return eth
}

// parseTransactionCount reads an eth_getTransactionCount proxy response.
// The proxy envelope carries no status field, so this requires one the same
// way the balance parser does and reads 0 when it is absent.
func parseTransactionCount(body string) int64 {
	if gjson.Get(body, "status").String() != "1" {
		return 0
	}

	result := gjson.Get(body, "result").String()
	if strings.HasPrefix(result, "0x") {
		count, err := strconv.ParseInt(result[2:], 16, 64)
		if err != nil {
			return 0
		}
		return count
	}

	count, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0
	}
	return count
}

// parseFirstTransaction reads the oldest transaction's timestamp from a
// txlist response, 0 when the account has none
func parseFirstTransaction(body string) int64 {
	if gjson.Get(body, "status").String() != "1" {
		return 0
	}

	result := gjson.Get(body, "result")
	if !result.IsArray() {
		return 0
	}

	records := result.Array()
	if len(records) == 0 {
		return 0
	}

	return records[0].Get("timeStamp").Int()
}

// accountAgeDays converts the first-transaction timestamp to whole days
func accountAgeDays(firstTxTimestamp int64) int64 {
	if firstTxTimestamp == 0 {
		return 0
	}
	return (time.Now().Unix() - firstTxTimestamp) / 86400
}

// GetPoolStats returns connection pool statistics
func (a *Adapter) GetPoolStats() map[string]interface{} {
	return a.pool.GetStats()
}

// Close closes the connection pool
func (a *Adapter) Close() error {
	return a.pool.Close()
}
