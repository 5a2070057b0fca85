package soroban

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/SenErenn/StellaRep/internal/monitoring"
	"github.com/SenErenn/StellaRep/internal/resilience"
)

// Publisher pushes computed scores to a Soroban reputation contract over
// JSON-RPC. Every failure is absorbed here: the write path treats the chain
// as advisory and must never fail because of it.
type Publisher struct {
	rpcURL            string
	contractID        string
	networkPassphrase string
	adminSecret       string
	pool              *resilience.ConnectionPool
	metrics           *monitoring.Metrics
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int64     `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Transaction string `json:"transaction"`
}

type invokeTransaction struct {
	SourceAccount     string            `json:"sourceAccount"`
	Fee               string            `json:"fee"`
	Sequence          string            `json:"sequence"`
	Operations        []invokeOperation `json:"operations"`
	NetworkPassphrase string            `json:"networkPassphrase"`
}

type invokeOperation struct {
	Type     string         `json:"type"`
	Function invokeFunction `json:"function"`
}

type invokeFunction struct {
	ContractID   string        `json:"contractId"`
	FunctionName string        `json:"functionName"`
	Args         []interface{} `json:"args"`
}

// NewPublisher creates a new Soroban publisher with connection pooling
func NewPublisher(rpcURL, contractID, networkPassphrase, adminSecret string, metrics *monitoring.Metrics) *Publisher {
	cb := resilience.GetCircuitBreaker("soroban-rpc", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
	})

	pool := resilience.NewConnectionPool(5, 10, 30*time.Second, cb)

	return &Publisher{
		rpcURL:            rpcURL,
		contractID:        contractID,
		networkPassphrase: networkPassphrase,
		adminSecret:       adminSecret,
		pool:              pool,
		metrics:           metrics,
	}
}

// IsConfigured reports whether on-chain publishing is enabled. Both the
// contract id and the admin secret are required.
func (p *Publisher) IsConfigured() bool {
	return p.contractID != "" && p.adminSecret != ""
}

// Publish simulates a set_reputation invocation for the address. Returns
// whether the chain acknowledged the call; false covers unconfigured,
// unreachable, and rejected alike.
func (p *Publisher) Publish(ctx context.Context, stellarAddress string, score int) bool {
	if !p.IsConfigured() {
		slog.Info("Soroban contract not configured, storing off-chain",
			"stellar_address", stellarAddress, "score", score)
		return false
	}

	tx := invokeTransaction{
		SourceAccount: p.adminSecret,
		Fee:           "100",
		Sequence:      "0",
		Operations: []invokeOperation{{
			Type: "invokeHostFunction",
			Function: invokeFunction{
				ContractID:   p.contractID,
				FunctionName: "set_reputation",
				Args:         []interface{}{stellarAddress, score},
			},
		}},
		NetworkPassphrase: p.networkPassphrase,
	}

	body, err := p.simulate(ctx, tx)
	if err != nil {
		resilience.RecordError("soroban-rpc", err)
		slog.Warn("Soroban publish failed", "stellar_address", stellarAddress, "error", err)
		return false
	}
	resilience.RecordRequest("soroban-rpc", true)

	result := gjson.Get(body, "result")
	if !result.Exists() || result.Type == gjson.Null {
		slog.Warn("Soroban simulation returned no result", "stellar_address", stellarAddress)
		return false
	}

	if p.metrics != nil {
		p.metrics.IncrementChainPublish()
	}
	slog.Info("Reputation stored on Soroban", "stellar_address", stellarAddress, "score", score)
	return true
}

// GetReputation reads the stored score back from the contract. Best effort:
// ok is false when unconfigured, unreachable, or the return value does not
// parse as an integer.
func (p *Publisher) GetReputation(ctx context.Context, stellarAddress string) (int, bool) {
	if p.contractID == "" {
		return 0, false
	}

	tx := invokeTransaction{
		SourceAccount: stellarAddress,
		Fee:           "100",
		Sequence:      "0",
		Operations: []invokeOperation{{
			Type: "invokeHostFunction",
			Function: invokeFunction{
				ContractID:   p.contractID,
				FunctionName: "get_reputation",
				Args:         []interface{}{stellarAddress},
			},
		}},
		NetworkPassphrase: p.networkPassphrase,
	}

	body, err := p.simulate(ctx, tx)
	if err != nil {
		resilience.RecordError("soroban-rpc", err)
		return 0, false
	}
	resilience.RecordRequest("soroban-rpc", true)

	returnValue := gjson.Get(body, "result.returnValue").String()
	if returnValue == "" {
		return 0, false
	}

	score, err := strconv.Atoi(returnValue)
	if err != nil {
		slog.Warn("Could not parse reputation value from Soroban", "value", returnValue)
		return 0, false
	}

	return score, true
}

// simulate posts a simulateTransaction request and returns the raw response
func (p *Publisher) simulate(ctx context.Context, tx invokeTransaction) (string, error) {
	txJSON, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}

	request := rpcRequest{
		JSONRPC: "2.0",
		ID:      time.Now().UnixMilli(),
		Method:  "simulateTransaction",
		Params:  rpcParams{Transaction: string(txJSON)},
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	if p.metrics != nil {
		p.metrics.IncrementSorobanCalls()
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "StellaRep/1.0",
	}

	resp, err := p.pool.DoRequestWithBody(ctx, "POST", p.rpcURL, headers, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", resilience.NewHTTPError(resp.StatusCode, resp.Status)
	}

	return string(body), nil
}

// GetPoolStats returns connection pool statistics
func (p *Publisher) GetPoolStats() map[string]interface{} {
	return p.pool.GetStats()
}

// Close closes the connection pool
func (p *Publisher) Close() error {
	return p.pool.Close()
}
