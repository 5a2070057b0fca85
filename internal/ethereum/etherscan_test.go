package ethereum

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/SenErenn/StellaRep/internal/reputation"
)

const testAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func newEtherscanStub(t *testing.T, firstTxTimestamp int64) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()

		switch {
		case q.Get("action") == "balance":
			// 2.5 ETH in wei
			fmt.Fprint(w, `{"status": "1", "message": "OK", "result": "2500000000000000000"}`)
		case q.Get("action") == "eth_getTransactionCount":
			// Proxy envelope: no status field
			fmt.Fprint(w, `{"jsonrpc": "2.0", "id": 1, "result": "0x2a"}`)
		case q.Get("action") == "txlist":
			fmt.Fprintf(w, `{"status": "1", "message": "OK", "result": [{"timeStamp": "%d", "hash": "0xabc"}]}`, firstTxTimestamp)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAnalyzeWallet(t *testing.T) {
	firstTx := time.Now().Add(-400 * 24 * time.Hour).Unix()
	server := newEtherscanStub(t, firstTx)
	defer server.Close()

	adapter := NewAdapter(server.URL, "test-key", nil)
	defer adapter.Close()

	features := adapter.AnalyzeWallet(context.Background(), testAddress)

	assert.True(t, features.HasHistory)
	assert.Equal(t, int64(400), features.AccountAgeDays)
	assert.Equal(t, 2.0, features.Balance, "wei truncates to whole ETH")
	assert.Equal(t, firstTx, features.FirstTxTimestamp)

	// The proxy envelope carries no status field, so the count reads 0
	assert.Equal(t, int64(0), features.TransactionCount)
}

func TestAnalyzeWalletBlankAddress(t *testing.T) {
	adapter := NewAdapter("http://unused.invalid", "", nil)
	defer adapter.Close()

	assert.Equal(t, reputation.EmptyEthereumFeatures(), adapter.AnalyzeWallet(context.Background(), ""))
	assert.Equal(t, reputation.EmptyEthereumFeatures(), adapter.AnalyzeWallet(context.Background(), "   "))
}

func TestAnalyzeWalletMalformedAddress(t *testing.T) {
	adapter := NewAdapter("http://unused.invalid", "", nil)
	defer adapter.Close()

	tests := []string{
		"742d35Cc6634C0532925a3b844Bc454e4438f44e", // missing 0x prefix
		"0x742d35",
		"not-hex",
		testAddress + "00",
	}

	for _, address := range tests {
		assert.Equal(t, reputation.EmptyEthereumFeatures(),
			adapter.AnalyzeWallet(context.Background(), address), "address %q", address)
	}
}

func TestAnalyzeWalletUpstreamFailureDegradesToEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, "test-key", nil)
	defer adapter.Close()

	assert.Equal(t, reputation.EmptyEthereumFeatures(), adapter.AnalyzeWallet(context.Background(), testAddress))
}

func TestAnalyzeWalletNoTransactionHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("action") {
		case "balance":
			fmt.Fprint(w, `{"status": "1", "result": "0"}`)
		case "eth_getTransactionCount":
			fmt.Fprint(w, `{"jsonrpc": "2.0", "id": 1, "result": "0x0"}`)
		case "txlist":
			// Etherscan reports empty accounts with status 0
			fmt.Fprint(w, `{"status": "0", "message": "No transactions found", "result": []}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, "", nil)
	defer adapter.Close()

	features := adapter.AnalyzeWallet(context.Background(), testAddress)

	assert.False(t, features.HasHistory)
	assert.Equal(t, int64(0), features.AccountAgeDays)
	assert.Equal(t, int64(0), features.FirstTxTimestamp)
}

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected float64
	}{
		{
			name:     "whole ETH",
			body:     `{"status": "1", "result": "3000000000000000000"}`,
			expected: 3,
		},
		{
			name:     "fractional wei truncates down",
			body:     `{"status": "1", "result": "1999999999999999999"}`,
			expected: 1,
		},
		{
			name:     "zero balance",
			body:     `{"status": "1", "result": "0"}`,
			expected: 0,
		},
		{
			name:     "error status",
			body:     `{"status": "0", "message": "NOTOK", "result": "Invalid API Key"}`,
			expected: 0,
		},
		{
			name:     "non-numeric result",
			body:     `{"status": "1", "result": "garbage"}`,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseBalance(tt.body))
		})
	}
}

func TestParseTransactionCount(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int64
	}{
		{
			name:     "hex count with status",
			body:     `{"status": "1", "result": "0x2a"}`,
			expected: 42,
		},
		{
			name:     "decimal count with status",
			body:     `{"status": "1", "result": "17"}`,
			expected: 17,
		},
		{
			name:     "proxy envelope without status reads zero",
			body:     `{"jsonrpc": "2.0", "id": 1, "result": "0x2a"}`,
			expected: 0,
		},
		{
			name:     "invalid hex",
			body:     `{"status": "1", "result": "0xzz"}`,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseTransactionCount(tt.body))
		})
	}
}

func TestParseFirstTransaction(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected int64
	}{
		{
			name:     "oldest transaction timestamp",
			body:     `{"status": "1", "result": [{"timeStamp": "1600000000"}, {"timeStamp": "1700000000"}]}`,
			expected: 1600000000,
		},
		{
			name:     "empty list",
			body:     `{"status": "1", "result": []}`,
			expected: 0,
		},
		{
			name:     "error status with string result",
			body:     `{"status": "0", "result": "Max rate limit reached"}`,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseFirstTransaction(tt.body))
		})
	}
}
