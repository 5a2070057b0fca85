package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration, parsed from the environment.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	HorizonURL string `env:"HORIZON_URL" envDefault:"https://horizon-testnet.stellar.org"`

	EtherscanBaseURL string `env:"ETHERSCAN_BASE_URL" envDefault:"https://api.etherscan.io/api"`
	EtherscanAPIKey  string `env:"ETHERSCAN_API_KEY"`

	SorobanRPCURL            string `env:"SOROBAN_RPC_URL" envDefault:"https://soroban-testnet.stellar.org"`
	SorobanContractID        string `env:"SOROBAN_CONTRACT_ID"`
	SorobanNetworkPassphrase string `env:"SOROBAN_NETWORK_PASSPHRASE" envDefault:"Test SDF Network ; September 2015"`
	SorobanAdminSecret       string `env:"SOROBAN_ADMIN_SECRET"`

	RedisURL string `env:"REDIS_URL"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
