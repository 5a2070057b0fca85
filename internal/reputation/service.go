package reputation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/SenErenn/StellaRep/internal/database"
	apperrors "github.com/SenErenn/StellaRep/internal/errors"
	"github.com/SenErenn/StellaRep/internal/monitoring"
)

// StellarAnalyzer produces the primary feature record for a wallet. It never
// fails: any Horizon fault degrades to the empty record inside the adapter.
type StellarAnalyzer interface {
	AnalyzeWallet(ctx context.Context, address string) StellarFeatures
}

// EthereumAnalyzer produces the secondary feature record. Same contract:
// failures degrade to the empty record inside the adapter.
type EthereumAnalyzer interface {
	AnalyzeWallet(ctx context.Context, address string) EthereumFeatures
}

// Store persists wallet score records keyed by Stellar address.
type Store interface {
	FindByStellarAddress(ctx context.Context, stellarAddress string) (*database.WalletScore, error)
	Upsert(ctx context.Context, score *database.WalletScore) error
}

// ChainPublisher pushes a computed score on chain, best effort.
type ChainPublisher interface {
	IsConfigured() bool
	Publish(ctx context.Context, stellarAddress string, score int) bool
}

// Result is what a calculation or lookup hands back to the HTTP layer.
type Result struct {
	StellarAddress  string
	EthereumAddress string
	Components      ScoreComponents
	Stellar         StellarFeatures
	Ethereum        EthereumFeatures
	CalculatedAt    time.Time
	OnChain         bool
}

// Service orchestrates feature extraction, scoring, persistence and the
// best-effort on-chain publish.
type Service struct {
	stellar   StellarAnalyzer
	ethereum  EthereumAnalyzer
	store     Store
	publisher ChainPublisher
	logger    *monitoring.Logger
}

// NewService wires the orchestrator from its collaborators.
func NewService(stellar StellarAnalyzer, ethereum EthereumAnalyzer, store Store, publisher ChainPublisher, logger *monitoring.Logger) *Service {
	return &Service{
		stellar:   stellar,
		ethereum:  ethereum,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// CalculateAndStore runs the full scoring flow for a wallet: fetch both
// feature records (concurrently, they are independent), score, upsert the
// record, then attempt the on-chain publish. Only storage failures
// propagate; everything upstream degrades to empty features and everything
// downstream of the upsert degrades to OnChain=false.
func (s *Service) CalculateAndStore(ctx context.Context, stellarAddress, ethereumAddress string) (*Result, error) {
	ethereumAddress = strings.TrimSpace(ethereumAddress)

	var (
		stellarFeatures  StellarFeatures
		ethereumFeatures EthereumFeatures
		wg               sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		stellarFeatures = s.stellar.AnalyzeWallet(ctx, stellarAddress)
	}()

	if ethereumAddress != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ethereumFeatures = s.ethereum.AnalyzeWallet(ctx, ethereumAddress)
		}()
	} else {
		ethereumFeatures = EmptyEthereumFeatures()
	}

	wg.Wait()

	components := Calculate(stellarFeatures, ethereumFeatures)

	record := database.NewWalletScore(stellarAddress, ethereumAddress)
	record.TotalScore = components.Total
	record.StellarScore = components.Stellar
	record.EthereumScore = components.Ethereum
	record.SocialScore = components.Social
	record.AccountAgeDays = stellarFeatures.AccountAgeDays
	record.TransactionCount = stellarFeatures.TransactionCount
	record.StellarBalance = stellarFeatures.Balance
	record.AssetDiversity = stellarFeatures.AssetDiversity
	record.HasEthereumHistory = ethereumFeatures.HasHistory
	record.EthereumAgeDays = ethereumFeatures.AccountAgeDays
	record.EthereumTransactionCount = ethereumFeatures.TransactionCount
	record.EthereumBalance = ethereumFeatures.Balance

	if err := s.store.Upsert(ctx, record); err != nil {
		return nil, apperrors.NewPersistenceError("Failed to store wallet score", err)
	}

	// Publish only after the record is durable. The outcome travels in the
	// response, not the row; lookups always report the flag as false.
	onChain := false
	if s.publisher != nil && s.publisher.IsConfigured() {
		onChain = s.publisher.Publish(ctx, stellarAddress, components.Total)
	}

	if s.logger != nil {
		s.logger.ReputationLogger(stellarAddress, components.Total, components.Stellar,
			components.Ethereum, components.Social, onChain)
	}

	return &Result{
		StellarAddress:  stellarAddress,
		EthereumAddress: ethereumAddress,
		Components:      components,
		Stellar:         stellarFeatures,
		Ethereum:        ethereumFeatures,
		CalculatedAt:    record.CalculatedAt,
		OnChain:         onChain,
	}, nil
}

// GetStoredScore returns the persisted score for an address. Reads never
// consult the chain, so OnChain is always false here regardless of what the
// write path achieved.
func (s *Service) GetStoredScore(ctx context.Context, stellarAddress string) (*Result, error) {
	record, err := s.store.FindByStellarAddress(ctx, stellarAddress)
	if err != nil {
		if err == database.ErrNotFound {
			return nil, apperrors.NewNotFoundError("No score found for wallet")
		}
		return nil, apperrors.NewPersistenceError("Failed to load wallet score", err)
	}

	return &Result{
		StellarAddress:  record.StellarAddress,
		EthereumAddress: record.EthereumAddress,
		Components: ScoreComponents{
			Total:    record.TotalScore,
			Stellar:  record.StellarScore,
			Ethereum: record.EthereumScore,
			Social:   record.SocialScore,
		},
		Stellar: StellarFeatures{
			AccountAgeDays:   record.AccountAgeDays,
			TransactionCount: record.TransactionCount,
			Balance:          record.StellarBalance,
			AssetDiversity:   record.AssetDiversity,
		},
		Ethereum: EthereumFeatures{
			HasHistory:       record.HasEthereumHistory,
			AccountAgeDays:   record.EthereumAgeDays,
			Balance:          record.EthereumBalance,
			TransactionCount: record.EthereumTransactionCount,
		},
		CalculatedAt: record.CalculatedAt,
		OnChain:      false,
	}, nil
}
