package reputation

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SenErenn/StellaRep/internal/database"
	apperrors "github.com/SenErenn/StellaRep/internal/errors"
)

const (
	testStellarAddress  = "GAIH3ULLFQ4DGSECF2AR555KZ4KNDGEKN4AFI4SU2M7B43MGK3QJZNSR"
	testEthereumAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
)

type fakeStellarAnalyzer struct {
	features StellarFeatures
	calls    int
}

func (f *fakeStellarAnalyzer) AnalyzeWallet(ctx context.Context, address string) StellarFeatures {
	f.calls++
	return f.features
}

type fakeEthereumAnalyzer struct {
	features EthereumFeatures
	calls    int
}

func (f *fakeEthereumAnalyzer) AnalyzeWallet(ctx context.Context, address string) EthereumFeatures {
	f.calls++
	return f.features
}

type fakeStore struct {
	records    map[string]*database.WalletScore
	upsertErr  error
	findErr    error
	lastUpsert *database.WalletScore
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*database.WalletScore)}
}

func (f *fakeStore) FindByStellarAddress(ctx context.Context, stellarAddress string) (*database.WalletScore, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	record, ok := f.records[stellarAddress]
	if !ok {
		return nil, database.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) Upsert(ctx context.Context, score *database.WalletScore) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.lastUpsert = score
	f.records[score.StellarAddress] = score
	return nil
}

type fakePublisher struct {
	configured bool
	result     bool
	calls      int
}

func (f *fakePublisher) IsConfigured() bool {
	return f.configured
}

func (f *fakePublisher) Publish(ctx context.Context, stellarAddress string, score int) bool {
	f.calls++
	return f.result
}

func TestCalculateAndStore(t *testing.T) {
	stellarFeatures := StellarFeatures{
		AccountAgeDays:   100,
		TransactionCount: 60,
		Balance:          20,
		AssetDiversity:   1,
	}
	ethereumFeatures := EthereumFeatures{
		HasHistory:       true,
		AccountAgeDays:   400,
		Balance:          5,
		TransactionCount: 30,
		FirstTxTimestamp: 1600000000,
	}

	stellarFake := &fakeStellarAnalyzer{features: stellarFeatures}
	ethereumFake := &fakeEthereumAnalyzer{features: ethereumFeatures}
	store := newFakeStore()
	publisher := &fakePublisher{configured: true, result: true}

	service := NewService(stellarFake, ethereumFake, store, publisher, nil)

	result, err := service.CalculateAndStore(context.Background(), testStellarAddress, testEthereumAddress)
	require.NoError(t, err)

	expected := Calculate(stellarFeatures, ethereumFeatures)
	assert.Equal(t, expected, result.Components)
	assert.Equal(t, testStellarAddress, result.StellarAddress)
	assert.Equal(t, testEthereumAddress, result.EthereumAddress)
	assert.True(t, result.OnChain)
	assert.Equal(t, 1, publisher.calls)

	// The stored record carries the features and components verbatim
	require.NotNil(t, store.lastUpsert)
	assert.Equal(t, expected.Total, store.lastUpsert.TotalScore)
	assert.Equal(t, stellarFeatures.AccountAgeDays, store.lastUpsert.AccountAgeDays)
	assert.Equal(t, ethereumFeatures.Balance, store.lastUpsert.EthereumBalance)
	assert.True(t, store.lastUpsert.HasEthereumHistory)
}

func TestCalculateAndStoreSkipsEthereumFetchForBlankAddress(t *testing.T) {
	stellarFake := &fakeStellarAnalyzer{features: StellarFeatures{AccountAgeDays: 10}}
	ethereumFake := &fakeEthereumAnalyzer{features: EthereumFeatures{HasHistory: true, AccountAgeDays: 500}}
	store := newFakeStore()

	service := NewService(stellarFake, ethereumFake, store, &fakePublisher{}, nil)

	result, err := service.CalculateAndStore(context.Background(), testStellarAddress, "   ")
	require.NoError(t, err)

	assert.Equal(t, 0, ethereumFake.calls)
	assert.Equal(t, 0, result.Components.Ethereum)
	assert.Equal(t, "", result.EthereumAddress)
	assert.False(t, result.Ethereum.HasHistory)
}

func TestCalculateAndStorePublishFailureDoesNotFailRequest(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{configured: true, result: false}

	service := NewService(&fakeStellarAnalyzer{}, &fakeEthereumAnalyzer{}, store, publisher, nil)

	result, err := service.CalculateAndStore(context.Background(), testStellarAddress, "")
	require.NoError(t, err)

	assert.False(t, result.OnChain)
	assert.NotNil(t, store.lastUpsert, "record must be stored even when the publish fails")
}

func TestCalculateAndStoreUnconfiguredPublisherIsSkipped(t *testing.T) {
	publisher := &fakePublisher{configured: false}

	service := NewService(&fakeStellarAnalyzer{}, &fakeEthereumAnalyzer{}, newFakeStore(), publisher, nil)

	result, err := service.CalculateAndStore(context.Background(), testStellarAddress, "")
	require.NoError(t, err)

	assert.False(t, result.OnChain)
	assert.Equal(t, 0, publisher.calls)
}

func TestCalculateAndStorePersistenceFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("disk full")
	publisher := &fakePublisher{configured: true, result: true}

	service := NewService(&fakeStellarAnalyzer{}, &fakeEthereumAnalyzer{}, store, publisher, nil)

	result, err := service.CalculateAndStore(context.Background(), testStellarAddress, "")
	require.Error(t, err)
	assert.Nil(t, result)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CategoryPersistence, appErr.Category)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)

	// Storage failed, so nothing may reach the chain
	assert.Equal(t, 0, publisher.calls)
}

func TestGetStoredScore(t *testing.T) {
	store := newFakeStore()
	record := database.NewWalletScore(testStellarAddress, testEthereumAddress)
	record.TotalScore = 510
	record.StellarScore = 460
	record.SocialScore = 50
	record.AccountAgeDays = 120
	record.TransactionCount = 80
	record.StellarBalance = 15
	record.CalculatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.records[testStellarAddress] = record

	service := NewService(&fakeStellarAnalyzer{}, &fakeEthereumAnalyzer{}, store, &fakePublisher{}, nil)

	result, err := service.GetStoredScore(context.Background(), testStellarAddress)
	require.NoError(t, err)

	assert.Equal(t, 510, result.Components.Total)
	assert.Equal(t, 460, result.Components.Stellar)
	assert.Equal(t, 50, result.Components.Social)
	assert.Equal(t, int64(120), result.Stellar.AccountAgeDays)
	assert.Equal(t, record.CalculatedAt, result.CalculatedAt)

	// Lookups never consult the chain
	assert.False(t, result.OnChain)
}

func TestGetStoredScoreNotFound(t *testing.T) {
	service := NewService(&fakeStellarAnalyzer{}, &fakeEthereumAnalyzer{}, newFakeStore(), &fakePublisher{}, nil)

	result, err := service.GetStoredScore(context.Background(), testStellarAddress)
	require.Error(t, err)
	assert.Nil(t, result)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CategoryNotFound, appErr.Category)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestGetStoredScoreStorageFailure(t *testing.T) {
	store := newFakeStore()
	store.findErr = errors.New("database is locked")

	service := NewService(&fakeStellarAnalyzer{}, &fakeEthereumAnalyzer{}, store, &fakePublisher{}, nil)

	_, err := service.GetStoredScore(context.Background(), testStellarAddress)
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CategoryPersistence, appErr.Category)
}
