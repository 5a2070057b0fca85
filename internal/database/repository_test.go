package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repoTestAddress = "GAIH3ULLFQ4DGSECF2AR555KZ4KNDGEKN4AFI4SU2M7B43MGK3QJZNSR"

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := NewInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db)
}

func sampleScore() *WalletScore {
	score := NewWalletScore(repoTestAddress, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	score.TotalScore = 490
	score.StellarScore = 440
	score.SocialScore = 50
	score.AccountAgeDays = 120
	score.TransactionCount = 80
	score.StellarBalance = 15
	score.AssetDiversity = 2
	return score
}

func TestUpsertInsertsNewRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	score := sampleScore()
	require.NoError(t, repo.Upsert(ctx, score))

	stored, err := repo.FindByStellarAddress(ctx, repoTestAddress)
	require.NoError(t, err)

	assert.Equal(t, score.ID, stored.ID)
	assert.Equal(t, repoTestAddress, stored.StellarAddress)
	assert.Equal(t, "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", stored.EthereumAddress)
	assert.Equal(t, 490, stored.TotalScore)
	assert.Equal(t, int64(120), stored.AccountAgeDays)
	assert.Equal(t, 15.0, stored.StellarBalance)
	assert.False(t, stored.OnChain)
}

func TestUpsertRewritesExistingRecord(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := sampleScore()
	first.CalculatedAt = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Upsert(ctx, first))

	// A recalculation arrives with a fresh ID and timestamps
	second := NewWalletScore(repoTestAddress, "")
	second.TotalScore = 620
	second.StellarScore = 520
	second.SocialScore = 100
	require.NoError(t, repo.Upsert(ctx, second))

	stored, err := repo.FindByStellarAddress(ctx, repoTestAddress)
	require.NoError(t, err)

	// Scores are replaced, identity and first-calculation time survive
	assert.Equal(t, 620, stored.TotalScore)
	assert.Equal(t, "", stored.EthereumAddress)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, first.CalculatedAt.Unix(), stored.CalculatedAt.Unix())
}

func TestUpsertKeepsOneRowPerAddress(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		score := sampleScore()
		score.TotalScore = 100 + i
		require.NoError(t, repo.Upsert(ctx, score))
	}

	var count int
	err := repo.db.QueryRow(`SELECT COUNT(*) FROM wallet_scores WHERE stellar_address = ?`, repoTestAddress).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := repo.FindByStellarAddress(ctx, repoTestAddress)
	require.NoError(t, err)
	assert.Equal(t, 104, stored.TotalScore)
}

func TestFindByStellarAddressNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.FindByStellarAddress(context.Background(), "GBUNKNOWNADDRESSXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByStellarAddressNullEthereum(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	score := NewWalletScore(repoTestAddress, "")
	require.NoError(t, repo.Upsert(ctx, score))

	stored, err := repo.FindByStellarAddress(ctx, repoTestAddress)
	require.NoError(t, err)
	assert.Equal(t, "", stored.EthereumAddress)
}
