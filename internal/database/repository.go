package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no record exists for the requested address.
var ErrNotFound = errors.New("wallet score not found")

// Repository handles wallet score persistence
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// FindByStellarAddress returns the stored record for the address, or
// ErrNotFound when none exists.
func (r *Repository) FindByStellarAddress(ctx context.Context, stellarAddress string) (*WalletScore, error) {
	stmt, err := r.db.GetPreparedStatement("get_wallet_score")
	if err != nil {
		return nil, err
	}

	var score WalletScore
	var ethereumAddress sql.NullString

	err = stmt.QueryRowContext(ctx, stellarAddress).Scan(
		&score.ID, &score.StellarAddress, &ethereumAddress,
		&score.TotalScore, &score.StellarScore, &score.EthereumScore, &score.SocialScore,
		&score.AccountAgeDays, &score.TransactionCount, &score.StellarBalance, &score.AssetDiversity,
		&score.HasEthereumHistory, &score.EthereumAgeDays, &score.EthereumTransactionCount, &score.EthereumBalance,
		&score.OnChain, &score.CalculatedAt, &score.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet score: %w", err)
	}

	score.EthereumAddress = ethereumAddress.String
	return &score, nil
}

// Upsert writes the record for its Stellar address, replacing any existing
// row. The read-modify-write runs inside a transaction; concurrent writers
// for the same address serialize on it and the last commit wins. A rewrite
// keeps the original row's ID and CalculatedAt and refreshes UpdatedAt.
func (r *Repository) Upsert(ctx context.Context, score *WalletScore) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	var existingCalculatedAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT id, calculated_at FROM wallet_scores WHERE stellar_address = ?`,
		score.StellarAddress,
	).Scan(&existingID, &existingCalculatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to query existing wallet score: %w", err)
	}
	if err == nil {
		score.ID = existingID
		if existingCalculatedAt.Valid {
			score.CalculatedAt = existingCalculatedAt.Time
		}
	}

	stmt, err := r.db.GetPreparedStatement("upsert_wallet_score")
	if err != nil {
		return err
	}

	_, err = tx.StmtContext(ctx, stmt).ExecContext(ctx,
		score.ID, score.StellarAddress, score.EthereumAddress,
		score.TotalScore, score.StellarScore, score.EthereumScore, score.SocialScore,
		score.AccountAgeDays, score.TransactionCount, score.StellarBalance, score.AssetDiversity,
		score.HasEthereumHistory, score.EthereumAgeDays, score.EthereumTransactionCount, score.EthereumBalance,
		score.OnChain, score.CalculatedAt, score.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert wallet score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit wallet score: %w", err)
	}

	return nil
}
