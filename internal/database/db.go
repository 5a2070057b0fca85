package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}
}

// NewDB creates a new database connection with optimized pooling
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "stellarep.db")

	// Configure connection string for better performance
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	return open(connStr)
}

// NewInMemoryDB opens a private in-memory database, used by tests.
func NewInMemoryDB() (*DB, error) {
	return open("file::memory:?cache=shared&_pragma=foreign_keys(ON)")
}

func open(connStr string) (*DB, error) {
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		// One live record per Stellar address; rewrites go through the
		// upsert path in the repository.
		`CREATE TABLE IF NOT EXISTS wallet_scores (
			id TEXT PRIMARY KEY,
			stellar_address TEXT NOT NULL UNIQUE,
			ethereum_address TEXT,
			total_score INTEGER NOT NULL,
			stellar_score INTEGER NOT NULL,
			ethereum_score INTEGER NOT NULL,
			social_score INTEGER NOT NULL,
			account_age_days INTEGER NOT NULL,
			transaction_count INTEGER NOT NULL,
			stellar_balance REAL NOT NULL,
			asset_diversity INTEGER NOT NULL,
			has_ethereum_history BOOLEAN NOT NULL,
			ethereum_age_days INTEGER NOT NULL,
			ethereum_transaction_count INTEGER NOT NULL,
			ethereum_balance REAL NOT NULL,
			on_chain BOOLEAN NOT NULL DEFAULT FALSE,
			calculated_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_wallet_scores_address ON wallet_scores(stellar_address)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_scores_total ON wallet_scores(total_score DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_scores_updated ON wallet_scores(updated_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"upsert_wallet_score": `INSERT INTO wallet_scores (
			id, stellar_address, ethereum_address,
			total_score, stellar_score, ethereum_score, social_score,
			account_age_days, transaction_count, stellar_balance, asset_diversity,
			has_ethereum_history, ethereum_age_days, ethereum_transaction_count, ethereum_balance,
			on_chain, calculated_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stellar_address) DO UPDATE SET
			ethereum_address = excluded.ethereum_address,
			total_score = excluded.total_score,
			stellar_score = excluded.stellar_score,
			ethereum_score = excluded.ethereum_score,
			social_score = excluded.social_score,
			account_age_days = excluded.account_age_days,
			transaction_count = excluded.transaction_count,
			stellar_balance = excluded.stellar_balance,
			asset_diversity = excluded.asset_diversity,
			has_ethereum_history = excluded.has_ethereum_history,
			ethereum_age_days = excluded.ethereum_age_days,
			ethereum_transaction_count = excluded.ethereum_transaction_count,
			ethereum_balance = excluded.ethereum_balance,
			on_chain = excluded.on_chain,
			updated_at = excluded.updated_at`,

		"get_wallet_score": `SELECT id, stellar_address, ethereum_address,
			total_score, stellar_score, ethereum_score, social_score,
			account_age_days, transaction_count, stellar_balance, asset_diversity,
			has_ethereum_history, ethereum_age_days, ethereum_transaction_count, ethereum_balance,
			on_chain, calculated_at, updated_at
			FROM wallet_scores WHERE stellar_address = ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
