// Package db is the Postgres collaborator. The ledger stays
// authoritative in memory; this package keeps the durable record of
// users, bid snapshots and capacity settings, and reloads them into
// the core at startup.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmarkov/fundbid/internal/models"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB initializes a new database connection pool
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate applies goose migrations from the given directory. Runs over
// database/sql because goose requires it; the pgx stdlib driver keeps
// it a single Postgres dependency.
func Migrate(connString, dir string) error {
	sqlDB, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer sqlDB.Close()

	if err := goose.Up(sqlDB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// CreateUser inserts a new user
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string, admin bool) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"INSERT INTO users (username, password_hash, is_admin) VALUES ($1, $2, $3) RETURNING id, username, password_hash, is_admin, created_at",
		username, passwordHash, admin).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx,
		"SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = $1",
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Admin, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SaveBid writes a bid snapshot after a successful ledger transition.
// Upsert keyed by id, so repeated transitions overwrite the prior row.
func (db *DB) SaveBid(ctx context.Context, bid models.Bid) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO bids (id, owner_id, amount, duration_hours, interest_rate, expected_payout, status, created_at, accepted_by, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			accepted_by = EXCLUDED.accepted_by,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		bid.ID, bid.OwnerID, bid.Amount, bid.DurationHours, bid.InterestRate,
		bid.ExpectedPayout, string(bid.Status), bid.CreatedAt,
		bid.AcceptedBy, bid.StartedAt, bid.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to save bid: %w", err)
	}
	return nil
}

// LoadBids retrieves every stored bid, oldest first, for replay into
// the ledger at startup.
func (db *DB) LoadBids(ctx context.Context) ([]models.Bid, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, owner_id, amount, duration_hours, interest_rate, expected_payout, status, created_at, accepted_by, started_at, completed_at
		FROM bids
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load bids: %w", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		var b models.Bid
		var status string
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Amount, &b.DurationHours, &b.InterestRate,
			&b.ExpectedPayout, &status, &b.CreatedAt, &b.AcceptedBy, &b.StartedAt, &b.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		b.Status = models.BidStatus(status)
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

// SaveAllocation persists the full capacity configuration in one
// transaction, mirroring the all-or-nothing admin update.
func (db *DB) SaveAllocation(ctx context.Context, alloc models.Allocation) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range []struct {
		session  models.Session
		capacity int
	}{
		{models.SessionMorning, alloc.Morning},
		{models.SessionAfternoon, alloc.Afternoon},
		{models.SessionEvening, alloc.Evening},
	} {
		_, err := tx.Exec(ctx, `
			INSERT INTO allocations (session, capacity) VALUES ($1, $2)
			ON CONFLICT (session) DO UPDATE SET capacity = EXCLUDED.capacity`,
			string(row.session), row.capacity)
		if err != nil {
			return fmt.Errorf("failed to save allocation: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadAllocation retrieves the stored capacity configuration. Missing
// rows read as zero capacity, the allocator's own starting point.
func (db *DB) LoadAllocation(ctx context.Context) (models.Allocation, error) {
	rows, err := db.Pool.Query(ctx, "SELECT session, capacity FROM allocations")
	if err != nil {
		return models.Allocation{}, fmt.Errorf("failed to load allocations: %w", err)
	}
	defer rows.Close()

	var alloc models.Allocation
	for rows.Next() {
		var session string
		var capacity int
		if err := rows.Scan(&session, &capacity); err != nil {
			return models.Allocation{}, fmt.Errorf("failed to scan allocation: %w", err)
		}
		switch models.Session(session) {
		case models.SessionMorning:
			alloc.Morning = capacity
		case models.SessionAfternoon:
			alloc.Afternoon = capacity
		case models.SessionEvening:
			alloc.Evening = capacity
		}
	}
	if err := rows.Err(); err != nil {
		return models.Allocation{}, err
	}
	return alloc, nil
}
