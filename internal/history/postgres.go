package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore persists history in PostgreSQL. Plans are stored as
// JSONB so the schema survives plan shape evolution.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool, logger log.Logger) *PostgresStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PostgresStore{pool: pool, logger: logger}
}

// OpenPool creates and pings a pgx connection pool.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Migrate applies all pending migrations using a short-lived
// database/sql connection; the pgx pool stays untouched.
func Migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// SavePlan implements Store.
func (s *PostgresStore) SavePlan(ctx context.Context, sessionID string, plan ambience.AmbiencePlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO ambience_plans (session_id, plan) VALUES ($1, $2)`,
		sessionID, data)
	if err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	s.logger.Debug("plan saved", "session_id", sessionID)
	return nil
}

// ListPlans implements Store, newest first.
func (s *PostgresStore) ListPlans(ctx context.Context, sessionID string, limit int) ([]PlanRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, plan, created_at
		 FROM ambience_plans
		 WHERE session_id = $1
		 ORDER BY id DESC
		 LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var out []PlanRecord
	for rows.Next() {
		var rec PlanRecord
		var data []byte
		if err := rows.Scan(&rec.ID, &rec.SessionID, &data, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		if err := json.Unmarshal(data, &rec.Plan); err != nil {
			return nil, fmt.Errorf("decoding stored plan %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan rows: %w", err)
	}
	if out == nil {
		out = []PlanRecord{}
	}
	return out, nil
}

// AppendMessage implements Store.
func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (session_id, role, content) VALUES ($1, $2, $3)`,
		sessionID, role, content)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// ListMessages implements Store, oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, role, content, created_at FROM (
		     SELECT id, session_id, role, content, created_at
		     FROM chat_messages
		     WHERE session_id = $1
		     ORDER BY id DESC
		     LIMIT $2
		 ) recent ORDER BY id ASC`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	if out == nil {
		out = []ChatMessage{}
	}
	return out, nil
}
