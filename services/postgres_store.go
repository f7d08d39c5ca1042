package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
)

// PostgresStore implements EngineStore with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS engine_state (
		id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		current_batch BIGINT NOT NULL DEFAULT 0,
		batch_open BOOLEAN NOT NULL DEFAULT FALSE,
		paused BOOLEAN NOT NULL DEFAULT FALSE,
		cooldown_ns BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS providers (
		address VARCHAR(128) PRIMARY KEY,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS submissions (
		batch_id BIGINT NOT NULL,
		provider VARCHAR(128) NOT NULL,
		handle BYTEA NOT NULL,
		commitment VARCHAR(64) NOT NULL,
		submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (batch_id, provider)
	);

	CREATE TABLE IF NOT EXISTS decryption_requests (
		request_id VARCHAR(128) PRIMARY KEY,
		batch_id BIGINT NOT NULL,
		target_provider VARCHAR(128) NOT NULL,
		state_hash VARCHAR(64) NOT NULL,
		requested_by VARCHAR(128) NOT NULL,
		requested_at TIMESTAMP WITH TIME ZONE NOT NULL,
		processed BOOLEAN NOT NULL DEFAULT FALSE,
		clear_value BIGINT,
		processed_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS audit_events (
		id BIGSERIAL PRIMARY KEY,
		event_type VARCHAR(64) NOT NULL,
		event_time TIMESTAMP WITH TIME ZONE NOT NULL,
		actor VARCHAR(128),
		batch_id BIGINT,
		commitment VARCHAR(64),
		request_id VARCHAR(128),
		clear_value BIGINT,
		cooldown VARCHAR(32),
		paused BOOLEAN
	);

	CREATE INDEX IF NOT EXISTS idx_requests_batch ON decryption_requests(batch_id);
	CREATE INDEX IF NOT EXISTS idx_events_type ON audit_events(event_type);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveAccessState persists the provider set, pause switch and cooldown in one
// transaction. The provider table is replaced wholesale; the set is small.
func (s *PostgresStore) SaveAccessState(providers []string, paused bool, cooldown time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
	INSERT INTO engine_state (id, paused, cooldown_ns, updated_at)
	VALUES (1, $1, $2, NOW())
	ON CONFLICT (id) DO UPDATE SET
		paused = EXCLUDED.paused,
		cooldown_ns = EXCLUDED.cooldown_ns,
		updated_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, query, paused, cooldown.Nanoseconds()); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM providers"); err != nil {
		return err
	}
	for _, provider := range providers {
		if _, err := tx.ExecContext(ctx, "INSERT INTO providers (address) VALUES ($1)", provider); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveBatchState persists the batch cursor.
func (s *PostgresStore) SaveBatchState(currentID uint64, open bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO engine_state (id, current_batch, batch_open, updated_at)
	VALUES (1, $1, $2, NOW())
	ON CONFLICT (id) DO UPDATE SET
		current_batch = EXCLUDED.current_batch,
		batch_open = EXCLUDED.batch_open,
		updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query, int64(currentID), open)
	return err
}

// SaveSubmission persists one submission. Submissions are write-once, so a
// conflicting insert keeps the original row.
func (s *PostgresStore) SaveSubmission(sub *protocol.Submission) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO submissions (batch_id, provider, handle, commitment, submitted_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (batch_id, provider) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		int64(sub.BatchID),
		sub.Provider,
		sub.Handle.Bytes(),
		sub.Commitment.String(),
		sub.SubmittedAt,
	)
	return err
}

// SaveRequest persists or updates one decryption request.
func (s *PostgresStore) SaveRequest(req *protocol.DecryptionRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO decryption_requests
		(request_id, batch_id, target_provider, state_hash, requested_by, requested_at, processed, clear_value, processed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (request_id) DO UPDATE SET
		processed = EXCLUDED.processed,
		clear_value = EXCLUDED.clear_value,
		processed_at = EXCLUDED.processed_at
	`

	var clearValue sql.NullInt64
	var processedAt sql.NullTime
	if req.Processed {
		clearValue = sql.NullInt64{Int64: int64(req.ClearValue), Valid: true}
		processedAt = sql.NullTime{Time: req.ProcessedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		req.RequestID,
		int64(req.BatchID),
		req.TargetProvider,
		req.StateHash.String(),
		req.RequestedBy,
		req.RequestedAt,
		req.Processed,
		clearValue,
		processedAt,
	)
	return err
}

// SaveEvent appends one audit event.
func (s *PostgresStore) SaveEvent(ev protocol.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO audit_events
		(event_type, event_time, actor, batch_id, commitment, request_id, clear_value, cooldown, paused)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		string(ev.Type),
		ev.Time,
		ev.Actor,
		int64(ev.BatchID),
		ev.Commitment,
		ev.RequestID,
		int64(ev.ClearValue),
		ev.Cooldown,
		ev.Paused,
	)
	return err
}

// LoadState retrieves the full persisted snapshot, or nil if the database is
// empty.
func (s *PostgresStore) LoadState() (*EngineState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	state := &EngineState{}

	var cooldownNS int64
	var currentBatch int64
	err := s.db.QueryRowContext(ctx,
		"SELECT current_batch, batch_open, paused, cooldown_ns FROM engine_state WHERE id = 1",
	).Scan(&currentBatch, &state.BatchOpen, &state.Paused, &cooldownNS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state.BatchID = uint64(currentBatch)
	state.Cooldown = time.Duration(cooldownNS)

	if state.Providers, err = s.loadProviders(ctx); err != nil {
		return nil, err
	}
	if state.Submissions, err = s.loadSubmissions(ctx); err != nil {
		return nil, err
	}
	if state.Requests, err = s.loadRequests(ctx); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *PostgresStore) loadProviders(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT address FROM providers")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var providers []string
	for rows.Next() {
		var address string
		if err := rows.Scan(&address); err != nil {
			return nil, fmt.Errorf("scanning provider row: %w", err)
		}
		providers = append(providers, address)
	}
	return providers, rows.Err()
}

func (s *PostgresStore) loadSubmissions(ctx context.Context) ([]*protocol.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, provider, handle, commitment, submitted_at FROM submissions
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []*protocol.Submission
	for rows.Next() {
		var (
			batchID     int64
			provider    string
			handle      []byte
			commitment  string
			submittedAt time.Time
		)
		if err := rows.Scan(&batchID, &provider, &handle, &commitment, &submittedAt); err != nil {
			return nil, fmt.Errorf("scanning submission row: %w", err)
		}

		parsed, err := crypto.NewCommitmentFromString(commitment)
		if err != nil {
			return nil, fmt.Errorf("submission %d/%s: %w", batchID, provider, err)
		}

		submissions = append(submissions, &protocol.Submission{
			BatchID:     uint64(batchID),
			Provider:    provider,
			Handle:      crypto.NewCiphertextHandle(handle),
			Commitment:  parsed,
			SubmittedAt: submittedAt,
		})
	}
	return submissions, rows.Err()
}

func (s *PostgresStore) loadRequests(ctx context.Context) ([]*protocol.DecryptionRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, batch_id, target_provider, state_hash, requested_by, requested_at, processed, clear_value, processed_at
		FROM decryption_requests
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*protocol.DecryptionRequest
	for rows.Next() {
		var (
			requestID      string
			batchID        int64
			targetProvider string
			stateHash      string
			requestedBy    string
			requestedAt    time.Time
			processed      bool
			clearValue     sql.NullInt64
			processedAt    sql.NullTime
		)
		if err := rows.Scan(&requestID, &batchID, &targetProvider, &stateHash, &requestedBy,
			&requestedAt, &processed, &clearValue, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning request row: %w", err)
		}

		parsed, err := crypto.NewCommitmentFromString(stateHash)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", requestID, err)
		}

		req := &protocol.DecryptionRequest{
			RequestID:      requestID,
			BatchID:        uint64(batchID),
			TargetProvider: targetProvider,
			StateHash:      parsed,
			RequestedBy:    requestedBy,
			RequestedAt:    requestedAt,
			Processed:      processed,
		}
		if clearValue.Valid {
			req.ClearValue = uint64(clearValue.Int64)
		}
		if processedAt.Valid {
			req.ProcessedAt = processedAt.Time
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
