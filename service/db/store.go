package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/brojonat/solxfer/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a transfer does not exist.
var ErrNotFound = errors.New("transfer not found")

// Schema creates the transfers table. It is safe to apply repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS transfers (
    signature          TEXT PRIMARY KEY,
    signer             TEXT NOT NULL,
    source             TEXT NOT NULL,
    destination        TEXT NOT NULL,
    destination_owner  TEXT NOT NULL,
    token_mint         TEXT,
    program_id         TEXT NOT NULL,
    amount             NUMERIC(20, 0) NOT NULL,
    decimals           SMALLINT NOT NULL,
    success            BOOLEAN NOT NULL,
    error              TEXT,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_transfers_signer_created_at
    ON transfers (signer, created_at DESC);
`

// Store provides database operations for transfer history.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no metrics will be recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{
		pool:    pool,
		metrics: m,
	}
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Transfer is a submitted transfer as recorded in the database.
type Transfer struct {
	Signature        string    `json:"signature"`
	Signer           string    `json:"signer"`
	Source           string    `json:"source"`
	Destination      string    `json:"destination"`
	DestinationOwner string    `json:"destination_owner"`
	TokenMint        *string   `json:"token_mint,omitempty"` // nil for native SOL
	ProgramID        string    `json:"program_id"`
	Amount           uint64    `json:"amount"` // raw units
	Decimals         uint8     `json:"decimals"`
	Success          bool      `json:"success"`
	Error            *string   `json:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreateTransferParams contains the parameters for recording a transfer.
type CreateTransferParams struct {
	Signature        string
	Signer           string
	Source           string
	Destination      string
	DestinationOwner string
	TokenMint        *string
	ProgramID        string
	Amount           uint64
	Decimals         uint8
	Success          bool
	Error            *string
}

// ListTransfersParams contains pagination parameters.
type ListTransfersParams struct {
	Signer string
	Limit  int32
	Offset int32
}

// TransferFromParams builds the domain value for params without storing it.
func TransferFromParams(params CreateTransferParams) *Transfer {
	return &Transfer{
		Signature:        params.Signature,
		Signer:           params.Signer,
		Source:           params.Source,
		Destination:      params.Destination,
		DestinationOwner: params.DestinationOwner,
		TokenMint:        params.TokenMint,
		ProgramID:        params.ProgramID,
		Amount:           params.Amount,
		Decimals:         params.Decimals,
		Success:          params.Success,
		Error:            params.Error,
		CreatedAt:        time.Now().UTC(),
	}
}

const transferColumns = `signature, signer, source, destination, destination_owner, token_mint,
    program_id, amount::text, decimals, success, error, created_at`

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, Schema)
	s.record("migrate", start, err)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateTransfer inserts a transfer. Recording the same signature twice
// updates the outcome.
func (s *Store) CreateTransfer(ctx context.Context, params CreateTransferParams) (*Transfer, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx, `
INSERT INTO transfers (signature, signer, source, destination, destination_owner, token_mint,
    program_id, amount, decimals, success, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::text::numeric, $9, $10, $11)
ON CONFLICT (signature) DO UPDATE SET success = EXCLUDED.success, error = EXCLUDED.error
RETURNING `+transferColumns,
		params.Signature,
		params.Signer,
		params.Source,
		params.Destination,
		params.DestinationOwner,
		pgtextFromStringPtr(params.TokenMint),
		params.ProgramID,
		strconv.FormatUint(params.Amount, 10),
		int16(params.Decimals),
		params.Success,
		pgtextFromStringPtr(params.Error),
	)
	t, err := scanTransfer(row)
	s.record("insert", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer %s: %w", params.Signature, err)
	}
	return t, nil
}

// GetTransfer retrieves a transfer by signature.
func (s *Store) GetTransfer(ctx context.Context, signature string) (*Transfer, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfers WHERE signature = $1`, signature)
	t, err := scanTransfer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		s.record("select", start, nil)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, signature)
	}
	s.record("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer %s: %w", signature, err)
	}
	return t, nil
}

// ListTransfers retrieves transfers for a signer, newest first.
func (s *Store) ListTransfers(ctx context.Context, params ListTransfersParams) ([]*Transfer, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
SELECT `+transferColumns+` FROM transfers
WHERE signer = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`,
		params.Signer, params.Limit, params.Offset,
	)
	if err != nil {
		s.record("select", start, err)
		return nil, fmt.Errorf("failed to list transfers for %s: %w", params.Signer, err)
	}
	defer rows.Close()

	transfers := make([]*Transfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			s.record("select", start, err)
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	err = rows.Err()
	s.record("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers for %s: %w", params.Signer, err)
	}
	return transfers, nil
}

func (s *Store) record(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, "transfers", time.Since(start).Seconds(), err)
	}
}

func scanTransfer(row pgx.Row) (*Transfer, error) {
	var (
		t         Transfer
		tokenMint pgtype.Text
		amount    string
		decimals  int16
		errText   pgtype.Text
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(
		&t.Signature,
		&t.Signer,
		&t.Source,
		&t.Destination,
		&t.DestinationOwner,
		&tokenMint,
		&t.ProgramID,
		&amount,
		&decimals,
		&t.Success,
		&errText,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.Amount, err = strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	t.Decimals = uint8(decimals)
	t.TokenMint = stringPtrFromPgtext(tokenMint)
	t.Error = stringPtrFromPgtext(errText)
	t.CreatedAt = createdAt.Time
	return &t, nil
}

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
