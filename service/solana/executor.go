package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solxfer/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrSendFailed is returned when the RPC node does not accept a transaction,
// including preflight simulation failures.
var ErrSendFailed = errors.New("failed to send transaction")

// ExecutorConfig tunes confirmation polling.
type ExecutorConfig struct {
	Commitment     rpc.CommitmentType
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	SkipPreflight  bool
}

// Executor signs, submits and confirms transactions.
type Executor struct {
	rpc     RPCClient
	signer  Signer
	cfg     ExecutorConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewExecutor creates an Executor. Zero config values fall back to defaults.
func NewExecutor(rpcClient RPCClient, signer Signer, cfg ExecutorConfig, m *metrics.Metrics, logger *slog.Logger) *Executor {
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	return &Executor{
		rpc:     rpcClient,
		signer:  signer,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

// Submit builds a transaction from instructions with feePayer, signs it with
// the executor's Signer and waits for confirmation. An on-chain rejection is
// reported through the returned status, not as an error.
func (e *Executor) Submit(ctx context.Context, feePayer solana.PublicKey, instructions []solana.Instruction) (*TransactionStatus, error) {
	blockhash, err := e.rpc.GetLatestBlockhash(ctx, e.cfg.Commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash.Value.Blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	if err := e.sign(tx); err != nil {
		return nil, err
	}

	start := time.Now()
	sig, err := e.rpc.SendTransaction(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       e.cfg.SkipPreflight,
		PreflightCommitment: e.cfg.Commitment,
	})
	e.record("SendTransaction", start, err)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to send transaction",
			"fee_payer", feePayer.String(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	e.logger.InfoContext(ctx, "transaction sent",
		"signature", sig.String(),
		"instructions", len(instructions),
	)

	return e.confirm(ctx, sig)
}

func (e *Executor) sign(tx *solana.Transaction) error {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode transaction message: %w", err)
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	signer := e.signer.PublicKey()
	for _, key := range tx.Message.AccountKeys[:required] {
		if !key.Equals(signer) {
			return fmt.Errorf("transaction requires a signature from %s, only %s is available", key, signer)
		}
	}

	sig, err := e.signer.Sign(message)
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	tx.Signatures = []solana.Signature{sig}
	return nil
}

// confirm polls the signature status until it reaches the configured
// commitment, fails on chain, or the confirm timeout elapses.
func (e *Executor) confirm(parent context.Context, sig solana.Signature) (*TransactionStatus, error) {
	ctx, cancel := context.WithTimeout(parent, e.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		out, err := e.rpc.GetSignatureStatuses(ctx, sig)
		e.record("GetSignatureStatuses", start, err)
		if err != nil {
			e.logger.WarnContext(ctx, "failed to get signature status",
				"signature", sig.String(),
				"error", err,
			)
		} else if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return &TransactionStatus{
					Signature: sig,
					Success:   false,
					Err:       formatTransactionError(status.Err),
				}, nil
			}
			if reached(status.ConfirmationStatus, e.cfg.Commitment) {
				e.logger.DebugContext(ctx, "transaction confirmed",
					"signature", sig.String(),
					"slot", status.Slot,
					"status", status.ConfirmationStatus,
				)
				return &TransactionStatus{Signature: sig, Success: true}, nil
			}
		}

		select {
		case <-ctx.Done():
			if err := parent.Err(); err != nil {
				return nil, fmt.Errorf("stopped waiting for %s: %w", sig, err)
			}
			return &TransactionStatus{
				Signature: sig,
				Success:   false,
				Err:       fmt.Sprintf("not confirmed within %s", e.cfg.ConfirmTimeout),
			}, nil
		case <-ticker.C:
		}
	}
}

func (e *Executor) record(method string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordRPCCall(method, status, "executor", time.Since(start).Seconds())
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := map[string]int{
		string(rpc.ConfirmationStatusProcessed): 1,
		string(rpc.ConfirmationStatusConfirmed): 2,
		string(rpc.ConfirmationStatusFinalized): 3,
	}
	return rank[string(status)] >= rank[string(want)] && rank[string(status)] > 0
}

// formatTransactionError renders the ledger's error object as JSON so the
// reason reaches the user verbatim.
func formatTransactionError(txErr interface{}) string {
	if s, ok := txErr.(string); ok {
		return s
	}
	data, err := json.Marshal(txErr)
	if err != nil {
		return fmt.Sprintf("%v", txErr)
	}
	return string(data)
}
