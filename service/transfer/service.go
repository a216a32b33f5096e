package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/brojonat/solxfer/service/amount"
	"github.com/brojonat/solxfer/service/db"
	"github.com/brojonat/solxfer/service/metrics"
	natspkg "github.com/brojonat/solxfer/service/nats"
	"github.com/brojonat/solxfer/service/solana"
	"github.com/brojonat/solxfer/service/token"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// StoreInterface defines the database operations needed to record transfers.
// This allows for easy mocking in tests.
type StoreInterface interface {
	CreateTransfer(ctx context.Context, params db.CreateTransferParams) (*db.Transfer, error)
}

// PublisherInterface defines the NATS publishing operations needed to
// announce transfers. This allows for easy mocking in tests.
type PublisherInterface interface {
	PublishTransfer(ctx context.Context, event *natspkg.TransferEvent) error
}

// Request is a parsed transfer command.
type Request struct {
	Source      *solanago.PublicKey // explicit source token account
	Mint        *solanago.PublicKey // derive the source from the signer's associated accounts
	Destination solanago.PublicKey  // wallet or token account
	Amount      decimal.Decimal
	Native      bool // move SOL instead of a token
}

// Plan is a fully validated transfer, ready to submit.
type Plan struct {
	Source       *solana.TokenBalance // nil for native transfers
	Destination  *Destination
	Raw          uint64
	Decimals     uint8
	Instructions []solanago.Instruction
}

// Service runs transfers. Store and publisher are optional observers of the
// outcome; their failures are logged and never change the result.
type Service struct {
	rt        Runtime
	store     StoreInterface
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService creates a new Service with explicit dependencies.
// store, publisher and m may be nil.
func NewService(rt Runtime, store StoreInterface, publisher PublisherInterface, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		rt:        rt,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Plan resolves both ends of the transfer, converts the amount and builds the
// instructions. Nothing is submitted.
func (s *Service) Plan(ctx context.Context, req Request) (*Plan, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordResolutionError(reason(err))
		}
		return nil, err
	}
	return plan, nil
}

func (s *Service) plan(ctx context.Context, req Request) (*Plan, error) {
	payer := s.rt.Signer.PublicKey()

	if req.Native {
		if req.Source != nil || req.Mint != nil {
			return nil, ErrConflictingSource
		}
		raw, err := amount.ToRaw(amount.NativeDecimals, req.Amount)
		if err != nil {
			return nil, err
		}
		return &Plan{
			Destination:  &Destination{Account: req.Destination, Owner: req.Destination},
			Raw:          raw,
			Decimals:     amount.NativeDecimals,
			Instructions: BuildNativeInstructions(payer, req.Destination, raw),
		}, nil
	}

	// Catch negative amounts before touching the network.
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, req.Amount)
	}

	source, err := ResolveSource(ctx, s.rt, req.Source, req.Mint)
	if err != nil {
		return nil, err
	}
	if !source.Owner.Equals(payer) {
		s.logger.WarnContext(ctx, "source token account is not owned by the signer",
			"source", source.Address.String(),
			"owner", source.Owner.String(),
			"signer", payer.String(),
		)
	}
	s.logger.DebugContext(ctx, "resolved source",
		"source", source.Address.String(),
		"mint", source.Token.Mint.Address.String(),
		"program", source.Token.Mint.ProgramID.String(),
		"balance", source.Amount,
	)

	dest, err := ResolveDestination(ctx, s.rt, req.Destination, source.Token)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "resolved destination",
		"account", dest.Account.String(),
		"owner", dest.Owner.String(),
		"associated", dest.Associated,
	)

	raw, err := amount.ToRaw(source.Token.Mint.Decimals, req.Amount)
	if err != nil {
		return nil, err
	}

	instructions, err := BuildInstructions(payer, source, dest, raw)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Source:       source,
		Destination:  dest,
		Raw:          raw,
		Decimals:     source.Token.Mint.Decimals,
		Instructions: instructions,
	}, nil
}

// Transfer plans and submits a transfer. Validation failures are returned
// without contacting the executor. A transaction rejected on chain is
// reported through a non-successful status.
func (s *Service) Transfer(ctx context.Context, req Request) (*solana.TransactionStatus, error) {
	plan, err := s.Plan(ctx, req)
	if err != nil {
		return nil, err
	}

	payer := s.rt.Signer.PublicKey()
	status, err := s.rt.Executor.Submit(ctx, payer, plan.Instructions)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSubmissionError(programLabel(plan))
		}
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	s.logger.InfoContext(ctx, "transfer submitted",
		"signature", status.Signature.String(),
		"success", status.Success,
		"error", status.Err,
	)

	s.observe(ctx, req, plan, status)
	return status, nil
}

// observe feeds the outcome to metrics, the store and the publisher.
func (s *Service) observe(ctx context.Context, req Request, plan *Plan, status *solana.TransactionStatus) {
	params := db.CreateTransferParams{
		Signature:        status.Signature.String(),
		Signer:           s.rt.Signer.PublicKey().String(),
		Source:           s.rt.Signer.PublicKey().String(),
		Destination:      plan.Destination.Account.String(),
		DestinationOwner: plan.Destination.Owner.String(),
		ProgramID:        token.SystemProgramID.String(),
		Amount:           plan.Raw,
		Decimals:         plan.Decimals,
		Success:          status.Success,
	}
	if plan.Source != nil {
		mint := plan.Source.Token.Mint.Address.String()
		params.Source = plan.Source.Address.String()
		params.TokenMint = &mint
		params.ProgramID = plan.Source.Token.Mint.ProgramID.String()
	}
	if !status.Success {
		params.Error = &status.Err
	}

	if s.metrics != nil {
		mint := "SOL"
		if plan.Source != nil {
			mint = *params.TokenMint
		}
		s.metrics.RecordTransfer(programLabel(plan), mint, status.Success, plan.Raw)
	}

	if s.store == nil && s.publisher == nil {
		return
	}

	var record *db.Transfer
	if s.store != nil {
		var err error
		record, err = s.store.CreateTransfer(ctx, params)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to record transfer",
				"signature", params.Signature,
				"error", err,
			)
		}
	}
	if record == nil {
		record = db.TransferFromParams(params)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishTransfer(ctx, natspkg.FromDBTransfer(record)); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish transfer event",
				"signature", params.Signature,
				"error", err,
			)
		}
	}
}

// programLabel names the program a plan transfers under, for metric labels.
func programLabel(plan *Plan) string {
	if plan.Source == nil {
		return "system"
	}
	id := plan.Source.Token.Mint.ProgramID
	if p, err := token.ProgramFor(id); err == nil {
		return p.String()
	}
	return id.String()
}
