package transfer

import (
	"context"

	"github.com/brojonat/solxfer/service/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// AccountFetcher defines the account reads needed by the resolver.
// This allows for easy mocking in tests.
type AccountFetcher interface {
	GetAccount(ctx context.Context, address solanago.PublicKey) (*solana.AccountInfo, error)
	GetTokenBalance(ctx context.Context, address solanago.PublicKey) (*solana.TokenBalance, error)
}

// Executor signs and submits a transaction paid for by feePayer.
type Executor interface {
	Submit(ctx context.Context, feePayer solanago.PublicKey, instructions []solanago.Instruction) (*solana.TransactionStatus, error)
}

// Runtime is the context every transfer runs against. It is built once at
// startup and never mutated afterwards.
type Runtime struct {
	Signer   solana.Signer
	Accounts AccountFetcher
	Executor Executor

	// AllowUnfundedRecipient treats a destination address with no account
	// as a plain wallet instead of failing with ErrAccountNotFound.
	AllowUnfundedRecipient bool
}
