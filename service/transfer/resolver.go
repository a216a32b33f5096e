package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/brojonat/solxfer/service/solana"
	"github.com/brojonat/solxfer/service/token"
	solanago "github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
)

// ResolveSource determines the token account to debit.
//
// An explicit source account wins. Otherwise the signer's associated accounts
// for mint under both token programs are probed concurrently; when both exist
// the Legacy one is used.
func ResolveSource(ctx context.Context, rt Runtime, source, mint *solanago.PublicKey) (*solana.TokenBalance, error) {
	switch {
	case source != nil:
		tb, err := rt.Accounts.GetTokenBalance(ctx, *source)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return nil, fmt.Errorf("invalid source token account %s: %w", *source, err)
			}
			return nil, err
		}
		return tb, nil

	case mint != nil:
		return resolveSourceByMint(ctx, rt, *mint)

	default:
		return nil, ErrMissingSourceSpecifier
	}
}

func resolveSourceByMint(ctx context.Context, rt Runtime, mint solanago.PublicKey) (*solana.TokenBalance, error) {
	owner := rt.Signer.PublicKey()
	programs := token.Programs()

	addresses := make([]solanago.PublicKey, len(programs))
	for i, p := range programs {
		addr, err := token.FindAssociatedAddress(owner, mint, p.ID())
		if err != nil {
			return nil, err
		}
		addresses[i] = addr
	}

	// Each probe writes only its own slot.
	found := make([]*solana.TokenBalance, len(programs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range addresses {
		g.Go(func() error {
			tb, err := rt.Accounts.GetTokenBalance(gctx, addresses[i])
			if errors.Is(err, ErrAccountNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to probe %s account %s: %w", programs[i], addresses[i], err)
			}
			found[i] = tb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// programs is ordered Legacy first, which makes Legacy the tie-break.
	for _, tb := range found {
		if tb != nil {
			return tb, nil
		}
	}
	return nil, fmt.Errorf("%w %s owned by %s", ErrNoTokenAccount, mint, owner)
}

// Destination is a resolved transfer target.
type Destination struct {
	// Account is the token account that receives the tokens.
	Account solanago.PublicKey
	// Owner controls Account; it is the owner the associated account is created for.
	Owner solanago.PublicKey
	// Associated is true when Account is the canonical associated account of
	// (Owner, mint, program) and may therefore be created idempotently.
	Associated bool
}

// ResolveDestination determines the token account to credit. A plain wallet
// address maps to its associated account under the source mint's program.
func ResolveDestination(ctx context.Context, rt Runtime, destination solanago.PublicKey, tok solana.Token) (*Destination, error) {
	acc, err := rt.Accounts.GetAccount(ctx, destination)
	switch {
	case errors.Is(err, ErrAccountNotFound) && rt.AllowUnfundedRecipient:
		acc = &solana.AccountInfo{Address: destination, Owner: token.SystemProgramID}
	case errors.Is(err, ErrAccountNotFound):
		return nil, fmt.Errorf("destination %s: %w (the recipient is unfunded)", destination, err)
	case err != nil:
		return nil, err
	}

	mint := tok.Mint
	if acc.Owner.Equals(token.SystemProgramID) {
		ata, err := token.FindAssociatedAddress(destination, mint.Address, mint.ProgramID)
		if err != nil {
			return nil, err
		}
		return &Destination{Account: ata, Owner: destination, Associated: true}, nil
	}

	if !acc.Owner.Equals(mint.ProgramID) {
		return nil, fmt.Errorf("%w: %s is owned by %s, token %s by %s",
			ErrProgramMismatch, destination, acc.Owner, mint.Address, mint.ProgramID)
	}

	destMint, owner, _, err := solana.DecodeTokenAccount(acc)
	if err != nil {
		return nil, fmt.Errorf("destination %s is not a token account: %w: %v", destination, ErrAccountNotFound, err)
	}
	if !destMint.Equals(mint.Address) {
		return nil, fmt.Errorf("%w: %s holds %s, not %s", ErrMintMismatch, destination, destMint, mint.Address)
	}

	ata, err := token.FindAssociatedAddress(owner, mint.Address, mint.ProgramID)
	if err != nil {
		return nil, err
	}
	return &Destination{Account: destination, Owner: owner, Associated: ata.Equals(destination)}, nil
}
