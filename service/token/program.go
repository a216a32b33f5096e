// Package token selects the instruction-building strategy for the two SPL
// token program variants and derives associated token account addresses.
package token

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Well-known program IDs, aliased from solana-go
var (
	// SystemProgramID owns plain wallet accounts
	SystemProgramID = solana.SystemProgramID

	// LegacyProgramID is the original SPL Token program
	LegacyProgramID = solana.TokenProgramID

	// ExtendedProgramID is the Token Extensions program (Token-2022)
	ExtendedProgramID = solana.Token2022ProgramID

	// AssociatedTokenAccountProgramID derives and creates associated token accounts
	AssociatedTokenAccountProgramID = solana.SPLAssociatedTokenAccountProgramID
)

// Associated Token Account program instruction types
const (
	associatedCreateIdempotentInstruction = uint8(1)
)

// ErrUnsupportedProgram is returned for a program ID that is not one of the
// two known token programs.
var ErrUnsupportedProgram = errors.New("unsupported token program")

// Program is one of the two token program variants.
type Program uint8

const (
	Legacy Program = iota + 1
	Extended
)

// Programs returns both variants, Legacy first.
func Programs() []Program {
	return []Program{Legacy, Extended}
}

// ProgramFor maps a program ID onto its variant.
func ProgramFor(id solana.PublicKey) (Program, error) {
	switch {
	case id.Equals(LegacyProgramID):
		return Legacy, nil
	case id.Equals(ExtendedProgramID):
		return Extended, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedProgram, id)
	}
}

// ID returns the on-chain program ID. It panics on a zero or unknown Program,
// which can only be produced by bypassing ProgramFor.
func (p Program) ID() solana.PublicKey {
	switch p {
	case Legacy:
		return LegacyProgramID
	case Extended:
		return ExtendedProgramID
	default:
		panic(fmt.Sprintf("token: unknown program variant %d", uint8(p)))
	}
}

func (p Program) String() string {
	switch p {
	case Legacy:
		return "spl-token"
	case Extended:
		return "spl-token-2022"
	default:
		return fmt.Sprintf("Program(%d)", uint8(p))
	}
}

// TransferChecked builds a transfer that the program rejects unless decimals
// matches the mint's precision.
func (p Program) TransferChecked(
	source, mint, destination, authority solana.PublicKey,
	amount uint64,
	decimals uint8,
) (solana.Instruction, error) {
	ix, err := token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		destination,
		authority,
		[]solana.PublicKey{},
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transferChecked: %w", err)
	}

	switch p {
	case Legacy:
		return ix, nil
	case Extended:
		// Token-2022 keeps the legacy wire layout for TransferChecked;
		// only the target program differs.
		data, err := ix.Data()
		if err != nil {
			return nil, fmt.Errorf("failed to encode transferChecked: %w", err)
		}
		return solana.NewInstruction(ExtendedProgramID, ix.Accounts(), data), nil
	default:
		return nil, fmt.Errorf("%w: variant %d", ErrUnsupportedProgram, uint8(p))
	}
}

// CreateIdempotent builds an associated token account creation that is a
// no-op when the account already exists.
func (p Program) CreateIdempotent(payer, account, owner, mint solana.PublicKey) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(account).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(SystemProgramID),
		solana.Meta(p.ID()),
	}
	return solana.NewInstruction(
		AssociatedTokenAccountProgramID,
		accounts,
		[]byte{associatedCreateIdempotentInstruction},
	)
}
