package token

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// FindAssociatedAddress derives the associated token account for
// (owner, mint) under the given token program.
func FindAssociatedAddress(owner, mint, programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			owner[:],
			programID[:],
			mint[:],
		},
		AssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated account for owner %s mint %s: %w", owner, mint, err)
	}
	return addr, nil
}
