package transfer

import (
	"github.com/brojonat/solxfer/service/solana"
	"github.com/brojonat/solxfer/service/token"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// BuildInstructions returns the idempotent creation of the destination
// account followed by a transferChecked, both for the source mint's program.
//
// The associated token account program only creates accounts at their
// derived address, so creation is emitted only for associated destinations.
func BuildInstructions(
	payer solanago.PublicKey,
	source *solana.TokenBalance,
	dest *Destination,
	raw uint64,
) ([]solanago.Instruction, error) {
	mint := source.Token.Mint
	program, err := token.ProgramFor(mint.ProgramID)
	if err != nil {
		return nil, err
	}

	instructions := make([]solanago.Instruction, 0, 2)
	if dest.Associated {
		instructions = append(instructions, program.CreateIdempotent(payer, dest.Account, dest.Owner, mint.Address))
	}

	transfer, err := program.TransferChecked(
		source.Address,
		mint.Address,
		dest.Account,
		payer,
		raw,
		mint.Decimals,
	)
	if err != nil {
		return nil, err
	}
	return append(instructions, transfer), nil
}

// BuildNativeInstructions returns a single System program transfer of lamports.
func BuildNativeInstructions(from, to solanago.PublicKey, lamports uint64) []solanago.Instruction {
	return []solanago.Instruction{
		system.NewTransferInstruction(lamports, from, to).Build(),
	}
}
